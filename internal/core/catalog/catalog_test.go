package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/agenthands/nuvalign/internal/core/model"
	"github.com/agenthands/nuvalign/internal/platform/logger"
)

type MockSource struct {
	Concepts []model.ConceptRecord
	Direct   []model.DirectBinding
	Abstract []model.AbstractBinding
	Err      error

	RestrictAsked []bool
}

func (m *MockSource) ListReferenceConcepts(ctx context.Context, restrictToAbstract bool) ([]model.ConceptRecord, error) {
	m.RestrictAsked = append(m.RestrictAsked, restrictToAbstract)
	return m.Concepts, m.Err
}

func (m *MockSource) ListDirectBindings(ctx context.Context, system string) ([]model.DirectBinding, error) {
	return m.Direct, m.Err
}

func (m *MockSource) ListAbstractBindings(ctx context.Context, system string) ([]model.AbstractBinding, error) {
	return m.Abstract, m.Err
}

func records() []model.ConceptRecord {
	return []model.ConceptRecord{
		{Notation: "VAC02", Label: "Hepatitis B", IsAbstract: true, Valences: []string{"hepb"}},
		{Notation: "VAC01", Label: "DTP", IsAbstract: true, Valences: []string{"tet", "dip", "per", "tet"}},
		{Notation: "VAC10", Label: "Engerix B", IsAbstract: false, Valences: []string{"hepb-rec"}},
		{Notation: "VAC99", Label: "Broken", IsAbstract: true, Valences: []string{"", ""}},
		{Notation: "VAC01", Label: "DTP again", IsAbstract: false, Valences: []string{"x"}},
	}
}

func TestNew(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := New(records(), logger.Wrap(zap.New(core)))

	assert.Equal(t, 3, c.Len())

	dtp, ok := c.Get("VAC01")
	require.True(t, ok)
	assert.Equal(t, "DTP", dtp.Label)
	assert.Equal(t, []string{"dip", "per", "tet"}, dtp.Valences)
	assert.True(t, dtp.IsAbstract())

	_, ok = c.Get("VAC99")
	assert.False(t, ok)

	require.Len(t, c.Rejected, 2)
	assert.Equal(t, "VAC99", c.Rejected[0].Notation)
	assert.True(t, errors.Is(c.Rejected[0].Err, ErrEmptyValences))
	assert.True(t, errors.Is(c.Rejected[1].Err, ErrDuplicateConcept))
	assert.Equal(t, 2, logs.FilterMessage("rejecting reference concept").Len())
}

func TestConcepts_ModeFilter(t *testing.T) {
	c := New(records(), logger.Nop())

	var all, abstract []string
	for _, r := range c.Concepts(false) {
		all = append(all, r.Notation)
	}
	for _, r := range c.Concepts(true) {
		abstract = append(abstract, r.Notation)
	}

	assert.Equal(t, []string{"VAC01", "VAC02", "VAC10"}, all)
	assert.Equal(t, []string{"VAC01", "VAC02"}, abstract)
	assert.Equal(t, []string{"dip", "hepb", "hepb-rec", "per", "tet"}, c.Valences())
}

func TestLoad(t *testing.T) {
	src := &MockSource{Concepts: records()}

	c, err := Load(context.Background(), src, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []bool{false}, src.RestrictAsked)

	src.Err = errors.New("bolt connection refused")
	_, err = Load(context.Background(), src, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bolt connection refused")
}

func TestLoadBindings(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := logger.Wrap(zap.New(core))
	c := New(records(), log)

	src := &MockSource{
		Direct: []model.DirectBinding{
			{Code: "43", Label: "Engerix B", Concept: "VAC10"},
			{Code: "43", Label: "Engerix B", Concept: "VAC10"}, // exact duplicate
			{Code: "77", Label: "Ghost", Concept: "VAC404"},
		},
		Abstract: []model.AbstractBinding{
			{Code: "45", Concept: "VAC02"},
			{Code: "20", Concept: "VAC01"},
			{Code: "20", Concept: "VAC02"}, // same code, second concept
		},
	}

	b, err := c.LoadBindings(context.Background(), src, "CVX", log)
	require.NoError(t, err)

	require.Len(t, b.Direct, 1)
	assert.Equal(t, model.CodeID{System: "CVX", Notation: "43"}, b.Direct[0].Code)
	assert.Equal(t, "Engerix B", b.Direct[0].Label)

	require.Len(t, b.Abstract, 2)
	assert.Equal(t, "20", b.Abstract[0].Code.Notation)
	assert.Equal(t, "VAC01", b.Abstract[0].Concept)
	assert.Equal(t, "DTP", b.Abstract[0].Label, "label falls back to the concept label")
	assert.Equal(t, "45", b.Abstract[1].Code.Notation)

	assert.Equal(t, map[string]int{"VAC01": 1, "VAC02": 2, "VAC10": 1}, b.EquivCounts)

	require.Len(t, b.Rejected, 2)
	assert.Equal(t, 1, logs.FilterMessage("skipping binding to unknown reference concept").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("several reference concepts").Len())
}

func TestBind_KindComesFromCatalog(t *testing.T) {
	c := New(records(), logger.Nop())

	b := c.Bind("ATC", []model.Binding{
		{Code: model.CodeID{System: "ATC", Notation: "J07BC01"}, Concept: "VAC02"},
	}, logger.Nop())

	assert.Empty(t, b.Direct)
	require.Len(t, b.Abstract, 1)
}

func TestLoadBindings_SourceError(t *testing.T) {
	c := New(records(), logger.Nop())
	src := &MockSource{Err: errors.New("timeout")}

	_, err := c.LoadBindings(context.Background(), src, "CVX", logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CVX")
}
