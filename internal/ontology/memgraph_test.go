package ontology

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/nuvalign/internal/driver"
	"github.com/agenthands/nuvalign/internal/platform/logger"
)

type executedQuery struct {
	Query  string
	Params map[string]interface{}
}

type MockDriver struct {
	Results  map[string]neo4j.EagerResult
	Err      error
	Executed []executedQuery
	Indexed  bool
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.Executed = append(m.Executed, executedQuery{Query: query, Params: params})
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	return m.Results[query], nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	m.Indexed = true
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

func result(keys []string, rows ...[]any) neo4j.EagerResult {
	var records []*neo4j.Record
	for _, r := range rows {
		records = append(records, &neo4j.Record{Keys: keys, Values: r})
	}
	return neo4j.EagerResult{Keys: keys, Records: records}
}

func TestMemgraph_ListReferenceConcepts(t *testing.T) {
	md := &MockDriver{Results: map[string]neo4j.EagerResult{
		driver.ListReferenceConceptsQuery: result([]string{"notation", "label", "is_abstract", "valences"},
			[]any{"VAC1001", "Hepatitis B", true, []any{"hepb"}},
			[]any{"VAC9999", "Orphan", true, []any{nil}},
		),
	}}
	g := NewMemgraph(md, logger.Nop())

	recs, err := g.ListReferenceConcepts(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"hepb"}, recs[0].Valences)
	assert.True(t, recs[0].IsAbstract)
	assert.Empty(t, recs[1].Valences)
	assert.Equal(t, true, md.Executed[0].Params["restrict_to_abstract"])
}

func TestMemgraph_Bindings(t *testing.T) {
	md := &MockDriver{Results: map[string]neo4j.EagerResult{
		driver.ListDirectBindingsQuery: result([]string{"code", "label", "concept"},
			[]any{"43", "Engerix B", "VAC2001"},
		),
		driver.ListAbstractBindingsQuery: result([]string{"code", "concept"},
			[]any{"08", "VAC1001"},
		),
		driver.ValenceParentsQuery: result([]string{"id"}, []any{"hepb"}),
		driver.ListSystemsQuery:    result([]string{"system"}, []any{"ATC"}, []any{"CVX"}),
	}}
	g := NewMemgraph(md, logger.Nop())
	ctx := context.Background()

	direct, err := g.ListDirectBindings(ctx, "CVX")
	require.NoError(t, err)
	assert.Equal(t, "VAC2001", direct[0].Concept)
	assert.Equal(t, "Engerix B", direct[0].Label)
	assert.Equal(t, "CVX", md.Executed[0].Params["system"])

	ab, err := g.ListAbstractBindings(ctx, "CVX")
	require.NoError(t, err)
	assert.Equal(t, "08", ab[0].Code)

	parents, err := g.ValenceParents(ctx, "hepb-rec")
	require.NoError(t, err)
	assert.Equal(t, []string{"hepb"}, parents)
	assert.Equal(t, "hepb-rec", md.Executed[2].Params["id"])

	systems, err := g.ListSystems(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ATC", "CVX"}, systems)
}

func TestMemgraph_Version(t *testing.T) {
	md := &MockDriver{Results: map[string]neo4j.EagerResult{}}
	g := NewMemgraph(md, logger.Nop())

	_, err := g.Version(context.Background())
	assert.True(t, errors.Is(err, ErrNotFound))

	md.Results[driver.GetVersionQuery] = result([]string{"version"}, []any{"1.9.2"})
	v, err := g.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.9.2", v)
}

func TestMemgraph_Errors(t *testing.T) {
	boom := errors.New("connection refused")
	g := NewMemgraph(&MockDriver{Err: boom}, logger.Nop())

	_, err := g.ListReferenceConcepts(context.Background(), false)
	assert.True(t, errors.Is(err, boom))

	_, err = g.ListDirectBindings(context.Background(), "CVX")
	assert.True(t, errors.Is(err, boom))

	err = g.Import(context.Background(), &Snapshot{Version: "1"})
	assert.True(t, errors.Is(err, boom))
}

func TestMemgraph_BadColumnType(t *testing.T) {
	md := &MockDriver{Results: map[string]neo4j.EagerResult{
		driver.ListSystemsQuery: result([]string{"system"}, []any{int64(3)}),
	}}
	_, err := NewMemgraph(md, logger.Nop()).ListSystems(context.Background())
	assert.Error(t, err)
}

func TestMemgraph_Import(t *testing.T) {
	md := &MockDriver{}
	g := NewMemgraph(md, logger.Nop())

	require.NoError(t, g.Import(context.Background(), loadFixture(t)))
	require.NoError(t, g.BuildIndices(context.Background()))
	assert.True(t, md.Indexed)

	counts := make(map[string]int)
	for _, q := range md.Executed {
		counts[q.Query]++
	}
	assert.Equal(t, 1, counts[driver.SaveVersionQuery])
	assert.Equal(t, 4, counts[driver.SaveValenceQuery])
	assert.Equal(t, 1, counts[driver.SaveIsAEdgeQuery])
	assert.Equal(t, 5, counts[driver.SaveVaccineQuery])
	assert.Equal(t, 5, counts[driver.SaveContainsValenceQuery])
	assert.Equal(t, 5, counts[driver.SaveCodeQuery])
	assert.Equal(t, 5, counts[driver.SaveExactMatchQuery])

	// valences exist before any edge references them
	lastValence, firstEdge := -1, -1
	for i, q := range md.Executed {
		if q.Query == driver.SaveValenceQuery {
			lastValence = i
		}
		if q.Query == driver.SaveIsAEdgeQuery && firstEdge < 0 {
			firstEdge = i
		}
	}
	assert.Less(t, lastValence, firstEdge)
}
