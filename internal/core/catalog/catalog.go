// Package catalog holds the validated reference concepts and the external
// code bindings an alignment run works on.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/agenthands/nuvalign/internal/core/model"
	"github.com/agenthands/nuvalign/internal/platform/logger"
)

var (
	ErrEmptyValences    = errors.New("reference concept has no valences")
	ErrDuplicateConcept = errors.New("duplicate reference concept notation")
	ErrUnknownConcept   = errors.New("unknown reference concept")
	ErrDuplicateCode    = errors.New("external code bound to more than one reference concept")
)

// Source is the part of the graph facade the catalog reads.
type Source interface {
	ListReferenceConcepts(ctx context.Context, restrictToAbstract bool) ([]model.ConceptRecord, error)
	ListDirectBindings(ctx context.Context, system string) ([]model.DirectBinding, error)
	ListAbstractBindings(ctx context.Context, system string) ([]model.AbstractBinding, error)
}

// Rejection records why a concept or binding was left out.
type Rejection struct {
	Notation string
	Err      error
}

type Catalog struct {
	concepts map[string]model.ReferenceConcept
	order    []string
	Rejected []Rejection
}

// New validates records. Concepts without valences or with a notation seen
// before are rejected and logged; they never take part in matching.
func New(records []model.ConceptRecord, log *logger.Logger) *Catalog {
	c := &Catalog{concepts: make(map[string]model.ReferenceConcept, len(records))}

	for _, rec := range records {
		concept := model.NewReferenceConcept(rec)
		var err error
		switch {
		case concept.Notation == "":
			err = fmt.Errorf("reference concept with empty notation")
		case len(concept.Valences) == 0:
			err = ErrEmptyValences
		case c.has(concept.Notation):
			err = ErrDuplicateConcept
		}
		if err != nil {
			log.Warn("rejecting reference concept", "notation", concept.Notation, "error", err)
			c.Rejected = append(c.Rejected, Rejection{Notation: concept.Notation, Err: err})
			continue
		}
		c.concepts[concept.Notation] = concept
		c.order = append(c.order, concept.Notation)
	}
	sort.Strings(c.order)

	return c
}

// Load reads every reference concept from the source. Mode filtering is
// applied later through Concepts so one catalog serves both modes.
func Load(ctx context.Context, src Source, log *logger.Logger) (*Catalog, error) {
	records, err := src.ListReferenceConcepts(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list reference concepts: %w", err)
	}
	c := New(records, log)
	log.Info("loaded reference concepts", "count", c.Len(), "rejected", len(c.Rejected))
	return c, nil
}

func (c *Catalog) has(notation string) bool {
	_, ok := c.concepts[notation]
	return ok
}

func (c *Catalog) Get(notation string) (model.ReferenceConcept, bool) {
	concept, ok := c.concepts[notation]
	return concept, ok
}

func (c *Catalog) Len() int {
	return len(c.order)
}

// Concepts returns the concepts eligible in a mode, in notation order.
func (c *Catalog) Concepts(restrictToAbstract bool) []model.ReferenceConcept {
	out := make([]model.ReferenceConcept, 0, len(c.order))
	for _, n := range c.order {
		concept := c.concepts[n]
		if restrictToAbstract && !concept.IsAbstract() {
			continue
		}
		out = append(out, concept)
	}
	return out
}

// Valences lists every valence used by some concept, sorted.
func (c *Catalog) Valences() []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range c.order {
		for _, v := range c.concepts[n].Valences {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}
