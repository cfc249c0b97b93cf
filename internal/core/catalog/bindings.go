package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/agenthands/nuvalign/internal/core/model"
	"github.com/agenthands/nuvalign/internal/platform/logger"
)

// Bindings are the validated exact matches of one code system, split by
// the kind of the bound concept.
type Bindings struct {
	System   string
	Direct   []model.Binding
	Abstract []model.Binding
	// EquivCounts counts exact matches per reference concept, duplicates
	// of one code included.
	EquivCounts map[string]int
	Rejected    []Rejection
}

// LoadBindings reads both binding lists of a system and validates them
// against the catalog. The kind of a binding is decided by the catalog, not
// by the list it came from. A code bound to several concepts keeps the
// binding with the smallest concept notation.
func (c *Catalog) LoadBindings(ctx context.Context, src Source, system string, log *logger.Logger) (*Bindings, error) {
	direct, err := src.ListDirectBindings(ctx, system)
	if err != nil {
		return nil, fmt.Errorf("failed to list direct bindings for %s: %w", system, err)
	}
	abstract, err := src.ListAbstractBindings(ctx, system)
	if err != nil {
		return nil, fmt.Errorf("failed to list abstract bindings for %s: %w", system, err)
	}

	raw := make([]model.Binding, 0, len(direct)+len(abstract))
	for _, d := range direct {
		raw = append(raw, model.Binding{
			Code:    model.CodeID{System: system, Notation: d.Code},
			Concept: d.Concept,
			Label:   d.Label,
		})
	}
	for _, a := range abstract {
		raw = append(raw, model.Binding{
			Code:    model.CodeID{System: system, Notation: a.Code},
			Concept: a.Concept,
		})
	}

	return c.Bind(system, raw, log), nil
}

// Bind validates raw bindings of one system.
func (c *Catalog) Bind(system string, raw []model.Binding, log *logger.Logger) *Bindings {
	sort.SliceStable(raw, func(i, j int) bool {
		if raw[i].Code != raw[j].Code {
			return raw[i].Code.Less(raw[j].Code)
		}
		return raw[i].Concept < raw[j].Concept
	})

	b := &Bindings{System: system, EquivCounts: make(map[string]int)}
	seenPair := make(map[model.Binding]bool)
	boundTo := make(map[model.CodeID]string)

	for _, rb := range raw {
		concept, ok := c.Get(rb.Concept)
		if !ok {
			log.Warn("skipping binding to unknown reference concept",
				"system", system, "code", rb.Code.String(), "concept", rb.Concept)
			b.Rejected = append(b.Rejected, Rejection{Notation: rb.Code.String(), Err: ErrUnknownConcept})
			continue
		}

		pair := model.Binding{Code: rb.Code, Concept: rb.Concept}
		if seenPair[pair] {
			continue
		}
		seenPair[pair] = true
		b.EquivCounts[rb.Concept]++

		if prev, taken := boundTo[rb.Code]; taken {
			log.Warn("external code bound to several reference concepts, keeping the first",
				"system", system, "code", rb.Code.String(), "kept", prev, "dropped", rb.Concept)
			b.Rejected = append(b.Rejected, Rejection{Notation: rb.Code.String(), Err: ErrDuplicateCode})
			continue
		}
		boundTo[rb.Code] = rb.Concept

		binding := model.Binding{Code: rb.Code, Concept: rb.Concept, Label: rb.Label}
		if binding.Label == "" {
			binding.Label = concept.Label
		}
		if concept.IsAbstract() {
			b.Abstract = append(b.Abstract, binding)
		} else {
			b.Direct = append(b.Direct, binding)
		}
	}

	return b
}
