package ontology

import (
	"context"
	"sort"

	"github.com/agenthands/nuvalign/internal/core/model"
	"github.com/agenthands/nuvalign/internal/mapping"
	"github.com/agenthands/nuvalign/internal/platform/logger"
)

// Overlay answers binding queries for one system from a mapping file and
// everything else from the base facade.
type Overlay struct {
	Facade
	mapping *mapping.Mapping
	log     *logger.Logger
}

// WithMapping replaces the bindings of m.System in base with the rows of m.
func WithMapping(base Facade, m *mapping.Mapping, log *logger.Logger) *Overlay {
	return &Overlay{Facade: base, mapping: m, log: log}
}

func (o *Overlay) concepts(ctx context.Context) (map[string]model.ConceptRecord, error) {
	records, err := o.Facade.ListReferenceConcepts(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.ConceptRecord, len(records))
	for _, r := range records {
		out[r.Notation] = r
	}
	return out, nil
}

func (o *Overlay) ListDirectBindings(ctx context.Context, system string) ([]model.DirectBinding, error) {
	if system != o.mapping.System {
		return o.Facade.ListDirectBindings(ctx, system)
	}
	concepts, err := o.concepts(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.DirectBinding
	for _, row := range o.mapping.Rows {
		concept, ok := concepts[row.Concept]
		if !ok {
			o.log.Warn("mapping to unknown reference concept",
				"system", system, "code", row.Code, "concept", row.Concept, "line", row.Line)
			continue
		}
		if concept.IsAbstract {
			continue
		}
		out = append(out, model.DirectBinding{Code: row.Code, Label: concept.Label, Concept: row.Concept})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].Concept < out[j].Concept
	})
	return out, nil
}

func (o *Overlay) ListAbstractBindings(ctx context.Context, system string) ([]model.AbstractBinding, error) {
	if system != o.mapping.System {
		return o.Facade.ListAbstractBindings(ctx, system)
	}
	concepts, err := o.concepts(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.AbstractBinding
	for _, row := range o.mapping.Rows {
		if concept, ok := concepts[row.Concept]; ok && concept.IsAbstract {
			out = append(out, model.AbstractBinding{Code: row.Code, Concept: row.Concept})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].Concept < out[j].Concept
	})
	return out, nil
}

func (o *Overlay) ListSystems(ctx context.Context) ([]string, error) {
	systems, err := o.Facade.ListSystems(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range systems {
		if s == o.mapping.System {
			return systems, nil
		}
	}
	systems = append(systems, o.mapping.System)
	sort.Strings(systems)
	return systems, nil
}
