package ontology

import (
	"context"
	"sort"

	"github.com/agenthands/nuvalign/internal/core/model"
)

// Memory serves a Snapshot from memory.
type Memory struct {
	snapshot *Snapshot
	concepts map[string]model.ConceptRecord
	parents  map[string][]string
}

func NewMemory(s *Snapshot) *Memory {
	m := &Memory{
		snapshot: s,
		concepts: make(map[string]model.ConceptRecord, len(s.Concepts)),
		parents:  make(map[string][]string, len(s.Valences)),
	}
	for _, c := range s.Concepts {
		if _, ok := m.concepts[c.Notation]; !ok {
			m.concepts[c.Notation] = c
		}
	}
	for _, v := range s.Valences {
		m.parents[v.ID] = append(m.parents[v.ID], v.Parents...)
	}
	return m
}

func (m *Memory) ListReferenceConcepts(ctx context.Context, restrictToAbstract bool) ([]model.ConceptRecord, error) {
	out := make([]model.ConceptRecord, 0, len(m.snapshot.Concepts))
	for _, c := range m.snapshot.Concepts {
		if restrictToAbstract && !c.IsAbstract {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Notation < out[j].Notation })
	return out, nil
}

// ListDirectBindings returns the bindings of a system to concrete concepts.
// Bindings to concepts missing from the snapshot are returned here too so
// the catalog can report them.
func (m *Memory) ListDirectBindings(ctx context.Context, system string) ([]model.DirectBinding, error) {
	var out []model.DirectBinding
	for _, c := range m.snapshot.Codes {
		if c.System != system {
			continue
		}
		concept, ok := m.concepts[c.Concept]
		if ok && concept.IsAbstract {
			continue
		}
		out = append(out, model.DirectBinding{Code: c.Notation, Label: concept.Label, Concept: c.Concept})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].Concept < out[j].Concept
	})
	return out, nil
}

func (m *Memory) ListAbstractBindings(ctx context.Context, system string) ([]model.AbstractBinding, error) {
	var out []model.AbstractBinding
	for _, c := range m.snapshot.Codes {
		if c.System != system {
			continue
		}
		if concept, ok := m.concepts[c.Concept]; ok && concept.IsAbstract {
			out = append(out, model.AbstractBinding{Code: c.Notation, Concept: c.Concept})
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

func (m *Memory) ValenceParents(ctx context.Context, valenceID string) ([]string, error) {
	ps := append([]string(nil), m.parents[valenceID]...)
	sort.Strings(ps)
	return ps, nil
}

func (m *Memory) ListSystems(ctx context.Context) ([]string, error) {
	return m.snapshot.Systems(), nil
}

func (m *Memory) Version(ctx context.Context) (string, error) {
	if m.snapshot.Version == "" {
		return "", ErrNotFound
	}
	return m.snapshot.Version, nil
}
