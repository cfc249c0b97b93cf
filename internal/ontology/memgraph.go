package ontology

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/nuvalign/internal/core/common"
	"github.com/agenthands/nuvalign/internal/core/model"
	"github.com/agenthands/nuvalign/internal/driver"
	"github.com/agenthands/nuvalign/internal/platform/logger"
)

const ontologyID = "nuva"

// Memgraph reads the ontology from a graph database.
type Memgraph struct {
	Driver driver.GraphDriver
	Log    *logger.Logger
}

func NewMemgraph(d driver.GraphDriver, log *logger.Logger) *Memgraph {
	return &Memgraph{Driver: d, Log: log}
}

func (g *Memgraph) ListReferenceConcepts(ctx context.Context, restrictToAbstract bool) ([]model.ConceptRecord, error) {
	res, err := g.Driver.ExecuteQuery(ctx, driver.ListReferenceConceptsQuery, map[string]interface{}{
		"restrict_to_abstract": restrictToAbstract,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list reference concepts: %w", err)
	}

	out := make([]model.ConceptRecord, 0, len(res.Records))
	for _, rec := range res.Records {
		notation, err := common.Get[string](rec, "notation")
		if err != nil {
			return nil, err
		}
		label, err := common.Get[string](rec, "label")
		if err != nil {
			return nil, err
		}
		abstract, err := common.Get[bool](rec, "is_abstract")
		if err != nil {
			return nil, err
		}
		valences, err := common.GetStrings(rec, "valences")
		if err != nil {
			return nil, err
		}
		out = append(out, model.ConceptRecord{
			Notation:   notation,
			Label:      label,
			IsAbstract: abstract,
			Valences:   valences,
		})
	}
	return out, nil
}

func (g *Memgraph) ListDirectBindings(ctx context.Context, system string) ([]model.DirectBinding, error) {
	res, err := g.Driver.ExecuteQuery(ctx, driver.ListDirectBindingsQuery, map[string]interface{}{"system": system})
	if err != nil {
		return nil, fmt.Errorf("failed to list direct bindings: %w", err)
	}

	out := make([]model.DirectBinding, 0, len(res.Records))
	for _, rec := range res.Records {
		code, err := common.Get[string](rec, "code")
		if err != nil {
			return nil, err
		}
		label, err := common.Get[string](rec, "label")
		if err != nil {
			return nil, err
		}
		concept, err := common.Get[string](rec, "concept")
		if err != nil {
			return nil, err
		}
		out = append(out, model.DirectBinding{Code: code, Label: label, Concept: concept})
	}
	return out, nil
}

func (g *Memgraph) ListAbstractBindings(ctx context.Context, system string) ([]model.AbstractBinding, error) {
	res, err := g.Driver.ExecuteQuery(ctx, driver.ListAbstractBindingsQuery, map[string]interface{}{"system": system})
	if err != nil {
		return nil, fmt.Errorf("failed to list abstract bindings: %w", err)
	}

	out := make([]model.AbstractBinding, 0, len(res.Records))
	for _, rec := range res.Records {
		code, err := common.Get[string](rec, "code")
		if err != nil {
			return nil, err
		}
		concept, err := common.Get[string](rec, "concept")
		if err != nil {
			return nil, err
		}
		out = append(out, model.AbstractBinding{Code: code, Concept: concept})
	}
	return out, nil
}

func (g *Memgraph) ValenceParents(ctx context.Context, valenceID string) ([]string, error) {
	res, err := g.Driver.ExecuteQuery(ctx, driver.ValenceParentsQuery, map[string]interface{}{"id": valenceID})
	if err != nil {
		return nil, fmt.Errorf("failed to get valence parents: %w", err)
	}
	return column(res.Records, "id")
}

func (g *Memgraph) ListSystems(ctx context.Context) ([]string, error) {
	res, err := g.Driver.ExecuteQuery(ctx, driver.ListSystemsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list code systems: %w", err)
	}
	return column(res.Records, "system")
}

func (g *Memgraph) Version(ctx context.Context) (string, error) {
	res, err := g.Driver.ExecuteQuery(ctx, driver.GetVersionQuery, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get ontology version: %w", err)
	}
	if len(res.Records) == 0 {
		return "", ErrNotFound
	}
	version, err := common.Get[string](res.Records[0], "version")
	if err != nil {
		return "", err
	}
	if version == "" {
		return "", ErrNotFound
	}
	return version, nil
}

func (g *Memgraph) BuildIndices(ctx context.Context) error {
	return g.Driver.BuildIndices(ctx)
}

// Import merges a snapshot into the graph. Valences are written before the
// edges and concepts that reference them; reruns are idempotent.
func (g *Memgraph) Import(ctx context.Context, s *Snapshot) error {
	exec := func(query string, params map[string]interface{}) error {
		_, err := g.Driver.ExecuteQuery(ctx, query, params)
		return err
	}

	if s.Version != "" {
		if err := exec(driver.SaveVersionQuery, map[string]interface{}{"id": ontologyID, "version": s.Version}); err != nil {
			return fmt.Errorf("failed to save ontology version: %w", err)
		}
	}

	valences := make(map[string]bool)
	addValence := func(id string) error {
		if id == "" || valences[id] {
			return nil
		}
		valences[id] = true
		if err := exec(driver.SaveValenceQuery, map[string]interface{}{"id": id}); err != nil {
			return fmt.Errorf("failed to save valence %s: %w", id, err)
		}
		return nil
	}
	for _, v := range s.Valences {
		if err := addValence(v.ID); err != nil {
			return err
		}
		for _, p := range v.Parents {
			if err := addValence(p); err != nil {
				return err
			}
		}
	}
	for _, c := range s.Concepts {
		for _, v := range c.Valences {
			if err := addValence(v); err != nil {
				return err
			}
		}
	}

	for _, v := range s.Valences {
		for _, p := range v.Parents {
			if err := exec(driver.SaveIsAEdgeQuery, map[string]interface{}{"child": v.ID, "parent": p}); err != nil {
				return fmt.Errorf("failed to save is-a edge %s -> %s: %w", v.ID, p, err)
			}
		}
	}

	for _, c := range s.Concepts {
		err := exec(driver.SaveVaccineQuery, map[string]interface{}{
			"notation":    c.Notation,
			"label":       c.Label,
			"is_abstract": c.IsAbstract,
		})
		if err != nil {
			return fmt.Errorf("failed to save reference concept %s: %w", c.Notation, err)
		}
		for _, v := range c.Valences {
			if v == "" {
				continue
			}
			if err := exec(driver.SaveContainsValenceQuery, map[string]interface{}{"notation": c.Notation, "valence": v}); err != nil {
				return fmt.Errorf("failed to link %s to valence %s: %w", c.Notation, v, err)
			}
		}
	}

	for _, c := range s.Codes {
		err := exec(driver.SaveCodeQuery, map[string]interface{}{
			"system":   c.System,
			"notation": c.Notation,
			"label":    c.Label,
		})
		if err != nil {
			return fmt.Errorf("failed to save code %s-%s: %w", c.System, c.Notation, err)
		}
		err = exec(driver.SaveExactMatchQuery, map[string]interface{}{
			"concept":  c.Concept,
			"system":   c.System,
			"notation": c.Notation,
		})
		if err != nil {
			return fmt.Errorf("failed to bind code %s-%s: %w", c.System, c.Notation, err)
		}
	}

	g.Log.Info("imported ontology snapshot",
		"version", s.Version,
		"valences", len(valences),
		"concepts", len(s.Concepts),
		"codes", len(s.Codes))
	return nil
}

func column(records []*neo4j.Record, key string) ([]string, error) {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		v, err := common.Get[string](rec, key)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
