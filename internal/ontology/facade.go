// Package ontology provides read access to the reference ontology: concepts,
// their valences, the valence hierarchy and the external code bindings.
package ontology

import (
	"context"
	"errors"

	"github.com/agenthands/nuvalign/internal/core/model"
)

var ErrNotFound = errors.New("not found")

// Facade is the query surface alignment runs are built on.
type Facade interface {
	ListReferenceConcepts(ctx context.Context, restrictToAbstract bool) ([]model.ConceptRecord, error)
	ListDirectBindings(ctx context.Context, system string) ([]model.DirectBinding, error)
	ListAbstractBindings(ctx context.Context, system string) ([]model.AbstractBinding, error)
	ValenceParents(ctx context.Context, valenceID string) ([]string, error)
	ListSystems(ctx context.Context) ([]string, error)
	Version(ctx context.Context) (string, error)
}
