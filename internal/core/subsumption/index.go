// Package subsumption answers reflexive-transitive "is-a" queries over valences.
package subsumption

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var ErrCycle = errors.New("valence is-a graph contains a cycle")

// ParentSource yields the direct parents of a valence.
type ParentSource interface {
	ValenceParents(ctx context.Context, valenceID string) ([]string, error)
}

// Index holds, for every known valence, the set of its ancestors including
// itself. It is immutable after construction and safe for concurrent use.
type Index struct {
	ancestors map[string]map[string]bool
}

// New computes the closure of the given child -> direct parents edges.
func New(parents map[string][]string) (*Index, error) {
	b := &builder{
		parents: parents,
		closed:  make(map[string]map[string]bool),
		onPath:  make(map[string]bool),
	}

	nodes := make([]string, 0, len(parents))
	for child, ps := range parents {
		nodes = append(nodes, child)
		nodes = append(nodes, ps...)
	}
	sort.Strings(nodes)

	for _, n := range nodes {
		if _, err := b.dfs(n); err != nil {
			return nil, err
		}
	}
	return &Index{ancestors: b.closed}, nil
}

// Build crawls the parent edges reachable from seeds and indexes them.
func Build(ctx context.Context, src ParentSource, seeds []string) (*Index, error) {
	parents := make(map[string][]string)
	queue := append([]string(nil), seeds...)
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if _, done := parents[v]; done {
			continue
		}
		ps, err := src.ValenceParents(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("failed to get parents of valence %s: %w", v, err)
		}
		parents[v] = ps
		for _, p := range ps {
			if _, done := parents[p]; !done {
				queue = append(queue, p)
			}
		}
	}
	return New(parents)
}

type builder struct {
	parents map[string][]string
	closed  map[string]map[string]bool
	onPath  map[string]bool
}

func (b *builder) dfs(u string) (map[string]bool, error) {
	if anc, ok := b.closed[u]; ok {
		return anc, nil
	}
	if b.onPath[u] {
		return nil, fmt.Errorf("%w: through %s", ErrCycle, u)
	}
	b.onPath[u] = true

	anc := map[string]bool{u: true}
	for _, p := range b.parents[u] {
		pAnc, err := b.dfs(p)
		if err != nil {
			return nil, err
		}
		for a := range pAnc {
			anc[a] = true
		}
	}

	delete(b.onPath, u)
	b.closed[u] = anc
	return anc, nil
}

// Subsumes reports whether b is a or a descendant of a.
func (ix *Index) Subsumes(a, b string) bool {
	if a == b {
		return true
	}
	return ix.ancestors[b][a]
}

// Ancestors returns v and everything above it, sorted.
func (ix *Index) Ancestors(v string) []string {
	anc, ok := ix.ancestors[v]
	if !ok {
		return []string{v}
	}
	out := make([]string, 0, len(anc))
	for a := range anc {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Len is the number of indexed valences.
func (ix *Index) Len() int {
	return len(ix.ancestors)
}
