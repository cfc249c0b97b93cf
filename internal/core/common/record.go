package common

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Get reads a typed value from a record. A null value yields the zero
// value of T; a missing key or a value of another type is an error.
func Get[T any](rec *neo4j.Record, key string) (T, error) {
	var zero T
	raw, ok := rec.Get(key)
	if !ok {
		return zero, fmt.Errorf("record has no column %q", key)
	}
	if raw == nil {
		return zero, nil
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("column %q: expected %T, got %T", key, zero, raw)
	}
	return v, nil
}

// GetStrings reads a list column whose elements are all strings. Null
// elements, as produced by collect() over an optional match, are skipped.
func GetStrings(rec *neo4j.Record, key string) ([]string, error) {
	raw, err := Get[[]interface{}](rec, key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for i, item := range raw {
		if item == nil {
			continue
		}
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("column %q[%d]: expected string, got %T", key, i, item)
		}
		out = append(out, s)
	}
	return out, nil
}
