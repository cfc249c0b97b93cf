package model

import (
	"fmt"
	"strings"
)

// CodeID identifies an external code within its classification system.
type CodeID struct {
	System   string `json:"system"`
	Notation string `json:"notation"`
}

// String renders the identifier the way reports print it, e.g. "CVX-49".
func (id CodeID) String() string {
	return id.System + "-" + id.Notation
}

func (id CodeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *CodeID) UnmarshalText(text []byte) error {
	parsed, err := ParseCodeID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseCodeID splits "SYSTEM-NOTATION" on the first dash.
func ParseCodeID(s string) (CodeID, error) {
	system, notation, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok || system == "" || notation == "" {
		return CodeID{}, fmt.Errorf("invalid external code identifier %q", s)
	}
	return CodeID{System: system, Notation: notation}, nil
}

// Less orders identifiers by system, then notation.
func (id CodeID) Less(other CodeID) bool {
	if id.System != other.System {
		return id.System < other.System
	}
	return id.Notation < other.Notation
}

type ExternalCode struct {
	ID    CodeID `json:"id"`
	Label string `json:"label"`
}

// DirectBinding is an exact match from an external code to a concrete
// reference concept. Label is the reference concept's label.
type DirectBinding struct {
	Code    string `json:"code"`
	Label   string `json:"label"`
	Concept string `json:"concept"`
}

// AbstractBinding is an exact match from an external code to an abstract
// reference concept, the rule the equivalence matcher expands.
type AbstractBinding struct {
	Code    string `json:"code"`
	Concept string `json:"concept"`
}

// Binding is a validated exact match held by the catalog.
type Binding struct {
	Code    CodeID `json:"code"`
	Concept string `json:"concept"`
	Label   string `json:"label"`
}
