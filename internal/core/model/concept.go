package model

import (
	"fmt"
	"sort"
)

// Kind tags a reference concept as abstract (a generic class) or concrete
// (a specific product).
type Kind int

const (
	Concrete Kind = iota
	Abstract
)

func KindOf(abstract bool) Kind {
	if abstract {
		return Abstract
	}
	return Concrete
}

func (k Kind) IsAbstract() bool {
	return k == Abstract
}

func (k Kind) String() string {
	if k == Abstract {
		return "abstract"
	}
	return "concrete"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "abstract":
		*k = Abstract
	case "concrete":
		*k = Concrete
	default:
		return fmt.Errorf("unknown concept kind %q", text)
	}
	return nil
}

// ConceptRecord is a reference concept as returned by the graph, before validation.
type ConceptRecord struct {
	Notation   string   `json:"notation" yaml:"notation"`
	Label      string   `json:"label" yaml:"label"`
	IsAbstract bool     `json:"is_abstract" yaml:"abstract"`
	Valences   []string `json:"valences" yaml:"valences"`
}

type ReferenceConcept struct {
	Notation string   `json:"notation"`
	Label    string   `json:"label"`
	Kind     Kind     `json:"kind"`
	Valences []string `json:"valences"` // sorted, unique
}

func (c ReferenceConcept) IsAbstract() bool {
	return c.Kind.IsAbstract()
}

// NewReferenceConcept normalizes the valence list of a record: blanks are
// dropped, duplicates removed and the result sorted.
func NewReferenceConcept(rec ConceptRecord) ReferenceConcept {
	seen := make(map[string]bool, len(rec.Valences))
	valences := make([]string, 0, len(rec.Valences))
	for _, v := range rec.Valences {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		valences = append(valences, v)
	}
	sort.Strings(valences)

	return ReferenceConcept{
		Notation: rec.Notation,
		Label:    rec.Label,
		Kind:     KindOf(rec.IsAbstract),
		Valences: valences,
	}
}
