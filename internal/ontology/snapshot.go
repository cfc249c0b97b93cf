package ontology

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/agenthands/nuvalign/internal/core/model"
)

// Snapshot is a self-contained copy of the ontology, used for offline runs
// and for seeding a graph.
type Snapshot struct {
	Version  string                `yaml:"version"`
	Valences []ValenceRecord       `yaml:"valences"`
	Concepts []model.ConceptRecord `yaml:"concepts"`
	Codes    []CodeRecord          `yaml:"codes"`
}

type ValenceRecord struct {
	ID      string   `yaml:"id"`
	Parents []string `yaml:"parents,omitempty"`
}

// CodeRecord is one external code and the concept it exactly matches.
type CodeRecord struct {
	System   string `yaml:"system"`
	Notation string `yaml:"notation"`
	Label    string `yaml:"label,omitempty"`
	Concept  string `yaml:"concept"`
}

func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot '%s': %w", path, err)
	}
	s, err := ParseSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot '%s': %w", path, err)
	}
	return s, nil
}

func ParseSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, err
	}
	for i, c := range s.Codes {
		if c.System == "" || c.Notation == "" || c.Concept == "" {
			return nil, fmt.Errorf("code %d: system, notation and concept are required", i)
		}
	}
	return &s, nil
}

// Systems lists the code systems present in the snapshot.
func (s *Snapshot) Systems() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range s.Codes {
		if !seen[c.System] {
			seen[c.System] = true
			out = append(out, c.System)
		}
	}
	sort.Strings(out)
	return out
}
