package model

import (
	"fmt"
	"strings"
)

type Mode string

const (
	// ModeFull evaluates every reference concept.
	ModeFull Mode = "full"
	// ModeGeneric evaluates abstract reference concepts only.
	ModeGeneric Mode = "generic"
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "all":
		return ModeFull, nil
	case "generic", "gen", "abstract":
		return ModeGeneric, nil
	default:
		return "", fmt.Errorf("unknown evaluation mode: %q", s)
	}
}

func (m Mode) RestrictToAbstract() bool {
	return m == ModeGeneric
}

// Suffix is appended to report file names.
func (m Mode) Suffix() string {
	if m == ModeGeneric {
		return "_gen"
	}
	return "_full"
}

// Measure is a metric that may be undefined (e.g. a ratio over zero).
type Measure struct {
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

func Defined(v float64) Measure {
	return Measure{Value: v, Defined: true}
}

var Undefined = Measure{}

type Metrics struct {
	NbConcepts      int     `json:"nb_concepts"`
	Unmapped        int     `json:"unmapped"`
	NbCodes         int     `json:"nb_codes"`
	TotalBlur       int     `json:"total_blur"`
	NbEquivGroups   int     `json:"nb_equiv_groups"`
	TotalEquivCount int     `json:"total_equiv_count"`
	Completeness    Measure `json:"completeness"`
	Precision       Measure `json:"precision"`
	AverageBlur     Measure `json:"average_blur"`
	Redundancy      Measure `json:"redundancy"`
}

// Evaluation is the outcome of aligning one code system in one mode.
type Evaluation struct {
	RunID    string         `json:"run_id"`
	System   string         `json:"system"`
	Mode     Mode           `json:"mode"`
	Version  string         `json:"version,omitempty"`
	Sentinel int            `json:"sentinel"`
	Best     []BestCode     `json:"best"`
	Reverse  []ReverseEntry `json:"reverse"`
	Metrics  Metrics        `json:"metrics"`
}
