// Package metrics derives the alignment quality figures of a run.
package metrics

import (
	"fmt"

	"github.com/agenthands/nuvalign/internal/core/model"
)

// ZeroBlurPolicy decides whether aligned codes that are best for no
// concept count in nbCodes. Excluding them keeps precision within [0, 1].
type ZeroBlurPolicy int

const (
	ExcludeZeroBlur ZeroBlurPolicy = iota
	IncludeZeroBlur
)

func ParseZeroBlurPolicy(s string) (ZeroBlurPolicy, error) {
	switch s {
	case "", "exclude":
		return ExcludeZeroBlur, nil
	case "include":
		return IncludeZeroBlur, nil
	default:
		return ExcludeZeroBlur, fmt.Errorf("unknown zero blur policy: %q", s)
	}
}

type Input struct {
	NbConcepts      int
	Unmapped        int
	NbCodes         int
	TotalBlur       int
	NbEquivGroups   int
	TotalEquivCount int
}

// Compute never divides by zero: completeness is undefined without
// concepts, precision is 0 without blur, average blur is undefined when
// precision is 0 and redundancy is 0 without equivalence groups.
func Compute(in Input) model.Metrics {
	m := model.Metrics{
		NbConcepts:      in.NbConcepts,
		Unmapped:        in.Unmapped,
		NbCodes:         in.NbCodes,
		TotalBlur:       in.TotalBlur,
		NbEquivGroups:   in.NbEquivGroups,
		TotalEquivCount: in.TotalEquivCount,
		Completeness:    model.Undefined,
		Precision:       model.Defined(0),
		AverageBlur:     model.Undefined,
		Redundancy:      model.Defined(0),
	}

	if in.NbConcepts > 0 {
		m.Completeness = model.Defined(float64(in.NbConcepts-in.Unmapped) / float64(in.NbConcepts))
	}
	if in.TotalBlur > 0 {
		m.Precision = model.Defined(float64(in.NbCodes) / float64(in.TotalBlur))
	}
	if m.Precision.Value > 0 {
		m.AverageBlur = model.Defined(1 / m.Precision.Value)
	}
	if in.NbEquivGroups > 0 {
		m.Redundancy = model.Defined(float64(in.TotalEquivCount) / float64(in.NbEquivGroups))
	}
	return m
}

// Collect counts the inputs of Compute from the final tables. concepts are
// the evaluated notations, isMapped tells whether a concept received any
// code and equivCounts is the number of exact matches each concept received.
func Collect(concepts []string, isMapped func(string) bool,
	reverse []model.ReverseEntry, equivCounts map[string]int, policy ZeroBlurPolicy) Input {

	in := Input{NbConcepts: len(concepts)}
	for _, c := range concepts {
		if !isMapped(c) {
			in.Unmapped++
		}
		if n := equivCounts[c]; n > 0 {
			in.NbEquivGroups++
			in.TotalEquivCount += n
		}
	}
	for _, rev := range reverse {
		in.TotalBlur += rev.Blur
		if rev.Blur > 0 || policy == IncludeZeroBlur {
			in.NbCodes++
		}
	}
	return in
}
