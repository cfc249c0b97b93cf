// Package match finds the reference concepts an abstract external code can
// stand for.
//
// A candidate concept is equivalent to the rule concept the code is bound to
// when their valence sets cover each other under subsumption: every rule
// valence has a candidate valence at or below it (Covers), and every
// candidate valence sits at or below some rule valence (Bounded). A rule
// valence may therefore cover a more specific candidate valence.
package match

import (
	"github.com/agenthands/nuvalign/internal/core/model"
)

// Subsumer reports whether b is a or below a.
type Subsumer interface {
	Subsumes(a, b string) bool
}

// Covers reports whether no rule valence is missing from candidate.
func Covers(rule, candidate []string, ix Subsumer) bool {
	for _, rv := range rule {
		if !anyBelow(rv, candidate, ix) {
			return false
		}
	}
	return true
}

// Bounded reports whether no candidate valence exceeds what rule requires.
func Bounded(rule, candidate []string, ix Subsumer) bool {
	for _, cv := range candidate {
		found := false
		for _, rv := range rule {
			if ix.Subsumes(rv, cv) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func Equivalent(rule, candidate []string, ix Subsumer) bool {
	return Covers(rule, candidate, ix) && Bounded(rule, candidate, ix)
}

func anyBelow(rv string, candidate []string, ix Subsumer) bool {
	for _, cv := range candidate {
		if ix.Subsumes(rv, cv) {
			return true
		}
	}
	return false
}

// Match is the may-set of one abstract external code.
type Match struct {
	Code  model.CodeID
	Label string
	Rule  string
	May   []string
}

func (m Match) Cardinality() int {
	return len(m.May)
}

// Matcher evaluates rules against a fixed candidate list. It only reads its
// inputs, so one Matcher can serve concurrent callers.
type Matcher struct {
	index      Subsumer
	candidates []model.ReferenceConcept
}

// New builds a matcher over candidates, which the caller has already
// restricted to abstract concepts in generic mode.
func New(candidates []model.ReferenceConcept, ix Subsumer) *Matcher {
	return &Matcher{index: ix, candidates: candidates}
}

// MayCodes returns, in candidate order, the notations of every candidate
// equivalent to rule.
func (m *Matcher) MayCodes(rule model.ReferenceConcept) []string {
	var may []string
	for _, c := range m.candidates {
		if Equivalent(rule.Valences, c.Valences, m.index) {
			may = append(may, c.Notation)
		}
	}
	return may
}

// Expand matches one abstract binding against its rule concept.
func (m *Matcher) Expand(b model.Binding, rule model.ReferenceConcept) Match {
	return Match{
		Code:  b.Code,
		Label: b.Label,
		Rule:  rule.Notation,
		May:   m.MayCodes(rule),
	}
}
