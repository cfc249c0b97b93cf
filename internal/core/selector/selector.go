// Package selector keeps, for every reference concept, the external codes
// that represent it with the least ambiguity.
package selector

import (
	"errors"
	"fmt"
	"sort"

	"github.com/agenthands/nuvalign/internal/core/model"
)

var (
	ErrDuplicateCode    = errors.New("external code offered twice")
	ErrSentinelMismatch = errors.New("tables use different sentinels")
)

// candidate is unmapped until the first offer reaches it; the sentinel is
// only the cardinality reported for unmapped concepts.
type candidate struct {
	cardinality int
	mapped      bool
	codes       map[model.CodeID]bool
}

type offer struct {
	label string
	may   []string
}

// Table is the per-run state of the selector. It is not safe for
// concurrent use; parallel producers fill separate tables and Merge them.
type Table struct {
	sentinel   int
	candidates map[string]*candidate
	offers     map[model.CodeID]offer
}

// New tracks the given concepts, all starting unmapped at sentinel.
func New(concepts []string, sentinel int) *Table {
	t := &Table{
		sentinel:   sentinel,
		candidates: make(map[string]*candidate, len(concepts)),
		offers:     make(map[model.CodeID]offer),
	}
	for _, c := range concepts {
		t.candidates[c] = &candidate{cardinality: sentinel, codes: map[model.CodeID]bool{}}
	}
	return t
}

func (t *Table) Sentinel() int {
	return t.sentinel
}

// Offer feeds one external code with its may-set. A strictly smaller
// may-set displaces the current best codes of a concept, an equal one joins
// them, a larger one is ignored. Concepts the table does not track are kept
// in the code's may-set but never selected. Codes with an empty may-set
// represent nothing and are dropped.
func (t *Table) Offer(code model.CodeID, label string, may []string) error {
	if len(may) == 0 {
		return nil
	}
	if _, dup := t.offers[code]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateCode, code)
	}

	seen := make(map[string]bool, len(may))
	mayCopy := make([]string, 0, len(may))
	for _, m := range may {
		if !seen[m] {
			seen[m] = true
			mayCopy = append(mayCopy, m)
		}
	}
	t.offers[code] = offer{label: label, may: mayCopy}

	k := len(mayCopy)
	for _, m := range mayCopy {
		c, ok := t.candidates[m]
		if !ok {
			continue
		}
		switch {
		case !c.mapped || k < c.cardinality:
			c.cardinality = k
			c.mapped = true
			c.codes = map[model.CodeID]bool{code: true}
		case k == c.cardinality:
			c.codes[code] = true
		}
	}
	return nil
}

// Merge folds other into t. The rule is the same arg-min with ties as
// Offer, so merging is associative and commutative.
func (t *Table) Merge(other *Table) error {
	if t.sentinel != other.sentinel {
		return ErrSentinelMismatch
	}
	for code := range other.offers {
		if _, dup := t.offers[code]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateCode, code)
		}
	}

	for code, o := range other.offers {
		t.offers[code] = o
	}
	for concept, oc := range other.candidates {
		c, ok := t.candidates[concept]
		if !ok {
			c = &candidate{cardinality: t.sentinel, codes: map[model.CodeID]bool{}}
			t.candidates[concept] = c
		}
		if !oc.mapped {
			continue
		}
		switch {
		case !c.mapped || oc.cardinality < c.cardinality:
			c.cardinality = oc.cardinality
			c.mapped = true
			c.codes = make(map[model.CodeID]bool, len(oc.codes))
			for code := range oc.codes {
				c.codes[code] = true
			}
		case oc.cardinality == c.cardinality:
			for code := range oc.codes {
				c.codes[code] = true
			}
		}
	}
	return nil
}

// Result is the finalized view of a table.
type Result struct {
	Sentinel int
	Entries  map[string]model.CandidateEntry
	Mapped   map[string]bool
	Reverse  []model.ReverseEntry
}

// Entry returns the candidate entry of a concept, unmapped if untracked.
func (r Result) Entry(concept string) model.CandidateEntry {
	if e, ok := r.Entries[concept]; ok {
		return e
	}
	return model.CandidateEntry{Cardinality: r.Sentinel}
}

func (r Result) IsMapped(concept string) bool {
	return r.Mapped[concept]
}

// Finalize builds the candidate entries and the reverse index: each code
// gains one blur and one best-for entry per mapped concept it is best for.
// The table is left untouched and the output is sorted.
func (t *Table) Finalize() Result {
	res := Result{
		Sentinel: t.sentinel,
		Entries:  make(map[string]model.CandidateEntry, len(t.candidates)),
		Mapped:   make(map[string]bool, len(t.candidates)),
	}

	reverse := make(map[model.CodeID]*model.ReverseEntry, len(t.offers))
	for code, o := range t.offers {
		may := append([]string(nil), o.may...)
		sort.Strings(may)
		reverse[code] = &model.ReverseEntry{
			Code:        code,
			Label:       o.label,
			May:         may,
			Cardinality: len(may),
			Best:        []string{},
		}
	}

	for concept, c := range t.candidates {
		codes := make([]model.CodeID, 0, len(c.codes))
		for code := range c.codes {
			codes = append(codes, code)
		}
		sort.Slice(codes, func(i, j int) bool { return codes[i].Less(codes[j]) })
		res.Entries[concept] = model.CandidateEntry{Cardinality: c.cardinality, Codes: codes}

		if !c.mapped {
			continue
		}
		res.Mapped[concept] = true
		for _, code := range codes {
			rev := reverse[code]
			rev.Blur++
			rev.Best = append(rev.Best, concept)
		}
	}

	res.Reverse = make([]model.ReverseEntry, 0, len(reverse))
	for _, rev := range reverse {
		sort.Strings(rev.Best)
		res.Reverse = append(res.Reverse, *rev)
	}
	sort.Slice(res.Reverse, func(i, j int) bool { return res.Reverse[i].Code.Less(res.Reverse[j].Code) })

	return res
}
