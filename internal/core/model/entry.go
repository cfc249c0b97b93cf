package model

// CandidateEntry is the best-code state of one reference concept.
type CandidateEntry struct {
	Cardinality int      `json:"cardinality"`
	Codes       []CodeID `json:"codes"`
}

// BestCode is a CandidateEntry joined with its concept, as reported.
type BestCode struct {
	Concept ReferenceConcept `json:"concept"`
	CandidateEntry
}

// ReverseEntry describes what one external code can represent.
type ReverseEntry struct {
	Code        CodeID   `json:"code"`
	Label       string   `json:"label"`
	May         []string `json:"may"`
	Cardinality int      `json:"cardinality"`
	Blur        int      `json:"blur"`
	Best        []string `json:"best"`
}
