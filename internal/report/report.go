// Package report renders evaluations in the file formats downstream
// spreadsheets already consume: two semicolon separated tables and a short
// metrics text per code system and mode.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/agenthands/nuvalign/internal/core/model"
)

const undefined = "undefined"

func newCSV(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	cw.UseCRLF = true
	return cw
}

// WriteBest writes one row per evaluated concept.
func WriteBest(w io.Writer, ev *model.Evaluation) error {
	cw := newCSV(w)
	if err := cw.Write([]string{"NUVA", "Label", "IsAbstract", "Cardinality", "Best " + ev.System}); err != nil {
		return err
	}
	for _, b := range ev.Best {
		codes := make([]string, len(b.Codes))
		for i, c := range b.Codes {
			codes[i] = c.String()
		}
		row := []string{
			b.Concept.Notation,
			b.Concept.Label,
			strconv.FormatBool(b.Concept.IsAbstract()),
			strconv.Itoa(b.Cardinality),
			FormatList(codes),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReverse writes one row per aligned external code.
func WriteReverse(w io.Writer, ev *model.Evaluation) error {
	cw := newCSV(w)
	if err := cw.Write([]string{ev.System, "Label", "Cardinality", "May code", "Blur", "Best code for"}); err != nil {
		return err
	}
	for _, r := range ev.Reverse {
		row := []string{
			r.Code.String(),
			r.Label,
			strconv.Itoa(r.Cardinality),
			FormatList(r.May),
			strconv.Itoa(r.Blur),
			FormatList(r.Best),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteMetrics(w io.Writer, ev *model.Evaluation) error {
	m := ev.Metrics
	version := ev.Version
	if version == "" {
		version = "unknown"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "NUVA version :%s\n\n", version)
	fmt.Fprintf(&b, "Number of NUVA concepts : %d\n", m.NbConcepts)
	fmt.Fprintf(&b, "Number of unmapped concepts: %d\n", m.Unmapped)
	fmt.Fprintf(&b, "Completeness: %s\n\n", percent(m.Completeness))
	fmt.Fprintf(&b, "Number of aligned codes: %d\n", m.NbCodes)
	fmt.Fprintf(&b, "Average blur of aligned codes %s\n", fixed1(m.AverageBlur))
	fmt.Fprintf(&b, "Precision: %s\n", percent(m.Precision))
	fmt.Fprintf(&b, "Redundancy: %s\n", significant3(m.Redundancy))

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatList renders items as a bracketed, quoted list: ['A', 'B'].
func FormatList(items []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, s := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(s))
	}
	b.WriteByte(']')
	return b.String()
}

func quote(s string) string {
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func percent(m model.Measure) string {
	if !m.Defined {
		return undefined
	}
	return strconv.FormatFloat(m.Value*100, 'f', 1, 64) + "%"
}

func fixed1(m model.Measure) string {
	if !m.Defined {
		return undefined
	}
	return strconv.FormatFloat(m.Value, 'f', 1, 64)
}

// significant3 keeps three significant digits and always shows a decimal
// point or exponent for non-zero values, e.g. 1.0, 1.23, 12.3.
func significant3(m model.Measure) string {
	if !m.Defined {
		return undefined
	}
	if m.Value == 0 {
		return "0"
	}
	s := strconv.FormatFloat(m.Value, 'g', 3, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
