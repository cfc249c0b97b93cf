// Package mapping reads and writes the semicolon separated files that pair
// external codes with reference concepts.
//
// The first header column names the code system and holds code cells such
// as "CVX-49"; the NUVA column holds reference concept notations.
package mapping

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agenthands/nuvalign/internal/core/model"
)

const ReferenceColumn = "NUVA"

var ErrMissingColumn = errors.New("missing column")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Row struct {
	Code    string // notation within the system
	Concept string
	Line    int
}

type Mapping struct {
	System string
	Rows   []Row
}

func ReadFile(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mapping file '%s': %w", path, err)
	}
	defer f.Close()

	m, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file '%s': %w", path, err)
	}
	return m, nil
}

func Read(r io.Reader) (*Mapping, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty mapping file", ErrMissingColumn)
	}
	if err != nil {
		return nil, err
	}

	system := strings.TrimSpace(header[0])
	if system == "" {
		return nil, fmt.Errorf("%w: first column must name the code system", ErrMissingColumn)
	}
	refIdx := -1
	for i, h := range header {
		if strings.TrimSpace(h) == ReferenceColumn {
			refIdx = i
			break
		}
	}
	if refIdx <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ReferenceColumn)
	}

	m := &Mapping{System: system}
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		if len(rec) <= refIdx {
			return nil, fmt.Errorf("line %d: expected at least %d fields, got %d", line, refIdx+1, len(rec))
		}

		code := CodeNotation(system, rec[0])
		concept := strings.TrimSpace(rec[refIdx])
		if code == "" && concept == "" {
			continue
		}
		if code == "" || concept == "" {
			return nil, fmt.Errorf("line %d: code and %s must both be set", line, ReferenceColumn)
		}
		m.Rows = append(m.Rows, Row{Code: code, Concept: concept, Line: line})
	}
	return m, nil
}

// CodeNotation strips the "SYSTEM-" prefix from a code cell.
func CodeNotation(system, cell string) string {
	cell = strings.TrimSpace(cell)
	return strings.TrimPrefix(cell, system+"-")
}

// Write exports bindings as SYSTEM;NUVA;Label rows.
func Write(w io.Writer, system string, bindings []model.Binding) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'

	if err := writer.Write([]string{system, ReferenceColumn, "Label"}); err != nil {
		return err
	}
	for _, b := range bindings {
		id := model.CodeID{System: system, Notation: b.Code.Notation}
		if err := writer.Write([]string{id.String(), b.Concept, b.Label}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
