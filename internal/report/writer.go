package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agenthands/nuvalign/internal/core/model"
)

// Writer lays out the reports of each system under Dir/<system>/.
type Writer struct {
	Dir string
}

// Paths returns the best, reverse and metrics file paths of an evaluation.
func (w Writer) Paths(system string, mode model.Mode) (best, reverse, metrics string) {
	dir := filepath.Join(w.Dir, system)
	name := system + mode.Suffix()
	return filepath.Join(dir, "nuva_best_"+name+".csv"),
		filepath.Join(dir, "nuva_reverse_"+name+".csv"),
		filepath.Join(dir, "nuva_metrics_"+name+".txt")
}

// Write renders all three reports and returns the files written.
func (w Writer) Write(ev *model.Evaluation) ([]string, error) {
	best, reverse, metrics := w.Paths(ev.System, ev.Mode)
	if err := os.MkdirAll(filepath.Dir(best), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	files := []struct {
		path  string
		write func(io.Writer, *model.Evaluation) error
	}{
		{best, WriteBest},
		{reverse, WriteReverse},
		{metrics, WriteMetrics},
	}
	written := make([]string, 0, len(files))
	for _, f := range files {
		if err := writeFile(f.path, ev, f.write); err != nil {
			return written, err
		}
		written = append(written, f.path)
	}
	return written, nil
}

// writeFile renders into a temporary file and renames it so readers never
// see a partial report.
func writeFile(path string, ev *model.Evaluation, write func(io.Writer, *model.Evaluation) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp, ev); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
