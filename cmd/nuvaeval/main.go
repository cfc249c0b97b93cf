package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/agenthands/nuvalign/internal/config"
	"github.com/agenthands/nuvalign/internal/core"
	"github.com/agenthands/nuvalign/internal/core/model"
	"github.com/agenthands/nuvalign/internal/driver"
	"github.com/agenthands/nuvalign/internal/mapping"
	"github.com/agenthands/nuvalign/internal/ontology"
	"github.com/agenthands/nuvalign/internal/platform/logger"
	"github.com/agenthands/nuvalign/internal/report"
	"github.com/agenthands/nuvalign/internal/telemetry"
)

type RunSummary struct {
	RunID        string   `json:"run_id"`
	System       string   `json:"system"`
	Mode         string   `json:"mode"`
	Concepts     int      `json:"concepts"`
	Unmapped     int      `json:"unmapped"`
	Codes        int      `json:"codes"`
	Completeness *float64 `json:"completeness"`
	Precision    *float64 `json:"precision"`
	Redundancy   *float64 `json:"redundancy"`
	Files        []string `json:"files"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nuvaeval",
		Short: "Evaluate how well code systems align with the NUVA vaccine ontology",
		Long: `nuvaeval matches the external codes of a classification system against
the NUVA reference concepts and writes, per system and mode, a best code
report, a reverse report and a metrics summary.

The ontology is read from Memgraph, or from a YAML snapshot with --snapshot.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "config/config.toml", "Path to the TOML configuration")
	rootCmd.PersistentFlags().String("snapshot", "", "Read the ontology from a YAML snapshot instead of Memgraph")
	rootCmd.PersistentFlags().String("log-mode", "", "Log mode: dev|prod (overrides config)")

	evaluateCmd := &cobra.Command{
		Use:   "evaluate [system...]",
		Short: "Evaluate code systems and write reports",
		RunE:  runEvaluate,
	}
	evaluateCmd.Flags().String("mapping", "", "Evaluate the bindings of a semicolon separated mapping file")
	evaluateCmd.Flags().String("mode", "", "Evaluation mode: full|generic|both (default: from config)")
	evaluateCmd.Flags().String("out", "", "Report directory (default: from config)")
	evaluateCmd.Flags().Bool("json", false, "Print machine-readable run summaries")
	evaluateCmd.Flags().String("metrics-out", "", "Write run metrics in Prometheus text format to this file")

	exportCmd := &cobra.Command{
		Use:   "export-mapping <system>",
		Short: "Export the bindings of a code system as a mapping file",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportMapping,
	}
	exportCmd.Flags().StringP("output", "o", "", "Output file (default: nuva_refcode_<system>.csv, - for stdout)")

	importCmd := &cobra.Command{
		Use:   "import <snapshot.yaml>",
		Short: "Load an ontology snapshot into Memgraph",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}

	rootCmd.AddCommand(evaluateCmd, exportCmd, importCmd)
	return rootCmd
}

type env struct {
	cfg    *config.Config
	log    *logger.Logger
	facade ontology.Facade
	close  func()
}

func setup(cmd *cobra.Command, needGraph bool) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if mode, _ := cmd.Flags().GetString("log-mode"); mode != "" {
		cfg.Log.Mode = mode
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	e := &env{cfg: cfg, log: log, close: log.Sync}

	snapshot, _ := cmd.Flags().GetString("snapshot")
	if snapshot != "" && !needGraph {
		s, err := ontology.LoadSnapshot(snapshot)
		if err != nil {
			return nil, err
		}
		e.facade = ontology.NewMemory(s)
		return e, nil
	}

	d, err := driver.NewMemgraphDriver(cfg.Memgraph, log)
	if err != nil {
		return nil, err
	}
	e.facade = ontology.NewMemgraph(d, log)
	e.close = func() {
		if err := d.Close(context.Background()); err != nil {
			log.Warn("failed to close memgraph driver", "error", err)
		}
		log.Sync()
	}
	return e, nil
}

func parseModes(flag string, fallback []string) ([]model.Mode, error) {
	names := fallback
	switch strings.ToLower(flag) {
	case "":
	case "both":
		names = []string{string(model.ModeFull), string(model.ModeGeneric)}
	default:
		names = []string{flag}
	}
	modes := make([]model.Mode, 0, len(names))
	for _, n := range names {
		m, err := model.ParseMode(n)
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer e.close()

	modeFlag, _ := cmd.Flags().GetString("mode")
	modes, err := parseModes(modeFlag, e.cfg.Evaluation.Modes)
	if err != nil {
		return err
	}
	outDir := e.cfg.Evaluation.OutputDir
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		outDir = out
	}

	systems := args
	if len(systems) == 0 {
		systems = e.cfg.Evaluation.Systems
	}
	facade := e.facade
	if path, _ := cmd.Flags().GetString("mapping"); path != "" {
		m, err := mapping.ReadFile(path)
		if err != nil {
			return err
		}
		facade = ontology.WithMapping(facade, m, e.log)
		if len(args) == 0 {
			systems = []string{m.System}
		}
	}

	opts, err := core.OptionsFromConfig(e.cfg)
	if err != nil {
		return err
	}
	ev := core.NewEvaluator(facade, e.log, opts)
	recorder := telemetry.NewRecorder()
	ev.Observer = recorder
	if err := ev.Prepare(cmd.Context()); err != nil {
		return err
	}

	start := time.Now()
	evs, err := ev.EvaluateAll(cmd.Context(), systems, modes, e.cfg.Concurrency.Systems)
	if err != nil {
		return err
	}

	writer := report.Writer{Dir: outDir}
	summaries := make([]RunSummary, 0, len(evs))
	for _, res := range evs {
		files, err := writer.Write(res)
		if err != nil {
			return err
		}
		summaries = append(summaries, summarize(res, files))
	}
	e.log.Info("evaluation run complete", "evaluations", len(evs), "duration", time.Since(start))

	if path, _ := cmd.Flags().GetString("metrics-out"); path != "" {
		if err := recorder.WriteTextfile(path); err != nil {
			return err
		}
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	return printSummaries(cmd.OutOrStdout(), summaries, asJSON)
}

func summarize(ev *model.Evaluation, files []string) RunSummary {
	value := func(m model.Measure) *float64 {
		if !m.Defined {
			return nil
		}
		v := m.Value
		return &v
	}
	return RunSummary{
		RunID:        ev.RunID,
		System:       ev.System,
		Mode:         string(ev.Mode),
		Concepts:     ev.Metrics.NbConcepts,
		Unmapped:     ev.Metrics.Unmapped,
		Codes:        ev.Metrics.NbCodes,
		Completeness: value(ev.Metrics.Completeness),
		Precision:    value(ev.Metrics.Precision),
		Redundancy:   value(ev.Metrics.Redundancy),
		Files:        files,
	}
}

func printSummaries(w io.Writer, summaries []RunSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	for _, s := range summaries {
		completeness := "undefined"
		if s.Completeness != nil {
			completeness = fmt.Sprintf("%.1f%%", *s.Completeness*100)
		}
		fmt.Fprintf(w, "%s %-7s concepts=%d unmapped=%d codes=%d completeness=%s\n",
			s.System, s.Mode, s.Concepts, s.Unmapped, s.Codes, completeness)
		for _, f := range s.Files {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
	return nil
}

func runExportMapping(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer e.close()

	system := args[0]
	ev := core.NewEvaluator(e.facade, e.log, core.DefaultOptions())
	if err := ev.Prepare(cmd.Context()); err != nil {
		return err
	}
	cat, err := ev.Catalog()
	if err != nil {
		return err
	}
	bindings, err := cat.LoadBindings(cmd.Context(), e.facade, system, e.log)
	if err != nil {
		return err
	}
	all := append(append([]model.Binding(nil), bindings.Direct...), bindings.Abstract...)
	sort.Slice(all, func(i, j int) bool { return all[i].Code.Less(all[j].Code) })

	output, _ := cmd.Flags().GetString("output")
	if output == "-" {
		return mapping.Write(cmd.OutOrStdout(), system, all)
	}
	if output == "" {
		output = filepath.Join(e.cfg.Evaluation.OutputDir, "nuva_refcode_"+system+".csv")
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	if err := mapping.Write(f, system, all); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d bindings of %s to %s\n", len(all), system, output)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	s, err := ontology.LoadSnapshot(args[0])
	if err != nil {
		return err
	}
	e, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer e.close()

	g := e.facade.(*ontology.Memgraph)
	if err := g.BuildIndices(cmd.Context()); err != nil {
		return err
	}
	if err := g.Import(cmd.Context(), s); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d concepts and %d codes (version %s)\n",
		len(s.Concepts), len(s.Codes), s.Version)
	return nil
}
