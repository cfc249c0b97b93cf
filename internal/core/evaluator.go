package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/nuvalign/internal/config"
	"github.com/agenthands/nuvalign/internal/core/catalog"
	"github.com/agenthands/nuvalign/internal/core/match"
	"github.com/agenthands/nuvalign/internal/core/metrics"
	"github.com/agenthands/nuvalign/internal/core/model"
	"github.com/agenthands/nuvalign/internal/core/selector"
	"github.com/agenthands/nuvalign/internal/core/subsumption"
	"github.com/agenthands/nuvalign/internal/ontology"
	"github.com/agenthands/nuvalign/internal/platform/logger"
)

var (
	ErrNotPrepared = errors.New("evaluator not prepared")
	ErrUnknownMode = errors.New("unknown evaluation mode")
)

type Options struct {
	Sentinel int
	ZeroBlur metrics.ZeroBlurPolicy
	// Matchers is the number of shards the abstract bindings of one system
	// are split into. Values below 2 run sequentially.
	Matchers int
}

func DefaultOptions() Options {
	return Options{Sentinel: config.DefaultSentinel, ZeroBlur: metrics.ExcludeZeroBlur, Matchers: 1}
}

// OptionsFromConfig maps the [evaluation] and [concurrency] sections.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	policy, err := metrics.ParseZeroBlurPolicy(cfg.Evaluation.ZeroBlurPolicy)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Sentinel: cfg.Evaluation.Sentinel,
		ZeroBlur: policy,
		Matchers: cfg.Concurrency.Matchers,
	}, nil
}

// Observer is told about every finished or failed evaluation.
type Observer interface {
	Observe(ev *model.Evaluation, elapsed time.Duration)
	Failed(system string, mode model.Mode)
}

// Evaluator aligns code systems against the reference ontology. Prepare
// loads the shared catalog and subsumption index once; evaluations only
// read them, so any number may run concurrently.
type Evaluator struct {
	Facade        ontology.Facade
	Log           *logger.Logger
	Options       Options
	Observer      Observer
	UUIDGenerator func() string

	mu      sync.RWMutex
	catalog *catalog.Catalog
	index   *subsumption.Index
	version string
}

func NewEvaluator(facade ontology.Facade, log *logger.Logger, opts Options) *Evaluator {
	return &Evaluator{
		Facade:  facade,
		Log:     log,
		Options: opts,
		UUIDGenerator: func() string {
			return uuid.New().String()
		},
	}
}

// Prepare (re)loads the catalog, the valence index and the ontology version.
func (e *Evaluator) Prepare(ctx context.Context) error {
	cat, err := catalog.Load(ctx, e.Facade, e.Log)
	if err != nil {
		return err
	}
	ix, err := subsumption.Build(ctx, e.Facade, cat.Valences())
	if err != nil {
		return fmt.Errorf("failed to build valence index: %w", err)
	}
	version, err := e.Facade.Version(ctx)
	if err != nil && !errors.Is(err, ontology.ErrNotFound) {
		return err
	}

	e.mu.Lock()
	e.catalog, e.index, e.version = cat, ix, version
	e.mu.Unlock()

	e.Log.Info("evaluator prepared", "concepts", cat.Len(), "valences", ix.Len(), "version", version)
	return nil
}

func (e *Evaluator) Catalog() (*catalog.Catalog, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.catalog == nil {
		return nil, ErrNotPrepared
	}
	return e.catalog, nil
}

func (e *Evaluator) Version() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// Evaluate aligns one code system in one mode.
func (e *Evaluator) Evaluate(ctx context.Context, system string, mode model.Mode) (*model.Evaluation, error) {
	ev, elapsed, err := e.evaluate(ctx, system, mode)
	if e.Observer != nil {
		if err != nil {
			e.Observer.Failed(system, mode)
		} else {
			e.Observer.Observe(ev, elapsed)
		}
	}
	return ev, err
}

func (e *Evaluator) evaluate(ctx context.Context, system string, mode model.Mode) (*model.Evaluation, time.Duration, error) {
	if mode != model.ModeFull && mode != model.ModeGeneric {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	e.mu.RLock()
	cat, ix, version := e.catalog, e.index, e.version
	e.mu.RUnlock()
	if cat == nil {
		return nil, 0, ErrNotPrepared
	}

	start := time.Now()
	runID := e.UUIDGenerator()
	log := e.Log.With("run_id", runID, "system", system, "mode", string(mode))

	bindings, err := cat.LoadBindings(ctx, e.Facade, system, log)
	if err != nil {
		return nil, 0, err
	}

	eligible := cat.Concepts(mode.RestrictToAbstract())
	notations := make([]string, len(eligible))
	for i, c := range eligible {
		notations[i] = c.Notation
	}

	table := selector.New(notations, e.Options.Sentinel)
	if mode == model.ModeFull {
		for _, b := range bindings.Direct {
			if err := table.Offer(b.Code, b.Label, []string{b.Concept}); err != nil {
				return nil, 0, err
			}
		}
	}

	matcher := match.New(eligible, ix)
	if err := e.expand(ctx, table, matcher, cat, bindings.Abstract, notations); err != nil {
		return nil, 0, err
	}

	res := table.Finalize()
	in := metrics.Collect(notations, res.IsMapped, res.Reverse, bindings.EquivCounts, e.Options.ZeroBlur)

	ev := &model.Evaluation{
		RunID:    runID,
		System:   system,
		Mode:     mode,
		Version:  version,
		Sentinel: e.Options.Sentinel,
		Best:     make([]model.BestCode, 0, len(eligible)),
		Reverse:  res.Reverse,
		Metrics:  metrics.Compute(in),
	}
	for _, c := range eligible {
		ev.Best = append(ev.Best, model.BestCode{Concept: c, CandidateEntry: res.Entry(c.Notation)})
	}

	elapsed := time.Since(start)
	log.Info("evaluation finished",
		"concepts", ev.Metrics.NbConcepts,
		"unmapped", ev.Metrics.Unmapped,
		"codes", ev.Metrics.NbCodes,
		"duration", elapsed)
	return ev, elapsed, nil
}

// expand offers every abstract binding's may-set. With several matchers the
// bindings are sharded, each shard fills its own table and the tables are
// merged in shard order.
func (e *Evaluator) expand(ctx context.Context, table *selector.Table, matcher *match.Matcher,
	cat *catalog.Catalog, abstract []model.Binding, notations []string) error {

	offerAll := func(ctx context.Context, t *selector.Table, part []model.Binding) error {
		for _, b := range part {
			if err := ctx.Err(); err != nil {
				return err
			}
			rule, _ := cat.Get(b.Concept)
			m := matcher.Expand(b, rule)
			if err := t.Offer(m.Code, m.Label, m.May); err != nil {
				return err
			}
		}
		return nil
	}

	shards := e.Options.Matchers
	if shards < 2 || len(abstract) < 2 {
		return offerAll(ctx, table, abstract)
	}
	if shards > len(abstract) {
		shards = len(abstract)
	}

	tables := make([]*selector.Table, shards)
	g, gctx := errgroup.WithContext(ctx)
	size := (len(abstract) + shards - 1) / shards
	for i := 0; i < shards; i++ {
		lo, hi := i*size, min((i+1)*size, len(abstract))
		tables[i] = selector.New(notations, e.Options.Sentinel)
		t, part := tables[i], abstract[lo:hi]
		g.Go(func() error { return offerAll(gctx, t, part) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, t := range tables {
		if err := table.Merge(t); err != nil {
			return err
		}
	}
	return nil
}

// EvaluateAll runs every (system, mode) pair with at most limit in flight.
// An empty systems list evaluates every system the facade knows. Results
// come back in systems-major, modes-minor order; the first failure cancels
// the remaining runs.
func (e *Evaluator) EvaluateAll(ctx context.Context, systems []string, modes []model.Mode, limit int) ([]*model.Evaluation, error) {
	if len(systems) == 0 {
		var err error
		if systems, err = e.Facade.ListSystems(ctx); err != nil {
			return nil, fmt.Errorf("failed to list code systems: %w", err)
		}
	}
	if limit < 1 {
		limit = 1
	}

	results := make([]*model.Evaluation, len(systems)*len(modes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, system := range systems {
		for j, mode := range modes {
			idx, system, mode := i*len(modes)+j, system, mode
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				ev, err := e.Evaluate(gctx, system, mode)
				if err != nil {
					return fmt.Errorf("failed to evaluate %s (%s): %w", system, mode, err)
				}
				results[idx] = ev
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
