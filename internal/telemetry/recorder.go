// Package telemetry exposes the outcome of alignment runs as Prometheus
// gauges, one series per code system and mode.
package telemetry

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agenthands/nuvalign/internal/core/model"
)

const namespace = "nuvalign"

var labels = []string{"system", "mode"}

type Recorder struct {
	registry *prometheus.Registry

	concepts     *prometheus.GaugeVec
	unmapped     *prometheus.GaugeVec
	codes        *prometheus.GaugeVec
	completeness *prometheus.GaugeVec
	precision    *prometheus.GaugeVec
	averageBlur  *prometheus.GaugeVec
	redundancy   *prometheus.GaugeVec
	runs         *prometheus.CounterVec
	failures     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewRecorder registers its collectors on a private registry.
func NewRecorder() *Recorder {
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "alignment", Name: name, Help: help,
		}, labels)
	}

	r := &Recorder{
		registry:     prometheus.NewRegistry(),
		concepts:     gauge("concepts", "Reference concepts evaluated."),
		unmapped:     gauge("unmapped_concepts", "Reference concepts without any equivalent code."),
		codes:        gauge("aligned_codes", "External codes counted as aligned."),
		completeness: gauge("completeness_ratio", "Share of concepts with at least one equivalent code."),
		precision:    gauge("precision_ratio", "Aligned codes divided by total blur."),
		averageBlur:  gauge("average_blur", "Inverse of precision."),
		redundancy:   gauge("redundancy", "Average number of exact matches per matched concept."),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "evaluations_total", Help: "Completed evaluations.",
		}, labels),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "evaluation_failures_total", Help: "Failed evaluations.",
		}, labels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "evaluation_duration_seconds", Help: "Evaluation wall time.",
			Buckets: prometheus.DefBuckets,
		}, labels),
	}

	r.registry.MustRegister(
		r.concepts, r.unmapped, r.codes,
		r.completeness, r.precision, r.averageBlur, r.redundancy,
		r.runs, r.failures, r.duration,
		collectors.NewGoCollector(),
	)
	return r
}

// Observe records a finished evaluation. Undefined measures remove their
// series rather than report a misleading value.
func (r *Recorder) Observe(ev *model.Evaluation, elapsed time.Duration) {
	lv := []string{ev.System, string(ev.Mode)}
	m := ev.Metrics

	r.concepts.WithLabelValues(lv...).Set(float64(m.NbConcepts))
	r.unmapped.WithLabelValues(lv...).Set(float64(m.Unmapped))
	r.codes.WithLabelValues(lv...).Set(float64(m.NbCodes))
	setMeasure(r.completeness, lv, m.Completeness)
	setMeasure(r.precision, lv, m.Precision)
	setMeasure(r.averageBlur, lv, m.AverageBlur)
	setMeasure(r.redundancy, lv, m.Redundancy)

	r.runs.WithLabelValues(lv...).Inc()
	r.duration.WithLabelValues(lv...).Observe(elapsed.Seconds())
}

func (r *Recorder) Failed(system string, mode model.Mode) {
	r.failures.WithLabelValues(system, string(mode)).Inc()
}

func setMeasure(g *prometheus.GaugeVec, lv []string, m model.Measure) {
	if !m.Defined {
		g.DeleteLabelValues(lv...)
		return
	}
	g.WithLabelValues(lv...).Set(m.Value)
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry in the text exposition format, for
// one-shot runs that exit before anything could scrape them.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
