package telemetry

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/nuvalign/internal/core/model"
)

func evaluation(completeness model.Measure) *model.Evaluation {
	return &model.Evaluation{
		System: "CVX",
		Mode:   model.ModeGeneric,
		Metrics: model.Metrics{
			NbConcepts:   20,
			Unmapped:     1,
			NbCodes:      5,
			Completeness: completeness,
			Precision:    model.Defined(0.8),
			AverageBlur:  model.Defined(1.25),
			Redundancy:   model.Defined(1.5),
		},
	}
}

func TestObserve(t *testing.T) {
	r := NewRecorder()
	r.Observe(evaluation(model.Defined(0.95)), 20*time.Millisecond)
	r.Observe(evaluation(model.Defined(0.95)), 30*time.Millisecond)

	assert.Equal(t, 0.95, testutil.ToFloat64(r.completeness.WithLabelValues("CVX", "generic")))
	assert.Equal(t, 0.8, testutil.ToFloat64(r.precision.WithLabelValues("CVX", "generic")))
	assert.Equal(t, 20.0, testutil.ToFloat64(r.concepts.WithLabelValues("CVX", "generic")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.runs.WithLabelValues("CVX", "generic")))

	r.Observe(evaluation(model.Undefined), time.Millisecond)
	assert.Equal(t, 0, testutil.CollectAndCount(r.completeness))

	r.Failed("ATC", model.ModeFull)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("ATC", "full")))
}

func TestHandler(t *testing.T) {
	r := NewRecorder()
	r.Observe(evaluation(model.Defined(0.5)), time.Second)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `nuvalign_alignment_completeness_ratio{mode="generic",system="CVX"} 0.5`))
	assert.Contains(t, body, "nuvalign_evaluations_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.Observe(evaluation(model.Defined(0.5)), time.Second)

	path := filepath.Join(t.TempDir(), "metrics", "nuvalign.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `nuvalign_evaluations_total{mode="generic",system="CVX"} 1`)
}
