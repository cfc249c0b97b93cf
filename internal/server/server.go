package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/nuvalign/internal/config"
	"github.com/agenthands/nuvalign/internal/core"
	"github.com/agenthands/nuvalign/internal/core/model"
	"github.com/agenthands/nuvalign/internal/driver"
	"github.com/agenthands/nuvalign/internal/ontology"
	"github.com/agenthands/nuvalign/internal/platform/logger"
	"github.com/agenthands/nuvalign/internal/report"
	"github.com/agenthands/nuvalign/internal/telemetry"
)

type Server struct {
	Evaluator *core.Evaluator
	Recorder  *telemetry.Recorder
	// Reports, when set, receives the files of every evaluation that asks
	// for them.
	Reports *report.Writer
	Log     *logger.Logger
}

func New(ev *core.Evaluator, rec *telemetry.Recorder, log *logger.Logger) *Server {
	ev.Observer = rec
	return &Server{Evaluator: ev, Recorder: rec, Log: log}
}

// NewFromConfig connects to Memgraph, prepares an evaluator and returns the
// server with a function releasing the connection.
func NewFromConfig(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Server, func(), error) {
	opts, err := core.OptionsFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	d, err := driver.NewMemgraphDriver(cfg.Memgraph, log)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := d.Close(context.Background()); err != nil {
			log.Warn("failed to close memgraph driver", "error", err)
		}
	}

	ev := core.NewEvaluator(ontology.NewMemgraph(d, log), log, opts)
	if err := ev.Prepare(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to prepare evaluator: %w", err)
	}

	s := New(ev, telemetry.NewRecorder(), log)
	if cfg.Evaluation.OutputDir != "" {
		s.Reports = &report.Writer{Dir: cfg.Evaluation.OutputDir}
	}
	return s, closeFn, nil
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.Health)
	r.GET("/systems", s.ListSystems)
	r.GET("/concepts", s.ListConcepts)
	r.POST("/evaluate", s.Evaluate)
	r.POST("/reload", s.Reload)
	r.GET("/metrics", gin.WrapH(s.Recorder.Handler()))

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.Evaluator.Version()})
}

func (s *Server) ListSystems(c *gin.Context) {
	systems, err := s.Evaluator.Facade.ListSystems(c.Request.Context())
	if err != nil {
		s.Log.Error("failed to list code systems", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list code systems"})
		return
	}
	if systems == nil {
		systems = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"systems": systems})
}

func (s *Server) ListConcepts(c *gin.Context) {
	abstract := false
	if v := c.Query("abstract"); v != "" {
		var err error
		if abstract, err = strconv.ParseBool(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "abstract must be true or false"})
			return
		}
	}

	cat, err := s.Evaluator.Catalog()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"concepts": cat.Concepts(abstract)})
}

type EvaluateRequest struct {
	System       string `json:"system" binding:"required"`
	Mode         string `json:"mode"`
	WriteReports bool   `json:"write_reports"`
}

type EvaluateResponse struct {
	*model.Evaluation
	Files []string `json:"files,omitempty"`
}

func (s *Server) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	mode := model.ModeFull
	if req.Mode != "" {
		var err error
		if mode, err = model.ParseMode(req.Mode); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if req.WriteReports && s.Reports == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "report output is not configured"})
		return
	}

	ev, err := s.Evaluator.Evaluate(c.Request.Context(), req.System, mode)
	if err != nil {
		s.Log.Error("failed to evaluate", "system", req.System, "mode", string(mode), "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrNotPrepared) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": "Failed to evaluate"})
		return
	}

	resp := EvaluateResponse{Evaluation: ev}
	if req.WriteReports {
		files, err := s.Reports.Write(ev)
		if err != nil {
			s.Log.Error("failed to write reports", "run_id", ev.RunID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write reports"})
			return
		}
		resp.Files = files
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) Reload(c *gin.Context) {
	if err := s.Evaluator.Prepare(c.Request.Context()); err != nil {
		s.Log.Error("failed to reload ontology", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload ontology"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "version": s.Evaluator.Version()})
}
