// Package server exposes the analysis pipeline and saved reports over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/claimlens/internal/events"
	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/store"
)

// Analyzer runs one analysis
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.Report, error)
}

// Metrics observes served requests and exposes the scrape handler
type Metrics interface {
	ObserveHTTP(method, route string, code int, elapsed time.Duration)
	Handler() http.Handler
}

// Server holds the HTTP handlers' dependencies
type Server struct {
	analyzer Analyzer
	store    store.Store
	events   events.Publisher
	metrics  Metrics

	debug       bool
	corsOrigins []string
}

// Option configures a Server
type Option func(*Server)

// WithDebug returns raw error messages in 500 responses
func WithDebug(debug bool) Option {
	return func(s *Server) { s.debug = debug }
}

// WithCORS allows the given origins; "*" allows any
func WithCORS(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithMetrics records requests and serves GET /metrics
func WithMetrics(m Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a server; a nil publisher disables events
func New(analyzer Analyzer, st store.Store, pub events.Publisher, opts ...Option) *Server {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	s := &Server{analyzer: analyzer, store: st, events: pub}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router constructs a gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	if s.metrics != nil {
		r.Use(s.observe())
	}
	if len(s.corsOrigins) > 0 {
		r.Use(cors(s.corsOrigins))
	}

	s.registerAnalyzeRoutes(r)
	s.registerReportRoutes(r)
	s.registerHealthRoutes(r)
	return r
}

func (s *Server) registerHealthRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

// internalError writes a 500, hiding the message unless debug is on
func (s *Server) internalError(c *gin.Context, err error) {
	detail := "Internal error"
	if s.debug {
		detail = err.Error()
	}
	c.JSON(http.StatusInternalServerError, gin.H{"detail": detail})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"detail": msg})
}
