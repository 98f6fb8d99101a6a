package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/pipeline"
	"github.com/ppiankov/claimlens/internal/store"
	"github.com/ppiankov/claimlens/internal/video"
)

type analyzeRequest struct {
	URL       string `json:"url" binding:"required"`
	Locale    string `json:"locale" binding:"omitempty,max=16"`
	MaxClaims int    `json:"maxClaims" binding:"omitempty,min=1,max=50"`
	Refresh   bool   `json:"refresh"`
}

func (s *Server) registerAnalyzeRoutes(r *gin.Engine) {
	r.POST("/analyze", s.handleAnalyze)
}

// handleAnalyze returns the stored report for the video unless refresh is set,
// otherwise runs the pipeline and saves the result. The saved event is only
// published when the save inserted a new record.
func (s *Server) handleAnalyze(c *gin.Context) {
	start := time.Now()

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	if !req.Refresh {
		if id, err := video.ResolveID(req.URL); err == nil {
			rec, err := s.store.LatestByVideoID(ctx, id)
			switch {
			case err == nil:
				report := rec.WithID()
				report.Meta.Cached = true
				report.Meta.TookMs = time.Since(start).Milliseconds()
				c.JSON(http.StatusOK, report)
				return
			case !errors.Is(err, store.ErrNotFound):
				slog.Warn("[Server] saved report lookup failed", "video", id, "error", err)
			}
		}
	}

	report, err := s.analyzer.Analyze(ctx, model.AnalysisRequest{
		URL:       req.URL,
		Locale:    req.Locale,
		MaxClaims: req.MaxClaims,
		Refresh:   req.Refresh,
	})
	if err != nil {
		var inputErr *pipeline.ClientInputError
		if errors.As(err, &inputErr) {
			badRequest(c, inputErr.Message)
			return
		}
		slog.Error("[Server] analyze failed", "url", req.URL, "error", err)
		s.internalError(c, err)
		return
	}

	id, created, err := s.store.Save(ctx, *report)
	if err != nil {
		slog.Error("[Server] save report failed", "video", report.Video.ID, "error", err)
		c.JSON(http.StatusOK, report)
		return
	}
	report.ReportID = id

	if !created {
		slog.Debug("[Server] report already stored", "report", id, "video", report.Video.ID)
	} else if err := s.events.ReportSaved(ctx, id, *report); err != nil {
		slog.Warn("[Server] publish report event failed", "report", id, "error", err)
	}

	c.JSON(http.StatusOK, report)
}
