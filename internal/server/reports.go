package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/claimlens/internal/store"
)

func (s *Server) registerReportRoutes(r *gin.Engine) {
	reports := r.Group("/saved-reports")
	reports.GET("", s.handleListReports)
	reports.GET("/:id", s.handleGetReport)
	reports.DELETE("/:id", s.handleDeleteReport)
}

func (s *Server) handleListReports(c *gin.Context) {
	limit, err := intQuery(c, "limit", store.DefaultPageSize)
	if err != nil {
		badRequest(c, "limit must be an integer")
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		badRequest(c, "offset must be an integer")
		return
	}
	limit, offset = store.ClampPage(max(limit, 1), offset)

	page, err := s.store.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleGetReport(c *gin.Context) {
	rec, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Report not found"})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec.WithID())
}

func (s *Server) handleDeleteReport(c *gin.Context) {
	err := s.store.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Report not found"})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
