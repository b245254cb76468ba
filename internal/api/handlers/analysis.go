package handlers

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bmrs-report/internal/analysis"
	"bmrs-report/internal/api/models"
	"bmrs-report/internal/config"
	"bmrs-report/internal/data"
)

// AnalysisHandler runs the imbalance pipeline and keeps completed results in
// memory so the dashboard can fetch series and reports by id. Nothing is
// persisted; results live for the lifetime of the process.
type AnalysisHandler struct {
	cfg *config.Config

	mu      sync.RWMutex
	results map[string]*analysis.Result

	// newFetcher is swapped out in tests.
	newFetcher func(config.ElexonConfig) analysis.Fetcher
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(cfg *config.Config) *AnalysisHandler {
	return &AnalysisHandler{
		cfg:     cfg,
		results: make(map[string]*analysis.Result),
		newFetcher: func(ecfg config.ElexonConfig) analysis.Fetcher {
			return data.NewElexonClient(ecfg)
		},
	}
}

// RunAnalysis handles POST /api/v1/analysis
func (h *AnalysisHandler) RunAnalysis(c *gin.Context) {
	var req models.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	ecfg := h.cfg.Elexon
	ecfg.APIKey = req.APIKey
	if req.BaseURL != "" {
		ecfg.BaseURL = req.BaseURL
	}

	result, err := analysis.Run(c.Request.Context(), h.newFetcher(ecfg), analysis.Options{
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Currency:     h.cfg.Report.Currency,
		MaxRangeDays: h.cfg.Report.MaxRangeDays,
	})
	if err != nil {
		h.writeRunError(c, err)
		return
	}

	id := uuid.NewString()
	h.mu.Lock()
	h.results[id] = result
	h.mu.Unlock()

	c.JSON(http.StatusOK, models.AnalysisResponse{
		ID:           id,
		Status:       "completed",
		StartDate:    result.StartDate,
		EndDate:      result.EndDate,
		Daily:        result.Daily,
		Peak:         result.Peak,
		RangeSummary: result.RangeSummary,
		Quality:      result.Quality,
		Warnings:     result.Warnings,
	})
}

// GetSeries handles GET /api/v1/analysis/:id/series
func (h *AnalysisHandler) GetSeries(c *gin.Context) {
	result, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.SeriesResponse{
		ID:          c.Param("id"),
		Prices:      result.Prices,
		Volumes:     result.Volumes,
		HourlyStats: result.HourlyStats,
	})
}

// GetReport handles GET /api/v1/analysis/:id/report
func (h *AnalysisHandler) GetReport(c *gin.Context) {
	result, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.ReportResponse{
		ID:           c.Param("id"),
		PeakReport:   result.PeakReport,
		DailyReports: result.DailyReports,
		RangeSummary: result.RangeSummary,
	})
}

func (h *AnalysisHandler) lookup(c *gin.Context) (*analysis.Result, bool) {
	id := c.Param("id")
	h.mu.RLock()
	result, ok := h.results[id]
	h.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "ANALYSIS_NOT_FOUND",
				Message: "No analysis with id " + id,
			},
		})
		return nil, false
	}
	return result, true
}

// writeRunError maps pipeline failures onto HTTP statuses. Elexon auth and
// rate-limit failures pass their status through; everything else from the
// API becomes a fetch error, and non-API errors are treated as bad input
// (the pipeline validates before fetching).
func (h *AnalysisHandler) writeRunError(c *gin.Context, err error) {
	var apiErr *data.ElexonError
	if errors.As(err, &apiErr) {
		status := http.StatusBadGateway
		if apiErr.AuthFailure() {
			status = http.StatusUnauthorized
		} else if apiErr.StatusCode == http.StatusTooManyRequests {
			status = http.StatusTooManyRequests
		}
		c.JSON(status, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    apiErr.Code,
				Message: err.Error(),
				Details: map[string]interface{}{
					"status_code": apiErr.StatusCode,
					"retry_after": apiErr.RetryAfter,
				},
			},
		})
		return
	}

	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "ANALYSIS_ERROR",
			Message: err.Error(),
		},
	})
}
