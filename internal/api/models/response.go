package models

import (
	"bmrs-report/internal/analysis"
	"bmrs-report/internal/model"
	"bmrs-report/internal/process"
)

// AnalysisResponse summarizes one completed analysis run. The full series
// are fetched separately via GET /analysis/:id/series to keep this payload
// small.
type AnalysisResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`

	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	Daily        []analysis.DailyMetrics `json:"daily"`
	Peak         analysis.PeakHour       `json:"peak"`
	RangeSummary string                  `json:"range_summary"`

	Quality  process.QualitySummary `json:"quality"`
	Warnings []string               `json:"warnings,omitempty"`
}

// SeriesResponse carries the aligned half-hourly series for the dashboard.
type SeriesResponse struct {
	ID          string                `json:"id"`
	Prices      []model.PriceSeries   `json:"prices"`
	Volumes     []model.VolumeSeries  `json:"volumes"`
	HourlyStats []analysis.HourlyStat `json:"hourly_stats"`
}

// ReportResponse carries the rendered text reports.
type ReportResponse struct {
	ID           string            `json:"id"`
	PeakReport   string            `json:"peak_report"`
	DailyReports map[string]string `json:"daily_reports"`
	RangeSummary string            `json:"range_summary"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
