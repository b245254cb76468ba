package models

// AnalysisRequest is the request body for running an imbalance analysis.
// The API key is passed through from the client; the server holds no key of
// its own.
type AnalysisRequest struct {
	APIKey    string `json:"api_key" binding:"required"`
	StartDate string `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate   string `json:"end_date" binding:"required"`   // YYYY-MM-DD

	// BaseURL optionally points the run at a different Insights host,
	// e.g. a mock server.
	BaseURL string `json:"base_url,omitempty"`
}
