package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"time"

	"bmrs-report/internal/config"
	"bmrs-report/internal/model"
)

const settlementDateLayout = "2006-01-02"

// ElexonClient provides methods to fetch imbalance data from the Elexon
// BMRS Insights API.
type ElexonClient struct {
	APIKey  string
	BaseURL string
	Client  *http.Client

	maxRetries   int
	retryBackoff time.Duration
	pacer        *requestPacer
}

// NewElexonClient creates a new Elexon API client from config.
// If cfg.BaseURL is empty, defaults to "https://data.elexon.co.uk/bmrs/api/v1".
func NewElexonClient(cfg config.ElexonConfig) *ElexonClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://data.elexon.co.uk/bmrs/api/v1"
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	backoff := cfg.RetryBackoff()
	if backoff <= 0 {
		backoff = time.Second
	}
	maxPerSecond := cfg.MaxRequestsPerSecond
	if maxPerSecond <= 0 {
		maxPerSecond = 10
	}
	return &ElexonClient{
		APIKey:  cfg.APIKey,
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: timeout,
		},
		maxRetries:   maxRetries,
		retryBackoff: backoff,
		pacer:        newRequestPacer(maxPerSecond),
	}
}

// ElexonError represents an error from the Elexon API.
type ElexonError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string // For rate limit errors
}

func (e *ElexonError) Error() string {
	return e.Message
}

// Retryable reports whether the request may be retried. Server-side errors
// and rate limits are transient; anything else in the 4xx range is not.
func (e *ElexonError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// AuthFailure reports whether the error means the API key was rejected.
func (e *ElexonError) AuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// GetImbalanceData fetches imbalance prices and volumes for a settlement
// date and merges them into one record per settlement period.
// settlementPeriod 0 means the whole day; otherwise it must be in [1,48].
// All validation happens before any network call.
func (c *ElexonClient) GetImbalanceData(ctx context.Context, settlementDate string, settlementPeriod int) ([]model.SettlementRecord, error) {
	if err := c.validateAPIKey(); err != nil {
		return nil, err
	}
	if _, err := time.Parse(settlementDateLayout, settlementDate); err != nil {
		return nil, fmt.Errorf("invalid settlement date %q (expected YYYY-MM-DD): %w", settlementDate, err)
	}
	if settlementPeriod != 0 && !model.ValidPeriod(settlementPeriod) {
		return nil, fmt.Errorf("settlement period must be between 1 and %d, got %d", model.PeriodsPerDay, settlementPeriod)
	}

	// Check cache first (only if enabled for development).
	cache := GetCache()
	cacheKey := generateCacheKey(settlementDate, settlementPeriod)
	if cache != nil {
		if cached, found := cache.Get(cacheKey); found {
			log.Printf("[Elexon] Cache hit: %d records (date=%s, period=%d)",
				len(cached), settlementDate, settlementPeriod)
			return cached, nil
		}
	}

	var prices model.SystemPricesResponse
	if err := c.getJSON(ctx, settlementPath("system-prices", settlementDate, settlementPeriod), &prices); err != nil {
		return nil, fmt.Errorf("system prices for %s: %w", settlementDate, err)
	}

	var volumes model.ImbalanceVolumesResponse
	if err := c.getJSON(ctx, settlementPath("imbalance-volumes", settlementDate, settlementPeriod), &volumes); err != nil {
		return nil, fmt.Errorf("imbalance volumes for %s: %w", settlementDate, err)
	}

	records := mergeRows(prices.Data, volumes.Data)
	log.Printf("[Elexon] Success: %d merged settlement periods (date=%s, prices=%d, volumes=%d)",
		len(records), settlementDate, len(prices.Data), len(volumes.Data))

	if cache != nil {
		cache.Set(cacheKey, records)
		log.Printf("[Elexon] Cached response (date=%s, period=%d)", settlementDate, settlementPeriod)
	}

	return records, nil
}

// GetHistoricImbalanceData fetches a date range inclusive of both ends,
// one date at a time to stay under the rate ceiling.
func (c *ElexonClient) GetHistoricImbalanceData(ctx context.Context, startDate, endDate string) ([]model.SettlementRecord, error) {
	start, err := time.Parse(settlementDateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q (expected YYYY-MM-DD): %w", startDate, err)
	}
	end, err := time.Parse(settlementDateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q (expected YYYY-MM-DD): %w", endDate, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s is before start date %s", endDate, startDate)
	}

	var all []model.SettlementRecord
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dateStr := d.Format(settlementDateLayout)
		records, err := c.GetImbalanceData(ctx, dateStr, 0)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", dateStr, err)
		}
		all = append(all, records...)
	}

	log.Printf("[Elexon] Historic fetch complete: %d records for %s..%s",
		len(all), startDate, endDate)
	return all, nil
}

// getJSON performs a throttled GET with bounded retries and decodes the
// response into out.
func (c *ElexonClient) getJSON(ctx context.Context, path string, out any) error {
	body, err := c.doWithRetry(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// doWithRetry retries transient failures with exponential backoff and
// jitter. Auth failures and other 4xx responses surface immediately.
func (c *ElexonClient) doWithRetry(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Jitter: backoff * (0.5 to 1.5).
			jitter := backoff/2 + time.Duration(rand.Int63n(int64(backoff)))
			log.Printf("[Elexon] Retry %d/%d after %v (path=%s)", attempt, c.maxRetries, jitter, path)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}
			backoff *= 2
		}

		body, err := c.doRequest(ctx, path)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var apiErr *ElexonError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *ElexonClient) doRequest(ctx context.Context, path string) ([]byte, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	c.pacer.Wait()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", c.APIKey)

	log.Printf("[Elexon] Request: GET %s", u.Path)

	startTime := time.Now()
	resp, err := c.Client.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Printf("[Elexon] Request failed: %v (duration: %v)", err, duration)
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	log.Printf("[Elexon] Response: %d %s (duration: %v)", resp.StatusCode, resp.Status, duration)

	switch resp.StatusCode {
	case http.StatusOK:
		// Success, continue
	case http.StatusUnauthorized:
		return nil, &ElexonError{
			StatusCode: resp.StatusCode,
			Code:       "UNAUTHORIZED",
			Message:    "Unauthorized: invalid API key",
		}
	case http.StatusForbidden:
		return nil, &ElexonError{
			StatusCode: resp.StatusCode,
			Code:       "INVALID_API_KEY",
			Message:    "Invalid API key or insufficient permissions",
		}
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		return nil, &ElexonError{
			StatusCode: resp.StatusCode,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("Rate limit exceeded. Retry after: %s", retryAfter),
			RetryAfter: retryAfter,
		}
	default:
		return nil, &ElexonError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// validateAPIKey rejects obviously bad keys before making a request.
func (c *ElexonClient) validateAPIKey() error {
	if c.APIKey == "" {
		return &ElexonError{
			Code:    "MISSING_API_KEY",
			Message: "API key is required (set ELEXON_API_KEY)",
		}
	}
	return nil
}

// settlementPath builds the endpoint path for one settlement date, with an
// optional settlement period segment.
func settlementPath(dataset, settlementDate string, settlementPeriod int) string {
	path := fmt.Sprintf("/balancing/settlement/%s/%s", dataset, settlementDate)
	if settlementPeriod != 0 {
		path = fmt.Sprintf("%s/%d", path, settlementPeriod)
	}
	return path
}

// mergeRows joins price and volume rows by (settlementDate, settlementPeriod).
// A period present on only one side is kept with the other side unset so the
// processor can flag the gap instead of dropping the row.
func mergeRows(prices []model.SystemPriceRow, volumes []model.ImbalanceVolumeRow) []model.SettlementRecord {
	type key struct {
		date   string
		period int
	}
	merged := map[key]*model.SettlementRecord{}

	for _, p := range prices {
		k := key{p.SettlementDate, p.SettlementPeriod}
		merged[k] = &model.SettlementRecord{
			SettlementDate:   p.SettlementDate,
			SettlementPeriod: p.SettlementPeriod,
			StartTime:        p.StartTime,
			SystemSellPrice:  p.SystemSellPrice,
			SystemBuyPrice:   p.SystemBuyPrice,
			HasPrices:        true,
		}
	}
	for _, v := range volumes {
		k := key{v.SettlementDate, v.SettlementPeriod}
		rec, ok := merged[k]
		if !ok {
			rec = &model.SettlementRecord{
				SettlementDate:   v.SettlementDate,
				SettlementPeriod: v.SettlementPeriod,
				StartTime:        v.StartTime,
			}
			merged[k] = rec
		}
		rec.NetImbalanceVolume = v.NetImbalanceVolume
		rec.HasVolume = true
		if rec.StartTime.IsZero() {
			rec.StartTime = v.StartTime
		}
	}

	out := make([]model.SettlementRecord, 0, len(merged))
	for _, rec := range merged {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SettlementDate != out[j].SettlementDate {
			return out[i].SettlementDate < out[j].SettlementDate
		}
		return out[i].SettlementPeriod < out[j].SettlementPeriod
	})
	return out
}
