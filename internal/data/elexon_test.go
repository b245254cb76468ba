package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bmrs-report/internal/config"
	"bmrs-report/internal/model"
)

func testClientConfig(baseURL string) config.ElexonConfig {
	return config.ElexonConfig{
		APIKey:               "test-key-123",
		BaseURL:              baseURL,
		TimeoutSeconds:       5,
		MaxRetries:           2,
		RetryBackoffMS:       1,
		MaxRequestsPerSecond: 10,
	}
}

func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

// settlementServer serves canned price/volume rows for any date.
func settlementServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}

		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		require.GreaterOrEqual(t, len(parts), 4, "unexpected path %s", r.URL.Path)
		dataset := parts[2]
		date := parts[3]

		w.Header().Set("Content-Type", "application/json")
		switch dataset {
		case "system-prices":
			resp := model.SystemPricesResponse{Data: []model.SystemPriceRow{
				{SettlementDate: date, SettlementPeriod: 1, StartTime: mustParseTime(t, date+"T00:00:00Z"), SystemSellPrice: 75.5, SystemBuyPrice: 82.0},
				{SettlementDate: date, SettlementPeriod: 2, StartTime: mustParseTime(t, date+"T00:30:00Z"), SystemSellPrice: 70.0, SystemBuyPrice: 79.0},
			}}
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		case "imbalance-volumes":
			resp := model.ImbalanceVolumesResponse{Data: []model.ImbalanceVolumeRow{
				{SettlementDate: date, SettlementPeriod: 1, StartTime: mustParseTime(t, date+"T00:00:00Z"), NetImbalanceVolume: -120.5},
				{SettlementDate: date, SettlementPeriod: 2, StartTime: mustParseTime(t, date+"T00:30:00Z"), NetImbalanceVolume: 45.0},
			}}
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		default:
			t.Errorf("unexpected dataset %q", dataset)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestGetImbalanceDataMergesEndpoints(t *testing.T) {
	srv := settlementServer(t, nil)
	defer srv.Close()

	c := NewElexonClient(testClientConfig(srv.URL))
	records, err := c.GetImbalanceData(context.Background(), "2024-03-01", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "2024-03-01", records[0].SettlementDate)
	assert.Equal(t, 1, records[0].SettlementPeriod)
	assert.Equal(t, 75.5, records[0].SystemSellPrice)
	assert.Equal(t, 82.0, records[0].SystemBuyPrice)
	assert.Equal(t, -120.5, records[0].NetImbalanceVolume)
	assert.True(t, records[0].Complete())

	assert.Equal(t, 2, records[1].SettlementPeriod)
	assert.Equal(t, 45.0, records[1].NetImbalanceVolume)
}

func TestGetImbalanceDataKeepsOneSidedPeriods(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "system-prices") {
			resp := model.SystemPricesResponse{Data: []model.SystemPriceRow{
				{SettlementDate: "2024-03-01", SettlementPeriod: 1, SystemSellPrice: 50, SystemBuyPrice: 55},
			}}
			_ = json.NewEncoder(w).Encode(resp)
			return
		}
		// Volume endpoint has period 2 only.
		resp := model.ImbalanceVolumesResponse{Data: []model.ImbalanceVolumeRow{
			{SettlementDate: "2024-03-01", SettlementPeriod: 2, NetImbalanceVolume: 10},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewElexonClient(testClientConfig(srv.URL))
	records, err := c.GetImbalanceData(context.Background(), "2024-03-01", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.True(t, records[0].HasPrices)
	assert.False(t, records[0].HasVolume)
	assert.False(t, records[1].HasPrices)
	assert.True(t, records[1].HasVolume)
}

func TestGetImbalanceDataRejectsBadInputBeforeRequest(t *testing.T) {
	var hits atomic.Int64
	srv := settlementServer(t, &hits)
	defer srv.Close()

	c := NewElexonClient(testClientConfig(srv.URL))
	ctx := context.Background()

	_, err := c.GetImbalanceData(ctx, "2024/03/01", 0)
	assert.ErrorContains(t, err, "invalid settlement date")

	_, err = c.GetImbalanceData(ctx, "not-a-date", 0)
	assert.Error(t, err)

	_, err = c.GetImbalanceData(ctx, "2024-03-01", 49)
	assert.ErrorContains(t, err, "settlement period")

	_, err = c.GetImbalanceData(ctx, "2024-03-01", -1)
	assert.Error(t, err)

	assert.Equal(t, int64(0), hits.Load(), "no request should be issued for invalid input")
}

func TestGetImbalanceDataRequiresAPIKey(t *testing.T) {
	var hits atomic.Int64
	srv := settlementServer(t, &hits)
	defer srv.Close()

	cfg := testClientConfig(srv.URL)
	cfg.APIKey = ""
	c := NewElexonClient(cfg)

	_, err := c.GetImbalanceData(context.Background(), "2024-03-01", 0)
	var apiErr *ElexonError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "MISSING_API_KEY", apiErr.Code)
	assert.Equal(t, int64(0), hits.Load())
}

func TestGetImbalanceDataAuthFailureIsNotRetried(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "test-key-123", r.Header.Get("apiKey"))
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewElexonClient(testClientConfig(srv.URL))
	_, err := c.GetImbalanceData(context.Background(), "2024-03-01", 0)

	var apiErr *ElexonError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.AuthFailure())
	assert.False(t, apiErr.Retryable())
	assert.Equal(t, int64(1), hits.Load(), "auth failures must surface immediately")
}

func TestGetImbalanceDataRetriesServerErrors(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "system-prices") {
			_ = json.NewEncoder(w).Encode(model.SystemPricesResponse{Data: []model.SystemPriceRow{
				{SettlementDate: "2024-03-01", SettlementPeriod: 1, SystemSellPrice: 60, SystemBuyPrice: 65},
			}})
			return
		}
		_ = json.NewEncoder(w).Encode(model.ImbalanceVolumesResponse{Data: []model.ImbalanceVolumeRow{
			{SettlementDate: "2024-03-01", SettlementPeriod: 1, NetImbalanceVolume: 5},
		}})
	}))
	defer srv.Close()

	c := NewElexonClient(testClientConfig(srv.URL))
	records, err := c.GetImbalanceData(context.Background(), "2024-03-01", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.GreaterOrEqual(t, hits.Load(), int64(4), "two failures plus two endpoint successes")
}

func TestGetImbalanceDataExhaustsRetries(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewElexonClient(testClientConfig(srv.URL))
	_, err := c.GetImbalanceData(context.Background(), "2024-03-01", 0)
	require.Error(t, err)
	assert.ErrorContains(t, err, "max retries exceeded")
	assert.ErrorContains(t, err, "system prices for 2024-03-01")
	// 1 initial attempt + MaxRetries retries on the first endpoint only.
	assert.Equal(t, int64(3), hits.Load())
}

func TestGetHistoricImbalanceData(t *testing.T) {
	var hits atomic.Int64
	srv := settlementServer(t, &hits)
	defer srv.Close()

	c := NewElexonClient(testClientConfig(srv.URL))
	records, err := c.GetHistoricImbalanceData(context.Background(), "2024-03-01", "2024-03-02")
	require.NoError(t, err)

	// Two days, two merged periods each.
	require.Len(t, records, 4)
	assert.Equal(t, "2024-03-01", records[0].SettlementDate)
	assert.Equal(t, "2024-03-02", records[2].SettlementDate)
	// Two endpoints per date.
	assert.Equal(t, int64(4), hits.Load())
}

func TestGetHistoricImbalanceDataValidatesRange(t *testing.T) {
	var hits atomic.Int64
	srv := settlementServer(t, &hits)
	defer srv.Close()

	c := NewElexonClient(testClientConfig(srv.URL))
	ctx := context.Background()

	_, err := c.GetHistoricImbalanceData(ctx, "2024-03-02", "2024-03-01")
	assert.ErrorContains(t, err, "before start date")

	_, err = c.GetHistoricImbalanceData(ctx, "02-03-2024", "2024-03-05")
	assert.ErrorContains(t, err, "invalid start date")

	assert.Equal(t, int64(0), hits.Load())
}

func TestGetHistoricImbalanceDataNamesFailedDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "2024-03-02") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "system-prices") {
			_ = json.NewEncoder(w).Encode(model.SystemPricesResponse{Data: []model.SystemPriceRow{
				{SettlementDate: "2024-03-01", SettlementPeriod: 1, SystemSellPrice: 60, SystemBuyPrice: 65},
			}})
			return
		}
		_ = json.NewEncoder(w).Encode(model.ImbalanceVolumesResponse{Data: []model.ImbalanceVolumeRow{
			{SettlementDate: "2024-03-01", SettlementPeriod: 1, NetImbalanceVolume: 5},
		}})
	}))
	defer srv.Close()

	c := NewElexonClient(testClientConfig(srv.URL))
	_, err := c.GetHistoricImbalanceData(context.Background(), "2024-03-01", "2024-03-03")
	require.Error(t, err)
	assert.ErrorContains(t, err, "fetch 2024-03-02")
}

func TestHistoricBurstStaysUnderRateCeiling(t *testing.T) {
	// Drive the pacer with a fake clock so the burst runs instantly while
	// still exercising the rolling-window accounting.
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	var mu sync.Mutex
	var grantTimes []time.Time

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		grantTimes = append(grantTimes, clock.Now())
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "system-prices") {
			_ = json.NewEncoder(w).Encode(model.SystemPricesResponse{})
			return
		}
		_ = json.NewEncoder(w).Encode(model.ImbalanceVolumesResponse{})
	}))
	defer srv.Close()

	c := NewElexonClient(testClientConfig(srv.URL))
	c.pacer.now = clock.Now
	c.pacer.sleep = clock.Sleep

	// 20 historic dates => 40 requests.
	for i := 0; i < 20; i++ {
		date := fmt.Sprintf("2024-03-%02d", i+1)
		// Empty responses still merge to zero records; that is fine here.
		_, err := c.GetImbalanceData(context.Background(), date, 0)
		require.NoError(t, err)
	}
	require.Len(t, grantTimes, 40)

	for i, start := range grantTimes {
		inWindow := 0
		for _, ts := range grantTimes[i:] {
			if ts.Sub(start) < time.Second {
				inWindow++
			}
		}
		assert.LessOrEqual(t, inWindow, 10,
			"more than 10 requests in the rolling second starting at request %d", i)
	}
}

func TestGroupByDate(t *testing.T) {
	records := []model.SettlementRecord{
		{SettlementDate: "2024-03-01", SettlementPeriod: 1},
		{SettlementDate: "2024-03-02", SettlementPeriod: 1},
		{SettlementDate: "2024-03-01", SettlementPeriod: 2},
	}
	byDate := GroupByDate(records)
	require.Len(t, byDate, 2)
	assert.Len(t, byDate["2024-03-01"], 2)
	assert.Len(t, byDate["2024-03-02"], 1)
}

func TestSettlementJSONRoundTrip(t *testing.T) {
	path := t.TempDir() + "/saved.json"
	records := []model.SettlementRecord{
		{SettlementDate: "2024-03-01", SettlementPeriod: 1, SystemSellPrice: 50, SystemBuyPrice: 55, NetImbalanceVolume: -10, HasPrices: true, HasVolume: true},
	}
	require.NoError(t, SaveSettlementJSON(path, records))

	resp, err := LoadSettlementJSON(path)
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, records[0], resp.Data[0])
}
