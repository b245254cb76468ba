package analysis

import (
	"context"
	"fmt"
	"time"

	"bmrs-report/internal/model"
	"bmrs-report/internal/process"
)

// Fetcher supplies raw settlement records for a date range. *data.ElexonClient
// satisfies it; tests substitute a stub.
type Fetcher interface {
	GetHistoricImbalanceData(ctx context.Context, startDate, endDate string) ([]model.SettlementRecord, error)
}

// Options configures one analysis run.
type Options struct {
	StartDate string
	EndDate   string

	Currency     string // defaults to "£"
	MaxRangeDays int    // defaults to 31
}

// Result is everything one run produces: cleaned series, per-day metrics,
// the hour-of-day profile, rendered reports and data-quality warnings.
// Held in memory for the duration of the request only.
type Result struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	Daily       []DailyMetrics `json:"daily"`
	HourlyStats []HourlyStat   `json:"hourly_stats"`
	Peak        PeakHour       `json:"peak"`

	PeakReport   string            `json:"peak_report"`
	DailyReports map[string]string `json:"daily_reports"`
	RangeSummary string            `json:"range_summary"`

	Quality  process.QualitySummary `json:"quality"`
	Warnings []string               `json:"warnings"`

	Prices  []model.PriceSeries  `json:"prices"`
	Volumes []model.VolumeSeries `json:"volumes"`
}

// Run executes the full pipeline: validate the range, fetch, clean, compute
// metrics and render reports. Data-quality problems become warnings on the
// result; only fetch and validation failures abort the run.
func Run(ctx context.Context, f Fetcher, opts Options) (*Result, error) {
	if err := validateRange(opts); err != nil {
		return nil, err
	}

	records, err := f.GetHistoricImbalanceData(ctx, opts.StartDate, opts.EndDate)
	if err != nil {
		return nil, err
	}

	return RunRecords(records, opts)
}

// RunRecords runs the post-fetch half of the pipeline over already-loaded
// records, for saved responses and tests.
func RunRecords(records []model.SettlementRecord, opts Options) (*Result, error) {
	currency := opts.Currency
	if currency == "" {
		currency = "£"
	}

	prices, volumes, quality, err := process.CleanAndProcessRange(records)
	if err != nil {
		return nil, err
	}

	res := &Result{
		StartDate:    opts.StartDate,
		EndDate:      opts.EndDate,
		Quality:      quality,
		DailyReports: make(map[string]string, len(prices)),
		Prices:       prices,
		Volumes:      volumes,
	}
	if res.StartDate == "" {
		res.StartDate = prices[0].Date
	}
	if res.EndDate == "" {
		res.EndDate = prices[len(prices)-1].Date
	}

	for i := range prices {
		m, err := CalculateDailyImbalanceMetrics(prices[i], volumes[i])
		if err != nil {
			return nil, fmt.Errorf("metrics for %s: %w", prices[i].Date, err)
		}
		res.Daily = append(res.Daily, m)
		res.DailyReports[m.Date] = GenerateDailyReport(m, currency)
	}

	stats, peak, err := AnalyseRangeHourlyVolumes(volumes)
	if err != nil {
		return nil, err
	}
	res.HourlyStats = stats
	res.Peak = peak
	res.PeakReport = GeneratePeakReport(stats, peak)
	res.RangeSummary = GenerateRangeSummary(res.Daily, currency)
	res.Warnings = qualityWarnings(quality)

	return res, nil
}

func validateRange(opts Options) error {
	start, err := time.Parse("2006-01-02", opts.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start date %q (expected YYYY-MM-DD): %w", opts.StartDate, err)
	}
	end, err := time.Parse("2006-01-02", opts.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end date %q (expected YYYY-MM-DD): %w", opts.EndDate, err)
	}
	if end.Before(start) {
		return fmt.Errorf("end date %s is before start date %s", opts.EndDate, opts.StartDate)
	}
	maxDays := opts.MaxRangeDays
	if maxDays == 0 {
		maxDays = 31
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > maxDays {
		return fmt.Errorf("date range spans %d days, maximum is %d", days, maxDays)
	}
	return nil
}

// qualityWarnings turns the cleaning summary into user-facing warnings.
// They accompany the report; they never abort a run.
func qualityWarnings(q process.QualitySummary) []string {
	var warnings []string
	if q.MalformedRows > 0 {
		warnings = append(warnings, fmt.Sprintf("%d malformed rows excluded from %d raw rows", q.MalformedRows, q.RawRows))
	}
	if q.Prices.Missing > 0 {
		warnings = append(warnings, fmt.Sprintf("%d of %d price periods missing (%.1f%%)", q.Prices.Missing, q.Prices.Periods, q.Prices.MissingPct))
	}
	if q.Volumes.Missing > 0 {
		warnings = append(warnings, fmt.Sprintf("%d of %d volume periods missing (%.1f%%)", q.Volumes.Missing, q.Volumes.Periods, q.Volumes.MissingPct))
	}
	if q.Prices.Anomalies > 0 {
		warnings = append(warnings, fmt.Sprintf("%d price periods flagged as anomalies (sell above buy)", q.Prices.Anomalies))
	}
	return warnings
}
