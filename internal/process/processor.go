package process

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"bmrs-report/internal/model"
)

// SeriesQuality summarizes the quality flags of one cleaned series.
type SeriesQuality struct {
	Periods    int     `json:"total_periods"`
	Missing    int     `json:"missing_periods"`
	Anomalies  int     `json:"anomalies"`
	MissingPct float64 `json:"missing_pct"`
	AnomalyPct float64 `json:"anomaly_pct"`
}

// QualitySummary reports what cleaning did to the raw rows. Malformed rows
// are excluded from the series but always counted here, never silently
// ignored.
type QualitySummary struct {
	RawRows       int           `json:"raw_rows"`
	MalformedRows int           `json:"malformed_rows"`
	Prices        SeriesQuality `json:"prices"`
	Volumes       SeriesQuality `json:"volumes"`
}

// CleanAndProcess turns raw merged records for a single settlement date into
// aligned price and volume series covering all 48 periods. Missing periods
// are kept as explicitly flagged points so downstream totals are not
// corrupted by substituted zeros. The function is pure: identical input
// yields identical output.
func CleanAndProcess(records []model.SettlementRecord) (model.PriceSeries, model.VolumeSeries, QualitySummary, error) {
	var prices model.PriceSeries
	var volumes model.VolumeSeries
	summary := QualitySummary{RawRows: len(records)}

	if len(records) == 0 {
		return prices, volumes, summary, errors.New("no records to process")
	}

	date := records[0].SettlementDate
	byPeriod := make(map[int]model.SettlementRecord, len(records))
	for _, r := range records {
		if r.SettlementDate != date {
			return prices, volumes, summary, fmt.Errorf("records span multiple settlement dates (%s and %s)", date, r.SettlementDate)
		}
		if !model.ValidPeriod(r.SettlementPeriod) || malformedValues(r) {
			summary.MalformedRows++
			continue
		}
		if _, dup := byPeriod[r.SettlementPeriod]; dup {
			// Duplicate (date, period) keys violate the series invariant;
			// keep the first row and count the rest as malformed.
			summary.MalformedRows++
			continue
		}
		byPeriod[r.SettlementPeriod] = r
	}

	dayStart, err := time.Parse("2006-01-02", date)
	if err != nil {
		return prices, volumes, summary, fmt.Errorf("invalid settlement date %q: %w", date, err)
	}

	prices.Date = date
	volumes.Date = date
	prices.Points = make([]model.PricePoint, 0, model.PeriodsPerDay)
	volumes.Points = make([]model.VolumePoint, 0, model.PeriodsPerDay)

	for p := 1; p <= model.PeriodsPerDay; p++ {
		start := dayStart.Add(time.Duration(p-1) * 30 * time.Minute)
		rec, ok := byPeriod[p]
		if ok && !rec.StartTime.IsZero() {
			start = rec.StartTime
		}

		pricePoint := model.PricePoint{
			SettlementDate:   date,
			SettlementPeriod: p,
			StartTime:        start,
			Quality:          model.QualityMissing,
		}
		if ok && rec.HasPrices {
			pricePoint.SystemSellPrice = rec.SystemSellPrice
			pricePoint.SystemBuyPrice = rec.SystemBuyPrice
			pricePoint.PriceSpread = rec.SystemBuyPrice - rec.SystemSellPrice
			pricePoint.Quality = model.QualityGood
			if pricePoint.PriceSpread < 0 {
				// Sell above buy: kept, but flagged.
				pricePoint.Quality = model.QualityAnomaly
			}
		}
		prices.Points = append(prices.Points, pricePoint)

		volumePoint := model.VolumePoint{
			SettlementDate:   date,
			SettlementPeriod: p,
			StartTime:        start,
			Quality:          model.QualityMissing,
		}
		if ok && rec.HasVolume {
			volumePoint.NetImbalanceVolume = rec.NetImbalanceVolume
			volumePoint.AbsImbalanceVolume = math.Abs(rec.NetImbalanceVolume)
			volumePoint.Quality = model.QualityGood
		}
		volumes.Points = append(volumes.Points, volumePoint)
	}

	summary.Prices = seriesQuality(prices.MissingCount(), prices.AnomalyCount())
	summary.Volumes = seriesQuality(volumes.MissingCount(), 0)
	return prices, volumes, summary, nil
}

// CleanAndProcessRange groups records by settlement date and cleans each day,
// returning date-ordered series and a combined quality summary.
func CleanAndProcessRange(records []model.SettlementRecord) ([]model.PriceSeries, []model.VolumeSeries, QualitySummary, error) {
	if len(records) == 0 {
		return nil, nil, QualitySummary{}, errors.New("no records to process")
	}

	byDate := map[string][]model.SettlementRecord{}
	for _, r := range records {
		byDate[r.SettlementDate] = append(byDate[r.SettlementDate], r)
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var priceSeries []model.PriceSeries
	var volumeSeries []model.VolumeSeries
	var total QualitySummary

	for _, d := range dates {
		prices, volumes, summary, err := CleanAndProcess(byDate[d])
		if err != nil {
			return nil, nil, total, fmt.Errorf("process %s: %w", d, err)
		}
		priceSeries = append(priceSeries, prices)
		volumeSeries = append(volumeSeries, volumes)
		total.RawRows += summary.RawRows
		total.MalformedRows += summary.MalformedRows
		total.Prices.Periods += summary.Prices.Periods
		total.Prices.Missing += summary.Prices.Missing
		total.Prices.Anomalies += summary.Prices.Anomalies
		total.Volumes.Periods += summary.Volumes.Periods
		total.Volumes.Missing += summary.Volumes.Missing
	}

	total.Prices = recomputePct(total.Prices)
	total.Volumes = recomputePct(total.Volumes)
	return priceSeries, volumeSeries, total, nil
}

// malformedValues reports whether a record carries values that cannot be
// used, e.g. NaN or infinite prices from a mangled feed.
func malformedValues(r model.SettlementRecord) bool {
	if r.HasPrices && (!finite(r.SystemSellPrice) || !finite(r.SystemBuyPrice)) {
		return true
	}
	if r.HasVolume && !finite(r.NetImbalanceVolume) {
		return true
	}
	return false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func seriesQuality(missing, anomalies int) SeriesQuality {
	return recomputePct(SeriesQuality{
		Periods:   model.PeriodsPerDay,
		Missing:   missing,
		Anomalies: anomalies,
	})
}

func recomputePct(q SeriesQuality) SeriesQuality {
	if q.Periods > 0 {
		q.MissingPct = float64(q.Missing) / float64(q.Periods) * 100
		q.AnomalyPct = float64(q.Anomalies) / float64(q.Periods) * 100
	}
	return q
}
