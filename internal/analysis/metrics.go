package analysis

import (
	"fmt"
	"math"

	"bmrs-report/internal/model"
)

// PriceStats summarizes one price column over a day.
type PriceStats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// DailyMetrics is the derived aggregate for one settlement date. Computed
// once per report request, never persisted.
type DailyMetrics struct {
	Date string `json:"date"`

	// TotalCost is the sum over periods of the applicable imbalance price
	// times the net imbalance volume, in £.
	TotalCost    float64 `json:"total_cost"`
	NetVolumeMWh float64 `json:"net_volume_mwh"`
	AbsVolumeMWh float64 `json:"abs_volume_mwh"`

	// UnitRate is TotalCost divided by AbsVolumeMWh (£/MWh), 0 when no
	// volume was settled.
	UnitRate float64 `json:"unit_rate"`

	// Position is LONG when the day's net imbalance volume is positive,
	// SHORT otherwise.
	Position string `json:"position"`

	SellPrice PriceStats `json:"sell_price"`
	BuyPrice  PriceStats `json:"buy_price"`

	// PeriodsUsed counts settlement periods that contributed to TotalCost,
	// i.e. had both a price and a volume.
	PeriodsUsed int `json:"periods_used"`

	Peak PeakHour `json:"peak_hour"`
}

// CalculateDailyImbalanceMetrics computes cost and rate metrics from aligned
// price and volume series for one settlement date.
//
// Price selection convention: a period settles at the system sell price when
// the net imbalance volume is non-negative (system long) and at the system
// buy price when negative (system short). Missing periods contribute
// nothing; they are reported via the quality summary, not zero-filled.
func CalculateDailyImbalanceMetrics(prices model.PriceSeries, volumes model.VolumeSeries) (DailyMetrics, error) {
	m := DailyMetrics{Date: prices.Date}
	if prices.Date != volumes.Date {
		return m, fmt.Errorf("series date mismatch: prices %s, volumes %s", prices.Date, volumes.Date)
	}
	if len(prices.Points) != len(volumes.Points) {
		return m, fmt.Errorf("series length mismatch: %d price points, %d volume points", len(prices.Points), len(volumes.Points))
	}

	var sellSum, buySum float64
	pricedPeriods := 0
	m.SellPrice = PriceStats{Min: math.Inf(1), Max: math.Inf(-1)}
	m.BuyPrice = PriceStats{Min: math.Inf(1), Max: math.Inf(-1)}

	for i, pp := range prices.Points {
		vp := volumes.Points[i]

		if pp.Quality != model.QualityMissing {
			pricedPeriods++
			sellSum += pp.SystemSellPrice
			buySum += pp.SystemBuyPrice
			m.SellPrice.Min = math.Min(m.SellPrice.Min, pp.SystemSellPrice)
			m.SellPrice.Max = math.Max(m.SellPrice.Max, pp.SystemSellPrice)
			m.BuyPrice.Min = math.Min(m.BuyPrice.Min, pp.SystemBuyPrice)
			m.BuyPrice.Max = math.Max(m.BuyPrice.Max, pp.SystemBuyPrice)
		}

		if vp.Quality != model.QualityMissing {
			m.NetVolumeMWh += vp.NetImbalanceVolume
			m.AbsVolumeMWh += vp.AbsImbalanceVolume
		}

		if pp.Quality == model.QualityMissing || vp.Quality == model.QualityMissing {
			continue
		}
		price := pp.SystemSellPrice
		if vp.NetImbalanceVolume < 0 {
			price = pp.SystemBuyPrice
		}
		m.TotalCost += price * vp.NetImbalanceVolume
		m.PeriodsUsed++
	}

	if pricedPeriods > 0 {
		m.SellPrice.Mean = sellSum / float64(pricedPeriods)
		m.BuyPrice.Mean = buySum / float64(pricedPeriods)
	} else {
		m.SellPrice = PriceStats{}
		m.BuyPrice = PriceStats{}
	}

	if m.AbsVolumeMWh > 0 {
		m.UnitRate = m.TotalCost / m.AbsVolumeMWh
	}

	m.Position = "SHORT"
	if m.NetVolumeMWh > 0 {
		m.Position = "LONG"
	}

	_, peak, err := AnalyseHourlyVolumes(volumes)
	if err != nil {
		return m, err
	}
	m.Peak = peak

	return m, nil
}
