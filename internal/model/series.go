package model

import "time"

// Quality flags one cleaned settlement period.
type Quality string

const (
	// QualityGood means the period arrived complete and plausible.
	QualityGood Quality = "GOOD"
	// QualityMissing means the period was absent from the raw data (or the
	// relevant endpoint omitted it). Values on a Missing point are zero and
	// must be skipped, never summed.
	QualityMissing Quality = "MISSING"
	// QualityAnomaly means the period arrived but looks wrong, e.g. a sell
	// price above the buy price. Anomalous values are kept.
	QualityAnomaly Quality = "ANOMALY"
)

// PricePoint is one half-hourly entry of a cleaned price series.
type PricePoint struct {
	SettlementDate   string    `json:"settlement_date"`
	SettlementPeriod int       `json:"settlement_period"`
	StartTime        time.Time `json:"start_time"`

	SystemSellPrice float64 `json:"system_sell_price"`
	SystemBuyPrice  float64 `json:"system_buy_price"`
	PriceSpread     float64 `json:"price_spread"` // buy - sell

	Quality Quality `json:"quality"`
}

// VolumePoint is one half-hourly entry of a cleaned volume series.
type VolumePoint struct {
	SettlementDate   string    `json:"settlement_date"`
	SettlementPeriod int       `json:"settlement_period"`
	StartTime        time.Time `json:"start_time"`

	NetImbalanceVolume float64 `json:"net_imbalance_volume"`
	AbsImbalanceVolume float64 `json:"abs_imbalance_volume"`

	Quality Quality `json:"quality"`
}

// PriceSeries is one settlement date resampled to all 48 periods, ordered by
// settlement period. Gaps appear as Missing points rather than being dropped.
type PriceSeries struct {
	Date   string       `json:"date"`
	Points []PricePoint `json:"points"`
}

// VolumeSeries is the volume counterpart of PriceSeries, same shape and
// ordering guarantees.
type VolumeSeries struct {
	Date   string        `json:"date"`
	Points []VolumePoint `json:"points"`
}

// MissingCount returns how many periods of the series are flagged Missing.
func (s PriceSeries) MissingCount() int {
	n := 0
	for _, p := range s.Points {
		if p.Quality == QualityMissing {
			n++
		}
	}
	return n
}

// AnomalyCount returns how many periods are flagged as anomalies.
func (s PriceSeries) AnomalyCount() int {
	n := 0
	for _, p := range s.Points {
		if p.Quality == QualityAnomaly {
			n++
		}
	}
	return n
}

// MissingCount returns how many periods of the series are flagged Missing.
func (s VolumeSeries) MissingCount() int {
	n := 0
	for _, p := range s.Points {
		if p.Quality == QualityMissing {
			n++
		}
	}
	return n
}
