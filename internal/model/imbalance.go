package model

import "time"

// SystemPricesResponse matches the JSON shape of the Elexon system-prices
// endpoint.
//
// Example:
// {
//   "data": [ ... ]
// }
type SystemPricesResponse struct {
	Data []SystemPriceRow `json:"data"`
}

// SystemPriceRow is one settlement-period row from the system-prices dataset.
// StartTime is provided in the JSON as an RFC3339 string.
type SystemPriceRow struct {
	SettlementDate   string    `json:"settlementDate"`
	SettlementPeriod int       `json:"settlementPeriod"`
	StartTime        time.Time `json:"startTime"`

	// Prices in £/MWh.
	SystemSellPrice float64 `json:"systemSellPrice"`
	SystemBuyPrice  float64 `json:"systemBuyPrice"`
}

// ImbalanceVolumesResponse matches the JSON shape of the imbalance-volumes
// endpoint.
type ImbalanceVolumesResponse struct {
	Data []ImbalanceVolumeRow `json:"data"`
}

// ImbalanceVolumeRow is one settlement-period row from the imbalance-volumes
// dataset. NetImbalanceVolume is signed: positive means the system was long,
// negative short.
type ImbalanceVolumeRow struct {
	SettlementDate     string    `json:"settlementDate"`
	SettlementPeriod   int       `json:"settlementPeriod"`
	StartTime          time.Time `json:"startTime"`
	NetImbalanceVolume float64   `json:"netImbalanceVolume"`
}

// SettlementRecord is one settlement period with the price and volume rows
// merged by (settlementDate, settlementPeriod). HasPrices/HasVolume record
// which endpoints actually returned the period; a side that never arrived is
// left zero and must not be read.
type SettlementRecord struct {
	SettlementDate   string    `json:"settlementDate"`
	SettlementPeriod int       `json:"settlementPeriod"`
	StartTime        time.Time `json:"startTime"`

	SystemSellPrice    float64 `json:"systemSellPrice"`
	SystemBuyPrice     float64 `json:"systemBuyPrice"`
	NetImbalanceVolume float64 `json:"netImbalanceVolume"`

	HasPrices bool `json:"hasPrices"`
	HasVolume bool `json:"hasVolume"`
}

// SettlementResponse is the on-disk shape written by `cli fetch` and read
// back by LoadSettlementJSON.
type SettlementResponse struct {
	Data []SettlementRecord `json:"data"`
}

// Complete reports whether both endpoints contributed to the record.
func (r SettlementRecord) Complete() bool {
	return r.HasPrices && r.HasVolume
}

// PeriodsPerDay is the number of half-hour settlement periods in a UK
// trading day. Clock-change days differ in reality; the Insights API
// normalizes them away and we follow it.
const PeriodsPerDay = 48

// ValidPeriod reports whether p is a usable settlement period index.
func ValidPeriod(p int) bool {
	return p >= 1 && p <= PeriodsPerDay
}

// HourOfPeriod maps a settlement period (1..48) to its hour of day (0..23).
// Periods 1 and 2 fall in hour 0, 3 and 4 in hour 1, and so on.
func HourOfPeriod(p int) int {
	return (p - 1) / 2
}
