package analysis

import (
	"errors"

	"bmrs-report/internal/model"
)

// HourlyStat aggregates the two half-hourly settlement periods of one hour.
type HourlyStat struct {
	Hour int `json:"hour"` // 0..23

	AbsVolumeMWh     float64 `json:"abs_volume_mwh"` // summed magnitude
	NetVolumeMWh     float64 `json:"net_volume_mwh"`
	MeanAbsVolumeMWh float64 `json:"mean_abs_volume_mwh"`

	// Periods counts non-missing half-hour periods behind the stat.
	Periods int `json:"periods"`
}

// PeakHour is the hour with the greatest absolute imbalance volume.
type PeakHour struct {
	HourlyStat
	// Position reports the direction of the peak hour's net volume.
	Position string `json:"position"`
}

// AnalyseHourlyVolumes buckets a day's half-hourly volumes into 24 hours and
// identifies the peak hour by absolute volume. Ties resolve to the earliest
// hour. Missing periods are skipped, not treated as zero volume.
func AnalyseHourlyVolumes(volumes model.VolumeSeries) ([]HourlyStat, PeakHour, error) {
	return analyseHours([]model.VolumeSeries{volumes})
}

// AnalyseRangeHourlyVolumes pools several days into one hour-of-day profile,
// showing which hours of the trading day carry the most imbalance.
func AnalyseRangeHourlyVolumes(volumes []model.VolumeSeries) ([]HourlyStat, PeakHour, error) {
	return analyseHours(volumes)
}

func analyseHours(days []model.VolumeSeries) ([]HourlyStat, PeakHour, error) {
	if len(days) == 0 {
		return nil, PeakHour{}, errors.New("no volume series to analyse")
	}

	stats := make([]HourlyStat, 24)
	for h := range stats {
		stats[h].Hour = h
	}

	for _, day := range days {
		for _, vp := range day.Points {
			if vp.Quality == model.QualityMissing {
				continue
			}
			h := model.HourOfPeriod(vp.SettlementPeriod)
			stats[h].AbsVolumeMWh += vp.AbsImbalanceVolume
			stats[h].NetVolumeMWh += vp.NetImbalanceVolume
			stats[h].Periods++
		}
	}

	for h := range stats {
		if stats[h].Periods > 0 {
			stats[h].MeanAbsVolumeMWh = stats[h].AbsVolumeMWh / float64(stats[h].Periods)
		}
	}

	peak := PeakHour{HourlyStat: stats[0]}
	for _, s := range stats[1:] {
		// Strict comparison keeps the earliest hour on ties.
		if s.AbsVolumeMWh > peak.AbsVolumeMWh {
			peak.HourlyStat = s
		}
	}
	peak.Position = "SHORT"
	if peak.NetVolumeMWh > 0 {
		peak.Position = "LONG"
	}

	return stats, peak, nil
}
