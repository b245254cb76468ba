package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const reportRule = "=================================================="

// GenerateDailyReport renders one day's metrics as a human-readable message.
func GenerateDailyReport(m DailyMetrics, currency string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Daily Imbalance Report for %s\n%s\n\n", m.Date, reportRule)
	fmt.Fprintf(&b, "Total Daily Position: %s\n", m.Position)
	fmt.Fprintf(&b, "Net Imbalance Volume: %.2f MWh\n", m.NetVolumeMWh)
	fmt.Fprintf(&b, "Total Imbalance Volume: %.2f MWh\n\n", m.AbsVolumeMWh)
	fmt.Fprintf(&b, "Total Imbalance Cost: %s%.2f\n", currency, math.Abs(m.TotalCost))
	fmt.Fprintf(&b, "Average Unit Rate: %s%.2f/MWh\n\n", currency, math.Abs(m.UnitRate))

	fmt.Fprintf(&b, "Price Statistics:\n")
	fmt.Fprintf(&b, "  System Sell Price (%s/MWh):\n", currency)
	fmt.Fprintf(&b, "    Average: %s%.2f\n", currency, m.SellPrice.Mean)
	fmt.Fprintf(&b, "    Min: %s%.2f\n", currency, m.SellPrice.Min)
	fmt.Fprintf(&b, "    Max: %s%.2f\n", currency, m.SellPrice.Max)
	fmt.Fprintf(&b, "  System Buy Price (%s/MWh):\n", currency)
	fmt.Fprintf(&b, "    Average: %s%.2f\n", currency, m.BuyPrice.Mean)
	fmt.Fprintf(&b, "    Min: %s%.2f\n", currency, m.BuyPrice.Min)
	fmt.Fprintf(&b, "    Max: %s%.2f\n\n", currency, m.BuyPrice.Max)

	fmt.Fprintf(&b, "Average Price Spread: %s%.2f/MWh\n\n", currency, m.BuyPrice.Mean-m.SellPrice.Mean)
	fmt.Fprintf(&b, "Peak Hour: %s\n", FormatHour(m.Peak.Hour))
	fmt.Fprintf(&b, "  Volume: %.2f MWh (%s)\n", m.Peak.AbsVolumeMWh, m.Peak.Position)

	return b.String()
}

// GeneratePeakReport renders the hour-of-day volume profile with the top
// three hours and the overall peak.
func GeneratePeakReport(stats []HourlyStat, peak PeakHour) string {
	ranked := make([]HourlyStat, len(stats))
	copy(ranked, stats)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AbsVolumeMWh > ranked[j].AbsVolumeMWh
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Imbalance Volume Peak Hours Analysis\n%s\n\n", reportRule)

	fmt.Fprintf(&b, "Top 3 Hours by Total Volume:\n")
	for i := 0; i < 3 && i < len(ranked); i++ {
		fmt.Fprintf(&b, "  %s: %.2f MWh (avg %.2f MWh per period)\n",
			FormatHour(ranked[i].Hour), ranked[i].AbsVolumeMWh, ranked[i].MeanAbsVolumeMWh)
	}

	fmt.Fprintf(&b, "\nPeak Hour:\n")
	fmt.Fprintf(&b, "  Time: %s\n", FormatHour(peak.Hour))
	fmt.Fprintf(&b, "  Volume: %.2f MWh\n", peak.AbsVolumeMWh)
	fmt.Fprintf(&b, "  Direction: %s (net %.2f MWh)\n", peak.Position, peak.NetVolumeMWh)

	return b.String()
}

// GenerateRangeSummary renders multi-day totals and averages.
func GenerateRangeSummary(daily []DailyMetrics, currency string) string {
	if len(daily) == 0 {
		return ""
	}

	var totalCost, totalVolume float64
	for _, m := range daily {
		totalCost += m.TotalCost
		totalVolume += m.AbsVolumeMWh
	}
	days := len(daily)
	avgRate := 0.0
	if totalVolume > 0 {
		avgRate = totalCost / totalVolume
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Imbalance Summary Report\n%s\n", reportRule)
	fmt.Fprintf(&b, "Period: %s to %s (%d days)\n\n", daily[0].Date, daily[days-1].Date, days)
	fmt.Fprintf(&b, "Total Statistics:\n")
	fmt.Fprintf(&b, "  Total Imbalance Cost: %s%.2f\n", currency, math.Abs(totalCost))
	fmt.Fprintf(&b, "  Total Imbalance Volume: %.2f MWh\n", totalVolume)
	fmt.Fprintf(&b, "  Average Daily Cost: %s%.2f\n", currency, math.Abs(totalCost)/float64(days))
	fmt.Fprintf(&b, "  Average Unit Rate: %s%.2f/MWh\n", currency, math.Abs(avgRate))

	return b.String()
}

// FormatHour renders an hour of day as a 24-hour window label.
func FormatHour(h int) string {
	return fmt.Sprintf("%02d:00-%02d:00", h, h+1)
}
