package process

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"bmrs-report/internal/model"
)

// WriteSeriesCSV exports aligned price and volume series to one CSV, a row
// per settlement period. The two series must cover the same dates in the
// same order, which CleanAndProcessRange guarantees.
func WriteSeriesCSV(path string, prices []model.PriceSeries, volumes []model.VolumeSeries) error {
	if len(prices) != len(volumes) {
		return fmt.Errorf("series length mismatch: %d price days, %d volume days", len(prices), len(volumes))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"settlement_date",
		"settlement_period",
		"start_time",
		"system_sell_price",
		"system_buy_price",
		"price_spread",
		"net_imbalance_volume",
		"abs_imbalance_volume",
		"price_quality",
		"volume_quality",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, day := range prices {
		vols := volumes[i]
		if day.Date != vols.Date || len(day.Points) != len(vols.Points) {
			return fmt.Errorf("series misaligned on %s", day.Date)
		}
		for j, pp := range day.Points {
			vp := vols.Points[j]
			row := []string{
				pp.SettlementDate,
				strconv.Itoa(pp.SettlementPeriod),
				fmtTime(pp.StartTime),
				fmtFloat(pp.SystemSellPrice),
				fmtFloat(pp.SystemBuyPrice),
				fmtFloat(pp.PriceSpread),
				fmtFloat(vp.NetImbalanceVolume),
				fmtFloat(vp.AbsImbalanceVolume),
				string(pp.Quality),
				string(vp.Quality),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
