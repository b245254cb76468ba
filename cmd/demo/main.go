package main

import (
	"flag"
	"fmt"

	"bmrs-report/internal/analysis"
	"bmrs-report/internal/data"
)

// Demo:
// - Load a saved settlement response from sample_data.json
// - Run the full cleaning and analysis pipeline offline
// - Print the daily report and peak-hours analysis
func main() {
	dataPath := flag.String("data", "sample_data.json", "Path to saved settlement response JSON")
	flag.Parse()

	resp, err := data.LoadSettlementJSON(*dataPath)
	if err != nil {
		panic(err)
	}
	if len(resp.Data) == 0 {
		panic("no data in JSON")
	}

	res, err := analysis.RunRecords(resp.Data, analysis.Options{})
	if err != nil {
		panic(err)
	}

	for _, m := range res.Daily {
		fmt.Println(res.DailyReports[m.Date])
		fmt.Println()
	}
	fmt.Println(res.PeakReport)

	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
}
