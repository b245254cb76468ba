package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"bmrs-report/internal/analysis"
	"bmrs-report/internal/config"
	"bmrs-report/internal/data"
	"bmrs-report/internal/process"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "report":
		cmdReport(os.Args[2:])
	case "peaks":
		cmdPeaks(os.Args[2:])
	case "fetch":
		cmdFetch(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli report --start 2024-03-01 --end 2024-03-07 [--config config.yaml] [--out results/series.csv]")
	fmt.Println("  cli peaks --data saved_response.json")
	fmt.Println("  cli fetch --date 2024-03-01 [--period 12] --out saved_response.json")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - report fetches imbalance prices/volumes from Elexon and prints daily reports")
	fmt.Println("  - set ELEXON_API_KEY in the environment (or elexon.api_key in the config)")
	fmt.Println("  - peaks runs the hourly volume analysis over a saved response, no network")
}

func cmdReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	start := fs.String("start", "", "Start settlement date (YYYY-MM-DD)")
	end := fs.String("end", "", "End settlement date (YYYY-MM-DD, defaults to start)")
	cfgPath := fs.String("config", "", "Path to YAML config (optional)")
	outPath := fs.String("out", "", "Optional path to write the cleaned series CSV")
	_ = fs.Parse(args)

	if *start == "" {
		fmt.Println("--start is required")
		os.Exit(2)
	}
	if *end == "" {
		*end = *start
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	client := data.NewElexonClient(cfg.Elexon)
	res, err := analysis.Run(context.Background(), client, analysis.Options{
		StartDate:    *start,
		EndDate:      *end,
		Currency:     cfg.Report.Currency,
		MaxRangeDays: cfg.Report.MaxRangeDays,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	printResult(res)

	if *outPath != "" {
		if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
			panic(err)
		}
		if err := process.WriteSeriesCSV(*outPath, res.Prices, res.Volumes); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote cleaned series to %s\n", *outPath)
	}
}

func cmdPeaks(args []string) {
	fs := flag.NewFlagSet("peaks", flag.ExitOnError)
	dataPath := fs.String("data", "sample_data.json", "Path to a saved settlement response JSON")
	_ = fs.Parse(args)

	resp, err := data.LoadSettlementJSON(*dataPath)
	if err != nil {
		panic(err)
	}

	res, err := analysis.RunRecords(resp.Data, analysis.Options{})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(res.PeakReport)
	printWarnings(res.Warnings)
}

func cmdFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	date := fs.String("date", "", "Settlement date (YYYY-MM-DD)")
	period := fs.Int("period", 0, "Optional settlement period (1-48, 0=whole day)")
	cfgPath := fs.String("config", "", "Path to YAML config (optional)")
	outPath := fs.String("out", "saved_response.json", "Output JSON path")
	_ = fs.Parse(args)

	if *date == "" {
		fmt.Println("--date is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	client := data.NewElexonClient(cfg.Elexon)
	records, err := client.GetImbalanceData(context.Background(), *date, *period)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if err := data.SaveSettlementJSON(*outPath, records); err != nil {
		panic(err)
	}
	fmt.Printf("Wrote %d records to %s\n", len(records), *outPath)
}

func printResult(res *analysis.Result) {
	fmt.Println(res.PeakReport)

	fmt.Println("Daily Reports:")
	fmt.Println("==================================================")
	for _, m := range res.Daily {
		fmt.Println()
		fmt.Println(res.DailyReports[m.Date])
	}

	if len(res.Daily) > 1 {
		fmt.Println()
		fmt.Println(res.RangeSummary)
	}

	printWarnings(res.Warnings)
}

func printWarnings(warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Println("\nData Quality Warnings:")
	fmt.Println("==================================================")
	for _, w := range warnings {
		fmt.Printf("  - %s\n", w)
	}
}
