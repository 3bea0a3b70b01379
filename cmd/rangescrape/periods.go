package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pevans/rangescrape/periods"
)

func handlePeriods(args []string) {
	fs := flag.NewFlagSet("periods", flag.ExitOnError)
	configPath := fs.String("config", getEnv("RANGESCRAPE_CONFIG", ""), "Path to config file")
	start := fs.String("start", getEnv(scrapeEnv["start"], ""), "First period start date (MM/DD/YYYY)")
	periodCount := fs.Int("periods", getEnvInt(scrapeEnv["periods"], 1), "Number of periods")
	periodicity := fs.String("periodicity", getEnv(scrapeEnv["periodicity"], "M"), "Period length code (D, B, W, M, MS, ...)")
	fs.Parse(args)

	cfg := loadConfig(*configPath).Scrape
	given := mustGivenFlags(fs, scrapeEnv)
	if given["start"] {
		cfg.StartDate = *start
	}
	if given["periods"] {
		cfg.Periods = *periodCount
	}
	if given["periodicity"] {
		cfg.Periodicity = *periodicity
	}

	if cfg.StartDate == "" {
		fmt.Fprintf(os.Stderr, "Error: --start is required\n")
		fmt.Fprintf(os.Stderr, "Usage: rangescrape periods --start MM/DD/YYYY [--periods N] [--periodicity CODE]\n")
		os.Exit(1)
	}

	ps, err := periods.GenerateFrom(cfg.StartDate, cfg.Periods, cfg.Periodicity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to generate periods: %v\n", err)
		os.Exit(1)
	}

	printPeriodsTable(os.Stdout, ps)
}
