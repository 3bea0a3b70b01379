package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	subcommand := os.Args[1]

	switch subcommand {
	case "scrape":
		handleScrape(os.Args[2:])
	case "periods":
		handlePeriods(os.Args[2:])
	case "runs":
		if len(os.Args) < 3 {
			printRunsUsage()
			os.Exit(1)
		}
		handleRunsCommand(os.Args[2], os.Args[3:])
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("rangescrape - Search a keyword over a sequence of date ranges")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  rangescrape <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  scrape     Run a scrape and write one table per period")
	fmt.Println("  periods    Preview the date ranges a scrape would search")
	fmt.Println("  runs       Inspect the run index")
	fmt.Println("  help       Show this help message")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  RANGESCRAPE_CONFIG        Path to config file (default: ~/.rangescrape/config.yaml)")
	fmt.Println("  RANGESCRAPE_KEYWORD       Search keyword")
	fmt.Println("  RANGESCRAPE_START_DATE    First period start date, MM/DD/YYYY")
	fmt.Println("  RANGESCRAPE_PERIODS       Number of periods")
	fmt.Println("  RANGESCRAPE_PERIODICITY   Period length code (D, B, W, M, MS, ...)")
	fmt.Println("  RANGESCRAPE_RESULT_PAGES  Result pages per period")
	fmt.Println("  RANGESCRAPE_OUTPUT_DIR    Directory receiving period tables")
	fmt.Println("  RANGESCRAPE_FORMAT        Table format (csv or jsonl)")
	fmt.Println("  RANGESCRAPE_LANGUAGE      Search UI language link text (empty skips)")
	fmt.Println("  RANGESCRAPE_WAIT          Element lookup timeout, e.g. 5s")
	fmt.Println("  RANGESCRAPE_PACE          Minimum gap between UI interactions, e.g. 500ms")
	fmt.Println("  RANGESCRAPE_BACKEND       Browser backend (playwright or chromedp)")
	fmt.Println("  RANGESCRAPE_HEADLESS      Run the browser headless (true or false)")
	fmt.Println("  RANGESCRAPE_INDEX_DSN     Path to run index database")
	fmt.Println("  RANGESCRAPE_LOG_LEVEL     Log level (debug, info, warn, error)")
	fmt.Println("  RANGESCRAPE_LOG_DIR       Directory receiving log files")
}

func printRunsUsage() {
	fmt.Println("rangescrape runs - Inspect the run index")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  rangescrape runs <action> [arguments]")
	fmt.Println()
	fmt.Println("Actions:")
	fmt.Println("  list       List recorded runs")
	fmt.Println("  show       Show a run and the tables it wrote")
	fmt.Println("  help       Show this help message")
}
