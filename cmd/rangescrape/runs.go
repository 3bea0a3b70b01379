package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pevans/rangescrape/index"
)

func handleRunsCommand(action string, args []string) {
	switch action {
	case "list":
		handleRunsList(args)
	case "show":
		handleRunsShow(args)
	case "help", "--help", "-h":
		printRunsUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown runs command: %s\n\n", action)
		printRunsUsage()
		os.Exit(1)
	}
}

// openIndex opens the run index named by the flag, env or config file.
func openIndex(fs *flag.FlagSet, configPath, dsn string) *index.Store {
	if !mustGivenFlags(fs, scrapeEnv)["index"] {
		dsn = loadConfig(configPath).Index.DSN
	}
	if dsn == "" {
		fmt.Fprintf(os.Stderr, "Error: run index is not configured (set --index, RANGESCRAPE_INDEX_DSN or index.dsn)\n")
		os.Exit(1)
	}

	store, err := index.NewStore(dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open run index: %v\n", err)
		os.Exit(1)
	}
	return store
}

func handleRunsList(args []string) {
	fs := flag.NewFlagSet("runs list", flag.ExitOnError)
	configPath := fs.String("config", getEnv("RANGESCRAPE_CONFIG", ""), "Path to config file")
	dsn := fs.String("index", getEnv(scrapeEnv["index"], ""), "Path to run index database")
	keyword := fs.String("keyword", "", "Filter by keyword")
	status := fs.String("status", "", "Filter by status (running, done, failed)")
	limit := fs.Int("limit", 20, "Maximum number of runs to show")
	offset := fs.Int("offset", 0, "Number of runs to skip")
	fs.Parse(args)

	filter := index.RunFilter{Limit: *limit, Offset: *offset}
	if *keyword != "" {
		filter.Keyword = keyword
	}
	if *status != "" {
		s := index.Status(*status)
		switch s {
		case index.StatusRunning, index.StatusDone, index.StatusFailed:
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", index.ErrInvalidStatus)
			os.Exit(1)
		}
		filter.Status = &s
	}

	store := openIndex(fs, *configPath, *dsn)
	defer store.Close()

	runs, err := store.ListRuns(filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to list runs: %v\n", err)
		os.Exit(1)
	}

	printRunsTable(os.Stdout, runs)
}

func handleRunsShow(args []string) {
	fs := flag.NewFlagSet("runs show", flag.ExitOnError)
	configPath := fs.String("config", getEnv("RANGESCRAPE_CONFIG", ""), "Path to config file")
	dsn := fs.String("index", getEnv(scrapeEnv["index"], ""), "Path to run index database")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: run ID is required\n")
		fmt.Fprintf(os.Stderr, "Usage: rangescrape runs show <run-id>\n")
		os.Exit(1)
	}

	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid run ID: %v\n", err)
		os.Exit(1)
	}

	store := openIndex(fs, *configPath, *dsn)
	defer store.Close()

	run, err := store.GetRun(id)
	if errors.Is(err, index.ErrRunNotFound) {
		fmt.Fprintf(os.Stderr, "Error: run not found: %s\n", id)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to get run: %v\n", err)
		os.Exit(1)
	}

	entries, err := store.ListPeriods(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to list run periods: %v\n", err)
		os.Exit(1)
	}

	printRunDetail(os.Stdout, run, entries)
}
