// Command ingest runs the ingestion pipeline once over a local spreadsheet
// and prints the summary as JSON.
//
//	ingest -file roll.xlsx [-driver memory|postgres|mongo] [-stop-on-error]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/xinlong-d2/signup-admin/internal/app"
	"github.com/xinlong-d2/signup-admin/internal/config"
	"github.com/xinlong-d2/signup-admin/internal/ingest"
	"github.com/xinlong-d2/signup-admin/internal/platform/clock"
	"github.com/xinlong-d2/signup-admin/internal/service"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code so the flow stays testable.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "spreadsheet to ingest (.xlsx or .csv)")
	driver := fs.String("driver", "", "record store: postgres, mongo or memory (default from STORE_DRIVER)")
	stopOnError := fs.Bool("stop-on-error", false, "stop at the first store error instead of counting it")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *file == "" {
		fmt.Fprintln(stderr, "ingest: -file is required")
		fs.Usage()
		return 2
	}
	if *driver != "" {
		os.Setenv("STORE_DRIVER", *driver) //nolint:errcheck
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "ingest: configuration error: %v\n", err)
		return 1
	}
	logger := app.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.NewSystemClock()
	store, err := app.OpenStore(ctx, cfg, clk, logger)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		return 1
	}
	defer store.Close()

	f, err := os.Open(*file)
	if err != nil {
		logger.Error("failed to open file", "file", *file, "error", err)
		return 1
	}
	defer f.Close()

	pipeline := ingest.NewPipeline(store.Registrants, store.Registrations, ingest.Options{
		Location:         cfg.Location,
		Clock:            clk,
		StopOnStoreError: *stopOnError,
		Logger:           logger,
	})
	sum, err := service.NewIngestService(pipeline, nil).Upload(ctx, f.Name(), f)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	//nolint:errcheck
	enc.Encode(sum)

	if err != nil {
		if !errors.Is(err, ingest.ErrFileFormat) {
			logger.Error("ingestion stopped", "error", err)
		}
		return 1
	}
	return 0
}
