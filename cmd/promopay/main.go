// Command promopay allocates a batch of purchase orders across payment
// instruments and prints the per-instrument spend.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/promopay/promopay/config"
	"github.com/promopay/promopay/internal/engine"
	"github.com/promopay/promopay/internal/loader"
	"github.com/promopay/promopay/internal/observability"
)

const usage = "usage: promopay [-config file] <orders.json> <instruments.json>"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("promopay", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "path to an optional YAML settings file")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	positional := flags.Args()
	if len(positional) != 2 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	settings, loadedFromFile, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "promopay: %v\n", err)
		return 1
	}

	logger := observability.NewSlogLogger(stderr, observability.ParseLevel(settings.LogLevel))
	observability.SetLogger(logger)
	if *configPath != "" && !loadedFromFile {
		logger.Warn("configuration file not found, using defaults",
			observability.F("path", *configPath))
	}

	orders, err := loader.LoadOrders(positional[0])
	if err != nil {
		logger.Error("loading orders failed", observability.F("error", err.Error()))
		return 1
	}
	ledger, err := loader.LoadInstruments(positional[1])
	if err != nil {
		logger.Error("loading instruments failed", observability.F("error", err.Error()))
		return 1
	}

	eng := engine.New(orders, ledger,
		engine.WithParallelism(settings.Parallelism),
		engine.WithPhaseTimeout(settings.PhaseTimeout),
		engine.WithPointsID(settings.PointsID))

	result, err := eng.Optimize(context.Background())
	if err != nil {
		logger.Error("allocation failed", observability.F("error", err.Error()))
		return 1
	}

	if err := result.Render(stdout); err != nil {
		logger.Error("rendering result failed", observability.F("error", err.Error()))
		return 1
	}
	return 0
}
