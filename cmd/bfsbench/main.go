package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/pjavanrood/csrbench/internal/config"
	"github.com/pjavanrood/csrbench/internal/util"
	"github.com/pjavanrood/csrbench/pkg/bench"
	"github.com/pjavanrood/csrbench/pkg/csr"
	"github.com/pjavanrood/csrbench/pkg/device"
	"github.com/pjavanrood/csrbench/pkg/dist"
	"github.com/pjavanrood/csrbench/pkg/edgelist"
)

var log = util.New("Benchmark", util.LogLevelInfo)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	reportPath := flag.String("report", "", "Output file for the JSON report (overrides runner.report_path)")
	trials := flag.Int("trials", 0, "Number of timed trials per cell (overrides runner.trials)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *trials > 0 {
		cfg.Runner.Trials = *trials
	}
	if *reportPath != "" {
		cfg.Runner.ReportPath = *reportPath
	}

	// Update log levels from config
	level := cfg.GetLogLevel()
	log.SetLevel(level)
	bench.SetLogLevel(level)
	edgelist.SetLogLevel(level)
	dist.SetLogLevel(level)
	device.SetLogLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, err := bench.NewRunner(ctx, cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to set up backends: %v", err)
	}

	report, err := runner.Run(ctx)
	if cerr := runner.Close(); cerr != nil {
		log.Warnf("Failed to close backends: %v", cerr)
	}
	if err != nil {
		if errors.Is(err, csr.ErrStructural) {
			log.Fatalf("Structural invariant violated: %v", err)
		}
		log.Fatalf("Benchmark aborted: %v", err)
	}

	if cfg.Runner.ReportPath != "" {
		if err := report.WriteJSON(cfg.Runner.ReportPath); err != nil {
			log.Fatalf("%v", err)
		}
		log.Printf("Benchmark results written to %s", cfg.Runner.ReportPath)
	}

	if !report.Passed() {
		log.Errorf("%d of %d cells failed verification", report.Failed(), len(report.Cells))
		os.Exit(1)
	}
}
