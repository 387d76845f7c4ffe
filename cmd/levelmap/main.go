package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	httpiface "github.com/tradelevels/levelmap/internal/interfaces/http"
)

const (
	appName = "levelmap"
	version = "v1.0.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	httpiface.Version = version

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Support/resistance zone engine for automated trading pipelines",
		Version: version,
		Long: `levelmap consumes raw market observations (multi-timeframe bars, technical
bands, order-book walls) and produces a confidence-scored map of support and
resistance zones plus a hard block/allow gating decision.`,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a market snapshot file",
		Long:  "Reads a snapshot JSON file, runs all detectors and the aggregator, and prints the zone report",
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().String("input", "", "Path to snapshot JSON file (required)")
	analyzeCmd.Flags().String("config", "", "Path to YAML config (defaults when omitted)")
	analyzeCmd.Flags().Bool("json", false, "Print the full report as JSON instead of the narrative text")
	_ = analyzeCmd.MarkFlagRequired("input")

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Start the analysis HTTP server",
		Long:  "Starts an HTTP server with POST /analyze, /health and /metrics endpoints",
		RunE:  runMonitor,
	}
	monitorCmd.Flags().String("addr", "127.0.0.1:8087", "Listen address")
	monitorCmd.Flags().String("config", "", "Path to YAML config (defaults when omitted)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(monitorCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
