package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tradelevels/levelmap/internal/application"
	"github.com/tradelevels/levelmap/internal/config"
	"github.com/tradelevels/levelmap/internal/domain/market"
)

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read snapshot file %s: %w", input, err)
	}
	var snap market.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to parse snapshot JSON: %w", err)
	}

	analyzer, err := application.New(cfg, log.Logger)
	if err != nil {
		return err
	}

	report, err := analyzer.Analyze(&snap)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Print(report.ReportText)
	return nil
}
