package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/tradelevels/levelmap/internal/domain/levels"
	"github.com/tradelevels/levelmap/internal/domain/pivots"
	"github.com/tradelevels/levelmap/internal/domain/statics"
	"github.com/tradelevels/levelmap/internal/domain/swings"
	"github.com/tradelevels/levelmap/internal/domain/volprofile"
	"github.com/tradelevels/levelmap/internal/engine"
	"github.com/tradelevels/levelmap/internal/gates"
)

// Config is the single validated configuration for the whole analysis
// pipeline. Every threshold and weight is named here; nothing is tuned at
// call sites.
type Config struct {
	Engine        engine.Config     `yaml:"engine"`
	Gate          gates.Config      `yaml:"gate"`
	Swings        []swings.Params   `yaml:"swings"`
	VolumeProfile volprofile.Params `yaml:"volume_profile"`
	Pivots        pivots.Params     `yaml:"pivots"`
	Statics       statics.Config    `yaml:"statics"`

	// DailyTimeframe names the bar series pivots are projected from.
	DailyTimeframe string `yaml:"daily_timeframe"`
	// ATRPeriod is used when a snapshot arrives without a pre-computed ATR.
	ATRPeriod int `yaml:"atr_period"`
}

// Default returns the production configuration: three swing timeframes with
// decreasing importance, a short-timeframe volume profile, daily/weekly
// pivots and standard band weights.
func Default() Config {
	return Config{
		Engine: engine.DefaultConfig(),
		Gate:   gates.DefaultConfig(),
		Swings: []swings.Params{
			{Timeframe: "1d", BaseWeight: 2.0, Level: levels.LevelMajor, LeftBars: 3, RightBars: 3, MaxAge: 90, VolumeWeighting: true},
			{Timeframe: "4h", BaseWeight: 1.5, Level: levels.LevelIntermediate, LeftBars: 3, RightBars: 3, MaxAge: 120, VolumeWeighting: true},
			{Timeframe: "15m", BaseWeight: 1.0, Level: levels.LevelMinor, LeftBars: 2, RightBars: 2, MaxAge: 96, VolumeWeighting: true},
		},
		VolumeProfile: volprofile.Params{
			Timeframe:    "15m",
			ValueAreaPct: 0.70,
			MinBins:      20,
			MaxBins:      100,
			VPOCWeight:   1.5,
			EdgeWeight:   1.0,
		},
		Pivots: pivots.Params{
			DailyWeight:  1.0,
			WeeklyWeight: 1.2,
		},
		Statics: statics.Config{
			BandTimeframe:  "4h",
			BBWeight:       0.6,
			SMAWeight:      0.8,
			WallBaseWeight: 1.0,
			WallMaxZBoost:  3.0,
		},
		DailyTimeframe: "1d",
		ATRPeriod:      14,
	}
}

// Load reads a YAML file over the defaults, so partial files only override
// what they name, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks every section once, at construction time.
func (c Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.Gate.Validate(); err != nil {
		return fmt.Errorf("gate: %w", err)
	}
	for i, sw := range c.Swings {
		if err := sw.Validate(); err != nil {
			return fmt.Errorf("swings[%d]: %w", i, err)
		}
	}
	if err := c.VolumeProfile.Validate(); err != nil {
		return fmt.Errorf("volume_profile: %w", err)
	}
	if err := c.Pivots.Validate(); err != nil {
		return fmt.Errorf("pivots: %w", err)
	}
	if err := c.Statics.Validate(); err != nil {
		return fmt.Errorf("statics: %w", err)
	}
	if c.DailyTimeframe == "" {
		return fmt.Errorf("daily_timeframe must not be empty")
	}
	if c.ATRPeriod < 1 {
		return fmt.Errorf("atr_period must be at least 1, got %d", c.ATRPeriod)
	}
	return nil
}
