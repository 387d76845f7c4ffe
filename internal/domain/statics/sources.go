package statics

import (
	"fmt"

	"github.com/tradelevels/levelmap/internal/domain/levels"
	"github.com/tradelevels/levelmap/internal/domain/market"
)

// Config holds base weights for the collaborator-fed candidate sources.
type Config struct {
	BandTimeframe  string  `yaml:"band_timeframe"` // timeframe tag the bands were computed on
	BBWeight       float64 `yaml:"bb_weight"`
	SMAWeight      float64 `yaml:"sma_weight"`
	WallBaseWeight float64 `yaml:"wall_base_weight"`
	WallMaxZBoost  float64 `yaml:"wall_max_z_boost"` // z-score multiplier cap
}

// Validate checks the static source weights.
func (c Config) Validate() error {
	if c.BBWeight < 0 || c.SMAWeight < 0 || c.WallBaseWeight < 0 {
		return fmt.Errorf("static source weights must not be negative")
	}
	if c.WallMaxZBoost < 1 {
		return fmt.Errorf("wall_max_z_boost must be at least 1, got %v", c.WallMaxZBoost)
	}
	return nil
}

// BandCandidates turns pre-computed Bollinger and SMA values into static
// candidates, sided by comparison with current price. Non-positive band
// values are skipped.
func BandCandidates(bands *market.TechnicalBands, currentPrice float64, cfg Config) []levels.Candidate {
	if bands == nil || currentPrice <= 0 {
		return nil
	}
	var out []levels.Candidate
	add := func(price float64, label string, weight float64, level levels.ImportanceLevel) {
		if price <= 0 {
			return
		}
		side := levels.SideSupport
		if price >= currentPrice {
			side = levels.SideResistance
		}
		out = append(out, levels.Candidate{
			Price:      price,
			Source:     label,
			Weight:     weight,
			Side:       side,
			Level:      level,
			SourceType: levels.SourceStatic,
			Timeframe:  cfg.BandTimeframe,
		})
	}

	add(bands.BBUpper, "BB_Upper", cfg.BBWeight, levels.LevelIntermediate)
	add(bands.BBMiddle, "BB_Middle", cfg.BBWeight, levels.LevelIntermediate)
	add(bands.BBLower, "BB_Lower", cfg.BBWeight, levels.LevelIntermediate)

	for period, value := range bands.SMA {
		level := levels.LevelIntermediate
		if period == "200" {
			level = levels.LevelMajor
		}
		add(value, fmt.Sprintf("SMA_%s", period), cfg.SMAWeight, level)
	}
	return out
}

// WallCandidates converts order-book wall anomalies into order-flow
// candidates. Wall weight scales with the anomaly z-score, clamped to
// [1, WallMaxZBoost] so a single extreme wall cannot dominate.
func WallCandidates(book *market.OrderBookAnomalies, currentPrice float64, cfg Config) []levels.Candidate {
	if book == nil || currentPrice <= 0 {
		return nil
	}
	var out []levels.Candidate
	add := func(w market.BookWall, label string) {
		if w.Price <= 0 || w.Size <= 0 {
			return
		}
		boost := w.ZScore
		if boost < 1 {
			boost = 1
		}
		if boost > cfg.WallMaxZBoost {
			boost = cfg.WallMaxZBoost
		}
		side := levels.SideSupport
		if w.Price >= currentPrice {
			side = levels.SideResistance
		}
		out = append(out, levels.Candidate{
			Price:      w.Price,
			Source:     label,
			Weight:     cfg.WallBaseWeight * boost,
			Side:       side,
			Level:      levels.LevelIntermediate,
			SourceType: levels.SourceOrderFlow,
			Timeframe:  "book",
			Meta:       map[string]float64{levels.MetaWallSize: w.Size, "z_score": w.ZScore},
		})
	}
	for _, w := range book.BidWalls {
		add(w, "OrderWall_Bid")
	}
	for _, w := range book.AskWalls {
		add(w, "OrderWall_Ask")
	}
	return out
}
