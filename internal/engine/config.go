package engine

import "fmt"

// RoundNumberConfig controls injection of psychological round-number levels
// before clustering.
type RoundNumberConfig struct {
	Enabled bool    `yaml:"enabled"`
	Step    float64 `yaml:"step"`   // price step, e.g. 1000 for BTC
	Count   int     `yaml:"count"`  // levels injected per side
	Weight  float64 `yaml:"weight"` // low base weight
}

// Config holds every aggregator threshold and weight. All percentage values
// are fractions (0.005 = 0.5%).
type Config struct {
	// Clustering
	ClusterThresholdPct  float64 `yaml:"cluster_threshold_pct"`  // fixed-mode cluster tolerance
	ATRAdaptive          bool    `yaml:"atr_adaptive"`           // widen/tighten clustering with volatility
	ATRClusterMultiplier float64 `yaml:"atr_cluster_multiplier"` // threshold = mult*ATR/price, clamped
	ATRMinPct            float64 `yaml:"atr_min_pct"`
	ATRMaxPct            float64 `yaml:"atr_max_pct"`

	// Weight aggregation
	SameDataWeightCap float64 `yaml:"same_data_weight_cap"` // cap per source-family within a cluster
	MaxZoneWeight     float64 `yaml:"max_zone_weight"`

	// Confluence bonuses for independent corroboration
	ConfluenceBonus2 float64 `yaml:"confluence_bonus_2"` // >=2 distinct source types
	ConfluenceBonus3 float64 `yaml:"confluence_bonus_3"` // >=3 distinct source types

	// Touch-count scoring
	TouchThresholdATR float64 `yaml:"touch_threshold_atr"` // touch band = mult*ATR around center
	OptimalTouchesMin int     `yaml:"optimal_touches_min"` // 2-3 tests are most predictive
	OptimalTouchesMax int     `yaml:"optimal_touches_max"`
	TouchBonus        float64 `yaml:"touch_bonus"`
	DecayAfterTouches int     `yaml:"decay_after_touches"` // over-tested levels tend to break
	TouchDecayStep    float64 `yaml:"touch_decay_step"`    // weight removed per touch past the decay point
	TouchTimeframe    string  `yaml:"touch_timeframe"`     // empty = timeframe with the most bars

	// Zone bounds
	ZoneExpandPct float64 `yaml:"zone_expand_pct"` // outward padding to tolerate near-misses

	// Strength classification (monotonic in total weight)
	StrengthMediumMin float64 `yaml:"strength_medium_min"`
	StrengthHighMin   float64 `yaml:"strength_high_min"`

	RoundNumbers RoundNumberConfig `yaml:"round_numbers"`
}

// DefaultConfig returns production defaults for the aggregator.
func DefaultConfig() Config {
	return Config{
		ClusterThresholdPct:  0.005,
		ATRAdaptive:          true,
		ATRClusterMultiplier: 0.5,
		ATRMinPct:            0.002,
		ATRMaxPct:            0.015,

		SameDataWeightCap: 2.5,
		MaxZoneWeight:     10.0,

		ConfluenceBonus2: 1.0,
		ConfluenceBonus3: 2.0,

		TouchThresholdATR: 0.25,
		OptimalTouchesMin: 2,
		OptimalTouchesMax: 3,
		TouchBonus:        0.75,
		DecayAfterTouches: 5,
		TouchDecayStep:    0.25,

		ZoneExpandPct: 0.001,

		StrengthMediumMin: 3.0,
		StrengthHighMin:   6.0,

		RoundNumbers: RoundNumberConfig{
			Enabled: true,
			Step:    1000,
			Count:   2,
			Weight:  0.4,
		},
	}
}

// Validate rejects configurations the engine cannot run with. This is the
// only place a caller mistake surfaces as an error; data-completeness issues
// never do.
func (c Config) Validate() error {
	if c.ClusterThresholdPct <= 0 {
		return fmt.Errorf("cluster_threshold_pct must be positive, got %v", c.ClusterThresholdPct)
	}
	if c.ATRAdaptive {
		if c.ATRClusterMultiplier <= 0 {
			return fmt.Errorf("atr_cluster_multiplier must be positive, got %v", c.ATRClusterMultiplier)
		}
		if c.ATRMinPct <= 0 || c.ATRMaxPct < c.ATRMinPct {
			return fmt.Errorf("atr pct clamp invalid: min=%v max=%v", c.ATRMinPct, c.ATRMaxPct)
		}
	}
	if c.SameDataWeightCap <= 0 {
		return fmt.Errorf("same_data_weight_cap must be positive, got %v", c.SameDataWeightCap)
	}
	if c.MaxZoneWeight <= 0 {
		return fmt.Errorf("max_zone_weight must be positive, got %v", c.MaxZoneWeight)
	}
	if c.ConfluenceBonus2 < 0 || c.ConfluenceBonus3 < c.ConfluenceBonus2 {
		return fmt.Errorf("confluence bonuses must satisfy 0 <= bonus_2 <= bonus_3, got %v/%v", c.ConfluenceBonus2, c.ConfluenceBonus3)
	}
	if c.TouchThresholdATR < 0 || c.TouchBonus < 0 || c.TouchDecayStep < 0 {
		return fmt.Errorf("touch scoring parameters must not be negative")
	}
	if c.OptimalTouchesMin < 1 || c.OptimalTouchesMax < c.OptimalTouchesMin {
		return fmt.Errorf("optimal touch range invalid: %d-%d", c.OptimalTouchesMin, c.OptimalTouchesMax)
	}
	if c.DecayAfterTouches < c.OptimalTouchesMax {
		return fmt.Errorf("decay_after_touches %d must not precede optimal_touches_max %d", c.DecayAfterTouches, c.OptimalTouchesMax)
	}
	if c.ZoneExpandPct < 0 {
		return fmt.Errorf("zone_expand_pct must not be negative, got %v", c.ZoneExpandPct)
	}
	if c.StrengthMediumMin <= 0 || c.StrengthHighMin <= c.StrengthMediumMin {
		return fmt.Errorf("strength thresholds must satisfy 0 < medium < high, got %v/%v", c.StrengthMediumMin, c.StrengthHighMin)
	}
	if c.RoundNumbers.Enabled {
		if c.RoundNumbers.Step <= 0 {
			return fmt.Errorf("round number step must be positive, got %v", c.RoundNumbers.Step)
		}
		if c.RoundNumbers.Count < 1 {
			return fmt.Errorf("round number count must be at least 1, got %d", c.RoundNumbers.Count)
		}
		if c.RoundNumbers.Weight < 0 {
			return fmt.Errorf("round number weight must not be negative, got %v", c.RoundNumbers.Weight)
		}
	}
	return nil
}
