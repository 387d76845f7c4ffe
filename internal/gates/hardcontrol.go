package gates

import (
	"fmt"
	"strings"

	"github.com/tradelevels/levelmap/internal/domain/levels"
)

// ThresholdMode selects how the minimum-room distance threshold is derived.
type ThresholdMode string

const (
	// ModeFixed uses a fixed percentage of current price.
	ModeFixed ThresholdMode = "fixed"
	// ModeATR scales the threshold with volatility, clamped to a band.
	ModeATR ThresholdMode = "atr"
)

// Config contains the hard control thresholds. Percentages are fractions
// (0.015 = 1.5%).
type Config struct {
	Mode          ThresholdMode `yaml:"mode"`
	FixedPct      float64       `yaml:"fixed_pct"`
	ATRMultiplier float64       `yaml:"atr_multiplier"`
	ATRMinPct     float64       `yaml:"atr_min_pct"`
	ATRMaxPct     float64       `yaml:"atr_max_pct"`
}

// DefaultConfig returns production hard-control thresholds.
func DefaultConfig() Config {
	return Config{
		Mode:          ModeATR,
		FixedPct:      0.015,
		ATRMultiplier: 0.5,
		ATRMinPct:     0.005,
		ATRMaxPct:     0.02,
	}
}

// Validate rejects unusable threshold configurations at construction time.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeFixed:
		if c.FixedPct <= 0 {
			return fmt.Errorf("fixed_pct must be positive, got %v", c.FixedPct)
		}
	case ModeATR:
		if c.ATRMultiplier <= 0 {
			return fmt.Errorf("atr_multiplier must be positive, got %v", c.ATRMultiplier)
		}
		if c.ATRMinPct <= 0 || c.ATRMaxPct < c.ATRMinPct {
			return fmt.Errorf("atr pct clamp invalid: min=%v max=%v", c.ATRMinPct, c.ATRMaxPct)
		}
	default:
		return fmt.Errorf("unknown threshold mode %q", string(c.Mode))
	}
	return nil
}

// Decide translates the nearest zones into a block/allow verdict.
//
// LONG entries are blocked when a High-strength resistance sits within the
// effective threshold above current price: there is not enough room before a
// reaction is likely. SHORT entries are blocked symmetrically against a
// High-strength support below. Medium and Low zones never block. Both
// directions can block at once when price is squeezed between two strong
// zones; that conflict is reported, never resolved here.
func Decide(nearestSupport, nearestResistance *levels.Zone, currentPrice, atr float64, cfg Config) levels.HardControl {
	if currentPrice <= 0 {
		return levels.HardControl{Reason: "no decision: invalid current price"}
	}

	threshold := cfg.effectiveThresholdPct(currentPrice, atr)
	var reasons []string
	out := levels.HardControl{}

	if nearestResistance != nil && nearestResistance.Strength == levels.StrengthHigh {
		distPct := (nearestResistance.PriceCenter - currentPrice) / currentPrice
		if distPct >= 0 && distPct <= threshold {
			out.BlockLong = true
			reasons = append(reasons, fmt.Sprintf(
				"LONG blocked: high-strength resistance at %.2f is %.2f%% above price (threshold %.2f%%)",
				nearestResistance.PriceCenter, distPct*100, threshold*100))
		}
	}

	if nearestSupport != nil && nearestSupport.Strength == levels.StrengthHigh {
		distPct := (currentPrice - nearestSupport.PriceCenter) / currentPrice
		if distPct >= 0 && distPct <= threshold {
			out.BlockShort = true
			reasons = append(reasons, fmt.Sprintf(
				"SHORT blocked: high-strength support at %.2f is %.2f%% below price (threshold %.2f%%)",
				nearestSupport.PriceCenter, distPct*100, threshold*100))
		}
	}

	if len(reasons) == 0 {
		out.Reason = "clear: no high-strength zone within threshold"
	} else {
		out.Reason = strings.Join(reasons, "; ")
	}
	return out
}

// effectiveThresholdPct computes the minimum-room threshold as a fraction of
// price. ATR mode degrades to the clamp floor when ATR is missing.
func (c Config) effectiveThresholdPct(currentPrice, atr float64) float64 {
	if c.Mode == ModeFixed {
		return c.FixedPct
	}
	if atr <= 0 || currentPrice <= 0 {
		return c.ATRMinPct
	}
	pct := c.ATRMultiplier * atr / currentPrice
	if pct < c.ATRMinPct {
		return c.ATRMinPct
	}
	if pct > c.ATRMaxPct {
		return c.ATRMaxPct
	}
	return pct
}
