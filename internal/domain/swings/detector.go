package swings

import (
	"fmt"

	"github.com/tradelevels/levelmap/internal/domain/levels"
	"github.com/tradelevels/levelmap/internal/domain/market"
)

// Params configures swing detection for one timeframe.
type Params struct {
	Timeframe       string                 `yaml:"timeframe"`
	BaseWeight      float64                `yaml:"base_weight"`
	Level           levels.ImportanceLevel `yaml:"level"`
	LeftBars        int                    `yaml:"left_bars"`
	RightBars       int                    `yaml:"right_bars"`
	MaxAge          int                    `yaml:"max_age"`          // only the most recent MaxAge bars are scanned
	VolumeWeighting bool                   `yaml:"volume_weighting"` // scale weight by volume percentile rank
}

// Validate checks the detection window parameters.
func (p Params) Validate() error {
	if p.Timeframe == "" {
		return fmt.Errorf("swing timeframe must not be empty")
	}
	if p.BaseWeight < 0 {
		return fmt.Errorf("swing base weight must not be negative, got %v", p.BaseWeight)
	}
	if p.LeftBars < 1 || p.RightBars < 1 {
		return fmt.Errorf("swing window needs at least 1 bar on each side, got left=%d right=%d", p.LeftBars, p.RightBars)
	}
	if p.MaxAge < p.LeftBars+p.RightBars+1 {
		return fmt.Errorf("swing max_age %d smaller than minimum window %d", p.MaxAge, p.LeftBars+p.RightBars+1)
	}
	return nil
}

// Detect emits structural swing high/low candidates from the given bars.
//
// A bar is a swing high when its high is >= every high in the surrounding
// [i-left, i+right] window (ties qualify); swing lows are symmetric on lows.
// Side assignment implements the S/R flip: a swing high already broken by
// price (below current price) is reclassified as support, and a broken swing
// low as resistance. Returns an empty slice when fewer than
// left+right+1 bars are available.
func Detect(bars []market.Bar, currentPrice float64, p Params) []levels.Candidate {
	window := bars
	if p.MaxAge > 0 && len(window) > p.MaxAge {
		window = window[len(window)-p.MaxAge:]
	}
	minBars := p.LeftBars + p.RightBars + 1
	if len(window) < minBars || currentPrice <= 0 {
		return nil
	}

	volumes := make([]float64, len(window))
	haveVolume := false
	for i, b := range window {
		volumes[i] = b.Volume
		if b.Volume > 0 {
			haveVolume = true
		}
	}

	var out []levels.Candidate
	n := len(window)
	for i := p.LeftBars; i < n-p.RightBars; i++ {
		isHigh, isLow := true, true
		for j := i - p.LeftBars; j <= i+p.RightBars; j++ {
			if j == i {
				continue
			}
			if window[j].High > window[i].High {
				isHigh = false
			}
			if window[j].Low < window[i].Low {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if !isHigh && !isLow {
			continue
		}

		barsAgo := n - 1 - i
		age := ageFactor(barsAgo, p.MaxAge)
		vol := volumeFactor(volumes, i, p.VolumeWeighting, haveVolume)

		if isHigh {
			out = append(out, candidate(window[i].High, true, currentPrice, i, age, vol, p))
		}
		if isLow && !isHigh {
			out = append(out, candidate(window[i].Low, false, currentPrice, i, age, vol, p))
		}
	}
	return out
}

func candidate(price float64, isHigh bool, currentPrice float64, barIndex int, age, vol float64, p Params) levels.Candidate {
	var side levels.Side
	var label string
	if isHigh {
		label = fmt.Sprintf("Swing_High_%s", p.Timeframe)
		// Resistance unless price has already broken above it.
		side = levels.SideResistance
		if price < currentPrice {
			side = levels.SideSupport
		}
	} else {
		label = fmt.Sprintf("Swing_Low_%s", p.Timeframe)
		side = levels.SideSupport
		if price > currentPrice {
			side = levels.SideResistance
		}
	}
	return levels.Candidate{
		Price:      price,
		Source:     label,
		Weight:     p.BaseWeight * age * vol,
		Side:       side,
		Level:      p.Level,
		SourceType: levels.SourceStructural,
		Timeframe:  p.Timeframe,
		Meta: map[string]float64{
			"bar_index":     float64(barIndex),
			"age_factor":    age,
			"volume_factor": vol,
		},
	}
}

// ageFactor decays linearly from 1.0 toward a floor of 0.5 as the swing ages.
func ageFactor(barsAgo, maxAge int) float64 {
	if maxAge <= 0 {
		return 1.0
	}
	f := 1.0 - 0.5*float64(barsAgo)/float64(maxAge)
	if f < 0.5 {
		return 0.5
	}
	return f
}

// volumeFactor maps the bar's percentile rank among in-window volumes onto
// [0.3, 1.0]: rank >= 0.7 scores full weight, rank < 0.3 floors at 0.3, and
// the middle band interpolates 0.5 -> 1.0.
func volumeFactor(volumes []float64, i int, weighting, haveVolume bool) float64 {
	if !weighting {
		return 1.0
	}
	if !haveVolume {
		return 0.5
	}
	rank := percentileRank(volumes, volumes[i])
	switch {
	case rank >= 0.7:
		return 1.0
	case rank >= 0.3:
		return 0.5 + (rank-0.3)/0.4*0.5
	default:
		return 0.3
	}
}

func percentileRank(values []float64, v float64) float64 {
	if len(values) == 0 {
		return 0
	}
	below := 0
	for _, x := range values {
		if x <= v {
			below++
		}
	}
	return float64(below) / float64(len(values))
}
