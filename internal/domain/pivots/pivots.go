package pivots

import (
	"fmt"

	"github.com/tradelevels/levelmap/internal/domain/levels"
	"github.com/tradelevels/levelmap/internal/domain/market"
)

// weeklyLookback is the number of completed daily bars aggregated into the
// weekly approximation.
const weeklyLookback = 5

// Params configures pivot projection weights.
type Params struct {
	DailyWeight  float64 `yaml:"daily_weight"`
	WeeklyWeight float64 `yaml:"weekly_weight"`
}

// Validate checks the pivot weights.
func (p Params) Validate() error {
	if p.DailyWeight < 0 || p.WeeklyWeight < 0 {
		return fmt.Errorf("pivot weights must not be negative")
	}
	return nil
}

// Calculate emits classic floor-trader pivot candidates (PP, R1-R3, S1-S3)
// for the completed daily and weekly periods. All pivots are mathematical
// projections with no trade confirmation; they carry SourceProjected so the
// aggregator can cap their standalone strength. A period with invalid OHLC is
// skipped silently.
func Calculate(daily, weekly market.HLC, currentPrice float64, p Params) []levels.Candidate {
	if currentPrice <= 0 {
		return nil
	}
	var out []levels.Candidate
	if daily.Valid() {
		out = append(out, project(daily, currentPrice, "D", p.DailyWeight)...)
	}
	if weekly.Valid() {
		out = append(out, project(weekly, currentPrice, "W", p.WeeklyWeight)...)
	}
	return out
}

// AggregateWeekly approximates the most recent completed weekly bar from the
// last five completed daily bars (high=max, low=min, close=last). The second
// return is false when there are too few daily bars.
func AggregateWeekly(daily []market.Bar) (market.HLC, bool) {
	if len(daily) < weeklyLookback {
		return market.HLC{}, false
	}
	window := daily[len(daily)-weeklyLookback:]
	agg := market.HLC{High: window[0].High, Low: window[0].Low, Close: window[len(window)-1].Close}
	for _, b := range window[1:] {
		if b.High > agg.High {
			agg.High = b.High
		}
		if b.Low < agg.Low {
			agg.Low = b.Low
		}
	}
	return agg, true
}

func project(bar market.HLC, currentPrice float64, periodTag string, weight float64) []levels.Candidate {
	pp := (bar.High + bar.Low + bar.Close) / 3
	rng := bar.High - bar.Low

	points := []struct {
		name  string
		price float64
	}{
		{"PP", pp},
		{"R1", 2*pp - bar.Low},
		{"R2", pp + rng},
		{"R3", bar.High + 2*(pp-bar.Low)},
		{"S1", 2*pp - bar.High},
		{"S2", pp - rng},
		{"S3", bar.Low - 2*(bar.High-pp)},
	}

	out := make([]levels.Candidate, 0, len(points))
	for _, pt := range points {
		if pt.price <= 0 {
			continue
		}
		side := levels.SideSupport
		if pt.price >= currentPrice {
			side = levels.SideResistance
		}
		out = append(out, levels.Candidate{
			Price:      pt.price,
			Source:     fmt.Sprintf("Pivot_%s_%s", periodTag, pt.name),
			Weight:     weight,
			Side:       side,
			Level:      levels.LevelMajor,
			SourceType: levels.SourceProjected,
			Timeframe:  periodTag,
		})
	}
	return out
}
