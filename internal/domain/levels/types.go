package levels

import "fmt"

// Side classifies a level relative to current price.
type Side string

const (
	SideSupport    Side = "support"
	SideResistance Side = "resistance"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideSupport {
		return SideResistance
	}
	return SideSupport
}

// Validate returns an error for unknown side values.
func (s Side) Validate() error {
	switch s {
	case SideSupport, SideResistance:
		return nil
	}
	return fmt.Errorf("unknown side %q", string(s))
}

// ImportanceLevel encodes timeframe importance of a level (1D≈major, 4H≈intermediate, 15M≈minor).
type ImportanceLevel string

const (
	LevelMajor        ImportanceLevel = "major"
	LevelIntermediate ImportanceLevel = "intermediate"
	LevelMinor        ImportanceLevel = "minor"
)

// SourceType classifies the evidence behind a candidate.
//
// Structural levels are confirmed by historical price action (swings, volume
// profile). Projected levels are pure mathematical projections with no trade
// confirmation (floor pivots). OrderFlow levels come from live order-book
// imbalance. Static levels are fixed technical bands and round numbers.
type SourceType string

const (
	SourceStructural SourceType = "structural"
	SourceProjected  SourceType = "projected"
	SourceOrderFlow  SourceType = "order_flow"
	SourceStatic     SourceType = "static"
)

// Strength buckets a zone's aggregated weight.
type Strength string

const (
	StrengthLow    Strength = "low"
	StrengthMedium Strength = "medium"
	StrengthHigh   Strength = "high"
)

// Rank orders strengths for monotonicity checks: low < medium < high.
func (s Strength) Rank() int {
	switch s {
	case StrengthMedium:
		return 1
	case StrengthHigh:
		return 2
	default:
		return 0
	}
}

// Candidate is a single piece of evidence for a price level, produced by one
// detector. Meta carries informational extras (bar index, age/volume factors,
// wall sizes) and is never required for correctness.
type Candidate struct {
	Price      float64            `json:"price"`
	Source     string             `json:"source"`
	Weight     float64            `json:"weight"`
	Side       Side               `json:"side"`
	Level      ImportanceLevel    `json:"level"`
	SourceType SourceType         `json:"source_type"`
	Timeframe  string             `json:"timeframe"`
	Meta       map[string]float64 `json:"meta,omitempty"`
}

// MetaWallSize is the Meta key carrying an order wall's size, used to roll
// wall volume up into the owning zone.
const MetaWallSize = "wall_size"

// Zone is a clustered, scored price range believed to act as support or
// resistance. All zones are rebuilt from scratch on every engine call.
type Zone struct {
	Side          Side     `json:"side"`
	PriceCenter   float64  `json:"price_center"`
	PriceLow      float64  `json:"price_low"`
	PriceHigh     float64  `json:"price_high"`
	DistancePct   float64  `json:"distance_pct"` // signed % distance from current price
	TotalWeight   float64  `json:"total_weight"`
	Strength      Strength `json:"strength"`
	TouchCount    int      `json:"touch_count"`
	HasSwingPoint bool     `json:"has_swing_point"`
	HasOrderWall  bool     `json:"has_order_wall"`
	WallSize      float64  `json:"wall_size"`
	Sources       []string `json:"sources"`
}

// HardControl is the binary gating verdict derived from the nearest
// high-strength zones. Conflicting blocks are surfaced, not resolved.
type HardControl struct {
	BlockLong  bool   `json:"block_long"`
	BlockShort bool   `json:"block_short"`
	Reason     string `json:"reason"`
}

// RawDataCounts summarizes the inputs a report was computed from.
type RawDataCounts struct {
	BarCounts map[string]int `json:"bar_counts"`
	ATRValue  float64        `json:"atr_value"`
}

// ZoneReport is the consolidated output of one engine invocation.
type ZoneReport struct {
	AnalysisID        string        `json:"analysis_id,omitempty"`
	Symbol            string        `json:"symbol,omitempty"`
	CurrentPrice      float64       `json:"current_price"`
	SupportZones      []Zone        `json:"support_zones"`
	ResistanceZones   []Zone        `json:"resistance_zones"`
	NearestSupport    *Zone         `json:"nearest_support"`
	NearestResistance *Zone         `json:"nearest_resistance"`
	HardControl       HardControl   `json:"hard_control"`
	ReportText        string        `json:"report_text"`
	RawData           RawDataCounts `json:"raw_data_counts"`
}
