package market

import (
	"fmt"
	"time"
)

// Bar is one OHLCV candle. Sequences are always ordered oldest to newest.
type Bar struct {
	OpenTime time.Time `json:"open_time,omitempty"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Range returns the high-low spread of the bar.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// HLC is the high/low/close triple of a completed period, the input for
// floor-trader pivot projection.
type HLC struct {
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Valid reports whether the period carries usable OHLC values.
func (p HLC) Valid() bool {
	return p.High > 0 && p.Low > 0 && p.Close > 0 && p.High >= p.Low
}

// TechnicalBands carries pre-computed band values supplied by the indicator
// cache collaborator. SMA maps period label ("50", "200") to value.
type TechnicalBands struct {
	BBUpper  float64            `json:"bb_upper"`
	BBMiddle float64            `json:"bb_middle"`
	BBLower  float64            `json:"bb_lower"`
	SMA      map[string]float64 `json:"sma,omitempty"`
}

// BookWall is one order-book anomaly: an unusually large resting size at a
// price, with its z-score against the surrounding book.
type BookWall struct {
	Price  float64 `json:"price"`
	Size   float64 `json:"size"`
	ZScore float64 `json:"z_score"`
}

// OrderBookAnomalies holds detected walls on both sides of the book.
type OrderBookAnomalies struct {
	BidWalls []BookWall `json:"bid_walls,omitempty"`
	AskWalls []BookWall `json:"ask_walls,omitempty"`
}

// Snapshot is the complete, immutable input for one analysis cycle. The engine
// never mutates it and holds no state across calls.
type Snapshot struct {
	Symbol       string              `json:"symbol"`
	CurrentPrice float64             `json:"current_price"`
	Bars         map[string][]Bar    `json:"bars"` // timeframe -> bars, oldest first
	Bands        *TechnicalBands     `json:"bands,omitempty"`
	Book         *OrderBookAnomalies `json:"book,omitempty"`
	ATR          float64             `json:"atr"`
}

// Validate checks the snapshot for values the engine cannot work around.
// Thin or missing bar data is not an error; detectors degrade to empty output.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("nil snapshot")
	}
	if s.CurrentPrice <= 0 {
		return fmt.Errorf("current price must be positive, got %v", s.CurrentPrice)
	}
	if s.ATR < 0 {
		return fmt.Errorf("atr must not be negative, got %v", s.ATR)
	}
	return nil
}

// BarCounts returns the number of bars supplied per timeframe.
func (s *Snapshot) BarCounts() map[string]int {
	counts := make(map[string]int, len(s.Bars))
	for tf, bars := range s.Bars {
		counts[tf] = len(bars)
	}
	return counts
}
