package indicators

import (
	"math"

	"github.com/tradelevels/levelmap/internal/domain/market"
)

// ATRResult represents the result of ATR calculation.
type ATRResult struct {
	Value     float64 `json:"value"`
	Period    int     `json:"period"`
	IsValid   bool    `json:"is_valid"`
	DataCount int     `json:"data_count"`
}

// CalculateATR calculates the Average True Range over the given bars using
// Wilder's smoothing. Used by entry points whose snapshots carry no
// pre-computed ATR.
func CalculateATR(bars []market.Bar, period int) ATRResult {
	if period < 1 || len(bars) < period+1 {
		return ATRResult{Period: period, DataCount: len(bars)}
	}

	trueRanges := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		trueRanges[i-1] = math.Max(hl, math.Max(hc, lc))
	}

	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(period)

	alpha := 1.0 / float64(period)
	for i := period; i < len(trueRanges); i++ {
		atr = atr*(1-alpha) + trueRanges[i]*alpha
	}

	return ATRResult{Value: atr, Period: period, IsValid: true, DataCount: len(bars)}
}

// SMAResult represents the result of a simple moving average calculation.
type SMAResult struct {
	Value     float64 `json:"value"`
	Period    int     `json:"period"`
	IsValid   bool    `json:"is_valid"`
	DataCount int     `json:"data_count"`
}

// CalculateSMA calculates the simple moving average of closes over the most
// recent period bars.
func CalculateSMA(bars []market.Bar, period int) SMAResult {
	if period < 1 || len(bars) < period {
		return SMAResult{Period: period, DataCount: len(bars)}
	}
	sum := 0.0
	for _, b := range bars[len(bars)-period:] {
		sum += b.Close
	}
	return SMAResult{Value: sum / float64(period), Period: period, IsValid: true, DataCount: len(bars)}
}

// BollingerResult represents Bollinger band values.
type BollingerResult struct {
	Upper     float64 `json:"upper"`
	Middle    float64 `json:"middle"`
	Lower     float64 `json:"lower"`
	Period    int     `json:"period"`
	IsValid   bool    `json:"is_valid"`
	DataCount int     `json:"data_count"`
}

// CalculateBollinger calculates Bollinger bands (SMA ± mult·σ) over closes.
func CalculateBollinger(bars []market.Bar, period int, mult float64) BollingerResult {
	if period < 2 || len(bars) < period {
		return BollingerResult{Period: period, DataCount: len(bars)}
	}
	window := bars[len(bars)-period:]
	mean := 0.0
	for _, b := range window {
		mean += b.Close
	}
	mean /= float64(period)

	variance := 0.0
	for _, b := range window {
		d := b.Close - mean
		variance += d * d
	}
	variance /= float64(period)
	sd := math.Sqrt(variance)

	return BollingerResult{
		Upper:     mean + mult*sd,
		Middle:    mean,
		Lower:     mean - mult*sd,
		Period:    period,
		IsValid:   true,
		DataCount: len(bars),
	}
}
