package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tradelevels/levelmap/internal/domain/market"
)

func barsFromCloses(closes ...float64) []market.Bar {
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100}
	}
	return bars
}

func TestCalculateATR_ConstantRange(t *testing.T) {
	// Flat closes with a constant 2-point bar range: every true range is 2.
	bars := barsFromCloses(100, 100, 100, 100, 100, 100)

	res := CalculateATR(bars, 3)
	assert.True(t, res.IsValid)
	assert.Equal(t, 3, res.Period)
	assert.Equal(t, 6, res.DataCount)
	assert.InDelta(t, 2.0, res.Value, 1e-9)
}

func TestCalculateATR_GapExpandsTrueRange(t *testing.T) {
	// A close-to-close gap dominates high-low for the gapped bar.
	bars := []market.Bar{
		{High: 101, Low: 99, Close: 100},
		{High: 111, Low: 109, Close: 110}, // TR = |111-100| = 11
		{High: 111, Low: 109, Close: 110}, // TR = 2
	}
	res := CalculateATR(bars, 2)
	assert.True(t, res.IsValid)
	assert.InDelta(t, 6.5, res.Value, 1e-9)
}

func TestCalculateATR_InsufficientData(t *testing.T) {
	res := CalculateATR(barsFromCloses(100, 101), 14)
	assert.False(t, res.IsValid)
	assert.Zero(t, res.Value)
	assert.Equal(t, 2, res.DataCount)
}

func TestCalculateSMA(t *testing.T) {
	bars := barsFromCloses(1, 2, 3, 4, 5)

	res := CalculateSMA(bars, 3)
	assert.True(t, res.IsValid)
	assert.InDelta(t, 4.0, res.Value, 1e-9, "averages the most recent closes")

	res = CalculateSMA(bars, 5)
	assert.InDelta(t, 3.0, res.Value, 1e-9)

	res = CalculateSMA(bars, 10)
	assert.False(t, res.IsValid)
}

func TestCalculateBollinger(t *testing.T) {
	// Closes 2 and 4 repeated: mean 3, population sigma 1.
	bars := barsFromCloses(2, 4, 2, 4)

	res := CalculateBollinger(bars, 4, 2.0)
	assert.True(t, res.IsValid)
	assert.InDelta(t, 3.0, res.Middle, 1e-9)
	assert.InDelta(t, 5.0, res.Upper, 1e-9)
	assert.InDelta(t, 1.0, res.Lower, 1e-9)

	res = CalculateBollinger(bars, 20, 2.0)
	assert.False(t, res.IsValid)
}
