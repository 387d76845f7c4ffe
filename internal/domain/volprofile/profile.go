package volprofile

import (
	"fmt"

	"github.com/tradelevels/levelmap/internal/domain/levels"
	"github.com/tradelevels/levelmap/internal/domain/market"
)

const minProfileBars = 10

// Params configures the volume profile calculation.
type Params struct {
	Timeframe    string  `yaml:"timeframe"`
	ValueAreaPct float64 `yaml:"value_area_pct"` // 0.70 = 70% of traded volume
	MinBins      int     `yaml:"min_bins"`
	MaxBins      int     `yaml:"max_bins"`
	VPOCWeight   float64 `yaml:"vpoc_weight"`
	EdgeWeight   float64 `yaml:"edge_weight"` // VAH/VAL base weight
}

// Validate checks the profile parameters.
func (p Params) Validate() error {
	if p.ValueAreaPct <= 0 || p.ValueAreaPct > 1 {
		return fmt.Errorf("value_area_pct must be in (0, 1], got %v", p.ValueAreaPct)
	}
	if p.MinBins < 2 {
		return fmt.Errorf("min_bins must be at least 2, got %d", p.MinBins)
	}
	if p.MaxBins < p.MinBins {
		return fmt.Errorf("max_bins %d smaller than min_bins %d", p.MaxBins, p.MinBins)
	}
	if p.VPOCWeight < 0 || p.EdgeWeight < 0 {
		return fmt.Errorf("profile weights must not be negative")
	}
	return nil
}

// Calculate builds a volume distribution over the bar window and emits VPOC,
// VAH and VAL candidates (0-3 of them).
//
// Each bar's volume is spread across the bins its high-low range overlaps,
// proportional to the fractional overlap, which avoids close-price bias. A
// zero-range doji contributes its full volume to the single bin containing
// it. VAH is only emitted above current price and VAL only below; the VPOC is
// always emitted, sided by comparison with current price.
func Calculate(bars []market.Bar, currentPrice float64, p Params) []levels.Candidate {
	if len(bars) < minProfileBars || currentPrice <= 0 {
		return nil
	}

	minLow, maxHigh := bars[0].Low, bars[0].High
	for _, b := range bars[1:] {
		if b.Low < minLow {
			minLow = b.Low
		}
		if b.High > maxHigh {
			maxHigh = b.High
		}
	}
	priceRange := maxHigh - minLow
	if priceRange <= 0 || minLow <= 0 {
		return nil
	}

	bins := binCount(priceRange, currentPrice, p.MinBins, p.MaxBins)
	width := priceRange / float64(bins)
	volume := make([]float64, bins)

	for _, b := range bars {
		if b.Volume <= 0 {
			continue
		}
		if b.Range() <= 0 {
			// Doji: all volume into the one overlapping bin.
			volume[binIndex(b.Close, minLow, width, bins)] += b.Volume
			continue
		}
		lo := binIndex(b.Low, minLow, width, bins)
		hi := binIndex(b.High, minLow, width, bins)
		for i := lo; i <= hi; i++ {
			binLow := minLow + float64(i)*width
			binHigh := binLow + width
			overlap := overlapFraction(b.Low, b.High, binLow, binHigh)
			volume[i] += b.Volume * overlap
		}
	}

	total := 0.0
	vpocBin := 0
	for i, v := range volume {
		total += v
		if v > volume[vpocBin] {
			vpocBin = i
		}
	}
	if total <= 0 {
		return nil
	}

	valBin, vahBin := valueArea(volume, vpocBin, total, p.ValueAreaPct)

	vpocPrice := minLow + (float64(vpocBin)+0.5)*width
	valPrice := minLow + float64(valBin)*width   // lower edge of value area
	vahPrice := minLow + float64(vahBin+1)*width // upper edge of value area

	out := make([]levels.Candidate, 0, 3)
	out = append(out, levels.Candidate{
		Price:      vpocPrice,
		Source:     fmt.Sprintf("VPOC_%s", p.Timeframe),
		Weight:     p.VPOCWeight,
		Side:       sideFor(vpocPrice, currentPrice),
		Level:      levels.LevelMinor,
		SourceType: levels.SourceStructural,
		Timeframe:  p.Timeframe,
	})
	if vahPrice > currentPrice {
		out = append(out, levels.Candidate{
			Price:      vahPrice,
			Source:     fmt.Sprintf("VAH_%s", p.Timeframe),
			Weight:     p.EdgeWeight,
			Side:       levels.SideResistance,
			Level:      levels.LevelMinor,
			SourceType: levels.SourceStructural,
			Timeframe:  p.Timeframe,
		})
	}
	if valPrice < currentPrice {
		out = append(out, levels.Candidate{
			Price:      valPrice,
			Source:     fmt.Sprintf("VAL_%s", p.Timeframe),
			Weight:     p.EdgeWeight,
			Side:       levels.SideSupport,
			Level:      levels.LevelMinor,
			SourceType: levels.SourceStructural,
			Timeframe:  p.Timeframe,
		})
	}
	return out
}

// binCount sizes bins so each spans roughly 0.1% of current price, clamped to
// the configured range.
func binCount(priceRange, currentPrice float64, minBins, maxBins int) int {
	target := priceRange / (currentPrice * 0.001)
	n := int(target)
	if n < minBins {
		return minBins
	}
	if n > maxBins {
		return maxBins
	}
	return n
}

func binIndex(price, minLow, width float64, bins int) int {
	if width <= 0 {
		return 0
	}
	i := int((price - minLow) / width)
	if i < 0 {
		return 0
	}
	if i >= bins {
		return bins - 1
	}
	return i
}

func overlapFraction(barLow, barHigh, binLow, binHigh float64) float64 {
	lo := barLow
	if binLow > lo {
		lo = binLow
	}
	hi := barHigh
	if binHigh < hi {
		hi = binHigh
	}
	if hi <= lo {
		return 0
	}
	return (hi - lo) / (barHigh - barLow)
}

// valueArea expands greedily outward from the VPOC bin, at each step taking
// whichever adjacent bin holds more volume, until the cumulative volume
// reaches the target share of the total. Returns the inclusive bin range.
func valueArea(volume []float64, vpocBin int, total, targetPct float64) (lo, hi int) {
	lo, hi = vpocBin, vpocBin
	acc := volume[vpocBin]
	target := total * targetPct
	for acc < target && (lo > 0 || hi < len(volume)-1) {
		lowVol, highVol := -1.0, -1.0
		if lo > 0 {
			lowVol = volume[lo-1]
		}
		if hi < len(volume)-1 {
			highVol = volume[hi+1]
		}
		if highVol >= lowVol {
			hi++
			acc += highVol
		} else {
			lo--
			acc += lowVol
		}
	}
	return lo, hi
}

func sideFor(price, currentPrice float64) levels.Side {
	if price >= currentPrice {
		return levels.SideResistance
	}
	return levels.SideSupport
}
