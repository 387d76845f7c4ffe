package engine

import (
	"math"
	"sort"
	"strings"

	"github.com/tradelevels/levelmap/internal/domain/levels"
	"github.com/tradelevels/levelmap/internal/domain/market"
)

// Aggregator merges heterogeneous level candidates into scored, non-overlapping
// zones. It is stateless and safe for concurrent use; every call rebuilds all
// zones from the inputs alone.
type Aggregator struct {
	cfg Config
}

// New constructs an aggregator, validating the configuration once.
func New(cfg Config) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{cfg: cfg}, nil
}

// Inputs is the complete snapshot for one aggregation pass.
type Inputs struct {
	Symbol          string
	CurrentPrice    float64
	ATR             float64
	Candidates      []levels.Candidate
	BarsByTimeframe map[string][]market.Bar
}

// Aggregate clusters and scores the candidates into a zone report. The hard
// control verdict and narrative text are filled in by the caller after zone
// construction (the gate needs the finished nearest zones).
func (a *Aggregator) Aggregate(in Inputs) levels.ZoneReport {
	report := levels.ZoneReport{
		Symbol:          in.Symbol,
		CurrentPrice:    in.CurrentPrice,
		SupportZones:    []levels.Zone{},
		ResistanceZones: []levels.Zone{},
		RawData: levels.RawDataCounts{
			BarCounts: barCounts(in.BarsByTimeframe),
			ATRValue:  in.ATR,
		},
	}
	if in.CurrentPrice <= 0 {
		return report
	}

	candidates := append([]levels.Candidate(nil), in.Candidates...)
	candidates = append(candidates, a.roundNumberCandidates(in.CurrentPrice)...)

	touchBars := a.touchBars(in.BarsByTimeframe)

	for _, side := range []levels.Side{levels.SideSupport, levels.SideResistance} {
		sided := filterSide(candidates, side)
		clusters := a.cluster(sided, in.CurrentPrice, in.ATR)
		zones := make([]levels.Zone, 0, len(clusters))
		for _, cl := range clusters {
			zones = append(zones, a.buildZone(cl, side, in.CurrentPrice, in.ATR, touchBars))
		}
		sortZones(zones, side)
		clipOverlaps(zones, side)
		if side == levels.SideSupport {
			report.SupportZones = zones
		} else {
			report.ResistanceZones = zones
		}
	}

	report.NearestSupport = nearest(report.SupportZones, in.CurrentPrice, levels.SideSupport)
	report.NearestResistance = nearest(report.ResistanceZones, in.CurrentPrice, levels.SideResistance)
	return report
}

// roundNumberCandidates injects low-weight candidates at the nearest round
// price steps on each side of current price.
func (a *Aggregator) roundNumberCandidates(currentPrice float64) []levels.Candidate {
	rn := a.cfg.RoundNumbers
	if !rn.Enabled || rn.Step <= 0 {
		return nil
	}
	out := make([]levels.Candidate, 0, rn.Count*2)
	base := math.Floor(currentPrice/rn.Step) * rn.Step
	for i := 0; i < rn.Count; i++ {
		below := base - float64(i)*rn.Step
		above := base + float64(i+1)*rn.Step
		if below > 0 && below < currentPrice {
			out = append(out, roundNumberCandidate(below, levels.SideSupport, rn.Weight))
		}
		if above > currentPrice {
			out = append(out, roundNumberCandidate(above, levels.SideResistance, rn.Weight))
		}
	}
	return out
}

func roundNumberCandidate(price float64, side levels.Side, weight float64) levels.Candidate {
	return levels.Candidate{
		Price:      price,
		Source:     "Round_Number",
		Weight:     weight,
		Side:       side,
		Level:      levels.LevelMinor,
		SourceType: levels.SourceStatic,
		Timeframe:  "static",
	}
}

func filterSide(candidates []levels.Candidate, side levels.Side) []levels.Candidate {
	out := make([]levels.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Side != side || c.Price <= 0 || c.Weight < 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// cluster greedily merges price-sorted candidates: a candidate joins the
// current cluster while it stays within the threshold of the running cluster
// center, otherwise it starts a new cluster. Sorting keys include the source
// label so equal prices cluster deterministically.
func (a *Aggregator) cluster(candidates []levels.Candidate, currentPrice, atr float64) [][]levels.Candidate {
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Price != candidates[j].Price {
			return candidates[i].Price < candidates[j].Price
		}
		return candidates[i].Source < candidates[j].Source
	})

	var clusters [][]levels.Candidate
	current := []levels.Candidate{candidates[0]}
	center := candidates[0].Price

	for _, c := range candidates[1:] {
		threshold := a.clusterThreshold(center, atr)
		if math.Abs(c.Price-center)/center <= threshold {
			current = append(current, c)
			center = meanPrice(current)
			continue
		}
		clusters = append(clusters, current)
		current = []levels.Candidate{c}
		center = c.Price
	}
	return append(clusters, current)
}

// clusterThreshold returns the merge tolerance as a fraction of price. In
// ATR-adaptive mode the tolerance widens in volatile regimes and tightens in
// calm ones, clamped to a sane band; zero ATR falls back to the fixed
// percentage.
func (a *Aggregator) clusterThreshold(price, atr float64) float64 {
	if !a.cfg.ATRAdaptive || atr <= 0 || price <= 0 {
		return a.cfg.ClusterThresholdPct
	}
	pct := a.cfg.ATRClusterMultiplier * atr / price
	if pct < a.cfg.ATRMinPct {
		return a.cfg.ATRMinPct
	}
	if pct > a.cfg.ATRMaxPct {
		return a.cfg.ATRMaxPct
	}
	return pct
}

// buildZone scores one cluster. Order of operations: family-capped weight
// sum, confluence bonus, touch bonus/decay, floor at zero, clamp to the zone
// maximum, then strength classification.
func (a *Aggregator) buildZone(cluster []levels.Candidate, side levels.Side, currentPrice, atr float64, touchBars []market.Bar) levels.Zone {
	center := meanPrice(cluster)
	low, high := cluster[0].Price, cluster[0].Price
	weight := a.cappedWeight(cluster)

	sourceTypes := map[levels.SourceType]bool{}
	var sources []string
	seen := map[string]bool{}
	hasSwing, hasWall := false, false
	wallSize := 0.0
	allProjected := true

	for _, c := range cluster {
		if c.Price < low {
			low = c.Price
		}
		if c.Price > high {
			high = c.Price
		}
		sourceTypes[c.SourceType] = true
		if !seen[c.Source] {
			seen[c.Source] = true
			sources = append(sources, c.Source)
		}
		if strings.HasPrefix(c.Source, "Swing_") {
			hasSwing = true
		}
		if c.SourceType == levels.SourceOrderFlow {
			hasWall = true
			wallSize += c.Meta[levels.MetaWallSize]
		}
		if c.SourceType != levels.SourceProjected {
			allProjected = false
		}
	}

	switch {
	case len(sourceTypes) >= 3:
		weight += a.cfg.ConfluenceBonus3
	case len(sourceTypes) >= 2:
		weight += a.cfg.ConfluenceBonus2
	}

	touches := a.countTouches(touchBars, side, center, atr)
	if touches >= a.cfg.OptimalTouchesMin && touches <= a.cfg.OptimalTouchesMax {
		weight += a.cfg.TouchBonus
	} else if touches > a.cfg.DecayAfterTouches {
		weight -= float64(touches-a.cfg.DecayAfterTouches) * a.cfg.TouchDecayStep
	}

	if weight < 0 {
		weight = 0
	}
	if weight > a.cfg.MaxZoneWeight {
		weight = a.cfg.MaxZoneWeight
	}

	strength := a.classify(weight)
	// Pure projections lack trade confirmation and never rate High.
	if allProjected && strength == levels.StrengthHigh {
		strength = levels.StrengthMedium
	}

	return levels.Zone{
		Side:          side,
		PriceCenter:   center,
		PriceLow:      low * (1 - a.cfg.ZoneExpandPct),
		PriceHigh:     high * (1 + a.cfg.ZoneExpandPct),
		DistancePct:   (center - currentPrice) / currentPrice * 100,
		TotalWeight:   weight,
		Strength:      strength,
		TouchCount:    touches,
		HasSwingPoint: hasSwing,
		HasOrderWall:  hasWall,
		WallSize:      wallSize,
		Sources:       sources,
	}
}

// cappedWeight sums member weights, capping the combined contribution of
// candidates that share a source family (source type + timeframe) so one
// noisy source cannot dominate a zone through duplication.
func (a *Aggregator) cappedWeight(cluster []levels.Candidate) float64 {
	families := map[string]float64{}
	order := []string{}
	for _, c := range cluster {
		key := string(c.SourceType) + "|" + c.Timeframe
		if _, ok := families[key]; !ok {
			order = append(order, key)
		}
		families[key] += c.Weight
	}
	total := 0.0
	for _, key := range order {
		w := families[key]
		if w > a.cfg.SameDataWeightCap {
			w = a.cfg.SameDataWeightCap
		}
		total += w
	}
	return total
}

// countTouches counts historical bar extremes (highs for resistance, lows for
// support) inside the touch band around the zone center. The band is
// ATR-scaled, floored at a minimum fraction of price so a zero ATR cannot
// collapse it.
func (a *Aggregator) countTouches(bars []market.Bar, side levels.Side, center, atr float64) int {
	if len(bars) == 0 || center <= 0 {
		return 0
	}
	band := a.cfg.TouchThresholdATR * atr
	if floor := center * 0.001; band < floor {
		band = floor
	}
	count := 0
	for _, b := range bars {
		extreme := b.Low
		if side == levels.SideResistance {
			extreme = b.High
		}
		if math.Abs(extreme-center) <= band {
			count++
		}
	}
	return count
}

func (a *Aggregator) classify(weight float64) levels.Strength {
	switch {
	case weight >= a.cfg.StrengthHighMin:
		return levels.StrengthHigh
	case weight >= a.cfg.StrengthMediumMin:
		return levels.StrengthMedium
	default:
		return levels.StrengthLow
	}
}

// touchBars picks the bar series touches are counted on: the configured
// timeframe when present, otherwise the finest-granularity series supplied.
// Counting across every timeframe would tally the same historical extreme
// several times.
func (a *Aggregator) touchBars(barsByTF map[string][]market.Bar) []market.Bar {
	if len(barsByTF) == 0 {
		return nil
	}
	if tf := a.cfg.TouchTimeframe; tf != "" {
		if bars, ok := barsByTF[tf]; ok {
			return bars
		}
	}
	bestTF := ""
	for tf, bars := range barsByTF {
		if bestTF == "" || len(bars) > len(barsByTF[bestTF]) || (len(bars) == len(barsByTF[bestTF]) && tf < bestTF) {
			bestTF = tf
		}
	}
	return barsByTF[bestTF]
}

// sortZones orders zones nearest-first: supports descending by center,
// resistances ascending.
func sortZones(zones []levels.Zone, side levels.Side) {
	sort.SliceStable(zones, func(i, j int) bool {
		if side == levels.SideSupport {
			return zones[i].PriceCenter > zones[j].PriceCenter
		}
		return zones[i].PriceCenter < zones[j].PriceCenter
	})
}

// clipOverlaps trims expanded bounds where adjacent same-side zones would
// otherwise overlap, splitting the overlap at its midpoint. Clustering keeps
// centers apart; only the zone_expand_pct padding can collide.
func clipOverlaps(zones []levels.Zone, side levels.Side) {
	for i := 0; i < len(zones)-1; i++ {
		upper, lower := &zones[i], &zones[i+1]
		if side == levels.SideResistance {
			upper, lower = &zones[i+1], &zones[i]
		}
		if lower.PriceHigh >= upper.PriceLow {
			mid := (lower.PriceHigh + upper.PriceLow) / 2
			// Never clip a bound past its own center.
			if mid < lower.PriceCenter {
				mid = lower.PriceCenter
			}
			if mid > upper.PriceCenter {
				mid = upper.PriceCenter
			}
			upper.PriceLow = mid
			lower.PriceHigh = math.Nextafter(mid, 0)
			if lower.PriceHigh < lower.PriceCenter {
				lower.PriceHigh = lower.PriceCenter
			}
		}
	}
}

// nearest picks the closest zone whose center sits on the expected side of
// price. Zones that drifted across price during clustering stay in the list
// but are never "nearest".
func nearest(zones []levels.Zone, currentPrice float64, side levels.Side) *levels.Zone {
	var best *levels.Zone
	for i := range zones {
		z := &zones[i]
		if side == levels.SideSupport && z.PriceCenter >= currentPrice {
			continue
		}
		if side == levels.SideResistance && z.PriceCenter <= currentPrice {
			continue
		}
		if best == nil || math.Abs(z.PriceCenter-currentPrice) < math.Abs(best.PriceCenter-currentPrice) {
			best = z
		}
	}
	if best == nil {
		return nil
	}
	clone := *best
	return &clone
}

func meanPrice(cluster []levels.Candidate) float64 {
	sum := 0.0
	for _, c := range cluster {
		sum += c.Price
	}
	return sum / float64(len(cluster))
}

func barCounts(barsByTF map[string][]market.Bar) map[string]int {
	counts := make(map[string]int, len(barsByTF))
	for tf, bars := range barsByTF {
		counts[tf] = len(bars)
	}
	return counts
}
