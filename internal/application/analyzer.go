package application

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tradelevels/levelmap/internal/config"
	"github.com/tradelevels/levelmap/internal/domain/levels"
	"github.com/tradelevels/levelmap/internal/domain/market"
	"github.com/tradelevels/levelmap/internal/domain/pivots"
	"github.com/tradelevels/levelmap/internal/domain/statics"
	"github.com/tradelevels/levelmap/internal/domain/swings"
	"github.com/tradelevels/levelmap/internal/domain/volprofile"
	"github.com/tradelevels/levelmap/internal/engine"
	"github.com/tradelevels/levelmap/internal/gates"
	"github.com/tradelevels/levelmap/internal/indicators"
)

// Analyzer orchestrates the full analysis cycle: detectors, aggregation, and
// the hard-control gate. It holds no per-call state and is safe for
// concurrent use.
type Analyzer struct {
	cfg config.Config
	agg *engine.Aggregator
	log zerolog.Logger
}

// New constructs an analyzer, validating the configuration once.
func New(cfg config.Config, logger zerolog.Logger) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("analyzer config: %w", err)
	}
	agg, err := engine.New(cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("aggregator: %w", err)
	}
	return &Analyzer{cfg: cfg, agg: agg, log: logger}, nil
}

// Analyze runs one full decision cycle on the snapshot and returns the
// consolidated zone report. Thin or missing bar data degrades gracefully to
// fewer candidates; only an unusable snapshot returns an error.
func (a *Analyzer) Analyze(snap *market.Snapshot) (*levels.ZoneReport, error) {
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	atr := snap.ATR
	if atr <= 0 {
		atr = a.fallbackATR(snap)
	}

	candidates := a.collectCandidates(snap, snap.CurrentPrice)

	report := a.agg.Aggregate(engine.Inputs{
		Symbol:          snap.Symbol,
		CurrentPrice:    snap.CurrentPrice,
		ATR:             atr,
		Candidates:      candidates,
		BarsByTimeframe: snap.Bars,
	})

	report.HardControl = gates.Decide(report.NearestSupport, report.NearestResistance, snap.CurrentPrice, atr, a.cfg.Gate)
	report.ReportText = engine.BuildReportText(&report)
	report.AnalysisID = uuid.NewString()

	a.log.Debug().
		Str("symbol", snap.Symbol).
		Str("analysis_id", report.AnalysisID).
		Int("candidates", len(candidates)).
		Int("support_zones", len(report.SupportZones)).
		Int("resistance_zones", len(report.ResistanceZones)).
		Bool("block_long", report.HardControl.BlockLong).
		Bool("block_short", report.HardControl.BlockShort).
		Msg("analysis complete")

	return &report, nil
}

// collectCandidates runs every configured detector over the snapshot.
func (a *Analyzer) collectCandidates(snap *market.Snapshot, price float64) []levels.Candidate {
	var out []levels.Candidate

	for _, params := range a.cfg.Swings {
		bars, ok := snap.Bars[params.Timeframe]
		if !ok {
			continue
		}
		out = append(out, swings.Detect(bars, price, params)...)
	}

	if bars := a.profileBars(snap); len(bars) > 0 {
		out = append(out, volprofile.Calculate(bars, price, a.cfg.VolumeProfile)...)
	}

	if daily, ok := snap.Bars[a.cfg.DailyTimeframe]; ok && len(daily) > 0 {
		last := daily[len(daily)-1]
		dailyHLC := market.HLC{High: last.High, Low: last.Low, Close: last.Close}
		weeklyHLC, _ := pivots.AggregateWeekly(daily)
		out = append(out, pivots.Calculate(dailyHLC, weeklyHLC, price, a.cfg.Pivots)...)
	}

	bands := snap.Bands
	if bands == nil {
		bands = a.fallbackBands(snap)
	}
	out = append(out, statics.BandCandidates(bands, price, a.cfg.Statics)...)
	out = append(out, statics.WallCandidates(snap.Book, price, a.cfg.Statics)...)

	return out
}

func (a *Analyzer) profileBars(snap *market.Snapshot) []market.Bar {
	if bars, ok := snap.Bars[a.cfg.VolumeProfile.Timeframe]; ok {
		return bars
	}
	// Fall back to the finest-granularity series supplied.
	bestTF := ""
	for tf, bars := range snap.Bars {
		if bestTF == "" || len(bars) > len(snap.Bars[bestTF]) || (len(bars) == len(snap.Bars[bestTF]) && tf < bestTF) {
			bestTF = tf
		}
	}
	return snap.Bars[bestTF]
}

// fallbackATR computes ATR from the daily series when the snapshot carries
// none. Zero when even that is too thin; the engine floors ATR-derived
// thresholds so this stays safe.
func (a *Analyzer) fallbackATR(snap *market.Snapshot) float64 {
	daily, ok := snap.Bars[a.cfg.DailyTimeframe]
	if !ok {
		return 0
	}
	res := indicators.CalculateATR(daily, a.cfg.ATRPeriod)
	if !res.IsValid {
		return 0
	}
	return res.Value
}

// fallbackBands computes Bollinger and SMA values from the band timeframe's
// bars when the indicator-cache collaborator supplied none.
func (a *Analyzer) fallbackBands(snap *market.Snapshot) *market.TechnicalBands {
	bars, ok := snap.Bars[a.cfg.Statics.BandTimeframe]
	if !ok {
		return nil
	}
	bb := indicators.CalculateBollinger(bars, 20, 2.0)
	if !bb.IsValid {
		return nil
	}
	bands := &market.TechnicalBands{
		BBUpper:  bb.Upper,
		BBMiddle: bb.Middle,
		BBLower:  bb.Lower,
		SMA:      map[string]float64{},
	}
	for _, period := range []int{50, 200} {
		if sma := indicators.CalculateSMA(bars, period); sma.IsValid {
			bands.SMA[fmt.Sprintf("%d", period)] = sma.Value
		}
	}
	return bands
}
