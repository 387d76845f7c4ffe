package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelevels/levelmap/internal/domain/levels"
	"github.com/tradelevels/levelmap/internal/domain/market"
)

// testConfig disables round numbers and ATR-adaptive clustering so tests
// control exactly which candidates exist and when they merge.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ATRAdaptive = false
	cfg.RoundNumbers.Enabled = false
	return cfg
}

func mustAggregator(t *testing.T, cfg Config) *Aggregator {
	t.Helper()
	agg, err := New(cfg)
	require.NoError(t, err)
	return agg
}

func candidate(price, weight float64, source string, side levels.Side, st levels.SourceType, tf string) levels.Candidate {
	return levels.Candidate{
		Price:      price,
		Source:     source,
		Weight:     weight,
		Side:       side,
		Level:      levels.LevelIntermediate,
		SourceType: st,
		Timeframe:  tf,
	}
}

func TestAggregate_ClustersNearbyCandidates(t *testing.T) {
	agg := mustAggregator(t, testConfig())

	report := agg.Aggregate(Inputs{
		Symbol:       "BTCUSDT",
		CurrentPrice: 100.0,
		Candidates: []levels.Candidate{
			candidate(99.0, 2.0, "Swing_Low_1d", levels.SideSupport, levels.SourceStructural, "1d"),
			candidate(99.2, 1.5, "VPOC_15m", levels.SideSupport, levels.SourceStructural, "15m"),
			candidate(95.0, 1.0, "SMA_50", levels.SideSupport, levels.SourceStatic, "4h"),
		},
	})

	require.Len(t, report.SupportZones, 2)
	near, far := report.SupportZones[0], report.SupportZones[1]

	assert.InDelta(t, 99.1, near.PriceCenter, 1e-9, "cluster center is the mean of member prices")
	assert.InDelta(t, 3.5, near.TotalWeight, 1e-9, "distinct families sum without a confluence bonus")
	assert.Equal(t, levels.StrengthMedium, near.Strength)
	assert.True(t, near.HasSwingPoint)
	assert.ElementsMatch(t, []string{"Swing_Low_1d", "VPOC_15m"}, near.Sources)

	assert.InDelta(t, 95.0, far.PriceCenter, 1e-9)
	assert.Equal(t, levels.StrengthLow, far.Strength)

	require.NotNil(t, report.NearestSupport)
	assert.InDelta(t, 99.1, report.NearestSupport.PriceCenter, 1e-9)
	assert.Nil(t, report.NearestResistance)
}

func TestAggregate_FamilyWeightCap(t *testing.T) {
	agg := mustAggregator(t, testConfig())

	report := agg.Aggregate(Inputs{
		Symbol:       "BTCUSDT",
		CurrentPrice: 100.0,
		Candidates: []levels.Candidate{
			candidate(99.0, 2.0, "Swing_Low_1d", levels.SideSupport, levels.SourceStructural, "1d"),
			candidate(99.05, 2.0, "Swing_Low_1d", levels.SideSupport, levels.SourceStructural, "1d"),
			candidate(99.1, 2.0, "Swing_Low_1d", levels.SideSupport, levels.SourceStructural, "1d"),
		},
	})

	require.Len(t, report.SupportZones, 1)
	assert.InDelta(t, 2.5, report.SupportZones[0].TotalWeight, 1e-9,
		"one source family cannot exceed the per-family cap")
	assert.Equal(t, levels.StrengthLow, report.SupportZones[0].Strength)
}

func TestAggregate_ConfluenceBonuses(t *testing.T) {
	agg := mustAggregator(t, testConfig())

	two := agg.Aggregate(Inputs{
		Symbol:       "BTCUSDT",
		CurrentPrice: 100.0,
		Candidates: []levels.Candidate{
			candidate(99.0, 1.0, "Swing_Low_1d", levels.SideSupport, levels.SourceStructural, "1d"),
			candidate(99.1, 1.0, "Pivot_D_S1", levels.SideSupport, levels.SourceProjected, "1d"),
		},
	})
	three := agg.Aggregate(Inputs{
		Symbol:       "BTCUSDT",
		CurrentPrice: 100.0,
		Candidates: []levels.Candidate{
			candidate(99.0, 1.0, "Swing_Low_1d", levels.SideSupport, levels.SourceStructural, "1d"),
			candidate(99.1, 1.0, "Pivot_D_S1", levels.SideSupport, levels.SourceProjected, "1d"),
			candidate(99.2, 1.0, "OrderWall_Bid", levels.SideSupport, levels.SourceOrderFlow, "book"),
		},
	})

	require.Len(t, two.SupportZones, 1)
	require.Len(t, three.SupportZones, 1)
	assert.InDelta(t, 3.0, two.SupportZones[0].TotalWeight, 1e-9, "2+1 with two-type bonus")
	assert.InDelta(t, 5.0, three.SupportZones[0].TotalWeight, 1e-9, "3+2 with three-type bonus")
	assert.Greater(t, three.SupportZones[0].TotalWeight, two.SupportZones[0].TotalWeight,
		"more independent corroboration never scores lower")
	assert.True(t, three.SupportZones[0].HasOrderWall)
}

func TestAggregate_ProjectedOnlyCappedAtMedium(t *testing.T) {
	cfg := testConfig()
	cfg.SameDataWeightCap = 10.0
	cfg.StrengthMediumMin = 1.0
	cfg.StrengthHighMin = 2.0
	agg := mustAggregator(t, cfg)

	report := agg.Aggregate(Inputs{
		Symbol:       "BTCUSDT",
		CurrentPrice: 100.0,
		Candidates: []levels.Candidate{
			candidate(99.0, 3.0, "Pivot_D_S1", levels.SideSupport, levels.SourceProjected, "1d"),
		},
	})

	require.Len(t, report.SupportZones, 1)
	zone := report.SupportZones[0]
	assert.GreaterOrEqual(t, zone.TotalWeight, cfg.StrengthHighMin)
	assert.Equal(t, levels.StrengthMedium, zone.Strength,
		"an untested projection never rates High on weight alone")
}

func TestAggregate_MaxZoneWeightClamp(t *testing.T) {
	cfg := testConfig()
	agg := mustAggregator(t, cfg)

	// Five distinct families at the cap plus the three-type bonus.
	report := agg.Aggregate(Inputs{
		Symbol:       "BTCUSDT",
		CurrentPrice: 100.0,
		Candidates: []levels.Candidate{
			candidate(99.0, 2.5, "Swing_Low_1d", levels.SideSupport, levels.SourceStructural, "1d"),
			candidate(99.0, 2.5, "Swing_Low_4h", levels.SideSupport, levels.SourceStructural, "4h"),
			candidate(99.0, 2.5, "Pivot_D_S1", levels.SideSupport, levels.SourceProjected, "1d"),
			candidate(99.0, 2.5, "OrderWall_Bid", levels.SideSupport, levels.SourceOrderFlow, "book"),
			candidate(99.0, 2.5, "SMA_50", levels.SideSupport, levels.SourceStatic, "4h"),
		},
	})

	require.Len(t, report.SupportZones, 1)
	assert.InDelta(t, cfg.MaxZoneWeight, report.SupportZones[0].TotalWeight, 1e-9)
	assert.Equal(t, levels.StrengthHigh, report.SupportZones[0].Strength)
}

func TestAggregate_TouchBonusAndDecay(t *testing.T) {
	cfg := testConfig()
	agg := mustAggregator(t, cfg)

	touching := market.Bar{Open: 101, High: 105, Low: 100.2, Close: 102, Volume: 1}
	away := market.Bar{Open: 104, High: 108, Low: 103, Close: 105, Volume: 1}

	in := Inputs{
		Symbol:       "BTCUSDT",
		CurrentPrice: 102.0,
		ATR:          2.0, // touch band = 0.25*2 = 0.5 around the center
		Candidates: []levels.Candidate{
			candidate(100.0, 2.0, "Swing_Low_1d", levels.SideSupport, levels.SourceStructural, "1d"),
		},
	}

	in.BarsByTimeframe = map[string][]market.Bar{"15m": {touching, touching, away}}
	report := agg.Aggregate(in)
	require.Len(t, report.SupportZones, 1)
	assert.Equal(t, 2, report.SupportZones[0].TouchCount)
	assert.InDelta(t, 2.75, report.SupportZones[0].TotalWeight, 1e-9, "two touches earn the bonus")

	over := make([]market.Bar, 0, 7)
	for i := 0; i < 7; i++ {
		over = append(over, touching)
	}
	in.BarsByTimeframe = map[string][]market.Bar{"15m": over}
	report = agg.Aggregate(in)
	require.Len(t, report.SupportZones, 1)
	assert.Equal(t, 7, report.SupportZones[0].TouchCount)
	assert.InDelta(t, 1.5, report.SupportZones[0].TotalWeight, 1e-9, "over-tested levels decay")
}

func TestAggregate_RoundNumbers(t *testing.T) {
	cfg := testConfig()
	cfg.RoundNumbers = RoundNumberConfig{Enabled: true, Step: 1000, Count: 2, Weight: 0.4}
	agg := mustAggregator(t, cfg)

	report := agg.Aggregate(Inputs{Symbol: "BTCUSDT", CurrentPrice: 64500.0})

	require.Len(t, report.SupportZones, 2)
	require.Len(t, report.ResistanceZones, 2)
	assert.InDelta(t, 64000, report.SupportZones[0].PriceCenter, 1e-9, "supports are nearest-first")
	assert.InDelta(t, 63000, report.SupportZones[1].PriceCenter, 1e-9)
	assert.InDelta(t, 65000, report.ResistanceZones[0].PriceCenter, 1e-9)
	assert.InDelta(t, 66000, report.ResistanceZones[1].PriceCenter, 1e-9)

	assert.InDelta(t, -500.0/64500*100, report.SupportZones[0].DistancePct, 1e-9, "supports carry negative distance")
	assert.InDelta(t, 500.0/64500*100, report.ResistanceZones[0].DistancePct, 1e-9)
	assert.Equal(t, []string{"Round_Number"}, report.SupportZones[0].Sources)
}

func TestAggregate_ZoneBoundsStayOrdered(t *testing.T) {
	cfg := testConfig()
	cfg.ZoneExpandPct = 0.01 // wide padding forces neighbor overlap
	agg := mustAggregator(t, cfg)

	report := agg.Aggregate(Inputs{
		Symbol:       "BTCUSDT",
		CurrentPrice: 110.0,
		Candidates: []levels.Candidate{
			candidate(100.0, 1.0, "Swing_Low_1d", levels.SideSupport, levels.SourceStructural, "1d"),
			candidate(101.0, 1.0, "SMA_50", levels.SideSupport, levels.SourceStatic, "4h"),
		},
	})

	require.Len(t, report.SupportZones, 2)
	for _, z := range report.SupportZones {
		assert.LessOrEqual(t, z.PriceLow, z.PriceCenter)
		assert.LessOrEqual(t, z.PriceCenter, z.PriceHigh)
	}
	upper, lower := report.SupportZones[0], report.SupportZones[1]
	assert.Less(t, lower.PriceHigh, upper.PriceLow, "adjacent zones must not overlap after clipping")
}

func TestAggregate_EmptyAndInvalidInputs(t *testing.T) {
	agg := mustAggregator(t, testConfig())

	report := agg.Aggregate(Inputs{Symbol: "BTCUSDT", CurrentPrice: 100.0})
	assert.NotNil(t, report.SupportZones)
	assert.NotNil(t, report.ResistanceZones)
	assert.Empty(t, report.SupportZones)
	assert.Empty(t, report.ResistanceZones)
	assert.Nil(t, report.NearestSupport)
	assert.Nil(t, report.NearestResistance)

	report = agg.Aggregate(Inputs{Symbol: "BTCUSDT", CurrentPrice: 0})
	assert.Empty(t, report.SupportZones, "non-positive price yields an empty report")
}

func TestAggregate_Deterministic(t *testing.T) {
	agg := mustAggregator(t, testConfig())

	cands := []levels.Candidate{
		candidate(99.2, 1.5, "VPOC_15m", levels.SideSupport, levels.SourceStructural, "15m"),
		candidate(99.0, 2.0, "Swing_Low_1d", levels.SideSupport, levels.SourceStructural, "1d"),
		candidate(101.0, 1.0, "Pivot_D_R1", levels.SideResistance, levels.SourceProjected, "1d"),
	}
	reversed := []levels.Candidate{cands[2], cands[1], cands[0]}

	a := agg.Aggregate(Inputs{Symbol: "BTCUSDT", CurrentPrice: 100.0, Candidates: cands})
	b := agg.Aggregate(Inputs{Symbol: "BTCUSDT", CurrentPrice: 100.0, Candidates: reversed})
	assert.Equal(t, a, b, "input order must not change the report")
}

func TestClusterThreshold(t *testing.T) {
	cfg := DefaultConfig()
	agg := mustAggregator(t, cfg)

	assert.InDelta(t, cfg.ATRMinPct, agg.clusterThreshold(100000, 10), 1e-12, "tiny ATR clamps to the floor")
	assert.InDelta(t, cfg.ATRMaxPct, agg.clusterThreshold(100, 50), 1e-12, "huge ATR clamps to the ceiling")
	assert.InDelta(t, 0.005, agg.clusterThreshold(100, 1), 1e-12, "in-band ATR scales linearly")
	assert.InDelta(t, cfg.ClusterThresholdPct, agg.clusterThreshold(100, 0), 1e-12, "zero ATR falls back to fixed")
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cluster threshold", func(c *Config) { c.ClusterThresholdPct = 0 }},
		{"inverted atr clamp", func(c *Config) { c.ATRMinPct = 0.02; c.ATRMaxPct = 0.01 }},
		{"zero family cap", func(c *Config) { c.SameDataWeightCap = 0 }},
		{"inverted confluence bonuses", func(c *Config) { c.ConfluenceBonus2 = 2; c.ConfluenceBonus3 = 1 }},
		{"inverted touch range", func(c *Config) { c.OptimalTouchesMin = 4; c.OptimalTouchesMax = 2 }},
		{"decay before optimal", func(c *Config) { c.DecayAfterTouches = 1 }},
		{"inverted strength thresholds", func(c *Config) { c.StrengthHighMin = c.StrengthMediumMin }},
		{"round numbers without step", func(c *Config) { c.RoundNumbers.Step = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
