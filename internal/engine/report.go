package engine

import (
	"fmt"
	"strings"

	"github.com/tradelevels/levelmap/internal/domain/levels"
)

// BuildReportText renders the one-line-per-zone narrative consumed by the
// AI-prompt builder. Call after the hard control verdict has been attached.
func BuildReportText(report *levels.ZoneReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "S/R map for %s @ %.2f (ATR %.2f)\n", labelOr(report.Symbol, "snapshot"), report.CurrentPrice, report.RawData.ATRValue)

	writeSide := func(title string, zones []levels.Zone) {
		fmt.Fprintf(&b, "%s (%d):\n", title, len(zones))
		if len(zones) == 0 {
			b.WriteString("  none\n")
			return
		}
		for _, z := range zones {
			fmt.Fprintf(&b, "  %.2f-%.2f (center %.2f, %+.2f%%) strength=%s weight=%.2f touches=%d",
				z.PriceLow, z.PriceHigh, z.PriceCenter, z.DistancePct, z.Strength, z.TotalWeight, z.TouchCount)
			if z.HasOrderWall {
				fmt.Fprintf(&b, " wall=%.0f", z.WallSize)
			}
			fmt.Fprintf(&b, " sources=[%s]\n", strings.Join(z.Sources, ", "))
		}
	}

	writeSide("Resistance", report.ResistanceZones)
	writeSide("Support", report.SupportZones)

	fmt.Fprintf(&b, "Hard control: block_long=%t block_short=%t (%s)\n",
		report.HardControl.BlockLong, report.HardControl.BlockShort, report.HardControl.Reason)

	return b.String()
}

func labelOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
