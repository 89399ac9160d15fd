package calculation

import (
	"github.com/kevsynapthrive/oka-water-calculator/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	decimalZero     = decimal.Zero
	decimalOne      = decimal.NewFromInt(1)
	decimalTwelve   = decimal.NewFromInt(12)
	decimalHundred  = decimal.NewFromInt(100)
	decimalThousand = decimal.NewFromInt(1000)
)

// TierBreakdown allocates a monthly usage volume across the enabled tiers of
// a rate structure in positional order. Every tier except the last enabled
// one consumes at most its band width (limit minus the previous limit); the
// last enabled tier absorbs the remainder when unbounded, and clips excess
// usage when it carries a limit of its own. Disabled tiers appear in the
// output at their original position with zero usage and cost. A malformed
// band whose limit does not exceed the previous one contributes nothing.
func TierBreakdown(usage decimal.Decimal, tiers [domain.NumTiers]domain.RateTier) domain.BillBreakdown {
	var breakdown domain.BillBreakdown

	if usage.LessThan(decimalZero) {
		usage = decimalZero
	}

	remaining := usage
	prevLimit := decimalZero
	for i, tier := range tiers {
		out := domain.TierUsage{Enabled: tier.Enabled, Rate: tier.Rate, Limit: tier.Limit}
		if !tier.Enabled {
			breakdown.Tiers[i] = out
			continue
		}

		var allocated decimal.Decimal
		switch {
		case tier.Limit == nil:
			// Unbounded band; takes everything left. Only meaningful on the
			// last enabled tier, but an out-of-place nil limit behaves the
			// same way and later tiers simply see nothing.
			allocated = remaining
		default:
			width := tier.Limit.Sub(prevLimit)
			if width.LessThan(decimalZero) {
				width = decimalZero
			}
			allocated = decimal.Min(remaining, width)
			if tier.Limit.GreaterThan(prevLimit) {
				prevLimit = *tier.Limit
			}
		}

		out.Usage = allocated
		out.Cost = allocated.Div(decimalThousand).Mul(tier.Rate)
		remaining = remaining.Sub(allocated)
		breakdown.TotalCost = breakdown.TotalCost.Add(out.Cost)
		breakdown.Tiers[i] = out
	}

	return breakdown
}

// MonthlyBill computes the full monthly bill at a usage volume: base rate
// plus add-on fee plus the volumetric tier charges.
func MonthlyBill(rs domain.RateStructure, usage decimal.Decimal) decimal.Decimal {
	return rs.BaseRate.Add(rs.AddonFee).Add(TierBreakdown(usage, rs.Tiers).TotalCost)
}

// AverageVolumetricRate is the effective per-1,000-unit rate paid at a usage
// volume, used to price lost water. Zero usage yields zero.
func AverageVolumetricRate(rs domain.RateStructure, usage decimal.Decimal) decimal.Decimal {
	if usage.LessThanOrEqual(decimalZero) {
		return decimalZero
	}
	total := TierBreakdown(usage, rs.Tiers).TotalCost
	return total.Div(usage.Div(decimalThousand))
}

func onePlus(value decimal.Decimal) decimal.Decimal {
	return decimalOne.Add(value)
}

// onePlusPercent converts a whole-number percent into a (1 + rate) growth
// factor: 3 becomes 1.03.
func onePlusPercent(percent decimal.Decimal) decimal.Decimal {
	return decimalOne.Add(percent.Div(decimalHundred))
}
