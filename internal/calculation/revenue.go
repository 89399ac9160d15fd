package calculation

import (
	"github.com/kevsynapthrive/oka-water-calculator/internal/domain"
	"github.com/shopspring/decimal"
)

// InfrastructureReserve is the straight-line annual funding needed to replace
// infrastructure over its lifespan. A non-positive lifespan contributes
// nothing rather than dividing by zero.
func InfrastructureReserve(infrastructureCost decimal.Decimal, assetLifespan int) decimal.Decimal {
	if assetLifespan <= 0 {
		return decimalZero
	}
	return infrastructureCost.Div(decimal.NewFromInt(int64(assetLifespan)))
}

// OperatingCostForYear inflates the base operating cost to the given
// projection year.
func OperatingCostForYear(baseCost, inflationPercent decimal.Decimal, year int) decimal.Decimal {
	if year <= 0 {
		return baseCost
	}
	return baseCost.Mul(onePlusPercent(inflationPercent).Pow(decimal.NewFromInt(int64(year))))
}

// GrantsForYear sums grant amounts that land in the given projection year.
func GrantsForYear(grants []domain.Grant, year int) decimal.Decimal {
	total := decimalZero
	for _, grant := range grants {
		if grant.Year == year {
			total = total.Add(grant.Amount)
		}
	}
	return total
}

// AnnualRevenueNeed combines operating cost, debt service, and reserve
// funding net of grants. The result is floored at zero: a grant larger than
// the year's costs never produces a negative need.
func AnnualRevenueNeed(operatingCost, debtService, infrastructureReserve, grants decimal.Decimal) decimal.Decimal {
	need := operatingCost.Add(debtService).Add(infrastructureReserve).Sub(grants)
	if need.LessThan(decimalZero) {
		return decimalZero
	}
	return need
}

// AnnualRevenue is the yearly rate revenue from a customer base paying a
// monthly bill.
func AnnualRevenue(customerCount, monthlyBill decimal.Decimal) decimal.Decimal {
	return customerCount.Mul(monthlyBill).Mul(decimalTwelve)
}

// RevenueGap is revenue minus need; negative means a deficit.
func RevenueGap(revenue, need decimal.Decimal) decimal.Decimal {
	return revenue.Sub(need)
}

// CoveragePercent is revenue as a percentage of need, zero when there is no
// need to cover.
func CoveragePercent(revenue, need decimal.Decimal) decimal.Decimal {
	if need.LessThanOrEqual(decimalZero) {
		return decimalZero
	}
	return revenue.Div(need).Mul(decimalHundred)
}
