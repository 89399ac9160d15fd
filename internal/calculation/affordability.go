package calculation

import (
	"github.com/kevsynapthrive/oka-water-calculator/internal/domain"
	"github.com/shopspring/decimal"
)

// EPA-style burden thresholds, as a percent of household income.
var (
	burdenAffordableCeiling = decimal.NewFromFloat(2.5)
	burdenModerateCeiling   = decimal.NewFromInt(5)
)

// BillBurden is a monthly bill as a percentage of an annual household income.
// Income at or below zero has no defined burden; the second return reports
// whether the percentage is meaningful, and callers clamp undefined values to
// zero for stored results.
func BillBurden(monthlyBill, annualIncome decimal.Decimal) (decimal.Decimal, bool) {
	if annualIncome.LessThanOrEqual(decimalZero) {
		return decimalZero, false
	}
	return monthlyBill.Mul(decimalTwelve).Div(annualIncome).Mul(decimalHundred), true
}

// clampedBurden is BillBurden with the undefined case folded to zero.
func clampedBurden(monthlyBill, annualIncome decimal.Decimal) decimal.Decimal {
	burden, _ := BillBurden(monthlyBill, annualIncome)
	return burden
}

// ClassifyBurden buckets a burden percentage into the three-level
// affordability status used for poverty reporting.
func ClassifyBurden(burdenPercent decimal.Decimal) domain.AffordabilityStatus {
	switch {
	case burdenPercent.LessThanOrEqual(burdenAffordableCeiling):
		return domain.StatusAffordable
	case burdenPercent.LessThanOrEqual(burdenModerateCeiling):
		return domain.StatusBurdensome
	default:
		return domain.StatusUnaffordable
	}
}

// WaterLossForYear prices the gap between produced and billed water. Billed
// volume is the customers' metered annual usage; production grosses it up by
// the system loss percentage, and the lost volume is priced at the effective
// volumetric rate actually paid at the average usage level.
func WaterLossForYear(year int, customers, avgMonthlyUsage, lossPercent decimal.Decimal, rates domain.RateStructure) domain.WaterLossResult {
	billed := customers.Mul(avgMonthlyUsage).Mul(decimalTwelve)

	result := domain.WaterLossResult{
		Year:             year,
		BilledVolume:     billed,
		ProductionVolume: billed,
		LossPercent:      lossPercent,
	}

	// A loss at or beyond 100% has no finite production volume; report the
	// billed volume with no loss rather than dividing by zero.
	if lossPercent.GreaterThan(decimalZero) && lossPercent.LessThan(decimalHundred) {
		retained := decimalOne.Sub(lossPercent.Div(decimalHundred))
		result.ProductionVolume = billed.Div(retained)
		result.LostVolume = result.ProductionVolume.Sub(billed)
		rate := AverageVolumetricRate(rates, avgMonthlyUsage)
		result.LostRevenue = result.LostVolume.Div(decimalThousand).Mul(rate)
	}

	return result
}

// PovertyForYear evaluates the projected bill against a poverty-line income
// inflated to the given year.
func PovertyForYear(year int, monthlyBill, povertyIncome, inflationPercent decimal.Decimal) domain.PovertyResult {
	income := povertyIncome
	if year > 0 {
		income = povertyIncome.Mul(onePlusPercent(inflationPercent).Pow(decimal.NewFromInt(int64(year))))
	}

	burden := clampedBurden(monthlyBill, income)
	return domain.PovertyResult{
		Year:          year,
		MonthlyBill:   monthlyBill,
		PovertyIncome: income,
		BurdenPercent: burden,
		Status:        ClassifyBurden(burden),
	}
}
