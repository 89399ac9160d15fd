package domain

import (
	"github.com/shopspring/decimal"
)

// TierUsage is the usage and cost attributed to one positional tier slot for
// a single bill. Disabled tiers appear at their original position with zero
// usage and cost so tiers 1..4 stay indexable downstream.
type TierUsage struct {
	Enabled bool             `json:"enabled"`
	Usage   decimal.Decimal  `json:"usage"`
	Rate    decimal.Decimal  `json:"rate"`
	Limit   *decimal.Decimal `json:"limit"`
	Cost    decimal.Decimal  `json:"cost"`
}

// BillBreakdown is the volumetric portion of a monthly bill, tier by tier.
type BillBreakdown struct {
	Tiers     [NumTiers]TierUsage `json:"tiers"`
	TotalCost decimal.Decimal     `json:"totalCost"`
}

// UsageBill is one row of the bills-at-usage-levels comparison table.
type UsageBill struct {
	Usage decimal.Decimal `json:"usage"`
	Bill  decimal.Decimal `json:"bill"`
}

// SnapshotResult holds the single-year evaluation of one rate structure at
// the configured average usage.
type SnapshotResult struct {
	Label                  string          `json:"label"`
	MonthlyBill            decimal.Decimal `json:"monthlyBill"`
	Breakdown              BillBreakdown   `json:"breakdown"`
	AffordabilityMHI       decimal.Decimal `json:"affordabilityMHI"`
	AffordabilityLowIncome decimal.Decimal `json:"affordabilityLowIncome"`
	AnnualRevenue          decimal.Decimal `json:"annualRevenue"`
	NeededRevenue          decimal.Decimal `json:"neededRevenue"`
	RevenueGap             decimal.Decimal `json:"revenueGap"`
	CoveragePercent        decimal.Decimal `json:"coveragePercent"`
	UsageComparison        []UsageBill     `json:"usageComparison"`
}

// YearResult is one computed year of a multi-year projection. Immutable once
// computed for a given input snapshot.
type YearResult struct {
	Year int `json:"year"`

	BaseRate   decimal.Decimal            `json:"baseRate"`
	AddonFee   decimal.Decimal            `json:"addonFee"`
	TierRates  [NumTiers]decimal.Decimal  `json:"tierRates"`
	TierLimits [NumTiers]*decimal.Decimal `json:"tierLimits"`

	CustomerCount decimal.Decimal `json:"customerCount"`
	OperatingCost decimal.Decimal `json:"operatingCost"`

	CapitalImprovements decimal.Decimal `json:"capitalImprovements"`
	Grants              decimal.Decimal `json:"grants"`
	NewDebt             decimal.Decimal `json:"newDebt"`
	TotalDebtService    decimal.Decimal `json:"totalDebtService"`

	ExpectedRevenue decimal.Decimal `json:"expectedRevenue"`
	NeededRevenue   decimal.Decimal `json:"neededRevenue"`
	RevenueGap      decimal.Decimal `json:"revenueGap"`
	ReserveBalance  decimal.Decimal `json:"reserveBalance"`

	AffordabilityMHI       decimal.Decimal `json:"affordabilityMHI"`
	AffordabilityLowIncome decimal.Decimal `json:"affordabilityLowIncome"`
}

// WaterLossResult is the per-year financial impact of non-revenue water.
// Volumes are annual gallons.
type WaterLossResult struct {
	Year             int             `json:"year"`
	BilledVolume     decimal.Decimal `json:"billedVolume"`
	ProductionVolume decimal.Decimal `json:"productionVolume"`
	LostVolume       decimal.Decimal `json:"lostVolume"`
	LostRevenue      decimal.Decimal `json:"lostRevenue"`
	LossPercent      decimal.Decimal `json:"lossPercent"`
}

// AffordabilityStatus is an EPA-style burden classification of a water bill
// against household income.
type AffordabilityStatus string

const (
	StatusAffordable   AffordabilityStatus = "affordable"
	StatusBurdensome   AffordabilityStatus = "burdensome"
	StatusUnaffordable AffordabilityStatus = "unaffordable"
)

// PovertyResult is the per-year affordability of the projected bill for a
// household at the poverty line.
type PovertyResult struct {
	Year          int                 `json:"year"`
	MonthlyBill   decimal.Decimal     `json:"monthlyBill"`
	PovertyIncome decimal.Decimal     `json:"povertyIncome"`
	BurdenPercent decimal.Decimal     `json:"burdenPercent"`
	Status        AffordabilityStatus `json:"status"`
}

// Recommendation is the rate solver's output: the long-run ideal structure
// and the feasible year-by-year path toward it. Warnings records years where
// the rate-shock ceiling left a revenue shortfall standing.
type Recommendation struct {
	IdealRates RateStructure `json:"idealRates"`
	Projection []YearResult  `json:"projection"`
	Warnings   []string      `json:"warnings"`
}

// Results is the full output of one recomputation pass.
type Results struct {
	Current         SnapshotResult    `json:"current"`
	Future          SnapshotResult    `json:"future"`
	Projection      []YearResult      `json:"projection"`
	WaterLoss       []WaterLossResult `json:"waterLoss"`
	Poverty         []PovertyResult   `json:"poverty"`
	Recommendations *Recommendation   `json:"recommendations,omitempty"`
}
