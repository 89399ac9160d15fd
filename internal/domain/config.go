package domain

import (
	"github.com/shopspring/decimal"
)

// NumTiers is the number of positional rate tier slots. Disabling a tier does
// not remove it; downstream output keeps tiers 1..4 indexable.
const NumTiers = 4

// FundingSource identifies how a capital project is paid for.
type FundingSource string

const (
	FundingReserves FundingSource = "reserves"
	FundingLoan     FundingSource = "loan"
)

// RateTier is one usage band of a volumetric rate structure. Limit is the
// upper usage bound in gallons; nil means unbounded and is only meaningful on
// the last enabled tier. Rate is charged per 1,000 usage units.
type RateTier struct {
	Enabled bool             `yaml:"enabled" json:"enabled"`
	Limit   *decimal.Decimal `yaml:"limit" json:"limit"`
	Rate    decimal.Decimal  `yaml:"rate" json:"rate"`
}

// RateStructure is a complete monthly rate design: a flat base rate, a flat
// add-on fee, and four positional usage tiers.
type RateStructure struct {
	BaseRate decimal.Decimal    `yaml:"baseRate" json:"baseRate"`
	AddonFee decimal.Decimal    `yaml:"addonFee" json:"addonFee"`
	Tiers    [NumTiers]RateTier `yaml:"tiers" json:"tiers"`
}

// Loan is a debt instrument amortized over its term. Interest is an annual
// whole-number percent (5 means 5%). Year is the origination year relative to
// the projection start.
type Loan struct {
	Name     string          `yaml:"name" json:"name"`
	Amount   decimal.Decimal `yaml:"amount" json:"amount"`
	Interest decimal.Decimal `yaml:"interest" json:"interest"`
	Term     int             `yaml:"term" json:"term"`
	Year     int             `yaml:"year" json:"year"`
}

// Project is a planned capital improvement. A loan-funded project is financed
// by the same-named Loan entry when one exists, otherwise by a synthetic loan
// at the system's interest rate over the asset lifespan.
type Project struct {
	Name    string          `yaml:"name" json:"name"`
	Cost    decimal.Decimal `yaml:"cost" json:"cost"`
	Year    int             `yaml:"year" json:"year"`
	Funding FundingSource   `yaml:"funding" json:"funding"`
}

// Grant is a one-time revenue offset applied in its target year.
type Grant struct {
	Name   string          `yaml:"name" json:"name"`
	Amount decimal.Decimal `yaml:"amount" json:"amount"`
	Year   int             `yaml:"year" json:"year"`
}

// Configuration is the flat input record every computation is a pure function
// of. Percent-valued fields are whole-number percents (inflationRate 3 means
// 3% per year).
type Configuration struct {
	// Demographics
	MedianIncome        decimal.Decimal `yaml:"medianIncome" json:"medianIncome"`
	PovertyIncome       decimal.Decimal `yaml:"povertyIncome" json:"povertyIncome"`
	BelowPovertyPercent decimal.Decimal `yaml:"belowPovertyPercent" json:"belowPovertyPercent"`

	// System
	CustomerCount    decimal.Decimal `yaml:"customerCount" json:"customerCount"`
	AvgMonthlyUsage  decimal.Decimal `yaml:"avgMonthlyUsage" json:"avgMonthlyUsage"`
	WaterLossPercent decimal.Decimal `yaml:"waterLossPercent" json:"waterLossPercent"`

	// Financial
	OperatingCost      decimal.Decimal `yaml:"operatingCost" json:"operatingCost"`
	DebtPayments       decimal.Decimal `yaml:"debtPayments" json:"debtPayments"`
	DebtTerm           int             `yaml:"debtTerm" json:"debtTerm"`
	InfrastructureCost decimal.Decimal `yaml:"infrastructureCost" json:"infrastructureCost"`
	InterestRate       decimal.Decimal `yaml:"interestRate" json:"interestRate"`
	AssetLifespan      int             `yaml:"assetLifespan" json:"assetLifespan"`
	ProjectionPeriod   int             `yaml:"projectionPeriod" json:"projectionPeriod"`
	InflationRate      decimal.Decimal `yaml:"inflationRate" json:"inflationRate"`
	CustomerGrowthRate decimal.Decimal `yaml:"customerGrowthRate" json:"customerGrowthRate"`
	InterestAdjustment decimal.Decimal `yaml:"interestAdjustment" json:"interestAdjustment"`
	TargetReserve      decimal.Decimal `yaml:"targetReserve" json:"targetReserve"`
	TargetYear         int             `yaml:"targetYear" json:"targetYear"`

	// Rate structures: the billed design and the what-if design.
	CurrentRates RateStructure `yaml:"currentRates" json:"currentRates"`
	FutureRates  RateStructure `yaml:"futureRates" json:"futureRates"`

	Loans    []Loan    `yaml:"loans" json:"loans"`
	Projects []Project `yaml:"projects" json:"projects"`
	Grants   []Grant   `yaml:"grants" json:"grants"`
}

// DeepCopy returns an independent copy of the configuration. The projection
// and solver loops carry local accumulators; handing them a copy guarantees
// nothing leaks back into the shared, user-visible record.
func (c *Configuration) DeepCopy() *Configuration {
	if c == nil {
		return nil
	}
	copied := *c
	copied.CurrentRates = c.CurrentRates.DeepCopy()
	copied.FutureRates = c.FutureRates.DeepCopy()

	if c.Loans != nil {
		copied.Loans = make([]Loan, len(c.Loans))
		copy(copied.Loans, c.Loans)
	}
	if c.Projects != nil {
		copied.Projects = make([]Project, len(c.Projects))
		copy(copied.Projects, c.Projects)
	}
	if c.Grants != nil {
		copied.Grants = make([]Grant, len(c.Grants))
		copy(copied.Grants, c.Grants)
	}
	return &copied
}

// DeepCopy returns an independent copy of the rate structure, including tier
// limit pointers.
func (rs RateStructure) DeepCopy() RateStructure {
	copied := rs
	for i := range copied.Tiers {
		if rs.Tiers[i].Limit != nil {
			limit := *rs.Tiers[i].Limit
			copied.Tiers[i].Limit = &limit
		}
	}
	return copied
}

// LastEnabledTier returns the index of the highest-positioned enabled tier,
// or -1 when no tier is enabled.
func (rs RateStructure) LastEnabledTier() int {
	last := -1
	for i, tier := range rs.Tiers {
		if tier.Enabled {
			last = i
		}
	}
	return last
}

// HasVolumetricCharge reports whether any enabled tier carries a positive
// rate. A structure without one cannot recover volumetric revenue.
func (rs RateStructure) HasVolumetricCharge() bool {
	for _, tier := range rs.Tiers {
		if tier.Enabled && tier.Rate.GreaterThan(decimal.Zero) {
			return true
		}
	}
	return false
}
