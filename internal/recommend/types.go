// Package recommend solves for a sustainable long-run rate structure and a
// feasible year-by-year path toward it, bounded by an affordability ceiling
// and a maximum annual rate increase.
package recommend

import (
	"fmt"

	"github.com/kevsynapthrive/oka-water-calculator/internal/domain"
	"github.com/shopspring/decimal"
)

// Options are the solver's tuning knobs. Percent-valued fields are
// whole-number percents, matching the configuration record.
type Options struct {
	// BaseShare and VolumetricShare split the revenue need left after the
	// pinned add-on fee between the flat base rate and the tiered charge.
	// They are renormalized, so 0.3/0.5 means 37.5%/62.5% of the remainder.
	BaseShare       decimal.Decimal
	VolumetricShare decimal.Decimal

	// TierLimitFactors place tier boundaries at multiples of average usage;
	// nil marks the unbounded top tier. TierRateFactors shape how steeply
	// rates climb across tiers.
	TierLimitFactors [domain.NumTiers]*decimal.Decimal
	TierRateFactors  [domain.NumTiers]decimal.Decimal

	// AffordabilityThreshold caps the ideal average bill at this percent of
	// monthly median household income.
	AffordabilityThreshold decimal.Decimal

	// MaxAnnualIncreasePercent is the rate-shock ceiling: no component may
	// move more than this percent in a single year.
	MaxAnnualIncreasePercent decimal.Decimal

	// MaxSolvencyIterations bounds the upward-nudging loop for a year whose
	// stepped rates under-recover revenue. ShortfallTolerance is the dollar
	// gap below which a year counts as recovered. MinStepFactor keeps each
	// nudge from stalling out.
	MaxSolvencyIterations int
	ShortfallTolerance    decimal.Decimal
	MinStepFactor         decimal.Decimal

	// RescaleTolerance is the relative revenue deviation above which the
	// ideal structure is rescaled once toward the target.
	RescaleTolerance decimal.Decimal
}

// DefaultOptions returns the standard solver configuration.
func DefaultOptions() Options {
	half := decimal.NewFromFloat(0.5)
	limit1 := decimal.NewFromFloat(0.5)
	limit2 := decimal.NewFromFloat(1.2)
	limit3 := decimal.NewFromFloat(2.5)

	return Options{
		BaseShare:       decimal.NewFromFloat(0.3),
		VolumetricShare: half,
		TierLimitFactors: [domain.NumTiers]*decimal.Decimal{
			&limit1, &limit2, &limit3, nil,
		},
		TierRateFactors: [domain.NumTiers]decimal.Decimal{
			decimal.NewFromInt(1),
			decimal.NewFromFloat(1.5),
			decimal.NewFromFloat(2.5),
			decimal.NewFromInt(4),
		},
		AffordabilityThreshold:   decimal.NewFromFloat(2.5),
		MaxAnnualIncreasePercent: decimal.NewFromInt(12),
		MaxSolvencyIterations:    200,
		ShortfallTolerance:       decimal.NewFromInt(1),
		MinStepFactor:            decimal.NewFromFloat(0.001),
		RescaleTolerance:         decimal.NewFromFloat(0.01),
	}
}

// SolverError describes a failure inside the recommendation solver.
type SolverError struct {
	Operation string
	Message   string
	Cause     error
}

func (e *SolverError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("recommend %s: %s: %v", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("recommend %s: %s", e.Operation, e.Message)
}

func (e *SolverError) Unwrap() error {
	return e.Cause
}
