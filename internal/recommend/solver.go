package recommend

import (
	"context"
	"fmt"

	"github.com/kevsynapthrive/oka-water-calculator/internal/calculation"
	"github.com/kevsynapthrive/oka-water-calculator/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	decimalZero    = decimal.Zero
	decimalOne     = decimal.NewFromInt(1)
	decimalTwelve  = decimal.NewFromInt(12)
	decimalHundred = decimal.NewFromInt(100)
)

// Solver computes rate recommendations.
type Solver struct {
	Options Options
	Logger  calculation.Logger
}

// NewSolver creates a solver with the given options.
func NewSolver(options Options) *Solver {
	return &Solver{Options: options, Logger: calculation.NopLogger{}}
}

// NewDefaultSolver creates a solver with default options.
func NewDefaultSolver() *Solver {
	return NewSolver(DefaultOptions())
}

// SetLogger replaces the solver's logger; nil restores the no-op logger.
func (s *Solver) SetLogger(l calculation.Logger) {
	if l == nil {
		s.Logger = calculation.NopLogger{}
		return
	}
	s.Logger = l
}

// Recommend derives the ideal long-run rate structure for the configuration
// and walks a bounded transition toward it, nudging rates upward within the
// annual ceiling whenever a year under-recovers its revenue need. Full cost
// recovery is not guaranteed: when the ceiling binds, the remaining deficit
// is recorded as a warning and the best-effort rates stand. The shared
// configuration is never mutated.
func (s *Solver) Recommend(ctx context.Context, cfg *domain.Configuration) (*domain.Recommendation, error) {
	if cfg.CustomerCount.LessThanOrEqual(decimalZero) || cfg.AvgMonthlyUsage.LessThanOrEqual(decimalZero) {
		return nil, &SolverError{
			Operation: "ideal_rates",
			Message:   "customer count and average usage must be positive",
		}
	}

	// Work on a copy; the year loop's customer and reserve accumulators must
	// never leak into the caller's record.
	local := cfg.DeepCopy()

	ideal := s.idealRates(local)
	projection, warnings, err := s.transition(ctx, local, ideal)
	if err != nil {
		return nil, err
	}

	return &domain.Recommendation{
		IdealRates: ideal,
		Projection: projection,
		Warnings:   warnings,
	}, nil
}

// idealRates builds the long-run target structure from the year-1 revenue
// need. The add-on fee is held at its current value; the remaining need is
// split between the base rate and a four-tier volumetric charge whose limits
// sit at fixed multiples of average usage and whose rates climb by the
// configured factors, weighted by the usage an average customer places in
// each tier.
func (s *Solver) idealRates(cfg *domain.Configuration) domain.RateStructure {
	opts := s.Options

	customers := cfg.CustomerCount.Mul(onePlusPercent(cfg.CustomerGrowthRate))
	operatingCost := calculation.OperatingCostForYear(cfg.OperatingCost, cfg.InflationRate, 1)
	debt := calculation.ConsolidateDebt(cfg, 1).Total
	infra := calculation.InfrastructureReserve(cfg.InfrastructureCost, cfg.AssetLifespan)
	grants := calculation.GrantsForYear(cfg.Grants, 1)
	need := calculation.AnnualRevenueNeed(operatingCost, debt, infra, grants)

	addon := cfg.CurrentRates.AddonFee
	addonRevenue := calculation.AnnualRevenue(customers, addon)
	remainder := need.Sub(addonRevenue)
	if remainder.LessThan(decimalZero) {
		remainder = decimalZero
	}

	shareTotal := opts.BaseShare.Add(opts.VolumetricShare)
	if shareTotal.LessThanOrEqual(decimalZero) {
		shareTotal = decimalOne
	}
	baseTarget := remainder.Mul(opts.BaseShare).Div(shareTotal)
	volumetricTarget := remainder.Mul(opts.VolumetricShare).Div(shareTotal)

	structure := domain.RateStructure{AddonFee: addon}

	// Tier limits at multiples of average usage, and the share of an average
	// customer's usage that falls in each band.
	usageInTier := [domain.NumTiers]decimal.Decimal{}
	prevLimit := decimalZero
	remaining := cfg.AvgMonthlyUsage
	for i := 0; i < domain.NumTiers; i++ {
		structure.Tiers[i].Enabled = true
		if opts.TierLimitFactors[i] != nil {
			limit := cfg.AvgMonthlyUsage.Mul(*opts.TierLimitFactors[i])
			structure.Tiers[i].Limit = &limit
			width := limit.Sub(prevLimit)
			if width.LessThan(decimalZero) {
				width = decimalZero
			}
			usageInTier[i] = decimal.Min(remaining, width)
			prevLimit = limit
		} else {
			usageInTier[i] = remaining
		}
		remaining = remaining.Sub(usageInTier[i])
	}

	// Solve the unit rate so the weighted tier revenue meets the volumetric
	// target: sum_i (usage_i/1000 * unit*factor_i) * customers * 12.
	weight := decimalZero
	for i := 0; i < domain.NumTiers; i++ {
		weight = weight.Add(usageInTier[i].Div(decimal.NewFromInt(1000)).Mul(opts.TierRateFactors[i]))
	}
	unitRate := decimalZero
	if weight.GreaterThan(decimalZero) && customers.GreaterThan(decimalZero) {
		unitRate = volumetricTarget.Div(customers.Mul(decimalTwelve).Mul(weight))
	}
	for i := 0; i < domain.NumTiers; i++ {
		structure.Tiers[i].Rate = unitRate.Mul(opts.TierRateFactors[i])
	}

	if customers.GreaterThan(decimalZero) {
		structure.BaseRate = baseTarget.Div(customers.Mul(decimalTwelve))
	}

	// One corrective rescale when generated revenue strays more than the
	// tolerance from the target; the add-on never scales.
	revenue := calculation.AnnualRevenue(customers, calculation.MonthlyBill(structure, cfg.AvgMonthlyUsage))
	if need.GreaterThan(decimalZero) {
		deviation := revenue.Sub(need).Abs().Div(need)
		if deviation.GreaterThan(opts.RescaleTolerance) {
			numerator := need.Sub(addonRevenue)
			denominator := revenue.Sub(addonRevenue)
			if denominator.GreaterThan(decimalZero) && numerator.GreaterThan(decimalZero) {
				scaleRates(&structure, numerator.Div(denominator))
			}
		}
	}

	// Affordability ceiling: rescale base and tiers (never the add-on) so the
	// average bill stays within the threshold share of monthly MHI.
	if cfg.MedianIncome.GreaterThan(decimalZero) {
		ceiling := cfg.MedianIncome.Div(decimalTwelve).Mul(opts.AffordabilityThreshold.Div(decimalHundred))
		bill := calculation.MonthlyBill(structure, cfg.AvgMonthlyUsage)
		if bill.GreaterThan(ceiling) && bill.GreaterThan(addon) {
			factor := ceiling.Sub(addon).Div(bill.Sub(addon))
			if factor.LessThan(decimalZero) {
				factor = decimalZero
			}
			scaleRates(&structure, factor)
		}
	}

	return structure
}

// scaleRates multiplies the base rate and every tier rate by factor, leaving
// the add-on fee untouched.
func scaleRates(rs *domain.RateStructure, factor decimal.Decimal) {
	rs.BaseRate = rs.BaseRate.Mul(factor)
	for i := range rs.Tiers {
		rs.Tiers[i].Rate = rs.Tiers[i].Rate.Mul(factor)
	}
}

// transition walks years 0..ProjectionPeriod from the current rates toward
// the ideal, applying the bounded step and the solvency correction, and
// carrying local customer and reserve accumulators.
func (s *Solver) transition(ctx context.Context, cfg *domain.Configuration, ideal domain.RateStructure) ([]domain.YearResult, []string, error) {
	opts := s.Options
	years := cfg.ProjectionPeriod
	if years < 0 {
		years = 0
	}
	period := years
	if period <= 0 {
		period = 1
	}

	infra := calculation.InfrastructureReserve(cfg.InfrastructureCost, cfg.AssetLifespan)
	maxStep := opts.MaxAnnualIncreasePercent.Div(decimalHundred)

	projection := make([]domain.YearResult, 0, years+1)
	var warnings []string

	prev := cfg.CurrentRates.DeepCopy()
	reserve := decimalZero

	for year := 0; year <= years; year++ {
		select {
		case <-ctx.Done():
			return nil, nil, &SolverError{Operation: "transition", Message: "canceled", Cause: ctx.Err()}
		default:
		}

		customers := cfg.CustomerCount.Mul(onePlusPercent(cfg.CustomerGrowthRate).Pow(decimal.NewFromInt(int64(year))))
		operatingCost := calculation.OperatingCostForYear(cfg.OperatingCost, cfg.InflationRate, year)
		debt := calculation.ConsolidateDebt(cfg, year)
		grants := calculation.GrantsForYear(cfg.Grants, year)
		need := calculation.AnnualRevenueNeed(operatingCost, debt.Total, infra, grants)

		rates := prev
		if year > 0 {
			rates = s.stepRates(prev, ideal, period, maxStep)
			revenue := calculation.AnnualRevenue(customers, calculation.MonthlyBill(rates, cfg.AvgMonthlyUsage))
			if revenue.LessThan(need) {
				var recovered bool
				rates, recovered = s.correctSolvency(rates, prev, need, customers, cfg.AvgMonthlyUsage, maxStep)
				if !recovered {
					shortfall := need.Sub(calculation.AnnualRevenue(customers, calculation.MonthlyBill(rates, cfg.AvgMonthlyUsage)))
					warning := fmt.Sprintf("year %d: rate-shock ceiling leaves a revenue shortfall of $%s", year, shortfall.StringFixed(0))
					warnings = append(warnings, warning)
					s.Logger.Warnf("%s", warning)
				}
			}
		}

		bill := calculation.MonthlyBill(rates, cfg.AvgMonthlyUsage)
		revenue := calculation.AnnualRevenue(customers, bill)

		result := domain.YearResult{
			Year:             year,
			BaseRate:         rates.BaseRate,
			AddonFee:         rates.AddonFee,
			CustomerCount:    customers,
			OperatingCost:    operatingCost,
			Grants:           grants,
			NewDebt:          calculation.NewDebtPrincipal(cfg, year),
			TotalDebtService: debt.Total,
			ExpectedRevenue:  revenue,
		}
		for i, tier := range rates.Tiers {
			result.TierRates[i] = tier.Rate
			if tier.Limit != nil {
				limit := *tier.Limit
				result.TierLimits[i] = &limit
			}
		}

		// Reserve recurrence, identical in form to the projection engine's.
		if year > 0 {
			target := calculation.TargetReserveContribution(cfg, reserve, year)
			surplus := revenue.Sub(operatingCost).Sub(debt.Total)
			contribution := decimal.Min(target, surplus)
			interest := reserve.Mul(calculation.ReserveInterestPercent(cfg, year).Div(decimalHundred))
			reserve = reserve.Add(contribution).Add(interest)
		}

		// Reserve draws land after the solvency correction: the correction
		// targets the pre-draw need, and an uncovered draw widens the
		// reported gap without another round of rate increases. The draw
		// shortfall depends on the surplus the corrected rates produce, so it
		// cannot be folded into the correction target.
		capital := decimalZero
		for _, project := range cfg.Projects {
			if project.Year != year {
				continue
			}
			capital = capital.Add(project.Cost)
			if project.Funding != domain.FundingReserves {
				continue
			}
			if reserve.GreaterThanOrEqual(project.Cost) {
				reserve = reserve.Sub(project.Cost)
			} else {
				need = need.Add(project.Cost.Sub(reserve))
				reserve = decimalZero
			}
		}
		if reserve.LessThan(decimalZero) {
			reserve = decimalZero
		}

		result.CapitalImprovements = capital
		result.NeededRevenue = need
		result.RevenueGap = calculation.RevenueGap(revenue, need)
		result.ReserveBalance = reserve

		mhiBurden, _ := calculation.BillBurden(bill, cfg.MedianIncome)
		result.AffordabilityMHI = mhiBurden
		poverty := calculation.PovertyForYear(year, bill, cfg.PovertyIncome, cfg.InflationRate)
		result.AffordabilityLowIncome = poverty.BurdenPercent

		projection = append(projection, result)
		prev = rates
	}

	return projection, warnings, nil
}

// stepRates moves the base rate and every tier rate one bounded step from
// prev toward ideal: 1/period of the remaining gap, clamped to the annual
// increase ceiling in both directions. The add-on fee stays pinned to its
// prior value; tier limits and enabled flags adopt the ideal design.
func (s *Solver) stepRates(prev, ideal domain.RateStructure, period int, maxStep decimal.Decimal) domain.RateStructure {
	out := ideal.DeepCopy()
	out.AddonFee = prev.AddonFee
	out.BaseRate = steppedValue(prev.BaseRate, ideal.BaseRate, period, maxStep)
	for i := range out.Tiers {
		out.Tiers[i].Rate = steppedValue(prev.Tiers[i].Rate, ideal.Tiers[i].Rate, period, maxStep)
	}
	return out
}

func steppedValue(prev, ideal decimal.Decimal, period int, maxStep decimal.Decimal) decimal.Decimal {
	next := prev.Add(ideal.Sub(prev).Div(decimal.NewFromInt(int64(period))))
	if prev.LessThanOrEqual(decimalZero) {
		// A percentage ceiling on a zero base would freeze the component
		// forever; let it take the unclamped step.
		return next
	}
	upper := prev.Mul(decimalOne.Add(maxStep))
	lower := prev.Mul(decimalOne.Sub(maxStep))
	if next.GreaterThan(upper) {
		return upper
	}
	if next.LessThan(lower) {
		return lower
	}
	return next
}

// correctSolvency nudges the base and tier rates upward until the year's
// revenue covers its need, the per-component annual ceiling binds, or the
// iteration budget runs out. Returns the corrected structure and whether the
// shortfall cleared.
func (s *Solver) correctSolvency(rates, prev domain.RateStructure, need, customers, avgUsage, maxStep decimal.Decimal) (domain.RateStructure, bool) {
	opts := s.Options
	minFactor := decimalOne.Add(opts.MinStepFactor)

	for iteration := 0; iteration < opts.MaxSolvencyIterations; iteration++ {
		revenue := calculation.AnnualRevenue(customers, calculation.MonthlyBill(rates, avgUsage))
		shortfall := need.Sub(revenue)
		if shortfall.LessThan(opts.ShortfallTolerance) {
			return rates, true
		}
		if revenue.LessThanOrEqual(decimalZero) {
			return rates, false
		}

		factor := need.Div(revenue)
		if factor.GreaterThan(decimalOne.Add(maxStep)) {
			factor = decimalOne.Add(maxStep)
		}
		if factor.LessThan(minFactor) {
			factor = minFactor
		}

		changed := false
		apply := func(value, prevValue decimal.Decimal) decimal.Decimal {
			proposed := value.Mul(factor)
			if prevValue.GreaterThan(decimalZero) {
				ceiling := prevValue.Mul(decimalOne.Add(maxStep))
				if proposed.GreaterThan(ceiling) {
					proposed = ceiling
				}
			}
			if proposed.GreaterThan(value) {
				changed = true
				return proposed
			}
			return value
		}

		rates.BaseRate = apply(rates.BaseRate, prev.BaseRate)
		for i := range rates.Tiers {
			if !rates.Tiers[i].Enabled {
				continue
			}
			rates.Tiers[i].Rate = apply(rates.Tiers[i].Rate, prev.Tiers[i].Rate)
		}

		if !changed {
			// Every component is pinned at the ceiling; the deficit stands.
			return rates, false
		}
	}

	revenue := calculation.AnnualRevenue(customers, calculation.MonthlyBill(rates, avgUsage))
	return rates, need.Sub(revenue).LessThan(opts.ShortfallTolerance)
}

func onePlusPercent(percent decimal.Decimal) decimal.Decimal {
	return decimalOne.Add(percent.Div(decimalHundred))
}
