package calculation

import (
	"github.com/kevsynapthrive/oka-water-calculator/internal/domain"
	"github.com/shopspring/decimal"
)

// ProjectionOutput bundles the year-indexed series produced by one projection
// pass. The water-loss and poverty series are computed inside the year loop
// so they price each year at that year's interpolated bill.
type ProjectionOutput struct {
	Years     []domain.YearResult
	WaterLoss []domain.WaterLossResult
	Poverty   []domain.PovertyResult
}

// TransitionFactor is the fraction of the way from current to future rates in
// a projection year: linear over the target year, or over the whole period
// when no target year is set, clamped to 1.
func TransitionFactor(cfg *domain.Configuration, year int) decimal.Decimal {
	if year <= 0 {
		return decimalZero
	}
	horizon := cfg.TargetYear
	if horizon <= 0 {
		horizon = cfg.ProjectionPeriod
	}
	if horizon <= 0 || year >= horizon {
		return decimalOne
	}
	return decimal.NewFromInt(int64(year)).Div(decimal.NewFromInt(int64(horizon)))
}

// InterpolateRates moves every rate component linearly from current toward
// future by the transition factor. Tier limits and enabled flags are
// structural rather than priced components: mid-transition a tier is active
// when either side enables it, and its limit follows the future design once
// any transition has begun. A completed transition is the future structure
// outright, so tiers the future disables hand their band to the neighboring
// enabled tier instead of lingering at a lerped-to-zero rate.
func InterpolateRates(current, future domain.RateStructure, t decimal.Decimal) domain.RateStructure {
	lerp := func(from, to decimal.Decimal) decimal.Decimal {
		return from.Add(to.Sub(from).Mul(t))
	}
	complete := t.GreaterThanOrEqual(decimalOne)

	out := domain.RateStructure{
		BaseRate: lerp(current.BaseRate, future.BaseRate),
		AddonFee: lerp(current.AddonFee, future.AddonFee),
	}
	for i := 0; i < domain.NumTiers; i++ {
		cur, fut := current.Tiers[i], future.Tiers[i]
		enabled := cur.Enabled || fut.Enabled
		if complete {
			enabled = fut.Enabled
		}
		tier := domain.RateTier{
			Enabled: enabled,
			Rate:    lerp(cur.Rate, fut.Rate),
		}
		limitSource := cur
		if t.GreaterThan(decimalZero) && fut.Enabled {
			limitSource = fut
		}
		if limitSource.Limit != nil {
			limit := *limitSource.Limit
			tier.Limit = &limit
		}
		out.Tiers[i] = tier
	}
	return out
}

// ReserveInterestPercent is the whole-number interest percent earned on the
// reserve balance in a projection year, drifting by the configured adjustment
// and floored at zero.
func ReserveInterestPercent(cfg *domain.Configuration, year int) decimal.Decimal {
	rate := cfg.InterestRate.Add(cfg.InterestAdjustment.Mul(decimal.NewFromInt(int64(year))))
	if rate.LessThan(decimalZero) {
		return decimalZero
	}
	return rate
}

// TargetReserveContribution is the contribution the utility aims to make in a
// year: straight-line funding of the remaining gap to the reserve target
// while one is in force, then steady maintenance funding of infrastructure
// replacement afterward. The divisor counts the contribution years still
// ahead, this one included, so a fully funded schedule closes the gap in the
// year before the target year.
func TargetReserveContribution(cfg *domain.Configuration, prevReserve decimal.Decimal, year int) decimal.Decimal {
	maintenance := InfrastructureReserve(cfg.InfrastructureCost, cfg.AssetLifespan)
	if cfg.TargetYear <= 0 || cfg.TargetReserve.LessThanOrEqual(decimalZero) || year >= cfg.TargetYear {
		return maintenance
	}

	remaining := cfg.TargetReserve.Sub(prevReserve)
	if remaining.LessThanOrEqual(decimalZero) {
		return maintenance
	}
	yearsLeft := cfg.TargetYear - year
	return remaining.Div(decimal.NewFromInt(int64(yearsLeft)))
}

// projectionState is the explicit accumulator carried across the year loop.
// It is seeded from a copy of the configuration so the loop never writes back
// into shared state.
type projectionState struct {
	customers decimal.Decimal
	reserve   decimal.Decimal
}

// Project walks years 0..ProjectionPeriod, transitioning rates toward the
// what-if structure, growing customers and costs, consolidating debt, and
// tracking the reserve balance recurrence. Replaying it on an unmodified
// configuration yields an identical output.
func Project(cfg *domain.Configuration) ProjectionOutput {
	years := cfg.ProjectionPeriod
	if years < 0 {
		years = 0
	}

	out := ProjectionOutput{
		Years:     make([]domain.YearResult, 0, years+1),
		WaterLoss: make([]domain.WaterLossResult, 0, years+1),
		Poverty:   make([]domain.PovertyResult, 0, years+1),
	}

	infra := InfrastructureReserve(cfg.InfrastructureCost, cfg.AssetLifespan)
	st := projectionState{customers: cfg.CustomerCount}

	for year := 0; year <= years; year++ {
		rates := InterpolateRates(cfg.CurrentRates, cfg.FutureRates, TransitionFactor(cfg, year))
		growth := onePlusPercent(cfg.CustomerGrowthRate).Pow(decimal.NewFromInt(int64(year)))
		st.customers = cfg.CustomerCount.Mul(growth)

		operatingCost := OperatingCostForYear(cfg.OperatingCost, cfg.InflationRate, year)
		debt := ConsolidateDebt(cfg, year)
		grants := GrantsForYear(cfg.Grants, year)
		need := AnnualRevenueNeed(operatingCost, debt.Total, infra, grants)

		bill := MonthlyBill(rates, cfg.AvgMonthlyUsage)
		revenue := AnnualRevenue(st.customers, bill)

		result := domain.YearResult{
			Year:             year,
			BaseRate:         rates.BaseRate,
			AddonFee:         rates.AddonFee,
			CustomerCount:    st.customers,
			OperatingCost:    operatingCost,
			Grants:           grants,
			NewDebt:          NewDebtPrincipal(cfg, year),
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

		// Reserve recurrence. Year 0 reports the pre-projection balance of
		// zero; later years add the funded contribution plus interest before
		// drawing reserve-funded capital work.
		if year > 0 {
			target := TargetReserveContribution(cfg, st.reserve, year)
			surplus := revenue.Sub(operatingCost).Sub(debt.Total)
			contribution := decimal.Min(target, surplus)
			interest := st.reserve.Mul(ReserveInterestPercent(cfg, year).Div(decimalHundred))
			st.reserve = st.reserve.Add(contribution).Add(interest)
		}

		capital := decimalZero
		for _, project := range cfg.Projects {
			if project.Year != year {
				continue
			}
			capital = capital.Add(project.Cost)
			if project.Funding != domain.FundingReserves {
				continue
			}
			if st.reserve.GreaterThanOrEqual(project.Cost) {
				st.reserve = st.reserve.Sub(project.Cost)
			} else {
				// The reserve cannot cover the draw: empty it and roll the
				// shortfall into this year's revenue need.
				shortfall := project.Cost.Sub(st.reserve)
				st.reserve = decimalZero
				need = need.Add(shortfall)
			}
		}
		if st.reserve.LessThan(decimalZero) {
			st.reserve = decimalZero
		}

		result.CapitalImprovements = capital
		result.NeededRevenue = need
		result.RevenueGap = RevenueGap(revenue, need)
		result.ReserveBalance = st.reserve
		result.AffordabilityMHI = clampedBurden(bill, cfg.MedianIncome)

		poverty := PovertyForYear(year, bill, cfg.PovertyIncome, cfg.InflationRate)
		result.AffordabilityLowIncome = poverty.BurdenPercent

		out.Years = append(out.Years, result)
		out.WaterLoss = append(out.WaterLoss, WaterLossForYear(year, st.customers, cfg.AvgMonthlyUsage, cfg.WaterLossPercent, rates))
		out.Poverty = append(out.Poverty, poverty)
	}

	return out
}
