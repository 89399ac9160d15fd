package recommend

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevsynapthrive/oka-water-calculator/internal/calculation"
	"github.com/kevsynapthrive/oka-water-calculator/internal/domain"
)

type capturingLogger struct {
	calculation.NopLogger
	warnings []string
}

func (l *capturingLogger) Warnf(format string, args ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func solverConfig() *domain.Configuration {
	limit1 := decimal.NewFromInt(4000)
	limit2 := decimal.NewFromInt(10000)

	return &domain.Configuration{
		MedianIncome:       decimal.NewFromInt(43500),
		PovertyIncome:      decimal.NewFromInt(15000),
		CustomerCount:      decimal.NewFromInt(6200),
		AvgMonthlyUsage:    decimal.NewFromInt(5800),
		OperatingCost:      decimal.NewFromInt(3850000),
		DebtPayments:       decimal.NewFromInt(120000),
		InfrastructureCost: decimal.NewFromInt(2000000),
		AssetLifespan:      20,
		ProjectionPeriod:   10,
		InflationRate:      decimal.NewFromInt(3),
		CustomerGrowthRate: decimal.NewFromInt(1),
		CurrentRates: domain.RateStructure{
			BaseRate: decimal.RequireFromString("18.50"),
			AddonFee: decimal.RequireFromString("7.25"),
			Tiers: [domain.NumTiers]domain.RateTier{
				{Enabled: true, Limit: &limit1, Rate: decimal.RequireFromString("5.20")},
				{Enabled: true, Limit: &limit2, Rate: decimal.RequireFromString("5.80")},
				{Enabled: false},
				{Enabled: false},
			},
		},
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.True(t, opts.BaseShare.Equal(decimal.NewFromFloat(0.3)))
	assert.True(t, opts.VolumetricShare.Equal(decimal.NewFromFloat(0.5)))
	assert.True(t, opts.AffordabilityThreshold.Equal(decimal.NewFromFloat(2.5)))
	assert.True(t, opts.MaxAnnualIncreasePercent.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, 200, opts.MaxSolvencyIterations)
	assert.Nil(t, opts.TierLimitFactors[domain.NumTiers-1], "the top tier is unbounded")
	for i := 0; i < domain.NumTiers-1; i++ {
		require.NotNil(t, opts.TierLimitFactors[i])
		if i > 0 {
			assert.True(t, opts.TierLimitFactors[i].GreaterThan(*opts.TierLimitFactors[i-1]))
		}
		assert.True(t, opts.TierRateFactors[i+1].GreaterThan(opts.TierRateFactors[i]))
	}
}

func TestRecommend_RequiresCustomersAndUsage(t *testing.T) {
	cfg := solverConfig()
	cfg.CustomerCount = decimal.Zero

	_, err := NewDefaultSolver().Recommend(context.Background(), cfg)

	var solverErr *SolverError
	require.True(t, errors.As(err, &solverErr))
	assert.Equal(t, "ideal_rates", solverErr.Operation)
}

func TestRecommend_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDefaultSolver().Recommend(ctx, solverConfig())

	var solverErr *SolverError
	require.True(t, errors.As(err, &solverErr))
	assert.Equal(t, "transition", solverErr.Operation)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecommend_DoesNotMutateConfiguration(t *testing.T) {
	cfg := solverConfig()
	snapshot := cfg.DeepCopy()

	_, err := NewDefaultSolver().Recommend(context.Background(), cfg)

	require.NoError(t, err)
	assert.True(t, reflect.DeepEqual(snapshot, cfg))
}

func TestRecommend_AddonFeePinnedEveryYear(t *testing.T) {
	cfg := solverConfig()

	rec, err := NewDefaultSolver().Recommend(context.Background(), cfg)

	require.NoError(t, err)
	assert.True(t, rec.IdealRates.AddonFee.Equal(cfg.CurrentRates.AddonFee))
	require.Len(t, rec.Projection, cfg.ProjectionPeriod+1)
	for _, year := range rec.Projection {
		assert.True(t, year.AddonFee.Equal(cfg.CurrentRates.AddonFee), "year %d", year.Year)
	}
}

func TestRecommend_YearZeroKeepsCurrentRates(t *testing.T) {
	cfg := solverConfig()

	rec, err := NewDefaultSolver().Recommend(context.Background(), cfg)

	require.NoError(t, err)
	first := rec.Projection[0]
	assert.Equal(t, 0, first.Year)
	assert.True(t, first.BaseRate.Equal(cfg.CurrentRates.BaseRate))
	for i, tier := range cfg.CurrentRates.Tiers {
		assert.True(t, first.TierRates[i].Equal(tier.Rate), "tier %d", i+1)
	}
}

func TestRecommend_RespectsRateShockCeiling(t *testing.T) {
	cfg := solverConfig()
	solver := NewDefaultSolver()
	maxStep := solver.Options.MaxAnnualIncreasePercent.Div(decimal.NewFromInt(100))

	rec, err := solver.Recommend(context.Background(), cfg)
	require.NoError(t, err)

	for y := 1; y < len(rec.Projection); y++ {
		prev := rec.Projection[y-1]
		cur := rec.Projection[y]
		assertStepBounded(t, y, "base", prev.BaseRate, cur.BaseRate, maxStep)
		for i := 0; i < domain.NumTiers; i++ {
			assertStepBounded(t, y, fmt.Sprintf("tier %d", i+1), prev.TierRates[i], cur.TierRates[i], maxStep)
		}
	}
}

// assertStepBounded checks a single component's year-over-year move against
// the annual ceiling. Components starting from zero are exempt; a percentage
// bound on nothing is meaningless.
func assertStepBounded(t *testing.T, year int, name string, prev, cur, maxStep decimal.Decimal) {
	t.Helper()
	if prev.LessThanOrEqual(decimal.Zero) {
		return
	}
	allowed := prev.Mul(maxStep)
	change := cur.Sub(prev).Abs()
	assert.True(t, change.LessThanOrEqual(allowed),
		"year %d %s moved %s against an allowance of %s", year, name, change, allowed)
}

func TestRecommend_IdealBillWithinAffordabilityCeiling(t *testing.T) {
	cfg := solverConfig()
	solver := NewDefaultSolver()

	rec, err := solver.Recommend(context.Background(), cfg)
	require.NoError(t, err)

	ceiling := cfg.MedianIncome.Div(decimal.NewFromInt(12)).
		Mul(solver.Options.AffordabilityThreshold.Div(decimal.NewFromInt(100)))
	bill := calculation.MonthlyBill(rec.IdealRates, cfg.AvgMonthlyUsage)
	assert.True(t, bill.LessThanOrEqual(ceiling),
		"ideal bill %s exceeds the ceiling %s", bill, ceiling)
}

func TestRecommend_IdealTiersClimbWithUsage(t *testing.T) {
	rec, err := NewDefaultSolver().Recommend(context.Background(), solverConfig())
	require.NoError(t, err)

	ideal := rec.IdealRates
	for i := 0; i < domain.NumTiers; i++ {
		assert.True(t, ideal.Tiers[i].Enabled)
		if i > 0 {
			assert.True(t, ideal.Tiers[i].Rate.GreaterThan(ideal.Tiers[i-1].Rate),
				"tier %d rate should exceed tier %d", i+1, i)
		}
	}
	assert.Nil(t, ideal.Tiers[domain.NumTiers-1].Limit)
	require.NotNil(t, ideal.Tiers[0].Limit)
	assert.True(t, ideal.Tiers[0].Limit.Equal(decimal.NewFromInt(2900)), "half of average usage")
}

func TestRecommend_WarnsWhenCeilingBinds(t *testing.T) {
	cfg := solverConfig()
	cfg.OperatingCost = decimal.NewFromInt(50000000)

	logger := &capturingLogger{}
	solver := NewDefaultSolver()
	solver.SetLogger(logger)

	rec, err := solver.Recommend(context.Background(), cfg)

	require.NoError(t, err)
	assert.NotEmpty(t, rec.Warnings, "an unreachable need should surface as warnings, not an error")
	assert.NotEmpty(t, logger.warnings)
	assert.Contains(t, rec.Warnings[0], "shortfall")
}

func TestRecommend_SolventYearsCarryNoWarnings(t *testing.T) {
	rec, err := NewDefaultSolver().Recommend(context.Background(), solverConfig())
	require.NoError(t, err)
	assert.Empty(t, rec.Warnings)
}

func TestSetLogger_NilRestoresNop(t *testing.T) {
	solver := NewDefaultSolver()
	solver.SetLogger(&capturingLogger{})
	solver.SetLogger(nil)
	assert.IsType(t, calculation.NopLogger{}, solver.Logger)
}

func TestSteppedValue(t *testing.T) {
	maxStep := decimal.NewFromFloat(0.12)

	t.Run("small gap moves by its period share", func(t *testing.T) {
		got := steppedValue(decimal.NewFromInt(100), decimal.NewFromInt(105), 5, maxStep)
		assert.True(t, got.Equal(decimal.NewFromInt(101)))
	})

	t.Run("large gap clamps to the ceiling", func(t *testing.T) {
		got := steppedValue(decimal.NewFromInt(10), decimal.NewFromInt(1000), 2, maxStep)
		assert.True(t, got.Equal(decimal.RequireFromString("11.2")))
	})

	t.Run("decrease clamps symmetrically", func(t *testing.T) {
		got := steppedValue(decimal.NewFromInt(100), decimal.Zero, 1, maxStep)
		assert.True(t, got.Equal(decimal.NewFromInt(88)))
	})

	t.Run("zero base steps unclamped", func(t *testing.T) {
		got := steppedValue(decimal.Zero, decimal.NewFromInt(50), 5, maxStep)
		assert.True(t, got.Equal(decimal.NewFromInt(10)))
	})
}

func TestCorrectSolvency_StopsAtComponentCeiling(t *testing.T) {
	solver := NewDefaultSolver()
	maxStep := decimal.NewFromFloat(0.12)

	limit := decimal.NewFromInt(4000)
	prev := domain.RateStructure{
		BaseRate: decimal.NewFromInt(10),
		AddonFee: decimal.NewFromInt(5),
		Tiers: [domain.NumTiers]domain.RateTier{
			{Enabled: true, Limit: &limit, Rate: decimal.NewFromInt(2)},
			{Enabled: true, Rate: decimal.NewFromInt(3)},
			{Enabled: false},
			{Enabled: false},
		},
	}
	rates := prev.DeepCopy()

	customers := decimal.NewFromInt(1000)
	usage := decimal.NewFromInt(6000)
	need := decimal.NewFromInt(10000000)

	corrected, recovered := solver.correctSolvency(rates, prev, need, customers, usage, maxStep)

	assert.False(t, recovered)
	assert.True(t, corrected.BaseRate.Equal(decimal.RequireFromString("11.2")),
		"base pinned at one annual step above its prior value")
	assert.True(t, corrected.Tiers[0].Rate.Equal(decimal.RequireFromString("2.24")))
	assert.True(t, corrected.AddonFee.Equal(prev.AddonFee))
}

func TestCorrectSolvency_RecoversSmallShortfall(t *testing.T) {
	solver := NewDefaultSolver()
	maxStep := decimal.NewFromFloat(0.12)

	limit := decimal.NewFromInt(4000)
	prev := domain.RateStructure{
		BaseRate: decimal.NewFromInt(20),
		AddonFee: decimal.NewFromInt(5),
		Tiers: [domain.NumTiers]domain.RateTier{
			{Enabled: true, Limit: &limit, Rate: decimal.NewFromInt(4)},
			{Enabled: true, Rate: decimal.NewFromInt(5)},
			{Enabled: false},
			{Enabled: false},
		},
	}
	rates := prev.DeepCopy()

	customers := decimal.NewFromInt(1000)
	usage := decimal.NewFromInt(6000)
	baseline := calculation.AnnualRevenue(customers, calculation.MonthlyBill(rates, usage))
	need := baseline.Mul(decimal.RequireFromString("1.05"))

	corrected, recovered := solver.correctSolvency(rates, prev, need, customers, usage, maxStep)

	assert.True(t, recovered)
	revenue := calculation.AnnualRevenue(customers, calculation.MonthlyBill(corrected, usage))
	assert.True(t, need.Sub(revenue).LessThan(solver.Options.ShortfallTolerance))
}
