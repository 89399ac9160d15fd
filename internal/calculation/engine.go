package calculation

import (
	"context"

	"github.com/kevsynapthrive/oka-water-calculator/internal/config"
	"github.com/kevsynapthrive/oka-water-calculator/internal/domain"
	"github.com/shopspring/decimal"
)

// Logger is the minimal logging surface the engine needs. The cmd and server
// layers plug in a real implementation; computations never require one.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}

// Recommender produces a rate recommendation for a configuration. The
// concrete solver lives in the recommend package and is wired in by the
// caller.
type Recommender interface {
	Recommend(ctx context.Context, cfg *domain.Configuration) (*domain.Recommendation, error)
}

// Engine runs a full recomputation pass over a configuration snapshot.
type Engine struct {
	Logger      Logger
	Recommender Recommender
}

// NewEngine creates an engine with a no-op logger and no recommender.
func NewEngine() *Engine {
	return &Engine{Logger: NopLogger{}}
}

// SetLogger replaces the engine's logger; nil restores the no-op logger.
func (e *Engine) SetLogger(l Logger) {
	if l == nil {
		e.Logger = NopLogger{}
		return
	}
	e.Logger = l
}

// usageComparisonLevels are the monthly usage volumes, in gallons, shown in
// the bills-at-usage-levels table.
var usageComparisonLevels = []int64{1000, 2000, 4000, 6000, 8000, 10000, 15000}

// Snapshot evaluates one rate structure against the configuration's single
// year figures: bill breakdown at average usage, affordability, and revenue
// versus need.
func (e *Engine) Snapshot(cfg *domain.Configuration, rates domain.RateStructure, label string) domain.SnapshotResult {
	bill := MonthlyBill(rates, cfg.AvgMonthlyUsage)
	breakdown := TierBreakdown(cfg.AvgMonthlyUsage, rates.Tiers)

	debt := ConsolidateDebt(cfg, 0)
	infra := InfrastructureReserve(cfg.InfrastructureCost, cfg.AssetLifespan)
	grants := GrantsForYear(cfg.Grants, 0)
	need := AnnualRevenueNeed(cfg.OperatingCost, debt.Total, infra, grants)
	revenue := AnnualRevenue(cfg.CustomerCount, bill)

	comparison := make([]domain.UsageBill, 0, len(usageComparisonLevels))
	for _, level := range usageComparisonLevels {
		usage := decimal.NewFromInt(level)
		comparison = append(comparison, domain.UsageBill{
			Usage: usage,
			Bill:  MonthlyBill(rates, usage),
		})
	}

	return domain.SnapshotResult{
		Label:                  label,
		MonthlyBill:            bill,
		Breakdown:              breakdown,
		AffordabilityMHI:       clampedBurden(bill, cfg.MedianIncome),
		AffordabilityLowIncome: clampedBurden(bill, cfg.PovertyIncome),
		AnnualRevenue:          revenue,
		NeededRevenue:          need,
		RevenueGap:             RevenueGap(revenue, need),
		CoveragePercent:        CoveragePercent(revenue, need),
		UsageComparison:        comparison,
	}
}

// RunAll validates the configuration and computes every result series. An
// incomplete configuration skips the pass entirely: the typed error is
// returned after a warning so callers can keep showing prior results. Solver
// failures other than cancellation degrade to a missing recommendation
// rather than failing the pass.
func (e *Engine) RunAll(ctx context.Context, cfg *domain.Configuration) (*domain.Results, error) {
	if err := config.Validate(cfg); err != nil {
		e.Logger.Warnf("skipping recomputation: %v", err)
		return nil, err
	}

	projection := Project(cfg)
	results := &domain.Results{
		Current:    e.Snapshot(cfg, cfg.CurrentRates, "current"),
		Future:     e.Snapshot(cfg, cfg.FutureRates, "future"),
		Projection: projection.Years,
		WaterLoss:  projection.WaterLoss,
		Poverty:    projection.Poverty,
	}

	if e.Recommender != nil {
		recommendation, err := e.Recommender.Recommend(ctx, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			e.Logger.Warnf("rate recommendation unavailable: %v", err)
		} else {
			results.Recommendations = recommendation
		}
	}

	return results, nil
}
