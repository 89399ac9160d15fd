// Package config loads, normalizes, and validates the flat configuration
// record the calculation engine consumes.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kevsynapthrive/oka-water-calculator/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// IncompleteInputError reports required inputs that are missing or zero. The
// engine treats it as "skip this pass", not as a fatal condition.
type IncompleteInputError struct {
	Missing []string
}

func (e *IncompleteInputError) Error() string {
	return "incomplete input: " + strings.Join(e.Missing, ", ")
}

// InputParser handles parsing of configuration files.
type InputParser struct{}

// NewInputParser creates a new input parser.
func NewInputParser() *InputParser {
	return &InputParser{}
}

// LoadFromFile loads a configuration from a YAML file, normalizes it, and
// validates it. Validation failure still returns the parsed configuration so
// the caller can report what is missing.
func (ip *InputParser) LoadFromFile(filename string) (*domain.Configuration, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	var cfg domain.Configuration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	Normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return &cfg, err
	}
	return &cfg, nil
}

// Normalize coerces invalid numerics to zero in a single boundary pass:
// money, volume, and count fields must be non-negative, and non-positive tier
// limits collapse to nil (unbounded has no meaningful zero). Signed fields
// that legitimately go negative (inflation, growth, interest drift) are left
// alone. The engine itself never re-checks these invariants.
func Normalize(cfg *domain.Configuration) {
	floorZero(&cfg.MedianIncome)
	floorZero(&cfg.PovertyIncome)
	floorZero(&cfg.BelowPovertyPercent)
	floorZero(&cfg.CustomerCount)
	floorZero(&cfg.AvgMonthlyUsage)
	floorZero(&cfg.WaterLossPercent)
	floorZero(&cfg.OperatingCost)
	floorZero(&cfg.DebtPayments)
	floorZero(&cfg.InfrastructureCost)
	floorZero(&cfg.InterestRate)
	floorZero(&cfg.TargetReserve)

	if cfg.DebtTerm < 0 {
		cfg.DebtTerm = 0
	}
	if cfg.AssetLifespan < 0 {
		cfg.AssetLifespan = 0
	}
	if cfg.ProjectionPeriod < 0 {
		cfg.ProjectionPeriod = 0
	}
	if cfg.TargetYear < 0 {
		cfg.TargetYear = 0
	}

	normalizeRates(&cfg.CurrentRates)
	normalizeRates(&cfg.FutureRates)

	for i := range cfg.Loans {
		floorZero(&cfg.Loans[i].Amount)
		floorZero(&cfg.Loans[i].Interest)
		if cfg.Loans[i].Term < 0 {
			cfg.Loans[i].Term = 0
		}
		if cfg.Loans[i].Year < 0 {
			cfg.Loans[i].Year = 0
		}
	}
	for i := range cfg.Projects {
		floorZero(&cfg.Projects[i].Cost)
		if cfg.Projects[i].Year < 0 {
			cfg.Projects[i].Year = 0
		}
		if cfg.Projects[i].Funding != domain.FundingLoan {
			cfg.Projects[i].Funding = domain.FundingReserves
		}
	}
	for i := range cfg.Grants {
		floorZero(&cfg.Grants[i].Amount)
		if cfg.Grants[i].Year < 0 {
			cfg.Grants[i].Year = 0
		}
	}
}

func normalizeRates(rs *domain.RateStructure) {
	floorZero(&rs.BaseRate)
	floorZero(&rs.AddonFee)
	for i := range rs.Tiers {
		floorZero(&rs.Tiers[i].Rate)
		if rs.Tiers[i].Limit != nil && rs.Tiers[i].Limit.LessThanOrEqual(decimal.Zero) {
			rs.Tiers[i].Limit = nil
		}
	}
}

func floorZero(value *decimal.Decimal) {
	if value.LessThan(decimal.Zero) {
		*value = decimal.Zero
	}
}

// Validate enforces the preconditions a computation pass requires: the
// required scalars must be positive and each rate structure needs at least
// one enabled tier with a positive rate. Failures come back as an
// IncompleteInputError so callers can apply the skip-pass policy. Tier limit
// ordering is also checked here; the billing engine silently clips malformed
// bands, but the boundary reports them.
func Validate(cfg *domain.Configuration) error {
	var missing []string
	if cfg.MedianIncome.LessThanOrEqual(decimal.Zero) {
		missing = append(missing, "medianIncome")
	}
	if cfg.CustomerCount.LessThanOrEqual(decimal.Zero) {
		missing = append(missing, "customerCount")
	}
	if cfg.AvgMonthlyUsage.LessThanOrEqual(decimal.Zero) {
		missing = append(missing, "avgMonthlyUsage")
	}
	if cfg.OperatingCost.LessThanOrEqual(decimal.Zero) {
		missing = append(missing, "operatingCost")
	}
	if !cfg.CurrentRates.HasVolumetricCharge() {
		missing = append(missing, "currentRates: no enabled tier with a positive rate")
	}
	if !cfg.FutureRates.HasVolumetricCharge() {
		missing = append(missing, "futureRates: no enabled tier with a positive rate")
	}
	if len(missing) > 0 {
		return &IncompleteInputError{Missing: missing}
	}

	if err := validateTierOrder("currentRates", cfg.CurrentRates); err != nil {
		return err
	}
	if err := validateTierOrder("futureRates", cfg.FutureRates); err != nil {
		return err
	}
	return nil
}

func validateTierOrder(label string, rs domain.RateStructure) error {
	last := rs.LastEnabledTier()
	prev := decimal.Zero
	for i, tier := range rs.Tiers {
		if !tier.Enabled {
			continue
		}
		if tier.Limit == nil {
			if i != last {
				return fmt.Errorf("%s: tier %d has no limit but is not the last enabled tier", label, i+1)
			}
			continue
		}
		if tier.Limit.LessThanOrEqual(prev) {
			return fmt.Errorf("%s: tier %d limit %s does not exceed the previous limit %s", label, i+1, tier.Limit, prev)
		}
		prev = *tier.Limit
	}
	return nil
}
