package calculation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/kevsynapthrive/oka-water-calculator/internal/domain"
)

func TestAnnualRevenueNeed(t *testing.T) {
	need := AnnualRevenueNeed(
		decimal.NewFromInt(3850000),
		decimal.NewFromInt(120000),
		decimal.NewFromInt(50000),
		decimal.NewFromInt(200000),
	)
	assert.True(t, need.Equal(decimal.NewFromInt(3820000)), "got %s", need)
}

func TestAnnualRevenueNeed_FlooredAtZero(t *testing.T) {
	need := AnnualRevenueNeed(
		decimal.NewFromInt(100000),
		decimal.Zero,
		decimal.Zero,
		decimal.NewFromInt(5000000),
	)
	assert.True(t, need.IsZero(), "a grant larger than costs must not create negative need")
}

func TestInfrastructureReserve(t *testing.T) {
	reserve := InfrastructureReserve(decimal.NewFromInt(1000000), 20)
	assert.True(t, reserve.Equal(decimal.NewFromInt(50000)))

	assert.True(t, InfrastructureReserve(decimal.NewFromInt(1000000), 0).IsZero(), "non-positive lifespan contributes nothing")
	assert.True(t, InfrastructureReserve(decimal.NewFromInt(1000000), -3).IsZero())
}

func TestOperatingCostForYear(t *testing.T) {
	base := decimal.NewFromInt(100000)

	assert.True(t, OperatingCostForYear(base, decimal.NewFromInt(3), 0).Equal(base))

	year1 := OperatingCostForYear(base, decimal.NewFromInt(3), 1)
	assert.True(t, year1.Equal(decimal.NewFromInt(103000)), "got %s", year1)

	year2 := OperatingCostForYear(base, decimal.NewFromInt(3), 2)
	assert.True(t, year2.Equal(decimal.NewFromInt(106090)), "inflation must compound, got %s", year2)
}

func TestGrantsForYear(t *testing.T) {
	grants := []domain.Grant{
		{Name: "state revolving fund", Amount: decimal.NewFromInt(250000), Year: 1},
		{Name: "rural development", Amount: decimal.NewFromInt(100000), Year: 1},
		{Name: "arpa", Amount: decimal.NewFromInt(75000), Year: 3},
	}

	assert.True(t, GrantsForYear(grants, 1).Equal(decimal.NewFromInt(350000)))
	assert.True(t, GrantsForYear(grants, 2).IsZero())
	assert.True(t, GrantsForYear(nil, 0).IsZero())
}

func TestCoveragePercent(t *testing.T) {
	coverage := CoveragePercent(decimal.NewFromInt(90), decimal.NewFromInt(120))
	assert.True(t, coverage.Equal(decimal.NewFromInt(75)), "got %s", coverage)

	assert.True(t, CoveragePercent(decimal.NewFromInt(90), decimal.Zero).IsZero(), "no need means no meaningful coverage")
}

func TestRevenueGap(t *testing.T) {
	gap := RevenueGap(decimal.NewFromInt(90), decimal.NewFromInt(120))
	assert.True(t, gap.Equal(decimal.NewFromInt(-30)), "deficit must be negative, got %s", gap)
}
