package calculation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/kevsynapthrive/oka-water-calculator/internal/domain"
)

func TestBillBurden(t *testing.T) {
	// $56.99/month against $43,500/year.
	burden, defined := BillBurden(decimal.RequireFromString("56.99"), decimal.NewFromInt(43500))
	assert.True(t, defined)
	floatBurden, _ := burden.Float64()
	assert.InDelta(t, 1.572, floatBurden, 0.001)
}

func TestBillBurden_UndefinedOnZeroIncome(t *testing.T) {
	burden, defined := BillBurden(decimal.NewFromInt(50), decimal.Zero)
	assert.False(t, defined, "zero income has no defined burden")
	assert.True(t, burden.IsZero(), "undefined burden clamps to zero")

	_, defined = BillBurden(decimal.NewFromInt(50), decimal.NewFromInt(-100))
	assert.False(t, defined)
}

func TestClassifyBurden(t *testing.T) {
	assert.Equal(t, domain.StatusAffordable, ClassifyBurden(decimal.NewFromInt(1)))
	assert.Equal(t, domain.StatusAffordable, ClassifyBurden(decimal.RequireFromString("2.5")))
	assert.Equal(t, domain.StatusBurdensome, ClassifyBurden(decimal.RequireFromString("2.51")))
	assert.Equal(t, domain.StatusBurdensome, ClassifyBurden(decimal.NewFromInt(5)))
	assert.Equal(t, domain.StatusUnaffordable, ClassifyBurden(decimal.RequireFromString("5.01")))
}

func TestWaterLossForYear(t *testing.T) {
	rs := twoTierStructure()
	customers := decimal.NewFromInt(1000)
	usage := decimal.NewFromInt(5000)

	result := WaterLossForYear(2, customers, usage, decimal.NewFromInt(20), rs)

	// Billed: 1000 * 5000 * 12 = 60,000,000 gal; production grosses up by
	// 1/(1-0.20).
	assert.True(t, result.BilledVolume.Equal(decimal.NewFromInt(60000000)))
	assert.True(t, result.ProductionVolume.Equal(decimal.NewFromInt(75000000)), "got %s", result.ProductionVolume)
	assert.True(t, result.LostVolume.Equal(decimal.NewFromInt(15000000)))
	assert.True(t, result.LostRevenue.GreaterThan(decimal.Zero))
	assert.Equal(t, 2, result.Year)
}

func TestWaterLossForYear_NoLoss(t *testing.T) {
	result := WaterLossForYear(0, decimal.NewFromInt(1000), decimal.NewFromInt(5000), decimal.Zero, twoTierStructure())

	assert.True(t, result.LostVolume.IsZero())
	assert.True(t, result.LostRevenue.IsZero())
	assert.True(t, result.ProductionVolume.Equal(result.BilledVolume))
}

func TestWaterLossForYear_TotalLossGuarded(t *testing.T) {
	result := WaterLossForYear(0, decimal.NewFromInt(1000), decimal.NewFromInt(5000), decimal.NewFromInt(100), twoTierStructure())

	assert.True(t, result.LostVolume.IsZero(), "a 100%% loss has no finite production volume; report no loss instead of dividing by zero")
	assert.True(t, result.ProductionVolume.Equal(result.BilledVolume))
}

func TestPovertyForYear_InflatesIncome(t *testing.T) {
	year0 := PovertyForYear(0, decimal.NewFromInt(60), decimal.NewFromInt(15000), decimal.NewFromInt(3))
	assert.True(t, year0.PovertyIncome.Equal(decimal.NewFromInt(15000)))

	year2 := PovertyForYear(2, decimal.NewFromInt(60), decimal.NewFromInt(15000), decimal.NewFromInt(3))
	assert.True(t, year2.PovertyIncome.Equal(decimal.RequireFromString("15913.5")), "got %s", year2.PovertyIncome)
	assert.True(t, year2.BurdenPercent.LessThan(year0.BurdenPercent), "rising income lowers the burden at a flat bill")
}

func TestPovertyForYear_Status(t *testing.T) {
	// $60/month on $15,000/year is a 4.8% burden.
	result := PovertyForYear(0, decimal.NewFromInt(60), decimal.NewFromInt(15000), decimal.Zero)
	assert.Equal(t, domain.StatusBurdensome, result.Status)
	assert.True(t, result.BurdenPercent.Equal(decimal.RequireFromString("4.8")), "got %s", result.BurdenPercent)
}
