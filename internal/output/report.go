// Package output renders computation results for the CLI: a console report,
// a per-year projection CSV, and a JSON dump of the full result set.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kevsynapthrive/oka-water-calculator/internal/domain"
	"github.com/shopspring/decimal"
)

// ReportGenerator handles report generation in the supported formats.
type ReportGenerator struct {
	Writer io.Writer
}

// NewReportGenerator creates a report generator writing to w.
func NewReportGenerator(w io.Writer) *ReportGenerator {
	return &ReportGenerator{Writer: w}
}

// Generate renders the results in the requested format.
func (rg *ReportGenerator) Generate(results *domain.Results, format string) error {
	switch format {
	case "console":
		return rg.GenerateConsoleReport(results)
	case "csv":
		return rg.GenerateCSVReport(results)
	case "json":
		return rg.GenerateJSONReport(results)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// GenerateConsoleReport writes the human-readable report.
func (rg *ReportGenerator) GenerateConsoleReport(results *domain.Results) error {
	w := rg.Writer

	fmt.Fprintln(w, "==========================================================")
	fmt.Fprintln(w, "WATER RATE ANALYSIS")
	fmt.Fprintln(w, "==========================================================")
	fmt.Fprintln(w)

	for _, snapshot := range []domain.SnapshotResult{results.Current, results.Future} {
		fmt.Fprintf(w, "%s RATES\n", strings.ToUpper(snapshot.Label))
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintf(w, "Monthly bill at average usage: %s\n", FormatCurrency(snapshot.MonthlyBill))
		for i, tier := range snapshot.Breakdown.Tiers {
			if !tier.Enabled {
				continue
			}
			limit := "unlimited"
			if tier.Limit != nil {
				limit = tier.Limit.StringFixed(0) + " gal"
			}
			fmt.Fprintf(w, "  Tier %d (%s @ %s/1000 gal): %s gal -> %s\n",
				i+1, limit, FormatCurrency(tier.Rate), tier.Usage.StringFixed(0), FormatCurrency(tier.Cost))
		}
		fmt.Fprintf(w, "Annual revenue:    %s\n", FormatCurrency(snapshot.AnnualRevenue))
		fmt.Fprintf(w, "Revenue need:      %s\n", FormatCurrency(snapshot.NeededRevenue))
		fmt.Fprintf(w, "Revenue gap:       %s\n", FormatCurrency(snapshot.RevenueGap))
		fmt.Fprintf(w, "Cost coverage:     %s\n", FormatPercent(snapshot.CoveragePercent))
		fmt.Fprintf(w, "Bill as %% of MHI:  %s\n", FormatPercent(snapshot.AffordabilityMHI))
		fmt.Fprintln(w)
	}

	if len(results.Projection) > 0 {
		fmt.Fprintln(w, "MULTI-YEAR PROJECTION")
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintf(w, "%-5s %-10s %-12s %-14s %-14s %-14s %-14s\n",
			"Year", "Base", "Customers", "Revenue", "Need", "Gap", "Reserve")
		for _, year := range results.Projection {
			fmt.Fprintf(w, "%-5d %-10s %-12s %-14s %-14s %-14s %-14s\n",
				year.Year,
				FormatCurrency(year.BaseRate),
				year.CustomerCount.StringFixed(0),
				FormatCurrency(year.ExpectedRevenue),
				FormatCurrency(year.NeededRevenue),
				FormatCurrency(year.RevenueGap),
				FormatCurrency(year.ReserveBalance))
		}
		fmt.Fprintln(w)
	}

	if len(results.WaterLoss) > 0 {
		first := results.WaterLoss[0]
		fmt.Fprintln(w, "WATER LOSS")
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintf(w, "System loss: %s of production\n", FormatPercent(first.LossPercent))
		fmt.Fprintf(w, "First-year lost volume: %s gal, lost revenue: %s\n",
			first.LostVolume.StringFixed(0), FormatCurrency(first.LostRevenue))
		fmt.Fprintln(w)
	}

	if len(results.Poverty) > 0 {
		first := results.Poverty[0]
		fmt.Fprintln(w, "AFFORDABILITY AT POVERTY LINE")
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintf(w, "First-year burden: %s (%s)\n", FormatPercent(first.BurdenPercent), first.Status)
		fmt.Fprintln(w)
	}

	if results.Recommendations != nil {
		rec := results.Recommendations
		fmt.Fprintln(w, "RECOMMENDED RATES")
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintf(w, "Base rate: %s   Add-on fee: %s\n",
			FormatCurrency(rec.IdealRates.BaseRate), FormatCurrency(rec.IdealRates.AddonFee))
		for i, tier := range rec.IdealRates.Tiers {
			if !tier.Enabled {
				continue
			}
			limit := "unlimited"
			if tier.Limit != nil {
				limit = tier.Limit.StringFixed(0) + " gal"
			}
			fmt.Fprintf(w, "  Tier %d: %s per 1000 gal up to %s\n", i+1, FormatCurrency(tier.Rate), limit)
		}
		for _, warning := range rec.Warnings {
			fmt.Fprintf(w, "  note: %s\n", warning)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// GenerateCSVReport writes the projection as CSV, one row per year.
func (rg *ReportGenerator) GenerateCSVReport(results *domain.Results) error {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	header := []string{
		"Year", "BaseRate", "AddonFee",
		"Tier1Rate", "Tier2Rate", "Tier3Rate", "Tier4Rate",
		"Customers", "OperatingCost", "DebtService", "NewDebt",
		"CapitalImprovements", "Grants",
		"ExpectedRevenue", "NeededRevenue", "RevenueGap", "ReserveBalance",
		"AffordabilityMHI", "AffordabilityLowIncome",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, year := range results.Projection {
		row := []string{
			strconv.Itoa(year.Year),
			year.BaseRate.StringFixed(2),
			year.AddonFee.StringFixed(2),
			year.TierRates[0].StringFixed(2),
			year.TierRates[1].StringFixed(2),
			year.TierRates[2].StringFixed(2),
			year.TierRates[3].StringFixed(2),
			year.CustomerCount.StringFixed(0),
			year.OperatingCost.StringFixed(2),
			year.TotalDebtService.StringFixed(2),
			year.NewDebt.StringFixed(2),
			year.CapitalImprovements.StringFixed(2),
			year.Grants.StringFixed(2),
			year.ExpectedRevenue.StringFixed(2),
			year.NeededRevenue.StringFixed(2),
			year.RevenueGap.StringFixed(2),
			year.ReserveBalance.StringFixed(2),
			year.AffordabilityMHI.StringFixed(2),
			year.AffordabilityLowIncome.StringFixed(2),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	_, err := rg.Writer.Write(buf.Bytes())
	return err
}

// GenerateJSONReport writes the full result set as indented JSON.
func (rg *ReportGenerator) GenerateJSONReport(results *domain.Results) error {
	encoder := json.NewEncoder(rg.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

// FormatCurrency formats a decimal as a dollar amount.
func FormatCurrency(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}

// FormatPercent formats a decimal as a percentage.
func FormatPercent(amount decimal.Decimal) string {
	return amount.StringFixed(2) + "%"
}
