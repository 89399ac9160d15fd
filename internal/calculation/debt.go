package calculation

import (
	"strings"

	"github.com/kevsynapthrive/oka-water-calculator/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultAssetLifespan is the amortization term, in years, used for synthetic
// project loans when the configuration does not supply one.
const DefaultAssetLifespan = 20

// DebtEntry is one amortized obligation contributing to a year's debt
// service.
type DebtEntry struct {
	Name          string          `json:"name"`
	Source        string          `json:"source"` // "manual", "loan", "project", or "synthetic"
	AnnualPayment decimal.Decimal `json:"annualPayment"`
	StartYear     int             `json:"startYear"`
	Term          int             `json:"term"`
}

// DebtService is the consolidated annual debt picture for one projection
// year.
type DebtService struct {
	ExistingDebt decimal.Decimal `json:"existingDebt"`
	ProjectDebt  decimal.Decimal `json:"projectDebt"`
	Total        decimal.Decimal `json:"total"`
	Breakdown    []DebtEntry     `json:"breakdown"`
}

// AnnualLoanPayment computes the level annual payment on a standard annuity:
// P*r / (1 - (1+r)^-n) for annual rate r, interest given as a whole-number
// percent. Zero interest reduces to straight principal division. This is the
// single amortization formula used everywhere.
func AnnualLoanPayment(principal, interestPercent decimal.Decimal, termYears int) decimal.Decimal {
	if termYears <= 0 || principal.LessThanOrEqual(decimalZero) {
		return decimalZero
	}

	rate := interestPercent.Div(decimalHundred)
	if rate.LessThanOrEqual(decimalZero) {
		return principal.Div(decimal.NewFromInt(int64(termYears)))
	}

	// (1+r)^-n computed as 1 / (1+r)^n to stay in decimal arithmetic.
	growth := onePlus(rate).Pow(decimal.NewFromInt(int64(termYears)))
	denominator := decimalOne.Sub(decimalOne.Div(growth))
	if denominator.LessThanOrEqual(decimalZero) {
		return principal.Div(decimal.NewFromInt(int64(termYears)))
	}
	return principal.Mul(rate).Div(denominator)
}

// debtKey normalizes an entry name for case-insensitive matching between
// loans and loan-funded projects.
func debtKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ConsolidateDebt merges manual debt payments, itemized loans, and
// loan-funded capital projects into the total debt service for one projection
// year. A loan whose name matches a loan-funded project is treated as that
// project's financing, attributed to the project's year, so the obligation is
// never counted twice.
func ConsolidateDebt(cfg *domain.Configuration, year int) DebtService {
	var ds DebtService

	projectByKey := make(map[string]*domain.Project)
	for i := range cfg.Projects {
		p := &cfg.Projects[i]
		if p.Funding == domain.FundingLoan {
			projectByKey[debtKey(p.Name)] = p
		}
	}

	// Existing debt: the manual figure wins when present; otherwise the sum
	// of standalone loans that do not finance a named project.
	if cfg.DebtPayments.GreaterThan(decimalZero) {
		if cfg.DebtTerm <= 0 || year < cfg.DebtTerm {
			ds.ExistingDebt = cfg.DebtPayments
			ds.Breakdown = append(ds.Breakdown, DebtEntry{
				Name:          "existing debt service",
				Source:        "manual",
				AnnualPayment: cfg.DebtPayments,
				StartYear:     0,
				Term:          cfg.DebtTerm,
			})
		}
	} else {
		for _, loan := range cfg.Loans {
			if _, matchesProject := projectByKey[debtKey(loan.Name)]; matchesProject {
				continue
			}
			if year < loan.Year || year >= loan.Year+loan.Term {
				continue
			}
			payment := AnnualLoanPayment(loan.Amount, loan.Interest, loan.Term)
			ds.ExistingDebt = ds.ExistingDebt.Add(payment)
			ds.Breakdown = append(ds.Breakdown, DebtEntry{
				Name:          loan.Name,
				Source:        "loan",
				AnnualPayment: payment,
				StartYear:     loan.Year,
				Term:          loan.Term,
			})
		}
	}

	// Project financing: a matching named loan is authoritative for its
	// project; projects without one get a synthetic loan at the system's
	// rate over the asset lifespan.
	loanByKey := make(map[string]*domain.Loan)
	for i := range cfg.Loans {
		loanByKey[debtKey(cfg.Loans[i].Name)] = &cfg.Loans[i]
	}

	for i := range cfg.Projects {
		project := &cfg.Projects[i]
		if project.Funding != domain.FundingLoan {
			continue
		}

		var payment decimal.Decimal
		var term int
		source := "synthetic"
		if loan, ok := loanByKey[debtKey(project.Name)]; ok {
			payment = AnnualLoanPayment(loan.Amount, loan.Interest, loan.Term)
			term = loan.Term
			source = "project"
		} else {
			term = cfg.AssetLifespan
			if term <= 0 {
				term = DefaultAssetLifespan
			}
			payment = AnnualLoanPayment(project.Cost, cfg.InterestRate, term)
		}

		if year < project.Year || year >= project.Year+term {
			continue
		}
		ds.ProjectDebt = ds.ProjectDebt.Add(payment)
		ds.Breakdown = append(ds.Breakdown, DebtEntry{
			Name:          project.Name,
			Source:        source,
			AnnualPayment: payment,
			StartYear:     project.Year,
			Term:          term,
		})
	}

	ds.Total = ds.ExistingDebt.Add(ds.ProjectDebt)
	return ds
}

// NewDebtPrincipal sums the principal of debt originated in the given year:
// standalone loans plus loan-funded projects that are not already covered by
// a named loan entry.
func NewDebtPrincipal(cfg *domain.Configuration, year int) decimal.Decimal {
	loanKeys := make(map[string]bool)
	for _, l := range cfg.Loans {
		loanKeys[debtKey(l.Name)] = true
	}

	total := decimalZero
	for _, loan := range cfg.Loans {
		if loan.Year == year {
			total = total.Add(loan.Amount)
		}
	}
	for _, project := range cfg.Projects {
		if project.Funding == domain.FundingLoan && project.Year == year && !loanKeys[debtKey(project.Name)] {
			total = total.Add(project.Cost)
		}
	}
	return total
}
