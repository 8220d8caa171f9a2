package credit

import (
	"github.com/shopspring/decimal"

	"github.com/congo-pay/credisave/internal/money"
)

// workPrecision is the scale kept for intermediate amortization values.
const workPrecision = 20

var monthsPerYearPercent = decimal.NewFromInt(1200)

// Terms are the priced conditions of a credit.
type Terms struct {
	InterestRate   decimal.Decimal `json:"interest_rate"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	TotalRepayable decimal.Decimal `json:"total_repayable"`
}

var rateTiers = []struct {
	minScore int
	rate     decimal.Decimal
}{
	{800, decimal.RequireFromString("8.0")},
	{750, decimal.RequireFromString("10.0")},
	{700, decimal.RequireFromString("12.0")},
	{650, decimal.RequireFromString("15.0")},
}

var defaultRate = decimal.RequireFromString("18.0")

// RateForScore returns the annual interest rate for a score. Tier bounds are
// inclusive.
func RateForScore(score int) decimal.Decimal {
	for _, tier := range rateTiers {
		if score >= tier.minScore {
			return tier.rate
		}
	}
	return defaultRate
}

// ComputeTerms prices an amortizing loan. The monthly payment is rounded to
// cents and the total repayable is the unrounded payment times tenure,
// rounded to cents.
func ComputeTerms(principal, annualRate decimal.Decimal, tenure int) Terms {
	n := decimal.NewFromInt(int64(tenure))
	r := annualRate.DivRound(monthsPerYearPercent, workPrecision)

	var payment decimal.Decimal
	if r.IsZero() {
		payment = principal.DivRound(n, workPrecision)
	} else {
		growth := decimal.NewFromInt(1)
		onePlusR := growth.Add(r)
		for i := 0; i < tenure; i++ {
			growth = growth.Mul(onePlusR).Round(workPrecision)
		}
		payment = principal.Mul(r).Mul(growth).DivRound(growth.Sub(decimal.NewFromInt(1)), workPrecision)
	}

	return Terms{
		InterestRate:   annualRate,
		MonthlyPayment: money.Round(payment),
		TotalRepayable: money.Round(payment.Mul(n)),
	}
}
