package credit

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/credisave/internal/ledger"
)

// InstallmentPending is the only status a projected installment carries;
// projections do not track which installments were paid.
const InstallmentPending = "PENDING"

// Installment is one projected repayment.
type Installment struct {
	Number  int             `json:"installment_number"`
	DueDate time.Time       `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
	Status  string          `json:"status"`
}

// ProjectSchedule derives the installment plan of c. Due dates are monthly
// from disbursement, else approval, else now. The last installment takes the
// remainder so the plan sums to TotalRepayable.
func ProjectSchedule(c ledger.Credit, now time.Time) []Installment {
	if c.Tenure <= 0 {
		return []Installment{}
	}

	anchor := now.UTC()
	switch {
	case c.DisbursedAt != nil:
		anchor = c.DisbursedAt.UTC()
	case c.ApprovedAt != nil:
		anchor = c.ApprovedAt.UTC()
	}

	schedule := make([]Installment, 0, c.Tenure)
	remaining := c.TotalRepayable
	for i := 1; i <= c.Tenure; i++ {
		amount := c.MonthlyPayment
		if i == c.Tenure {
			amount = remaining
		}
		remaining = remaining.Sub(amount)
		schedule = append(schedule, Installment{
			Number:  i,
			DueDate: anchor.AddDate(0, i, 0),
			Amount:  amount,
			Status:  InstallmentPending,
		})
	}
	return schedule
}
