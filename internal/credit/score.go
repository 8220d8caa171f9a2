package credit

import (
	"github.com/shopspring/decimal"

	"github.com/congo-pay/credisave/internal/ledger"
)

const (
	BaseScore = 600
	MaxScore  = 850
)

var (
	savingsDivisor = decimal.NewFromInt(100)
	savingsCap     = decimal.NewFromInt(100)
)

// ComputeScore derives a credit score in [600, 850] from savings, completed
// credits, ledger activity and KYC status.
func ComputeScore(savingsTotal decimal.Decimal, completedCredits, transactionCount int, kycVerified bool) int {
	score := decimal.NewFromInt(BaseScore)

	savingsPoints := savingsTotal.Div(savingsDivisor)
	if savingsPoints.GreaterThan(savingsCap) {
		savingsPoints = savingsCap
	}
	if savingsPoints.IsPositive() {
		score = score.Add(savingsPoints)
	}

	if completedCredits > 0 {
		score = score.Add(decimal.NewFromInt(int64(20 * completedCredits)))
	}

	if transactionCount > 0 {
		score = score.Add(decimal.NewFromInt(int64(min(50, 2*transactionCount))))
	}

	if kycVerified {
		score = score.Add(decimal.NewFromInt(50))
	}

	result := int(score.Round(0).IntPart())
	return max(BaseScore, min(MaxScore, result))
}

// ScoreFromHistory applies ComputeScore to a ledger history snapshot.
func ScoreFromHistory(h ledger.History, kycVerified bool) int {
	return ComputeScore(h.SavingsTotal, h.CompletedCredits, h.TransactionCount, kycVerified)
}
