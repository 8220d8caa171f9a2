package credit

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/congo-pay/credisave/internal/ledger"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeTerms(t *testing.T) {
	cases := []struct {
		principal string
		rate      string
		tenure    int
		monthly   string
		total     string
	}{
		{"10000", "18", 12, "916.80", "11001.60"},
		{"5000", "10", 6, "857.81", "5146.84"},
		{"1000", "12", 3, "340.02", "1020.07"},
		{"100", "8", 1, "100.67", "100.67"},
		{"1000000", "18", 60, "25393.43", "1523605.65"},
	}
	for _, tc := range cases {
		terms := ComputeTerms(dec(tc.principal), dec(tc.rate), tc.tenure)
		assert.True(t, terms.MonthlyPayment.Equal(dec(tc.monthly)), "monthly for %s: got %s", tc.principal, terms.MonthlyPayment)
		assert.True(t, terms.TotalRepayable.Equal(dec(tc.total)), "total for %s: got %s", tc.principal, terms.TotalRepayable)
	}
}

func TestProjectSchedule_SumsToTotal(t *testing.T) {
	for _, tc := range []struct {
		principal string
		rate      string
		tenure    int
	}{
		{"1000", "12", 3},
		{"10000", "18", 12},
		{"777.77", "15", 7},
		{"1000000", "8", 60},
		{"250", "10", 1},
	} {
		terms := ComputeTerms(dec(tc.principal), dec(tc.rate), tc.tenure)
		c := ledger.Credit{Tenure: tc.tenure, MonthlyPayment: terms.MonthlyPayment, TotalRepayable: terms.TotalRepayable}
		schedule := ProjectSchedule(c, time.Now())

		assert.Len(t, schedule, tc.tenure)
		sum := decimal.Zero
		for _, inst := range schedule {
			sum = sum.Add(inst.Amount)
			assert.Equal(t, InstallmentPending, inst.Status)
		}
		assert.True(t, sum.Equal(terms.TotalRepayable), "sum %s != total %s", sum, terms.TotalRepayable)
	}
}

func TestProjectSchedule_LastInstallmentAbsorbsResidue(t *testing.T) {
	c := ledger.Credit{Tenure: 3, MonthlyPayment: dec("340.02"), TotalRepayable: dec("1020.07")}
	schedule := ProjectSchedule(c, time.Now())
	assert.True(t, schedule[0].Amount.Equal(dec("340.02")))
	assert.True(t, schedule[1].Amount.Equal(dec("340.02")))
	assert.True(t, schedule[2].Amount.Equal(dec("340.03")))
}

func TestProjectSchedule_Anchor(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	approved := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	disbursed := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	c := ledger.Credit{Tenure: 2, MonthlyPayment: dec("1"), TotalRepayable: dec("2")}
	assert.Equal(t, now.AddDate(0, 1, 0), ProjectSchedule(c, now)[0].DueDate)

	c.ApprovedAt = &approved
	assert.Equal(t, approved.AddDate(0, 1, 0), ProjectSchedule(c, now)[0].DueDate)

	c.DisbursedAt = &disbursed
	schedule := ProjectSchedule(c, now)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), schedule[0].DueDate)
	assert.Equal(t, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC), schedule[1].DueDate)
	assert.Equal(t, 2, schedule[1].Number)
}

func TestRequestInput_Validate(t *testing.T) {
	valid := RequestInput{Amount: dec("1000000"), Tenure: 60}
	assert.NoError(t, valid.Validate())

	for _, in := range []RequestInput{
		{Amount: dec("1000001"), Tenure: 12},
		{Amount: dec("99.99"), Tenure: 12},
		{Amount: dec("100"), Tenure: 0},
		{Amount: dec("100"), Tenure: 61},
		{Amount: dec("100.005"), Tenure: 12},
	} {
		assert.ErrorIs(t, in.Validate(), ErrInvalidRequest, "%s/%d", in.Amount, in.Tenure)
	}
}
