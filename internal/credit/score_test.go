package credit

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeScore(t *testing.T) {
	cases := []struct {
		name      string
		savings   string
		completed int
		txCount   int
		kyc       bool
		want      int
	}{
		{"no history", "0", 0, 0, false, 600},
		{"savings capped at 100 points", "10000", 0, 0, true, 750},
		{"savings fraction rounds", "150", 0, 0, false, 602},
		{"half rounds up", "50", 0, 0, false, 601},
		{"below half rounds down", "49.99", 0, 0, false, 600},
		{"transactions capped at 50 points", "0", 0, 40, false, 650},
		{"completed credits", "0", 2, 3, false, 646},
		{"everything capped at 850", "1000000", 10, 100, true, 850},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeScore(decimal.RequireFromString(tc.savings), tc.completed, tc.txCount, tc.kyc)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRateForScore_InclusiveLowerBounds(t *testing.T) {
	cases := map[int]string{
		850: "8", 800: "8", 799: "10", 750: "10", 749: "12",
		700: "12", 699: "15", 650: "15", 649: "18", 600: "18",
	}
	for score, want := range cases {
		assert.True(t, RateForScore(score).Equal(decimal.RequireFromString(want)), "score %d", score)
	}
}
