package budget

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBudget_Remaining(t *testing.T) {
	tests := []struct {
		name      string
		allocated string
		spent     string
		want      string
	}{
		// Case 1: Nothing spent yet
		{
			name:      "untouched budget",
			allocated: "5000",
			spent:     "0",
			want:      "5000",
		},
		// Case 2: Partially spent
		{
			name:      "partially spent budget",
			allocated: "5000",
			spent:     "3000",
			want:      "2000",
		},
		// Case 3: Exactly exhausted
		{
			name:      "fully spent budget",
			allocated: "5000",
			spent:     "5000",
			want:      "0",
		},
		// Case 4: Overspent budgets never report negative headroom
		{
			name:      "overspent budget floors at zero",
			allocated: "5000",
			spent:     "7000",
			want:      "0",
		},
		// Case 5: Fractional amounts keep their cents
		{
			name:      "fractional amounts",
			allocated: "100.10",
			spent:     "99.95",
			want:      "0.15",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Budget{
				AllocatedAmount: decimal.RequireFromString(tt.allocated),
				SpentAmount:     decimal.RequireFromString(tt.spent),
			}
			if got := b.Remaining(); !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Remaining() = %v, want %v", got, tt.want)
			}
		})
	}
}
