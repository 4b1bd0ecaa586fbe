package coin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		streak    int
		spent     int
		want      Balance
	}{
		{
			name: "new user gets the base grant",
			want: Balance{CoinsEarned: 30, CoinsSpent: 0, CoinsRemaining: 30},
		},
		{
			name:      "achievements and streak stack on the base",
			completed: 1,
			streak:    3,
			want:      Balance{CoinsEarned: 65, CoinsSpent: 0, CoinsRemaining: 65},
		},
		{
			name:      "spend is subtracted from earned",
			completed: 1,
			streak:    3,
			spent:     50,
			want:      Balance{CoinsEarned: 65, CoinsSpent: 50, CoinsRemaining: 15},
		},
		{
			name:      "remaining clamps at zero when streak collapses after a spend",
			completed: 1,
			spent:     60,
			want:      Balance{CoinsEarned: 50, CoinsSpent: 60, CoinsRemaining: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.completed, tt.streak, tt.spent))
		})
	}
}

func TestComputeIsPure(t *testing.T) {
	// Same inputs always derive the same balance; nothing accumulates.
	first := Compute(4, 12, 150)
	second := Compute(4, 12, 150)
	assert.Equal(t, first, second)
}
