package coin

// Coin economy constants. Balances are always derived from these plus
// current state, never stored.
const (
	BaseCoins            = 30
	AchievementCoinValue = 20
	StreakCoinMultiplier = 5
)

type Balance struct {
	CoinsEarned    int `json:"coins_earned"`
	CoinsSpent     int `json:"coins_spent"`
	CoinsRemaining int `json:"coins_remaining"`
}

// Compute derives a balance from the user's completed achievement count,
// current streak and total coins spent. Remaining is clamped at zero.
func Compute(completedAchievements, currentStreak, spent int) Balance {
	earned := BaseCoins + completedAchievements*AchievementCoinValue + currentStreak*StreakCoinMultiplier
	remaining := earned - spent
	if remaining < 0 {
		remaining = 0
	}
	return Balance{
		CoinsEarned:    earned,
		CoinsSpent:     spent,
		CoinsRemaining: remaining,
	}
}
