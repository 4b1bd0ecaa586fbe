package leaderboard

import "github.com/google/uuid"

type LeaderboardEntry struct {
	Rank                  int       `json:"rank" db:"rank"`
	UserID                uuid.UUID `json:"user_id" db:"user_id"`
	Name                  string    `json:"name" db:"name"`
	Email                 string    `json:"email" db:"email"`
	Score                 int       `json:"score" db:"score"`
	TotalPlants           int       `json:"total_plants" db:"total_plants"`
	AchievementsCompleted int       `json:"achievements_completed" db:"achievements_completed"`
}

type Leaderboard struct {
	Entries         []*LeaderboardEntry `json:"leaderboard"`
	CurrentUserRank *int                `json:"current_user_rank"`
	TotalUsers      int                 `json:"total_users"`
}
