package stats

import (
	"plantPalAPI/internal/achievement"
	"plantPalAPI/internal/user"

	"github.com/google/uuid"
)

type DashboardStats struct {
	TotalPlants        int `json:"total_plants"`
	HealthyPlants      int `json:"healthy_plants"`
	PlantsNeedingCare  int `json:"plants_needing_care"`
	CurrentStreak      int `json:"current_streak"`
	TotalScans         int `json:"total_scans"`
	AchievementsEarned int `json:"achievements_earned"`
	CoinsEarned        int `json:"coins_earned"`
}

type DashboardPlant struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Species        string    `json:"species"`
	HealthScore    float64   `json:"health_score"`
	StreakDays     int       `json:"streak_days"`
	NeedsAttention bool      `json:"needs_attention"`
}

type DashboardResponse struct {
	User               *user.User                             `json:"user"`
	Stats              DashboardStats                         `json:"stats"`
	RecentPlants       []*DashboardPlant                      `json:"recent_plants"`
	RecentAchievements []*achievement.AchievementWithProgress `json:"recent_achievements"`
}
