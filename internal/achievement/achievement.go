package achievement

import (
	"time"

	"github.com/google/uuid"
)

type AchievementType string

const (
	TypeStreak             AchievementType = "streak"
	TypePlantsCount        AchievementType = "plants_count"
	TypeScansCount         AchievementType = "scans_count"
	TypeHealthyPlantsCount AchievementType = "healthy_plants_count"
)

// ParseAchievementType reports whether s names a known metric type.
// Unknown types are tolerated upstream as no-ops so new metric producers
// can ship ahead of the catalogue.
func ParseAchievementType(s string) (AchievementType, bool) {
	switch AchievementType(s) {
	case TypeStreak, TypePlantsCount, TypeScansCount, TypeHealthyPlantsCount:
		return AchievementType(s), true
	}
	return "", false
}

// Achievement is an admin-seeded catalogue entry. Rows are never mutated
// by user actions.
type Achievement struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Name             string          `json:"name" db:"name"`
	Description      string          `json:"description" db:"description"`
	Icon             string          `json:"icon" db:"icon"`
	AchievementType  AchievementType `json:"achievement_type" db:"achievement_type"`
	RequirementValue int             `json:"requirement_value" db:"requirement_value"`
	PointsAwarded    int             `json:"points_awarded" db:"points_awarded"`
	IsActive         bool            `json:"is_active" db:"is_active"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// UserAchievement is a user's live progress row for one catalogue entry.
// IsCompleted transitions false->true exactly once; CompletedAt is set at
// that moment and never cleared.
type UserAchievement struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	UserID          uuid.UUID  `json:"user_id" db:"user_id"`
	AchievementID   uuid.UUID  `json:"achievement_id" db:"achievement_id"`
	CurrentProgress int        `json:"current_progress" db:"current_progress"`
	IsCompleted     bool       `json:"is_completed" db:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

type AchievementWithProgress struct {
	Achievement
	CurrentProgress int        `json:"current_progress"`
	IsCompleted     bool       `json:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

type Stats struct {
	TotalAchievements    int `json:"total_achievements"`
	Completed            int `json:"completed"`
	InProgress           int `json:"in_progress"`
	TotalPointsEarned    int `json:"total_points_earned"`
	CompletionPercentage int `json:"completion_percentage"`
}

type ProgressUpdateRequest struct {
	AchievementType string `json:"achievement_type" validate:"required"`
	NewValue        int    `json:"new_value" validate:"gte=0"`
}

type ProgressUpdateResponse struct {
	NewlyCompleted []*Achievement `json:"newly_completed"`
}

type StreakResponse struct {
	CurrentStreak int `json:"current_streak"`
}

type CheckStreaksResponse struct {
	CurrentStreak  int    `json:"current_streak"`
	NewlyCompleted int    `json:"newly_completed"`
	Message        string `json:"message"`
}
