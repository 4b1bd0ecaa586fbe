package plant

import (
	"time"

	"github.com/google/uuid"
)

// HealthyThreshold is the health score at or above which a plant counts
// as healthy for stats and the healthy_plants_count metric.
const HealthyThreshold = 70.0

type Plant struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	UserID             uuid.UUID  `json:"user_id" db:"user_id"`
	Name               string     `json:"name" db:"name"`
	Species            string     `json:"species" db:"species"`
	CurrentHealthScore float64    `json:"current_health_score" db:"current_health_score"`
	StreakDays         int        `json:"streak_days" db:"streak_days"`
	LastCheckIn        *time.Time `json:"last_check_in,omitempty" db:"last_check_in"`
	PlantIcon          string     `json:"plant_icon" db:"plant_icon"`
	ImageURL           *string    `json:"image_url,omitempty" db:"image_url"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

func (p *Plant) IsHealthy() bool {
	return p.CurrentHealthScore >= HealthyThreshold
}

type CreatePlantRequest struct {
	Name        string   `json:"name" validate:"required"`
	Species     string   `json:"species" validate:"required"`
	HealthScore *float64 `json:"health_score,omitempty"`
	PlantIcon   string   `json:"plant_icon,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
}

type UpdatePlantRequest struct {
	Name        *string  `json:"name,omitempty"`
	HealthScore *float64 `json:"health_score,omitempty"`
	PlantIcon   *string  `json:"plant_icon,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
}
