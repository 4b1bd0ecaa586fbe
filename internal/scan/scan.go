package scan

import (
	"time"

	"github.com/google/uuid"
)

// PlantScan is one entry in the append-only scan log. Distinct scan
// dates are what the streak calculator walks.
type PlantScan struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	PlantID         *uuid.UUID `json:"plant_id,omitempty" db:"plant_id"`
	UserID          uuid.UUID  `json:"user_id" db:"user_id"`
	ScanDate        time.Time  `json:"scan_date" db:"scan_date"`
	HealthScore     float64    `json:"health_score" db:"health_score"`
	CareNotes       *string    `json:"care_notes,omitempty" db:"care_notes"`
	DiseaseDetected *string    `json:"disease_detected,omitempty" db:"disease_detected"`
	IsHealthy       bool       `json:"is_healthy" db:"is_healthy"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

type RecordScanRequest struct {
	PlantID         *string `json:"plant_id,omitempty"`
	HealthScore     float64 `json:"health_score" validate:"gte=0,lte=100"`
	CareNotes       *string `json:"care_notes,omitempty"`
	DiseaseDetected *string `json:"disease_detected,omitempty"`
	IsHealthy       bool    `json:"is_healthy"`
}

type RecordScanResponse struct {
	Scan           *PlantScan `json:"scan"`
	CurrentStreak  int        `json:"current_streak"`
	NewlyCompleted int        `json:"newly_completed"`
}
