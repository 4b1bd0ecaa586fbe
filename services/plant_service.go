package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"plantPalAPI/internal/achievement"
	"plantPalAPI/internal/plant"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlantService struct {
	db                 *pgxpool.Pool
	achievementService *AchievementService
}

func NewPlantService(db *pgxpool.Pool, achievementService *AchievementService) *PlantService {
	return &PlantService{db: db, achievementService: achievementService}
}

func (s *PlantService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("user not found")
		}
		return uuid.Nil, fmt.Errorf("failed to get user: %w", err)
	}
	return userID, nil
}

// AddPlant persists the plant, then feeds the new absolute plant counts
// into the progress engine. The metric update happens after the plant is
// committed, matching the "persist first, then report" boundary contract.
func (s *PlantService) AddPlant(ctx context.Context, clerkID string, req *plant.CreatePlantRequest) (*plant.Plant, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	healthScore := 100.0
	if req.HealthScore != nil {
		healthScore = *req.HealthScore
	}
	icon := req.PlantIcon
	if icon == "" {
		icon = "🌱"
	}

	p := &plant.Plant{}
	query := `
	INSERT INTO plants (id, user_id, name, species, current_health_score, streak_days, plant_icon, image_url)
	VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
	RETURNING id, user_id, name, species, current_health_score, streak_days, last_check_in, plant_icon, image_url, created_at, updated_at
	`

	err = s.db.QueryRow(ctx, query, uuid.New(), userID, req.Name, req.Species, healthScore, icon, req.ImageURL).Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Species,
		&p.CurrentHealthScore,
		&p.StreakDays,
		&p.LastCheckIn,
		&p.PlantIcon,
		&p.ImageURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create plant: %w", err)
	}

	s.reportPlantMetrics(ctx, userID)

	return p, nil
}

// reportPlantMetrics pushes the user's current absolute plant counts
// into the progress engine. Failures are logged, not returned: the plant
// write already succeeded and the next update re-reports absolute values.
func (s *PlantService) reportPlantMetrics(ctx context.Context, userID uuid.UUID) {
	var total, healthy int
	err := s.db.QueryRow(ctx, `
		SELECT
			COUNT(*)::int,
			COUNT(*) FILTER (WHERE current_health_score >= $2)::int
		FROM plants
		WHERE user_id = $1
	`, userID, plant.HealthyThreshold).Scan(&total, &healthy)
	if err != nil {
		log.Printf("reportPlantMetrics: failed to count plants for %s: %v", userID, err)
		return
	}

	if _, err := s.achievementService.UpdateProgress(ctx, userID, string(achievement.TypePlantsCount), total); err != nil {
		log.Printf("reportPlantMetrics: plants_count update failed for %s: %v", userID, err)
	}
	if _, err := s.achievementService.UpdateProgress(ctx, userID, string(achievement.TypeHealthyPlantsCount), healthy); err != nil {
		log.Printf("reportPlantMetrics: healthy_plants_count update failed for %s: %v", userID, err)
	}
}

func (s *PlantService) ListPlants(ctx context.Context, clerkID string) ([]*plant.Plant, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT id, user_id, name, species, current_health_score, streak_days, last_check_in, plant_icon, image_url, created_at, updated_at
	FROM plants
	WHERE user_id = $1
	ORDER BY created_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plants: %w", err)
	}
	defer rows.Close()

	var plants []*plant.Plant
	for rows.Next() {
		p := &plant.Plant{}
		err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Name,
			&p.Species,
			&p.CurrentHealthScore,
			&p.StreakDays,
			&p.LastCheckIn,
			&p.PlantIcon,
			&p.ImageURL,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plant: %w", err)
		}
		plants = append(plants, p)
	}

	return plants, rows.Err()
}

func (s *PlantService) GetPlant(ctx context.Context, clerkID string, plantID uuid.UUID) (*plant.Plant, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT id, user_id, name, species, current_health_score, streak_days, last_check_in, plant_icon, image_url, created_at, updated_at
	FROM plants
	WHERE id = $1 AND user_id = $2
	`

	p := &plant.Plant{}
	err = s.db.QueryRow(ctx, query, plantID, userID).Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Species,
		&p.CurrentHealthScore,
		&p.StreakDays,
		&p.LastCheckIn,
		&p.PlantIcon,
		&p.ImageURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("plant not found")
		}
		return nil, fmt.Errorf("failed to get plant: %w", err)
	}

	return p, nil
}

func (s *PlantService) UpdatePlant(ctx context.Context, clerkID string, plantID uuid.UUID, req *plant.UpdatePlantRequest) (*plant.Plant, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	UPDATE plants
	SET name = COALESCE($3, name),
	    current_health_score = COALESCE($4, current_health_score),
	    plant_icon = COALESCE($5, plant_icon),
	    image_url = COALESCE($6, image_url),
	    updated_at = NOW()
	WHERE id = $1 AND user_id = $2
	RETURNING id, user_id, name, species, current_health_score, streak_days, last_check_in, plant_icon, image_url, created_at, updated_at
	`

	p := &plant.Plant{}
	err = s.db.QueryRow(ctx, query, plantID, userID, req.Name, req.HealthScore, req.PlantIcon, req.ImageURL).Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Species,
		&p.CurrentHealthScore,
		&p.StreakDays,
		&p.LastCheckIn,
		&p.PlantIcon,
		&p.ImageURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("plant not found")
		}
		return nil, fmt.Errorf("failed to update plant: %w", err)
	}

	if req.HealthScore != nil {
		s.reportPlantMetrics(ctx, userID)
	}

	return p, nil
}

func (s *PlantService) DeletePlant(ctx context.Context, clerkID string, plantID uuid.UUID) error {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx, `DELETE FROM plants WHERE id = $1 AND user_id = $2`, plantID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete plant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("plant not found")
	}

	// Completed achievements survive the lower counts; only live
	// progress tracks the decrease.
	s.reportPlantMetrics(ctx, userID)

	return nil
}
