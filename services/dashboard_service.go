package services

import (
	"context"
	"fmt"

	"plantPalAPI/internal/coin"
	"plantPalAPI/internal/plant"
	"plantPalAPI/internal/stats"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DashboardService struct {
	db                 *pgxpool.Pool
	userService        *UserService
	achievementService *AchievementService
}

func NewDashboardService(db *pgxpool.Pool, userService *UserService, achievementService *AchievementService) *DashboardService {
	return &DashboardService{db: db, userService: userService, achievementService: achievementService}
}

// GetDashboard assembles the home-screen payload. Everything here is a
// read; missing data degrades to zeros and empty lists.
func (s *DashboardService) GetDashboard(ctx context.Context, clerkID string) (*stats.DashboardResponse, error) {
	u, err := s.userService.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	resp := &stats.DashboardResponse{User: u}

	query := `
	SELECT
		(SELECT COUNT(*) FROM plants WHERE user_id = $1)::int,
		(SELECT COUNT(*) FROM plants WHERE user_id = $1 AND current_health_score >= $2)::int,
		(SELECT COUNT(*) FROM plant_scans WHERE user_id = $1)::int,
		(SELECT COUNT(*) FROM user_achievements WHERE user_id = $1 AND is_completed = true)::int
	`

	err = s.db.QueryRow(ctx, query, u.ID, plant.HealthyThreshold).Scan(
		&resp.Stats.TotalPlants,
		&resp.Stats.HealthyPlants,
		&resp.Stats.TotalScans,
		&resp.Stats.AchievementsEarned,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard stats: %w", err)
	}
	resp.Stats.PlantsNeedingCare = resp.Stats.TotalPlants - resp.Stats.HealthyPlants

	currentStreak, err := s.achievementService.CurrentStreak(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	resp.Stats.CurrentStreak = currentStreak

	balance := coin.Compute(resp.Stats.AchievementsEarned, currentStreak, 0)
	resp.Stats.CoinsEarned = balance.CoinsEarned

	plantRows, err := s.db.Query(ctx, `
		SELECT id, name, species, current_health_score, streak_days
		FROM plants
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT 5
	`, u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent plants: %w", err)
	}
	defer plantRows.Close()

	for plantRows.Next() {
		p := &stats.DashboardPlant{}
		err := plantRows.Scan(&p.ID, &p.Name, &p.Species, &p.HealthScore, &p.StreakDays)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recent plant: %w", err)
		}
		p.NeedsAttention = p.HealthScore < plant.HealthyThreshold
		resp.RecentPlants = append(resp.RecentPlants, p)
	}
	if err := plantRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recent plants: %w", err)
	}

	recent, err := s.achievementService.GetCompletedAchievements(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if len(recent) > 5 {
		recent = recent[:5]
	}
	resp.RecentAchievements = recent

	return resp, nil
}
