package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"plantPalAPI/internal/achievement"
	"plantPalAPI/middleware"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AchievementService struct {
	db                  *pgxpool.Pool
	notificationService *NotificationService
}

func NewAchievementService(db *pgxpool.Pool, notificationService *NotificationService) *AchievementService {
	return &AchievementService{db: db, notificationService: notificationService}
}

func (s *AchievementService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
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

// GetAllAchievements returns the active catalogue. Public, no user context.
func (s *AchievementService) GetAllAchievements(ctx context.Context) ([]*achievement.Achievement, error) {
	query := `
	SELECT id, name, description, icon, achievement_type, requirement_value, points_awarded, is_active, created_at
	FROM achievements
	WHERE is_active = true
	ORDER BY requirement_value ASC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievements: %w", err)
	}
	defer rows.Close()

	var achievements []*achievement.Achievement
	for rows.Next() {
		ach := &achievement.Achievement{}
		err := rows.Scan(
			&ach.ID,
			&ach.Name,
			&ach.Description,
			&ach.Icon,
			&ach.AchievementType,
			&ach.RequirementValue,
			&ach.PointsAwarded,
			&ach.IsActive,
			&ach.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		achievements = append(achievements, ach)
	}

	return achievements, rows.Err()
}

// GetUserAchievements returns the full progress projection for UI
// rendering: every active definition joined with the user's progress row.
func (s *AchievementService) GetUserAchievements(ctx context.Context, clerkID string) ([]*achievement.AchievementWithProgress, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT
		a.id, a.name, a.description, a.icon, a.achievement_type,
		a.requirement_value, a.points_awarded, a.is_active, a.created_at,
		COALESCE(ua.current_progress, 0),
		COALESCE(ua.is_completed, false),
		ua.completed_at
	FROM achievements a
	LEFT JOIN user_achievements ua ON a.id = ua.achievement_id AND ua.user_id = $1
	WHERE a.is_active = true
	ORDER BY COALESCE(ua.is_completed, false) DESC, a.requirement_value ASC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user achievements: %w", err)
	}
	defer rows.Close()

	var achievements []*achievement.AchievementWithProgress
	for rows.Next() {
		ach := &achievement.AchievementWithProgress{}
		err := rows.Scan(
			&ach.ID,
			&ach.Name,
			&ach.Description,
			&ach.Icon,
			&ach.AchievementType,
			&ach.RequirementValue,
			&ach.PointsAwarded,
			&ach.IsActive,
			&ach.CreatedAt,
			&ach.CurrentProgress,
			&ach.IsCompleted,
			&ach.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user achievement: %w", err)
		}
		achievements = append(achievements, ach)
	}

	return achievements, rows.Err()
}

// GetCompletedAchievements returns only unlocked achievements, newest first.
func (s *AchievementService) GetCompletedAchievements(ctx context.Context, clerkID string) ([]*achievement.AchievementWithProgress, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT
		a.id, a.name, a.description, a.icon, a.achievement_type,
		a.requirement_value, a.points_awarded, a.is_active, a.created_at,
		ua.current_progress, ua.is_completed, ua.completed_at
	FROM user_achievements ua
	JOIN achievements a ON a.id = ua.achievement_id
	WHERE ua.user_id = $1 AND ua.is_completed = true
	ORDER BY ua.completed_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch completed achievements: %w", err)
	}
	defer rows.Close()

	var achievements []*achievement.AchievementWithProgress
	for rows.Next() {
		ach := &achievement.AchievementWithProgress{}
		err := rows.Scan(
			&ach.ID,
			&ach.Name,
			&ach.Description,
			&ach.Icon,
			&ach.AchievementType,
			&ach.RequirementValue,
			&ach.PointsAwarded,
			&ach.IsActive,
			&ach.CreatedAt,
			&ach.CurrentProgress,
			&ach.IsCompleted,
			&ach.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan completed achievement: %w", err)
		}
		achievements = append(achievements, ach)
	}

	return achievements, rows.Err()
}

// GetStats aggregates the user's achievement totals for the profile view.
func (s *AchievementService) GetStats(ctx context.Context, clerkID string) (*achievement.Stats, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT
		COUNT(*)::int,
		COUNT(*) FILTER (WHERE ua.is_completed)::int,
		COALESCE(SUM(a.points_awarded) FILTER (WHERE ua.is_completed), 0)::int
	FROM user_achievements ua
	JOIN achievements a ON a.id = ua.achievement_id
	WHERE ua.user_id = $1
	`

	st := &achievement.Stats{}
	err = s.db.QueryRow(ctx, query, userID).Scan(&st.TotalAchievements, &st.Completed, &st.TotalPointsEarned)
	if err != nil {
		return nil, fmt.Errorf("failed to get achievement stats: %w", err)
	}

	st.InProgress = st.TotalAchievements - st.Completed
	if st.TotalAchievements > 0 {
		st.CompletionPercentage = st.Completed * 100 / st.TotalAchievements
	}

	return st, nil
}

// InitializeUserAchievements creates one progress row per active
// definition inside the caller's transaction. Idempotent: existing rows
// are left untouched.
func (s *AchievementService) InitializeUserAchievements(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	query := `
	INSERT INTO user_achievements (id, user_id, achievement_id, current_progress, is_completed)
	SELECT gen_random_uuid(), $1, a.id, 0, false
	FROM achievements a
	WHERE a.is_active = true
	ON CONFLICT (user_id, achievement_id) DO NOTHING
	`

	if _, err := tx.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to initialize user achievements: %w", err)
	}
	return nil
}

// applyProgress applies an absolute metric value to one progress row and
// reports whether the threshold was crossed for the first time. Completed
// rows are never touched, so reprocessing the same event or a later
// decrease cannot regress or re-fire an unlock.
func applyProgress(row *achievement.UserAchievement, requirement, newValue int, now time.Time) bool {
	if row.IsCompleted {
		return false
	}

	row.CurrentProgress = newValue

	if newValue >= requirement {
		row.IsCompleted = true
		completedAt := now
		row.CompletedAt = &completedAt
		return true
	}

	return false
}

// UpdateProgress maps an absolute metric value onto every active
// definition of the given type and returns the achievements that just
// completed. Progress rows are locked for the duration of the transaction
// so concurrent metric updates cannot lose a write or double-fire an
// unlock. An unknown achievement type is a silent no-op.
func (s *AchievementService) UpdateProgress(ctx context.Context, userID uuid.UUID, achievementType string, newValue int) ([]*achievement.Achievement, error) {
	achType, ok := achievement.ParseAchievementType(achievementType)
	if !ok {
		log.Printf("UpdateProgress: ignoring unknown achievement type %q", achievementType)
		return nil, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
	SELECT
		ua.id, ua.current_progress, ua.is_completed, ua.completed_at,
		a.id, a.name, a.description, a.icon, a.achievement_type,
		a.requirement_value, a.points_awarded, a.is_active, a.created_at
	FROM user_achievements ua
	JOIN achievements a ON a.id = ua.achievement_id
	WHERE ua.user_id = $1 AND a.achievement_type = $2 AND a.is_active = true
	ORDER BY a.requirement_value ASC
	FOR UPDATE OF ua
	`

	rows, err := tx.Query(ctx, query, userID, achType)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch progress rows: %w", err)
	}

	type progressPair struct {
		row *achievement.UserAchievement
		def *achievement.Achievement
	}

	var pairs []progressPair
	for rows.Next() {
		row := &achievement.UserAchievement{UserID: userID}
		def := &achievement.Achievement{}
		err := rows.Scan(
			&row.ID, &row.CurrentProgress, &row.IsCompleted, &row.CompletedAt,
			&def.ID, &def.Name, &def.Description, &def.Icon, &def.AchievementType,
			&def.RequirementValue, &def.PointsAwarded, &def.IsActive, &def.CreatedAt,
		)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		row.AchievementID = def.ID
		pairs = append(pairs, progressPair{row: row, def: def})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read progress rows: %w", err)
	}

	if len(pairs) == 0 {
		// Distinguish "no definitions of this type" from a user whose
		// onboarding never created progress rows. The latter is an
		// upstream bug and must not be silently defaulted.
		var defCount int
		err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM achievements WHERE achievement_type = $1 AND is_active = true`,
			achType,
		).Scan(&defCount)
		if err != nil {
			return nil, fmt.Errorf("failed to count achievement definitions: %w", err)
		}
		if defCount > 0 {
			return nil, fmt.Errorf("achievements not initialized for user %s", userID)
		}
		return nil, nil
	}

	now := time.Now().UTC()
	var newlyCompleted []*achievement.Achievement

	for _, p := range pairs {
		if p.row.IsCompleted {
			continue
		}

		crossed := applyProgress(p.row, p.def.RequirementValue, newValue, now)

		_, err := tx.Exec(ctx, `
			UPDATE user_achievements
			SET current_progress = $1, is_completed = $2, completed_at = $3, updated_at = NOW()
			WHERE id = $4
		`, p.row.CurrentProgress, p.row.IsCompleted, p.row.CompletedAt, p.row.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update progress: %w", err)
		}

		if crossed {
			newlyCompleted = append(newlyCompleted, p.def)
			log.Printf("Achievement unlocked: %s (%d pts) for user %s", p.def.Name, p.def.PointsAwarded, userID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if len(newlyCompleted) > 0 {
		middleware.RecordAchievementUnlocks(len(newlyCompleted))
		if s.notificationService != nil {
			s.notificationService.NotifyAchievements(context.WithoutCancel(ctx), userID, newlyCompleted)
		}
	}

	return newlyCompleted, nil
}

// UpdateProgressForClerk resolves the Clerk identity and applies the
// metric update. This is the inbound boundary the scan pipeline and
// garden CRUD call after persisting their own state.
func (s *AchievementService) UpdateProgressForClerk(ctx context.Context, clerkID string, achievementType string, newValue int) ([]*achievement.Achievement, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	return s.UpdateProgress(ctx, userID, achievementType, newValue)
}

// CurrentStreak derives the user's consecutive-day scan streak. Zero
// scans ever means zero; reads are side-effect free.
func (s *AchievementService) CurrentStreak(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
	SELECT DISTINCT (scan_date AT TIME ZONE 'UTC')::date
	FROM plant_scans
	WHERE user_id = $1
	ORDER BY 1 DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch scan dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return 0, fmt.Errorf("failed to scan date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read scan dates: %w", err)
	}

	return consecutiveDays(time.Now().UTC(), dates), nil
}

func (s *AchievementService) CurrentStreakForClerk(ctx context.Context, clerkID string) (int, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return 0, err
	}
	return s.CurrentStreak(ctx, userID)
}

// CheckStreaks recomputes the streak and feeds it through the progress
// engine so streak achievements stay current. Called on login and after
// every scan.
func (s *AchievementService) CheckStreaks(ctx context.Context, clerkID string) (*achievement.CheckStreaksResponse, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	currentStreak, err := s.CurrentStreak(ctx, userID)
	if err != nil {
		return nil, err
	}

	newlyCompleted, err := s.UpdateProgress(ctx, userID, string(achievement.TypeStreak), currentStreak)
	if err != nil {
		return nil, err
	}

	return &achievement.CheckStreaksResponse{
		CurrentStreak:  currentStreak,
		NewlyCompleted: len(newlyCompleted),
		Message:        fmt.Sprintf("Streak updated to %d days", currentStreak),
	}, nil
}
