package services

import (
	"context"
	"errors"
	"fmt"

	"plantPalAPI/internal/leaderboard"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LeaderboardService struct {
	db *pgxpool.Pool
}

func NewLeaderboardService(db *pgxpool.Pool) *LeaderboardService {
	return &LeaderboardService{db: db}
}

const leaderboardScoresCTE = `
	WITH user_scores AS (
		SELECT
			u.id,
			u.name,
			u.email,
			u.created_at,
			COALESCE((
				SELECT SUM(a.points_awarded)
				FROM user_achievements ua
				JOIN achievements a ON a.id = ua.achievement_id
				WHERE ua.user_id = u.id AND ua.is_completed = true
			), 0)::int AS score,
			(SELECT COUNT(*) FROM plants p WHERE p.user_id = u.id)::int AS total_plants,
			(SELECT COUNT(*) FROM user_achievements ua WHERE ua.user_id = u.id AND ua.is_completed = true)::int AS achievements_completed
		FROM users u
	),
	ranked AS (
		SELECT *, DENSE_RANK() OVER (ORDER BY score DESC)::int AS rank
		FROM user_scores
	)
`

// GetLeaderboard ranks every user by summed achievement points and
// returns the top entries plus the caller's own rank. Ties share a dense
// rank; display order breaks them by account creation time then id so
// repeated calls never reshuffle equal scores. Recomputed per request,
// never cached.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, clerkID string, limit int) (*leaderboard.Leaderboard, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	query := leaderboardScoresCTE + `
	SELECT rank, id, name, email, score, total_plants, achievements_completed
	FROM ranked
	ORDER BY score DESC, created_at ASC, id ASC
	LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	board := &leaderboard.Leaderboard{}
	for rows.Next() {
		entry := &leaderboard.LeaderboardEntry{}
		err := rows.Scan(
			&entry.Rank,
			&entry.UserID,
			&entry.Name,
			&entry.Email,
			&entry.Score,
			&entry.TotalPlants,
			&entry.AchievementsCompleted,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		board.Entries = append(board.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&board.TotalUsers); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	// Caller rank is null until the caller has completed at least one
	// achievement; a zero score carries no ranking signal.
	rankQuery := leaderboardScoresCTE + `
	SELECT rank
	FROM ranked
	WHERE id = $1 AND achievements_completed > 0
	`

	var callerRank int
	err = s.db.QueryRow(ctx, rankQuery, userID).Scan(&callerRank)
	switch {
	case err == nil:
		board.CurrentUserRank = &callerRank
	case errors.Is(err, pgx.ErrNoRows):
		// leave null
	default:
		return nil, fmt.Errorf("failed to get caller rank: %w", err)
	}

	return board, nil
}
