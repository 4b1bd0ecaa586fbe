package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"plantPalAPI/internal/achievement"
	"plantPalAPI/internal/plant"
	"plantPalAPI/internal/scan"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ScanService struct {
	db                 *pgxpool.Pool
	achievementService *AchievementService
}

func NewScanService(db *pgxpool.Pool, achievementService *AchievementService) *ScanService {
	return &ScanService{db: db, achievementService: achievementService}
}

func (s *ScanService) getUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
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

// RecordScan appends one scan to the event log, refreshes the scanned
// plant's health, then feeds the scan/health/streak metrics through the
// progress engine. The identification pipeline has already run by the
// time this is called; only its result lands here.
func (s *ScanService) RecordScan(ctx context.Context, clerkID string, req *scan.RecordScanRequest) (*scan.RecordScanResponse, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var plantID *uuid.UUID
	if req.PlantID != nil {
		id, err := uuid.Parse(*req.PlantID)
		if err != nil {
			return nil, fmt.Errorf("invalid plant ID: %w", err)
		}
		plantID = &id
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sc := &scan.PlantScan{}
	query := `
	INSERT INTO plant_scans (id, plant_id, user_id, scan_date, health_score, care_notes, disease_detected, is_healthy)
	VALUES ($1, $2, $3, NOW(), $4, $5, $6, $7)
	RETURNING id, plant_id, user_id, scan_date, health_score, care_notes, disease_detected, is_healthy, created_at
	`

	err = tx.QueryRow(ctx, query, uuid.New(), plantID, userID, req.HealthScore, req.CareNotes, req.DiseaseDetected, req.IsHealthy).Scan(
		&sc.ID,
		&sc.PlantID,
		&sc.UserID,
		&sc.ScanDate,
		&sc.HealthScore,
		&sc.CareNotes,
		&sc.DiseaseDetected,
		&sc.IsHealthy,
		&sc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record scan: %w", err)
	}

	if plantID != nil {
		_, err = tx.Exec(ctx, `
			UPDATE plants
			SET current_health_score = $3, last_check_in = NOW(), updated_at = NOW()
			WHERE id = $1 AND user_id = $2
		`, plantID, userID, req.HealthScore)
		if err != nil {
			return nil, fmt.Errorf("failed to update plant health: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	newlyCompleted := 0

	var totalScans int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*)::int FROM plant_scans WHERE user_id = $1`, userID).Scan(&totalScans); err != nil {
		log.Printf("RecordScan: failed to count scans for %s: %v", userID, err)
	} else {
		done, err := s.achievementService.UpdateProgress(ctx, userID, string(achievement.TypeScansCount), totalScans)
		if err != nil {
			log.Printf("RecordScan: scans_count update failed for %s: %v", userID, err)
		}
		newlyCompleted += len(done)
	}

	var healthy int
	err = s.db.QueryRow(ctx,
		`SELECT COUNT(*)::int FROM plants WHERE user_id = $1 AND current_health_score >= $2`,
		userID, plant.HealthyThreshold,
	).Scan(&healthy)
	if err != nil {
		log.Printf("RecordScan: failed to count healthy plants for %s: %v", userID, err)
	} else {
		done, err := s.achievementService.UpdateProgress(ctx, userID, string(achievement.TypeHealthyPlantsCount), healthy)
		if err != nil {
			log.Printf("RecordScan: healthy_plants_count update failed for %s: %v", userID, err)
		}
		newlyCompleted += len(done)
	}

	currentStreak, err := s.achievementService.CurrentStreak(ctx, userID)
	if err != nil {
		log.Printf("RecordScan: streak calculation failed for %s: %v", userID, err)
	} else {
		done, err := s.achievementService.UpdateProgress(ctx, userID, string(achievement.TypeStreak), currentStreak)
		if err != nil {
			log.Printf("RecordScan: streak update failed for %s: %v", userID, err)
		}
		newlyCompleted += len(done)
	}

	return &scan.RecordScanResponse{
		Scan:           sc,
		CurrentStreak:  currentStreak,
		NewlyCompleted: newlyCompleted,
	}, nil
}

func (s *ScanService) ListScans(ctx context.Context, clerkID string) ([]*scan.PlantScan, error) {
	userID, err := s.getUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT id, plant_id, user_id, scan_date, health_score, care_notes, disease_detected, is_healthy, created_at
	FROM plant_scans
	WHERE user_id = $1
	ORDER BY scan_date DESC
	LIMIT 100
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scans: %w", err)
	}
	defer rows.Close()

	var scans []*scan.PlantScan
	for rows.Next() {
		sc := &scan.PlantScan{}
		err := rows.Scan(
			&sc.ID,
			&sc.PlantID,
			&sc.UserID,
			&sc.ScanDate,
			&sc.HealthScore,
			&sc.CareNotes,
			&sc.DiseaseDetected,
			&sc.IsHealthy,
			&sc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, sc)
	}

	return scans, rows.Err()
}
