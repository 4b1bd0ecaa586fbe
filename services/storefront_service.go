package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"plantPalAPI/internal/coin"
	"plantPalAPI/internal/storefront"
	"plantPalAPI/middleware"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StorefrontService struct {
	db                 *pgxpool.Pool
	achievementService *AchievementService
}

func NewStorefrontService(db *pgxpool.Pool, achievementService *AchievementService) *StorefrontService {
	return &StorefrontService{db: db, achievementService: achievementService}
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateCouponCode returns an unguessable redemption code. Bytes at or
// above the largest multiple of the alphabet size are redrawn so every
// character is equally likely. Uniqueness is enforced by the DB; callers
// retry on collision.
func generateCouponCode(length int) (string, error) {
	limit := byte(256 - 256%len(codeAlphabet))
	code := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(code) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate coupon code: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			code = append(code, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(code) == length {
				break
			}
		}
	}
	return string(code), nil
}

// GetBalance derives the user's coin balance. Nothing is persisted; the
// balance is a pure function of completed achievements, current streak
// and coupon spend, recomputed on every request.
func (s *StorefrontService) GetBalance(ctx context.Context, clerkID string) (*coin.Balance, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var completed, spent int
	err = s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM user_achievements WHERE user_id = $1 AND is_completed = true)::int,
			(SELECT COALESCE(SUM(cost_coins), 0) FROM user_coupons WHERE user_id = $1)::int
	`, userID).Scan(&completed, &spent)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance inputs: %w", err)
	}

	currentStreak, err := s.achievementService.CurrentStreak(ctx, userID)
	if err != nil {
		return nil, err
	}

	balance := coin.Compute(completed, currentStreak, spent)
	return &balance, nil
}

// ListCoupons returns the user's purchased coupons, newest first.
func (s *StorefrontService) ListCoupons(ctx context.Context, clerkID string) ([]*storefront.Coupon, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	query := `
	SELECT id, user_id, store_id, store_name, discount_percent, cost_coins, code, redeemed, expired, expires_at, created_at
	FROM user_coupons
	WHERE user_id = $1
	ORDER BY created_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch coupons: %w", err)
	}
	defer rows.Close()

	var coupons []*storefront.Coupon
	for rows.Next() {
		c := &storefront.Coupon{}
		err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.StoreID,
			&c.StoreName,
			&c.DiscountPercent,
			&c.CostCoins,
			&c.Code,
			&c.Redeemed,
			&c.Expired,
			&c.ExpiresAt,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}

	return coupons, rows.Err()
}

// Purchase buys a coupon against the derived balance. The user row is
// locked and the balance re-checked inside the same transaction that
// inserts the coupon, so two concurrent purchases cannot jointly
// overspend. Insufficient funds is a structured result, not an error,
// and writes nothing.
func (s *StorefrontService) Purchase(ctx context.Context, clerkID string, req *storefront.PurchaseRequest) (*storefront.PurchaseResponse, error) {
	if !storefront.ValidTier(req.DiscountPercent, req.CostCoins) {
		return nil, fmt.Errorf("invalid coupon tier: %d%% for %d coins", req.DiscountPercent, req.CostCoins)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The lock serializes purchases per user for the rest of the tx.
	var userID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1 FOR UPDATE`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var completed, spent int
	err = tx.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM user_achievements WHERE user_id = $1 AND is_completed = true)::int,
			(SELECT COALESCE(SUM(cost_coins), 0) FROM user_coupons WHERE user_id = $1)::int
	`, userID).Scan(&completed, &spent)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance inputs: %w", err)
	}

	currentStreak, err := s.currentStreakTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	balance := coin.Compute(completed, currentStreak, spent)
	if req.CostCoins > balance.CoinsRemaining {
		middleware.RecordCouponPurchase("insufficient_coins")
		return &storefront.PurchaseResponse{
			Success: false,
			Message: "Insufficient coins",
		}, nil
	}

	// Collision-check the code before inserting; a retry after a unique
	// violation would not survive the aborted transaction.
	var code string
	for attempt := 0; attempt < 5; attempt++ {
		candidate, err := generateCouponCode(storefront.CodeLength)
		if err != nil {
			return nil, err
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM user_coupons WHERE code = $1)`, candidate).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check coupon code: %w", err)
		}
		if !exists {
			code = candidate
			break
		}
	}
	if code == "" {
		return nil, fmt.Errorf("failed to generate a unique coupon code")
	}

	expiresAt := time.Now().UTC().Add(storefront.CouponExpiry)
	coupon := &storefront.Coupon{}

	err = tx.QueryRow(ctx, `
		INSERT INTO user_coupons (id, user_id, store_id, store_name, discount_percent, cost_coins, code, redeemed, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
		RETURNING id, user_id, store_id, store_name, discount_percent, cost_coins, code, redeemed, expired, expires_at, created_at
	`, uuid.New(), userID, req.StoreID, req.StoreName, req.DiscountPercent, req.CostCoins, code, expiresAt).Scan(
		&coupon.ID,
		&coupon.UserID,
		&coupon.StoreID,
		&coupon.StoreName,
		&coupon.DiscountPercent,
		&coupon.CostCoins,
		&coupon.Code,
		&coupon.Redeemed,
		&coupon.Expired,
		&coupon.ExpiresAt,
		&coupon.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("coupon code collision, retry the purchase: %w", err)
		}
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	middleware.RecordCouponPurchase("purchased")

	return &storefront.PurchaseResponse{
		Success: true,
		Message: "Coupon purchased",
		Coupon:  coupon,
	}, nil
}

// currentStreakTx mirrors AchievementService.CurrentStreak but reads
// through the purchase transaction for a consistent snapshot.
func (s *StorefrontService) currentStreakTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error) {
	rows, err := tx.Query(ctx, `
		SELECT DISTINCT (scan_date AT TIME ZONE 'UTC')::date
		FROM plant_scans
		WHERE user_id = $1
		ORDER BY 1 DESC
	`, userID)
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
		return 0, err
	}

	return consecutiveDays(time.Now().UTC(), dates), nil
}
