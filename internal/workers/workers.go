package workers

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StartNotificationCleanupWorker prunes read notifications older than 90
// days once an hour. Coupons are never pruned: spent coins are derived
// from coupon rows and removing one would inflate the holder's balance.
func StartNotificationCleanupWorker(db *pgxpool.Pool) {
	ticker := time.NewTicker(1 * time.Hour)

	go func() {
		for range ticker.C {
			cleanupNotifications(db)
		}
	}()
}

func cleanupNotifications(db *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := db.Exec(ctx, `
		DELETE FROM notifications
		WHERE is_read = true AND created_at < NOW() - INTERVAL '90 days'
	`)
	if err != nil {
		log.Printf("Notification cleanup failed: %v", err)
		return
	}

	if n := result.RowsAffected(); n > 0 {
		log.Printf("Notification cleanup: removed %d old notifications", n)
	}
}

// StartCouponExpiryWorker flags unredeemed coupons past their expiry
// once an hour. Rows are only marked: cost_coins must keep counting
// toward the holder's spend.
func StartCouponExpiryWorker(db *pgxpool.Pool) {
	ticker := time.NewTicker(1 * time.Hour)

	go func() {
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			n, err := ExpireCoupons(ctx, db)
			cancel()
			if err != nil {
				log.Printf("Coupon expiry failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Coupon expiry: marked %d coupons expired", n)
			}
		}
	}()
}

// ExpireCoupons marks every unredeemed coupon whose expires_at has
// passed and returns how many rows were flagged.
func ExpireCoupons(ctx context.Context, db *pgxpool.Pool) (int64, error) {
	result, err := db.Exec(ctx, `
		UPDATE user_coupons
		SET expired = true
		WHERE expired = false AND redeemed = false AND expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
