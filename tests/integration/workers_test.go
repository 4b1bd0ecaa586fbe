package integration

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantPalAPI/handlers"
	"plantPalAPI/internal/workers"
	"plantPalAPI/services"
	"plantPalAPI/tests/helpers"
)

// TestExpireCoupons verifies the expiry sweep flags lapsed unredeemed
// coupons and leaves everything else alone.
func TestExpireCoupons(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	achievementService := services.NewAchievementService(pool, notificationService)
	userService := services.NewUserService(pool, achievementService)
	storefrontService := services.NewStorefrontService(pool, achievementService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	clerkID := "user_test_exp_" + time.Now().Format("20060102150405")
	ctx := context.Background()

	createPayload := helpers.MockClerkWebhookPayload("user.created", clerkID)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(createPayload))
	rr := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	u, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)

	insertCoupon := func(code string, redeemed bool, expiresAt time.Time) {
		_, err := pool.Exec(ctx, `
			INSERT INTO user_coupons (id, user_id, store_id, store_name, discount_percent, cost_coins, code, redeemed, expires_at)
			VALUES ($1, $2, 'store_1', 'Garden Center', 5, 50, $3, $4, $5)
		`, uuid.New(), u.ID, code, redeemed, expiresAt)
		require.NoError(t, err)
	}

	lapsedCode := "EXPTEST" + time.Now().Format("150405")
	liveCode := "LIVTEST" + time.Now().Format("150405")
	redeemedCode := "REDTEST" + time.Now().Format("150405")

	insertCoupon(lapsedCode, false, time.Now().Add(-time.Hour))
	insertCoupon(liveCode, false, time.Now().Add(24*time.Hour))
	insertCoupon(redeemedCode, true, time.Now().Add(-time.Hour))

	n, err := workers.ExpireCoupons(ctx, pool)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	coupons, err := storefrontService.ListCoupons(ctx, clerkID)
	require.NoError(t, err)
	require.Len(t, coupons, 3)

	byCode := make(map[string]bool, len(coupons))
	for _, c := range coupons {
		byCode[c.Code] = c.Expired
	}
	assert.True(t, byCode[lapsedCode], "lapsed unredeemed coupon should be flagged")
	assert.False(t, byCode[liveCode], "live coupon must not be flagged")
	assert.False(t, byCode[redeemedCode], "redeemed coupon must not be flagged")

	// The flag never touches the spend ledger.
	balance, err := storefrontService.GetBalance(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 150, balance.CoinsSpent)

	// The sweep is idempotent: a second run finds nothing to flag.
	n, err = workers.ExpireCoupons(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
