package integration

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantPalAPI/handlers"
	"plantPalAPI/internal/coin"
	"plantPalAPI/internal/plant"
	"plantPalAPI/internal/scan"
	"plantPalAPI/internal/storefront"
	"plantPalAPI/services"
	"plantPalAPI/tests/helpers"
)

// TestEconomyFlow walks one user through onboarding, scanning, the
// derived coin balance and a coupon purchase.
func TestEconomyFlow(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	achievementService := services.NewAchievementService(pool, notificationService)
	userService := services.NewUserService(pool, achievementService)
	plantService := services.NewPlantService(pool, achievementService)
	scanService := services.NewScanService(pool, achievementService)
	storefrontService := services.NewStorefrontService(pool, achievementService)
	leaderboardService := services.NewLeaderboardService(pool)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	clerkID := "user_test_" + time.Now().Format("20060102150405")
	ctx := context.Background()

	// Step 1: onboarding via Clerk webhook seeds the progress rows.
	t.Log("Step 1: User signs up")

	createPayload := helpers.MockClerkWebhookPayload("user.created", clerkID)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(createPayload))
	rr := httptest.NewRecorder()

	webhookHandler.HandleClerkWebhook(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, "Webhook should succeed")

	u, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)

	achievements, err := achievementService.GetUserAchievements(ctx, clerkID)
	require.NoError(t, err)
	assert.NotEmpty(t, achievements, "progress rows should be seeded on signup")
	for _, a := range achievements {
		assert.Equal(t, 0, a.CurrentProgress)
		assert.False(t, a.IsCompleted)
	}

	// Step 2: a new user holds only the base grant.
	t.Log("Step 2: Check the starting balance")

	balance, err := storefrontService.GetBalance(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, coin.BaseCoins, balance.CoinsEarned)
	assert.Equal(t, coin.BaseCoins, balance.CoinsRemaining)

	// Step 3: first scan unlocks First Scan and starts the streak.
	t.Log("Step 3: Record the first scan")

	scanResult, err := scanService.RecordScan(ctx, clerkID, &scan.RecordScanRequest{
		HealthScore: 85,
		IsHealthy:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, scanResult.CurrentStreak)
	assert.GreaterOrEqual(t, scanResult.NewlyCompleted, 1, "First Scan should unlock")

	// 30 base + 20 for the unlock + 5 for the one-day streak.
	balance, err = storefrontService.GetBalance(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 55, balance.CoinsEarned)
	assert.Equal(t, 55, balance.CoinsRemaining)

	// Step 4: adding a plant feeds the plants_count metric.
	t.Log("Step 4: Add a plant")

	_, err = plantService.AddPlant(ctx, clerkID, &plant.CreatePlantRequest{
		Name:    "Monstera",
		Species: "Monstera deliciosa",
	})
	require.NoError(t, err)

	// Green Thumb (1 plant) should now be complete too.
	balance, err = storefrontService.GetBalance(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 75, balance.CoinsEarned)

	// Step 5: buy a 5% coupon for 50 coins.
	t.Log("Step 5: Purchase a coupon")

	result, err := storefrontService.Purchase(ctx, clerkID, &storefront.PurchaseRequest{
		StoreID:         "store_1",
		StoreName:       "Garden Center",
		DiscountPercent: 5,
		CostCoins:       50,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotNil(t, result.Coupon)
	assert.Len(t, result.Coupon.Code, storefront.CodeLength)
	assert.False(t, result.Coupon.Redeemed)
	assert.False(t, result.Coupon.Expired)
	require.NotNil(t, result.Coupon.ExpiresAt)
	assert.True(t, result.Coupon.ExpiresAt.After(time.Now()))

	balance, err = storefrontService.GetBalance(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 50, balance.CoinsSpent)
	assert.Equal(t, 25, balance.CoinsRemaining)

	// Step 6: a second 50-coin coupon exceeds the remaining 25.
	t.Log("Step 6: Insufficient purchase is rejected without writing")

	result, err = storefrontService.Purchase(ctx, clerkID, &storefront.PurchaseRequest{
		StoreID:         "store_1",
		StoreName:       "Garden Center",
		DiscountPercent: 5,
		CostCoins:       50,
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Nil(t, result.Coupon)

	coupons, err := storefrontService.ListCoupons(ctx, clerkID)
	require.NoError(t, err)
	assert.Len(t, coupons, 1, "failed purchase must not create a coupon")

	// Step 7: the user appears on the leaderboard once something completed.
	t.Log("Step 7: Leaderboard ranks the user")

	lb, err := leaderboardService.GetLeaderboard(ctx, clerkID, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, lb.Entries)
	require.NotNil(t, lb.CurrentUserRank, "a user with completed achievements must be ranked")
	assert.GreaterOrEqual(t, *lb.CurrentUserRank, 1)
}

// TestInvalidCouponTier verifies tier validation happens before any read.
func TestInvalidCouponTier(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	achievementService := services.NewAchievementService(pool, notificationService)
	storefrontService := services.NewStorefrontService(pool, achievementService)

	_, err := storefrontService.Purchase(context.Background(), "user_does_not_matter", &storefront.PurchaseRequest{
		StoreID:         "store_1",
		StoreName:       "Garden Center",
		DiscountPercent: 5,
		CostCoins:       100,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid coupon tier")
}
