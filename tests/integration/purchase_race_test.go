package integration

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantPalAPI/handlers"
	"plantPalAPI/internal/scan"
	"plantPalAPI/internal/storefront"
	"plantPalAPI/services"
	"plantPalAPI/tests/helpers"
)

// TestConcurrentPurchasesCannotOverspend races two purchases against a
// balance that only covers one. The user-row lock must serialize them so
// exactly one coupon is written.
func TestConcurrentPurchasesCannotOverspend(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	achievementService := services.NewAchievementService(pool, notificationService)
	userService := services.NewUserService(pool, achievementService)
	scanService := services.NewScanService(pool, achievementService)
	storefrontService := services.NewStorefrontService(pool, achievementService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	clerkID := "user_test_race_" + time.Now().Format("20060102150405")
	ctx := context.Background()

	createPayload := helpers.MockClerkWebhookPayload("user.created", clerkID)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(createPayload))
	rr := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	// One scan: 30 base + 20 unlock + 5 streak = 55 coins, enough for one
	// 50-coin coupon but not two.
	_, err := scanService.RecordScan(ctx, clerkID, &scan.RecordScanRequest{
		HealthScore: 90,
		IsHealthy:   true,
	})
	require.NoError(t, err)

	purchaseReq := &storefront.PurchaseRequest{
		StoreID:         "store_1",
		StoreName:       "Garden Center",
		DiscountPercent: 5,
		CostCoins:       50,
	}

	var wg sync.WaitGroup
	results := make([]*storefront.PurchaseResponse, 2)
	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = storefrontService.Purchase(ctx, clerkID, purchaseReq)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		if results[i].Success {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one of the racing purchases may win")

	coupons, err := storefrontService.ListCoupons(ctx, clerkID)
	require.NoError(t, err)
	assert.Len(t, coupons, 1)

	balance, err := storefrontService.GetBalance(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 50, balance.CoinsSpent)
	assert.GreaterOrEqual(t, balance.CoinsRemaining, 0)
}
