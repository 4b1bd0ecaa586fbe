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
	"plantPalAPI/services"
	"plantPalAPI/tests/helpers"
)

func TestClerkWebhookLifecycle(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	achievementService := services.NewAchievementService(pool, notificationService)
	userService := services.NewUserService(pool, achievementService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	clerkID := "user_test_wh_" + time.Now().Format("20060102150405")
	ctx := context.Background()

	send := func(eventType string) *httptest.ResponseRecorder {
		payload := helpers.MockClerkWebhookPayload(eventType, clerkID)
		req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(payload))
		rr := httptest.NewRecorder()
		webhookHandler.HandleClerkWebhook(rr, req)
		return rr
	}

	// user.created
	rr := send("user.created")
	require.Equal(t, http.StatusOK, rr.Code)

	u, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "test.user@example.com", u.Email)
	assert.Equal(t, "testuser", u.Name)

	// user.updated
	rr = send("user.updated")
	require.Equal(t, http.StatusOK, rr.Code)

	u, err = userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "updateduser", u.Name)

	// user.deleted cascades progress rows, plants and coupons.
	rr = send("user.deleted")
	require.Equal(t, http.StatusOK, rr.Code)

	_, err = userService.GetUserByClerkID(ctx, clerkID)
	assert.Error(t, err, "user should be deleted")
}

func TestClerkWebhookRejectsBadSignature(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	achievementService := services.NewAchievementService(pool, notificationService)
	userService := services.NewUserService(pool, achievementService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "whsec_testsecret")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	payload := helpers.MockClerkWebhookPayload("user.created", "user_test_sig")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(payload))
	req.Header.Set("svix-id", "msg_123")
	req.Header.Set("svix-timestamp", "1700000000")
	req.Header.Set("svix-signature", "v1,bogus")
	rr := httptest.NewRecorder()

	webhookHandler.HandleClerkWebhook(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
