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
	"plantPalAPI/internal/leaderboard"
	"plantPalAPI/internal/scan"
	"plantPalAPI/services"
	"plantPalAPI/tests/helpers"
)

// TestLeaderboardTieOrdering pits two users with identical scores against
// each other: they must share a dense rank and keep the same relative
// display order on every request.
func TestLeaderboardTieOrdering(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	achievementService := services.NewAchievementService(pool, notificationService)
	userService := services.NewUserService(pool, achievementService)
	scanService := services.NewScanService(pool, achievementService)
	leaderboardService := services.NewLeaderboardService(pool)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	ctx := context.Background()
	stamp := time.Now().Format("20060102150405")
	firstClerkID := "user_test_tie_a_" + stamp
	secondClerkID := "user_test_tie_b_" + stamp

	signup := func(clerkID string) {
		payload := helpers.MockClerkWebhookPayload("user.created", clerkID)
		req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(payload))
		rr := httptest.NewRecorder()
		webhookHandler.HandleClerkWebhook(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	// The first account is created before the second, which decides the
	// display order between them.
	signup(firstClerkID)
	time.Sleep(10 * time.Millisecond)
	signup(secondClerkID)

	// One scan each unlocks First Scan for both: identical scores.
	for _, clerkID := range []string{firstClerkID, secondClerkID} {
		_, err := scanService.RecordScan(ctx, clerkID, &scan.RecordScanRequest{
			HealthScore: 80,
			IsHealthy:   true,
		})
		require.NoError(t, err)
	}

	firstUser, err := userService.GetUserByClerkID(ctx, firstClerkID)
	require.NoError(t, err)
	secondUser, err := userService.GetUserByClerkID(ctx, secondClerkID)
	require.NoError(t, err)

	find := func(lb *leaderboard.Leaderboard) (firstIdx, secondIdx int, first, second *leaderboard.LeaderboardEntry) {
		firstIdx, secondIdx = -1, -1
		for i, e := range lb.Entries {
			switch e.UserID {
			case firstUser.ID:
				firstIdx, first = i, e
			case secondUser.ID:
				secondIdx, second = i, e
			}
		}
		return firstIdx, secondIdx, first, second
	}

	var prevFirstIdx, prevSecondIdx int
	for round := 0; round < 3; round++ {
		lb, err := leaderboardService.GetLeaderboard(ctx, firstClerkID, 100)
		require.NoError(t, err)

		firstIdx, secondIdx, first, second := find(lb)
		require.NotEqual(t, -1, firstIdx, "round %d: first user missing from leaderboard", round)
		require.NotEqual(t, -1, secondIdx, "round %d: second user missing from leaderboard", round)

		assert.Equal(t, first.Score, second.Score, "both users should hold identical scores")
		assert.Equal(t, first.Rank, second.Rank, "equal scores share a dense rank")
		assert.Less(t, firstIdx, secondIdx, "earlier account lists first on a tie")

		if round > 0 {
			assert.Equal(t, prevFirstIdx, firstIdx, "ordering must not reshuffle across requests")
			assert.Equal(t, prevSecondIdx, secondIdx, "ordering must not reshuffle across requests")
		}
		prevFirstIdx, prevSecondIdx = firstIdx, secondIdx
	}
}
