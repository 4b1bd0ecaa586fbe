package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"plantPalAPI/internal/achievement"
	"plantPalAPI/middleware"
	"plantPalAPI/services"
)

type AchievementHandler struct {
	achievementService *services.AchievementService
}

func NewAchievementHandler(achievementService *services.AchievementService) *AchievementHandler {
	return &AchievementHandler{
		achievementService: achievementService,
	}
}

func (h *AchievementHandler) GetAllAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	achievements, err := h.achievementService.GetAllAchievements(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch achievements")
		return
	}

	respondWithJSON(w, http.StatusOK, achievements)
}

func (h *AchievementHandler) GetUserAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	achievements, err := h.achievementService.GetUserAchievements(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, achievements)
}

func (h *AchievementHandler) GetCompletedAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	achievements, err := h.achievementService.GetCompletedAchievements(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, achievements)
}

func (h *AchievementHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	stats, err := h.achievementService.GetStats(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

// UpdateProgress accepts an absolute metric value from a trusted producer
// and applies it to every live achievement of that type. Calling it twice
// with the same value is a no-op.
func (h *AchievementHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req achievement.ProgressUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.NewValue < 0 {
		respondWithError(w, http.StatusBadRequest, "new_value must be non-negative")
		return
	}

	newlyCompleted, err := h.achievementService.UpdateProgressForClerk(ctx, clerkID, req.AchievementType, req.NewValue)
	if err != nil {
		log.Printf("UpdateProgress Handler: update failed for %s: %v", clerkID, err)
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if newlyCompleted == nil {
		newlyCompleted = []*achievement.Achievement{}
	}
	respondWithJSON(w, http.StatusOK, achievement.ProgressUpdateResponse{NewlyCompleted: newlyCompleted})
}

func (h *AchievementHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	currentStreak, err := h.achievementService.CurrentStreakForClerk(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, achievement.StreakResponse{CurrentStreak: currentStreak})
}

// CheckStreaks recomputes the streak from the scan log and syncs it into
// streak achievement progress. Clients call it on app foreground.
func (h *AchievementHandler) CheckStreaks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	result, err := h.achievementService.CheckStreaks(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
