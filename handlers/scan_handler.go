package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"plantPalAPI/internal/scan"
	"plantPalAPI/middleware"
	"plantPalAPI/services"
)

type ScanHandler struct {
	scanService *services.ScanService
}

func NewScanHandler(scanService *services.ScanService) *ScanHandler {
	return &ScanHandler{
		scanService: scanService,
	}
}

// RecordScan ingests one identification result. The heavy lifting
// (progress, streak, notifications) happens in the service; the handler
// only validates shape.
func (h *ScanHandler) RecordScan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req scan.RecordScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.HealthScore < 0 || req.HealthScore > 100 {
		respondWithError(w, http.StatusBadRequest, "health_score must be between 0 and 100")
		return
	}

	result, err := h.scanService.RecordScan(ctx, clerkID, &req)
	if err != nil {
		log.Printf("RecordScan Handler: failed for %s: %v", clerkID, err)
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

func (h *ScanHandler) GetScans(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	scans, err := h.scanService.ListScans(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if scans == nil {
		scans = []*scan.PlantScan{}
	}
	respondWithJSON(w, http.StatusOK, scans)
}
