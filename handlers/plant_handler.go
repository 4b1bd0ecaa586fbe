package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"plantPalAPI/internal/plant"
	"plantPalAPI/middleware"
	"plantPalAPI/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type PlantHandler struct {
	plantService *services.PlantService
}

func NewPlantHandler(plantService *services.PlantService) *PlantHandler {
	return &PlantHandler{
		plantService: plantService,
	}
}

func (h *PlantHandler) AddPlant(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req plant.CreatePlantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		respondWithError(w, http.StatusBadRequest, "name is required")
		return
	}

	p, err := h.plantService.AddPlant(ctx, clerkID, &req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, p)
}

func (h *PlantHandler) GetPlants(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	plants, err := h.plantService.ListPlants(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if plants == nil {
		plants = []*plant.Plant{}
	}
	respondWithJSON(w, http.StatusOK, plants)
}

func (h *PlantHandler) GetPlant(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	plantID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid plant ID")
		return
	}

	p, err := h.plantService.GetPlant(ctx, clerkID, plantID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Plant not found")
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

func (h *PlantHandler) UpdatePlant(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	plantID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid plant ID")
		return
	}

	var req plant.UpdatePlantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.plantService.UpdatePlant(ctx, clerkID, plantID, &req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

func (h *PlantHandler) DeletePlant(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	plantID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid plant ID")
		return
	}

	if err := h.plantService.DeletePlant(ctx, clerkID, plantID); err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Plant deleted successfully"})
}
