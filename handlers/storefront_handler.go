package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"plantPalAPI/internal/storefront"
	"plantPalAPI/middleware"
	"plantPalAPI/services"
)

type StorefrontHandler struct {
	storefrontService *services.StorefrontService
}

func NewStorefrontHandler(storefrontService *services.StorefrontService) *StorefrontHandler {
	return &StorefrontHandler{
		storefrontService: storefrontService,
	}
}

func (h *StorefrontHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	balance, err := h.storefrontService.GetBalance(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, balance)
}

func (h *StorefrontHandler) GetCoupons(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	coupons, err := h.storefrontService.ListCoupons(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if coupons == nil {
		coupons = []*storefront.Coupon{}
	}
	respondWithJSON(w, http.StatusOK, coupons)
}

// PurchaseCoupon exchanges coins for a store coupon. An insufficient
// balance is a 200 with success=false, not an error: the client renders
// it inline rather than as a failure toast.
func (h *StorefrontHandler) PurchaseCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req storefront.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.StoreID == "" || req.StoreName == "" {
		respondWithError(w, http.StatusBadRequest, "store_id and store_name are required")
		return
	}

	if !storefront.ValidTier(req.DiscountPercent, req.CostCoins) {
		respondWithError(w, http.StatusBadRequest, "Invalid coupon tier")
		return
	}

	result, err := h.storefrontService.Purchase(ctx, clerkID, &req)
	if err != nil {
		log.Printf("PurchaseCoupon Handler: purchase failed for %s: %v", clerkID, err)
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
