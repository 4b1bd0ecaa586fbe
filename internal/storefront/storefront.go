package storefront

import (
	"time"

	"github.com/google/uuid"
)

// CouponTiers maps discount percent to its fixed coin price. Purchases
// with any other combination are rejected.
var CouponTiers = map[int]int{
	5:  50,
	10: 100,
	20: 150,
}

// ValidTier reports whether the discount/cost pair is a known tier.
func ValidTier(discountPercent, costCoins int) bool {
	cost, ok := CouponTiers[discountPercent]
	return ok && cost == costCoins
}

// CouponExpiry is how long a purchased coupon stays redeemable.
const CouponExpiry = 30 * 24 * time.Hour

// CodeLength is the length of generated redemption codes.
const CodeLength = 12

type Coupon struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	UserID          uuid.UUID  `json:"user_id" db:"user_id"`
	StoreID         string     `json:"store_id" db:"store_id"`
	StoreName       string     `json:"store_name" db:"store_name"`
	DiscountPercent int        `json:"discount_percent" db:"discount_percent"`
	CostCoins       int        `json:"cost_coins" db:"cost_coins"`
	Code            string     `json:"code" db:"code"`
	Redeemed        bool       `json:"redeemed" db:"redeemed"`
	Expired         bool       `json:"expired" db:"expired"`
	ExpiresAt       *time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

type PurchaseRequest struct {
	StoreID         string `json:"store_id" validate:"required"`
	StoreName       string `json:"store_name" validate:"required"`
	DiscountPercent int    `json:"discount_percent"`
	CostCoins       int    `json:"cost_coins"`
}

type PurchaseResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Coupon  *Coupon `json:"coupon,omitempty"`
}
