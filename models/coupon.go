package models

import (
	"math"
	"time"
)

const (
	CouponPercentage = "percentage"
	CouponFixed      = "fixed"
)

type Coupon struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	RestaurantID      uint      `gorm:"not null;uniqueIndex:idx_coupons_code_restaurant" json:"restaurant_id"`
	Code              string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_coupons_code_restaurant" json:"code"`
	Type              string    `gorm:"type:varchar(20);not null" json:"type"`
	Value             float64   `gorm:"type:decimal(10,2);not null" json:"value"`
	MinOrderAmount    float64   `gorm:"type:decimal(10,2);not null;default:0" json:"min_order_amount"`
	MaxDiscountAmount *float64  `gorm:"type:decimal(10,2)" json:"max_discount_amount,omitempty"`
	ValidFrom         time.Time `gorm:"not null" json:"valid_from"`
	ValidTo           time.Time `gorm:"not null" json:"valid_to"`
	UsageLimit        *int      `json:"usage_limit,omitempty"` // nil means unlimited
	UsedCount         int       `gorm:"not null;default:0" json:"used_count"`
	PerUserLimit      int       `gorm:"not null;default:1" json:"per_user_limit"`
	Active            bool      `gorm:"not null;default:true" json:"active"`
	Description       string    `gorm:"type:varchar(255)" json:"description,omitempty"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null" json:"updated_at"`
}

// CouponUsage is the append-only redemption log, keyed by the customer
// identifier (phone number for anonymous QR orders).
type CouponUsage struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	CouponID uint      `gorm:"not null;index" json:"coupon_id"`
	UserKey  string    `gorm:"type:varchar(100);not null;index" json:"user_key"`
	UsedAt   time.Time `gorm:"not null" json:"used_at"`
}

// EligibilityErr explains why a coupon cannot be redeemed right now.
type EligibilityErr string

func (e EligibilityErr) Error() string { return string(e) }

// Eligible checks active flag, validity window and the global usage limit.
// The per-user limit needs the usage log and is checked by the caller.
func (cp *Coupon) Eligible(now time.Time) error {
	if !cp.Active {
		return EligibilityErr("coupon is not active")
	}
	if now.Before(cp.ValidFrom) {
		return EligibilityErr("coupon not yet valid")
	}
	if now.After(cp.ValidTo) {
		return EligibilityErr("coupon has expired")
	}
	if cp.UsageLimit != nil && cp.UsedCount >= *cp.UsageLimit {
		return EligibilityErr("coupon usage limit reached")
	}
	return nil
}

// Discount returns the discount for the given order subtotal, rounded to two
// decimal places. Percentage discounts are capped at MaxDiscountAmount when
// set; fixed coupons return the flat value once the minimum is met.
func (cp *Coupon) Discount(subtotal float64) float64 {
	if subtotal < cp.MinOrderAmount {
		return 0
	}
	if cp.Type == CouponPercentage {
		discount := subtotal * cp.Value / 100
		if cp.MaxDiscountAmount != nil && discount > *cp.MaxDiscountAmount {
			discount = *cp.MaxDiscountAmount
		}
		return math.Round(discount*100) / 100
	}
	return cp.Value
}
