package models

import "time"

const (
	SubscriptionActive    = "active"
	SubscriptionTrial     = "trial"
	SubscriptionExpired   = "expired"
	SubscriptionSuspended = "suspended"
	SubscriptionCancelled = "cancelled"
)

type Subscription struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	RestaurantID       uint      `gorm:"not null;uniqueIndex" json:"restaurant_id"`
	Plan               string    `gorm:"type:varchar(50);not null;default:'basic'" json:"plan"`
	Status             string    `gorm:"type:varchar(20);not null;default:'trial'" json:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null" json:"updated_at"`
}

// Usable reports whether the subscription still entitles the tenant to take
// orders. Trials count as usable until their period lapses.
func (s *Subscription) Usable() bool {
	return s.Status == SubscriptionActive || s.Status == SubscriptionTrial
}
