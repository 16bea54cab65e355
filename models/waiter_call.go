package models

import "time"

const (
	CallPending      = "pending"
	CallAcknowledged = "acknowledged"
	CallResolved     = "resolved"
)

const (
	CallTypeService = "call"
	CallTypePayment = "payment_request"
)

// WaiterCall is a transient service-bell request tied to a table. At most one
// call in pending or acknowledged state may exist per table.
type WaiterCall struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	RestaurantID   uint       `gorm:"not null;index:idx_calls_restaurant_status" json:"restaurant_id"`
	TableID        uint       `gorm:"not null;index" json:"table_id"`
	WaiterID       *uint      `gorm:"index" json:"waiter_id,omitempty"`
	Type           string     `gorm:"type:varchar(20);not null;default:'call'" json:"type"`
	Status         string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_calls_restaurant_status" json:"status"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy *uint      `json:"acknowledged_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy     *uint      `json:"resolved_by,omitempty"`
	// Snapshot to avoid joins when listing calls.
	TableNumber    int       `json:"table_number"`
	WaiterName     string    `gorm:"type:varchar(255)" json:"waiter_name"`
	RestaurantName string    `gorm:"type:varchar(255)" json:"restaurant_name"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

// IsActive reports whether the call still demands staff attention.
func (w *WaiterCall) IsActive() bool {
	return w.Status == CallPending || w.Status == CallAcknowledged
}
