package models

import "time"

const (
	TableStatusFree     = "free"
	TableStatusOccupied = "occupied"
	TableStatusReserved = "reserved"
	TableStatusCleaning = "cleaning"
	TableStatusClosed   = "closed"
)

type Table struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	RestaurantID     uint      `gorm:"not null;index" json:"restaurant_id"`
	Number           int       `gorm:"not null" json:"number"`
	Capacity         int       `gorm:"not null;default:4" json:"capacity"`
	Location         string    `gorm:"type:varchar(100)" json:"location"`
	Status           string    `gorm:"type:varchar(20);not null;default:'free'" json:"status"`
	NumericCode      string    `gorm:"type:varchar(6);uniqueIndex" json:"numeric_code"`
	CurrentSessionID *uint     `gorm:"index" json:"current_session_id"`
	AssignedWaiterID *uint     `gorm:"index" json:"assigned_waiter_id,omitempty"`
	LastStatusChange time.Time `json:"last_status_change"`
	StatusChangedBy  *uint     `json:"status_changed_by,omitempty"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

// TableStatusLog is the append-only audit trail of table transitions.
type TableStatusLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TableID        uint      `gorm:"not null;index" json:"table_id"`
	Status         string    `gorm:"type:varchar(20);not null" json:"status"`
	PreviousStatus string    `gorm:"type:varchar(20)" json:"previous_status"`
	ChangedBy      *uint     `json:"changed_by,omitempty"`
	Reason         string    `gorm:"type:varchar(255)" json:"reason"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
}

// ValidTableStatus reports whether s is one of the known table states.
func ValidTableStatus(s string) bool {
	switch s {
	case TableStatusFree, TableStatusOccupied, TableStatusReserved, TableStatusCleaning, TableStatusClosed:
		return true
	}
	return false
}
