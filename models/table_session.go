package models

import "time"

const (
	SessionActive = "active"
	SessionClosed = "closed"
)

// TableSession is one continuous occupancy period of a table. A table owns
// at most one active session; closed sessions are immutable history.
type TableSession struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	TableID      uint       `gorm:"not null;index:idx_sessions_table_status" json:"table_id"`
	RestaurantID uint       `gorm:"not null;index" json:"restaurant_id"`
	Status       string     `gorm:"type:varchar(20);not null;default:'active';index:idx_sessions_table_status" json:"status"`
	StartedAt    time.Time  `gorm:"not null" json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	StartedBy    *uint      `json:"started_by,omitempty"`
	EndedBy      *uint      `json:"ended_by,omitempty"`
	TotalRevenue float64    `gorm:"type:decimal(10,2);not null;default:0" json:"total_revenue"`
	OrderCount   int        `gorm:"not null;default:0" json:"order_count"`
	Notes        string     `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}
