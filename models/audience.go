package models

import "time"

// Audience is a lightweight CRM record, one per (restaurant, phone).
type Audience struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RestaurantID uint      `gorm:"not null;uniqueIndex:idx_audience_restaurant_phone" json:"restaurant_id"`
	Phone        string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_audience_restaurant_phone" json:"phone"`
	Visits       int       `gorm:"not null;default:0" json:"visits"`
	LastVisit    time.Time `json:"last_visit"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}
