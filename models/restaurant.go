package models

import "time"

// RestaurantSettings holds the per-tenant knobs that shape pricing and the
// public menu. Embedded into Restaurant with a column prefix.
type RestaurantSettings struct {
	TaxRate           float64 `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"`
	ServiceChargeRate float64 `gorm:"type:decimal(5,2);not null;default:0" json:"service_charge_rate"`
	DeliveryFee       float64 `gorm:"type:decimal(10,2);not null;default:0" json:"delivery_fee"`
	Currency          string  `gorm:"type:varchar(10);not null;default:'MZN'" json:"currency"`
	Maintenance       bool    `gorm:"not null;default:false" json:"maintenance"`
	MaintenanceNote   string  `gorm:"type:varchar(255)" json:"maintenance_note,omitempty"`
}

type Restaurant struct {
	ID           uint               `gorm:"primaryKey" json:"id"`
	Name         string             `gorm:"type:varchar(150);not null" json:"name"`
	Slug         string             `gorm:"type:varchar(150);uniqueIndex" json:"slug"`
	Email        string             `gorm:"type:varchar(150)" json:"email"`
	Phone        string             `gorm:"type:varchar(30)" json:"phone"`
	Address      string             `gorm:"type:varchar(255)" json:"address"`
	LogoURL      string             `gorm:"type:varchar(255)" json:"logo_url,omitempty"`
	Active       bool               `gorm:"not null;default:true" json:"active"`
	Settings     RestaurantSettings `gorm:"embedded;embeddedPrefix:settings_" json:"settings"`
	Subscription *Subscription      `gorm:"foreignKey:RestaurantID" json:"subscription,omitempty"`
	CreatedAt    time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"not null" json:"updated_at"`
}
