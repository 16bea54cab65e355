package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CustomizationOption is a configurable choice on a menu item, e.g. "Size".
type CustomizationOption struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // single | multiple
	Required bool   `json:"required"`
	Choices  []struct {
		Name          string  `json:"name"`
		PriceModifier float64 `json:"price_modifier"`
	} `json:"choices"`
}

// CustomizationOptions is stored as a JSON text column.
type CustomizationOptions []CustomizationOption

func (o CustomizationOptions) Value() (driver.Value, error) {
	if o == nil {
		return "[]", nil
	}
	b, err := json.Marshal(o)
	return string(b), err
}

func (o *CustomizationOptions) Scan(value interface{}) error {
	if value == nil {
		*o = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	}
	return fmt.Errorf("unsupported customization options column type %T", value)
}

type MenuItem struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	RestaurantID uint    `gorm:"not null;index:idx_menu_restaurant_category" json:"restaurant_id"`
	Name         string  `gorm:"type:varchar(255);not null" json:"name"`
	Description  string  `gorm:"type:text" json:"description"`
	Category     string  `gorm:"type:varchar(100);index:idx_menu_restaurant_category" json:"category"`
	Price        float64 `gorm:"type:decimal(10,2);not null" json:"price"`
	Photo        string  `gorm:"type:varchar(255)" json:"photo"`
	// No column default here: GORM omits zero values for defaulted columns
	// on insert, which would turn Available:false into available rows.
	// Callers set the default explicitly.
	Available  bool                 `gorm:"not null" json:"available"`
	ETA        int                  `gorm:"not null;default:15" json:"eta"` // minutes to prepare
	Options    CustomizationOptions `gorm:"type:text" json:"options"`
	Popular    bool                 `gorm:"not null;default:false" json:"popular"`
	OrderCount int                  `gorm:"not null;default:0" json:"order_count"`
	CreatedAt  time.Time            `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time            `gorm:"not null" json:"updated_at"`
}
