package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Customization is one selected option on an ordered item, snapshotted with
// its price modifier at order time.
type Customization struct {
	OptionName    string  `json:"option_name"`
	SelectedValue string  `json:"selected_value"`
	PriceModifier float64 `json:"price_modifier"`
}

// Customizations is stored as a JSON text column on the order item.
type Customizations []Customization

func (cs Customizations) Value() (driver.Value, error) {
	if cs == nil {
		return "[]", nil
	}
	b, err := json.Marshal(cs)
	return string(b), err
}

func (cs *Customizations) Scan(value interface{}) error {
	if value == nil {
		*cs = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, cs)
	case string:
		return json.Unmarshal([]byte(v), cs)
	}
	return fmt.Errorf("unsupported customizations column type %T", value)
}

// OrderItem is a priced line snapshot. UnitPrice and Subtotal are copied from
// the menu at creation time so historic orders survive later price edits.
type OrderItem struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OrderID        uint           `gorm:"not null;index" json:"order_id"`
	MenuItemID     uint           `gorm:"not null;index" json:"menu_item_id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	Quantity       int            `gorm:"not null" json:"quantity"`
	UnitPrice      float64        `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Customizations Customizations `gorm:"type:text" json:"customizations"`
	Subtotal       float64        `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}
