package models

import "time"

const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderPreparing = "preparing"
	OrderReady     = "ready"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
)

const (
	OrderSourceQRMenu = "qr-menu"
	OrderSourceWaiter = "waiter"
)

const (
	OrderTypeDineIn   = "dine-in"
	OrderTypeTakeaway = "takeaway"
	OrderTypeDelivery = "delivery"
)

type Order struct {
	ID                 uint        `gorm:"primaryKey" json:"id"`
	OrderNumber        string      `gorm:"type:varchar(36);uniqueIndex;not null" json:"order_number"`
	RestaurantID       uint        `gorm:"not null;index:idx_orders_restaurant_status" json:"restaurant_id"`
	TableID            uint        `gorm:"not null;index" json:"table_id"`
	TableSessionID     uint        `gorm:"not null;index" json:"table_session_id"`
	TableNumber        int         `json:"table_number"`
	Items              []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	Subtotal           float64     `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Tax                float64     `gorm:"type:decimal(10,2);not null;default:0" json:"tax"`
	ServiceCharge      float64     `gorm:"type:decimal(10,2);not null;default:0" json:"service_charge"`
	DeliveryFee        float64     `gorm:"type:decimal(10,2);not null;default:0" json:"delivery_fee"`
	Discount           float64     `gorm:"type:decimal(10,2);not null;default:0" json:"discount"`
	CouponCode         string      `gorm:"type:varchar(50)" json:"coupon_code,omitempty"`
	Total              float64     `gorm:"type:decimal(10,2);not null" json:"total"`
	Status             string      `gorm:"type:varchar(20);not null;default:'pending';index:idx_orders_restaurant_status" json:"status"`
	OrderType          string      `gorm:"type:varchar(20);not null;default:'dine-in'" json:"order_type"`
	Source             string      `gorm:"type:varchar(20);not null;default:'qr-menu'" json:"source"`
	CustomerName       string      `gorm:"type:varchar(255)" json:"customer_name"`
	Phone              string      `gorm:"type:varchar(50);index" json:"phone"`
	PaymentMethod      string      `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_method"`
	Notes              string      `gorm:"type:text" json:"notes,omitempty"`
	EstimatedReadyTime *time.Time  `json:"estimated_ready_time,omitempty"`
	CompletedAt        *time.Time  `json:"completed_at,omitempty"`
	CreatedAt          time.Time   `gorm:"not null;index" json:"created_at"`
	UpdatedAt          time.Time   `gorm:"not null" json:"updated_at"`
}

// OrderStatusLog records staff-driven order lifecycle transitions.
type OrderStatusLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	Status    string    `gorm:"type:varchar(20);not null" json:"status"`
	UpdatedBy *uint     `json:"updated_by,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// nextOrderStatus defines the forward lifecycle. Cancelled is reachable from
// any non-terminal state and is terminal, as is completed.
var nextOrderStatus = map[string]string{
	OrderPending:   OrderConfirmed,
	OrderConfirmed: OrderPreparing,
	OrderPreparing: OrderReady,
	OrderReady:     OrderCompleted,
}

// CanTransitionTo reports whether an order in status from may move to status to.
func CanTransitionTo(from, to string) bool {
	if from == OrderCompleted || from == OrderCancelled {
		return false
	}
	if to == OrderCancelled {
		return true
	}
	return nextOrderStatus[from] == to
}
