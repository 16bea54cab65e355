package services

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mesafacil/mesafacil-api/models"
	"github.com/mesafacil/mesafacil-api/pricing"
	"github.com/mesafacil/mesafacil-api/qrtoken"
	"github.com/mesafacil/mesafacil-api/realtime"
	"github.com/mesafacil/mesafacil-api/utils"
)

// OrderCommand is the single normalized input of order creation. Public and
// staff requests are adapted into it at the controller boundary so the
// orchestrator itself carries no transport-specific branching.
type OrderCommand struct {
	RestaurantID  uint
	TableID       uint
	Items         []pricing.CartLine
	CustomerName  string
	Phone         string
	PaymentMethod string
	Notes         string
	CouponCode    string
	OrderType     string // dine-in when empty
	Token         string // required unless Staff
	Staff         bool
	ActorID       *uint // staff user placing the order, nil for public
	SessionID     *uint // reuse a known session instead of acquiring one
}

// CreateResult is what both entry modes get back; controllers trim it to
// their payload shape.
type CreateResult struct {
	Order         *models.Order
	TableNumber   int
	CouponApplied bool
}

// OrderService composes token validation, pricing, session acquisition,
// persistence and side-effect fan-out into the one order-creation use case.
type OrderService struct {
	DB       *gorm.DB
	Codec    *qrtoken.Codec
	Sessions *TableSessionService
	Hub      *realtime.Hub
	Notifier Notifier
}

func NewOrderService(db *gorm.DB, codec *qrtoken.Codec, sessions *TableSessionService, hub *realtime.Hub, notifier Notifier) *OrderService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &OrderService{DB: db, Codec: codec, Sessions: sessions, Hub: hub, Notifier: notifier}
}

// Create runs the full order pipeline. Every precondition failure raises a
// typed AppError and nothing downstream of it executes; no partial order is
// ever persisted.
func (s *OrderService) Create(cmd OrderCommand) (*CreateResult, error) {
	if cmd.RestaurantID == 0 || cmd.TableID == 0 || len(cmd.Items) == 0 {
		return nil, utils.NewAppError(http.StatusBadRequest, "missing_fields", "Order data is incomplete")
	}
	if cmd.OrderType == "" {
		cmd.OrderType = models.OrderTypeDineIn
	}
	switch cmd.OrderType {
	case models.OrderTypeDineIn, models.OrderTypeTakeaway, models.OrderTypeDelivery:
	default:
		return nil, utils.NewAppError(http.StatusBadRequest, "invalid_order_type", "Unknown order type")
	}

	if !cmd.Staff {
		if !s.Codec.ValidateTableToken(cmd.Token, cmd.RestaurantID, cmd.TableID, 0) {
			return nil, utils.NewAppError(http.StatusForbidden, "invalid_token", "Invalid token, please scan the QR code again")
		}
	}

	var restaurant models.Restaurant
	if err := s.DB.Preload("Subscription").First(&restaurant, cmd.RestaurantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewAppError(http.StatusForbidden, "restaurant_unavailable", "Restaurant is not available right now")
		}
		return nil, err
	}
	if !restaurant.Active {
		return nil, utils.NewAppError(http.StatusForbidden, "restaurant_unavailable", "Restaurant is not available right now")
	}
	// Maintenance blocks the public channel only. Staff keep ordering so the
	// floor can still work the tables while the menu is offline.
	if !cmd.Staff && restaurant.Settings.Maintenance {
		return nil, utils.NewAppError(http.StatusForbidden, "restaurant_unavailable", "Restaurant is not available right now")
	}
	if restaurant.Subscription == nil || !restaurant.Subscription.Usable() {
		return nil, utils.NewAppError(http.StatusForbidden, "subscription_expired", "Orders cannot be placed right now")
	}

	var table models.Table
	if err := s.DB.First(&table, cmd.TableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errTableNotFound
		}
		return nil, err
	}
	if table.Status == models.TableStatusClosed {
		return nil, utils.NewAppError(http.StatusBadRequest, "table_closed", "This table is closed")
	}
	if table.Status == models.TableStatusCleaning && !cmd.Staff {
		return nil, utils.NewAppError(http.StatusBadRequest, "table_cleaning", "This table is being cleaned, please wait")
	}
	if table.RestaurantID != cmd.RestaurantID {
		return nil, utils.NewAppError(http.StatusBadRequest, "table_mismatch", "Table does not belong to this restaurant")
	}

	menu, err := s.loadMenuItems(cmd.RestaurantID, cmd.Items)
	if err != nil {
		return nil, err
	}

	coupon := s.resolveCoupon(cmd.RestaurantID, cmd.CouponCode, cmd.Phone)

	// The flat tenant fee applies to delivery orders only.
	var deliveryFee float64
	if cmd.OrderType == models.OrderTypeDelivery {
		deliveryFee = restaurant.Settings.DeliveryFee
	}

	breakdown, err := pricing.Price(cmd.Items, menu, pricing.Options{
		TaxRate:           restaurant.Settings.TaxRate,
		ServiceChargeRate: restaurant.Settings.ServiceChargeRate,
		DeliveryFee:       deliveryFee,
		Coupon:            coupon,
	})
	if err != nil {
		return nil, err
	}

	// Redeem before persisting: a concurrent redemption exhausting the limit
	// drops the discount rather than overshooting it.
	if breakdown.CouponApplied && !s.redeemCoupon(coupon, cmd.Phone) {
		breakdown, err = pricing.Price(cmd.Items, menu, pricing.Options{
			TaxRate:           restaurant.Settings.TaxRate,
			ServiceChargeRate: restaurant.Settings.ServiceChargeRate,
			DeliveryFee:       deliveryFee,
		})
		if err != nil {
			return nil, err
		}
		coupon = nil
	}

	session, err := s.acquireSession(cmd, &table)
	if err != nil {
		if coupon != nil && breakdown.CouponApplied {
			s.refundCoupon(coupon, cmd.Phone)
		}
		return nil, err
	}

	eta := time.Now().Add(time.Duration(pricing.MaxETA(breakdown.Lines)) * time.Minute)

	order := models.Order{
		OrderNumber:        uuid.NewString(),
		RestaurantID:       cmd.RestaurantID,
		TableID:            table.ID,
		TableSessionID:     session,
		TableNumber:        table.Number,
		Subtotal:           breakdown.Subtotal,
		Tax:                breakdown.Tax,
		ServiceCharge:      breakdown.ServiceCharge,
		DeliveryFee:        breakdown.DeliveryFee,
		Discount:           breakdown.Discount,
		Total:              breakdown.Total,
		Status:             models.OrderPending,
		OrderType:          cmd.OrderType,
		CustomerName:       cmd.CustomerName,
		Phone:              cmd.Phone,
		PaymentMethod:      cmd.PaymentMethod,
		Notes:              cmd.Notes,
		EstimatedReadyTime: &eta,
		Source:             models.OrderSourceQRMenu,
	}
	if cmd.Staff {
		order.Source = models.OrderSourceWaiter
	}
	if breakdown.CouponApplied {
		order.CouponCode = strings.ToUpper(cmd.CouponCode)
	}
	if order.CustomerName == "" {
		order.CustomerName = "Cliente"
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = "pending"
	}
	for _, line := range breakdown.Lines {
		order.Items = append(order.Items, models.OrderItem{
			MenuItemID:     line.MenuItemID,
			Name:           line.Name,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			Customizations: line.Customizations,
			Subtotal:       line.Subtotal,
		})
	}

	if err := s.DB.Create(&order).Error; err != nil {
		if coupon != nil && breakdown.CouponApplied {
			s.refundCoupon(coupon, cmd.Phone)
		}
		return nil, err
	}

	// Everything below is best-effort: the order is committed, failures are
	// logged and swallowed.
	s.bumpOrderCounts(breakdown.Lines)
	s.upsertAudience(cmd.RestaurantID, cmd.Phone)
	s.Notifier.NotifyNewOrder(&order)
	s.broadcastNewOrder(&order)

	return &CreateResult{
		Order:         &order,
		TableNumber:   table.Number,
		CouponApplied: breakdown.CouponApplied,
	}, nil
}

// loadMenuItems resolves all cart lines in one batch query, scoped to the
// tenant so foreign item ids read as not-found.
func (s *OrderService) loadMenuItems(restaurantID uint, lines []pricing.CartLine) (map[uint]models.MenuItem, error) {
	ids := make([]uint, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.MenuItemID)
	}

	var items []models.MenuItem
	if err := s.DB.Where("restaurant_id = ? AND id IN ?", restaurantID, ids).Find(&items).Error; err != nil {
		return nil, err
	}

	menu := make(map[uint]models.MenuItem, len(items))
	for _, item := range items {
		menu[item.ID] = item
	}
	return menu, nil
}

// resolveCoupon looks up and checks an optional coupon code. Any failure here
// is non-fatal to the order: the customer simply gets no discount and the
// response flags couponApplied=false.
func (s *OrderService) resolveCoupon(restaurantID uint, code, userKey string) *models.Coupon {
	if code == "" {
		return nil
	}

	var coupon models.Coupon
	err := s.DB.Where("restaurant_id = ? AND code = ?", restaurantID, strings.ToUpper(code)).First(&coupon).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorLogger.Printf("coupon %q lookup: %v", code, err)
		}
		return nil
	}

	if err := coupon.Eligible(time.Now()); err != nil {
		utils.ErrorLogger.Printf("coupon %q rejected: %v", coupon.Code, err)
		return nil
	}

	if userKey != "" && coupon.PerUserLimit > 0 {
		var used int64
		s.DB.Model(&models.CouponUsage{}).Where("coupon_id = ? AND user_key = ?", coupon.ID, userKey).Count(&used)
		if used >= int64(coupon.PerUserLimit) {
			utils.ErrorLogger.Printf("coupon %q rejected: per-user limit reached for %s", coupon.Code, userKey)
			return nil
		}
	}

	return &coupon
}

// redeemCoupon claims one use with a conditional increment so the global
// usage limit cannot be overshot by concurrent orders.
func (s *OrderService) redeemCoupon(coupon *models.Coupon, userKey string) bool {
	res := s.DB.Model(&models.Coupon{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", coupon.ID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		utils.ErrorLogger.Printf("coupon %q redeem: %v", coupon.Code, res.Error)
		return false
	}
	if res.RowsAffected == 0 {
		return false
	}

	usage := models.CouponUsage{CouponID: coupon.ID, UserKey: userKey, UsedAt: time.Now()}
	if err := s.DB.Create(&usage).Error; err != nil {
		utils.ErrorLogger.Printf("coupon %q usage log: %v", coupon.Code, err)
	}
	return true
}

// refundCoupon undoes a redemption when order persistence failed after the
// coupon was already claimed.
func (s *OrderService) refundCoupon(coupon *models.Coupon, userKey string) {
	if err := s.DB.Model(&models.Coupon{}).
		Where("id = ? AND used_count > 0", coupon.ID).
		UpdateColumn("used_count", gorm.Expr("used_count - 1")).Error; err != nil {
		utils.ErrorLogger.Printf("coupon %q refund: %v", coupon.Code, err)
	}
	s.DB.Where("coupon_id = ? AND user_key = ?", coupon.ID, userKey).
		Order("used_at DESC").Limit(1).Delete(&models.CouponUsage{})
}

// acquireSession reuses a caller-supplied session, the table's current one,
// or occupies the table.
func (s *OrderService) acquireSession(cmd OrderCommand, table *models.Table) (uint, error) {
	if cmd.SessionID != nil {
		return *cmd.SessionID, nil
	}
	if table.Status == models.TableStatusOccupied && table.CurrentSessionID != nil {
		return *table.CurrentSessionID, nil
	}
	session, err := s.Sessions.Occupy(table.ID, cmd.ActorID, cmd.RestaurantID)
	if err != nil {
		return 0, err
	}
	return session.ID, nil
}

// bumpOrderCounts increments the popularity counter of each ordered item in
// one batch. Runs only after the order is committed so a failed order never
// inflates counts.
func (s *OrderService) bumpOrderCounts(lines []pricing.PricedLine) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			if err := tx.Model(&models.MenuItem{}).
				Where("id = ?", line.MenuItemID).
				UpdateColumn("order_count", gorm.Expr("order_count + ?", line.Quantity)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.ErrorLogger.Printf("order count update: %v", err)
	}
}

// upsertAudience maintains the per-restaurant CRM record for the phone that
// placed the order.
func (s *OrderService) upsertAudience(restaurantID uint, phone string) {
	if phone == "" {
		return
	}
	now := time.Now()
	err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "restaurant_id"}, {Name: "phone"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"visits":     gorm.Expr("visits + 1"),
			"last_visit": now,
		}),
	}).Create(&models.Audience{
		RestaurantID: restaurantID,
		Phone:        phone,
		Visits:       1,
		LastVisit:    now,
	}).Error
	if err != nil {
		utils.ErrorLogger.Printf("audience upsert for %s: %v", phone, err)
	}
}

func (s *OrderService) broadcastNewOrder(order *models.Order) {
	if s.Hub == nil {
		return
	}
	s.Hub.Broadcast(order.RestaurantID, realtime.EventOrderNew, map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"table_number": order.TableNumber,
		"total":        order.Total,
		"customer":     order.CustomerName,
		"items_count":  len(order.Items),
		"source":       order.Source,
		"status":       order.Status,
	})
	s.Hub.Broadcast(order.RestaurantID, realtime.EventOrderNewFull, order)
}

// UpdateStatus advances an order along its lifecycle on behalf of staff and
// appends to the order's status history.
func (s *OrderService) UpdateStatus(orderID uint, next string, actorID *uint) (*models.Order, error) {
	var order models.Order
	if err := s.DB.Preload("Items").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewAppError(http.StatusNotFound, "order_not_found", "Order not found")
		}
		return nil, err
	}

	if !models.CanTransitionTo(order.Status, next) {
		return nil, utils.NewAppError(http.StatusBadRequest, "invalid_transition",
			"Order cannot move from "+order.Status+" to "+next)
	}

	order.Status = next
	if next == models.OrderCompleted {
		now := time.Now()
		order.CompletedAt = &now
	}
	if err := s.DB.Save(&order).Error; err != nil {
		return nil, err
	}

	log := models.OrderStatusLog{OrderID: order.ID, Status: next, UpdatedBy: actorID, CreatedAt: time.Now()}
	if err := s.DB.Create(&log).Error; err != nil {
		utils.ErrorLogger.Printf("order %d: append status log: %v", order.ID, err)
	}

	if s.Hub != nil {
		s.Hub.Broadcast(order.RestaurantID, realtime.EventOrderStatus, map[string]interface{}{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"status":       order.Status,
		})
	}
	return &order, nil
}
