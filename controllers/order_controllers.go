package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mesafacil/mesafacil-api/models"
	"github.com/mesafacil/mesafacil-api/pricing"
	"github.com/mesafacil/mesafacil-api/services"
	"github.com/mesafacil/mesafacil-api/utils"
)

type OrderController struct {
	DB     *gorm.DB
	Orders *services.OrderService
}

func NewOrderController(db *gorm.DB, orders *services.OrderService) *OrderController {
	return &OrderController{DB: db, Orders: orders}
}

// PublicOrderRequest is the shape submitted from the QR menu.
type PublicOrderRequest struct {
	Restaurant    uint               `json:"restaurant" binding:"required"`
	Table         uint               `json:"table" binding:"required"`
	Items         []pricing.CartLine `json:"items" binding:"required"`
	CustomerName  string             `json:"customerName"`
	Phone         string             `json:"phone"`
	PaymentMethod string             `json:"paymentMethod"`
	Notes         string             `json:"notes"`
	CouponCode    string             `json:"couponCode"`
	OrderType     string             `json:"orderType"`
	Token         string             `json:"token" binding:"required"`
}

// StaffOrderRequest is the shape submitted from the waiter UI.
type StaffOrderRequest struct {
	TableID       uint               `json:"table_id" binding:"required"`
	Items         []pricing.CartLine `json:"items" binding:"required"`
	CustomerName  string             `json:"customer_name"`
	Phone         string             `json:"phone"`
	PaymentMethod string             `json:"payment_method"`
	Notes         string             `json:"notes"`
	CouponCode    string             `json:"coupon_code"`
	OrderType     string             `json:"order_type"`
	SessionID     *uint              `json:"session_id"`
}

// CreatePublicOrder handles anonymous orders from a scanned table.
func (oc *OrderController) CreatePublicOrder(c *gin.Context) {
	var req PublicOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	result, err := oc.Orders.Create(services.OrderCommand{
		RestaurantID:  req.Restaurant,
		TableID:       req.Table,
		Items:         req.Items,
		CustomerName:  req.CustomerName,
		Phone:         req.Phone,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		CouponCode:    req.CouponCode,
		OrderType:     req.OrderType,
		Token:         req.Token,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Printf("Order %s created for table %d (public)", result.Order.OrderNumber, result.TableNumber)
	utils.RespondJSON(c, http.StatusCreated, "Order placed successfully", gin.H{
		"order": gin.H{
			"id":           result.Order.ID,
			"order_number": result.Order.OrderNumber,
			"status":       result.Order.Status,
			"total":        result.Order.Total,
			"table_number": result.TableNumber,
		},
		"coupon_applied":       result.CouponApplied,
		"estimated_ready_time": result.Order.EstimatedReadyTime,
	})
}

// CreateStaffOrder handles orders placed by authenticated staff; the table
// token check is skipped and the full order object is returned.
func (oc *OrderController) CreateStaffOrder(c *gin.Context) {
	var req StaffOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	userID := c.GetUint("userID")
	restaurantID := c.GetUint("restaurantID")

	result, err := oc.Orders.Create(services.OrderCommand{
		RestaurantID:  restaurantID,
		TableID:       req.TableID,
		Items:         req.Items,
		CustomerName:  req.CustomerName,
		Phone:         req.Phone,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		CouponCode:    req.CouponCode,
		OrderType:     req.OrderType,
		Staff:         true,
		ActorID:       &userID,
		SessionID:     req.SessionID,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Printf("Order %s created for table %d by user %d", result.Order.OrderNumber, result.TableNumber, userID)
	utils.RespondJSON(c, http.StatusCreated, "Order created successfully", gin.H{
		"order":          result.Order,
		"coupon_applied": result.CouponApplied,
	})
}

// GetAllOrders lists the tenant's orders, optionally filtered by status.
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	restaurantID := c.GetUint("restaurantID")

	q := oc.DB.Preload("Items").Where("restaurant_id = ?", restaurantID)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var orders []models.Order
	if err := q.Order("created_at desc").Limit(200).Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// GetOrderByID returns one order with its line items.
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	restaurantID := c.GetUint("restaurantID")
	orderID, err := strconv.ParseUint(c.Param("order_id"), 10, 32)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var order models.Order
	if err := oc.DB.Preload("Items").
		Where("restaurant_id = ?", restaurantID).
		First(&order, uint(orderID)).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// UpdateOrderStatus advances an order along its lifecycle.
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("order_id"), 10, 32)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	userID := c.GetUint("userID")
	order, err := oc.Orders.UpdateStatus(uint(orderID), body.Status, &userID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Printf("Order %d status changed to %s by user %d", order.ID, order.Status, userID)
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}
