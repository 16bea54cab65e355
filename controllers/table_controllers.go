package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mesafacil/mesafacil-api/models"
	"github.com/mesafacil/mesafacil-api/qrtoken"
	"github.com/mesafacil/mesafacil-api/services"
	"github.com/mesafacil/mesafacil-api/utils"
)

type TableController struct {
	DB       *gorm.DB
	Sessions *services.TableSessionService
	Codec    *qrtoken.Codec
}

func NewTableController(db *gorm.DB, sessions *services.TableSessionService, codec *qrtoken.Codec) *TableController {
	return &TableController{DB: db, Sessions: sessions, Codec: codec}
}

func (tc *TableController) tableID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("table_id"), 10, 32)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return 0, false
	}
	return uint(id), true
}

// GetAllTables lists the tenant's tables.
func (tc *TableController) GetAllTables(c *gin.Context) {
	restaurantID := c.GetUint("restaurantID")

	var tables []models.Table
	if err := tc.DB.Where("restaurant_id = ?", restaurantID).Order("number asc").Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// UpdateTableStatus transitions a table through its state machine and logs
// the change.
func (tc *TableController) UpdateTableStatus(c *gin.Context) {
	tableID, ok := tc.tableID(c)
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	userID := c.GetUint("userID")
	table, err := tc.Sessions.UpdateStatus(tableID, body.Status, &userID, body.Reason)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Printf("Table %d status changed to %s by user %d", table.ID, table.Status, userID)
	utils.RespondJSON(c, http.StatusOK, "Table status updated", gin.H{
		"id":                 table.ID,
		"number":             table.Number,
		"status":             table.Status,
		"current_session_id": table.CurrentSessionID,
	})
}

// FreeTable closes the active session and returns the table to free.
func (tc *TableController) FreeTable(c *gin.Context) {
	tableID, ok := tc.tableID(c)
	if !ok {
		return
	}

	userID := c.GetUint("userID")
	table, err := tc.Sessions.Free(tableID, &userID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Printf("Table %d freed by user %d", table.ID, userID)
	utils.RespondJSON(c, http.StatusOK, "Table freed", table)
}

// GetActiveSession returns the table's current session and its orders.
func (tc *TableController) GetActiveSession(c *gin.Context) {
	tableID, ok := tc.tableID(c)
	if !ok {
		return
	}

	var table models.Table
	if err := tc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	if table.CurrentSessionID == nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("table has no active session"))
		return
	}

	var session models.TableSession
	if err := tc.DB.First(&session, *table.CurrentSessionID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var orders []models.Order
	if err := tc.DB.Preload("Items").
		Where("table_session_id = ?", session.ID).
		Order("created_at asc").
		Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Active session", gin.H{
		"session": session,
		"orders":  orders,
	})
}

// GetSessionHistory lists the table's closed sessions, newest first.
func (tc *TableController) GetSessionHistory(c *gin.Context) {
	tableID, ok := tc.tableID(c)
	if !ok {
		return
	}

	limit := 20
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}

	var sessions []models.TableSession
	if err := tc.DB.
		Where("table_id = ? AND status = ?", tableID, models.SessionClosed).
		Order("ended_at desc").
		Limit(limit).
		Find(&sessions).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session history", sessions)
}

// RegenerateQR rotates a table's numeric code and returns a fresh QR URL.
// Old printed QR codes keep working; only the numeric code rotates.
func (tc *TableController) RegenerateQR(c *gin.Context) {
	tableID, ok := tc.tableID(c)
	if !ok {
		return
	}

	restaurantID := c.GetUint("restaurantID")
	var table models.Table
	if err := tc.DB.Where("restaurant_id = ?", restaurantID).First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	code, err := qrtoken.GenerateNumericCode(func(candidate string) (bool, error) {
		var count int64
		if err := tc.DB.Model(&models.Table{}).Where("numeric_code = ?", candidate).Count(&count).Error; err != nil {
			return false, err
		}
		return count > 0, nil
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	table.NumericCode = code
	if err := tc.DB.Save(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Table %d numeric code rotated", table.ID)
	utils.RespondJSON(c, http.StatusOK, "QR access regenerated", gin.H{
		"numeric_code": table.NumericCode,
		"qr_url":       tc.Codec.GenerateQRCodeURL(menuBaseURL(), table.RestaurantID, table.ID),
	})
}
