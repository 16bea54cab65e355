package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mesafacil/mesafacil-api/services"
	"github.com/mesafacil/mesafacil-api/utils"
)

type WaiterCallController struct {
	DB    *gorm.DB
	Calls *services.WaiterCallService
}

func NewWaiterCallController(db *gorm.DB, calls *services.WaiterCallService) *WaiterCallController {
	return &WaiterCallController{DB: db, Calls: calls}
}

// CreateCall opens a service-bell request from the customer menu.
func (wc *WaiterCallController) CreateCall(c *gin.Context) {
	var body struct {
		TableID uint   `json:"tableId" binding:"required"`
		Type    string `json:"type"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	call, err := wc.Calls.Create(body.TableID, body.Type)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Printf("Waiter call %d opened for table %d (%s)", call.ID, call.TableID, call.Type)
	utils.RespondJSON(c, http.StatusCreated, "Waiter has been called", call)
}

func (wc *WaiterCallController) callID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("call_id"), 10, 32)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return 0, false
	}
	return uint(id), true
}

// AcknowledgeCall marks a pending call as seen by a staff member.
func (wc *WaiterCallController) AcknowledgeCall(c *gin.Context) {
	callID, ok := wc.callID(c)
	if !ok {
		return
	}

	call, err := wc.Calls.Acknowledge(callID, c.GetUint("userID"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Call acknowledged", call)
}

// ResolveCall closes a call.
func (wc *WaiterCallController) ResolveCall(c *gin.Context) {
	callID, ok := wc.callID(c)
	if !ok {
		return
	}

	call, err := wc.Calls.Resolve(callID, c.GetUint("userID"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Call resolved", call)
}

// GetActiveCalls lists open calls for the staff dashboard, oldest first.
func (wc *WaiterCallController) GetActiveCalls(c *gin.Context) {
	calls, err := wc.Calls.Active(c.GetUint("restaurantID"))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Active calls", calls)
}

// GetCallHistory lists recent calls regardless of state.
func (wc *WaiterCallController) GetCallHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	calls, err := wc.Calls.History(c.GetUint("restaurantID"), limit)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Call history", calls)
}
