package services

import (
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/mesafacil/mesafacil-api/models"
	"github.com/mesafacil/mesafacil-api/realtime"
	"github.com/mesafacil/mesafacil-api/utils"
)

// WaiterCallService runs the service-bell state machine:
// pending -> acknowledged -> resolved, with resolve also reachable straight
// from pending. At most one active call exists per table.
type WaiterCallService struct {
	DB  *gorm.DB
	Hub *realtime.Hub

	stop chan struct{}
}

func NewWaiterCallService(db *gorm.DB, hub *realtime.Hub) *WaiterCallService {
	return &WaiterCallService{DB: db, Hub: hub}
}

// Create opens a call for a table. A table with a pending or acknowledged
// call gets a 409 and no new record.
func (s *WaiterCallService) Create(tableID uint, callType string) (*models.WaiterCall, error) {
	if callType == "" {
		callType = models.CallTypeService
	}
	if callType != models.CallTypeService && callType != models.CallTypePayment {
		return nil, utils.NewAppError(http.StatusBadRequest, "invalid_call_type", "Unknown call type")
	}

	var table models.Table
	if err := s.DB.First(&table, tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errTableNotFound
		}
		return nil, err
	}

	var restaurant models.Restaurant
	if err := s.DB.First(&restaurant, table.RestaurantID).Error; err != nil {
		return nil, err
	}

	call := models.WaiterCall{
		RestaurantID: table.RestaurantID,
		TableID:      table.ID,
		WaiterID:     table.AssignedWaiterID,
		Type:         callType,
		Status:       models.CallPending,
		// Snapshot so listing never needs joins.
		TableNumber:    table.Number,
		RestaurantName: restaurant.Name,
		WaiterName:     "Unassigned",
	}
	if table.AssignedWaiterID != nil {
		var waiter models.User
		if err := s.DB.First(&waiter, *table.AssignedWaiterID).Error; err == nil {
			call.WaiterName = waiter.Name
		}
	}
	if err := s.DB.Create(&call).Error; err != nil {
		return nil, err
	}

	// Insert first, then look for an older active call. Two concurrent
	// creates both land, but only the lowest id survives; the loser removes
	// its own row. A count-then-create check would race under REPEATABLE READ.
	var older int64
	err := s.DB.Model(&models.WaiterCall{}).
		Where("table_id = ? AND status IN ? AND id < ?", tableID, []string{models.CallPending, models.CallAcknowledged}, call.ID).
		Count(&older).Error
	if err != nil || older > 0 {
		s.DB.Delete(&models.WaiterCall{}, call.ID)
		if err != nil {
			return nil, err
		}
		return nil, utils.NewAppError(http.StatusConflict, "call_already_active", "There is already an active call for this table")
	}

	if s.Hub != nil {
		s.Hub.Broadcast(table.RestaurantID, realtime.EventWaiterCall, map[string]interface{}{
			"call_id":      call.ID,
			"table_id":     table.ID,
			"table_number": table.Number,
			"waiter_name":  call.WaiterName,
			"type":         call.Type,
			"created_at":   call.CreatedAt,
		})
	}
	return &call, nil
}

// Acknowledge moves a pending call to acknowledged.
func (s *WaiterCallService) Acknowledge(callID uint, actorID uint) (*models.WaiterCall, error) {
	call, err := s.find(callID)
	if err != nil {
		return nil, err
	}
	if call.Status != models.CallPending {
		return nil, utils.NewAppError(http.StatusBadRequest, "call_not_pending", "Call is not pending")
	}

	now := time.Now()
	call.Status = models.CallAcknowledged
	call.AcknowledgedAt = &now
	call.AcknowledgedBy = &actorID
	if err := s.DB.Save(call).Error; err != nil {
		return nil, err
	}

	if s.Hub != nil {
		s.Hub.Broadcast(call.RestaurantID, realtime.EventWaiterCallAck, map[string]interface{}{
			"call_id":         call.ID,
			"acknowledged_by": actorID,
			"acknowledged_at": now,
		})
	}
	return call, nil
}

// Resolve closes a call from pending or acknowledged; resolved is terminal.
func (s *WaiterCallService) Resolve(callID uint, actorID uint) (*models.WaiterCall, error) {
	call, err := s.find(callID)
	if err != nil {
		return nil, err
	}
	if call.Status == models.CallResolved {
		return nil, utils.NewAppError(http.StatusBadRequest, "call_already_resolved", "Call is already resolved")
	}

	now := time.Now()
	call.Status = models.CallResolved
	call.ResolvedAt = &now
	call.ResolvedBy = &actorID
	if err := s.DB.Save(call).Error; err != nil {
		return nil, err
	}

	if s.Hub != nil {
		s.Hub.Broadcast(call.RestaurantID, realtime.EventWaiterCallResolve, map[string]interface{}{
			"call_id":     call.ID,
			"resolved_by": actorID,
			"resolved_at": now,
		})
	}
	return call, nil
}

// Active lists a restaurant's open calls, oldest first for priority.
func (s *WaiterCallService) Active(restaurantID uint) ([]models.WaiterCall, error) {
	var calls []models.WaiterCall
	err := s.DB.
		Where("restaurant_id = ? AND status IN ?", restaurantID, []string{models.CallPending, models.CallAcknowledged}).
		Order("created_at asc").
		Find(&calls).Error
	return calls, err
}

// History lists recent calls regardless of state.
func (s *WaiterCallService) History(restaurantID uint, limit int) ([]models.WaiterCall, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var calls []models.WaiterCall
	err := s.DB.
		Where("restaurant_id = ?", restaurantID).
		Order("created_at desc").
		Limit(limit).
		Find(&calls).Error
	return calls, err
}

func (s *WaiterCallService) find(callID uint) (*models.WaiterCall, error) {
	var call models.WaiterCall
	if err := s.DB.First(&call, callID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewAppError(http.StatusNotFound, "call_not_found", "Call not found")
		}
		return nil, err
	}
	return &call, nil
}

// CleanupOldCalls deletes resolved calls older than the retention window.
func (s *WaiterCallService) CleanupOldCalls(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res := s.DB.Where("status = ? AND resolved_at < ?", models.CallResolved, cutoff).Delete(&models.WaiterCall{})
	return res.RowsAffected, res.Error
}

// StartCleanup purges resolved calls older than 24h once an hour until Stop.
func (s *WaiterCallService) StartCleanup() {
	s.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := s.CleanupOldCalls(24 * time.Hour); err != nil {
					utils.ErrorLogger.Printf("waiter call cleanup: %v", err)
				} else if n > 0 {
					utils.InfoLogger.Printf("waiter call cleanup: purged %d resolved calls", n)
				}
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *WaiterCallService) Stop() {
	if s.stop != nil {
		close(s.stop)
	}
}
