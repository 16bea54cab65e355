package services

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/mesafacil/mesafacil-api/models"
	"github.com/mesafacil/mesafacil-api/realtime"
	"github.com/mesafacil/mesafacil-api/utils"
)

// TableSessionService owns the table status state machine and the occupancy
// session lifecycle. Occupancy transitions go through conditional updates so
// the at-most-one-active-session invariant holds under concurrent requests.
type TableSessionService struct {
	DB  *gorm.DB
	Hub *realtime.Hub
}

func NewTableSessionService(db *gorm.DB, hub *realtime.Hub) *TableSessionService {
	return &TableSessionService{DB: db, Hub: hub}
}

var errTableNotFound = utils.NewAppError(http.StatusNotFound, "table_not_found", "Table not found")

// Occupy transitions a table to occupied and returns its active session.
// Idempotent: a table already occupied with a live session yields that
// session unchanged. Concurrent callers race on a conditional update keyed on
// the observed CurrentSessionID; losers discard their provisional session and
// adopt the winner's.
func (s *TableSessionService) Occupy(tableID uint, actorID *uint, restaurantID uint) (*models.TableSession, error) {
	var table models.Table
	if err := s.DB.First(&table, tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errTableNotFound
		}
		return nil, err
	}
	if restaurantID != 0 && table.RestaurantID != restaurantID {
		return nil, utils.NewAppError(http.StatusBadRequest, "table_mismatch", "Table does not belong to this restaurant")
	}

	if existing := s.activeSession(&table); existing != nil {
		return existing, nil
	}

	session := models.TableSession{
		TableID:      table.ID,
		RestaurantID: table.RestaurantID,
		Status:       models.SessionActive,
		StartedAt:    time.Now(),
		StartedBy:    actorID,
	}
	if err := s.DB.Create(&session).Error; err != nil {
		return nil, err
	}

	// Flip the table only if nobody else stamped a session since our read.
	q := s.DB.Model(&models.Table{}).Where("id = ?", table.ID)
	if table.CurrentSessionID == nil {
		q = q.Where("current_session_id IS NULL")
	} else {
		q = q.Where("current_session_id = ?", *table.CurrentSessionID)
	}
	res := q.Updates(map[string]interface{}{
		"status":             models.TableStatusOccupied,
		"current_session_id": session.ID,
		"last_status_change": time.Now(),
		"status_changed_by":  actorID,
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the race. Drop the provisional session and reuse the winner's.
		s.DB.Delete(&models.TableSession{}, session.ID)
		if err := s.DB.First(&table, tableID).Error; err != nil {
			return nil, err
		}
		if existing := s.activeSession(&table); existing != nil {
			return existing, nil
		}
		return nil, utils.NewAppError(http.StatusConflict, "table_busy", "Table state changed, please retry")
	}

	s.appendStatusLog(table.ID, models.TableStatusOccupied, table.Status, actorID, "session started")
	s.broadcastTable(table.RestaurantID, table.ID, table.Number, models.TableStatusOccupied)
	return &session, nil
}

// Free closes the active session, computing its revenue and order count, and
// returns the table to free. Valid only from occupied.
func (s *TableSessionService) Free(tableID uint, actorID *uint) (*models.Table, error) {
	var table models.Table
	if err := s.DB.First(&table, tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errTableNotFound
		}
		return nil, err
	}

	if table.Status != models.TableStatusOccupied {
		return nil, utils.NewAppError(http.StatusBadRequest, "table_not_occupied",
			fmt.Sprintf("Table is currently %s, not occupied", table.Status))
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if table.CurrentSessionID != nil {
			var session models.TableSession
			if err := tx.First(&session, *table.CurrentSessionID).Error; err == nil && session.Status == models.SessionActive {
				var stats struct {
					Revenue float64
					Count   int
				}
				if err := tx.Model(&models.Order{}).
					Select("COALESCE(SUM(total), 0) AS revenue, COUNT(*) AS count").
					Where("table_session_id = ? AND status <> ?", session.ID, models.OrderCancelled).
					Scan(&stats).Error; err != nil {
					return err
				}

				now := time.Now()
				session.Status = models.SessionClosed
				session.EndedAt = &now
				session.EndedBy = actorID
				session.TotalRevenue = stats.Revenue
				session.OrderCount = stats.Count
				if err := tx.Save(&session).Error; err != nil {
					return err
				}
			}
		}

		res := tx.Model(&models.Table{}).
			Where("id = ? AND status = ?", table.ID, models.TableStatusOccupied).
			Updates(map[string]interface{}{
				"status":             models.TableStatusFree,
				"current_session_id": nil,
				"last_status_change": time.Now(),
				"status_changed_by":  actorID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.NewAppError(http.StatusConflict, "table_busy", "Table state changed, please retry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.appendStatusLog(table.ID, models.TableStatusFree, models.TableStatusOccupied, actorID, "session closed")
	s.broadcastTable(table.RestaurantID, table.ID, table.Number, models.TableStatusFree)

	if err := s.DB.First(&table, tableID).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

// UpdateStatus is the general staff-driven transition for reserved, cleaning
// and closed states plus manual overrides. Transitions into occupied go
// through Occupy, and every transition out of occupied closes the session
// through Free before the destination status is applied, keeping
// current_session_id tied to the occupied state. Setting the current status
// again is a no-op, not an error.
func (s *TableSessionService) UpdateStatus(tableID uint, next string, actorID *uint, reason string) (*models.Table, error) {
	if !models.ValidTableStatus(next) {
		return nil, utils.NewAppError(http.StatusBadRequest, "invalid_status",
			fmt.Sprintf("Unknown table status: %s", next))
	}

	var table models.Table
	if err := s.DB.First(&table, tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errTableNotFound
		}
		return nil, err
	}

	if table.Status == next {
		return &table, nil
	}

	switch {
	case next == models.TableStatusOccupied:
		if _, err := s.Occupy(tableID, actorID, table.RestaurantID); err != nil {
			return nil, err
		}
	case table.Status == models.TableStatusOccupied:
		// Leaving occupied always closes the session first, whatever the
		// destination, so current_session_id never outlives the status.
		if _, err := s.Free(tableID, actorID); err != nil {
			return nil, err
		}
		if next != models.TableStatusFree {
			if err := s.DB.First(&table, tableID).Error; err != nil {
				return nil, err
			}
			if err := s.setStatus(&table, next, actorID, reason); err != nil {
				return nil, err
			}
		}
	default:
		if err := s.setStatus(&table, next, actorID, reason); err != nil {
			return nil, err
		}
	}

	if err := s.DB.First(&table, tableID).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

// setStatus applies a plain status change with its audit log and broadcast.
// Callers must have routed occupied transitions through Occupy/Free already.
func (s *TableSessionService) setStatus(table *models.Table, next string, actorID *uint, reason string) error {
	previous := table.Status
	table.Status = next
	table.LastStatusChange = time.Now()
	table.StatusChangedBy = actorID
	if err := s.DB.Save(table).Error; err != nil {
		return err
	}
	s.appendStatusLog(table.ID, next, previous, actorID, reason)
	s.broadcastTable(table.RestaurantID, table.ID, table.Number, next)
	return nil
}

// activeSession returns the table's current session when it is still active.
func (s *TableSessionService) activeSession(table *models.Table) *models.TableSession {
	if table.Status != models.TableStatusOccupied || table.CurrentSessionID == nil {
		return nil
	}
	var session models.TableSession
	if err := s.DB.First(&session, *table.CurrentSessionID).Error; err != nil {
		return nil
	}
	if session.Status != models.SessionActive {
		return nil
	}
	return &session
}

func (s *TableSessionService) appendStatusLog(tableID uint, status, previous string, actorID *uint, reason string) {
	log := models.TableStatusLog{
		TableID:        tableID,
		Status:         status,
		PreviousStatus: previous,
		ChangedBy:      actorID,
		Reason:         reason,
		CreatedAt:      time.Now(),
	}
	if err := s.DB.Create(&log).Error; err != nil {
		utils.ErrorLogger.Printf("table %d: append status log: %v", tableID, err)
	}
}

func (s *TableSessionService) broadcastTable(restaurantID, tableID uint, number int, status string) {
	if s.Hub == nil {
		return
	}
	s.Hub.Broadcast(restaurantID, realtime.EventTableStatus, map[string]interface{}{
		"table_id": tableID,
		"number":   number,
		"status":   status,
	})
}
