// Package realtime broadcasts live events to dashboard and kitchen clients
// connected over websockets, one room per restaurant.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mesafacil/mesafacil-api/utils"
)

// Event names on the wire.
const (
	EventOrderNew          = "order:new"
	EventOrderNewFull      = "order:new:full"
	EventOrderStatus       = "order:status-updated"
	EventTableStatus       = "table:status-updated"
	EventWaiterCall        = "waiter:call"
	EventWaiterCallAck     = "waiter:call:acknowledged"
	EventWaiterCallResolve = "waiter:call:resolved"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub tracks connected clients per restaurant room. Writes are best-effort:
// a failed client write is logged and the client dropped, never surfaced to
// the caller.
type Hub struct {
	mu    sync.Mutex
	rooms map[uint]map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uint]map[*websocket.Conn]struct{})}
}

// Register adds a connection to a restaurant room.
func (h *Hub) Register(restaurantID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[restaurantID]
	if !ok {
		room = make(map[*websocket.Conn]struct{})
		h.rooms[restaurantID] = room
	}
	room[conn] = struct{}{}
}

// Unregister removes and closes a connection.
func (h *Hub) Unregister(restaurantID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[restaurantID]; ok {
		delete(room, conn)
		if len(room) == 0 {
			delete(h.rooms, restaurantID)
		}
	}
	conn.Close()
}

// ClientCount returns the number of connections in a restaurant room.
func (h *Hub) ClientCount(restaurantID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[restaurantID])
}

// Broadcast sends an event to every client in the restaurant room.
func (h *Hub) Broadcast(restaurantID uint, event string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[restaurantID]
	if len(room) == 0 {
		return
	}

	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		utils.ErrorLogger.Printf("realtime: marshal %s: %v", event, err)
		return
	}

	for conn := range room {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			utils.ErrorLogger.Printf("realtime: write to client failed, dropping: %v", err)
			delete(room, conn)
			conn.Close()
		}
	}
}
