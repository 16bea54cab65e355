package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/mesafacil/mesafacil-api/utils"
)

func startHubServer(t *testing.T, hub *Hub) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid, _ := strconv.Atoi(r.URL.Query().Get("restaurant"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		hub.Register(uint(rid), conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, restaurantID uint) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?restaurant=" + strconv.Itoa(int(restaurantID))
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastReachesOnlyOwnRoom(t *testing.T) {
	utils.InitLogger()
	hub := NewHub()
	srv := startHubServer(t, hub)

	connA := dial(t, srv, 1)
	connB := dial(t, srv, 2)

	// Give the server side a moment to register both clients.
	deadline := time.Now().Add(time.Second)
	for (hub.ClientCount(1) == 0 || hub.ClientCount(2) == 0) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, hub.ClientCount(1))
	assert.Equal(t, 1, hub.ClientCount(2))

	hub.Broadcast(1, EventOrderNew, map[string]interface{}{"order_id": 42})

	connA.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := connA.ReadMessage()
	assert.NoError(t, err)

	var msg Message
	assert.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, EventOrderNew, msg.Event)
	assert.Equal(t, float64(42), msg.Data.(map[string]interface{})["order_id"])

	// The other room must stay silent.
	connB.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = connB.ReadMessage()
	assert.Error(t, err)
}

func TestBroadcastToEmptyRoomIsNoop(t *testing.T) {
	utils.InitLogger()
	hub := NewHub()
	hub.Broadcast(9, EventTableStatus, nil) // must not panic
	assert.Equal(t, 0, hub.ClientCount(9))
}
