package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mesafacil/mesafacil-api/realtime"
	"github.com/mesafacil/mesafacil-api/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSController struct {
	Hub *realtime.Hub
}

func NewWSController(hub *realtime.Hub) *WSController {
	return &WSController{Hub: hub}
}

// Serve joins the client to its restaurant room and holds the connection
// open until the peer disconnects. The socket is broadcast-only; inbound
// frames are drained and ignored.
func (wsc *WSController) Serve(c *gin.Context) {
	restaurantID, err := strconv.ParseUint(c.Query("restaurant"), 10, 32)
	if err != nil || restaurantID == 0 {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("websocket upgrade: %v", err)
		return
	}

	wsc.Hub.Register(uint(restaurantID), conn)
	utils.InfoLogger.Printf("Websocket client joined restaurant %d (%d connected)", restaurantID, wsc.Hub.ClientCount(uint(restaurantID)))

	defer wsc.Hub.Unregister(uint(restaurantID), conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
