package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/minhngodev/campus-api/internal/model"
	"github.com/minhngodev/campus-api/internal/ws"
	"github.com/minhngodev/campus-api/pkg/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, validate origin
	},
}

// WSHandler handles the dispatch-event WebSocket feed
type WSHandler struct {
	hub        *ws.Hub
	jwtManager *auth.JWTManager
}

func NewWSHandler(hub *ws.Hub, jwtManager *auth.JWTManager) *WSHandler {
	return &WSHandler{
		hub:        hub,
		jwtManager: jwtManager,
	}
}

// HandleWebSocket upgrades HTTP to WebSocket and streams dispatch events.
// Client connects with: ws://host/ws?token=<jwt_token>. The feed is limited
// to staff and admins: it exposes campus-wide delivery activity.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	// Authenticate via query parameter (WebSocket can't use Authorization header)
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
		return
	}

	claims, err := h.jwtManager.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	if claims.Role != model.RoleAdmin && claims.Role != model.RoleStaff {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient role for the dispatch feed"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID)
	h.hub.Register(client)

	log.Printf("✅ WS Connected: UserID=%s Role=%s", claims.UserID, claims.Role)

	go client.WritePump()
	go client.ReadPump()
}
