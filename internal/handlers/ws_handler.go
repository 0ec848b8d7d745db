package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/logger"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/realtime"
)

const wsPingInterval = 30 * time.Second

// LiveHandler pushes booking and profile events to connected dashboards so
// they do not have to poll.
type LiveHandler struct {
	Hub *realtime.Hub
}

func NewLiveHandler(hub *realtime.Hub) *LiveHandler {
	return &LiveHandler{Hub: hub}
}

// Upgrade must run after JWT and AttachJWTLocals; it hands the verified
// user id to the socket.
func (h *LiveHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals("wsUserId", middleware.ActorFrom(c).UserID.String())
	return c.Next()
}

func (h *LiveHandler) Serve(c *websocket.Conn) {
	userID, err := uuid.Parse(stringLocal(c.Locals("wsUserId")))
	if err != nil {
		_ = c.Close()
		return
	}

	client := &realtime.Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Conn:   realtime.NewWebSocketConn(c),
		Send:   make(chan []byte, 64),
	}
	h.Hub.RegisterClient(client)
	defer h.Hub.UnregisterClient(client)

	logger.L.Debug("live socket connected", "user_id", userID)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-client.Send:
				if !ok {
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	// reads only keep the connection alive
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
}

func stringLocal(v any) string {
	s, _ := v.(string)
	return s
}
