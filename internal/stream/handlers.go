package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes mounts the websocket stream. A device may only watch its
// own recording.
func RegisterRoutes(r fiber.Router, hub *Hub, authMiddleware fiber.Handler) {
	r.Get("/ws/:deviceID", authMiddleware, func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		deviceID, _ := c.Locals("device_id").(string)
		if deviceID != c.Params("deviceID") {
			return fiber.NewError(fiber.StatusForbidden, "stream belongs to another device")
		}
		return c.Next()
	}, websocket.New(func(c *websocket.Conn) {
		deviceID := c.Params("deviceID")
		client := hub.Register(deviceID)
		defer hub.Unregister(client)

		done := make(chan struct{})
		go func() {
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
			close(done)
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
}
