package handlers

import (
	"log"

	"github.com/anonto42/studyhub/backend/internal/realtime"
	"github.com/labstack/echo/v4"
)

// WebsocketHandler upgrades authenticated requests onto the realtime hub
type WebsocketHandler struct {
	hub *realtime.Hub
}

func NewWebsocketHandler(hub *realtime.Hub) *WebsocketHandler {
	return &WebsocketHandler{hub: hub}
}

// RegisterWebsocketRoutes mounts /ws behind auth, which must accept the
// token query parameter browsers send on the upgrade.
func (h *WebsocketHandler) RegisterWebsocketRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/ws", h.Connect, auth)
}

// Connect joins the caller to user:<id>. The token normally arrives as ?token=.
func (h *WebsocketHandler) Connect(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	if err := h.hub.HandleRequest(c.Response(), c.Request(), userID); err != nil {
		log.Printf("[ws] upgrade for user %d: %v", userID, err)
	}
	return nil
}
