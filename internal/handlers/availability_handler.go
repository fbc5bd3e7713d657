package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// AvailabilityHandler lets users publish free slots others can book against
type AvailabilityHandler struct {
	availability *services.AvailabilityService
}

func NewAvailabilityHandler(availability *services.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

func (h *AvailabilityHandler) RegisterAvailabilityRoutes(g *echo.Group) {
	g.POST("/availability", h.Publish)
	g.GET("/availability", h.ListMine)
	g.GET("/availability/of/:user_id", h.ListForUser)
	g.DELETE("/availability/:id", h.Delete)
}

func (h *AvailabilityHandler) Publish(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var req models.CreateAvailabilityRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	availability, err := h.availability.Publish(c.Request().Context(), userID, req.Slot)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, availability)
}

// ListMine returns the caller's slots; ?include_past=1 keeps ended ones.
func (h *AvailabilityHandler) ListMine(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	includePast, _ := strconv.ParseBool(c.QueryParam("include_past"))
	return h.list(c, userID, includePast)
}

// ListForUser returns another user's upcoming slots.
func (h *AvailabilityHandler) ListForUser(c echo.Context) error {
	if _, err := requireUser(c); err != nil {
		return err
	}
	id, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	return h.list(c, uint(id), false)
}

func (h *AvailabilityHandler) list(c echo.Context, userID uint, includePast bool) error {
	slots, err := h.availability.List(c.Request().Context(), userID, includePast)
	if err != nil {
		return httpError(err)
	}
	if slots == nil {
		slots = []models.Availability{}
	}
	return c.JSON(http.StatusOK, slots)
}

func (h *AvailabilityHandler) Delete(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	if err := h.availability.Delete(c.Request().Context(), c.Param("id"), userID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
