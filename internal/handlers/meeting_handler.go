package handlers

import (
	"net/http"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// MeetingHandler exposes the meeting request workflow
type MeetingHandler struct {
	meetings *services.MeetingService
}

func NewMeetingHandler(meetings *services.MeetingService) *MeetingHandler {
	return &MeetingHandler{meetings: meetings}
}

// RegisterMeetingRoutes registers meeting routes
func (h *MeetingHandler) RegisterMeetingRoutes(g *echo.Group) {
	g.POST("/meetings/request", h.RequestMeeting)
	g.GET("/meetings", h.ListMeetings)
	g.GET("/meetings/:id", h.GetMeeting)
	g.POST("/meetings/:id/respond", h.RespondToMeeting)
	g.POST("/meetings/:id/clear", h.ClearMeeting)
}

// RequestMeeting proposes a slot to another user
func (h *MeetingHandler) RequestMeeting(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var req models.CreateMeetingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	meeting, err := h.meetings.RequestMeeting(c.Request().Context(), userID, req.ReceiverID, req.Slot)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, meeting)
}

// RespondToMeeting accepts or rejects a pending request addressed to the caller
func (h *MeetingHandler) RespondToMeeting(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var req models.RespondMeetingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	meeting, err := h.meetings.RespondToMeeting(c.Request().Context(), c.Param("id"), userID, models.MeetingStatus(req.Status))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, meeting)
}

// ListMeetings returns the caller's meetings, newest first
func (h *MeetingHandler) ListMeetings(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	meetings, err := h.meetings.ListMeetings(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	if meetings == nil {
		meetings = []models.Meeting{}
	}
	return c.JSON(http.StatusOK, meetings)
}

func (h *MeetingHandler) GetMeeting(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	meeting, err := h.meetings.GetMeeting(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, meeting)
}

// ClearMeeting hides a meeting from the caller's list
func (h *MeetingHandler) ClearMeeting(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	if err := h.meetings.ClearMeeting(c.Request().Context(), c.Param("id"), userID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
