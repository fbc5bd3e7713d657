package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anonto42/studyhub/backend/internal/calendar"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"github.com/anonto42/studyhub/backend/internal/services"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// CalendarHandler serves a private iCalendar subscription of accepted meetings
type CalendarHandler struct {
	meetings       *services.MeetingService
	userRepository repositories.UserRepository
	baseURL        string
	clock          services.Clock
}

func NewCalendarHandler(meetings *services.MeetingService, userRepo repositories.UserRepository, baseURL string, clock services.Clock) *CalendarHandler {
	if clock == nil {
		clock = services.SystemClock
	}
	return &CalendarHandler{
		meetings:       meetings,
		userRepository: userRepo,
		baseURL:        strings.TrimRight(baseURL, "/"),
		clock:          clock,
	}
}

// RegisterCalendarRoutes registers the token route on the protected group and
// the feed on the public one; feed URLs carry their own secret.
func (h *CalendarHandler) RegisterCalendarRoutes(protected, public *echo.Group) {
	protected.GET("/calendar/token", h.GetToken)
	public.GET("/calendar/feed/:file", h.Feed)
}

// GetToken returns the caller's feed token, creating it on first use
func (h *CalendarHandler) GetToken(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	user, err := h.userRepository.GetUserByID(userID)
	if err != nil {
		return httpError(err)
	}

	if user.CalendarToken == nil || *user.CalendarToken == "" {
		token := strings.ReplaceAll(uuid.NewString(), "-", "")
		user.CalendarToken = &token
		if err := h.userRepository.UpdateUser(user); err != nil {
			return httpError(err)
		}
	}

	token := *user.CalendarToken
	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"url":   h.baseURL + "/api/v1/calendar/feed/" + url.PathEscape(token) + ".ics",
	})
}

// Feed renders the token owner's upcoming accepted meetings as text/calendar
func (h *CalendarHandler) Feed(c echo.Context) error {
	token := strings.TrimSuffix(c.Param("file"), ".ics")
	if token == "" {
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	}

	owner, err := h.userRepository.GetUserByCalendarToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Not found")
		}
		return httpError(err)
	}

	ctx := c.Request().Context()
	meetings, err := h.meetings.UpcomingAccepted(ctx, owner.ID)
	if err != nil {
		return httpError(err)
	}

	names := map[uint]string{owner.ID: owner.FullName}
	for i := range meetings {
		other := meetings[i].Counterpart(owner.ID)
		if _, ok := names[other]; ok {
			continue
		}
		if u, err := h.userRepository.GetUserByID(other); err == nil {
			names[other] = u.FullName
		}
	}

	var buf bytes.Buffer
	feed := calendar.Feed{
		OwnerID: owner.ID,
		Name:    "Study Group Hub meetings",
		Names:   names,
		Host:    h.host(),
	}
	if err := calendar.Render(&buf, feed, meetings, h.clock().In(time.UTC)); err != nil {
		return httpError(err)
	}

	c.Response().Header().Set("Cache-Control", "private, max-age=300")
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

func (h *CalendarHandler) host() string {
	if u, err := url.Parse(h.baseURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return "studygrouphub"
}
