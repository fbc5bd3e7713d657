package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"github.com/anonto42/studyhub/backend/internal/services"
	"github.com/anonto42/studyhub/backend/internal/slot"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notifier       *services.Notifier
	userRepository repositories.UserRepository
	normalizer     *slot.Normalizer
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifier *services.Notifier, userRepo repositories.UserRepository, normalizer *slot.Normalizer) *NotificationHandler {
	return &NotificationHandler{
		notifier:       notifier,
		userRepository: userRepo,
		normalizer:     normalizer,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread", h.GetUnread)
	g.GET("/notifications/grouped", h.GetGroupedNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.POST("/notifications/read", h.MarkRead)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
}

// GetNotifications returns paginated notifications
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	currentUserID, err := requireUser(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	notifications, total, err := h.notifier.List(c.Request().Context(), currentUserID, page, limit)
	if err != nil {
		return httpError(err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"notifications": nonNil(notifications),
		},
		"meta": echo.Map{
			"currentPage":     page,
			"totalPages":      totalPages,
			"totalItems":      total,
			"itemsPerPage":    limit,
			"hasNextPage":     page < totalPages,
			"hasPreviousPage": page > 1,
		},
	})
}

// GetUnread returns every unread notification, newest first
func (h *NotificationHandler) GetUnread(c echo.Context) error {
	currentUserID, err := requireUser(c)
	if err != nil {
		return err
	}
	notifications, err := h.notifier.ListUnread(c.Request().Context(), currentUserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"notifications": nonNil(notifications)}})
}

// GetGroupedNotifications returns notifications grouped by day in the user's timezone
func (h *NotificationHandler) GetGroupedNotifications(c echo.Context) error {
	currentUserID, err := requireUser(c)
	if err != nil {
		return err
	}

	zone := ""
	if user, err := h.userRepository.GetUserByID(currentUserID); err == nil {
		zone = user.Timezone
	}
	loc := h.normalizer.Location(c.QueryParam("tz"), zone)

	ctx := c.Request().Context()
	today, yesterday, thisWeek, older, err := h.notifier.Grouped(ctx, currentUserID, loc)
	if err != nil {
		return httpError(err)
	}
	unreadCount, _ := h.notifier.UnreadCount(ctx, currentUserID)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"notifications": echo.Map{
				"today":     nonNil(today),
				"yesterday": nonNil(yesterday),
				"thisWeek":  nonNil(thisWeek),
				"older":     nonNil(older),
			},
			"unreadCount": unreadCount,
		},
	})
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	currentUserID, err := requireUser(c)
	if err != nil {
		return err
	}
	count, err := h.notifier.UnreadCount(c.Request().Context(), currentUserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"count": count}})
}

// MarkAsRead marks a single notification as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	currentUserID, err := requireUser(c)
	if err != nil {
		return err
	}
	updated, err := h.notifier.MarkRead(c.Request().Context(), currentUserID, []string{c.Param("id")})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"updated": updated}})
}

// MarkRead marks the listed notifications as read; ids the caller does not own are ignored
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	currentUserID, err := requireUser(c)
	if err != nil {
		return err
	}
	var req models.MarkReadRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	updated, err := h.notifier.MarkRead(c.Request().Context(), currentUserID, req.IDs)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"updated": updated}})
}

// MarkAllAsRead marks all notifications as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	currentUserID, err := requireUser(c)
	if err != nil {
		return err
	}
	updated, err := h.notifier.MarkAllRead(c.Request().Context(), currentUserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"updated": updated}})
}

func nonNil(n []models.Notification) []models.Notification {
	if n == nil {
		return []models.Notification{}
	}
	return n
}
