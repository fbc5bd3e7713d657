package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// GroupHandler exposes study groups and their join workflow
type GroupHandler struct {
	groups *services.GroupService
}

func NewGroupHandler(groups *services.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

func (h *GroupHandler) RegisterGroupRoutes(g *echo.Group) {
	g.POST("/groups", h.Create)
	g.GET("/groups", h.Browse)
	g.GET("/groups/mine", h.Mine)
	g.GET("/groups/:id", h.Get)
	g.POST("/groups/:id/join", h.RequestJoin)
	g.GET("/groups/:id/requests", h.PendingRequests)
	g.POST("/groups/:id/requests/:user_id/approve", h.Approve)
	g.POST("/groups/:id/requests/:user_id/reject", h.Reject)
	g.POST("/groups/:id/leave", h.Leave)
}

func (h *GroupHandler) Create(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var req models.CreateGroupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	group, err := h.groups.Create(c.Request().Context(), userID, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, group)
}

// Browse lists groups at the caller's university; ?q= filters by title or course.
func (h *GroupHandler) Browse(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	groups, err := h.groups.Browse(c.Request().Context(), userID, c.QueryParam("q"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, groups)
}

func (h *GroupHandler) Mine(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	groups, err := h.groups.Mine(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, groups)
}

func (h *GroupHandler) Get(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	group, err := h.groups.Get(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, group)
}

func (h *GroupHandler) RequestJoin(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	if err := h.groups.RequestJoin(c.Request().Context(), c.Param("id"), userID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": string(models.JoinPending)})
}

func (h *GroupHandler) PendingRequests(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	pending, err := h.groups.PendingRequests(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pending)
}

func (h *GroupHandler) Approve(c echo.Context) error {
	return h.resolve(c, true)
}

func (h *GroupHandler) Reject(c echo.Context) error {
	return h.resolve(c, false)
}

func (h *GroupHandler) resolve(c echo.Context, approve bool) error {
	ownerID, err := requireUser(c)
	if err != nil {
		return err
	}
	requester, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	if err := h.groups.Resolve(c.Request().Context(), c.Param("id"), ownerID, uint(requester), approve); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *GroupHandler) Leave(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	if err := h.groups.Leave(c.Request().Context(), c.Param("id"), userID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
