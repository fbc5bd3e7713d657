package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository repositories.UserRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepository: userRepo}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/me", h.GetProfile)
	g.PUT("/me", h.UpdateProfile)
	g.DELETE("/me", h.DeleteUser)
	g.POST("/me/change-password", h.ChangePassword)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:id", h.GetUser)
}

// GetUser returns the public card of another user.
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	user, err := h.userRepository.GetUserByID(uint(id))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user.ToCompact())
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	user, err := h.userRepository.GetUserByID(userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the authenticated user's profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req models.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(userID)
	if err != nil {
		return httpError(err)
	}

	if req.FullName != "" {
		user.FullName = strings.TrimSpace(req.FullName)
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Unknown timezone "+req.Timezone)
		}
		user.Timezone = req.Timezone
	}
	if req.Department != "" {
		user.Department = strings.TrimSpace(req.Department)
	}
	if req.NotifyEmail != nil {
		user.NotifyEmail = *req.NotifyEmail
	}

	if err := h.userRepository.UpdateUser(user); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// ChangePassword replaces the caller's password after checking the current one.
// Accounts created through Firebase have no password to change.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req models.ChangePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(userID)
	if err != nil {
		return httpError(err)
	}
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)) != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Current password is incorrect")
	}
	if req.NewPassword == req.CurrentPassword {
		return echo.NewHTTPError(http.StatusBadRequest, "New password must differ from the current one")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return httpError(err)
	}
	user.Password = string(hashedPassword)
	if err := h.userRepository.UpdateUser(user); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteUser deletes the authenticated user's profile
func (h *UserHandler) DeleteUser(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	if err := h.userRepository.DeleteUser(userID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SearchUsers finds classmates at the caller's university by name or email
func (h *UserHandler) SearchUsers(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Search query 'q' is required")
	}

	me, err := h.userRepository.GetUserByID(userID)
	if err != nil {
		return httpError(err)
	}
	users, err := h.userRepository.SearchUsers(query, me.University)
	if err != nil {
		return httpError(err)
	}

	results := make([]models.UserCompact, 0, len(users))
	for i := range users {
		if users[i].ID == userID {
			continue
		}
		results = append(results, users[i].ToCompact())
	}
	return c.JSON(http.StatusOK, results)
}
