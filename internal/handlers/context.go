package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/anonto42/studyhub/backend/internal/middleware"
	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/services"
	"github.com/anonto42/studyhub/backend/internal/slot"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// getUserIDFromContext returns the authenticated user's id, or 0.
func getUserIDFromContext(c echo.Context) uint {
	claims, ok := c.Get(middleware.ContextUserKey).(*models.JwtCustomClaims)
	if !ok || claims == nil {
		return 0
	}
	return claims.UserID
}

func requireUser(c echo.Context) (uint, error) {
	id := getUserIDFromContext(c)
	if id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return id, nil
}

// bindAndValidate binds the request body into req and runs the echo validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

// httpError maps service and repository errors onto HTTP statuses.
func httpError(err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, slot.ErrInvalidSlot):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		log.Printf("[http] internal error: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}
