package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// IDTokenVerifier is the part of the Firebase auth client used for federated login.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type AuthConfig struct {
	JWTSecret       string
	JWTTTL          time.Duration
	AllowedDomains  []string
	DefaultTimezone string
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	firebaseAuth   IDTokenVerifier
	cfg            AuthConfig
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth may be nil, which
// disables /firebase-login.
func NewAuthHandler(userRepo repositories.UserRepository, firebaseAuth IDTokenVerifier, cfg AuthConfig) *AuthHandler {
	if cfg.JWTTTL <= 0 {
		cfg.JWTTTL = 72 * time.Hour
	}
	return &AuthHandler{
		userRepository: userRepo,
		firebaseAuth:   firebaseAuth,
		cfg:            cfg,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/signin", h.SignIn)
	if h.firebaseAuth != nil {
		g.POST("/firebase-login", h.FirebaseLogin)
	}
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup handles local user registration with a university email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	university, err := universityOf(req.Email, h.cfg.AllowedDomains)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// Check if user with this email already exists
	if _, err := h.userRepository.GetUserByEmail(req.Email); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "User with this email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return httpError(err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{
		FullName:    strings.TrimSpace(req.FullName),
		Email:       req.Email,
		Password:    string(hashedPassword),
		Timezone:    h.timezoneOrDefault(req.Timezone),
		Department:  strings.TrimSpace(req.Department),
		University:  university,
		NotifyEmail: true,
	}
	if err := h.userRepository.CreateUser(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return echo.NewHTTPError(http.StatusConflict, "User with this email already registered")
		}
		return httpError(err)
	}

	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token after signup")
	}
	return c.JSON(http.StatusCreated, authResponse{Token: token, User: user})
}

// SignIn handles local user authentication with email and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SignInRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
		}
		return httpError(err)
	}
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// FirebaseLogin verifies a Firebase ID token and issues a local JWT, linking
// or creating the account by email.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Federated login is not enabled")
	}
	var req FirebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := h.firebaseAuth.VerifyIDToken(c.Request().Context(), req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	email, _ := token.Claims["email"].(string)
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Firebase account has no email")
	}
	name, _ := token.Claims["name"].(string)
	university, err := universityOf(email, h.cfg.AllowedDomains)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.userRepository.GetUserByFirebaseUID(token.UID)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		user, err = h.linkOrCreate(token.UID, email, name, university)
		if err != nil {
			return httpError(err)
		}
	default:
		return httpError(err)
	}

	localJWT, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate local JWT")
	}
	return c.JSON(http.StatusOK, authResponse{Token: localJWT, User: user})
}

func (h *AuthHandler) linkOrCreate(uid, email, name, university string) (*models.User, error) {
	user, err := h.userRepository.GetUserByEmail(email)
	if err == nil {
		user.FirebaseUID = &uid
		if err := h.userRepository.UpdateUser(user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if name == "" {
		name = strings.Split(email, "@")[0]
	}
	user = &models.User{
		FullName:    name,
		Email:       email,
		FirebaseUID: &uid,
		Timezone:    h.cfg.DefaultTimezone,
		University:  university,
		NotifyEmail: true,
	}
	if err := h.userRepository.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (h *AuthHandler) timezoneOrDefault(tz string) string {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return h.cfg.DefaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return h.cfg.DefaultTimezone
	}
	return tz
}

// generateJWT generates a JWT token for a given user
func (h *AuthHandler) generateJWT(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.JwtCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(h.cfg.JWTTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.JWTSecret))
}
