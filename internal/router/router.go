package router

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anonto42/studyhub/backend/internal/handlers"
	"github.com/anonto42/studyhub/backend/internal/mailer"
	"github.com/anonto42/studyhub/backend/internal/middleware"
	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/realtime"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"github.com/anonto42/studyhub/backend/internal/services"
	"github.com/anonto42/studyhub/backend/internal/slot"
	"github.com/anonto42/studyhub/backend/pkg/config"
	"github.com/anonto42/studyhub/backend/pkg/firebase"
	"github.com/labstack/echo/v4"
)

// Deps are the stores and channels the HTTP surface is built from.
type Deps struct {
	Config        *config.Config
	Users         repositories.UserRepository
	Meetings      repositories.MeetingRepository
	Notifications repositories.NotificationRepository
	Availability  repositories.AvailabilityRepository
	Groups        repositories.GroupRepository
	Mailer        mailer.Sender
	Hub           *realtime.Hub
	FirebaseAuth  handlers.IDTokenVerifier
	Clock         services.Clock
}

// App is what main needs after routes are registered.
type App struct {
	Hub       *realtime.Hub
	Reminders *services.ReminderWorker
}

// SetupRoutes migrates and indexes the stores, builds production dependencies
// and registers every route.
func SetupRoutes(e *echo.Echo, db *config.DB, cfg *config.Config, fb *firebase.App) (*App, error) {
	// AutoMigrate PostgreSQL models
	if err := db.Postgres.AutoMigrate(&models.User{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	log.Println("PostgreSQL auto-migrations completed.")

	mdb := db.MongoDatabase()
	meetingRepo := repositories.NewMongoMeetingRepository(mdb)
	notificationRepo := repositories.NewMongoNotificationRepository(mdb)
	availabilityRepo := repositories.NewMongoAvailabilityRepository(mdb)
	groupRepo := repositories.NewMongoGroupRepository(mdb)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for name, ensure := range map[string]func(context.Context) error{
		"meetings":       meetingRepo.EnsureIndexes,
		"notifications":  notificationRepo.EnsureIndexes,
		"availabilities": availabilityRepo.EnsureIndexes,
		"groups":         groupRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return nil, fmt.Errorf("ensure %s indexes: %w", name, err)
		}
	}
	log.Println("MongoDB indexes ensured.")

	var sender mailer.Sender = mailer.NoEmail{}
	if cfg.SMTPConfigured() {
		sender = &mailer.SMTP{
			Server:   cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			Timeout:  cfg.SMTPTimeout,
		}
	} else {
		log.Println("SMTP not configured, email delivery disabled.")
	}

	var verifier handlers.IDTokenVerifier
	if client := fb.Auth(); client != nil {
		verifier = client
	}

	hub := realtime.NewHub(cfg.ClientOrigin, groupRepo)
	worker, err := Register(e, Deps{
		Config:        cfg,
		Users:         repositories.NewPostgresUserRepository(db.Postgres),
		Meetings:      meetingRepo,
		Notifications: notificationRepo,
		Availability:  availabilityRepo,
		Groups:        groupRepo,
		Mailer:        sender,
		Hub:           hub,
		FirebaseAuth:  verifier,
	})
	if err != nil {
		return nil, err
	}
	return &App{Hub: hub, Reminders: worker}, nil
}

// Register wires services and handlers onto e and returns the reminder worker,
// which the caller starts.
func Register(e *echo.Echo, d Deps) (*services.ReminderWorker, error) {
	cfg := d.Config
	clock := d.Clock
	if clock == nil {
		clock = services.SystemClock
	}

	normalizer, err := slot.NewNormalizer(cfg.DefaultTimezone, cfg.RejectPastSlots, clock)
	if err != nil {
		return nil, err
	}

	var pusher services.Pusher
	var channels services.GroupChannels
	if d.Hub != nil {
		pusher = d.Hub
		channels = d.Hub
	}
	notifier := services.NewNotifier(d.Notifications, pusher, clock)
	meetingService := services.NewMeetingService(services.MeetingServiceConfig{
		Meetings:     d.Meetings,
		Users:        d.Users,
		Notifier:     notifier,
		Mailer:       d.Mailer,
		Normalizer:   normalizer,
		Links:        services.NewLinkGenerator(cfg.MeetingLinkBase),
		Clock:        clock,
		ReminderLead: cfg.ReminderLead,
	})
	groupService := services.NewGroupService(d.Groups, d.Users, notifier, channels, clock)
	availabilityService := services.NewAvailabilityService(d.Availability, d.Users, normalizer, clock)
	worker := services.NewReminderWorker(services.ReminderWorkerConfig{
		Meetings: d.Meetings,
		Users:    d.Users,
		Notifier: notifier,
		Mailer:   d.Mailer,
		Clock:    clock,
		Interval: cfg.ReminderInterval,
		Batch:    cfg.ReminderBatch,
	})

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authGroup.Use(middleware.RateLimit(middleware.NewIPRateLimiter(cfg.AuthRatePerSecond, cfg.AuthRateBurst)))
	authHandler := handlers.NewAuthHandler(d.Users, d.FirebaseAuth, handlers.AuthConfig{
		JWTSecret:       cfg.JWTSecret,
		JWTTTL:          cfg.JWTTTL,
		AllowedDomains:  cfg.AllowedDomains(),
		DefaultTimezone: cfg.DefaultTimezone,
	})
	authHandler.RegisterAuthRoutes(authGroup)

	public := e.Group("/api/v1")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))

	handlers.NewUserHandler(d.Users).RegisterProfileRoutes(api)
	handlers.NewMeetingHandler(meetingService).RegisterMeetingRoutes(api)
	handlers.NewNotificationHandler(notifier, d.Users, normalizer).RegisterNotificationRoutes(api)
	handlers.NewAvailabilityHandler(availabilityService).RegisterAvailabilityRoutes(api)
	handlers.NewGroupHandler(groupService).RegisterGroupRoutes(api)
	handlers.NewCalendarHandler(meetingService, d.Users, cfg.AppBaseURL, clock).RegisterCalendarRoutes(api, public)
	if d.Hub != nil {
		handlers.NewWebsocketHandler(d.Hub).RegisterWebsocketRoutes(public, middleware.WebsocketAuthMiddleware(cfg.JWTSecret))
	}

	log.Println("All routes configured.")
	return worker, nil
}
