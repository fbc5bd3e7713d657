package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string `env:"PORT" env-default:"8080"`
	Env                     string `env:"ENV" env-default:"development"`
	FirebaseCredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH"`
	PostgresConnStr         string `env:"POSTGRES_CONN_STR"`
	MongoURI                string `env:"MONGO_URI"`
	MongoDatabase           string `env:"MONGO_DATABASE" env-default:"study_group_hub"`

	JWTSecret string        `env:"JWT_SECRET" env-default:"supersecretjwtkey"`
	JWTTTL    time.Duration `env:"JWT_TTL" env-default:"72h"`

	ClientOrigin    string `env:"CLIENT_ORIGIN" env-default:"http://localhost:5173"`
	AppBaseURL      string `env:"APP_BASE_URL" env-default:"http://localhost:8080"`
	MeetingLinkBase string `env:"MEETING_LINK_BASE" env-default:"https://meet.jit.si"`

	DefaultTimezone string `env:"DEFAULT_TIMEZONE" env-default:"America/New_York"`
	RejectPastSlots bool   `env:"REJECT_PAST_SLOTS" env-default:"true"`

	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" env-default:"30s"`
	ReminderLead     time.Duration `env:"REMINDER_LEAD" env-default:"30m"`
	ReminderBatch    int64         `env:"REMINDER_BATCH" env-default:"100"`

	SMTPHost     string        `env:"SMTP_HOST"`
	SMTPPort     int           `env:"SMTP_PORT" env-default:"587"`
	SMTPUser     string        `env:"SMTP_USER"`
	SMTPPassword string        `env:"SMTP_PASSWORD"`
	SMTPFrom     string        `env:"SMTP_FROM"`
	SMTPTimeout  time.Duration `env:"SMTP_TIMEOUT" env-default:"30s"`

	// Comma separated; empty means any academic-looking domain is accepted.
	UniversityDomains string `env:"UNIVERSITY_DOMAINS"`

	AuthRatePerSecond float64 `env:"AUTH_RATE_PER_SECOND" env-default:"5"`
	AuthRateBurst     int     `env:"AUTH_RATE_BURST" env-default:"10"`
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing configuration from environment variables: %w", err)
	}
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("DEFAULT_TIMEZONE %q is not a known zone: %w", cfg.DefaultTimezone, err)
	}
	if cfg.ReminderInterval <= 0 {
		return nil, fmt.Errorf("REMINDER_INTERVAL must be positive")
	}
	if cfg.ReminderBatch <= 0 {
		cfg.ReminderBatch = 100
	}
	return &cfg, nil
}

// SMTPConfigured reports whether outbound email can be sent.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.SMTPPassword != ""
}

// AllowedDomains splits UNIVERSITY_DOMAINS into lower-cased entries.
func (c *Config) AllowedDomains() []string {
	var out []string
	for _, d := range strings.Split(c.UniversityDomains, ",") {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			out = append(out, d)
		}
	}
	return out
}
