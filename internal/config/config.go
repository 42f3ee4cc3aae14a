// Package config loads process configuration from the environment and the
// per-run parameters from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"visit-route-service/internal/domain"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Distance sources for the local routing engine. Geocoding always uses ORS.
const (
	DistanceORS       = "ors"
	DistanceORSMatrix = "ors-matrix"
	DistanceHaversine = "haversine"
)

// Config is the static process configuration.
type Config struct {
	ProcessName   string `env:"PROCESS_NAME" envDefault:"visit-routes"`
	RunParamsPath string `env:"RUN_PARAMS_PATH" envDefault:"config/run_params.yaml"`
	RouteTimezone string `env:"ROUTE_TIMEZONE" envDefault:"America/Sao_Paulo"`

	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL"`

	FeatureServiceToken string `env:"FEATURE_SERVICE_TOKEN"`
	ORSAPIKey           string `env:"ORS_API_KEY,required"`
	DistanceSource      string `env:"DISTANCE_SOURCE" envDefault:"ors"`

	SMTPHost     string   `env:"SMTP_HOST"`
	SMTPPort     int      `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string   `env:"SMTP_USERNAME"`
	SMTPPassword string   `env:"SMTP_PASSWORD"`
	MailFrom     string   `env:"MAIL_FROM"`
	MailTo       []string `env:"MAIL_TO" envSeparator:","`

	LogPath       string `env:"LOG_PATH" envDefault:"logs"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"text"`
	LogOutput     string `env:"LOG_OUTPUT" envDefault:"both"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"14"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30"`
	LogCompress   bool   `env:"LOG_COMPRESS" envDefault:"true"`
}

// Load reads optional .env files, then parses the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config: read env file: %w", errors.Join(domain.ErrConfig, err))
		}
		log.Println("No .env file found (using environment variables)")
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", errors.Join(domain.ErrConfig, err))
	}

	if strings.TrimSpace(cfg.ProcessName) == "" {
		return nil, fmt.Errorf("load config: PROCESS_NAME is empty: %w", domain.ErrConfig)
	}
	// env only checks that required variables are present, not that they are non-empty.
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("load config: DATABASE_URL is empty: %w", domain.ErrConfig)
	}
	if strings.TrimSpace(cfg.ORSAPIKey) == "" {
		return nil, fmt.Errorf("load config: ORS_API_KEY is empty: %w", domain.ErrConfig)
	}
	switch cfg.DistanceSource {
	case DistanceORS, DistanceORSMatrix, DistanceHaversine:
	default:
		return nil, fmt.Errorf("load config: DISTANCE_SOURCE %q (want %s, %s or %s): %w",
			cfg.DistanceSource, DistanceORS, DistanceORSMatrix, DistanceHaversine, domain.ErrConfig)
	}

	return &cfg, nil
}

// Location resolves ROUTE_TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.RouteTimezone)
	if err != nil {
		return nil, fmt.Errorf("route timezone %q: %w", c.RouteTimezone, errors.Join(domain.ErrConfig, err))
	}
	return loc, nil
}

// MailEnabled reports whether enough SMTP settings exist to send email.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.MailFrom != "" && len(c.MailTo) > 0
}
