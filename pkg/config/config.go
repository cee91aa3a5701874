// Package config loads application configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// App holds process-level settings.
type App struct {
	Name string `envconfig:"NAME" default:"gokcen-ledger"`
	Env  string `envconfig:"ENV" default:"development"`
}

// HTTP holds the server listen settings.
type HTTP struct {
	Addr string `envconfig:"ADDR" default:":3000"`
}

// Jwt holds session token settings.
type Jwt struct {
	Secret string        `envconfig:"SECRET" required:"true"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"24h"`
}

// Log holds logger settings.
type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"text"`
	Prefix     string `envconfig:"PREFIX" default:"ledger"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"15:04:05"`
}

// Store selects and configures the persistence backend.
type Store struct {
	Backend     string `envconfig:"BACKEND" default:"json"`
	Path        string `envconfig:"PATH" default:"users.json"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
}

// RateLimit bounds requests per client IP.
type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

// Bank holds the business policy knobs.
type Bank struct {
	TransferFee string `envconfig:"TRANSFER_FEE" default:"6.39"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	App       App       `envconfig:"APP"`
	HTTP      HTTP      `envconfig:"HTTP"`
	Jwt       Jwt       `envconfig:"JWT"`
	Log       Log       `envconfig:"LOG"`
	Store     Store     `envconfig:"STORE"`
	RateLimit RateLimit `envconfig:"RATE_LIMIT"`
	Bank      Bank      `envconfig:"BANK"`
}

// Load reads a .env file when present and processes the environment.
func Load(logger *slog.Logger) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using system environment variables")
	} else {
		logger.Info("Environment variables loaded from .env file")
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	logger.Info("App config loaded",
		"env", cfg.App.Env, "addr", cfg.HTTP.Addr,
		"store_backend", cfg.Store.Backend, "jwt_expiry", cfg.Jwt.Expiry)
	return &cfg, nil
}
