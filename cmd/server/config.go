package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime settings for the accounts service.
type Config struct {
	Addr     string        `env:"SERVER_ADDR" envDefault:":8000"`
	Secret   string        `env:"SECRET_KEY"`
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"60m"`
	DBDSN    string        `env:"DATABASE_DSN" envDefault:"file:accounts.db?cache=shared"`

	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	BackendURL  string `env:"BACKEND_URL" envDefault:"http://localhost:8000"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"CounselGPT"`
}

// LoadConfig reads settings from the environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.Secret) == "" {
		return Config{}, fmt.Errorf("SECRET_KEY is required")
	}
	return cfg, nil
}

// FrontendOrigins splits the comma separated frontend URL list for CORS.
func (c Config) FrontendOrigins() []string {
	parts := strings.Split(c.FrontendURL, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// PrimaryFrontend is the frontend origin federated logins redirect back to.
func (c Config) PrimaryFrontend() string {
	if origins := c.FrontendOrigins(); len(origins) > 0 {
		return origins[0]
	}
	return "http://localhost:3000"
}

// GoogleCallbackURL is where Google redirects the browser after consent.
func (c Config) GoogleCallbackURL() string {
	return strings.TrimRight(c.BackendURL, "/") + "/auth/google/callback"
}

// SMTPEnabled reports whether outbound email is configured.
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPUsername != "" && c.SMTPPassword != ""
}
