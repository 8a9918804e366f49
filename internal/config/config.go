package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is the process configuration, loaded from the environment with an
// optional .env file for local development.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"8080"`
	AppURL      string `env:"APP_URL" envDefault:"http://localhost:8080"`

	DB     DB     `envPrefix:"DB_"`
	Stripe Stripe `envPrefix:"STRIPE_"`

	JWTSecret string `env:"JWT_SECRET,required"`
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	UploadDir string `env:"UPLOAD_DIR" envDefault:"uploads"`
}

type DB struct {
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	Name     string `env:"NAME" envDefault:"tunehire"`
}

type Stripe struct {
	BaseAPIURL    string `env:"BASE_API_URL" envDefault:"https://api.stripe.com"`
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

// DSN renders the Postgres connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", d.User, d.Password, d.Host, d.Port, d.Name)
}

// Load reads .env if present, then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
