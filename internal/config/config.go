package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Ecodonate"`
		Env  string `envconfig:"APP_ENV" default:"development"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"ecodonate"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	// Daraja credentials. All of them are required: a missing value would
	// only surface later as a malformed push request, so boot fails fast
	// without the full set.
	Mpesa struct {
		BaseURL        string `envconfig:"MPESA_BASE_URL" default:"https://sandbox.safaricom.co.ke"`
		ConsumerKey    string `envconfig:"MPESA_CONSUMER_KEY" required:"true"`
		ConsumerSecret string `envconfig:"MPESA_CONSUMER_SECRET" required:"true"`
		Shortcode      string `envconfig:"MPESA_SHORTCODE" required:"true"`
		Passkey        string `envconfig:"MPESA_PASSKEY" required:"true"`
		CallbackURL    string `envconfig:"MPESA_CALLBACK_URL" required:"true"`
	}

	Session struct {
		Secret string        `envconfig:"SESSION_SECRET" required:"true"`
		TTL    time.Duration `envconfig:"SESSION_TTL" default:"15m"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
