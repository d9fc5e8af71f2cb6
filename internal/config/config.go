package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"rudyard-billing"`
		Port int    `envconfig:"PORT" default:"4001"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"billing"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Auth struct {
		TokenSecret string        `envconfig:"JWT_SECRET"`
		TokenTTL    time.Duration `envconfig:"TOKEN_TTL" default:"1h"`

		// Optional second verifier for tokens minted by an external
		// identity provider. Key is a base64-encoded Ed25519 public key.
		ExternalIssuer    string `envconfig:"EXTERNAL_TOKEN_ISSUER"`
		ExternalAudience  string `envconfig:"EXTERNAL_TOKEN_AUDIENCE"`
		ExternalPublicKey string `envconfig:"EXTERNAL_TOKEN_PUBLIC_KEY"`
	}

	Stripe struct {
		SecretKey string `envconfig:"STRIPE_SECRET_KEY"`
	}

	Email struct {
		Host     string `envconfig:"EMAIL_HOST" default:"mail.privateemail.com"`
		Port     int    `envconfig:"EMAIL_PORT" default:"465"`
		SSL      bool   `envconfig:"EMAIL_SECURE" default:"true"`
		Username string `envconfig:"EMAIL_USERNAME"`
		Password string `envconfig:"EMAIL_PASSWORD"`
		From     string `envconfig:"EMAIL_FROM"`
		Operator string `envconfig:"OPERATOR_EMAIL"`
	}

	Payments struct {
		Currency string `envconfig:"PAYMENT_CURRENCY" default:"usd"`
		// When true, each payment is validated against the remaining
		// balance instead of the full invoice amount.
		Cumulative     bool   `envconfig:"PAYMENTS_CUMULATIVE" default:"false"`
		InvoiceBaseURL string `envconfig:"INVOICE_BASE_URL" default:"https://rudyardtechnologies.com/invoice"`
	}

	RateLimit struct {
		Requests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"100"`
		Window   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"15m"`
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
