package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StorePostgres StoreKind = "postgres"
)

type Config struct {
	App struct {
		Name     string `envconfig:"APP_NAME" default:"NumRent"`
		Port     int    `envconfig:"PORT" default:"8080"`
		LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"numrent"`
		SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	}

	Server struct {
		Timeout         time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
		// URL is where cmd/tui reaches the API.
		URL string `envconfig:"SERVER_URL" default:"http://localhost:8080"`
	}

	Store struct {
		Kind StoreKind `envconfig:"STORE" default:"postgres"`
	}

	Auth struct {
		JWTSecret     string        `envconfig:"AUTH_JWT_SECRET" required:"true"`
		TokenTTL      time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"24h"`
		LoginMaxAge   time.Duration `envconfig:"AUTH_LOGIN_MAX_AGE" default:"24h"`
	}

	Market struct {
		SweepInterval time.Duration `envconfig:"MARKET_SWEEP_INTERVAL" default:"1m"`
		ReviewWindow  time.Duration `envconfig:"MARKET_REVIEW_WINDOW" default:"168h"`
		PageSize      int           `envconfig:"MARKET_PAGE_SIZE" default:"50"`
	}

	Payment struct {
		CryptoBotToken   string `envconfig:"CRYPTOBOT_TOKEN"`
		CryptoBotBaseURL string `envconfig:"CRYPTOBOT_BASE_URL" default:"https://pay.crypt.bot/api"`
		Asset            string `envconfig:"PAYMENT_ASSET" default:"USDT"`
		MinDeposit       string `envconfig:"PAYMENT_MIN_DEPOSIT" default:"1.00"`
		MinWithdrawal    string `envconfig:"PAYMENT_MIN_WITHDRAWAL" default:"10.00"`
	}

	Telegram struct {
		BotToken string  `envconfig:"TELEGRAM_BOT_TOKEN"`
		BaseURL  string  `envconfig:"TELEGRAM_BASE_URL" default:"https://api.telegram.org"`
		AdminIDs []int64 `envconfig:"TELEGRAM_ADMIN_IDS"`
	}

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	switch cfg.Store.Kind {
	case StoreMemory, StorePostgres:
	default:
		return nil, fmt.Errorf("unknown STORE %q: want %q or %q", cfg.Store.Kind, StoreMemory, StorePostgres)
	}

	return &cfg, nil
}
