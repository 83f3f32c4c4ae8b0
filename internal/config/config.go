package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Service   Service
	Postgres  Postgres
	Dedup     Dedup
	Dispatch  Dispatch
	Keitaro   Keitaro
	Chatterfy Chatterfy
	Telegram  Telegram
	Pocket    Pocket
	Campaign  Campaign
}

type Service struct {
	Environment string `envconfig:"SERVICE_ENVIRONMENT" default:"development"`
	Port        string `envconfig:"SERVICE_PORT" default:"8000"`
	Host        string `envconfig:"SERVICE_HOST" default:"localhost:8000"`
}

type Postgres struct {
	Host            string `envconfig:"DB_HOST" default:"localhost"`
	Port            string `envconfig:"DB_PORT" default:"5432"`
	User            string `envconfig:"DB_USER" default:"postgres"`
	Password        string `envconfig:"DB_PASSWORD" default:""`
	Database        string `envconfig:"DB_NAME" required:"true"`
	SSLMode         string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns    int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int    `envconfig:"DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime int    `envconfig:"DB_CONN_MAX_LIFETIME_SEC" default:"3600"`
}

// Dedup windows are empirically tuned; the short window covers cheap events,
// the long one amount-bearing events whose senders retry slower.
type Dedup struct {
	ShortWindowSec int `envconfig:"DEDUP_WINDOW_SHORT_SEC" default:"30"`
	LongWindowSec  int `envconfig:"DEDUP_WINDOW_LONG_SEC" default:"60"`
}

type Dispatch struct {
	MaxAttempts     int     `envconfig:"DISPATCH_MAX_ATTEMPTS" default:"2"`
	BaseDelayMs     int     `envconfig:"DISPATCH_BASE_DELAY_MS" default:"500"`
	MaxDelayMs      int     `envconfig:"DISPATCH_MAX_DELAY_MS" default:"2000"`
	RequestTimeout  int     `envconfig:"DISPATCH_REQUEST_TIMEOUT_SEC" default:"10"`
	DefaultSum      float64 `envconfig:"DISPATCH_DEFAULT_SUM" default:"59"`
	MaxIdleConns    int     `envconfig:"DISPATCH_MAX_IDLE_CONNS" default:"20"`
	DialTimeoutSec  int     `envconfig:"DISPATCH_DIAL_TIMEOUT_SEC" default:"5"`
	IdleTimeoutSec  int     `envconfig:"DISPATCH_IDLE_TIMEOUT_SEC" default:"60"`
	ResponseExcerpt int     `envconfig:"DISPATCH_RESPONSE_EXCERPT" default:"100"`
}

type Keitaro struct {
	PostbackURL string `envconfig:"KEITARO_POSTBACK_URL" default:""`
	Domain      string `envconfig:"KEITARO_DOMAIN" default:""`
	AdminAPIKey string `envconfig:"KEITARO_ADMIN_API_KEY" default:""`
}

type Chatterfy struct {
	PostbackURL string `envconfig:"CHATTERFY_POSTBACK_URL" default:""`
}

type Telegram struct {
	BotToken string `envconfig:"BOT_TOKEN" default:""`
	ChatID   int64  `envconfig:"CHAT_ID" default:"0"`
	Enabled  bool   `envconfig:"ENABLE_TELEGRAM_LOGS" default:"false"`
}

type Pocket struct {
	BaseURL     string `envconfig:"POCKET_API_BASE_URL" default:"https://affiliate.pocketoption.com"`
	APIToken    string `envconfig:"POCKET_API_TOKEN" default:""`
	PartnerID   string `envconfig:"POCKET_PARTNER_ID" default:""`
	CacheTTLSec int    `envconfig:"POCKET_CACHE_TTL_SEC" default:"300"`
	TimeoutSec  int    `envconfig:"POCKET_TIMEOUT_SEC" default:"10"`
}

type Campaign struct {
	UsersPerSecond   float64 `envconfig:"CAMPAIGN_USERS_PER_SECOND" default:"2"`
	CheckIntervalSec int     `envconfig:"CAMPAIGN_CHECK_INTERVAL_SEC" default:"3600"`
	BatchLimit       int     `envconfig:"CAMPAIGN_BATCH_LIMIT" default:"500"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

// DSN builds the pgx connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}
