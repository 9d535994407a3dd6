package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App         AppConfig
	DB          DBConfig
	Redis       RedisConfig
	JWT         JWTConfig
	MercadoPago MercadoPagoConfig
	Orders      OrdersConfig
	Webhooks    WebhooksConfig
	RateLimit   RateLimitConfig
	Flags       FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MERCADITO_APP_ENV" required:"true"`
	Port         string `envconfig:"MERCADITO_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MERCADITO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MERCADITO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"MERCADITO_DB_DSN"`

	Host     string `envconfig:"MERCADITO_DB_HOST"`
	Port     int    `envconfig:"MERCADITO_DB_PORT" default:"5432"`
	User     string `envconfig:"MERCADITO_DB_USER"`
	Password string `envconfig:"MERCADITO_DB_PASSWORD"`
	Name     string `envconfig:"MERCADITO_DB_NAME"`
	SSLMode  string `envconfig:"MERCADITO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MERCADITO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MERCADITO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MERCADITO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MERCADITO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MERCADITO_REDIS_URL" required:"true"`
	Password     string        `envconfig:"MERCADITO_REDIS_PASSWORD"`
	DB           int           `envconfig:"MERCADITO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MERCADITO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MERCADITO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MERCADITO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MERCADITO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MERCADITO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MERCADITO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MERCADITO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MERCADITO_JWT_EXPIRATION_MINUTES" default:"60"`
}

type MercadoPagoConfig struct {
	AccessToken   string        `envconfig:"MERCADITO_MP_ACCESS_TOKEN" required:"true"`
	WebhookSecret string        `envconfig:"MERCADITO_MP_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"MERCADITO_MP_BASE_URL" default:"https://api.mercadopago.com"`
	Timeout       time.Duration `envconfig:"MERCADITO_MP_TIMEOUT" default:"8s"`
	SuccessURL    string        `envconfig:"MERCADITO_MP_SUCCESS_URL"`
	FailureURL    string        `envconfig:"MERCADITO_MP_FAILURE_URL"`
	PendingURL    string        `envconfig:"MERCADITO_MP_PENDING_URL"`
}

type OrdersConfig struct {
	NumberPrefix string        `envconfig:"MERCADITO_ORDER_NUMBER_PREFIX" default:"MCD"`
	DraftTTL     time.Duration `envconfig:"MERCADITO_DRAFT_TTL" default:"24h"`
	Currency     string        `envconfig:"MERCADITO_ORDER_CURRENCY" default:"ARS"`
}

type WebhooksConfig struct {
	PayloadMaxBytes int `envconfig:"MERCADITO_WEBHOOK_PAYLOAD_MAX_BYTES" default:"4096"`
}

type RateLimitConfig struct {
	VerifyWindow time.Duration `envconfig:"MERCADITO_VERIFY_RATE_WINDOW" default:"1m"`
	VerifyLimit  int64         `envconfig:"MERCADITO_VERIFY_RATE_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MERCADITO_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, value := range map[string]string{
		"MERCADITO_DB_HOST": db.Host,
		"MERCADITO_DB_USER": db.User,
		"MERCADITO_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either MERCADITO_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
