package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/helo0ks/heloyse4bimestre/services/auth"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	authModeLocal  = "local"
	authModeRemote = "remote"
)

// Config reúne as variáveis de ambiente do serviço
type Config struct {
	Port string `envconfig:"PORT" default:"3001"`

	DatabaseURL        string `envconfig:"DATABASE_URL"`
	DatabaseHost       string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort       string `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseUser       string `envconfig:"DATABASE_USER" default:"postgres"`
	DatabasePassword   string `envconfig:"DATABASE_PASSWORD" default:"postgres"`
	DatabaseName       string `envconfig:"DATABASE_NAME" default:"loja"`
	ReportsDatabaseURL string `envconfig:"REPORTS_DATABASE_URL"`
	DBMaxConns         int32  `envconfig:"DB_MAX_CONNS" default:"10"`

	JWTSecret      string        `envconfig:"JWT_SECRET"`
	AuthMode       string        `envconfig:"AUTH_MODE" default:"local"`
	AuthServiceURL string        `envconfig:"AUTH_SERVICE_URL" default:"http://localhost:3000"`
	AuthCookie     string        `envconfig:"AUTH_COOKIE" default:"token"`
	AuthTimeout    time.Duration `envconfig:"AUTH_TIMEOUT" default:"5s"`

	OTelEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTelEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"loja-api"`

	AppEnv       string `envconfig:"APP_ENV" default:"development"`
	ClientOrigin string `envconfig:"CLIENT_ORIGIN" default:"http://localhost:3000"`
	AdminOrigin  string `envconfig:"ADMIN_ORIGIN" default:"http://localhost:3002"`

	// 200 requisições a cada 15 minutos por IP
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"0.2222"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"200"`

	MaxImageBytes       int64 `envconfig:"MAX_IMAGE_BYTES" default:"5242880"`
	BcryptCost          int   `envconfig:"BCRYPT_COST" default:"10"`
	EnforceCatalogPrice bool  `envconfig:"CHECKOUT_ENFORCE_CATALOG_PRICE" default:"false"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// LoadConfig lê o .env opcional e depois as variáveis de ambiente
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate confere as combinações de configuração que o envconfig não cobre
func (c Config) Validate() error {
	switch strings.ToLower(c.AuthMode) {
	case authModeLocal:
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required when AUTH_MODE=local")
		}
	case authModeRemote:
		if c.AuthServiceURL == "" {
			return errors.New("AUTH_SERVICE_URL is required when AUTH_MODE=remote")
		}
	default:
		return fmt.Errorf("invalid AUTH_MODE %q: use local or remote", c.AuthMode)
	}
	if c.DBMaxConns <= 0 {
		return errors.New("DB_MAX_CONNS must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.MaxImageBytes <= 0 {
		return errors.New("MAX_IMAGE_BYTES must be positive")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// DSN monta a URL do banco principal
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DatabaseUser, c.DatabasePassword),
		Host:     c.DatabaseHost + ":" + c.DatabasePort,
		Path:     "/" + c.DatabaseName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// ReportsDSN aponta para a réplica de leitura quando configurada
func (c Config) ReportsDSN() string {
	if c.ReportsDatabaseURL != "" {
		return c.ReportsDatabaseURL
	}
	return c.DSN()
}

func (c Config) Verifier() auth.Verifier {
	if strings.EqualFold(c.AuthMode, authModeRemote) {
		return auth.NewRemoteVerifier(c.AuthServiceURL, c.AuthCookie, c.AuthTimeout)
	}
	return auth.NewJWTVerifier([]byte(c.JWTSecret), c.AuthCookie)
}
