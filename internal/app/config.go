package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

const (
	defaultTerminalAddr = "0.0.0.0:8080"
	defaultBackendAddr  = "0.0.0.0:8081"
)

// TerminalConfig configures the register terminal service. It is loadable
// from KART_ environment variables, flags or YAML files.
type TerminalConfig struct {
	Addr       string `default:"0.0.0.0:8080" usage:"Terminal API listen address"`
	RegisterID string `default:"default" usage:"Register this terminal operates" flag:"register-id"`
	TaxRate    string `default:"0.10" usage:"Tax rate applied to the subtotal" flag:"tax-rate"`
	Backend    BackendClientConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	CORS       CORSConfig
	Graceful   GracefulConfig
}

// BackendClientConfig points the terminal at the order service.
type BackendClientConfig struct {
	URL     string        `default:"http://localhost:8081" usage:"Order service base URL" flag:"backend-url"`
	Token   string        `usage:"Order service API key (KART_BACKEND_TOKEN)" flag:"backend-token"`
	Timeout time.Duration `default:"10s" usage:"Order service request timeout" flag:"backend-timeout"`
}

// RedisConfig enables the shared reference data cache. An empty Addr
// disables it.
type RedisConfig struct {
	Addr     string        `default:"" usage:"Redis address for the reference data cache" flag:"redis-addr"`
	Password string        `default:"" usage:"Redis password" flag:"redis-password"`
	DB       int           `default:"0" usage:"Redis database" flag:"redis-db"`
	TTL      time.Duration `default:"5m" usage:"Reference snapshot lifetime" flag:"redis-ttl"`
}

// BackendConfig configures the order service.
type BackendConfig struct {
	Addr         string `default:"0.0.0.0:8081" usage:"Order service listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (KART_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing; empty disables auth (KART_API_KEY_PEPPER)" flag:"api-key-pepper"`
	RegisterID   string `default:"default" usage:"Register assumed when a request names none" flag:"register-id"`
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadTerminalConfig loads and validates the terminal configuration.
func LoadTerminalConfig() (*TerminalConfig, error) {
	var cfg TerminalConfig
	if err := load(&cfg); err != nil {
		return nil, err
	}
	cfg.Addr = portAddr(cfg.Addr, defaultTerminalAddr)

	if cfg.Backend.URL == "" {
		return nil, errors.New("order service URL is required: set KART_BACKEND_URL")
	}
	if _, err := cfg.taxRate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *TerminalConfig) taxRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse tax rate %q", c.TaxRate)
	}
	if rate.IsNegative() {
		return decimal.Zero, errors.Errorf("tax rate %s must not be negative", rate)
	}
	return rate, nil
}

// LoadBackendConfig loads and validates the order service configuration.
func LoadBackendConfig() (*BackendConfig, error) {
	var cfg BackendConfig
	if err := load(&cfg); err != nil {
		return nil, err
	}
	cfg.Addr = portAddr(cfg.Addr, defaultBackendAddr)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set KART_DATABASE_URL or DATABASE_URL")
	}
	return &cfg, nil
}

// skipFlags disables command line parsing, for callers that do not own
// os.Args.
var skipFlags bool

func load(dst any) error {
	loader := aconfig.LoaderFor(dst, aconfig.Config{
		EnvPrefix: "KART",
		SkipFlags: skipFlags,
		Files:     []string{"config.yaml", "/etc/kart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return errors.Wrap(err, "load config")
	}
	return nil
}

// portAddr honours the PORT variable set by hosting platforms when the
// listen address was left at its default.
func portAddr(addr, def string) string {
	if port := os.Getenv("PORT"); port != "" && addr == def {
		return "0.0.0.0:" + port
	}
	return addr
}
