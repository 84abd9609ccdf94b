package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"smart_basket/internal/domain"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultSessionID is used when the launch URL carries no session id.
	DefaultSessionID = "ABCD"

	defaultReadTimeoutSec = 60
)

// CatalogItem is one product the simulated scanner can emit.
type CatalogItem struct {
	Name  string          `yaml:"name"`
	Price decimal.Decimal `yaml:"price"`
}

// Config holds every terminal setting.
// LoadConfig reads the YAML file, then lets SMARTBASKET_* environment
// variables (optionally from a .env file) override deploy-specific values.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Feed struct {
		Enabled          bool   `yaml:"enabled" env:"SMARTBASKET_FEED_ENABLED"`
		URL              string `yaml:"url" env:"SMARTBASKET_FEED_URL"`
		SessionID        string `yaml:"session_id" env:"SMARTBASKET_SESSION_ID"`
		ReconnectDelayMS int    `yaml:"reconnect_delay_ms" env:"SMARTBASKET_RECONNECT_DELAY_MS"`
		ReadTimeoutSec   int    `yaml:"read_timeout_sec"`
		MaxRetries       int    `yaml:"max_retries"`
		Backoff          struct {
			Enabled    bool `yaml:"enabled"`
			MaxDelayMS int  `yaml:"max_delay_ms"`
		} `yaml:"backoff"`
	} `yaml:"feed"`

	Cart struct {
		TaxRate        decimal.Decimal `yaml:"tax_rate" env:"SMARTBASKET_TAX_RATE"`
		CurrencySymbol string          `yaml:"currency_symbol"`
	} `yaml:"cart"`

	Payment struct {
		PayeeVPA  string `yaml:"payee_vpa" env:"SMARTBASKET_PAYEE_VPA"`
		PayeeName string `yaml:"payee_name" env:"SMARTBASKET_PAYEE_NAME"`
		Note      string `yaml:"note"`
		Currency  string `yaml:"currency" env:"SMARTBASKET_CURRENCY"`
	} `yaml:"payment"`

	Simulator struct {
		Enabled bool          `yaml:"enabled" env:"SMARTBASKET_SIMULATOR_ENABLED"`
		Catalog []CatalogItem `yaml:"catalog"`
	} `yaml:"simulator"`

	Receipt struct {
		StoreName string `yaml:"store_name"`
		Tagline   string `yaml:"tagline"`
		Dir       string `yaml:"dir" env:"SMARTBASKET_RECEIPT_DIR"`
	} `yaml:"receipt"`

	Storage struct {
		Enabled bool   `yaml:"enabled" env:"SMARTBASKET_DB_ENABLED"`
		Path    string `yaml:"path" env:"SMARTBASKET_DB_PATH"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level" env:"SMARTBASKET_LOG_LEVEL"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// 보안 우선 - 환경 변수 오버라이드 지원
	if err := overrideWithEnv(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv loads .env when present and applies SMARTBASKET_* variables.
// Variables already set in the process environment win over .env.
func overrideWithEnv(cfg *Config) error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Feed.SessionID == "" {
		c.Feed.SessionID = DefaultSessionID
	}
	if c.Feed.ReconnectDelayMS == 0 {
		c.Feed.ReconnectDelayMS = int(DefaultReconnectDelay / time.Millisecond)
	}
	if c.Feed.ReadTimeoutSec == 0 {
		c.Feed.ReadTimeoutSec = defaultReadTimeoutSec
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "INR"
	}
	c.Payment.Currency = strings.ToUpper(c.Payment.Currency)
	if c.Cart.CurrencySymbol == "" {
		c.Cart.CurrencySymbol = currencySymbol(c.Payment.Currency)
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
}

func currencySymbol(code string) string {
	switch code {
	case "USD":
		return "$"
	default:
		return "₹"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	// Feed
	if c.Feed.Enabled {
		if !strings.HasPrefix(c.Feed.URL, "ws://") && !strings.HasPrefix(c.Feed.URL, "wss://") {
			return &domain.ConfigError{Field: "feed.url", Err: fmt.Errorf("not a ws:// or wss:// URL: %q", c.Feed.URL)}
		}
	}
	if c.Feed.ReconnectDelayMS < 0 {
		return &domain.ConfigError{Field: "feed.reconnect_delay_ms", Err: errors.New("must not be negative")}
	}
	if c.Feed.MaxRetries < 0 {
		return &domain.ConfigError{Field: "feed.max_retries", Err: errors.New("must not be negative")}
	}

	// Cart
	if c.Cart.TaxRate.IsNegative() {
		return &domain.ConfigError{Field: "cart.tax_rate", Err: fmt.Errorf("must not be negative: %s", c.Cart.TaxRate)}
	}

	// Payment
	switch c.Payment.Currency {
	case "INR", "USD":
	default:
		return &domain.ConfigError{Field: "payment.currency", Err: fmt.Errorf("unsupported currency %q", c.Payment.Currency)}
	}
	if !strings.Contains(c.Payment.PayeeVPA, "@") {
		return &domain.ConfigError{Field: "payment.payee_vpa", Err: fmt.Errorf("not a payment address: %q", c.Payment.PayeeVPA)}
	}
	if c.Payment.PayeeName == "" {
		return &domain.ConfigError{Field: "payment.payee_name", Err: errors.New("required")}
	}

	// Simulator
	if c.Simulator.Enabled {
		if len(c.Simulator.Catalog) == 0 {
			return &domain.ConfigError{Field: "simulator.catalog", Err: errors.New("at least one product is required")}
		}
		seen := make(map[string]bool, len(c.Simulator.Catalog))
		for _, item := range c.Simulator.Catalog {
			if item.Name == "" {
				return &domain.ConfigError{Field: "simulator.catalog", Err: errors.New("product name is required")}
			}
			if seen[item.Name] {
				return &domain.ConfigError{Field: "simulator.catalog", Err: fmt.Errorf("duplicate product %q", item.Name)}
			}
			seen[item.Name] = true
		}
	}

	if !c.Feed.Enabled && !c.Simulator.Enabled {
		return &domain.ConfigError{Field: "feed.enabled", Err: errors.New("enable the feed, the simulator, or both")}
	}

	return nil
}

// ReconnectPolicy builds the feed retry policy from configuration.
func (c *Config) ReconnectPolicy() domain.ReconnectPolicy {
	wait := time.Duration(c.Feed.ReconnectDelayMS) * time.Millisecond
	if c.Feed.Backoff.Enabled {
		return ExponentialBackoff{
			Base:    wait,
			Max:     time.Duration(c.Feed.Backoff.MaxDelayMS) * time.Millisecond,
			Retries: c.Feed.MaxRetries,
		}
	}
	return FixedDelay{Wait: wait, Retries: c.Feed.MaxRetries}
}

// ReadTimeout returns the feed read deadline.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Feed.ReadTimeoutSec) * time.Second
}
