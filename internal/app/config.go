package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/shopspring/decimal"
)

// Драйверы авторитетного хранилища.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRemote   = "remote"
)

// Config описывает настройки запуска движка.
type Config struct {
	MetricsAddr string `env:"POS_METRICS_ADDR" envDefault:":9090"`

	// StorageDriver выбирает авторитетное хранилище: memory|postgres|remote.
	StorageDriver string `env:"POS_STORAGE_DRIVER" envDefault:"memory"`
	PostgresDSN   string `env:"POS_POSTGRES_DSN"`
	RemoteBaseURL string `env:"POS_REMOTE_BASE_URL"`

	KafkaBrokers []string `env:"POS_KAFKA_BROKERS" envSeparator:","`

	// TaxRate — ставка налога как десятичная дробь, например "0.07".
	TaxRate string `env:"POS_TAX_RATE" envDefault:"0.07"`

	LowStockAlertDelay time.Duration `env:"POS_LOW_STOCK_ALERT_DELAY" envDefault:"500ms"`

	OutboxPollInterval time.Duration `env:"POS_OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	OutboxBatchSize    int           `env:"POS_OUTBOX_BATCH_SIZE" envDefault:"100"`
	OutboxMaxAttempts  int           `env:"POS_OUTBOX_MAX_ATTEMPTS" envDefault:"3"`
	OutboxMaxPending   int           `env:"POS_OUTBOX_MAX_PENDING" envDefault:"1000"`
}

// DefaultConfig возвращает конфигурацию по умолчанию, без чтения окружения.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:        ":9090",
		StorageDriver:      StorageMemory,
		TaxRate:            "0.07",
		LowStockAlertDelay: 500 * time.Millisecond,
		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxMaxPending:   1000,
	}
}

// ReadConfig читает конфигурацию из переменных окружения и валидирует её.
func ReadConfig() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность конфигурации.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POS_POSTGRES_DSN is required for postgres storage driver")
		}
	case StorageRemote:
		if c.RemoteBaseURL == "" {
			return fmt.Errorf("POS_REMOTE_BASE_URL is required for remote storage driver")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q (use memory|postgres|remote)", c.StorageDriver)
	}

	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return fmt.Errorf("invalid tax rate %q: %w", c.TaxRate, err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("tax rate must be non-negative, got %s", rate)
	}

	return nil
}

// TaxRateDecimal возвращает ставку налога как decimal. Паника невозможна после
// успешной Validate; при некорректном значении возвращается ноль.
func (c Config) TaxRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return decimal.Zero
	}
	return rate
}
