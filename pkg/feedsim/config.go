package feedsim

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the order feed simulator
type Config struct {
	// Book settings
	Instrument string

	// Load parameters
	Workers         int
	OrdersPerWorker int
	RatePerSecond   int

	// Order shape
	PriceMid    int64
	PriceBand   int64
	MaxVolume   int64
	IcebergPct  int
	Seed        int64
	SubmitDelay time.Duration

	// Publish exec reports to Kafka instead of a local sink
	PublishReports bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("FEEDSIM_INSTRUMENT", "SIM-1")
	v.SetDefault("FEEDSIM_WORKERS", 8)
	v.SetDefault("FEEDSIM_ORDERS_PER_WORKER", 1000)
	v.SetDefault("FEEDSIM_RATE_PER_SECOND", 5000)
	v.SetDefault("FEEDSIM_PRICE_MID", 10000)
	v.SetDefault("FEEDSIM_PRICE_BAND", 50)
	v.SetDefault("FEEDSIM_MAX_VOLUME", 500)
	v.SetDefault("FEEDSIM_ICEBERG_PCT", 0)
	v.SetDefault("FEEDSIM_SEED", 0)
	v.SetDefault("FEEDSIM_SUBMIT_DELAY_MS", 0)
	v.SetDefault("FEEDSIM_PUBLISH_REPORTS", false)

	v.AutomaticEnv()

	cfg := &Config{
		Instrument:      v.GetString("FEEDSIM_INSTRUMENT"),
		Workers:         v.GetInt("FEEDSIM_WORKERS"),
		OrdersPerWorker: v.GetInt("FEEDSIM_ORDERS_PER_WORKER"),
		RatePerSecond:   v.GetInt("FEEDSIM_RATE_PER_SECOND"),
		PriceMid:        v.GetInt64("FEEDSIM_PRICE_MID"),
		PriceBand:       v.GetInt64("FEEDSIM_PRICE_BAND"),
		MaxVolume:       v.GetInt64("FEEDSIM_MAX_VOLUME"),
		IcebergPct:      v.GetInt("FEEDSIM_ICEBERG_PCT"),
		Seed:            v.GetInt64("FEEDSIM_SEED"),
		SubmitDelay:     time.Duration(v.GetInt("FEEDSIM_SUBMIT_DELAY_MS")) * time.Millisecond,
		PublishReports:  v.GetBool("FEEDSIM_PUBLISH_REPORTS"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Instrument == "" {
		return fmt.Errorf("FEEDSIM_INSTRUMENT must not be empty")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("FEEDSIM_WORKERS must be positive")
	}
	if cfg.OrdersPerWorker <= 0 {
		return fmt.Errorf("FEEDSIM_ORDERS_PER_WORKER must be positive")
	}
	if cfg.RatePerSecond <= 0 {
		return fmt.Errorf("FEEDSIM_RATE_PER_SECOND must be positive")
	}
	if cfg.PriceMid <= 0 {
		return fmt.Errorf("FEEDSIM_PRICE_MID must be positive")
	}
	if cfg.PriceBand < 0 || cfg.PriceBand >= cfg.PriceMid {
		return fmt.Errorf("FEEDSIM_PRICE_BAND must be in [0, FEEDSIM_PRICE_MID)")
	}
	if cfg.MaxVolume <= 0 {
		return fmt.Errorf("FEEDSIM_MAX_VOLUME must be positive")
	}
	if cfg.IcebergPct < 0 || cfg.IcebergPct > 100 {
		return fmt.Errorf("FEEDSIM_ICEBERG_PCT must be in [0, 100]")
	}
	return nil
}
