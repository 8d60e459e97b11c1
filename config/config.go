// Package config loads engine configuration from a YAML file with
// environment-variable overrides, via spf13/viper, layered underneath
// the CLI's own flags.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/sklarsa/crypto-gains-engine/currency"
)

// Config holds every option the engine recognizes (spec §6).
type Config struct {
	BaseCurrency            currency.Code `mapstructure:"base_currency"`
	SnapshotPath            string        `mapstructure:"snapshot_path"`
	ShortTermThresholdYears int           `mapstructure:"short_term_threshold_years"`
	DecimalPrecision        int32         `mapstructure:"decimal_precision"`
	RateSampleInterval      string        `mapstructure:"rate_sample_interval"`
	ReconcileTransferFees   bool          `mapstructure:"reconcile_transfer_fees"`

	RateCSVSources []RateCSVSource `mapstructure:"rate_csv_sources"`
	CoinGecko      CoinGeckoConfig `mapstructure:"coingecko"`
}

// RateCSVSource points at one rate/csvsource CSV file covering a single
// directed currency pair. Interval falls back to RateSampleInterval when
// empty.
type RateCSVSource struct {
	Base     string `mapstructure:"base"`
	Quote    string `mapstructure:"quote"`
	Path     string `mapstructure:"path"`
	Interval string `mapstructure:"interval"`
}

// CoinGeckoConfig configures a rate/coingecko.Source quoting every listed
// coin against VSCurrency. Empty CoinIDs disables the source entirely.
type CoinGeckoConfig struct {
	CoinIDs     map[string]string `mapstructure:"coin_ids"`
	VSCurrency  string            `mapstructure:"vs_currency"`
	MinInterval string            `mapstructure:"min_interval"`
}

const (
	defaultShortTermThresholdYears = 1
	defaultDecimalPrecision        = 28
	defaultRateSampleInterval      = "1h"
	defaultCoinGeckoMinInterval    = "1500ms"
)

// Load reads configuration from path (if non-empty) and from environment
// variables prefixed CGTAX_ (e.g. CGTAX_BASE_CURRENCY), the latter taking
// precedence. base_currency is required.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("cgtax")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("short_term_threshold_years", defaultShortTermThresholdYears)
	v.SetDefault("decimal_precision", defaultDecimalPrecision)
	v.SetDefault("rate_sample_interval", defaultRateSampleInterval)
	v.SetDefault("coingecko.min_interval", defaultCoinGeckoMinInterval)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "config: reading %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: unmarshaling")
	}

	if cfg.BaseCurrency == "" {
		return Config{}, errors.New("config: base_currency is required")
	}
	base, err := currency.New(string(cfg.BaseCurrency))
	if err != nil {
		return Config{}, errors.Wrap(err, "config: base_currency")
	}
	cfg.BaseCurrency = base

	if cfg.CoinGecko.VSCurrency == "" {
		cfg.CoinGecko.VSCurrency = strings.ToLower(string(cfg.BaseCurrency))
	}

	if cfg.DecimalPrecision < 28 {
		return Config{}, errors.Errorf("config: decimal_precision must be >= 28, got %d", cfg.DecimalPrecision)
	}
	if cfg.ShortTermThresholdYears <= 0 {
		return Config{}, errors.Errorf("config: short_term_threshold_years must be > 0, got %d", cfg.ShortTermThresholdYears)
	}

	return cfg, nil
}
