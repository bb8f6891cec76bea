package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"homematch/internal/bootstrap/logging"
	"homematch/internal/domain/pricing"
	"homematch/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Matching MatchingConfig `mapstructure:"matching"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// MatchingConfig selects the language model behind matching and estimates.
// An empty provider or a disabled block leaves both on their fallbacks.
type MatchingConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	PoolSize          int           `mapstructure:"pool_size"`
	Picks             int           `mapstructure:"picks"`
	EmergingThreshold int           `mapstructure:"emerging_threshold"`
}

type PricingConfig struct {
	CatalogueFile    string `mapstructure:"catalogue_file"`
	PlatformFeeBps   int64  `mapstructure:"platform_fee_bps"`
	TaxBps           int64  `mapstructure:"tax_bps"`
	ContractorFeeBps int64  `mapstructure:"contractor_fee_bps"`
}

func (p PricingConfig) Rates() pricing.Rates {
	return pricing.Rates{
		PlatformFeeBps:   p.PlatformFeeBps,
		TaxBps:           p.TaxBps,
		ContractorFeeBps: p.ContractorFeeBps,
	}
}

type NotifyConfig struct {
	Driver        string `mapstructure:"driver"`
	NATSURL       string `mapstructure:"nats_url"`
	RedisURL      string `mapstructure:"redis_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type CacheConfig struct {
	Driver      string        `mapstructure:"driver"`
	RedisURL    string        `mapstructure:"redis_url"`
	EstimateTTL time.Duration `mapstructure:"estimate_ttl"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.Bool("matching_enabled", cfg.Matching.Enabled),
		slog.String("matching_provider", cfg.Matching.Provider),
		slog.String("notify_driver", cfg.Notify.Driver),
		slog.String("cache_driver", cfg.Cache.Driver),
	)

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if err := c.Pricing.Rates().Validate(); err != nil {
		return errs.Wrap(err, "pricing")
	}
	switch strings.ToLower(c.Notify.Driver) {
	case "", "log":
	case "nats":
		if c.Notify.NATSURL == "" {
			return errors.New("notify.nats_url is required for the nats driver")
		}
	case "redis":
		if c.Notify.RedisURL == "" {
			return errors.New("notify.redis_url is required for the redis driver")
		}
	default:
		return fmt.Errorf("unsupported notify.driver %q", c.Notify.Driver)
	}
	switch strings.ToLower(c.Cache.Driver) {
	case "", "db":
	case "redis":
		if c.Cache.RedisURL == "" {
			return errors.New("cache.redis_url is required for the redis driver")
		}
	default:
		return fmt.Errorf("unsupported cache.driver %q", c.Cache.Driver)
	}
	if c.Matching.Enabled {
		switch strings.ToLower(c.Matching.Provider) {
		case "anthropic", "openai", "gemini":
		default:
			return fmt.Errorf("unsupported matching.provider %q", c.Matching.Provider)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "homematch")
	v.SetDefault("app.env", "local")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".homematch/homematch.sqlite")
	v.SetDefault("http.addr", ":8080")

	v.SetDefault("matching.enabled", false)
	v.SetDefault("matching.provider", "anthropic")
	v.SetDefault("matching.timeout", 8*time.Second)
	v.SetDefault("matching.max_retries", 2)
	v.SetDefault("matching.pool_size", 10)
	v.SetDefault("matching.picks", 3)
	v.SetDefault("matching.emerging_threshold", 5)

	v.SetDefault("pricing.catalogue_file", "")
	v.SetDefault("pricing.platform_fee_bps", pricing.DefaultPlatformFeeBps)
	v.SetDefault("pricing.tax_bps", pricing.DefaultTaxBps)
	v.SetDefault("pricing.contractor_fee_bps", pricing.DefaultContractorFeeBps)

	v.SetDefault("notify.driver", "log")
	v.SetDefault("notify.subject_prefix", "homematch")

	v.SetDefault("cache.driver", "db")
	v.SetDefault("cache.estimate_ttl", 24*time.Hour)
}
