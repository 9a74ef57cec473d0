package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	AODP        AODPConfig      `mapstructure:"aodp"`
	Market      MarketConfig    `mapstructure:"market"`
	Breeding    BreedingConfig  `mapstructure:"breeding"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AODPConfig tunes the remote price client.
type AODPConfig struct {
	RegionURLs         map[string]string `mapstructure:"region_urls"`
	TimeoutSeconds     int               `mapstructure:"timeout_seconds"`
	CacheTTLSeconds    int               `mapstructure:"cache_ttl_seconds"`
	RateLimitPerMinute int               `mapstructure:"rate_limit_per_minute"`
	MaxRetries         int               `mapstructure:"max_retries"`
	RetryBaseDelayMs   int               `mapstructure:"retry_base_delay_ms"`
}

// MarketConfig holds trading defaults applied when a request omits them.
type MarketConfig struct {
	DefaultSetupFee    float64 `mapstructure:"default_setup_fee"`
	DefaultMaxAgeHours int     `mapstructure:"default_max_age_hours"`
	TopOpportunities   int     `mapstructure:"top_opportunities"`
}

// TelemetryConfig controls tracing.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

// BreedingConfig holds breeding calculator knobs.
type BreedingConfig struct {
	// Flat per-unit feed estimate used in farm mode. An approximation, not a
	// market figure.
	FarmFeedUnitCost float64 `mapstructure:"farm_feed_unit_cost"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; defaults plus environment are enough.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"*"})

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "albion_market")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("aodp.timeout_seconds", 30)
	viper.SetDefault("aodp.cache_ttl_seconds", 600)
	viper.SetDefault("aodp.rate_limit_per_minute", 120)
	viper.SetDefault("aodp.max_retries", 3)
	viper.SetDefault("aodp.retry_base_delay_ms", 1000)

	viper.SetDefault("market.default_setup_fee", 0.025)
	viper.SetDefault("market.default_max_age_hours", 12)
	viper.SetDefault("market.top_opportunities", 100)

	viper.SetDefault("breeding.farm_feed_unit_cost", 50)

	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.sample_rate", 0.2)
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.AODP.RateLimitPerMinute <= 0 {
		return fmt.Errorf("aodp rate limit must be positive")
	}
	if c.AODP.CacheTTLSeconds <= 0 {
		return fmt.Errorf("aodp cache ttl must be positive")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry sample rate %g out of range [0,1]", c.Telemetry.SampleRate)
	}
	return nil
}
