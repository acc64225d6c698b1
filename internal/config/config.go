// Package config loads application configuration and initializes logging.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	XMLRiver  XMLRiverConfig  `yaml:"xmlriver" mapstructure:"xmlriver"`
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Translate TranslateConfig `yaml:"translate" mapstructure:"translate"`
	Telegram  TelegramConfig  `yaml:"telegram" mapstructure:"telegram"`
	Proxy     ProxyConfig     `yaml:"proxy" mapstructure:"proxy"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CacheConfig configures the local resolution cache.
type CacheConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// WarehouseConfig configures the analytical database connection.
type WarehouseConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// XMLRiverConfig holds search engine proxy credentials and balance limits.
type XMLRiverConfig struct {
	User string `yaml:"user" mapstructure:"user"`
	Key  string `yaml:"key" mapstructure:"key"`
	// MinBalance aborts a batch outright; WarnBalance only notifies.
	MinBalance  float64 `yaml:"min_balance" mapstructure:"min_balance"`
	WarnBalance float64 `yaml:"warn_balance" mapstructure:"warn_balance"`
}

// RegistryConfig holds the per-jurisdiction registry endpoints. Empty URLs
// keep the production defaults; Russia has no default because the dadata
// bridge is deployment-specific.
type RegistryConfig struct {
	RussiaURL        string `yaml:"russia_url" mapstructure:"russia_url"`
	KazakhstanURL    string `yaml:"kazakhstan_url" mapstructure:"kazakhstan_url"`
	BelarusURL       string `yaml:"belarus_url" mapstructure:"belarus_url"`
	UzbekistanURL    string `yaml:"uzbekistan_url" mapstructure:"uzbekistan_url"`
	EnableUzbekistan bool   `yaml:"enable_uzbekistan" mapstructure:"enable_uzbekistan"`
}

// TranslateConfig selects and authorizes the translation backend.
type TranslateConfig struct {
	Service        string `yaml:"service" mapstructure:"service"`
	YandexToken    string `yaml:"yandex_token" mapstructure:"yandex_token"`
	YandexFolderID string `yaml:"yandex_folder_id" mapstructure:"yandex_folder_id"`
}

// TelegramConfig configures batch notifications. An empty token disables
// them.
type TelegramConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	ChatID string `yaml:"chat_id" mapstructure:"chat_id"`
}

// ProxyConfig lists outbound proxies and throttling for registry traffic.
type ProxyConfig struct {
	URLs          []string `yaml:"urls" mapstructure:"urls"`
	TimeoutSecs   int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSecond float64  `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst         int      `yaml:"burst" mapstructure:"burst"`
}

// PipelineConfig configures batch processing.
type PipelineConfig struct {
	Workers        int    `yaml:"workers" mapstructure:"workers"`
	RetryDelaySecs int    `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
	OutputDir      string `yaml:"output_dir" mapstructure:"output_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REFERENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("cache.path", "cache/cache.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("xmlriver.min_balance", 100.0)
	v.SetDefault("xmlriver.warn_balance", 200.0)
	v.SetDefault("translate.service", "yandex")
	v.SetDefault("proxy.timeout_secs", 120)
	v.SetDefault("proxy.burst", 1)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.retry_delay_secs", 120)
	v.SetDefault("pipeline.output_dir", "output")

	// Keys without a real default still have to be registered for
	// AutomaticEnv to surface them through Unmarshal.
	for _, key := range []string{
		"warehouse.database_url",
		"xmlriver.user", "xmlriver.key",
		"registry.russia_url", "registry.kazakhstan_url",
		"registry.belarus_url", "registry.uzbekistan_url",
		"translate.yandex_token", "translate.yandex_folder_id",
		"telegram.token", "telegram.chat_id",
	} {
		v.SetDefault(key, "")
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
