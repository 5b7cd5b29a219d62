package config

import (
	"context"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/turtacn/pdmews/pkg/constants"
	"github.com/turtacn/pdmews/pkg/errors"
	"github.com/turtacn/pdmews/pkg/logger"
)

// EnvPrefix is prepended to every environment override, e.g. PDMEWS_BREACH_API_KEY.
const EnvPrefix = "PDMEWS"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.sqlite_path", "pdmews.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_conn_lifetime", 30)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.alert_topic", "pdmews.alerts")
	v.SetDefault("kafka.write_timeout", "10s")
	v.SetDefault("kafka.batch_timeout", "50ms")
	v.SetDefault("kafka.required_acks", 1)

	v.SetDefault("vault.mount_path", "secret")

	v.SetDefault("breach.base_url", constants.DefaultBreachBaseURL)
	v.SetDefault("breach.user_agent", constants.DefaultBreachUserAgent)
	v.SetDefault("breach.timeout", constants.DefaultBreachTimeout)
	v.SetDefault("breach.cache_ttl", constants.DefaultBreachCacheTTL)
	v.SetDefault("breach.failure_threshold", 5)
	v.SetDefault("breach.cool_down", "1m")

	v.SetDefault("risk.reevaluation_enabled", true)
	v.SetDefault("risk.reevaluation_interval", constants.DefaultReevaluationInterval)
	v.SetDefault("risk.reevaluation_workers", constants.DefaultReevaluationWorkers)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 30)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("rate_limit.key_prefix", "pdmews:ratelimit")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "pdmews-risk-engine")
	v.SetDefault("tracing.sampling_rate", 1.0)
}

// LoadConfig loads the configuration from file and environment variables.
// configPath may be empty, in which case config.yaml is searched in the usual locations.
func LoadConfig(configPath string, log logger.Logger) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/pdmews/")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, errors.ErrConfiguration("failed to read config file").WithCause(err)
		}
		log.Info(context.Background(), "No config file found, using defaults and environment")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, errors.ErrConfiguration("failed to unmarshal config").WithCause(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.ErrConfiguration("invalid configuration").WithCause(err)
	}

	return &cfg, v, nil
}

// WatchLogLevel re-reads log.level whenever the config file changes and hands it to apply.
// Only the log level is hot-reloadable; every other setting requires a restart.
func WatchLogLevel(v *viper.Viper, log logger.Logger, apply func(level string)) {
	if v == nil || v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		level := v.GetString("log.level")
		if !ValidLogLevel(level) {
			log.Warn(context.Background(), "Ignoring unsupported log level from config file",
				logger.String("file", e.Name),
				logger.String("level", level),
			)
			return
		}
		log.Info(context.Background(), "Config file changed, applying log level",
			logger.String("file", e.Name),
			logger.String("level", level),
		)
		apply(level)
	})
	v.WatchConfig()
}
