package config

import (
	"fmt"
	"time"

	"github.com/turtacn/pdmews/pkg/constants"
)

// Config holds the application's configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Vault    VaultConfig    `mapstructure:"vault"`
	Breach   BreachConfig   `mapstructure:"breach"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Trust    TrustConfig    `mapstructure:"trust"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // in seconds
}

// Address returns the listen address of the HTTP server.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime"` // in minutes
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	// Enabled switches the crowd cache from process memory to Redis.
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	AlertTopic   string        `mapstructure:"alert_topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
}

type VaultConfig struct {
	Address       string `mapstructure:"address"`
	Token         string `mapstructure:"token"`
	MountPath     string `mapstructure:"mount_path"`
	BreachKeyPath string `mapstructure:"breach_key_path"`
}

type BreachConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	BaseURL          string        `mapstructure:"base_url"`
	UserAgent        string        `mapstructure:"user_agent"`
	Timeout          time.Duration `mapstructure:"timeout"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	CoolDown         time.Duration `mapstructure:"cool_down"`
}

type RiskConfig struct {
	ReevaluationEnabled  bool          `mapstructure:"reevaluation_enabled"`
	ReevaluationInterval time.Duration `mapstructure:"reevaluation_interval"`
	ReevaluationWorkers  int           `mapstructure:"reevaluation_workers"`
}

// RateLimitConfig meters the expensive API routes per client address.
// The bucket lives in Redis when redis is enabled, otherwise in process memory.
type RateLimitConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	Burst             int    `mapstructure:"burst"`
	KeyPrefix         string `mapstructure:"key_prefix"`
}

type TrustConfig struct {
	// SeedFile optionally points at a YAML map of app name to trust score.
	SeedFile string `mapstructure:"seed_file"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	Environment    string  `mapstructure:"environment"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when redis is enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.AlertTopic == "") {
		return fmt.Errorf("kafka.brokers and kafka.alert_topic are required when kafka is enabled")
	}
	if c.Risk.ReevaluationInterval <= 0 {
		return fmt.Errorf("risk.reevaluation_interval must be positive")
	}
	if c.Breach.Timeout <= 0 {
		return fmt.Errorf("breach.timeout must be positive")
	}
	if !ValidLogLevel(c.Log.Level) {
		return fmt.Errorf("unsupported log.level %q", c.Log.Level)
	}
	return nil
}

// ValidLogLevel reports whether level names one of the supported log levels.
func ValidLogLevel(level string) bool {
	switch constants.LogLevel(level) {
	case constants.LogLevelDebug, constants.LogLevelInfo, constants.LogLevelWarn,
		constants.LogLevelError, constants.LogLevelFatal:
		return true
	}
	return false
}
