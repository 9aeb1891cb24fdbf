// Package config loads the demo CLI's configuration: a YAML file
// overlaid with RIVERPOOL_-prefixed environment variables, decoded
// through viper into a typed struct, then validated.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	appErrors "github.com/riverpool/riverpool/pkg/errors"
	"github.com/riverpool/riverpool/pkg/pool"
)

// Config is the demo CLI's top-level configuration.
type Config struct {
	Backend string        `mapstructure:"backend"` // "sql", "tcp", or "grpc"
	Pool    PoolConfig    `mapstructure:"pool"`
	SQL     SQLConfig     `mapstructure:"sql"`
	TCP     TCPConfig     `mapstructure:"tcp"`
	GRPC    GRPCConfig    `mapstructure:"grpc"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// PoolConfig mirrors pool.Config's fields so it can be decoded from YAML
// before being translated into one.
type PoolConfig struct {
	Size                   int           `mapstructure:"size"`
	HelperThreads          int           `mapstructure:"helper_threads"`
	ConnectionTimeout      time.Duration `mapstructure:"connection_timeout"`
	TestOnCheckOut         bool          `mapstructure:"test_on_checkout"`
	InitializationFailFast bool          `mapstructure:"initialization_fail_fast"`
}

// ToPoolConfig translates the decoded YAML shape into pool.Config.
func (p PoolConfig) ToPoolConfig() pool.Config {
	return pool.Config{
		PoolSize:               p.Size,
		HelperThreads:          p.HelperThreads,
		ConnectionTimeout:      p.ConnectionTimeout,
		TestOnCheckOut:         p.TestOnCheckOut,
		InitializationFailFast: p.InitializationFailFast,
	}
}

// SQLConfig configures the sql manager.
type SQLConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// TCPConfig configures the tcp manager.
type TCPConfig struct {
	Network      string        `mapstructure:"network"`
	Address      string        `mapstructure:"address"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// GRPCConfig configures the grpc manager.
type GRPCConfig struct {
	Target           string        `mapstructure:"target"`
	KeepaliveTime    time.Duration `mapstructure:"keepalive_time"`
	KeepaliveTimeout time.Duration `mapstructure:"keepalive_timeout"`
	ReadyTimeout     time.Duration `mapstructure:"ready_timeout"`
}

// LoggingConfig configures the process-global logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads configPath (if non-empty) plus RIVERPOOL_-prefixed
// environment overrides into a Config, applying defaults first and
// validating the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("riverpool")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("RIVERPOOL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, appErrors.Wrap(err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, appErrors.Wrap(err, "decode config")
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "tcp")

	v.SetDefault("pool.size", 10)
	v.SetDefault("pool.helper_threads", 3)
	v.SetDefault("pool.connection_timeout", 30*time.Second)
	v.SetDefault("pool.test_on_checkout", false)
	v.SetDefault("pool.initialization_fail_fast", false)

	// Every key needs a default, even an empty one: AutomaticEnv only
	// reaches Unmarshal for keys viper already knows about.
	v.SetDefault("sql.driver", "sqlite")
	v.SetDefault("sql.host", "")
	v.SetDefault("sql.port", 0)
	v.SetDefault("sql.database", "riverpool.db")
	v.SetDefault("sql.username", "")
	v.SetDefault("sql.password", "")
	v.SetDefault("sql.ssl_mode", "disable")

	v.SetDefault("tcp.network", "tcp")
	v.SetDefault("tcp.address", "127.0.0.1:6379")
	v.SetDefault("tcp.probe_timeout", time.Millisecond)

	v.SetDefault("grpc.target", "")
	v.SetDefault("grpc.keepalive_time", 30*time.Second)
	v.SetDefault("grpc.keepalive_timeout", 10*time.Second)
	v.SetDefault("grpc.ready_timeout", 5*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", true)
}

func validateConfig(cfg *Config) error {
	switch cfg.Backend {
	case "sql", "tcp", "grpc":
	default:
		return fmt.Errorf("%w: %q", appErrors.ErrUnknownBackend, cfg.Backend)
	}

	if cfg.Pool.Size <= 0 {
		return fmt.Errorf("%w: pool.size must be greater than zero", appErrors.ErrConfigInvalid)
	}
	if cfg.Pool.ConnectionTimeout <= 0 {
		return fmt.Errorf("%w: pool.connection_timeout must be positive", appErrors.ErrConfigInvalid)
	}

	if cfg.Backend == "sql" {
		switch cfg.SQL.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("%w: %q", appErrors.ErrUnknownDriver, cfg.SQL.Driver)
		}
	}

	return nil
}
