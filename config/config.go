package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported values for database.driver. An empty driver disables the history log.
const (
	DriverNone     = ""
	DriverGorm     = "gorm"
	DriverPostgres = "postgres"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	RPCAddress        string        `mapstructure:"rpc_address"`
	GRPCAddress       string        `mapstructure:"grpc_address"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	SendBuffer        int           `mapstructure:"send_buffer"`
}

// HTTPAddress is the listen address for the websocket/HTTP server.
func (s ServerConfig) HTTPAddress() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type GameConfig struct {
	TurnTimeout time.Duration `mapstructure:"turn_timeout"`
	EventBuffer int           `mapstructure:"event_buffer"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type DatabaseConfig struct {
	Driver       string         `mapstructure:"driver"`
	RecordBuffer int            `mapstructure:"record_buffer"`
	Postgres     PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// DSN renders the keyword/value connection string understood by lib/pq and pgx.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.DBName)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.rpc_address", "")
	v.SetDefault("server.grpc_address", "")
	v.SetDefault("server.heartbeat_interval", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.send_buffer", 64)

	v.SetDefault("game.turn_timeout", "15s")
	v.SetDefault("game.event_buffer", 1024)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "boardserver")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("database.driver", DriverNone)
	v.SetDefault("database.record_buffer", 256)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "boardserver")
}

// LoadConfig reads <path>/.env and <path>/config.yaml (both optional), then
// environment variables. Environment wins over the file, the file over defaults.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// PORT is what hosting platforms hand us.
	if err := v.BindEnv("server.port", "PORT"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("server.host", "HOST"); err != nil {
		return nil, err
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.HeartbeatInterval <= 0 {
		return errors.New("server.heartbeat_interval must be positive")
	}
	if c.Server.SendBuffer <= 0 {
		return errors.New("server.send_buffer must be positive")
	}
	if c.Game.TurnTimeout <= 0 {
		return errors.New("game.turn_timeout must be positive")
	}
	if c.Game.EventBuffer <= 0 {
		return errors.New("game.event_buffer must be positive")
	}
	switch c.Database.Driver {
	case DriverNone, DriverGorm, DriverPostgres:
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if c.Database.Driver != DriverNone && c.Database.RecordBuffer <= 0 {
		return errors.New("database.record_buffer must be positive")
	}
	return nil
}
