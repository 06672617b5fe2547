package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Game    GameConfig    `mapstructure:"game"`
	Log     LogConfig     `mapstructure:"log"`
	Journal JournalConfig `mapstructure:"journal"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	GRPCAddress    string `mapstructure:"grpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type GameConfig struct {
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	PlayerTimeout time.Duration `mapstructure:"player_timeout"`
	TopicPrefix   string        `mapstructure:"topic_prefix"`
	SendBuffer    int           `mapstructure:"send_buffer"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type JournalConfig struct {
	// Driver is one of "none", "gorm" or "sql".
	Driver   string         `mapstructure:"driver"`
	Buffer   int            `mapstructure:"buffer"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.grpc_address", ":8082")
	v.SetDefault("server.metrics_address", ":9090")

	v.SetDefault("game.tick_interval", 10*time.Millisecond)
	v.SetDefault("game.player_timeout", 10*time.Second)
	v.SetDefault("game.topic_prefix", "at.theduke.wt")
	v.SetDefault("game.send_buffer", 256)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)

	v.SetDefault("journal.driver", "none")
	v.SetDefault("journal.buffer", 1024)
	v.SetDefault("journal.postgres.host", "localhost")
	v.SetDefault("journal.postgres.port", 5432)
	v.SetDefault("journal.postgres.user", "")
	v.SetDefault("journal.postgres.password", "")
	v.SetDefault("journal.postgres.dbname", "walkandtalk")
}

// LoadConfig reads config.yaml from path. A missing file is not an error;
// defaults and WT_* environment variables apply either way.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("WT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the game loop cannot run with.
func (c *Config) Validate() error {
	if c.Game.TickInterval <= 0 {
		return fmt.Errorf("game.tick_interval must be positive, got %v", c.Game.TickInterval)
	}
	if c.Game.PlayerTimeout <= 0 {
		return fmt.Errorf("game.player_timeout must be positive, got %v", c.Game.PlayerTimeout)
	}
	if c.Game.SendBuffer <= 0 {
		return fmt.Errorf("game.send_buffer must be positive, got %d", c.Game.SendBuffer)
	}
	switch c.Journal.Driver {
	case "none", "gorm", "sql":
	default:
		return fmt.Errorf("unknown journal.driver %q", c.Journal.Driver)
	}
	return nil
}
