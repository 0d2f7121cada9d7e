// Package config loads the service settings from defaults, an optional YAML
// file, a .env file and CATALOG_* environment variables, in increasing
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CATALOG"

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Log           LogConfig           `mapstructure:"log"`
	ISBN          ISBNConfig          `mapstructure:"isbn"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"gt=0,lt=65536"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" validate:"gte=0s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0s"`
	GenerateRate    float64       `mapstructure:"generate_rate" validate:"gt=0"`
	GenerateBurst   int           `mapstructure:"generate_burst" validate:"gt=0"`
}

type DatabaseConfig struct {
	Driver           string `mapstructure:"driver" validate:"oneof=memory postgres sqlite"`
	URL              string `mapstructure:"url" validate:"required_if=Driver postgres"`
	SQLitePath       string `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
	FallbackToMemory bool   `mapstructure:"fallback_to_memory"`
}

type NotificationsConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url" validate:"required_if=Enabled true"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0s"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type ISBNConfig struct {
	// 0 seeds from the clock
	Seed int64 `mapstructure:"seed"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.generate_rate", 5)
	v.SetDefault("server.generate_burst", 5)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.url", "")
	v.SetDefault("database.sqlite_path", "catalog.db")
	v.SetDefault("database.fallback_to_memory", true)

	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.base_url", "https://ntfy.sh/books-catalog")
	v.SetDefault("notifications.timeout", 2*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("isbn.seed", 0)
}

/* Reads the configuration. configPath may be empty, a missing .env file is ignored. */
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// DATABASE_URL is honored for compatibility with the usual deployments
	if err := v.BindEnv("database.url", envPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("binding database url: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}
