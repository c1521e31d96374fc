package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration, read from environment
// variables and an optional YAML file.
type Config struct {
	Server struct {
		Address         string        `mapstructure:"address"`
		Port            string        `mapstructure:"port"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`

	Database struct {
		DSN          string        `mapstructure:"dsn"`
		MaxOpenConns int           `mapstructure:"max_open_conns"`
		MaxIdleConns int           `mapstructure:"max_idle_conns"`
		ConnLifetime time.Duration `mapstructure:"conn_lifetime"`
	} `mapstructure:"database"`

	Auth struct {
		Secret     string        `mapstructure:"secret"`
		Issuer     string        `mapstructure:"issuer"`
		AccessTTL  time.Duration `mapstructure:"access_ttl"`
		RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
		BcryptCost int           `mapstructure:"bcrypt_cost"`
	} `mapstructure:"auth"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`

	RateLimit struct {
		LoginBurst     int `mapstructure:"login_burst"`
		LoginPerMinute int `mapstructure:"login_per_minute"`
	} `mapstructure:"rate_limit"`

	SMTP struct {
		Host string `mapstructure:"host"`
		Port string `mapstructure:"port"`
		User string `mapstructure:"user"`
		Pass string `mapstructure:"pass"`
		From string `mapstructure:"from"`
	} `mapstructure:"smtp"`
}

// Load reads configuration from env/file with defaults. Environment variables
// use the VHUB prefix with underscores, e.g. VHUB_AUTH_SECRET.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("vhub")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_lifetime", 30*time.Minute)

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "volunteerhub")
	v.SetDefault("auth.access_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("rate_limit.login_burst", 10)
	v.SetDefault("rate_limit.login_per_minute", 30)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", "587")

	if cfgFile := os.Getenv("VHUB_CONFIG_FILE"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/volunteerhub")
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			if _, ok := err.(*os.PathError); !ok {
				return nil, fmt.Errorf("config read: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("auth.secret is required (VHUB_AUTH_SECRET)")
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required (VHUB_DATABASE_DSN)")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Address + ":" + c.Server.Port
}
