// Package config resolves connection and runtime settings from flags, the
// environment (.env included), and an optional tablesmith.yaml file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/ridoystarlord/tablesmith/utils"
)

type MySQL struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	DSN      string
	Timeout  time.Duration
}

type Config struct {
	MySQL      MySQL
	StudioPort string
	Audit      bool
	LogLevel   string
}

var envBindings = map[string]string{
	"mysql.host":     "MYSQL_HOST",
	"mysql.port":     "MYSQL_PORT",
	"mysql.user":     "MYSQL_USER",
	"mysql.password": "MYSQL_PASSWORD",
	"mysql.database": "MYSQL_DATABASE",
	"mysql.dsn":      "DATABASE_URL",
	"mysql.timeout":  "MYSQL_TIMEOUT",
	"studio.port":    "STUDIO_PORT",
	"audit":          "TABLESMITH_AUDIT",
	"log.level":      "LOG_LEVEL",
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mysql.host", "127.0.0.1")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.user", "root")
	v.SetDefault("mysql.timeout", 5*time.Second)
	v.SetDefault("studio.port", "8080")
	v.SetDefault("audit", false)
	v.SetDefault("log.level", "info")

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
}

// Load reads configuration through the global viper instance, which the CLI
// binds its flags to.
func Load() (*Config, error) {
	utils.LoadEnv()
	return LoadFrom(viper.GetViper())
}

// LoadFrom resolves configuration from v. A missing config file is not an error.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("tablesmith")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/tablesmith")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{
		MySQL: MySQL{
			Host:     v.GetString("mysql.host"),
			Port:     v.GetInt("mysql.port"),
			User:     v.GetString("mysql.user"),
			Password: v.GetString("mysql.password"),
			Database: v.GetString("mysql.database"),
			DSN:      v.GetString("mysql.dsn"),
			Timeout:  v.GetDuration("mysql.timeout"),
		},
		StudioPort: v.GetString("studio.port"),
		Audit:      v.GetBool("audit"),
		LogLevel:   v.GetString("log.level"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MySQL.DSN != "" {
		return nil
	}
	if c.MySQL.Host == "" {
		return fmt.Errorf("mysql host is required (MYSQL_HOST or --host)")
	}
	if c.MySQL.Port <= 0 || c.MySQL.Port > 65535 {
		return fmt.Errorf("mysql port %d is out of range", c.MySQL.Port)
	}
	if c.MySQL.User == "" {
		return fmt.Errorf("mysql user is required (MYSQL_USER or --user)")
	}
	return nil
}
