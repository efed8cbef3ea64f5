package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds server configuration. Values come from defaults, then an
// optional YAML file, then environment overrides, in that order.
type Config struct {
	Addr      string `yaml:"addr"`
	DBPath    string `yaml:"db_path"`
	CachePath string `yaml:"cache_path"`

	ResendAPIKey string `yaml:"resend_api_key"`
	FromAddress  string `yaml:"from_address"`
	ReplyTo      string `yaml:"reply_to"`

	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
	StoreName     string `yaml:"store_name"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Addr:       ":8080",
		DBPath:     "restock.db",
		CachePath:  "restock-cache.db",
		AdminEmail: "manager@store.com",
	}
}

// Load builds the configuration. A missing file at path is not an error;
// an unreadable or malformed file is.
// POST: Returns a config with defaults applied and env overrides honored
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Addr, "RESTOCK_ADDR")
	setFromEnv(&c.DBPath, "RESTOCK_DB")
	setFromEnv(&c.CachePath, "RESTOCK_CACHE")
	setFromEnv(&c.ResendAPIKey, "RESTOCK_RESEND_KEY")
	setFromEnv(&c.FromAddress, "RESTOCK_FROM")
	setFromEnv(&c.ReplyTo, "RESTOCK_REPLY_TO")
	setFromEnv(&c.AdminEmail, "RESTOCK_ADMIN_EMAIL")
	setFromEnv(&c.AdminPassword, "RESTOCK_ADMIN_PASSWORD")
	setFromEnv(&c.StoreName, "RESTOCK_STORE_NAME")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
