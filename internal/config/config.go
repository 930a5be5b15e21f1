package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SecretEnv overrides auth.secret so the signing key can stay out of the config file.
const SecretEnv = "QUIZ_AUTH_SECRET"

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Auth struct {
		Secret   string `yaml:"secret"`
		TokenTTL string `yaml:"tokenTTL"`
	} `yaml:"auth"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Rooms struct {
		MaxRooms     int    `yaml:"maxRooms"`
		IdleTTL      string `yaml:"idleTTL"`
		ReapInterval string `yaml:"reapInterval"`
	} `yaml:"rooms"`
	Results struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"results"`
}

// Load reads YAML config from path and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if secret := os.Getenv(SecretEnv); secret != "" {
		cfg.Auth.Secret = secret
	}
	if cfg.Rooms.MaxRooms < 0 {
		return cfg, fmt.Errorf("rooms.maxRooms must not be negative, got %d", cfg.Rooms.MaxRooms)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
