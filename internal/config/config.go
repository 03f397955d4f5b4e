package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/DoyleJ11/ddz-client/internal/identity"
)

type Config struct {
	ServerURL    string        `mapstructure:"server_url"`
	BridgeAddr   string        `mapstructure:"bridge_addr"`
	LogLevel     string        `mapstructure:"log_level"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	SummaryTTL   time.Duration `mapstructure:"summary_ttl"`

	IdentityBackend string `mapstructure:"identity_backend"`
	RedisAddr       string `mapstructure:"redis_addr"`
	RedisPassword   string `mapstructure:"redis_password"`
	RedisDB         int    `mapstructure:"redis_db"`
	RedisNamespace  string `mapstructure:"redis_namespace"`
	PostgresDSN     string `mapstructure:"postgres_dsn"`
}

var defaults = map[string]any{
	"server_url":       "http://localhost:8080",
	"bridge_addr":      "127.0.0.1:7070",
	"log_level":        "info",
	"dial_timeout":     "5s",
	"write_timeout":    "3s",
	"summary_ttl":      "10s",
	"identity_backend": identity.BackendMemory,
	"redis_addr":       "127.0.0.1:6379",
	"redis_password":   "",
	"redis_db":         0,
	"redis_namespace":  "ddz",
	"postgres_dsn":     "",
}

// Load reads .env files (missing ones are ignored) and then DDZ_* variables.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("DDZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: invalid server url %q", c.ServerURL)
	}
	switch c.IdentityBackend {
	case identity.BackendMemory, identity.BackendRedis:
	case identity.BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("config: postgres identity backend needs DDZ_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("config: unknown identity backend %q", c.IdentityBackend)
	}
	return nil
}

func (c Config) Identity() identity.Options {
	return identity.Options{
		Backend:        c.IdentityBackend,
		RedisAddr:      c.RedisAddr,
		RedisPassword:  c.RedisPassword,
		RedisDB:        c.RedisDB,
		RedisNamespace: c.RedisNamespace,
		PostgresDSN:    c.PostgresDSN,
	}
}
