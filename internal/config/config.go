package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultListenChannel = "promo_settings_change"

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all configuration (file + env overrides)
type Config struct {
	Server struct {
		Addr       string `mapstructure:"addr"`
		LogLevel   string `mapstructure:"log_level"`
		AdminToken string `mapstructure:"admin_token"`
	} `mapstructure:"server"`

	Storage struct {
		Driver     string `mapstructure:"driver"`
		SQLitePath string `mapstructure:"sqlite_path"`
	} `mapstructure:"storage"`

	Postgres struct {
		Host          string `mapstructure:"host"`
		Port          int    `mapstructure:"port"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		DBName        string `mapstructure:"db_name"`
		SSLMode       string `mapstructure:"ssl_mode"`
		MaxOpenConns  int    `mapstructure:"max_open_conns"`
		MaxIdleConns  int    `mapstructure:"max_idle_conns"`
		RunMigrations bool   `mapstructure:"run_migrations"`
	} `mapstructure:"postgres"`

	Listener struct {
		Channel          string `mapstructure:"channel"`
		ReconnectSeconds int    `mapstructure:"reconnect_seconds"`
	} `mapstructure:"listener"`

	Promo struct {
		Timezone          string `mapstructure:"timezone"`
		SessionTTLSeconds int    `mapstructure:"session_ttl_seconds"`
	} `mapstructure:"promo"`
}

// keys lists every setting so AutomaticEnv can resolve APP_SECTION_KEY
// variables even when no config file mentions them.
var keys = []string{
	"server.addr", "server.log_level", "server.admin_token",
	"storage.driver", "storage.sqlite_path",
	"postgres.host", "postgres.port", "postgres.user", "postgres.password", "postgres.db_name",
	"postgres.ssl_mode", "postgres.max_open_conns", "postgres.max_idle_conns", "postgres.run_migrations",
	"listener.channel", "listener.reconnect_seconds",
	"promo.timezone", "promo.session_ttl_seconds",
}

func Load() Config {
	cfg, err := LoadFrom("configs")
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadFrom reads application.yaml from dir (optional) and APP_* env overrides.
func LoadFrom(dir string) (Config, error) {
	v := viper.New()
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	_ = v.ReadInConfig() // optional; env can fully configure

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to decode config: %w", err)
	}
	validate(&cfg)
	if _, err := cfg.Location(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validate(c *Config) {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/promo.db"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Postgres.MaxOpenConns == 0 {
		c.Postgres.MaxOpenConns = 10
	}
	if c.Postgres.MaxIdleConns == 0 {
		c.Postgres.MaxIdleConns = 2
	}
	if c.Listener.Channel == "" {
		c.Listener.Channel = DefaultListenChannel
	}
	if c.Listener.ReconnectSeconds <= 0 {
		c.Listener.ReconnectSeconds = 5
	}
	if c.Promo.Timezone == "" {
		c.Promo.Timezone = "UTC"
	}
	if c.Promo.SessionTTLSeconds <= 0 {
		c.Promo.SessionTTLSeconds = 3600
	}
}

// DSN is the postgres URL for pgxpool and golang-migrate. Credentials are
// escaped.
func (c Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Postgres.User, c.Postgres.Password),
		Host:     net.JoinHostPort(c.Postgres.Host, strconv.Itoa(c.Postgres.Port)),
		Path:     "/" + c.Postgres.DBName,
		RawQuery: url.Values{"sslmode": {c.Postgres.SSLMode}}.Encode(),
	}
	return u.String()
}

func (c Config) Backoff() time.Duration { return time.Duration(c.Listener.ReconnectSeconds) * time.Second }

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.Promo.SessionTTLSeconds) * time.Second
}

// Location is the zone promo end dates are widened to end-of-day in.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Promo.Timezone)
	if err != nil {
		return nil, fmt.Errorf("promo timezone %q: %w", c.Promo.Timezone, err)
	}
	return loc, nil
}
