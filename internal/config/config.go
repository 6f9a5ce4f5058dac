package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Log        LogConfig        `mapstructure:"log"`
	Payment    PaymentConfig    `mapstructure:"payment"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type HTTPConfig struct {
	Port           string  `mapstructure:"port"`
	AuthRateLimit  float64 `mapstructure:"auth_rate_limit"`
	AllowedOrigins string  `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type PaymentConfig struct {
	// CommissionBps is the platform cut in basis points (1000 = 10%)
	CommissionBps int64 `mapstructure:"commission_bps"`
}

type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

type AggregatorConfig struct {
	// Interval is an asynq cron spec such as "@every 1h"
	Interval    string        `mapstructure:"interval"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`
	Concurrency int           `mapstructure:"concurrency"`
}

var defaults = map[string]any{
	"app.name":               "taskmarket",
	"app.env":                "development",
	"http.port":              "8080",
	"http.auth_rate_limit":   20,
	"http.allowed_origins":   "*",
	"database.host":          "localhost",
	"database.port":          "5432",
	"database.user":          "postgres",
	"database.password":      "",
	"database.name":          "taskmarket",
	"database.sslmode":       "disable",
	"database.max_conns":     10,
	"redis.addr":             "127.0.0.1:6379",
	"redis.password":         "",
	"redis.db":               0,
	"jwt.secret":             "supersecret",
	"jwt.expire_hours":       72,
	"log.level":              "info",
	"log.format":             "console",
	"payment.commission_bps": 1000,
	"kafka.brokers":          "",
	"kafka.topic":            "taskmarket-events",
	"aggregator.interval":    "@every 1h",
	"aggregator.lock_ttl":    "10m",
	"aggregator.concurrency": 5,
}

// Load reads configuration from an optional YAML file, a .env file and the
// environment. Environment keys are the upper-cased dotted path with dots
// replaced by underscores, e.g. DATABASE_HOST or JWT_SECRET.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Payment.CommissionBps < 0 || c.Payment.CommissionBps > 10000 {
		return fmt.Errorf("payment.commission_bps must be within 0..10000, got %d", c.Payment.CommissionBps)
	}
	if c.JWT.ExpireHours <= 0 {
		return fmt.Errorf("jwt.expire_hours must be positive")
	}
	if c.IsProduction() && c.JWT.Secret == defaults["jwt.secret"] {
		return fmt.Errorf("jwt.secret must be set in production")
	}
	return nil
}

// IsProduction reports whether internals must be hidden from error responses
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return ":" + c.HTTP.Port
}

// TokenTTL returns the lifetime of issued tokens
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.ExpireHours) * time.Hour
}

// KafkaBrokers splits the comma separated broker list
func (c *Config) KafkaBrokers() []string {
	return splitList(c.Kafka.Brokers)
}

// AllowedOrigins splits the comma separated origin list used for CORS and
// websocket upgrades
func (c *Config) AllowedOrigins() []string {
	return splitList(c.HTTP.AllowedOrigins)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DSN builds the Postgres connection string
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}
