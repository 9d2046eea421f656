// Package config builds the process configuration so main stays lean.
// Environment variables are the primary source; an optional YAML file
// fills in anything the environment leaves unset.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   Server   `yaml:"server"`
	Auth     Auth     `yaml:"auth"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Audit    Audit    `yaml:"audit"`
}

type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Auth struct {
	JWTSigningKey  string        `yaml:"jwt_signing_key"`
	Issuer         string        `yaml:"issuer"`
	Audience       string        `yaml:"audience"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
}

// Postgres is the primary store. An empty URL means in-memory stores, which
// keeps local development and unit tests free of external services.
type Postgres struct {
	URL          string        `yaml:"url"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnLifetime time.Duration `yaml:"conn_lifetime"`
}

type Redis struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type Audit struct {
	BufferSize   int      `yaml:"buffer_size"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
}

// Load reads CLINICORE_CONFIG (if set) as a YAML overlay, then applies
// environment variables on top. Defaults cover everything else.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CLINICORE_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func defaults() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: Auth{
			// Development fallback, override in production.
			JWTSigningKey:  "dev-secret-key-change-in-production",
			Issuer:         "clinicore",
			Audience:       "clinicore-api",
			AccessTokenTTL: 15 * time.Minute,
		},
		Postgres: Postgres{
			MaxOpenConns: 25,
			MaxIdleConns: 5,
			ConnLifetime: 30 * time.Minute,
		},
		Redis: Redis{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Audit: Audit{
			BufferSize: 1024,
			KafkaTopic: "clinicore.audit",
		},
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "CLINICORE_ADDR")
	setDuration(&cfg.Server.ShutdownTimeout, "CLINICORE_SHUTDOWN_TIMEOUT")

	setString(&cfg.Auth.JWTSigningKey, "JWT_SIGNING_KEY")
	setString(&cfg.Auth.Issuer, "JWT_ISSUER")
	setString(&cfg.Auth.Audience, "JWT_AUDIENCE")
	setDuration(&cfg.Auth.AccessTokenTTL, "JWT_ACCESS_TOKEN_TTL")

	setString(&cfg.Postgres.URL, "POSTGRES_URL")
	setInt(&cfg.Postgres.MaxOpenConns, "POSTGRES_MAX_OPEN_CONNS")
	setInt(&cfg.Postgres.MaxIdleConns, "POSTGRES_MAX_IDLE_CONNS")

	setString(&cfg.Redis.URL, "REDIS_URL")
	setInt(&cfg.Redis.PoolSize, "REDIS_POOL_SIZE")

	setInt(&cfg.Audit.BufferSize, "AUDIT_BUFFER_SIZE")
	setString(&cfg.Audit.KafkaTopic, "AUDIT_KAFKA_TOPIC")
	if v := os.Getenv("AUDIT_KAFKA_BROKERS"); v != "" {
		cfg.Audit.KafkaBrokers = splitList(v)
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
