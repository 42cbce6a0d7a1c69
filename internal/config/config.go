package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

type Config struct {
	Port    int    `mapstructure:"port"`
	AppEnv  string `mapstructure:"app_env"`
	AppURL  string `mapstructure:"app_url"`
	DB      DBConfig
	Session SessionConfig
	Redis   RedisConfig
	Log     LogConfig

	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DBConfig struct {
	Host     string `mapstructure:"db_host"`
	Port     string `mapstructure:"db_port"`
	User     string `mapstructure:"db_user"`
	Password string `mapstructure:"db_password"`
	Name     string `mapstructure:"db_name"`
	SSLMode  string `mapstructure:"db_sslmode"`
}

type SessionConfig struct {
	Secret string        `mapstructure:"jwt_secret"`
	TTL    time.Duration `mapstructure:"session_ttl"`
}

type RedisConfig struct {
	Addr       string        `mapstructure:"redis_addr"`
	Password   string        `mapstructure:"redis_password"`
	TopSubsTTL time.Duration `mapstructure:"top_subs_ttl"`
}

type LogConfig struct {
	Level string `mapstructure:"log_level"`
	File  string `mapstructure:"log_file"`
}

// DSN builds the key/value connection string understood by both pgx and lib/pq.
func (d DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("app_env", "development")
	v.SetDefault("app_url", "http://localhost:8080")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "readit")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("session_ttl", 10*time.Hour)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("top_subs_ttl", time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "app.log")
	v.SetDefault("cors_origins", "http://localhost:3000")
}

// Load reads configuration from the environment (and .env, if present).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Port:   v.GetInt("port"),
		AppEnv: v.GetString("app_env"),
		AppURL: strings.TrimRight(v.GetString("app_url"), "/"),
		DB: DBConfig{
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			Name:     v.GetString("db_name"),
			SSLMode:  v.GetString("db_sslmode"),
		},
		Session: SessionConfig{
			Secret: v.GetString("jwt_secret"),
			TTL:    v.GetDuration("session_ttl"),
		},
		Redis: RedisConfig{
			Addr:       v.GetString("redis_addr"),
			Password:   v.GetString("redis_password"),
			TopSubsTTL: v.GetDuration("top_subs_ttl"),
		},
		Log: LogConfig{
			Level: v.GetString("log_level"),
			File:  v.GetString("log_file"),
		},
		CORSOrigins: splitList(v.GetString("cors_origins")),
	}

	if cfg.Session.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid PORT: %d", cfg.Port)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
