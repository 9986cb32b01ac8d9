package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the admissions API.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	DatabaseURL        string
	RedisURL           string
	NATSURL            string
	EventChannel       string
	JWTSecret          string
	ProgramCacheTTL    time.Duration
	NumberFallbackCode string
	WriteRateLimit     int
	WriteRateWindow    time.Duration
	CORSAllowOrigins   string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ADMISSION")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Admission API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.channel", "admission")
	v.SetDefault("program.cache_ttl", "10m")
	v.SetDefault("numbering.fallback_code", "GEN")
	v.SetDefault("rate_limit.write_max", 30)
	v.SetDefault("rate_limit.write_window", "1m")
	v.SetDefault("cors.allow_origins", "*")

	ttl, err := parseDuration(v.GetString("program.cache_ttl"), 10*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid program cache ttl: %w", err)
	}

	window, err := parseDuration(v.GetString("rate_limit.write_window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid write rate window: %w", err)
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		EventChannel:       v.GetString("events.channel"),
		JWTSecret:          v.GetString("jwt.secret"),
		ProgramCacheTTL:    ttl,
		NumberFallbackCode: strings.ToUpper(strings.TrimSpace(v.GetString("numbering.fallback_code"))),
		WriteRateLimit:     v.GetInt("rate_limit.write_max"),
		WriteRateWindow:    window,
		CORSAllowOrigins:   v.GetString("cors.allow_origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	if cfg.WriteRateLimit <= 0 {
		cfg.WriteRateLimit = 30
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
