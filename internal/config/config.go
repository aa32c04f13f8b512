package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	RedisURL          string
	NATSURL           string
	EventSubject      string
	JWTSecret         string
	GradebookCacheTTL time.Duration
	SubmitRateLimit   int
	SubmitRateWindow  time.Duration
	AutoCloseEnabled  bool
	AutoCloseSchedule string
	AutoCloseGrace    time.Duration
	MaxFeedbackLength int
	SeedEnabled       bool
	SeedToken         string
	CORSOrigins       string
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
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	v.SetEnvPrefix("LMS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA LMS API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.subject", "lms")
	v.SetDefault("gradebook.cache_ttl", "5m")
	v.SetDefault("submit.rate_limit", 20)
	v.SetDefault("submit.rate_window", "1m")
	v.SetDefault("autoclose.enabled", true)
	v.SetDefault("autoclose.schedule", "*/5 * * * *")
	v.SetDefault("autoclose.grace", "0s")
	v.SetDefault("feedback.max_length", 1000)
	v.SetDefault("seed.enabled", false)
	v.SetDefault("cors.allow_origins", "*")

	ttl, err := parseDuration(v, "gradebook.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	window, err := parseDuration(v, "submit.rate_window")
	if err != nil {
		return Config{}, err
	}
	grace, err := parseDuration(v, "autoclose.grace")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		EventSubject:      strings.Trim(v.GetString("nats.subject"), "."),
		JWTSecret:         v.GetString("jwt.secret"),
		GradebookCacheTTL: ttl,
		SubmitRateLimit:   v.GetInt("submit.rate_limit"),
		SubmitRateWindow:  window,
		AutoCloseEnabled:  v.GetBool("autoclose.enabled"),
		AutoCloseSchedule: v.GetString("autoclose.schedule"),
		AutoCloseGrace:    grace,
		MaxFeedbackLength: v.GetInt("feedback.max_length"),
		SeedEnabled:       v.GetBool("seed.enabled"),
		SeedToken:         v.GetString("seed.token"),
		CORSOrigins:       v.GetString("cors.allow_origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.AutoCloseGrace < 0 {
		return Config{}, fmt.Errorf("autoclose grace must not be negative")
	}
	if cfg.SubmitRateLimit <= 0 {
		cfg.SubmitRateLimit = 20
	}
	if cfg.MaxFeedbackLength <= 0 {
		cfg.MaxFeedbackLength = 1000
	}
	if cfg.EventSubject == "" {
		cfg.EventSubject = "lms"
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	value, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
