package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the portal service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	CORSAllowedOrigins string
	BackendURL         string
	BackendTimeout     time.Duration
	DatabaseURL        string
	RedisURL           string
	NATSURL            string
	EventsChannel      string
	SessionSecret      string
	SessionTTL         time.Duration
	DashboardCacheTTL  time.Duration
	WorkspaceIdleTTL   time.Duration
	DefaultTeacherID   uint
	FanOutConcurrency  int
	RunRateLimit       int
	RunRateWindow      time.Duration
	UploadMaxMB        int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the portal runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CodeLab Portal")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.allowed_origins", "*")
	v.SetDefault("backend.timeout", "15s")
	v.SetDefault("events.channel", "codelab:events")
	v.SetDefault("session.ttl", "12h")
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("workspace.idle_ttl", "2h")
	v.SetDefault("default_teacher_id", 1)
	v.SetDefault("fanout.concurrency", 8)
	v.SetDefault("run.rate_limit", 20)
	v.SetDefault("run.rate_window", "1m")
	v.SetDefault("upload.max_mb", 50)

	durations := map[string]time.Duration{}
	for _, key := range []string{"backend.timeout", "session.ttl", "dashboard.cache_ttl", "workspace.idle_ttl", "run.rate_window"} {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("%s must be positive", key)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		CORSAllowedOrigins: v.GetString("cors.allowed_origins"),
		BackendURL:         strings.TrimRight(v.GetString("backend.url"), "/"),
		BackendTimeout:     durations["backend.timeout"],
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		EventsChannel:      v.GetString("events.channel"),
		SessionSecret:      v.GetString("session.secret"),
		SessionTTL:         durations["session.ttl"],
		DashboardCacheTTL:  durations["dashboard.cache_ttl"],
		WorkspaceIdleTTL:   durations["workspace.idle_ttl"],
		DefaultTeacherID:   v.GetUint("default_teacher_id"),
		FanOutConcurrency:  v.GetInt("fanout.concurrency"),
		RunRateLimit:       v.GetInt("run.rate_limit"),
		RunRateWindow:      durations["run.rate_window"],
		UploadMaxMB:        v.GetInt("upload.max_mb"),
	}

	if cfg.BackendURL == "" {
		return Config{}, fmt.Errorf("backend url must be provided")
	}
	if parsed, err := url.Parse(cfg.BackendURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Config{}, fmt.Errorf("backend url %q is not an absolute url", cfg.BackendURL)
	}

	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("session secret must be provided")
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("redis url must be provided")
	}

	if cfg.FanOutConcurrency <= 0 {
		cfg.FanOutConcurrency = 8
	}

	if cfg.RunRateLimit <= 0 {
		cfg.RunRateLimit = 20
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 50
	}

	return cfg, nil
}
