// Package config loads the gateway's configuration surface (spec §6)
// from environment variables and validates it with the same
// struct-tag-driven validator the rest of the corpus uses.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// BackendConfig configures the outbound drone-fleet HTTP client.
type BackendConfig struct {
	BaseURL    string `validate:"required,url"`
	TimeoutS   int    `validate:"min=1"`
	MaxRetries int    `validate:"min=0"`
	APIKey     string
}

// UserConfig seeds one static API-key principal at startup.
type UserConfig struct {
	PrincipalID string
	APIKey      string `validate:"min=24"`
	Role        string `validate:"oneof=readonly operator admin system"`
}

// RateLimitConfig is the default per-principal token-bucket shape.
type RateLimitConfig struct {
	RequestsPerMinute int `validate:"min=1"`
	Burst             int `validate:"min=1"`
}

// SecurityConfig configures authentication, lockout, and IP filtering.
type SecurityConfig struct {
	JWTSecret              string `validate:"required,min=32"`
	Users                  []UserConfig
	RateLimits             RateLimitConfig
	MaxFailedAttempts      int `validate:"min=1"`
	LockoutDurationMinutes int `validate:"min=1"`
	AllowedIPs             []string
	BlockedIPs             []string
}

// NLPConfig configures the natural-language pipeline.
type NLPConfig struct {
	ConfidenceThreshold float64 `validate:"min=0,max=1"`
	DefaultLanguage     string  `validate:"required"`
}

// MonitoringConfig configures metrics, alerting, and the audit ring.
type MonitoringConfig struct {
	Enabled                  bool
	RetentionHours           int `validate:"min=1"`
	AlertEvaluationIntervalS int `validate:"min=1"`
	TracingEnabled           bool
}

// ProtocolConfig configures the stdio JSON-RPC transport and dispatcher.
type ProtocolConfig struct {
	FrameMaxBytes  int `validate:"min=1024"`
	IdleTimeoutS   int `validate:"min=1"`
	WorkerPoolSize int `validate:"min=1"`
}

// Config is the full gateway configuration surface.
type Config struct {
	Backend    BackendConfig
	Security   SecurityConfig
	NLP        NLPConfig
	Monitoring MonitoringConfig
	Protocol   ProtocolConfig
}

// Default returns the documented defaults; Load overlays environment
// variables on top of this before validating.
func Default() Config {
	return Config{
		Backend: BackendConfig{TimeoutS: 30, MaxRetries: 3},
		Security: SecurityConfig{
			RateLimits:             RateLimitConfig{RequestsPerMinute: 60, Burst: 60},
			MaxFailedAttempts:      5,
			LockoutDurationMinutes: 15,
		},
		NLP: NLPConfig{ConfidenceThreshold: 0.7, DefaultLanguage: "ja"},
		Monitoring: MonitoringConfig{
			Enabled: true, RetentionHours: 24, AlertEvaluationIntervalS: 30,
		},
		Protocol: ProtocolConfig{FrameMaxBytes: 1 << 20, IdleTimeoutS: 300, WorkerPoolSize: 8},
	}
}

// Load reads the gateway's configuration from environment variables,
// overlaying Default(), and validates the result. A missing or weak
// DRONE_GATEWAY_JWT_SECRET fails startup (spec §6).
func Load(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()

	if v := getenv("DRONE_GATEWAY_BACKEND_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := getenv("DRONE_GATEWAY_BACKEND_TIMEOUT_S"); v != "" {
		cfg.Backend.TimeoutS = atoiOr(v, cfg.Backend.TimeoutS)
	}
	if v := getenv("DRONE_GATEWAY_BACKEND_MAX_RETRIES"); v != "" {
		cfg.Backend.MaxRetries = atoiOr(v, cfg.Backend.MaxRetries)
	}
	cfg.Backend.APIKey = getenv("DRONE_GATEWAY_BACKEND_API_KEY")

	cfg.Security.JWTSecret = getenv("DRONE_GATEWAY_JWT_SECRET")
	if v := getenv("DRONE_GATEWAY_ALLOWED_IPS"); v != "" {
		cfg.Security.AllowedIPs = splitCSV(v)
	}
	if v := getenv("DRONE_GATEWAY_BLOCKED_IPS"); v != "" {
		cfg.Security.BlockedIPs = splitCSV(v)
	}
	if v := getenv("DRONE_GATEWAY_RATE_LIMIT_RPM"); v != "" {
		cfg.Security.RateLimits.RequestsPerMinute = atoiOr(v, cfg.Security.RateLimits.RequestsPerMinute)
	}
	if v := getenv("DRONE_GATEWAY_RATE_LIMIT_BURST"); v != "" {
		cfg.Security.RateLimits.Burst = atoiOr(v, cfg.Security.RateLimits.Burst)
	}
	if v := getenv("DRONE_GATEWAY_MAX_FAILED_ATTEMPTS"); v != "" {
		cfg.Security.MaxFailedAttempts = atoiOr(v, cfg.Security.MaxFailedAttempts)
	}
	if v := getenv("DRONE_GATEWAY_LOCKOUT_DURATION_MINUTES"); v != "" {
		cfg.Security.LockoutDurationMinutes = atoiOr(v, cfg.Security.LockoutDurationMinutes)
	}

	if v := getenv("DRONE_GATEWAY_NLP_CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.NLP.ConfidenceThreshold = f
		}
	}
	if v := getenv("DRONE_GATEWAY_NLP_DEFAULT_LANGUAGE"); v != "" {
		cfg.NLP.DefaultLanguage = v
	}

	if v := getenv("DRONE_GATEWAY_MONITORING_ENABLED"); v != "" {
		cfg.Monitoring.Enabled = v == "true" || v == "1"
	}
	if v := getenv("DRONE_GATEWAY_MONITORING_RETENTION_HOURS"); v != "" {
		cfg.Monitoring.RetentionHours = atoiOr(v, cfg.Monitoring.RetentionHours)
	}
	if v := getenv("DRONE_GATEWAY_TRACING_ENABLED"); v != "" {
		cfg.Monitoring.TracingEnabled = v == "true" || v == "1"
	}
	if v := getenv("DRONE_GATEWAY_ALERT_EVALUATION_INTERVAL_S"); v != "" {
		cfg.Monitoring.AlertEvaluationIntervalS = atoiOr(v, cfg.Monitoring.AlertEvaluationIntervalS)
	}

	if v := getenv("DRONE_GATEWAY_FRAME_MAX_BYTES"); v != "" {
		cfg.Protocol.FrameMaxBytes = atoiOr(v, cfg.Protocol.FrameMaxBytes)
	}
	if v := getenv("DRONE_GATEWAY_IDLE_TIMEOUT_S"); v != "" {
		cfg.Protocol.IdleTimeoutS = atoiOr(v, cfg.Protocol.IdleTimeoutS)
	}
	if v := getenv("DRONE_GATEWAY_WORKER_POOL_SIZE"); v != "" {
		cfg.Protocol.WorkerPoolSize = atoiOr(v, cfg.Protocol.WorkerPoolSize)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate runs struct-tag validation across the whole config tree.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg.Backend); err != nil {
		return fmt.Errorf("backend config: %w", err)
	}
	if err := validate.Struct(cfg.Security); err != nil {
		return fmt.Errorf("security config: %w", err)
	}
	for _, u := range cfg.Security.Users {
		if err := validate.Struct(u); err != nil {
			return fmt.Errorf("security.users[%s]: %w", u.PrincipalID, err)
		}
	}
	if err := validate.Struct(cfg.NLP); err != nil {
		return fmt.Errorf("nlp config: %w", err)
	}
	if err := validate.Struct(cfg.Monitoring); err != nil {
		return fmt.Errorf("monitoring config: %w", err)
	}
	if err := validate.Struct(cfg.Protocol); err != nil {
		return fmt.Errorf("protocol config: %w", err)
	}
	return nil
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
