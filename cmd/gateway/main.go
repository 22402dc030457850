// Command gateway is the drone-nlp-gateway process: it wires the protocol
// server, security core, monitoring core, command router, batch executor,
// and NLP pipeline together and serves JSON-RPC 2.0 over stdio until EOF
// or a signal.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/skywire-labs/drone-nlp-gateway/internal/backend"
	"github.com/skywire-labs/drone-nlp-gateway/internal/config"
	"github.com/skywire-labs/drone-nlp-gateway/internal/executor"
	"github.com/skywire-labs/drone-nlp-gateway/internal/gateway"
	"github.com/skywire-labs/drone-nlp-gateway/internal/mcp"
	"github.com/skywire-labs/drone-nlp-gateway/internal/monitoring"
	"github.com/skywire-labs/drone-nlp-gateway/internal/nlp"
	"github.com/skywire-labs/drone-nlp-gateway/internal/periodic"
	"github.com/skywire-labs/drone-nlp-gateway/internal/router"
	"github.com/skywire-labs/drone-nlp-gateway/internal/security"
	"github.com/skywire-labs/drone-nlp-gateway/internal/session"
	"github.com/skywire-labs/drone-nlp-gateway/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.Load(nil)
	if err != nil {
		logger.Error("configuration failed validation", "err", err)
		os.Exit(1)
	}

	if cfg.Monitoring.TracingEnabled {
		tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
		otel.SetTracerProvider(tp)
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	// Retention is enforced by ring-buffer eviction (capacity), not a time
	// window, so RetentionHours only documents the intended operating
	// scale; 0 here takes the registry's default capacity (10,000).
	monitor := monitoring.NewRegistry(0)
	ipFilter := security.NewIPFilter(cfg.Security.AllowedIPs, cfg.Security.BlockedIPs)
	auth := security.NewAuthenticator(
		[]byte(cfg.Security.JWTSecret),
		security.LockoutConfig{
			MaxFailedAttempts: cfg.Security.MaxFailedAttempts,
			Window:            5 * time.Minute,
			Duration:          time.Duration(cfg.Security.LockoutDurationMinutes) * time.Minute,
			Scope:             security.LockoutScopeCredential,
		},
		security.RateLimitConfig{
			RequestsPerMinute: cfg.Security.RateLimits.RequestsPerMinute,
			Burst:             cfg.Security.RateLimits.Burst,
		},
		ipFilter,
	)
	for _, u := range cfg.Security.Users {
		role, ok := security.ParseRole(u.Role)
		if !ok {
			logger.Error("unknown role in configured user", "principal_id", u.PrincipalID, "role", u.Role)
			os.Exit(1)
		}
		if err := auth.RegisterAPIKey(u.APIKey, u.PrincipalID, role, nil, nil); err != nil {
			logger.Error("failed to register api key", "principal_id", u.PrincipalID, "err", err)
			os.Exit(1)
		}
	}

	sessions := session.NewManager(30 * time.Minute)

	backendClient := backend.NewClient(backend.Config{
		BaseURL:   cfg.Backend.BaseURL,
		APIKey:    cfg.Backend.APIKey,
		TimeoutS:  cfg.Backend.TimeoutS,
		Telemetry: &telemetry.Settings{IsEnabled: cfg.Monitoring.TracingEnabled},
	})

	state := router.NewStateStore()
	exec := executor.New(executor.Config{
		Concurrency:    4,
		CommandTimeout: time.Duration(cfg.Backend.TimeoutS) * time.Second,
		MaxRetries:     cfg.Backend.MaxRetries,
	}, backendClient, monitor, auth)

	nlpCfg := nlp.Config{
		ConfidenceThreshold: cfg.NLP.ConfidenceThreshold,
		DefaultLanguage:     cfg.NLP.DefaultLanguage,
		Lexicon:             nlp.DefaultLexicon(),
	}

	deps := gateway.Deps{
		Backend:  backendClient,
		Exec:     exec,
		State:    state,
		NLP:      nlpCfg,
		Monitor:  monitor,
		Sessions: sessions,
	}

	catalog := mcp.NewCatalog()
	threat := security.NewThreatAnalyzer(monitor.Audit())
	gateway.RegisterTools(catalog, deps)
	gateway.RegisterResources(catalog, deps, threat)

	server := mcp.NewServer(mcp.Config{
		FrameMaxBytes:  cfg.Protocol.FrameMaxBytes,
		IdleTimeoutS:   cfg.Protocol.IdleTimeoutS,
		WorkerPoolSize: cfg.Protocol.WorkerPoolSize,
	}, catalog, auth, monitor, sessions, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	alertInterval := time.Duration(cfg.Monitoring.AlertEvaluationIntervalS) * time.Second
	go periodic.Run(ctx, alertInterval, func(now time.Time) {
		monitor.Alerts().Evaluate(map[string]float64{
			"active_sessions": float64(sessions.Count()),
		}, now)
	})
	go periodic.Run(ctx, 30*time.Second, threat.Evaluate)

	if err := server.Run(ctx, os.Stdin, os.Stdout); err != nil && err != context.Canceled {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}
