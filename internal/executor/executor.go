package executor

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/skywire-labs/drone-nlp-gateway/internal/apperrors"
	"github.com/skywire-labs/drone-nlp-gateway/internal/backend"
	"github.com/skywire-labs/drone-nlp-gateway/internal/monitoring"
	"github.com/skywire-labs/drone-nlp-gateway/internal/router"
	"github.com/skywire-labs/drone-nlp-gateway/internal/security"
)

// Config tunes the executor (spec §5: default bounded concurrency 4).
type Config struct {
	Concurrency    int
	CommandTimeout time.Duration
	MaxRetries     int // 0 keeps the default retry schedule's attempt cap
}

func DefaultConfig() Config {
	return Config{Concurrency: 4, CommandTimeout: 10 * time.Second}
}

// Executor runs a BatchPlan against a backend client.
type Executor struct {
	cfg     Config
	backend *backend.Client
	monitor *monitoring.Registry
	auth    *security.Authenticator
	backoff backoffConfig
}

func New(cfg Config, client *backend.Client, monitor *monitoring.Registry, auth *security.Authenticator) *Executor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 10 * time.Second
	}
	backoff := defaultBackoff()
	if cfg.MaxRetries > 0 {
		backoff.MaxAttempts = cfg.MaxRetries + 1 // MaxRetries counts retries, not the initial attempt
	}
	return &Executor{cfg: cfg, backend: client, monitor: monitor, auth: auth, backoff: backoff}
}

// Run executes plan's commands with bounded concurrency, respecting
// DependsOn edges, and returns one ExecutionResult per command in
// submission order. Under FailurePolicyRollback, the results of any
// compensating commands follow the plan's results.
func (e *Executor) Run(ctx context.Context, plan *router.BatchPlan, principal security.Principal) []ExecutionResult {
	n := len(plan.Commands)
	results := make([]ExecutionResult, n)
	done := make(map[string]chan struct{}, n)
	for _, cmd := range plan.Commands {
		done[cmd.ID] = make(chan struct{})
	}

	var (
		wg       sync.WaitGroup
		sem      = make(chan struct{}, e.cfg.Concurrency)
		mu       sync.Mutex
		aborted  bool
	)

	shouldSkip := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return aborted
	}
	markAborted := func() {
		mu.Lock()
		aborted = true
		mu.Unlock()
	}

	for i, cmd := range plan.Commands {
		i, cmd := i, cmd
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(done[cmd.ID])

			for _, dep := range cmd.DependsOn {
				select {
				case <-done[dep]:
				case <-ctx.Done():
					results[i] = ExecutionResult{CommandID: cmd.ID, DroneID: cmd.DroneID, Action: cmd.Action, Skipped: true}
					return
				}
			}

			if ctx.Err() != nil || (shouldSkip() && plan.Policy == router.FailurePolicyStopOnError) {
				results[i] = ExecutionResult{CommandID: cmd.ID, DroneID: cmd.DroneID, Action: cmd.Action, Skipped: true}
				return
			}

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = ExecutionResult{CommandID: cmd.ID, DroneID: cmd.DroneID, Action: cmd.Action, Skipped: true}
				return
			}

			res := e.runOne(ctx, cmd, principal)
			results[i] = res
			if !res.Success && !res.Skipped && plan.Policy == router.FailurePolicyStopOnError {
				markAborted()
			}
		}()
	}

	wg.Wait()

	if plan.Policy == router.FailurePolicyRollback {
		results = append(results, e.rollback(ctx, plan, results, principal)...)
	}

	return results
}

// rollback implements FailurePolicyRollback's one documented compensation
// (spec §4.3): a drone left airborne by a failed command that followed its
// own takeoff gets a synthetic `land` issued against it. A drone is only
// compensated once per batch, and only if nothing already landed it.
func (e *Executor) rollback(ctx context.Context, plan *router.BatchPlan, results []ExecutionResult, principal security.Principal) []ExecutionResult {
	type droneRollupState struct {
		tookOff            bool
		landed             bool
		failedAfterTakeoff bool
	}
	states := make(map[string]*droneRollupState)

	for i, cmd := range plan.Commands {
		st, ok := states[cmd.DroneID]
		if !ok {
			st = &droneRollupState{}
			states[cmd.DroneID] = st
		}
		res := results[i]
		switch cmd.Action {
		case "takeoff":
			if res.Success {
				st.tookOff = true
			}
		case "land":
			if res.Success {
				st.landed = true
			}
		default:
			if st.tookOff && !res.Success && !res.Skipped {
				st.failedAfterTakeoff = true
			}
		}
	}

	var compensations []ExecutionResult
	for droneID, st := range states {
		if st.tookOff && st.failedAfterTakeoff && !st.landed {
			land := router.Command{
				ID:      fmt.Sprintf("rollback-land-%s", droneID),
				DroneID: droneID,
				Action:  "land",
				Method:  "POST",
				Path:    fmt.Sprintf("/drones/%s/land", droneID),
			}
			res := e.runOne(ctx, land, principal)
			res.Compensating = true
			compensations = append(compensations, res)
		}
	}
	return compensations
}

func (e *Executor) runOne(ctx context.Context, cmd router.Command, principal security.Principal) ExecutionResult {
	result := ExecutionResult{CommandID: cmd.ID, DroneID: cmd.DroneID, Action: cmd.Action, StartedAt: time.Now()}

	if allowed, retryAfter := e.auth.Allow(principal); !allowed {
		e.monitor.IncRateLimitRejections(principal.Role.String())
		result.Error = apperrors.New(apperrors.KindRateLimited, "rate limit exceeded for this command").WithRetry(retryAfter.Milliseconds())
		result.FinishedAt = time.Now()
		return result
	}

	e.monitor.RecordSecurityEvent(monitoring.SecurityEvent{
		Timestamp: result.StartedAt, Kind: "command_started", Severity: monitoring.SeverityLow,
		PrincipalID: principal.ID, Description: cmd.Action,
	})

	rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(len(cmd.ID))))
	ctxTimeout, cancel := context.WithTimeout(ctx, e.cfg.CommandTimeout)
	defer cancel()

	var lastErr error
	attempts := 0
	for attempts < e.backoff.MaxAttempts {
		attempts++
		req := backend.Request{Method: cmd.Method, Path: cmd.Path, Body: cmd.Args}
		var response map[string]interface{}
		err := e.backend.Call(ctxTimeout, req, &response)
		if err == nil {
			result.Success = true
			result.Response = response
			result.Attempts = attempts
			result.FinishedAt = time.Now()
			e.monitor.RecordSecurityEvent(monitoring.SecurityEvent{
				Timestamp: result.FinishedAt, Kind: "command_succeeded", Severity: monitoring.SeverityLow,
				PrincipalID: principal.ID, Description: cmd.Action,
			})
			return result
		}

		lastErr = err
		if !cmd.Idempotent || !apperrors.IsRetryable(err) || ctxTimeout.Err() != nil {
			break
		}
		select {
		case <-time.After(e.backoff.delay(attempts, rng)):
		case <-ctxTimeout.Done():
			lastErr = apperrors.New(apperrors.KindCancelled, "command cancelled during backoff")
			attempts = e.backoff.MaxAttempts
		}
	}

	result.Attempts = attempts
	result.Error = lastErr
	result.FinishedAt = time.Now()
	return result
}
