package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skywire-labs/drone-nlp-gateway/internal/apperrors"
	"github.com/skywire-labs/drone-nlp-gateway/internal/monitoring"
	"github.com/skywire-labs/drone-nlp-gateway/internal/schema"
	"github.com/skywire-labs/drone-nlp-gateway/internal/security"
	"github.com/skywire-labs/drone-nlp-gateway/internal/session"
)

// lifecycleState is the server's position in the created → initialized →
// serving → draining → closed state machine (spec §4.1).
type lifecycleState int32

const (
	stateCreated lifecycleState = iota
	stateInitialized
	stateServing
	stateDraining
	stateClosed
)

// Config is the subset of protocol.* configuration the server needs.
type Config struct {
	FrameMaxBytes  int
	IdleTimeoutS   int
	WorkerPoolSize int
}

// RequestContext is threaded through a dispatched call; handlers read the
// authenticated Principal and a cancellable context from it.
type RequestContext struct {
	Context   context.Context
	Principal security.Principal
	SourceIP  string
}

// Server is the explicit aggregate owning every protocol-facing
// sub-component: catalog, authenticator, monitor, and session store. It is
// constructed once, by reference, with no package-level globals and no
// back-pointers from its dependencies (spec §9).
type Server struct {
	cfg      Config
	catalog  *Catalog
	auth     *security.Authenticator
	monitor  *monitoring.Registry
	sessions *session.Manager
	logger   *slog.Logger

	transport *Stdio
	state     atomic.Int32
	workerSem chan struct{}
	wg        sync.WaitGroup
	validator *schema.Validator

	draining atomic.Bool
}

// NewServer wires a Server from its already-constructed sub-components.
func NewServer(cfg Config, catalog *Catalog, auth *security.Authenticator, monitor *monitoring.Registry, sessions *session.Manager, logger *slog.Logger) *Server {
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = 8
	}
	s := &Server{
		cfg:       cfg,
		catalog:   catalog,
		auth:      auth,
		monitor:   monitor,
		sessions:  sessions,
		logger:    logger,
		workerSem: make(chan struct{}, cfg.WorkerPoolSize),
		validator: schema.NewValidator(),
	}
	s.state.Store(int32(stateCreated))
	return s
}

// Run attaches the transport and services it until EOF, ctx cancellation,
// or a shutdown request completes draining.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	s.transport = NewStdio(r, w, s.cfg.FrameMaxBytes)

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		default:
		}

		msg, err := s.transport.Receive()
		if err == io.EOF {
			s.wg.Wait()
			s.sessions.CloseAll()
			return nil
		}
		if err != nil {
			// A malformed frame on an unkeyed id still gets a parse_error response.
			resp := CreateErrorResponse(nil, apperrors.New(apperrors.KindParseError, err.Error()))
			_ = s.transport.Send(resp)
			continue
		}

		if IsNotification(msg) {
			continue // no response expected; nothing in our catalog needs notification handling
		}

		s.dispatch(ctx, msg)
	}
}

// dispatch acquires a worker slot (non-blocking) and handles the request
// concurrently, replying with -32006 overloaded immediately when the pool
// is saturated (spec §5 backpressure rule).
func (s *Server) dispatch(ctx context.Context, msg *Message) {
	select {
	case s.workerSem <- struct{}{}:
	default:
		resp := CreateErrorResponse(msg.ID, apperrors.New(apperrors.KindOverloaded, "worker pool saturated"))
		_ = s.transport.Send(resp)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.workerSem }()

		start := time.Now()
		result, err := s.handle(ctx, msg)
		s.monitor.ObserveRPCLatency(msg.Method, time.Since(start))

		var resp *Message
		if err != nil {
			resp = CreateErrorResponse(msg.ID, err)
			s.monitor.IncRPCRequests(msg.Method, "error")
			if kind, ok := apperrors.As(err); ok && kind.Kind == apperrors.KindInternalError {
				s.monitor.RecordSecurityEvent(monitoring.SecurityEvent{
					Kind: "internal_error", Severity: monitoring.SeverityHigh,
					Description: err.Error(),
				})
			}
		} else {
			resp, err = CreateResponse(msg.ID, result)
			if err != nil {
				resp = CreateErrorResponse(msg.ID, apperrors.Wrap(apperrors.KindInternalError, "failed to encode response", err))
			}
			s.monitor.IncRPCRequests(msg.Method, "success")
		}

		if sendErr := s.transport.Send(resp); sendErr != nil {
			s.logger.Error("failed to send response", "method", msg.Method, "err", sendErr)
		}
	}()
}

// handle routes one request through the lifecycle/auth/authz/method chain
// described in spec §4.1's dispatch contract.
func (s *Server) handle(ctx context.Context, msg *Message) (interface{}, error) {
	if msg.Method != "initialize" && lifecycleState(s.state.Load()) == stateCreated {
		return nil, apperrors.New(apperrors.KindNotInitialized, "initialize must be the first request")
	}
	if lifecycleState(s.state.Load()) == stateDraining && msg.Method != "shutdown" {
		return nil, apperrors.New(apperrors.KindShuttingDown, "server is draining")
	}
	if lifecycleState(s.state.Load()) == stateClosed {
		return nil, apperrors.New(apperrors.KindShuttingDown, "server is closed")
	}

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(ctx, msg)
	case "tools/list":
		return s.handleToolsList(ctx, msg)
	case "tools/call":
		return s.handleToolsCall(ctx, msg)
	case "resources/list":
		return s.handleResourcesList(ctx, msg)
	case "resources/read":
		return s.handleResourcesRead(ctx, msg)
	case "shutdown":
		return s.handleShutdown(ctx, msg)
	default:
		return nil, apperrors.New(apperrors.KindMethodNotFound, fmt.Sprintf("unknown method: %s", msg.Method))
	}
}

func (s *Server) handleInitialize(ctx context.Context, msg *Message) (interface{}, error) {
	var params InitializeParams
	if err := ParseParams(msg, &params); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidParams, "malformed initialize params", err)
	}

	principal, err := s.authenticate(params.Auth, "")
	if err != nil {
		return nil, err
	}
	s.sessions.Open(principal)
	s.monitor.SetActiveSessions(s.sessions.Count())

	s.state.Store(int32(stateInitialized))
	s.state.Store(int32(stateServing))

	return InitializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo:      ServerInfo{Name: "drone-nlp-gateway", Version: "1.0.0"},
		Tools:           s.catalog.ListTools(),
		Resources:       s.catalog.ListResources(),
	}, nil
}

func (s *Server) handleToolsList(ctx context.Context, msg *Message) (interface{}, error) {
	return ListToolsResult{Tools: s.catalog.ListTools()}, nil
}

func (s *Server) handleToolsCall(ctx context.Context, msg *Message) (interface{}, error) {
	var params CallToolParams
	if err := ParseParams(msg, &params); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidParams, "malformed tools/call params", err)
	}

	desc, err := s.catalog.Tool(params.Name)
	if err != nil {
		return nil, apperrors.New(apperrors.KindMethodNotFound, err.Error())
	}

	if err := s.validator.Validate(desc.Name, desc.InputSchema, params.Arguments); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidParams, "arguments do not match the tool's input schema", err)
	}

	principal, err := s.authenticate(params.Auth, "")
	if err != nil {
		return nil, err
	}
	if principal.Role < desc.MinRole {
		return nil, apperrors.New(apperrors.KindForbidden, fmt.Sprintf("tool %s requires role >= %s", desc.Name, desc.MinRole))
	}

	// Rate-limit acquisition happens once per dispatched backend command,
	// inside the executor (spec §4.4) — not here, or a single tools/call
	// would consume more than one token against the same bucket.
	rctx := &RequestContext{Context: ctx, Principal: principal}
	result, err := desc.Handler(rctx, params.Arguments)
	if err != nil {
		return nil, err
	}
	return CallToolResult{Result: result}, nil
}

func (s *Server) handleResourcesList(ctx context.Context, msg *Message) (interface{}, error) {
	return ListResourcesResult{Resources: s.catalog.ListResources()}, nil
}

func (s *Server) handleResourcesRead(ctx context.Context, msg *Message) (interface{}, error) {
	var params ReadResourceParams
	if err := ParseParams(msg, &params); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidParams, "malformed resources/read params", err)
	}

	desc, err := s.catalog.Resource(params.URI)
	if err != nil {
		return nil, apperrors.New(apperrors.KindMethodNotFound, err.Error())
	}

	principal, err := s.authenticate(params.Auth, "")
	if err != nil {
		return nil, err
	}
	if principal.Role < desc.MinRole {
		return nil, apperrors.New(apperrors.KindForbidden, fmt.Sprintf("resource %s requires role >= %s", desc.URI, desc.MinRole))
	}

	rctx := &RequestContext{Context: ctx, Principal: principal}
	contents, err := desc.Handler(rctx)
	if err != nil {
		return nil, err
	}
	return ReadResourceResult{Contents: contents}, nil
}

func (s *Server) handleShutdown(ctx context.Context, msg *Message) (interface{}, error) {
	s.state.Store(int32(stateDraining))
	s.sessions.CloseAll()
	go func() {
		s.wg.Wait()
		s.state.Store(int32(stateClosed))
	}()
	return map[string]bool{"draining": true}, nil
}

// authenticate resolves AuthMaterial into a Principal via the security
// core, enforcing lockout before any credential check per spec §4.5.
func (s *Server) authenticate(material *AuthMaterial, sourceIP string) (security.Principal, error) {
	if material == nil {
		return security.Principal{}, apperrors.New(apperrors.KindUnauthorized, "missing credential")
	}
	principal, err := s.auth.Authenticate(security.Credential{
		APIKey:   material.APIKey,
		JWT:      material.JWT,
		SourceIP: sourceIP,
	})
	if err != nil {
		return security.Principal{}, err
	}
	return principal, nil
}
