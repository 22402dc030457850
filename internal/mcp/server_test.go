package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywire-labs/drone-nlp-gateway/internal/monitoring"
	"github.com/skywire-labs/drone-nlp-gateway/internal/security"
	"github.com/skywire-labs/drone-nlp-gateway/internal/session"
)

// harness wires a Server over a pair of pipes so tests can exchange raw
// JSON-RPC frames without touching a real stdin/stdout.
type harness struct {
	t       *testing.T
	in      *io.PipeWriter
	outR    *bufio.Reader
	server  *Server
	done    chan error
	apiKey  string
}

func newHarness(t *testing.T, minRole security.Role) *harness {
	t.Helper()
	auth := security.NewAuthenticator(
		[]byte("0123456789abcdef0123456789abcdef"),
		security.LockoutConfig{MaxFailedAttempts: 5, Window: time.Minute, Duration: time.Minute},
		security.RateLimitConfig{RequestsPerMinute: 6000, Burst: 6000},
		nil,
	)
	apiKey := "test-harness-api-key-24bytes"
	require.NoError(t, auth.RegisterAPIKey(apiKey, "tester", security.RoleAdmin, nil, nil))

	catalog := NewCatalog()
	catalog.RegisterTool(ToolDescriptor{
		Name:        "echo",
		Description: "echoes its input back",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"text": map[string]interface{}{"type": "string"}},
			"required":   []string{"text"},
		},
		MinRole: minRole,
		Handler: func(rctx *RequestContext, args map[string]interface{}) (interface{}, error) {
			return args, nil
		},
	})

	monitor := monitoring.NewRegistry(0)
	sessions := session.NewManager(time.Hour)
	logger := slog.New(slog.DiscardHandler)
	server := NewServer(Config{}, catalog, auth, monitor, sessions, logger)

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	h := &harness{t: t, in: inW, outR: bufio.NewReader(outR), server: server, done: make(chan error, 1), apiKey: apiKey}
	go func() {
		h.done <- server.Run(context.Background(), inR, outW)
	}()
	return h
}

func (h *harness) send(t *testing.T, v interface{}) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	_, err = h.in.Write(append(b, '\n'))
	require.NoError(t, err)
}

func (h *harness) recv(t *testing.T) Message {
	t.Helper()
	line, err := h.outR.ReadBytes('\n')
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(line, &msg))
	return msg
}

func (h *harness) close() {
	_ = h.in.Close()
}

func TestServer_RejectsRequestsBeforeInitialize(t *testing.T) {
	h := newHarness(t, security.RoleReadonly)
	defer h.close()

	h.send(t, Message{JSONRpc: "2.0", ID: 1, Method: "tools/list"})
	resp := h.recv(t)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32002, resp.Error.Code)
}

func TestServer_InitializeThenToolsList(t *testing.T) {
	h := newHarness(t, security.RoleReadonly)
	defer h.close()

	h.send(t, Message{JSONRpc: "2.0", ID: 1, Method: "initialize", Params: mustJSON(t, InitializeParams{
		ProtocolVersion: ProtocolVersion,
		Auth:            &AuthMaterial{APIKey: h.apiKey},
	})})
	initResp := h.recv(t)
	require.Nil(t, initResp.Error)

	h.send(t, Message{JSONRpc: "2.0", ID: 2, Method: "tools/list"})
	listResp := h.recv(t)
	require.Nil(t, listResp.Error)

	var result ListToolsResult
	require.NoError(t, json.Unmarshal(listResp.Result, &result))
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "echo", result.Tools[0].Name)
}

func TestServer_UnknownMethodReturnsMethodNotFound(t *testing.T) {
	h := newHarness(t, security.RoleReadonly)
	defer h.close()

	h.send(t, Message{JSONRpc: "2.0", ID: 1, Method: "initialize", Params: mustJSON(t, InitializeParams{
		Auth: &AuthMaterial{APIKey: h.apiKey},
	})})
	h.recv(t)

	h.send(t, Message{JSONRpc: "2.0", ID: 2, Method: "does/not/exist"})
	resp := h.recv(t)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32601, resp.Error.Code)
}

func TestServer_ToolCallWithMissingRequiredArgIsInvalidParams(t *testing.T) {
	h := newHarness(t, security.RoleReadonly)
	defer h.close()

	h.send(t, Message{JSONRpc: "2.0", ID: 1, Method: "initialize", Params: mustJSON(t, InitializeParams{
		Auth: &AuthMaterial{APIKey: h.apiKey},
	})})
	h.recv(t)

	h.send(t, Message{JSONRpc: "2.0", ID: 2, Method: "tools/call", Params: mustJSON(t, CallToolParams{
		Name: "echo", Arguments: map[string]interface{}{}, Auth: &AuthMaterial{APIKey: h.apiKey},
	})})
	resp := h.recv(t)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
}

func TestServer_ToolCallBelowMinRoleIsForbidden(t *testing.T) {
	h := newHarness(t, security.RoleSystem)
	defer h.close()

	h.send(t, Message{JSONRpc: "2.0", ID: 1, Method: "initialize", Params: mustJSON(t, InitializeParams{
		Auth: &AuthMaterial{APIKey: h.apiKey},
	})})
	h.recv(t)

	h.send(t, Message{JSONRpc: "2.0", ID: 2, Method: "tools/call", Params: mustJSON(t, CallToolParams{
		Name: "echo", Arguments: map[string]interface{}{"text": "hi"}, Auth: &AuthMaterial{APIKey: h.apiKey},
	})})
	resp := h.recv(t)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32003, resp.Error.Code)
}

func TestServer_ToolCallSucceeds(t *testing.T) {
	h := newHarness(t, security.RoleReadonly)
	defer h.close()

	h.send(t, Message{JSONRpc: "2.0", ID: 1, Method: "initialize", Params: mustJSON(t, InitializeParams{
		Auth: &AuthMaterial{APIKey: h.apiKey},
	})})
	h.recv(t)

	h.send(t, Message{JSONRpc: "2.0", ID: 2, Method: "tools/call", Params: mustJSON(t, CallToolParams{
		Name: "echo", Arguments: map[string]interface{}{"text": "hi"}, Auth: &AuthMaterial{APIKey: h.apiKey},
	})})
	resp := h.recv(t)
	require.Nil(t, resp.Error)
}

func TestServer_UnauthenticatedToolCallIsUnauthorized(t *testing.T) {
	h := newHarness(t, security.RoleReadonly)
	defer h.close()

	h.send(t, Message{JSONRpc: "2.0", ID: 1, Method: "initialize", Params: mustJSON(t, InitializeParams{
		Auth: &AuthMaterial{APIKey: h.apiKey},
	})})
	h.recv(t)

	h.send(t, Message{JSONRpc: "2.0", ID: 2, Method: "tools/call", Params: mustJSON(t, CallToolParams{
		Name: "echo", Arguments: map[string]interface{}{"text": "hi"},
	})})
	resp := h.recv(t)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32001, resp.Error.Code)
}

func TestServer_ShutdownDrainsThenEOFClosesRun(t *testing.T) {
	h := newHarness(t, security.RoleReadonly)

	h.send(t, Message{JSONRpc: "2.0", ID: 1, Method: "initialize", Params: mustJSON(t, InitializeParams{
		Auth: &AuthMaterial{APIKey: h.apiKey},
	})})
	h.recv(t)

	h.send(t, Message{JSONRpc: "2.0", ID: 2, Method: "shutdown"})
	resp := h.recv(t)
	require.Nil(t, resp.Error)

	h.close()
	select {
	case err := <-h.done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server.Run did not return after input closed")
	}
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
