// Package mcp implements the gateway's JSON-RPC-2.0-over-stdio protocol
// server: frame decoding, the fixed tool/resource catalog, and request
// dispatch.
package mcp

import (
	"encoding/json"

	"github.com/skywire-labs/drone-nlp-gateway/internal/security"
)

// ProtocolVersion identifies the wire protocol this server speaks.
const ProtocolVersion = "2024-11-05"

// Message is a generic JSON-RPC 2.0 frame. Requests carry Method+ID;
// notifications carry Method with no ID; responses carry Result or Error.
type Message struct {
	JSONRpc string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCErrorObject `json:"error,omitempty"`
}

// RPCErrorObject is the JSON-RPC `error` member.
type RPCErrorObject struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// IsRequest reports whether msg is a request (has method and id).
func IsRequest(msg *Message) bool { return msg.Method != "" && msg.ID != nil }

// IsNotification reports whether msg is a notification (method, no id).
func IsNotification(msg *Message) bool { return msg.Method != "" && msg.ID == nil }

// ToolDescriptor is an immutable catalog entry for one tool (spec §3).
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
	MinRole     security.Role
	Handler     ToolHandler
}

// ResourceDescriptor is an immutable catalog entry for one read-only resource.
type ResourceDescriptor struct {
	URI         string
	Description string
	MimeType    string
	MinRole     security.Role
	Handler     ResourceHandler
}

// ToolHandler executes a tool call and returns its result payload.
type ToolHandler func(ctx *RequestContext, args map[string]interface{}) (interface{}, error)

// ResourceHandler reads a resource and returns its contents.
type ResourceHandler func(ctx *RequestContext) (interface{}, error)

// ClientInfo identifies the connecting peer during initialize.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo identifies this server during initialize.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// AuthMaterial is the credential payload accepted either in a call's
// `params._auth`, including the `_auth` member of `initialize`'s params (spec §6).
type AuthMaterial struct {
	APIKey string `json:"api_key,omitempty"`
	JWT    string `json:"jwt,omitempty"`
}

// InitializeParams is the payload of the first request a peer must send.
type InitializeParams struct {
	ProtocolVersion string          `json:"protocolVersion"`
	ClientInfo      ClientInfo      `json:"clientInfo"`
	Auth            *AuthMaterial   `json:"_auth,omitempty"`
}

// InitializeResult answers an initialize request with the advertised catalog.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Tools           []ToolInfo   `json:"tools"`
	Resources       []ResourceInfo `json:"resources"`
}

// ToolInfo is the wire representation of a ToolDescriptor.
type ToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ResourceInfo is the wire representation of a ResourceDescriptor.
type ResourceInfo struct {
	URI         string `json:"uri"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ListToolsResult is the result of tools/list.
type ListToolsResult struct {
	Tools []ToolInfo `json:"tools"`
}

// CallToolParams is the params of tools/call.
type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
	Auth      *AuthMaterial          `json:"_auth,omitempty"`
}

// CallToolResult is the result of tools/call.
type CallToolResult struct {
	Result interface{} `json:"result"`
}

// ListResourcesResult is the result of resources/list.
type ListResourcesResult struct {
	Resources []ResourceInfo `json:"resources"`
}

// ReadResourceParams is the params of resources/read.
type ReadResourceParams struct {
	URI  string        `json:"uri"`
	Auth *AuthMaterial `json:"_auth,omitempty"`
}

// ReadResourceResult is the result of resources/read.
type ReadResourceResult struct {
	Contents interface{} `json:"contents"`
}
