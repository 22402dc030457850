package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/skywire-labs/drone-nlp-gateway/internal/apperrors"
)

// CreateRequest builds a JSON-RPC 2.0 request frame.
func CreateRequest(id interface{}, method string, params interface{}) (*Message, error) {
	raw, err := marshalOptional(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return &Message{JSONRpc: "2.0", ID: id, Method: method, Params: raw}, nil
}

// CreateResponse builds a JSON-RPC 2.0 success response frame.
func CreateResponse(id interface{}, result interface{}) (*Message, error) {
	raw, err := marshalOptional(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &Message{JSONRpc: "2.0", ID: id, Result: raw}, nil
}

// CreateErrorResponse builds a JSON-RPC 2.0 error response frame from a
// taxonomy error, per the mapping in internal/apperrors.
func CreateErrorResponse(id interface{}, err error) *Message {
	code, message, data := apperrors.ToJSONRPC(err)
	return &Message{
		JSONRpc: "2.0",
		ID:      id,
		Error: &RPCErrorObject{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

func marshalOptional(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ParseParams decodes msg.Params into target.
func ParseParams(msg *Message, target interface{}) error {
	if len(msg.Params) == 0 {
		return nil
	}
	return json.Unmarshal(msg.Params, target)
}
