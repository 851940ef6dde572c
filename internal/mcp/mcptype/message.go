// Package mcptype defines the wire and domain types shared across the MCP
// integration stack: JSON-RPC messages, tool/resource/prompt descriptors,
// tool execution results, and the error taxonomy every layer translates
// into.
package mcptype

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the MCP protocol version this client advertises during
// the initialize handshake.
const ProtocolVersion = "2024-11-05"

// Message is a single JSON-RPC 2.0 message: a request, a notification, or a
// response. Exactly one of the three shapes applies, distinguished by
// IsRequest/IsNotification/IsResponse.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *string         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("mcp: rpc error %d: %s", e.Code, e.Message)
}

// Standard and domain-extension JSON-RPC error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
	ErrCodeToolNotFound   = -32000
	ErrCodeResourceNotFnd = -32001
	ErrCodeSecurityError  = -32002
	ErrCodeTimeout        = -32003
)

// NewRequest builds a request Message with the given id, method, and
// already-marshaled params.
func NewRequest(id, method string, params json.RawMessage) Message {
	return Message{JSONRPC: "2.0", ID: &id, Method: method, Params: params}
}

// NewNotification builds a notification Message (no id, no response
// expected).
func NewNotification(method string, params json.RawMessage) Message {
	return Message{JSONRPC: "2.0", Method: method, Params: params}
}

// IsRequest reports whether m has both a method and an id.
func (m Message) IsRequest() bool { return m.Method != "" && m.ID != nil }

// IsNotification reports whether m has a method but no id.
func (m Message) IsNotification() bool { return m.Method != "" && m.ID == nil }

// IsResponse reports whether m has an id but no method.
func (m Message) IsResponse() bool { return m.Method == "" && m.ID != nil }

// Marshal serializes m to a single line of compact JSON, guaranteed free of
// embedded newlines so it can be safely framed with a trailing '\n' by a
// stdio transport.
func (m Message) Marshal() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal message: %w", err)
	}
	return b, nil
}

// ParseMessage parses a single line of JSON into a Message.
func ParseMessage(b []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("mcp: parse message: %w", err)
	}
	if m.JSONRPC != "2.0" {
		return Message{}, fmt.Errorf("%w: unsupported jsonrpc version %q", ErrProtocol, m.JSONRPC)
	}
	return m, nil
}
