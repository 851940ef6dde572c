package mcptype

import "encoding/json"

// ToolDescriptor is a tool as advertised by an upstream MCP server, before
// namespacing. Identity upstream is the pair (ServerName, Name).
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ServerName  string          `json:"-"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// ResourceDescriptor is a resource as advertised by an upstream MCP server.
type ResourceDescriptor struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ServerName  string `json:"-"`
}

// PromptDescriptor is a prompt as advertised by an upstream MCP server.
type PromptDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ServerName  string `json:"-"`
}
