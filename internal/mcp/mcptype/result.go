package mcptype

import "time"

// ResultKind classifies a ToolResult. Every execute_tool sequence ends in
// exactly one of KindSuccess or KindError.
type ResultKind string

const (
	KindSuccess  ResultKind = "success"
	KindError    ResultKind = "error"
	KindWarning  ResultKind = "warning"
	KindInfo     ResultKind = "info"
	KindProgress ResultKind = "progress"
	KindOutput   ResultKind = "output"
)

// ToolResult is one element of the lazy sequence execute_tool produces. A
// call yields zero or more non-terminal results (info/progress/output/
// warning) followed by exactly one terminal result (success or error).
type ToolResult struct {
	Kind        ResultKind
	Content     string
	ToolName    string
	ExecutionID string
	Timestamp   time.Time
	Metadata    map[string]any
}

// Terminal reports whether k ends an execute_tool sequence.
func (k ResultKind) Terminal() bool { return k == KindSuccess || k == KindError }

// Error kind tags used as ToolResult.Metadata["error_kind"] for stable
// machine-readable classification.
const (
	ErrKindConnection   = "connection_error"
	ErrKindToolNotFound = "tool_not_found"
	ErrKindExecution    = "execution_error"
	ErrKindInvalidInput = "invalid_input"
	ErrKindPermission   = "permission_denied"
)

// NewErrorResult builds a terminal error ToolResult tagged with kind.
func NewErrorResult(toolName, executionID, message, errKind string) ToolResult {
	return ToolResult{
		Kind:        KindError,
		Content:     message,
		ToolName:    toolName,
		ExecutionID: executionID,
		Timestamp:   time.Now(),
		Metadata:    map[string]any{"error_kind": errKind},
	}
}

// NewSuccessResult builds a terminal success ToolResult.
func NewSuccessResult(toolName, executionID, content string, metadata map[string]any) ToolResult {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return ToolResult{
		Kind:        KindSuccess,
		Content:     content,
		ToolName:    toolName,
		ExecutionID: executionID,
		Timestamp:   time.Now(),
		Metadata:    metadata,
	}
}

// NewProgressResult builds a non-terminal progress ToolResult.
func NewProgressResult(toolName, executionID, content string) ToolResult {
	return ToolResult{
		Kind:        KindProgress,
		Content:     content,
		ToolName:    toolName,
		ExecutionID: executionID,
		Timestamp:   time.Now(),
	}
}
