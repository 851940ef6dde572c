// Package permission implements the dual permission check execute_tool
// performs before routing a call: a caller-policy check plus the MCP
// server's own security policy (operation-type and path restrictions),
// grounded on the original tool_wrapper.py's check_permissions.
package permission

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MrWong99/mcpcore/internal/mcp/mcptype"
)

// CallerPolicy is the caller-supplied permission check (outside MCP's own
// security policy). A nil CallerPolicy always allows.
type CallerPolicy interface {
	CheckToolPermission(toolName string, args map[string]any) error
}

// operationKeywords maps an inferred operation type to the keywords that
// trigger it. Externalized to a table so it can be overridden without
// touching the checking logic.
var operationKeywords = map[string][]string{
	"read":    {"read", "get", "list", "show"},
	"write":   {"write", "create", "update", "edit"},
	"delete":  {"delete", "remove", "rm"},
	"execute": {"exec", "run"},
}

// InferOperation classifies a tool name into a coarse operation type using
// keyword heuristics. Returns "" if no keyword matches.
func InferOperation(toolName string) string {
	lower := strings.ToLower(toolName)
	for op, keywords := range operationKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return op
			}
		}
	}
	return ""
}

// isPathField reports whether a field name likely holds a filesystem path.
func isPathField(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "path") || strings.Contains(lower, "file")
}

// Check runs both the caller policy and the MCP security-policy checks.
// Both must pass.
func Check(caller CallerPolicy, policy mcptype.SecurityPolicy, toolName string, args map[string]any) error {
	if caller != nil {
		if err := caller.CheckToolPermission(toolName, args); err != nil {
			return fmt.Errorf("%w: %v", mcptype.ErrPermissionDenied, err)
		}
	}
	return checkSecurityPolicy(policy, toolName, args)
}

func checkSecurityPolicy(policy mcptype.SecurityPolicy, toolName string, args map[string]any) error {
	if len(policy.AllowedOperations) > 0 {
		if op := InferOperation(toolName); op != "" && !contains(policy.AllowedOperations, op) {
			return fmt.Errorf("%w: operation %q not permitted for tool %q", mcptype.ErrPermissionDenied, op, toolName)
		}
	}

	for field, val := range args {
		if !isPathField(field) {
			continue
		}
		path, ok := val.(string)
		if !ok {
			continue
		}
		if err := checkPath(policy, path); err != nil {
			return err
		}
	}
	return nil
}

func checkPath(policy mcptype.SecurityPolicy, path string) error {
	clean := filepath.Clean(path)

	for _, forbidden := range policy.ForbiddenPaths {
		if isWithin(clean, forbidden) {
			return fmt.Errorf("%w: path %q is forbidden", mcptype.ErrPermissionDenied, path)
		}
	}

	if len(policy.AllowedPaths) == 0 {
		return nil
	}
	for _, allowed := range policy.AllowedPaths {
		if isWithin(clean, allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: path %q is not within any allowed path", mcptype.ErrPermissionDenied, path)
}

func isWithin(path, boundary string) bool {
	cleanBoundary := filepath.Clean(boundary)
	rel, err := filepath.Rel(cleanBoundary, path)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
