// Package namespace implements the Namespace Manager: a forest of
// namespaces plus the full-name/alias registry used to resolve tool calls
// to a unique Record.
package namespace

import (
	"fmt"
	"sync"
	"time"

	"github.com/MrWong99/mcpcore/internal/mcp/validator"
)

// ConflictPolicy selects how register_tool_name resolves a full-name
// collision.
type ConflictPolicy int

const (
	// ConflictSuffix appends "_<server>" then "_<server>_<n>" until unique.
	// This is the default.
	ConflictSuffix ConflictPolicy = iota
	// ConflictReject fails registration outright on collision.
	ConflictReject
	// ConflictReplace evicts the incumbent Record.
	ConflictReplace
)

const defaultMaxDepth = 8

// Entry is one node in the namespace forest.
type Entry struct {
	Name        string
	Description string
	Parent      string
	Children    map[string]bool
	Tools       map[string]bool
}

// Record is a registered tool's bookkeeping entry: its full namespaced
// name, provenance, and execution counters.
type Record struct {
	FullName     string
	ServerName   string
	OriginalName string
	Namespace    string
	Validator    *validator.Validator
	Aliases      []string
	CreatedAt    time.Time

	mu          sync.Mutex
	ExecCount   int64
	ExecTimeSum time.Duration
}

// RecordExecution records one completed execution's duration for the
// registry's cumulative per-tool counters.
func (r *Record) RecordExecution(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ExecCount++
	r.ExecTimeSum += d
}

// Stats returns the current execution count and total time.
func (r *Record) Stats() (count int64, total time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ExecCount, r.ExecTimeSum
}

// Manager owns the namespace forest and the full-name/alias registry.
type Manager struct {
	mu         sync.RWMutex
	namespaces map[string]*Entry
	records    map[string]*Record // full name -> record
	aliases    map[string]string  // alias -> full name
	policy     ConflictPolicy
	maxDepth   int
}

// New returns an empty Manager using the given conflict policy.
func New(policy ConflictPolicy) *Manager {
	return &Manager{
		namespaces: make(map[string]*Entry),
		records:    make(map[string]*Record),
		aliases:    make(map[string]string),
		policy:     policy,
		maxDepth:   defaultMaxDepth,
	}
}

// CreateNamespace adds a namespace node. It fails if the name already
// exists with a different parent, if the parent is unknown, if it would
// create a cycle, or if it would exceed the configured max depth.
func (m *Manager) CreateNamespace(name, description, parent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.namespaces[name]; ok {
		if existing.Parent != parent {
			return fmt.Errorf("namespace %q already exists with a different parent", name)
		}
		return nil
	}

	depth := 1
	if parent != "" {
		parentEntry, ok := m.namespaces[parent]
		if !ok {
			return fmt.Errorf("parent namespace %q does not exist", parent)
		}
		if m.wouldCycle(parent, name) {
			return fmt.Errorf("creating namespace %q under %q would introduce a cycle", name, parent)
		}
		depth = m.depthOf(parent) + 1
		if depth > m.maxDepth {
			return fmt.Errorf("namespace %q would exceed max depth %d", name, m.maxDepth)
		}
		if parentEntry.Children == nil {
			parentEntry.Children = make(map[string]bool)
		}
		parentEntry.Children[name] = true
	}

	m.namespaces[name] = &Entry{
		Name:        name,
		Description: description,
		Parent:      parent,
		Children:    make(map[string]bool),
		Tools:       make(map[string]bool),
	}
	return nil
}

func (m *Manager) depthOf(name string) int {
	depth := 1
	for {
		e, ok := m.namespaces[name]
		if !ok || e.Parent == "" {
			return depth
		}
		name = e.Parent
		depth++
	}
}

func (m *Manager) wouldCycle(parent, candidateName string) bool {
	for n := parent; n != ""; {
		if n == candidateName {
			return true
		}
		e, ok := m.namespaces[n]
		if !ok {
			return false
		}
		n = e.Parent
	}
	return false
}

// RegisterToolName registers toolName from server under namespace,
// resolving any full-name collision per the Manager's ConflictPolicy, and
// returns the resulting Record.
func (m *Manager) RegisterToolName(toolName, server, ns string, v *validator.Validator) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.namespaces[ns]; !ok {
		m.namespaces[ns] = &Entry{Name: ns, Children: make(map[string]bool), Tools: make(map[string]bool)}
	}

	candidate := ns + ":" + toolName
	full := candidate

	if _, collision := m.records[candidate]; collision {
		switch m.policy {
		case ConflictReject:
			return nil, fmt.Errorf("tool name %q already registered in namespace %q", toolName, ns)
		case ConflictReplace:
			m.evictLocked(candidate)
			full = candidate
		default: // ConflictSuffix
			full = m.nextSuffixedNameLocked(candidate, server)
		}
	}

	rec := &Record{
		FullName:     full,
		ServerName:   server,
		OriginalName: toolName,
		Namespace:    ns,
		Validator:    v,
		CreatedAt:    time.Now(),
	}
	m.records[full] = rec
	m.namespaces[ns].Tools[full] = true

	// Aliases: bare tool name and "server/tool", created only if they
	// don't collide with an existing full name or alias.
	for _, alias := range []string{toolName, server + "/" + toolName} {
		if m.aliasAvailableLocked(alias) {
			m.aliases[alias] = full
			rec.Aliases = append(rec.Aliases, alias)
		}
	}

	return rec, nil
}

func (m *Manager) aliasAvailableLocked(alias string) bool {
	if _, ok := m.records[alias]; ok {
		return false
	}
	if _, ok := m.aliases[alias]; ok {
		return false
	}
	return true
}

func (m *Manager) nextSuffixedNameLocked(candidate, server string) string {
	suffixed := candidate + "_" + server
	if _, ok := m.records[suffixed]; !ok {
		return suffixed
	}
	for n := 2; ; n++ {
		attempt := fmt.Sprintf("%s_%s_%d", candidate, server, n)
		if _, ok := m.records[attempt]; !ok {
			return attempt
		}
	}
}

func (m *Manager) evictLocked(full string) {
	rec, ok := m.records[full]
	if !ok {
		return
	}
	for _, alias := range rec.Aliases {
		delete(m.aliases, alias)
	}
	delete(m.records, full)
	if ns, ok := m.namespaces[rec.Namespace]; ok {
		delete(ns.Tools, full)
	}
}

// Resolve maps a full name or alias to its Record.
func (m *Manager) Resolve(name string) (*Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if rec, ok := m.records[name]; ok {
		return rec, true
	}
	if full, ok := m.aliases[name]; ok {
		rec, ok := m.records[full]
		return rec, ok
	}
	return nil, false
}

// Unregister removes a full name's Record and every alias pointing to it.
func (m *Manager) Unregister(full string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked(full)
}

// ListRecords returns every currently registered Record.
func (m *Manager) ListRecords() []*Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out
}
