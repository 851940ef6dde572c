package namespace

import "testing"

func TestRegisterAndResolve(t *testing.T) {
	m := New(ConflictSuffix)
	rec, err := m.RegisterToolName("read", "server-a", "files", nil)
	if err != nil {
		t.Fatalf("RegisterToolName: %v", err)
	}
	if rec.FullName != "files:read" {
		t.Fatalf("got %q", rec.FullName)
	}

	got, ok := m.Resolve("read")
	if !ok || got.FullName != rec.FullName {
		t.Fatalf("alias resolution failed: %v %v", got, ok)
	}

	got, ok = m.Resolve("server-a/read")
	if !ok || got.FullName != rec.FullName {
		t.Fatalf("server/tool alias resolution failed")
	}
}

func TestConflictSuffix(t *testing.T) {
	m := New(ConflictSuffix)
	recA, err := m.RegisterToolName("read", "a", "files", nil)
	if err != nil {
		t.Fatalf("register a: %v", err)
	}
	recB, err := m.RegisterToolName("read", "b", "files", nil)
	if err != nil {
		t.Fatalf("register b: %v", err)
	}

	if recA.FullName == recB.FullName {
		t.Fatal("expected distinct full names for conflicting tools")
	}
	if recB.FullName != "files:read_b" {
		t.Fatalf("expected server-derived suffix, got %q", recB.FullName)
	}
}

func TestConflictReject(t *testing.T) {
	m := New(ConflictReject)
	if _, err := m.RegisterToolName("read", "a", "files", nil); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := m.RegisterToolName("read", "b", "files", nil); err == nil {
		t.Fatal("expected reject policy to fail on collision")
	}
}

func TestConflictReplace(t *testing.T) {
	m := New(ConflictReplace)
	first, _ := m.RegisterToolName("read", "a", "files", nil)
	second, err := m.RegisterToolName("read", "b", "files", nil)
	if err != nil {
		t.Fatalf("register b: %v", err)
	}
	if first.FullName != second.FullName {
		t.Fatalf("replace should reuse the same full name: %q vs %q", first.FullName, second.FullName)
	}
	rec, ok := m.Resolve("files:read")
	if !ok || rec.ServerName != "b" {
		t.Fatalf("expected replaced record to belong to server b, got %+v ok=%v", rec, ok)
	}
}

func TestUnregisterRemovesAliases(t *testing.T) {
	m := New(ConflictSuffix)
	rec, _ := m.RegisterToolName("read", "a", "files", nil)
	m.Unregister(rec.FullName)

	if _, ok := m.Resolve(rec.FullName); ok {
		t.Fatal("expected full name to be gone after unregister")
	}
	if _, ok := m.Resolve("read"); ok {
		t.Fatal("expected alias to be gone after unregister")
	}
}

func TestCreateNamespaceCycleRejected(t *testing.T) {
	m := New(ConflictSuffix)
	if err := m.CreateNamespace("a", "", ""); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if err := m.CreateNamespace("b", "", "a"); err != nil {
		t.Fatalf("create b under a: %v", err)
	}
	// b already has parent a; attempting to register a under b with a
	// different parent would be a cycle. Verify depth/parent bookkeeping
	// instead, since a's parent is fixed at "" already.
	if err := m.CreateNamespace("a", "", "b"); err == nil {
		t.Fatal("expected error re-parenting an existing namespace")
	}
}

func TestMaxDepthEnforced(t *testing.T) {
	m := New(ConflictSuffix)
	m.maxDepth = 2
	if err := m.CreateNamespace("l1", "", ""); err != nil {
		t.Fatalf("create l1: %v", err)
	}
	if err := m.CreateNamespace("l2", "", "l1"); err != nil {
		t.Fatalf("create l2: %v", err)
	}
	if err := m.CreateNamespace("l3", "", "l2"); err == nil {
		t.Fatal("expected max depth to be enforced")
	}
}
