package cuemap

import (
	"path/filepath"
	"testing"
)

func TestRouterDefaultTenantExists(t *testing.T) {
	r := NewRouter(testClock())
	e, ok := r.Engine(DefaultTenant)
	if !ok || e == nil {
		t.Fatal("expected default tenant to exist")
	}
}

func TestRouterUnknownTenantNotFound(t *testing.T) {
	r := NewRouter(testClock())
	_, ok := r.Engine("acme")
	if ok {
		t.Error("expected unknown tenant to be absent")
	}
}

func TestRouterCreateTenantIsolatesState(t *testing.T) {
	r := NewRouter(testClock())
	acme := r.CreateTenant("acme")
	other := r.CreateTenant("other")

	acme.Remember("acme secret", []string{"go"})

	if other.Store.Len() != 0 {
		t.Error("expected tenants to be isolated from each other")
	}
	if acme.Store.Len() != 1 {
		t.Error("expected acme's own record to be visible in its engine")
	}
}

func TestRouterCreateTenantIsIdempotent(t *testing.T) {
	r := NewRouter(testClock())
	first := r.CreateTenant("acme")
	first.Remember("content", []string{"go"})

	second := r.CreateTenant("acme")
	if second != first {
		t.Error("expected repeat CreateTenant to return the existing engine")
	}
	if second.Store.Len() != 1 {
		t.Error("expected state preserved across repeat CreateTenant calls")
	}
}

func TestRouterDropTenant(t *testing.T) {
	r := NewRouter(testClock())
	r.CreateTenant("acme")

	if !r.DropTenant("acme") {
		t.Error("expected DropTenant to succeed for an existing tenant")
	}
	if _, ok := r.Engine("acme"); ok {
		t.Error("expected tenant gone after drop")
	}
}

func TestRouterCannotDropDefaultTenant(t *testing.T) {
	r := NewRouter(testClock())
	if r.DropTenant(DefaultTenant) {
		t.Error("expected default tenant to be undroppable")
	}
	if _, ok := r.Engine(DefaultTenant); !ok {
		t.Error("expected default tenant to still exist")
	}
}

func TestRouterDropUnknownTenantFails(t *testing.T) {
	r := NewRouter(testClock())
	if r.DropTenant("nope") {
		t.Error("expected dropping an unknown tenant to fail")
	}
}

func TestRouterListTenantsSorted(t *testing.T) {
	r := NewRouter(testClock())
	r.CreateTenant("zebra")
	r.CreateTenant("apple")

	got := r.ListTenants()
	want := []string{"apple", DefaultTenant, "zebra"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected sorted tenant list %v, got %v", want, got)
		}
	}
}

func TestSnapshotPathLayout(t *testing.T) {
	got := SnapshotPath("/data", "acme")
	want := filepath.Join("/data", "snapshots", "acme.bin")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestRouterSaveAll(t *testing.T) {
	r := NewRouter(testClock())
	acme := r.CreateTenant("acme")
	acme.Remember("content", []string{"go"})

	dir := t.TempDir()
	if err := r.SaveAll(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reloaded := NewEngine(testClock())
	if err := reloaded.Load(SnapshotPath(dir, "acme")); err != nil {
		t.Fatalf("unexpected error loading saved tenant snapshot: %v", err)
	}
	if reloaded.Store.Len() != 1 {
		t.Errorf("expected 1 record in the reloaded tenant snapshot, got %d", reloaded.Store.Len())
	}
}
