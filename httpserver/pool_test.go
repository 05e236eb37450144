package httpserver_test

import (
	"context"
	"testing"

	"github.com/sabouaram/httpengine/httpserver"
)

func newTestServer(t *testing.T, name string) httpserver.Server {
	t.Helper()
	srv, err := httpserver.New(httpserver.ServerConfig{Name: name})
	if err != nil {
		t.Fatalf("New(%q): %v", name, err)
	}
	return srv
}

func TestPool_AddGetHasLen(t *testing.T) {
	p := httpserver.NewPool()
	a := newTestServer(t, "a")

	if p.Has("a") {
		t.Fatal("expected empty pool to not have 'a'")
	}
	if err := p.Add(context.Background(), "a", a); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !p.Has("a") {
		t.Error("expected pool to have 'a' after Add")
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
	got, ok := p.Get("a")
	if !ok || got != a {
		t.Error("Get('a') did not return the registered server")
	}
}

func TestPool_AddReplacesAndStopsOldRunning(t *testing.T) {
	ctx := context.Background()
	p := httpserver.NewPool()

	first := newTestServer(t, "a")
	if err := p.Add(ctx, "a", first); err != nil {
		t.Fatalf("Add(first): %v", err)
	}
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start(first): %v", err)
	}

	second := newTestServer(t, "a")
	if err := p.Add(ctx, "a", second); err != nil {
		t.Fatalf("Add(second): %v", err)
	}

	if first.IsRunning() {
		t.Error("expected replaced server to be stopped")
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (replace, not append)", p.Len())
	}
}

func TestPool_RemoveStopsAndDeletes(t *testing.T) {
	ctx := context.Background()
	p := httpserver.NewPool()
	a := newTestServer(t, "a")

	_ = p.Add(ctx, "a", a)
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	p.Remove(ctx, "a")

	if p.Has("a") {
		t.Error("expected 'a' to be removed")
	}
	if a.IsRunning() {
		t.Error("expected removed server to be stopped")
	}
}

func TestPool_StartStopAndIsRunning(t *testing.T) {
	ctx := context.Background()
	p := httpserver.NewPool()
	a := newTestServer(t, "a")
	b := newTestServer(t, "b")
	_ = p.Add(ctx, "a", a)
	_ = p.Add(ctx, "b", b)

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !p.IsRunning(false) {
		t.Error("expected IsRunning(false) to be true when all servers running")
	}
	if !p.IsRunning(true) {
		t.Error("expected IsRunning(true) to be true when all servers running")
	}

	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.IsRunning(true) {
		t.Error("expected IsRunning(true) to be false once all servers stopped")
	}
}

func TestPool_WalkRunVisitsEveryEntry(t *testing.T) {
	ctx := context.Background()
	p := httpserver.NewPool()
	_ = p.Add(ctx, "a", newTestServer(t, "a"))
	_ = p.Add(ctx, "b", newTestServer(t, "b"))

	seen := map[string]bool{}
	p.WalkRun(func(name string, _ httpserver.Server) {
		seen[name] = true
	})

	if !seen["a"] || !seen["b"] {
		t.Errorf("WalkRun did not visit every entry: %v", seen)
	}
}

func TestPool_IsRunningOnEmptyPool(t *testing.T) {
	p := httpserver.NewPool()
	if p.IsRunning(false) || p.IsRunning(true) {
		t.Error("expected an empty pool to report not running")
	}
}
