package tools

import (
	"context"
	"encoding/json"
	"testing"
)

type fakeTool struct {
	name string
}

func (f *fakeTool) Name() string                { return f.name }
func (f *fakeTool) Description() string         { return "fake " + f.name }
func (f *fakeTool) Parameters() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (f *fakeTool) Execute(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func TestRegistry_GetAndDefs(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&fakeTool{name: "beta"})
	r.Register(&fakeTool{name: "alpha"})

	got, ok := r.Get("beta")
	if !ok {
		t.Fatal("expected beta to be registered")
	}
	if got.Name() != "beta" {
		t.Errorf("Get(beta).Name() = %q", got.Name())
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("expected missing tool lookup to fail")
	}

	defs := r.Defs()
	if len(defs) != 2 {
		t.Fatalf("defs = %d, want 2", len(defs))
	}
	// Registration order, not alphabetical.
	if defs[0].Name != "beta" || defs[1].Name != "alpha" {
		t.Errorf("defs order = [%s %s], want [beta alpha]", defs[0].Name, defs[1].Name)
	}
	if defs[0].Description != "fake beta" {
		t.Errorf("description = %q", defs[0].Description)
	}
}

func TestRegistry_ReRegisterReplaces(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&fakeTool{name: "alpha"})
	r.Register(&fakeTool{name: "alpha"})

	if len(r.Defs()) != 1 {
		t.Errorf("defs = %d, want 1 after re-register", len(r.Defs()))
	}
}
