package plugin

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

type classifier interface{ Threshold() float64 }

// mockClassifier is a stand-in provider for registry tests.
type mockClassifier struct {
	threshold float64
}

func (m *mockClassifier) Threshold() float64 { return m.threshold }

func newMockClassifier(cfg map[string]any) (any, error) {
	return &mockClassifier{threshold: Float(cfg, "threshold", 0.5)}, nil
}

func TestRegistry_RegisterPanics(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		plugin  string
		factory Factory
	}{
		{"empty kind", "", "mock", newMockClassifier},
		{"empty name", KindVAD, "", newMockClassifier},
		{"nil factory", KindVAD, "mock", nil},
		{"duplicate", KindVAD, "dup", newMockClassifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			r.Register(KindVAD, "dup", newMockClassifier)

			defer func() {
				if recover() == nil {
					t.Errorf("Register(%q, %q) did not panic", tt.kind, tt.plugin)
				}
			}()
			r.Register(tt.kind, tt.plugin, tt.factory)
		})
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register(KindVAD, "mock", newMockClassifier)

	factory, ok := r.Get(KindVAD, "mock")
	if !ok || factory == nil {
		t.Fatal("Expected to find registered plugin")
	}
	instance, err := factory(map[string]any{"threshold": 0.7})
	if err != nil {
		t.Fatalf("Factory failed: %v", err)
	}
	if got := instance.(*mockClassifier).threshold; got != 0.7 {
		t.Errorf("threshold = %v, want 0.7", got)
	}

	if _, ok := r.Get(KindVAD, "nonexistent"); ok {
		t.Error("Expected to not find non-existent plugin")
	}
	if _, ok := r.Get("nonexistent", "mock"); ok {
		t.Error("Expected to not find plugin with non-existent kind")
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry()
	r.RegisterWithMetadata(&Plugin{Kind: KindVAD, Name: "silero", Factory: newMockClassifier, Version: "1.0.0"})
	r.RegisterWithMetadata(&Plugin{Kind: KindVAD, Name: "energy", Factory: newMockClassifier, Version: "1.0.0"})
	r.RegisterWithMetadata(&Plugin{Kind: KindSTT, Name: "spokestack", Factory: newMockClassifier, Version: "1.0.0"})

	var got []string
	for _, p := range r.List("") {
		got = append(got, p.Kind+"/"+p.Name)
	}
	want := []string{"stt/spokestack", "vad/energy", "vad/silero"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}

	if n := len(r.List(KindVAD)); n != 2 {
		t.Errorf("Expected 2 vad plugins, got %d", n)
	}
	if n := len(r.List("nonexistent")); n != 0 {
		t.Errorf("Expected 0 plugins for non-existent kind, got %d", n)
	}
	if kinds := r.ListKinds(); !reflect.DeepEqual(kinds, []string{KindSTT, KindVAD}) {
		t.Errorf("ListKinds() = %v", kinds)
	}

	r.Clear()
	if len(r.List("")) != 0 {
		t.Error("Expected 0 plugins after clear")
	}
}

func TestBuildFrom(t *testing.T) {
	r := NewRegistry()
	r.Register(KindVAD, "mock", newMockClassifier)
	r.Register(KindVAD, "broken", func(map[string]any) (any, error) {
		return nil, errors.New("model missing")
	})
	r.Register(KindVAD, "wrong", func(map[string]any) (any, error) {
		return "not a classifier", nil
	})

	c, err := BuildFrom[classifier](r, KindVAD, "mock", nil)
	if err != nil {
		t.Fatalf("BuildFrom(mock) error = %v", err)
	}
	if c.Threshold() != 0.5 {
		t.Errorf("default threshold = %v, want 0.5", c.Threshold())
	}

	for _, name := range []string{"missing", "broken", "wrong"} {
		if _, err := BuildFrom[classifier](r, KindVAD, name, nil); err == nil {
			t.Errorf("BuildFrom(%s) expected error", name)
		}
	}
}

func TestGlobalRegistry(t *testing.T) {
	saved := globalRegistry
	globalRegistry = NewRegistry()
	defer func() { globalRegistry = saved }()

	Register(KindSTT, "global-test", newMockClassifier)

	if _, ok := Get(KindSTT, "global-test"); !ok {
		t.Error("Expected to find globally registered plugin")
	}
	if p, ok := Lookup(KindSTT, "global-test"); !ok || p.Name != "global-test" {
		t.Errorf("Lookup() = %v, %v", p, ok)
	}
	if len(List(KindSTT)) != 1 {
		t.Errorf("Expected 1 global plugin, got %d", len(List(KindSTT)))
	}
	if _, err := Build[classifier](KindSTT, "global-test", nil); err != nil {
		t.Errorf("Build() error = %v", err)
	}
}

func TestValues(t *testing.T) {
	cfg := map[string]any{
		"name":      "energy",
		"threshold": 0.25,
		"rate":      16000,
		"rate64":    int64(8000),
		"delay":     "250ms",
		"fall":      500,
	}
	if got := String(cfg, "name", ""); got != "energy" {
		t.Errorf("String = %q", got)
	}
	if got := String(cfg, "rate", "x"); got != "x" {
		t.Errorf("String of int = %q, want default", got)
	}
	if got := Float(cfg, "rate", 0); got != 16000 {
		t.Errorf("Float of int = %v", got)
	}
	if got := Int(cfg, "threshold", 0); got != 0 {
		t.Errorf("Int of float = %v", got)
	}
	if got := Int(cfg, "rate64", 0); got != 8000 {
		t.Errorf("Int of int64 = %v", got)
	}
	if got := Duration(cfg, "delay", 0); got != 250*time.Millisecond {
		t.Errorf("Duration string = %v", got)
	}
	if got := Duration(cfg, "fall", 0); got != 500*time.Millisecond {
		t.Errorf("Duration ms = %v", got)
	}
	if got := Duration(cfg, "missing", time.Second); got != time.Second {
		t.Errorf("Duration default = %v", got)
	}
}
