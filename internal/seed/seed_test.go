package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/jdotsun/hierarchical-config-demo/internal/model"
	"github.com/jdotsun/hierarchical-config-demo/internal/storage"
)

func writeSeedFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write seed file: %v", err)
	}
	return path
}

func TestDefaultEndsWithDefaultScope(t *testing.T) {
	t.Parallel()

	d := Default()
	last := d.ScopeTypes[len(d.ScopeTypes)-1]
	if !last.IsDefault() {
		t.Fatalf("expected default scope last, got %+v", last)
	}
	for _, scope := range d.ScopeTypes[:len(d.ScopeTypes)-1] {
		if scope.Priority >= last.Priority {
			t.Fatalf("default scope must carry the maximum priority, %+v does not sort before it", scope)
		}
	}
	if err := d.validate(); err != nil {
		t.Fatalf("default data invalid: %v", err)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	t.Parallel()

	st := storage.New(nil)
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	d := Default()
	d.Values = []Value{{ConfigItemKey: "default_timeout", ScopeType: model.DefaultScope, Value: "30"}}

	for range 2 {
		if err := Apply(ctx, st, d, logger); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}

	if got := st.Scopes().List(ctx); len(got) != 5 {
		t.Fatalf("expected 5 scope types, got %d", len(got))
	}
	if got := st.Items().List(ctx); len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	if got := st.Values().List(ctx); len(got) != 1 || got[0].Value != "30" {
		t.Fatalf("expected one seeded value, got %v", got)
	}
}

func TestApplyKeepsExistingValues(t *testing.T) {
	t.Parallel()

	st := storage.New(nil)
	ctx := context.Background()
	d := Default()

	if err := Apply(ctx, st, d, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	key := model.ValueKey{ConfigItemKey: "default_timeout", ScopeType: model.DefaultScope}
	if err := st.Values().Set(ctx, model.ConfigValue{ConfigItemKey: key.ConfigItemKey, ScopeType: key.ScopeType, Value: "60"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	d.Values = []Value{{ConfigItemKey: "default_timeout", ScopeType: model.DefaultScope, Value: "30"}}
	if err := Apply(ctx, st, d, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got, _ := st.Values().Get(ctx, key); got.Value != "60" {
		t.Fatalf("expected operator value to survive reseeding, got %q", got.Value)
	}
}

func TestApplyRejectsInvalidValue(t *testing.T) {
	t.Parallel()

	d := Default()
	d.Values = []Value{{ConfigItemKey: "missing", ScopeType: model.DefaultScope, Value: "1"}}

	err := Apply(context.Background(), storage.New(nil), d, nil)
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := writeSeedFile(t, `
scope_types:
  - name: tenant
    priority: 5
  - name: default
    priority: 100
values:
  - config_item_key: welcome_message
    scope_type: default
    value: hello
`)

	d, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(d.ScopeTypes) != 2 || d.ScopeTypes[0].Name != "tenant" {
		t.Fatalf("unexpected scope types %v", d.ScopeTypes)
	}
	if len(d.ConfigItems) != len(Default().ConfigItems) {
		t.Fatalf("expected default items when the file omits them, got %v", d.ConfigItems)
	}
	if len(d.Values) != 1 || d.Values[0].Value != "hello" || d.Values[0].ScopeValue != "" {
		t.Fatalf("unexpected values %v", d.Values)
	}
}

func TestLoadFileErrors(t *testing.T) {
	t.Parallel()

	testCases := map[string]string{
		"malformed":      "scope_types: [",
		"missingDefault": "scope_types:\n  - name: account\n    priority: 10\n",
		"badValueType":   "config_items:\n  - key: risk\n    value_type: decimal\n",
		"defaultNotLast": "scope_types:\n  - name: default\n    priority: 5\n  - name: account\n    priority: 10\n",
		"defaultTied":    "scope_types:\n  - name: account\n    priority: 50\n  - name: default\n    priority: 50\n",
	}

	for name, contents := range testCases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFile(writeSeedFile(t, contents)); !errors.Is(err, ErrInvalidSeed) {
				t.Fatalf("expected ErrInvalidSeed, got %v", err)
			}
		})
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadExampleSeed(t *testing.T) {
	d, err := LoadFile(filepath.Join("..", "..", "configs", "seed.example.yaml"))
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if len(d.ScopeTypes) != 5 || len(d.ConfigItems) != 3 || len(d.Values) != 3 {
		t.Fatalf("unexpected example seed contents: %+v", d)
	}

	st := storage.New(nil, storage.WithLogger(zaptest.NewLogger(t)))
	if err := Apply(context.Background(), st, d, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	key := model.ValueKey{ConfigItemKey: "default_timeout", ScopeType: "model provider", ScopeValue: "acme"}
	if v, ok := st.Values().Get(context.Background(), key); !ok || v.Value != "60" {
		t.Fatalf("expected provider override 60, got %+v (%v)", v, ok)
	}
}
