package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jdotsun/hierarchical-config-demo/internal/model"
)

// ValueStore holds the config values keyed by their composite identity.
type ValueStore struct {
	st *Storage

	mu    sync.RWMutex
	byKey map[model.ValueKey]model.ConfigValue
}

func newValueStore(st *Storage) *ValueStore {
	return &ValueStore{
		st:    st,
		byKey: make(map[model.ValueKey]model.ConfigValue),
	}
}

// Set upserts value by its composite key. The referenced item and scope type
// must exist; the default scope takes no scope value and every other scope
// requires one.
func (s *ValueStore) Set(ctx context.Context, value model.ConfigValue) error {
	if err := s.validate(ctx, value); err != nil {
		return err
	}

	s.mu.Lock()
	// ItemRegistry.Delete drops the item before purging its values, so an
	// item still present here cannot leave this value orphaned.
	if _, ok := s.st.items.lookup(value.ConfigItemKey); !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: unknown config item %q", model.ErrValidation, value.ConfigItemKey)
	}
	s.byKey[value.Key()] = value
	s.mu.Unlock()

	if err := s.st.gw.UpsertConfigValue(ctx, value); err != nil {
		return s.st.writeFailed("upsert config value", err)
	}
	return nil
}

func (s *ValueStore) validate(ctx context.Context, value model.ConfigValue) error {
	if _, ok := s.st.items.Get(ctx, value.ConfigItemKey); !ok {
		return fmt.Errorf("%w: unknown config item %q", model.ErrValidation, value.ConfigItemKey)
	}
	scope, ok := s.st.scopes.Get(ctx, value.ScopeType)
	if !ok {
		return fmt.Errorf("%w: unknown scope type %q", model.ErrValidation, value.ScopeType)
	}
	switch {
	case scope.IsDefault() && value.ScopeValue != "":
		return fmt.Errorf("%w: scope value must be empty for the %s scope", model.ErrValidation, model.DefaultScope)
	case !scope.IsDefault() && value.ScopeValue == "":
		return fmt.Errorf("%w: scope value is required for scope type %q", model.ErrValidation, scope.Name)
	}
	return nil
}

// Get returns the value stored under key.
func (s *ValueStore) Get(ctx context.Context, key model.ValueKey) (model.ConfigValue, bool) {
	s.refresh(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byKey[key]
	return v, ok
}

// List returns every stored value ordered by item, scope type and scope value.
func (s *ValueStore) List(ctx context.Context) []model.ConfigValue {
	return s.collect(ctx, func(model.ConfigValue) bool { return true })
}

// ListForItem returns the values stored for one config item.
func (s *ValueStore) ListForItem(ctx context.Context, itemKey string) []model.ConfigValue {
	return s.collect(ctx, func(v model.ConfigValue) bool { return v.ConfigItemKey == itemKey })
}

// Delete removes the value stored under key and reports whether it existed.
func (s *ValueStore) Delete(ctx context.Context, key model.ValueKey) (bool, error) {
	s.mu.Lock()
	_, existed := s.byKey[key]
	delete(s.byKey, key)
	s.mu.Unlock()

	removed, err := s.st.gw.DeleteConfigValue(ctx, key)
	if err != nil {
		return existed, s.st.writeFailed("delete config value", err)
	}
	return existed || removed, nil
}

func (s *ValueStore) collect(ctx context.Context, keep func(model.ConfigValue) bool) []model.ConfigValue {
	s.refresh(ctx)

	s.mu.RLock()
	out := make([]model.ConfigValue, 0, len(s.byKey))
	for _, v := range s.byKey {
		if keep(v) {
			out = append(out, v)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ConfigItemKey != b.ConfigItemKey {
			return a.ConfigItemKey < b.ConfigItemKey
		}
		if a.ScopeType != b.ScopeType {
			return a.ScopeType < b.ScopeType
		}
		return a.ScopeValue < b.ScopeValue
	})
	return out
}

// purgeItem drops every overlay value of itemKey and returns how many were dropped.
func (s *ValueStore) purgeItem(itemKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key := range s.byKey {
		if key.ConfigItemKey == itemKey {
			delete(s.byKey, key)
			n++
		}
	}
	return n
}

func (s *ValueStore) refresh(ctx context.Context) {
	values, err := s.st.gw.LoadConfigValues(ctx)
	if err != nil {
		s.st.readFailed("load config values", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range values {
		s.byKey[v.Key()] = v
	}
}
