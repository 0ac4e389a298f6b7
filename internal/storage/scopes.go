package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/jdotsun/hierarchical-config-demo/internal/model"
)

type scopeEntry struct {
	scope model.ScopeType
	seq   uint64
}

// ScopeRegistry holds the scope types and their priority ordering.
type ScopeRegistry struct {
	st *Storage

	mu      sync.RWMutex
	byName  map[string]scopeEntry
	nextSeq uint64
}

func newScopeRegistry(st *Storage) *ScopeRegistry {
	return &ScopeRegistry{
		st:     st,
		byName: make(map[string]scopeEntry),
	}
}

// Add inserts scope unless a scope type with the same name exists. Only the
// first insert is persisted.
func (r *ScopeRegistry) Add(ctx context.Context, scope model.ScopeType) error {
	r.mu.Lock()
	if _, exists := r.byName[scope.Name]; exists {
		r.mu.Unlock()
		return nil
	}
	r.insertLocked(scope)
	r.mu.Unlock()

	if err := r.st.gw.SaveScopeType(ctx, scope); err != nil {
		return r.st.writeFailed("save scope type", err)
	}
	return nil
}

// List returns every scope type ascending by priority. Scope types sharing a
// priority keep their insertion order.
func (r *ScopeRegistry) List(ctx context.Context) []model.ScopeType {
	r.refresh(ctx)

	r.mu.RLock()
	entries := make([]scopeEntry, 0, len(r.byName))
	for _, e := range r.byName {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].scope.Priority != entries[j].scope.Priority {
			return entries[i].scope.Priority < entries[j].scope.Priority
		}
		return entries[i].seq < entries[j].seq
	})

	out := make([]model.ScopeType, len(entries))
	for i, e := range entries {
		out[i] = e.scope
	}
	return out
}

// Get looks a scope type up by name, refreshing from the gateway on a miss.
func (r *ScopeRegistry) Get(ctx context.Context, name string) (model.ScopeType, bool) {
	if scope, ok := r.lookup(name); ok {
		return scope, true
	}
	r.refresh(ctx)
	return r.lookup(name)
}

func (r *ScopeRegistry) lookup(name string) (model.ScopeType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byName[name]
	return e.scope, ok
}

func (r *ScopeRegistry) refresh(ctx context.Context) {
	scopes, err := r.st.gw.LoadScopeTypes(ctx)
	if err != nil {
		r.st.readFailed("load scope types", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, scope := range scopes {
		if e, exists := r.byName[scope.Name]; exists {
			e.scope = scope
			r.byName[scope.Name] = e
			continue
		}
		r.insertLocked(scope)
	}
}

func (r *ScopeRegistry) insertLocked(scope model.ScopeType) {
	r.byName[scope.Name] = scopeEntry{scope: scope, seq: r.nextSeq}
	r.nextSeq++
}
