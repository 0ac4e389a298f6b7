package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/jdotsun/hierarchical-config-demo/internal/model"
)

// ItemRegistry holds the declared config items.
type ItemRegistry struct {
	st *Storage

	mu    sync.RWMutex
	byKey map[string]model.ConfigItem
}

func newItemRegistry(st *Storage) *ItemRegistry {
	return &ItemRegistry{
		st:    st,
		byKey: make(map[string]model.ConfigItem),
	}
}

// Add registers item unless its key is already taken and reports whether it
// was newly created.
func (r *ItemRegistry) Add(ctx context.Context, item model.ConfigItem) (bool, error) {
	if err := item.Validate(); err != nil {
		return false, err
	}

	r.mu.Lock()
	if _, exists := r.byKey[item.Key]; exists {
		r.mu.Unlock()
		return false, nil
	}
	r.byKey[item.Key] = item
	r.mu.Unlock()

	if err := r.st.gw.SaveConfigItem(ctx, item); err != nil {
		return true, r.st.writeFailed("save config item", err)
	}
	return true, nil
}

// Get returns the item for key, refreshing from the gateway on a miss.
func (r *ItemRegistry) Get(ctx context.Context, key string) (model.ConfigItem, bool) {
	if item, ok := r.lookup(key); ok {
		return item, true
	}
	r.refresh(ctx)
	return r.lookup(key)
}

// List returns every config item sorted by key.
func (r *ItemRegistry) List(ctx context.Context) []model.ConfigItem {
	r.refresh(ctx)

	r.mu.RLock()
	out := make([]model.ConfigItem, 0, len(r.byKey))
	for _, item := range r.byKey {
		out = append(out, item)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Delete removes the item and every value keyed to it. It reports whether
// anything was removed from the overlay or the gateway.
func (r *ItemRegistry) Delete(ctx context.Context, key string) (bool, error) {
	r.mu.Lock()
	_, existed := r.byKey[key]
	delete(r.byKey, key)
	r.mu.Unlock()

	purged := r.st.values.purgeItem(key)

	removed, err := r.st.gw.DeleteConfigItem(ctx, key)
	if err != nil {
		return existed || purged > 0, r.st.writeFailed("delete config item", err)
	}
	return existed || removed, nil
}

func (r *ItemRegistry) lookup(key string) (model.ConfigItem, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byKey[key]
	return item, ok
}

func (r *ItemRegistry) refresh(ctx context.Context) {
	items, err := r.st.gw.LoadConfigItems(ctx)
	if err != nil {
		r.st.readFailed("load config items", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.byKey[item.Key] = item
	}
}
