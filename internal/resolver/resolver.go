// Package resolver implements most-specific-wins resolution of config values
// against the scope hierarchy.
package resolver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jdotsun/hierarchical-config-demo/internal/coercion"
	"github.com/jdotsun/hierarchical-config-demo/internal/model"
)

// Option configures the resolver.
type Option func(*scopeResolver)

// WithLogger sets the logger used to trace matched scopes.
func WithLogger(logger *zap.Logger) Option {
	return func(r *scopeResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver registers an observer for resolution outcomes.
func WithObserver(observer Observer) Option {
	return func(r *scopeResolver) {
		r.observer = observer
	}
}

type scopeResolver struct {
	scopes   ScopeLister
	items    ItemGetter
	values   ValueLister
	logger   *zap.Logger
	observer Observer
}

// New creates a Resolver over the given registries.
func New(scopes ScopeLister, items ItemGetter, values ValueLister, opts ...Option) Resolver {
	r := &scopeResolver{
		scopes: scopes,
		items:  items,
		values: values,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *scopeResolver) Resolve(ctx context.Context, itemKey string, props model.Properties) (Resolution, bool, error) {
	start := time.Now()

	item, ok := r.items.Get(ctx, itemKey)
	if !ok {
		r.observe(OutcomeUnknown, start)
		return Resolution{}, false, fmt.Errorf("%w: config item %q", model.ErrNotFound, itemKey)
	}

	stored := make(map[model.ValueKey]string)
	for _, v := range r.values.ListForItem(ctx, itemKey) {
		stored[v.Key()] = v.Value
	}

	for _, scope := range r.scopes.List(ctx) {
		key := model.ValueKey{ConfigItemKey: itemKey, ScopeType: scope.Name}
		if !scope.IsDefault() {
			v, applies := props.Lookup(scope.Name)
			if !applies {
				continue
			}
			key.ScopeValue = v
		}

		raw, hit := stored[key]
		if !hit {
			continue
		}

		r.logger.Debug("resolved config value",
			zap.String("config_item_key", itemKey),
			zap.String("scope_type", key.ScopeType),
			zap.String("scope_value", key.ScopeValue),
		)
		r.observe(OutcomeFound, start)
		return Resolution{
			Value:      coercion.Coerce(raw, item.ValueType),
			ScopeType:  key.ScopeType,
			ScopeValue: key.ScopeValue,
		}, true, nil
	}

	r.observe(OutcomeAbsent, start)
	return Resolution{}, false, nil
}

func (r *scopeResolver) observe(outcome string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveResolution(outcome, time.Since(start))
	}
}
