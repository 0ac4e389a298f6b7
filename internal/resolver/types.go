package resolver

import (
	"context"
	"time"

	"github.com/jdotsun/hierarchical-config-demo/internal/coercion"
	"github.com/jdotsun/hierarchical-config-demo/internal/model"
)

// Resolution is the override selected for a subject.
type Resolution struct {
	Value      coercion.Value
	ScopeType  string
	ScopeValue string
}

// Resolver selects the most specific stored override for a config item.
type Resolver interface {
	// Resolve returns ok == false when the item is known but no scope applies.
	// An unknown item is reported as an error wrapping model.ErrNotFound.
	Resolve(ctx context.Context, itemKey string, props model.Properties) (Resolution, bool, error)
}

// ScopeLister lists scope types ascending by priority.
type ScopeLister interface {
	List(ctx context.Context) []model.ScopeType
}

// ItemGetter looks config items up by key.
type ItemGetter interface {
	Get(ctx context.Context, key string) (model.ConfigItem, bool)
}

// ValueLister lists the stored values of one config item.
type ValueLister interface {
	ListForItem(ctx context.Context, itemKey string) []model.ConfigValue
}

// Observer receives the outcome and latency of every resolution.
type Observer interface {
	ObserveResolution(outcome string, elapsed time.Duration)
}

// Resolution outcomes reported to the Observer.
const (
	OutcomeFound   = "found"
	OutcomeAbsent  = "absent"
	OutcomeUnknown = "unknown_item"
)
