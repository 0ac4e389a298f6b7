// Package gateway defines the durable persistence contract mirrored by the
// in-memory registries.
package gateway

import (
	"context"

	"github.com/jdotsun/hierarchical-config-demo/internal/model"
)

// Gateway is the durable backing store for scope types, config items and values.
// Any call may fail; callers decide whether to degrade or propagate.
type Gateway interface {
	LoadScopeTypes(ctx context.Context) ([]model.ScopeType, error)
	// SaveScopeType inserts the scope type unless one with the same name exists.
	SaveScopeType(ctx context.Context, scope model.ScopeType) error

	LoadConfigItems(ctx context.Context) ([]model.ConfigItem, error)
	// SaveConfigItem inserts the item unless one with the same key exists.
	SaveConfigItem(ctx context.Context, item model.ConfigItem) error
	// DeleteConfigItem removes the item and every value keyed to it.
	DeleteConfigItem(ctx context.Context, key string) (bool, error)

	LoadConfigValues(ctx context.Context) ([]model.ConfigValue, error)
	UpsertConfigValue(ctx context.Context, value model.ConfigValue) error
	DeleteConfigValue(ctx context.Context, key model.ValueKey) (bool, error)

	Close() error
}

// Nop is a Gateway that persists nothing (used when no database is configured).
type Nop struct{}

var _ Gateway = Nop{}

func (Nop) LoadScopeTypes(context.Context) ([]model.ScopeType, error) { return nil, nil }

func (Nop) SaveScopeType(context.Context, model.ScopeType) error { return nil }

func (Nop) LoadConfigItems(context.Context) ([]model.ConfigItem, error) { return nil, nil }

func (Nop) SaveConfigItem(context.Context, model.ConfigItem) error { return nil }

func (Nop) DeleteConfigItem(context.Context, string) (bool, error) { return false, nil }

func (Nop) LoadConfigValues(context.Context) ([]model.ConfigValue, error) { return nil, nil }

func (Nop) UpsertConfigValue(context.Context, model.ConfigValue) error { return nil }

func (Nop) DeleteConfigValue(context.Context, model.ValueKey) (bool, error) { return false, nil }

func (Nop) Close() error { return nil }
