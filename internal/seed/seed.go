// Package seed provides the bootstrap scope types and config items, loads
// replacements from YAML and applies them to the storage overlays.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jdotsun/hierarchical-config-demo/internal/model"
	"github.com/jdotsun/hierarchical-config-demo/internal/storage"
)

// ErrInvalidSeed indicates the seed file could not be used.
var ErrInvalidSeed = errors.New("invalid seed data")

// Value is a config value as written in a seed file. ScopeValue stays empty
// for the default scope.
type Value struct {
	ConfigItemKey string `yaml:"config_item_key"`
	ScopeType     string `yaml:"scope_type"`
	ScopeValue    string `yaml:"scope_value"`
	Value         string `yaml:"value"`
}

// Data is the full set of bootstrap records.
type Data struct {
	ScopeTypes  []model.ScopeType  `yaml:"scope_types"`
	ConfigItems []model.ConfigItem `yaml:"config_items"`
	Values      []Value            `yaml:"values"`
}

// Default returns the built-in scope hierarchy and sample items.
func Default() Data {
	return Data{
		ScopeTypes: []model.ScopeType{
			{Name: "account", Priority: 10},
			{Name: "model", Priority: 20},
			{Name: "model family", Priority: 30},
			{Name: "model provider", Priority: 40},
			{Name: model.DefaultScope, Priority: 50},
		},
		ConfigItems: []model.ConfigItem{
			{Key: "min_acct_size", Description: "Minimum account size", ValueType: model.ValueTypeNumber},
			{Key: "default_timeout", Description: "Default timeout in seconds", ValueType: model.ValueTypeNumber},
			{Key: "welcome_message", Description: "Welcome message for users", ValueType: model.ValueTypeString},
		},
	}
}

// LoadFile reads seed data from a YAML file. Sections missing from the file
// fall back to Default.
func LoadFile(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Data{}, fmt.Errorf("read seed file: %w", err)
	}

	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return Data{}, fmt.Errorf("%w: parse %s: %v", ErrInvalidSeed, path, err)
	}

	defaults := Default()
	if len(data.ScopeTypes) == 0 {
		data.ScopeTypes = defaults.ScopeTypes
	}
	if len(data.ConfigItems) == 0 {
		data.ConfigItems = defaults.ConfigItems
	}
	if err := data.validate(); err != nil {
		return Data{}, err
	}
	return data, nil
}

func (d Data) validate() error {
	var fallback *model.ScopeType
	for i, scope := range d.ScopeTypes {
		if scope.Name == "" {
			return fmt.Errorf("%w: scope type name is required", ErrInvalidSeed)
		}
		if scope.IsDefault() {
			fallback = &d.ScopeTypes[i]
		}
	}
	if fallback == nil {
		return fmt.Errorf("%w: the %q scope type is required", ErrInvalidSeed, model.DefaultScope)
	}
	// The fallback must sort after every other scope or it shadows them.
	for _, scope := range d.ScopeTypes {
		if !scope.IsDefault() && scope.Priority >= fallback.Priority {
			return fmt.Errorf("%w: scope type %q has priority %d, the %q scope type must have the highest priority (%d)",
				ErrInvalidSeed, scope.Name, scope.Priority, model.DefaultScope, fallback.Priority)
		}
	}
	for _, item := range d.ConfigItems {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		}
	}
	return nil
}

// Apply registers d with st. Existing scope types, items and values are left
// untouched, so applying twice is harmless.
func Apply(ctx context.Context, st *storage.Storage, d Data, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, scope := range d.ScopeTypes {
		if err := st.Scopes().Add(ctx, scope); err != nil {
			return fmt.Errorf("seed scope type %q: %w", scope.Name, err)
		}
	}

	created := 0
	for _, item := range d.ConfigItems {
		ok, err := st.Items().Add(ctx, item)
		if err != nil {
			return fmt.Errorf("seed config item %q: %w", item.Key, err)
		}
		if ok {
			created++
		}
	}

	seeded := 0
	for _, v := range d.Values {
		value := model.ConfigValue{
			ConfigItemKey: v.ConfigItemKey,
			ScopeType:     v.ScopeType,
			ScopeValue:    v.ScopeValue,
			Value:         v.Value,
		}
		if _, exists := st.Values().Get(ctx, value.Key()); exists {
			continue
		}
		if err := st.Values().Set(ctx, value); err != nil {
			return fmt.Errorf("seed config value %s: %w", value.Key(), err)
		}
		seeded++
	}

	logger.Info("seed data applied",
		zap.Int("scope_types", len(d.ScopeTypes)),
		zap.Int("config_items_created", created),
		zap.Int("config_values_created", seeded),
	)
	return nil
}
