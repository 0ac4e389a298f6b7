package model

import (
	"fmt"
	"strings"
)

// DefaultScope is the reserved scope type acting as the global fallback.
const DefaultScope = "default"

// ValueType is the declared type of a configuration item's values.
type ValueType string

const (
	ValueTypeString ValueType = "string"
	ValueTypeNumber ValueType = "number"
	ValueTypeBlob   ValueType = "blob"
)

// Valid reports whether t is one of the recognised value types.
func (t ValueType) Valid() bool {
	switch t {
	case ValueTypeString, ValueTypeNumber, ValueTypeBlob:
		return true
	}
	return false
}

// ScopeType is a named level in the override hierarchy.
// Lower priority numbers are more specific.
type ScopeType struct {
	Name     string `json:"name" yaml:"name"`
	Priority int    `json:"priority" yaml:"priority"`
}

// IsDefault reports whether s is the global fallback scope.
func (s ScopeType) IsDefault() bool {
	return s.Name == DefaultScope
}

// ConfigItem declares a configuration key and the type of its values.
type ConfigItem struct {
	Key         string    `json:"key" yaml:"key"`
	Description string    `json:"description" yaml:"description"`
	ValueType   ValueType `json:"value_type" yaml:"value_type"`
}

// Validate checks the fields required to register an item.
func (i ConfigItem) Validate() error {
	if strings.TrimSpace(i.Key) == "" {
		return fmt.Errorf("%w: config item key is required", ErrValidation)
	}
	if !i.ValueType.Valid() {
		return fmt.Errorf("%w: invalid value type %q", ErrValidation, i.ValueType)
	}
	return nil
}

// ValueKey is the composite identity of a ConfigValue.
// ScopeValue is empty for the default scope.
type ValueKey struct {
	ConfigItemKey string
	ScopeType     string
	ScopeValue    string
}

func (k ValueKey) String() string {
	if k.ScopeValue == "" {
		return k.ConfigItemKey + "/" + k.ScopeType
	}
	return k.ConfigItemKey + "/" + k.ScopeType + "/" + k.ScopeValue
}

// ConfigValue is a stored override. Value always holds the textual form
// regardless of the item's declared type.
type ConfigValue struct {
	ConfigItemKey string
	ScopeType     string
	ScopeValue    string
	Value         string
}

// Key returns the composite identity of v.
func (v ConfigValue) Key() ValueKey {
	return ValueKey{
		ConfigItemKey: v.ConfigItemKey,
		ScopeType:     v.ScopeType,
		ScopeValue:    v.ScopeValue,
	}
}

// Properties describes the subject a value is resolved for, keyed by scope type name.
type Properties map[string]string

// Lookup returns the non-empty scope value for scopeType.
func (p Properties) Lookup(scopeType string) (string, bool) {
	v, ok := p[scopeType]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
