package sqlstore

import (
	"database/sql"

	"github.com/jdotsun/hierarchical-config-demo/internal/model"
)

// Persisted row shapes. They mirror the tables and are mapped to and from the
// domain entities at this package boundary only.

type scopeTypeRow struct {
	Name     string
	Priority int
}

type configItemRow struct {
	Key         string
	Description sql.NullString
	ValueType   string
}

type configValueRow struct {
	ConfigItemKey string
	ScopeType     string
	ScopeValue    string
	Value         string
}

func scopeTypeToRow(s model.ScopeType) scopeTypeRow {
	return scopeTypeRow{Name: s.Name, Priority: s.Priority}
}

func (r scopeTypeRow) toModel() model.ScopeType {
	return model.ScopeType{Name: r.Name, Priority: r.Priority}
}

func configItemToRow(i model.ConfigItem) configItemRow {
	return configItemRow{
		Key:         i.Key,
		Description: nullString(i.Description),
		ValueType:   string(i.ValueType),
	}
}

func (r configItemRow) toModel() model.ConfigItem {
	return model.ConfigItem{
		Key:         r.Key,
		Description: r.Description.String,
		ValueType:   model.ValueType(r.ValueType),
	}
}

func configValueToRow(v model.ConfigValue) configValueRow {
	return configValueRow{
		ConfigItemKey: v.ConfigItemKey,
		ScopeType:     v.ScopeType,
		ScopeValue:    v.ScopeValue,
		Value:         v.Value,
	}
}

func (r configValueRow) toModel() model.ConfigValue {
	return model.ConfigValue{
		ConfigItemKey: r.ConfigItemKey,
		ScopeType:     r.ScopeType,
		ScopeValue:    r.ScopeValue,
		Value:         r.Value,
	}
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
