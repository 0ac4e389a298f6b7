package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/jdotsun/hierarchical-config-demo/internal/model"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// rebind rewrites ? placeholders into the dialect's style.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) now() string {
	if d == Postgres {
		return "NOW()"
	}
	return "strftime('%Y-%m-%dT%H:%M:%SZ', 'now')"
}

func (s *Store) LoadScopeTypes(ctx context.Context) ([]model.ScopeType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, priority FROM scope_types ORDER BY priority, name`)
	if err != nil {
		return nil, fmt.Errorf("query scope types: %w", err)
	}
	defer rows.Close()

	var scopes []model.ScopeType
	for rows.Next() {
		var r scopeTypeRow
		if err := rows.Scan(&r.Name, &r.Priority); err != nil {
			return nil, fmt.Errorf("scan scope type: %w", err)
		}
		scopes = append(scopes, r.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scope types: %w", err)
	}
	return scopes, nil
}

func (s *Store) SaveScopeType(ctx context.Context, scope model.ScopeType) error {
	r := scopeTypeToRow(scope)
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO scope_types (name, priority)
		VALUES (?, ?)
		ON CONFLICT (name) DO NOTHING`),
		r.Name, r.Priority,
	)
	if err != nil {
		return fmt.Errorf("insert scope type: %w", err)
	}
	return nil
}

func (s *Store) LoadConfigItems(ctx context.Context) ([]model.ConfigItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, description, value_type FROM config_items ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("query config items: %w", err)
	}
	defer rows.Close()

	var items []model.ConfigItem
	for rows.Next() {
		var r configItemRow
		if err := rows.Scan(&r.Key, &r.Description, &r.ValueType); err != nil {
			return nil, fmt.Errorf("scan config item: %w", err)
		}
		items = append(items, r.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate config items: %w", err)
	}
	return items, nil
}

func (s *Store) SaveConfigItem(ctx context.Context, item model.ConfigItem) error {
	r := configItemToRow(item)
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO config_items (key, description, value_type)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO NOTHING`),
		r.Key, r.Description, r.ValueType,
	)
	if err != nil {
		return fmt.Errorf("insert config item: %w", err)
	}
	return nil
}

// DeleteConfigItem removes the values explicitly before the item so the
// cascade holds even where foreign keys are not enforced.
func (s *Store) DeleteConfigItem(ctx context.Context, key string) (bool, error) {
	var removed bool
	err := s.runInTx(ctx, func(tx executor) error {
		if _, err := tx.ExecContext(ctx,
			s.dialect.rebind(`DELETE FROM config_values WHERE config_item_key = ?`), key,
		); err != nil {
			return fmt.Errorf("delete config values: %w", err)
		}

		res, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM config_items WHERE key = ?`), key)
		if err != nil {
			return fmt.Errorf("delete config item: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		removed = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func (s *Store) LoadConfigValues(ctx context.Context) ([]model.ConfigValue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT config_item_key, scope_type, scope_value, value
		FROM config_values
		ORDER BY config_item_key, scope_type, scope_value`)
	if err != nil {
		return nil, fmt.Errorf("query config values: %w", err)
	}
	defer rows.Close()

	var values []model.ConfigValue
	for rows.Next() {
		var r configValueRow
		if err := rows.Scan(&r.ConfigItemKey, &r.ScopeType, &r.ScopeValue, &r.Value); err != nil {
			return nil, fmt.Errorf("scan config value: %w", err)
		}
		values = append(values, r.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate config values: %w", err)
	}
	return values, nil
}

func (s *Store) UpsertConfigValue(ctx context.Context, value model.ConfigValue) error {
	r := configValueToRow(value)
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO config_values (config_item_key, scope_type, scope_value, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (config_item_key, scope_type, scope_value)
		DO UPDATE SET value = excluded.value, updated_at = `+s.dialect.now()),
		r.ConfigItemKey, r.ScopeType, r.ScopeValue, r.Value,
	)
	if err != nil {
		return fmt.Errorf("upsert config value: %w", err)
	}
	return nil
}

func (s *Store) DeleteConfigValue(ctx context.Context, key model.ValueKey) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		DELETE FROM config_values
		WHERE config_item_key = ? AND scope_type = ? AND scope_value = ?`),
		key.ConfigItemKey, key.ScopeType, key.ScopeValue,
	)
	if err != nil {
		return false, fmt.Errorf("delete config value: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
