package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrBadQuery is returned for unknown tables, unknown columns, and
// unsupported filter operators.
var ErrBadQuery = errors.New("bad query")

// tableSpec whitelists what a table exposes over /rest/v1. Everything
// else is rejected before any SQL is built.
type tableSpec struct {
	columns  []string        // select list, fixed order
	writable map[string]bool // insert/update columns
}

var tableSpecs = map[string]tableSpec{
	"profiles": {
		columns: []string{"id", "user_id", "username", "email", "full_name", "avatar_url", "last_login"},
		writable: map[string]bool{
			"user_id": true, "username": true, "email": true,
			"full_name": true, "avatar_url": true, "last_login": true,
		},
	},
	"todos": {
		columns: []string{"id", "user_id", "text", "completed", "created_at"},
		writable: map[string]bool{
			"user_id": true, "text": true, "completed": true,
		},
	},
}

func (s tableSpec) hasColumn(name string) bool {
	for _, c := range s.columns {
		if c == name {
			return true
		}
	}
	return false
}

type colFilter struct {
	column string
	value  string
}

// restQuery is one parsed and validated table request.
type restQuery struct {
	table     string
	spec      tableSpec
	filters   []colFilter
	orderBy   string
	orderDesc bool
}

// parseRestQuery validates the table and translates query parameters:
// `col=eq.value` filters and an optional `order=col.desc` clause.
func parseRestQuery(table string, params url.Values) (restQuery, error) {
	spec, ok := tableSpecs[table]
	if !ok {
		return restQuery{}, fmt.Errorf("%w: unknown table %q", ErrBadQuery, table)
	}

	q := restQuery{table: table, spec: spec}

	for key, values := range params {
		if key == "select" {
			continue
		}
		if len(values) == 0 {
			continue
		}
		value := values[0]

		if key == "order" {
			column, desc, err := parseOrder(spec, value)
			if err != nil {
				return restQuery{}, err
			}
			q.orderBy, q.orderDesc = column, desc
			continue
		}

		if !spec.hasColumn(key) {
			return restQuery{}, fmt.Errorf("%w: unknown column %q", ErrBadQuery, key)
		}
		if !strings.HasPrefix(value, "eq.") {
			return restQuery{}, fmt.Errorf("%w: unsupported operator in %q", ErrBadQuery, value)
		}
		q.filters = append(q.filters, colFilter{column: key, value: strings.TrimPrefix(value, "eq.")})
	}

	return q, nil
}

func parseOrder(spec tableSpec, value string) (column string, desc bool, err error) {
	column = value
	if strings.HasSuffix(value, ".desc") {
		column, desc = strings.TrimSuffix(value, ".desc"), true
	} else if strings.HasSuffix(value, ".asc") {
		column = strings.TrimSuffix(value, ".asc")
	}
	if !spec.hasColumn(column) {
		return "", false, fmt.Errorf("%w: unknown order column %q", ErrBadQuery, column)
	}
	return column, desc, nil
}

// forceOwner pins the query to the authenticated user. Any client
// supplied user_id filter is discarded first, so a crafted id can
// never reach another user's rows.
func (q *restQuery) forceOwner(userID string) {
	kept := q.filters[:0]
	for _, f := range q.filters {
		if f.column != "user_id" {
			kept = append(kept, f)
		}
	}
	q.filters = append(kept, colFilter{column: "user_id", value: userID})
}

// whereClause renders the filters as a WHERE clause with positional
// arguments. Column names are whitelist-validated before this point.
func (q *restQuery) whereClause() (string, []any) {
	if len(q.filters) == 0 {
		return "", nil
	}
	var conds []string
	var args []any
	for i, f := range q.filters {
		conds = append(conds, fmt.Sprintf("%s = $%d", f.column, i+1))
		args = append(args, f.value)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// TableStore executes validated table requests against Postgres.
type TableStore struct {
	db *sql.DB
}

// NewTableStore creates a table store.
func NewTableStore(db *sql.DB) *TableStore {
	return &TableStore{db: db}
}

// Select returns matching rows as generic maps.
func (s *TableStore) Select(ctx context.Context, q restQuery) ([]map[string]any, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(q.spec.columns, ", "), q.table)
	where, args := q.whereClause()
	query += where
	if q.orderBy != "" {
		query += " ORDER BY " + q.orderBy
		if q.orderDesc {
			query += " DESC"
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(q.spec.columns))
		ptrs := make([]any, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(values))
		for i, col := range q.spec.columns {
			row[col] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	if result == nil {
		result = []map[string]any{}
	}
	return result, rows.Err()
}

// Insert writes one record and returns the stored row.
func (s *TableStore) Insert(ctx context.Context, q restQuery, record map[string]any) (map[string]any, error) {
	var cols []string
	var placeholders []string
	var args []any
	i := 0
	for col, val := range record {
		if !q.spec.writable[col] {
			return nil, fmt.Errorf("%w: column %q not writable", ErrBadQuery, col)
		}
		i++
		cols = append(cols, col)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i))
		args = append(args, val)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrBadQuery)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		q.table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(q.spec.columns, ", "),
	)

	values := make([]any, len(q.spec.columns))
	ptrs := make([]any, len(values))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(ptrs...); err != nil {
		return nil, err
	}
	row := make(map[string]any, len(values))
	for i, col := range q.spec.columns {
		row[col] = normalizeValue(values[i])
	}
	return row, nil
}

// Update patches matching rows.
func (s *TableStore) Update(ctx context.Context, q restQuery, patch map[string]any) error {
	var sets []string
	var args []any
	i := 0
	for col, val := range patch {
		if !q.spec.writable[col] {
			return fmt.Errorf("%w: column %q not writable", ErrBadQuery, col)
		}
		i++
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, val)
	}
	if len(sets) == 0 {
		return fmt.Errorf("%w: empty patch", ErrBadQuery)
	}

	var conds []string
	for _, f := range q.filters {
		i++
		conds = append(conds, fmt.Sprintf("%s = $%d", f.column, i))
		args = append(args, f.value)
	}

	query := fmt.Sprintf("UPDATE %s SET %s", q.table, strings.Join(sets, ", "))
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// Delete removes matching rows.
func (s *TableStore) Delete(ctx context.Context, q restQuery) error {
	where, args := q.whereClause()
	_, err := s.db.ExecContext(ctx, "DELETE FROM "+q.table+where, args...)
	return err
}

// normalizeValue maps driver types to JSON-friendly ones.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
