// Package dialect implements the per-backend introspection and DDL
// capability set. Each supported engine (MySQL, PostgreSQL, SQLite) provides
// one Adapter; callers select it once at connection construction and stay
// backend-agnostic from then on.
package dialect

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// countBudget bounds the per-table row count in ListTables. A table whose
// count does not finish in time reports zero rather than stalling the call.
const countBudget = time.Second

// Ref is a foreign-key target.
type Ref struct {
	Table  string
	Column string
}

// String renders the target as "table.column". The column part is dropped
// when the reference targets the parent's implicit primary key.
func (r Ref) String() string {
	if r.Column == "" {
		return r.Table
	}
	return r.Table + "." + r.Column
}

// MarshalJSON renders the target in the compact "table.column" form.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// Column describes one table column, normalized across backends.
type Column struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Nullable   bool    `json:"nullable"`
	Default    *string `json:"default,omitempty"`
	PrimaryKey bool    `json:"primary_key"`
	ForeignKey *Ref    `json:"foreign_key,omitempty"`
}

// Index describes one table index. Columns preserve declaration order.
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// Table is the unified descriptor for one table.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	Indexes []Index  `json:"indexes,omitempty"`
}

// TableStat pairs a table name with its (best-effort) row count.
type TableStat struct {
	Name     string `json:"table_name"`
	RowCount int64  `json:"row_count"`
}

// Adapter is the common capability set implemented once per backend.
type Adapter interface {
	// Backend returns the backend name ("postgres", "mysql", "sqlite").
	Backend() string

	// TableNames lists user tables in name order.
	TableNames(ctx context.Context, db *sql.DB) ([]string, error)

	// ListTables lists user tables with bounded-time row counts. A count
	// that exceeds its budget degrades to zero; it never fails the call.
	ListTables(ctx context.Context, db *sql.DB) ([]TableStat, error)

	// DescribeTable returns the table's columns in ordinal order.
	DescribeTable(ctx context.Context, db *sql.DB, table string) ([]Column, error)

	// ListIndexes returns the table's indexes with columns in declared order.
	ListIndexes(ctx context.Context, db *sql.DB, table string) ([]Index, error)

	// ShowCreateTable returns the table's DDL: verbatim where the engine
	// exposes it, reconstructed best-effort where it does not.
	ShowCreateTable(ctx context.Context, db *sql.DB, table string) (string, error)

	// QuoteIdentifier quotes a (possibly qualified) identifier for
	// embedding in generated SQL.
	QuoteIdentifier(name string) string

	// ExplainPrefix returns the backend's EXPLAIN syntax, with trailing space.
	ExplainPrefix() string

	// SampleSQL builds the sample_data statement. The table name and where
	// fragment must already be sanitized by the caller.
	SampleSQL(table, where string, limit int) string
}

// ForBackend returns the adapter for a backend name. It panics on an
// unknown name; backend kinds are fixed at URL parse time.
func ForBackend(name string) Adapter {
	switch name {
	case "postgres":
		return &PostgresAdapter{}
	case "mysql":
		return &MySQLAdapter{}
	case "sqlite":
		return &SQLiteAdapter{}
	}
	panic("dialect: unsupported backend " + name)
}

// countRows runs a bounded-time COUNT(*) against one quoted table.
// Failures degrade to zero so one oversized or locked table cannot stall
// introspection of the others.
func countRows(ctx context.Context, db *sql.DB, quotedTable string) int64 {
	cctx, cancel := context.WithTimeout(ctx, countBudget)
	defer cancel()

	var n int64
	if err := db.QueryRowContext(cctx, "SELECT COUNT(*) FROM "+quotedTable).Scan(&n); err != nil {
		return 0
	}
	return n
}

// scanStrings collects a single-column result set.
func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
