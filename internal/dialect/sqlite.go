package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/sqlgate/sqlgate/internal/gateway"
)

// SQLiteAdapter implements Adapter on top of sqlite_master and the pragma
// introspection calls. PRAGMA arguments cannot be bound, so table names are
// embedded with quote escaping.
type SQLiteAdapter struct{}

func (a *SQLiteAdapter) Backend() string       { return "sqlite" }
func (a *SQLiteAdapter) ExplainPrefix() string { return "EXPLAIN QUERY PLAN " }

func (a *SQLiteAdapter) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (a *SQLiteAdapter) SampleSQL(table, where string, limit int) string {
	stmt := "SELECT * FROM " + a.QuoteIdentifier(table)
	if where != "" {
		stmt += " WHERE " + where
	}
	return fmt.Sprintf("%s LIMIT %d", stmt, limit)
}

// pragmaArg escapes a table name for embedding in a PRAGMA call.
func pragmaArg(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func (a *SQLiteAdapter) TableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, gateway.WrapBackend("sqlite", err)
	}
	names, err := scanStrings(rows)
	if err != nil {
		return nil, gateway.WrapBackend("sqlite", err)
	}
	return names, nil
}

func (a *SQLiteAdapter) ListTables(ctx context.Context, db *sql.DB) ([]TableStat, error) {
	names, err := a.TableNames(ctx, db)
	if err != nil {
		return nil, err
	}

	stats := make([]TableStat, 0, len(names))
	for _, name := range names {
		stats = append(stats, TableStat{
			Name:     name,
			RowCount: countRows(ctx, db, a.QuoteIdentifier(name)),
		})
	}
	return stats, nil
}

func (a *SQLiteAdapter) DescribeTable(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+pragmaArg(table)+")")
	if err != nil {
		return nil, gateway.WrapBackend("sqlite", err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		// cid, name, type, notnull, dflt_value, pk
		var cid, notNull, pk int
		var name, colType string
		var dfltValue sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, gateway.WrapBackend("sqlite", err)
		}
		col := Column{
			Name:       name,
			Type:       colType,
			Nullable:   notNull == 0,
			PrimaryKey: pk > 0,
		}
		if dfltValue.Valid {
			v := dfltValue.String
			col.Default = &v
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, gateway.WrapBackend("sqlite", err)
	}
	if len(columns) == 0 {
		// PRAGMA table_info yields nothing for unknown tables.
		return nil, &gateway.TableNotFoundError{Table: table}
	}

	fks, err := a.foreignKeys(ctx, db, table)
	if err != nil {
		return nil, err
	}
	for i := range columns {
		if ref, ok := fks[columns[i].Name]; ok {
			columns[i].ForeignKey = &ref
		}
	}
	return columns, nil
}

func (a *SQLiteAdapter) foreignKeys(ctx context.Context, db *sql.DB, table string) (map[string]Ref, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA foreign_key_list("+pragmaArg(table)+")")
	if err != nil {
		return nil, gateway.WrapBackend("sqlite", err)
	}
	defer rows.Close()

	fks := make(map[string]Ref)
	for rows.Next() {
		// id, seq, table, from, to, on_update, on_delete, match
		var id, seq int
		var refTable, from, onUpdate, onDelete, match string
		var to sql.NullString
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, gateway.WrapBackend("sqlite", err)
		}
		// "to" is NULL when the reference targets the parent's implicit
		// primary key.
		fks[from] = Ref{Table: refTable, Column: to.String}
	}
	return fks, rows.Err()
}

func (a *SQLiteAdapter) ListIndexes(ctx context.Context, db *sql.DB, table string) ([]Index, error) {
	if err := a.requireTable(ctx, db, table); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "PRAGMA index_list("+pragmaArg(table)+")")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrIndexesUnavailable, err)
	}

	type indexHead struct {
		name   string
		unique bool
	}
	var heads []indexHead
	for rows.Next() {
		// seq, name, unique, origin, partial
		var seq, unique, partial int
		var name, origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, gateway.WrapBackend("sqlite", err)
		}
		heads = append(heads, indexHead{name: name, unique: unique == 1})
	}
	if err := rows.Close(); err != nil {
		return nil, gateway.WrapBackend("sqlite", err)
	}

	// index_list reports newest-first; sort so output is in name order like
	// the other backends.
	sort.Slice(heads, func(i, j int) bool { return heads[i].name < heads[j].name })

	var indexes []Index
	for _, h := range heads {
		cols, err := a.indexColumns(ctx, db, h.name)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, Index{Name: h.name, Columns: cols, Unique: h.unique})
	}
	return indexes, nil
}

func (a *SQLiteAdapter) indexColumns(ctx context.Context, db *sql.DB, index string) ([]string, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA index_info("+pragmaArg(index)+")")
	if err != nil {
		return nil, gateway.WrapBackend("sqlite", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		// seqno, cid, name; name is NULL for expression index members.
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, gateway.WrapBackend("sqlite", err)
		}
		if name.Valid {
			cols = append(cols, name.String)
		}
	}
	return cols, rows.Err()
}

// ShowCreateTable returns the original DDL verbatim; SQLite stores it in
// sqlite_master.
func (a *SQLiteAdapter) ShowCreateTable(ctx context.Context, db *sql.DB, table string) (string, error) {
	var ddl sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT sql FROM sqlite_master
		WHERE type = 'table' AND name = ?`, table).Scan(&ddl)
	if err == sql.ErrNoRows {
		return "", &gateway.TableNotFoundError{Table: table}
	}
	if err != nil {
		return "", gateway.WrapBackend("sqlite", err)
	}
	return ddl.String, nil
}

func (a *SQLiteAdapter) requireTable(ctx context.Context, db *sql.DB, table string) error {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name = ?`, table).Scan(&n)
	if err != nil {
		return gateway.WrapBackend("sqlite", err)
	}
	if n == 0 {
		return &gateway.TableNotFoundError{Table: table}
	}
	return nil
}
