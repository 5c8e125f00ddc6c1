package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sqlgate/sqlgate/internal/gateway"
)

// MySQLAdapter implements Adapter against the information_schema views of
// the connection's current database (DATABASE()).
type MySQLAdapter struct{}

func (a *MySQLAdapter) Backend() string       { return "mysql" }
func (a *MySQLAdapter) ExplainPrefix() string { return "EXPLAIN " }

func (a *MySQLAdapter) QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}

func (a *MySQLAdapter) SampleSQL(table, where string, limit int) string {
	stmt := "SELECT * FROM " + a.QuoteIdentifier(table)
	if where != "" {
		stmt += " WHERE " + where
	}
	return fmt.Sprintf("%s ORDER BY RAND() LIMIT %d", stmt, limit)
}

func (a *MySQLAdapter) TableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, gateway.WrapBackend("mysql", err)
	}
	names, err := scanStrings(rows)
	if err != nil {
		return nil, gateway.WrapBackend("mysql", err)
	}
	return names, nil
}

func (a *MySQLAdapter) ListTables(ctx context.Context, db *sql.DB) ([]TableStat, error) {
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

func (a *MySQLAdapter) DescribeTable(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, column_type, is_nullable, column_default, column_key
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, gateway.WrapBackend("mysql", err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var name, colType, nullable, colKey string
		var colDefault sql.NullString
		if err := rows.Scan(&name, &colType, &nullable, &colDefault, &colKey); err != nil {
			return nil, gateway.WrapBackend("mysql", err)
		}
		col := Column{
			Name:       name,
			Type:       colType,
			Nullable:   nullable == "YES",
			PrimaryKey: colKey == "PRI",
		}
		if colDefault.Valid {
			v := colDefault.String
			col.Default = &v
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, gateway.WrapBackend("mysql", err)
	}
	if len(columns) == 0 {
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

func (a *MySQLAdapter) foreignKeys(ctx context.Context, db *sql.DB, table string) (map[string]Ref, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE() AND table_name = ?
			AND referenced_table_name IS NOT NULL`, table)
	if err != nil {
		return nil, gateway.WrapBackend("mysql", err)
	}
	defer rows.Close()

	fks := make(map[string]Ref)
	for rows.Next() {
		var col, refTable, refCol string
		if err := rows.Scan(&col, &refTable, &refCol); err != nil {
			return nil, gateway.WrapBackend("mysql", err)
		}
		fks[col] = Ref{Table: refTable, Column: refCol}
	}
	return fks, rows.Err()
}

func (a *MySQLAdapter) ListIndexes(ctx context.Context, db *sql.DB, table string) ([]Index, error) {
	if err := a.requireTable(ctx, db, table); err != nil {
		return nil, err
	}

	// information_schema.statistics reports one row per (index, column);
	// group by index name, column order follows seq_in_index.
	rows, err := db.QueryContext(ctx, `
		SELECT index_name, non_unique, column_name
		FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY index_name, seq_in_index`, table)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrIndexesUnavailable, err)
	}
	defer rows.Close()

	var indexes []Index
	byName := make(map[string]int)
	for rows.Next() {
		var name, column string
		var nonUnique int
		if err := rows.Scan(&name, &nonUnique, &column); err != nil {
			return nil, gateway.WrapBackend("mysql", err)
		}
		if i, ok := byName[name]; ok {
			indexes[i].Columns = append(indexes[i].Columns, column)
			continue
		}
		byName[name] = len(indexes)
		indexes = append(indexes, Index{
			Name:    name,
			Columns: []string{column},
			Unique:  nonUnique == 0,
		})
	}
	return indexes, rows.Err()
}

func (a *MySQLAdapter) ShowCreateTable(ctx context.Context, db *sql.DB, table string) (string, error) {
	if err := a.requireTable(ctx, db, table); err != nil {
		return "", err
	}

	var name, ddl string
	err := db.QueryRowContext(ctx, "SHOW CREATE TABLE "+a.QuoteIdentifier(table)).Scan(&name, &ddl)
	if err != nil {
		return "", gateway.WrapBackend("mysql", err)
	}
	return ddl, nil
}

func (a *MySQLAdapter) requireTable(ctx context.Context, db *sql.DB, table string) error {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?`, table).Scan(&n)
	if err != nil {
		return gateway.WrapBackend("mysql", err)
	}
	if n == 0 {
		return &gateway.TableNotFoundError{Table: table}
	}
	return nil
}
