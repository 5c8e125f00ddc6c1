package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/sqlgate/sqlgate/internal/gateway"
)

// PostgresAdapter implements Adapter against the PostgreSQL system catalogs
// and information_schema. Table names are schema-qualified ("public.users");
// unqualified names default to the public schema.
type PostgresAdapter struct{}

func (a *PostgresAdapter) Backend() string       { return "postgres" }
func (a *PostgresAdapter) ExplainPrefix() string { return "EXPLAIN (FORMAT TEXT) " }

func (a *PostgresAdapter) QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

func (a *PostgresAdapter) SampleSQL(table, where string, limit int) string {
	stmt := "SELECT * FROM " + a.QuoteIdentifier(table) + " TABLESAMPLE BERNOULLI (100)"
	if where != "" {
		stmt += " WHERE " + where
	}
	return fmt.Sprintf("%s LIMIT %d", stmt, limit)
}

// splitQualified splits "schema.table" into its parts, defaulting the
// schema to public.
func splitQualified(table string) (schema, name string) {
	if i := strings.Index(table, "."); i >= 0 {
		return table[:i], table[i+1:]
	}
	return "public", table
}

func (a *PostgresAdapter) TableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT schemaname || '.' || tablename AS table_name
		FROM pg_tables
		WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_name`)
	if err != nil {
		return nil, gateway.WrapBackend("postgres", err)
	}
	names, err := scanStrings(rows)
	if err != nil {
		return nil, gateway.WrapBackend("postgres", err)
	}
	return names, nil
}

func (a *PostgresAdapter) ListTables(ctx context.Context, db *sql.DB) ([]TableStat, error) {
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

func (a *PostgresAdapter) DescribeTable(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	schema, name := splitQualified(table)

	rows, err := db.QueryContext(ctx, `
		SELECT c.column_name, c.data_type, c.is_nullable, c.column_default,
			EXISTS (
				SELECT 1
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
					AND tc.table_schema = c.table_schema
					AND tc.table_name = c.table_name
					AND kcu.column_name = c.column_name
			) AS is_primary
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`, schema, name)
	if err != nil {
		return nil, gateway.WrapBackend("postgres", err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var colName, colType, nullable string
		var colDefault sql.NullString
		var isPrimary bool
		if err := rows.Scan(&colName, &colType, &nullable, &colDefault, &isPrimary); err != nil {
			return nil, gateway.WrapBackend("postgres", err)
		}
		col := Column{
			Name:       colName,
			Type:       colType,
			Nullable:   nullable == "YES",
			PrimaryKey: isPrimary,
		}
		if colDefault.Valid {
			v := colDefault.String
			col.Default = &v
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, gateway.WrapBackend("postgres", err)
	}
	if len(columns) == 0 {
		return nil, &gateway.TableNotFoundError{Table: table}
	}

	fks, err := a.foreignKeys(ctx, db, schema, name)
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

func (a *PostgresAdapter) foreignKeys(ctx context.Context, db *sql.DB, schema, name string) (map[string]Ref, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT kcu.column_name,
			ccu.table_schema || '.' || ccu.table_name AS ref_table,
			ccu.column_name AS ref_column
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON kcu.constraint_name = rc.constraint_name
			AND kcu.constraint_schema = rc.constraint_schema
		JOIN information_schema.constraint_column_usage ccu
			ON rc.unique_constraint_name = ccu.constraint_name
			AND rc.unique_constraint_schema = ccu.constraint_schema
		WHERE kcu.table_schema = $1 AND kcu.table_name = $2`, schema, name)
	if err != nil {
		return nil, gateway.WrapBackend("postgres", err)
	}
	defer rows.Close()

	fks := make(map[string]Ref)
	for rows.Next() {
		var col, refTable, refCol string
		if err := rows.Scan(&col, &refTable, &refCol); err != nil {
			return nil, gateway.WrapBackend("postgres", err)
		}
		fks[col] = Ref{Table: refTable, Column: refCol}
	}
	return fks, rows.Err()
}

func (a *PostgresAdapter) ListIndexes(ctx context.Context, db *sql.DB, table string) ([]Index, error) {
	schema, name := splitQualified(table)
	if err := a.requireTable(ctx, db, schema, name); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT i.relname AS index_name,
			ix.indisunique AS is_unique,
			array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)) AS column_names
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE t.relkind = 'r' AND n.nspname = $1 AND t.relname = $2
		GROUP BY i.relname, ix.indisunique
		ORDER BY i.relname`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrIndexesUnavailable, err)
	}
	defer rows.Close()

	var indexes []Index
	for rows.Next() {
		var idx Index
		if err := rows.Scan(&idx.Name, &idx.Unique, pq.Array(&idx.Columns)); err != nil {
			return nil, gateway.WrapBackend("postgres", err)
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

// ShowCreateTable reconstructs DDL from catalog metadata; PostgreSQL has no
// native SHOW CREATE TABLE. The output carries a comment marking it as an
// approximation, since constraints absent from the queried views (CHECK
// constraints in particular) cannot be recovered.
func (a *PostgresAdapter) ShowCreateTable(ctx context.Context, db *sql.DB, table string) (string, error) {
	columns, err := a.DescribeTable(ctx, db, table)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("-- DDL reconstructed from information_schema; constraints not present\n")
	b.WriteString("-- in the catalog views queried (e.g. CHECK constraints) are omitted.\n")
	b.WriteString("CREATE TABLE " + a.QuoteIdentifier(table) + " (\n")

	var defs []string
	var pk []string
	for _, col := range columns {
		def := "    " + a.QuoteIdentifier(col.Name) + " " + col.Type
		if !col.Nullable {
			def += " NOT NULL"
		}
		if col.Default != nil {
			def += " DEFAULT " + *col.Default
		}
		defs = append(defs, def)
		if col.PrimaryKey {
			pk = append(pk, a.QuoteIdentifier(col.Name))
		}
	}
	if len(pk) > 0 {
		defs = append(defs, "    PRIMARY KEY ("+strings.Join(pk, ", ")+")")
	}
	for _, col := range columns {
		if col.ForeignKey == nil {
			continue
		}
		defs = append(defs, fmt.Sprintf("    FOREIGN KEY (%s) REFERENCES %s (%s)",
			a.QuoteIdentifier(col.Name),
			a.QuoteIdentifier(col.ForeignKey.Table),
			a.QuoteIdentifier(col.ForeignKey.Column)))
	}

	b.WriteString(strings.Join(defs, ",\n"))
	b.WriteString("\n);")
	return b.String(), nil
}

func (a *PostgresAdapter) requireTable(ctx context.Context, db *sql.DB, schema, name string) error {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM pg_tables
		WHERE schemaname = $1 AND tablename = $2`, schema, name).Scan(&n)
	if err != nil {
		return gateway.WrapBackend("postgres", err)
	}
	if n == 0 {
		return &gateway.TableNotFoundError{Table: schema + "." + name}
	}
	return nil
}
