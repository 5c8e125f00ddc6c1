package dialect

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/sqlgate/sqlgate/internal/gateway"
)

// openSQLite builds an in-memory database with a small blog schema: users,
// posts referencing users, comments referencing both.
func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// One connection so every statement sees the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT DEFAULT 'anon'
		)`,
		`CREATE TABLE posts (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			title TEXT NOT NULL
		)`,
		`CREATE TABLE comments (
			id INTEGER PRIMARY KEY,
			post_id INTEGER REFERENCES posts(id),
			author_id INTEGER REFERENCES users
		)`,
		`CREATE INDEX idx_posts_user_title ON posts(user_id, title)`,
		`INSERT INTO users (email) VALUES ('a@example.com'), ('b@example.com')`,
		`INSERT INTO posts (user_id, title) VALUES (1, 'hello')`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func TestSQLiteTableNames(t *testing.T) {
	db := openSQLite(t)
	a := &SQLiteAdapter{}

	names, err := a.TableNames(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []string{"comments", "posts", "users"}, names)
}

func TestSQLiteListTables(t *testing.T) {
	db := openSQLite(t)
	a := &SQLiteAdapter{}

	stats, err := a.ListTables(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, stats, 3)

	counts := make(map[string]int64)
	for _, s := range stats {
		counts[s.Name] = s.RowCount
	}
	assert.Equal(t, int64(2), counts["users"])
	assert.Equal(t, int64(1), counts["posts"])
	assert.Equal(t, int64(0), counts["comments"])
}

func TestSQLiteDescribeTable(t *testing.T) {
	db := openSQLite(t)
	a := &SQLiteAdapter{}

	columns, err := a.DescribeTable(context.Background(), db, "users")
	require.NoError(t, err)
	require.Len(t, columns, 3)

	assert.Equal(t, "id", columns[0].Name)
	assert.Equal(t, "INTEGER", columns[0].Type)
	assert.True(t, columns[0].PrimaryKey)

	assert.Equal(t, "email", columns[1].Name)
	assert.False(t, columns[1].Nullable)
	assert.False(t, columns[1].PrimaryKey)

	assert.Equal(t, "name", columns[2].Name)
	assert.True(t, columns[2].Nullable)
	require.NotNil(t, columns[2].Default)
	assert.Equal(t, "'anon'", *columns[2].Default)
}

func TestSQLiteDescribeTableForeignKeys(t *testing.T) {
	db := openSQLite(t)
	a := &SQLiteAdapter{}

	columns, err := a.DescribeTable(context.Background(), db, "comments")
	require.NoError(t, err)

	byName := make(map[string]Column)
	for _, c := range columns {
		byName[c.Name] = c
	}

	require.NotNil(t, byName["post_id"].ForeignKey)
	assert.Equal(t, "posts.id", byName["post_id"].ForeignKey.String())

	// REFERENCES users without a column targets the implicit primary key.
	require.NotNil(t, byName["author_id"].ForeignKey)
	assert.Equal(t, "users", byName["author_id"].ForeignKey.String())

	assert.Nil(t, byName["id"].ForeignKey)
}

func TestSQLiteDescribeTableNotFound(t *testing.T) {
	db := openSQLite(t)
	a := &SQLiteAdapter{}

	_, err := a.DescribeTable(context.Background(), db, "missing")
	assert.True(t, errors.Is(err, gateway.ErrTableNotFound))
}

func TestSQLiteListIndexes(t *testing.T) {
	db := openSQLite(t)
	a := &SQLiteAdapter{}

	indexes, err := a.ListIndexes(context.Background(), db, "posts")
	require.NoError(t, err)
	require.Len(t, indexes, 1)
	assert.Equal(t, "idx_posts_user_title", indexes[0].Name)
	assert.Equal(t, []string{"user_id", "title"}, indexes[0].Columns)
	assert.False(t, indexes[0].Unique)

	// UNIQUE constraints surface as unique auto-indexes.
	indexes, err = a.ListIndexes(context.Background(), db, "users")
	require.NoError(t, err)
	require.Len(t, indexes, 1)
	assert.Equal(t, []string{"email"}, indexes[0].Columns)
	assert.True(t, indexes[0].Unique)

	_, err = a.ListIndexes(context.Background(), db, "missing")
	assert.True(t, errors.Is(err, gateway.ErrTableNotFound))
}

func TestSQLiteListIndexesNameOrder(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	// Created in reverse-name order, so creation order and name order differ.
	stmts := []string{
		`CREATE TABLE items (id INTEGER PRIMARY KEY, sku TEXT, name TEXT)`,
		`CREATE INDEX zz_items_sku ON items(sku)`,
		`CREATE INDEX aa_items_name ON items(name)`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	a := &SQLiteAdapter{}
	indexes, err := a.ListIndexes(context.Background(), db, "items")
	require.NoError(t, err)
	require.Len(t, indexes, 2)
	assert.Equal(t, "aa_items_name", indexes[0].Name)
	assert.Equal(t, "zz_items_sku", indexes[1].Name)
}

func TestSQLiteShowCreateTable(t *testing.T) {
	db := openSQLite(t)
	a := &SQLiteAdapter{}

	ddl, err := a.ShowCreateTable(context.Background(), db, "posts")
	require.NoError(t, err)
	assert.Contains(t, ddl, "CREATE TABLE posts")
	assert.Contains(t, ddl, "REFERENCES users(id)")

	_, err = a.ShowCreateTable(context.Background(), db, "missing")
	assert.True(t, errors.Is(err, gateway.ErrTableNotFound))
}

func TestSQLiteQuoteIdentifier(t *testing.T) {
	a := &SQLiteAdapter{}
	assert.Equal(t, `"users"`, a.QuoteIdentifier("users"))
	assert.Equal(t, `"we""ird"`, a.QuoteIdentifier(`we"ird`))
}

func TestSQLiteSampleSQL(t *testing.T) {
	a := &SQLiteAdapter{}
	assert.Equal(t, `SELECT * FROM "users" LIMIT 10`, a.SampleSQL("users", "", 10))
	assert.Equal(t, `SELECT * FROM "users" WHERE id > 5 LIMIT 10`, a.SampleSQL("users", "id > 5", 10))
}
