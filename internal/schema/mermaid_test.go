package schema

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/sqlgate/sqlgate/internal/dialect"
	"github.com/sqlgate/sqlgate/internal/registry"
)

func sqliteEntry(t *testing.T, ddl ...string) *registry.Entry {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range ddl {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	return &registry.Entry{
		Name:    "test",
		Backend: registry.SQLite,
		DB:      db,
		Adapter: dialect.ForBackend("sqlite"),
	}
}

func TestMermaid(t *testing.T) {
	entry := sqliteEntry(t,
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			email TEXT
		)`,
		`CREATE TABLE posts (
			id INTEGER PRIMARY KEY,
			user_id INTEGER REFERENCES users(id),
			editor_id INTEGER REFERENCES users(id),
			title TEXT
		)`,
		`CREATE TABLE comments (
			id INTEGER PRIMARY KEY,
			post_id INTEGER REFERENCES posts(id),
			author_id INTEGER REFERENCES users(id)
		)`,
	)

	got, err := Mermaid(context.Background(), entry)
	require.NoError(t, err)

	// Two FK columns from posts to users collapse into one relationship.
	want := `erDiagram
    comments {
        INTEGER id PK
        INTEGER post_id FK
        INTEGER author_id FK
    }
    posts {
        INTEGER id PK
        INTEGER user_id FK
        INTEGER editor_id FK
        TEXT title
    }
    users {
        INTEGER id PK
        TEXT email
    }
    posts ||--o{ comments : ""
    users ||--o{ comments : ""
    users ||--o{ posts : ""
`
	assert.Equal(t, want, got)
}

func TestMermaidEmptyDatabase(t *testing.T) {
	entry := sqliteEntry(t)

	got, err := Mermaid(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, "erDiagram\n    %% No tables found", got)
}

func TestMermaidTypeNormalization(t *testing.T) {
	entry := sqliteEntry(t,
		`CREATE TABLE measurements (
			id INTEGER PRIMARY KEY,
			value DOUBLE PRECISION
		)`,
	)

	got, err := Mermaid(context.Background(), entry)
	require.NoError(t, err)
	assert.Contains(t, got, "DOUBLE_PRECISION value")
}

func TestMermaidCycleAnnotation(t *testing.T) {
	entry := sqliteEntry(t,
		`CREATE TABLE employees (
			id INTEGER PRIMARY KEY,
			manager_id INTEGER REFERENCES employees(id)
		)`,
	)

	got, err := Mermaid(context.Background(), entry)
	require.NoError(t, err)
	assert.Contains(t, got, "employees ||--o{ employees : \"\"")
	assert.Contains(t, got, "%% circular foreign-key chain detected")
}

func TestMermaidNoCycleNoAnnotation(t *testing.T) {
	entry := sqliteEntry(t,
		`CREATE TABLE a (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE b (id INTEGER PRIMARY KEY, a_id INTEGER REFERENCES a(id))`,
	)

	got, err := Mermaid(context.Background(), entry)
	require.NoError(t, err)
	assert.NotContains(t, got, "circular")
}
