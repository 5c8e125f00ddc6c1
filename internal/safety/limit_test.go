package safety

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sqlgate/sqlgate/internal/gateway"
)

func TestEnsureLimit(t *testing.T) {
	tests := []struct {
		name string
		stmt string
		want string
	}{
		{
			"uncapped select gets a limit",
			"SELECT * FROM users",
			"SELECT * FROM users LIMIT 100",
		},
		{
			"uncapped cte gets a limit",
			"WITH t AS (SELECT 1) SELECT * FROM t",
			"WITH t AS (SELECT 1) SELECT * FROM t LIMIT 100",
		},
		{
			"trailing terminator is dropped before appending",
			"SELECT * FROM users;",
			"SELECT * FROM users LIMIT 100",
		},
		{
			"trailing whitespace after terminator",
			"SELECT * FROM users ;\n",
			"SELECT * FROM users LIMIT 100",
		},
		{
			"existing limit is untouched",
			"SELECT * FROM users LIMIT 5",
			"SELECT * FROM users LIMIT 5",
		},
		{
			"existing lowercase limit is untouched",
			"select * from users limit 5000",
			"select * from users limit 5000",
		},
		{
			"limit inside a string literal does not count",
			"SELECT * FROM notes WHERE body = 'no limit here'",
			"SELECT * FROM notes WHERE body = 'no limit here' LIMIT 100",
		},
		{
			"column named unlimited does not count",
			"SELECT unlimited FROM plans",
			"SELECT unlimited FROM plans LIMIT 100",
		},
		{
			"quoted identifier named limit does not count",
			`SELECT "limit" FROM t`,
			`SELECT "limit" FROM t LIMIT 100`,
		},
		{
			"backtick identifier named limit does not count",
			"SELECT `limit` FROM t",
			"SELECT `limit` FROM t LIMIT 100",
		},
		{
			"show passes through",
			"SHOW TABLES",
			"SHOW TABLES",
		},
		{
			"pragma passes through",
			"PRAGMA table_info(users)",
			"PRAGMA table_info(users)",
		},
		{
			"explain passes through",
			"EXPLAIN SELECT * FROM users",
			"EXPLAIN SELECT * FROM users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EnsureLimit(tt.stmt, 100))
		})
	}
}

func TestRejectBatch(t *testing.T) {
	tests := []struct {
		name    string
		stmt    string
		wantErr bool
	}{
		{"single statement", "SELECT 1", false},
		{"trailing terminator alone", "SELECT 1;", false},
		{"trailing terminator and whitespace", "SELECT 1; \n", false},
		{"two statements", "SELECT 1; DROP TABLE users", true},
		{"piggybacked delete", "SELECT 1;DELETE FROM users;", true},
		{"terminator in string literal", "SELECT ';DROP TABLE users;'", false},
		{"terminator in quoted identifier", `SELECT "a;b" FROM t`, false},
		{"terminator in backtick identifier", "SELECT `a;b` FROM t", false},
		{"terminator in comment", "SELECT 1 -- ; DROP TABLE users", false},
		{"terminator in dollar quote", "SELECT $$; DROP$$", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RejectBatch(tt.stmt)
			if tt.wantErr {
				assert.True(t, errors.Is(err, gateway.ErrStatementRejected))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
