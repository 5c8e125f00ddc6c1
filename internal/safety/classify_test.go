package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		stmt    string
		want    Classification
		keyword string
	}{
		{"simple select", "SELECT * FROM users", ReadOnly, "SELECT"},
		{"lowercase select", "select 1", ReadOnly, "SELECT"},
		{"mixed case", "SeLeCt 1", ReadOnly, "SELECT"},
		{"leading whitespace", "   \t\n SELECT 1", ReadOnly, "SELECT"},
		{"cte", "WITH t AS (SELECT 1) SELECT * FROM t", ReadOnly, "WITH"},
		{"show", "SHOW TABLES", ReadOnly, "SHOW"},
		{"pragma", "PRAGMA table_info(users)", ReadOnly, "PRAGMA"},
		{"explain", "EXPLAIN SELECT 1", ReadOnly, "EXPLAIN"},

		{"insert", "INSERT INTO users VALUES (1)", Mutating, "INSERT"},
		{"update", "UPDATE users SET name = 'x'", Mutating, "UPDATE"},
		{"delete", "DELETE FROM users", Mutating, "DELETE"},
		{"drop", "DROP TABLE users", Mutating, "DROP"},
		{"truncate", "TRUNCATE users", Mutating, "TRUNCATE"},
		{"grant", "GRANT ALL ON users TO bob", Mutating, "GRANT"},
		{"set", "SET search_path TO public", Mutating, "SET"},
		{"begin", "BEGIN", Mutating, "BEGIN"},
		{"vacuum", "VACUUM", Mutating, "VACUUM"},
		{"attach", "ATTACH DATABASE 'x.db' AS x", Mutating, "ATTACH"},
		{"copy", "COPY users TO '/tmp/out'", Mutating, "COPY"},

		{"describe is not allow-listed", "DESCRIBE users", Unparseable, "DESCRIBE"},
		{"values", "VALUES (1)", Unparseable, "VALUES"},
		{"empty", "", Unparseable, ""},
		{"whitespace only", "  \n\t ", Unparseable, ""},
		{"leading parenthesis", "(SELECT 1)", Unparseable, ""},
		{"garbage", "☃ snowman", Unparseable, ""},

		{"keyword after line comment", "-- setup\nDELETE FROM users", Mutating, "DELETE"},
		{"keyword after hash comment", "# note\nSELECT 1", ReadOnly, "SELECT"},
		{"keyword after block comment", "/* harmless */ DROP TABLE users", Mutating, "DROP"},
		{"unterminated block comment", "/* DROP TABLE users", Unparseable, ""},
		{"comment only", "-- nothing here", Unparseable, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, kw := Classify(tt.stmt)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.keyword, kw)
		})
	}
}

func TestClassificationString(t *testing.T) {
	assert.Equal(t, "read-only", ReadOnly.String())
	assert.Equal(t, "mutating", Mutating.String())
	assert.Equal(t, "unparseable", Unparseable.String())
}

func TestLeadingKeyword(t *testing.T) {
	assert.Equal(t, "SELECT", LeadingKeyword("select * from t"))
	assert.Equal(t, "WITH", LeadingKeyword("\n\twith x as (select 1) select * from x"))
	assert.Equal(t, "", LeadingKeyword("123"))
	assert.Equal(t, "", LeadingKeyword(""))
}
