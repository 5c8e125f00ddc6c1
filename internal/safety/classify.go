// Package safety gates and bounds every user-supplied SQL statement before
// it reaches a backend. Classification is deliberately lexical, not
// grammatical: it inspects the first keyword token, trading perfect
// precision for dialect portability. Anything it cannot recognize fails
// closed.
package safety

import "strings"

// Classification is the verdict assigned to a statement before execution.
type Classification int

const (
	// ReadOnly statements may run in restricted mode.
	ReadOnly Classification = iota
	// Mutating statements are rejected in restricted mode.
	Mutating
	// Unparseable statements are treated as Mutating for gating.
	Unparseable
)

func (c Classification) String() string {
	switch c {
	case ReadOnly:
		return "read-only"
	case Mutating:
		return "mutating"
	}
	return "unparseable"
}

// readOnlyKeywords is the fixed allow-list of statement-starting keywords.
var readOnlyKeywords = map[string]bool{
	"SELECT":  true,
	"WITH":    true,
	"SHOW":    true,
	"PRAGMA":  true,
	"EXPLAIN": true,
}

// mutatingKeywords are recognized statement starters that write, define, or
// otherwise change engine state.
var mutatingKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true,
	"CREATE": true, "DROP": true, "ALTER": true, "TRUNCATE": true,
	"GRANT": true, "REVOKE": true,
	"REPLACE": true, "MERGE": true, "SET": true,
	"CALL": true, "EXECUTE": true, "DO": true, "HANDLER": true,
	"ATTACH": true, "DETACH": true, "VACUUM": true, "REINDEX": true,
	"ANALYZE": true, "ANALYSE": true,
	"BEGIN": true, "START": true, "COMMIT": true, "ROLLBACK": true,
	"SAVEPOINT": true, "RELEASE": true, "LOCK": true, "UNLOCK": true,
	"RENAME": true, "COPY": true, "LOAD": true, "IMPORT": true,
}

// Classify assigns a verdict to a statement and returns the keyword it was
// based on. It is a pure function of the input text: same input, same
// output.
func Classify(stmt string) (Classification, string) {
	kw := LeadingKeyword(stmt)
	switch {
	case kw == "":
		return Unparseable, ""
	case readOnlyKeywords[kw]:
		return ReadOnly, kw
	case mutatingKeywords[kw]:
		return Mutating, kw
	}
	return Unparseable, kw
}

// LeadingKeyword returns the first keyword token of a statement, uppercased,
// skipping leading whitespace and comments. Empty when no keyword-shaped
// token starts the statement.
func LeadingKeyword(stmt string) string {
	i := skipLeading(stmt)
	j := i
	for j < len(stmt) && isKeywordByte(stmt[j]) {
		j++
	}
	return strings.ToUpper(stmt[i:j])
}

func isKeywordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// skipLeading advances past whitespace and leading comment blocks, so a
// destructive keyword cannot hide behind "/* harmless */".
func skipLeading(stmt string) int {
	i, n := 0, len(stmt)
	for i < n {
		switch {
		case stmt[i] == ' ' || stmt[i] == '\t' || stmt[i] == '\r' || stmt[i] == '\n':
			i++
		case strings.HasPrefix(stmt[i:], "--") || stmt[i] == '#':
			for i < n && stmt[i] != '\n' {
				i++
			}
		case strings.HasPrefix(stmt[i:], "/*"):
			end := strings.Index(stmt[i+2:], "*/")
			if end < 0 {
				return n
			}
			i += 2 + end + 2
		default:
			return i
		}
	}
	return i
}
