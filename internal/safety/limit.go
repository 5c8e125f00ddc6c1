package safety

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sqlgate/sqlgate/internal/gateway"
)

var limitClause = regexp.MustCompile(`(?i)\bLIMIT\b`)

// EnsureLimit appends "LIMIT cap" to SELECT and WITH statements that carry
// no LIMIT clause of their own. Statements that already have one are
// returned byte-for-byte unchanged: the engine never lowers an explicit
// user-chosen limit. Other read-only statement forms (SHOW, PRAGMA,
// EXPLAIN) pass through, LIMIT being meaningless there.
func EnsureLimit(stmt string, cap int) string {
	kw := LeadingKeyword(stmt)
	if kw != "SELECT" && kw != "WITH" {
		return stmt
	}
	// Checked on the stripped text so "WHERE note = 'no limit'" does not
	// count as a LIMIT clause.
	if limitClause.MatchString(StripLiterals(stmt)) {
		return stmt
	}

	trimmed := strings.TrimRight(stmt, " \t\r\n")
	trimmed = strings.TrimSuffix(trimmed, ";")
	trimmed = strings.TrimRight(trimmed, " \t\r\n")
	return fmt.Sprintf("%s LIMIT %d", trimmed, cap)
}

// RejectBatch rejects statements where a terminator is followed by further
// content: the most obvious way to smuggle a second statement past the
// first-keyword classifier. Terminators inside literals and comments do not
// trigger it.
func RejectBatch(stmt string) error {
	stripped := StripLiterals(stmt)
	if i := strings.Index(stripped, ";"); i >= 0 && strings.TrimSpace(stripped[i+1:]) != "" {
		return &gateway.StatementRejectedError{Reason: "multiple statements are not allowed"}
	}
	return nil
}
