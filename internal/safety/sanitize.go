package safety

import (
	"strings"

	"github.com/sqlgate/sqlgate/internal/gateway"
)

// ValidateIdentifier enforces the allow-list for user-supplied table,
// column, and index names that get interpolated into generated SQL: letters,
// digits, and underscore only, non-empty, not purely numeric. A qualified
// "schema.table" name is accepted by validating each segment. Anything else
// fails before any statement text is built.
func ValidateIdentifier(name string) error {
	if name == "" {
		return &gateway.InvalidIdentifierError{Name: name, Reason: "empty"}
	}
	for _, seg := range strings.Split(name, ".") {
		if seg == "" {
			return &gateway.InvalidIdentifierError{Name: name, Reason: "empty name segment"}
		}
		digitsOnly := true
		for i := 0; i < len(seg); i++ {
			b := seg[i]
			switch {
			case b >= '0' && b <= '9':
			case b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z'):
				digitsOnly = false
			default:
				return &gateway.InvalidIdentifierError{
					Name:   name,
					Reason: "only letters, digits, and underscore are allowed",
				}
			}
		}
		if digitsOnly {
			return &gateway.InvalidIdentifierError{Name: name, Reason: "purely numeric"}
		}
	}
	return nil
}

// ValidateCondition checks a user-supplied WHERE fragment before it is
// interpolated. Only the batching loophole is closed here: a statement
// terminator outside literals fails the check. The fragment is otherwise
// passed through to the backend, which reports genuine syntax errors.
func ValidateCondition(cond string) error {
	if strings.TrimSpace(cond) == "" {
		return &gateway.StatementRejectedError{Reason: "empty condition"}
	}
	if strings.Contains(StripLiterals(cond), ";") {
		return &gateway.StatementRejectedError{Reason: "condition contains a statement terminator"}
	}
	return nil
}
