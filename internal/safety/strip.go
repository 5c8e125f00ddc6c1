package safety

import "strings"

// StripLiterals removes comments and the contents of string literals and
// quoted identifiers from a statement so that terminator and LIMIT detection
// only see text outside quoted regions: a column named "limit" or an
// identifier containing ';' must not affect either scan. Quoted regions are
// replaced by empty delimiter pairs. The scanner accepts the union of the
// three dialects' syntaxes: --, # and /* */ comments, doubled-quote and
// backslash escapes in strings, dollar-quoted strings, and backtick or
// bracket identifiers.
func StripLiterals(stmt string) string {
	var out strings.Builder
	i, n := 0, len(stmt)

	for i < n {
		// Single-line comments.
		if strings.HasPrefix(stmt[i:], "--") || stmt[i] == '#' {
			for i < n && stmt[i] != '\n' {
				i++
			}
			out.WriteByte(' ')
			continue
		}

		// Multi-line comment.
		if strings.HasPrefix(stmt[i:], "/*") {
			end := strings.Index(stmt[i+2:], "*/")
			if end < 0 {
				out.WriteByte(' ')
				return out.String()
			}
			i += 2 + end + 2
			out.WriteByte(' ')
			continue
		}

		// Dollar-quoted string: $$...$$ or $tag$...$tag$.
		if stmt[i] == '$' {
			if tagEnd := strings.Index(stmt[i+1:], "$"); tagEnd >= 0 {
				tag := stmt[i : i+tagEnd+2]
				if closeIdx := strings.Index(stmt[i+len(tag):], tag); closeIdx >= 0 {
					i += len(tag) + closeIdx + len(tag)
					out.WriteString("''")
					continue
				}
			}
		}

		// Single-quoted string; '' and \' both escape.
		if stmt[i] == '\'' {
			i++
			for i < n {
				if stmt[i] == '\\' && i+1 < n {
					i += 2
					continue
				}
				if stmt[i] == '\'' {
					if i+1 < n && stmt[i+1] == '\'' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			out.WriteString("''")
			continue
		}

		// Double-quoted identifier; "" escapes.
		if stmt[i] == '"' {
			i++
			for i < n {
				if stmt[i] == '"' {
					if i+1 < n && stmt[i+1] == '"' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			out.WriteString(`""`)
			continue
		}

		// Backtick identifier.
		if stmt[i] == '`' {
			i++
			for i < n && stmt[i] != '`' {
				i++
			}
			if i < n {
				i++
			}
			out.WriteString("``")
			continue
		}

		// Bracket identifier.
		if stmt[i] == '[' {
			i++
			for i < n && stmt[i] != ']' {
				i++
			}
			if i < n {
				i++
			}
			out.WriteString("[]")
			continue
		}

		out.WriteByte(stmt[i])
		i++
	}

	return out.String()
}
