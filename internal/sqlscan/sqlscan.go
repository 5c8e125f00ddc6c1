// Package sqlscan decodes database/sql result sets into JSON-friendly maps.
// It is the only place loosely-typed row values exist; everything above it
// works with typed descriptors or these already-decoded maps.
package sqlscan

import "database/sql"

// Rows drains and closes a result set, producing one map per row keyed by
// column name. Byte slices become strings so results serialize as text
// rather than base64.
func Rows(rows *sql.Rows) ([]map[string]any, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
