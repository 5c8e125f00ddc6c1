package safety

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/sqlgate/sqlgate/internal/gateway"
	"github.com/sqlgate/sqlgate/internal/registry"
	"github.com/sqlgate/sqlgate/internal/sqlscan"
)

// Engine drives gated, bounded execution of user-supplied SQL. It is
// stateless apart from its configuration and safe for concurrent use.
type Engine struct {
	// RowCap is appended as a LIMIT to uncapped SELECT/WITH statements.
	RowCap int
	// Timeout bounds every execution. Expiry cancels the in-flight call;
	// it is never retried.
	Timeout time.Duration
	// Unrestricted disables the read-only gate and the transaction guard.
	Unrestricted bool
}

// Query classifies, gates, rewrites, and executes one statement.
func (e *Engine) Query(ctx context.Context, entry *registry.Entry, stmt string) ([]map[string]any, error) {
	class, kw := Classify(stmt)
	if !e.Unrestricted && class != ReadOnly {
		return nil, &gateway.StatementRejectedError{
			Keyword: kw,
			Reason:  "only SELECT/WITH/SHOW/PRAGMA/EXPLAIN statements are allowed in restricted mode",
		}
	}
	if err := RejectBatch(stmt); err != nil {
		return nil, err
	}
	if class == ReadOnly {
		stmt = EnsureLimit(stmt, e.RowCap)
	}
	return e.run(ctx, entry, stmt, !e.Unrestricted)
}

// Explain runs the statement under the backend's EXPLAIN syntax and returns
// the native plan rows.
func (e *Engine) Explain(ctx context.Context, entry *registry.Entry, stmt string) ([]map[string]any, error) {
	if err := RejectBatch(stmt); err != nil {
		return nil, err
	}
	full := entry.Adapter.ExplainPrefix() + strings.TrimSpace(stmt)
	return e.run(ctx, entry, full, false)
}

// DryRunResult reports whether a statement would be accepted by the
// backend. An invalid statement is a successful dry-run outcome, not a
// failure.
type DryRunResult struct {
	Valid     bool             `json:"valid"`
	QueryPlan []map[string]any `json:"query_plan,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// DryRun validates a statement by planning it. Backend-reported invalidity
// comes back as {valid: false}; gating failures and timeouts remain errors.
func (e *Engine) DryRun(ctx context.Context, entry *registry.Entry, stmt string) (*DryRunResult, error) {
	plan, err := e.Explain(ctx, entry, stmt)
	if err != nil {
		if gateway.IsBackend(err) {
			return &DryRunResult{Valid: false, Error: err.Error()}, nil
		}
		return nil, err
	}
	return &DryRunResult{Valid: true, QueryPlan: plan}, nil
}

// Sample returns up to RowCap rows from one table, optionally filtered. The
// table name and condition are sanitized before any statement text exists.
func (e *Engine) Sample(ctx context.Context, entry *registry.Entry, table, where string) ([]map[string]any, error) {
	if err := ValidateIdentifier(table); err != nil {
		return nil, err
	}
	if where != "" {
		if err := ValidateCondition(where); err != nil {
			return nil, err
		}
	}
	stmt := entry.Adapter.SampleSQL(table, where, e.RowCap)
	return e.run(ctx, entry, stmt, !e.Unrestricted)
}

// run executes one statement under the timeout race. With guard set, the
// two server backends execute inside an engine-enforced read-only
// transaction, so a classification miss is still rejected by the database
// itself. SQLite has no equivalent per-statement enforcement and relies on
// the lexical gate alone.
func (e *Engine) run(ctx context.Context, entry *registry.Entry, stmt string, guard bool) ([]map[string]any, error) {
	qctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	var rows *sql.Rows
	var err error
	if guard && entry.Backend != registry.SQLite {
		var tx *sql.Tx
		tx, err = entry.DB.BeginTx(qctx, &sql.TxOptions{ReadOnly: true})
		if err != nil {
			return nil, e.mapError(entry, qctx, err)
		}
		defer tx.Rollback()
		rows, err = tx.QueryContext(qctx, stmt)
	} else {
		rows, err = entry.DB.QueryContext(qctx, stmt)
	}
	if err != nil {
		return nil, e.mapError(entry, qctx, err)
	}

	out, err := sqlscan.Rows(rows)
	if err != nil {
		return nil, e.mapError(entry, qctx, err)
	}
	return out, nil
}

func (e *Engine) mapError(entry *registry.Entry, qctx context.Context, err error) error {
	if qctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
		return &gateway.QueryTimeoutError{Timeout: e.Timeout}
	}
	return gateway.WrapBackend(entry.Backend.String(), err)
}
