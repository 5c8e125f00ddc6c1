package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sqlgate/sqlgate/internal/registry"
	"github.com/sqlgate/sqlgate/internal/safety"
	"github.com/sqlgate/sqlgate/internal/schema"
)

// databaseProp is shared by every tool that targets one connection.
var databaseProp = Property{
	Type:        "string",
	Description: "Database name from list_databases; may be omitted when exactly one database is configured",
}

func (s *Server) handleListTools() (*ListToolsResult, *Error) {
	return &ListToolsResult{
		Tools: []Tool{
			{
				Name:        "list_databases",
				Description: "List the configured database connections with their backend kind and redacted URL",
				InputSchema: InputSchema{
					Type:       "object",
					Properties: map[string]Property{},
				},
			},
			{
				Name:        "list_tables",
				Description: "List user tables in a database with approximate row counts",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"database": databaseProp,
					},
				},
			},
			{
				Name:        "describe_table",
				Description: "Describe a table's columns: name, type, nullability, default, primary and foreign keys",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"table":    {Type: "string", Description: "Table name"},
						"database": databaseProp,
					},
					Required: []string{"table"},
				},
			},
			{
				Name:        "list_indexes",
				Description: "List a table's indexes with their columns and uniqueness",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"table":    {Type: "string", Description: "Table name"},
						"database": databaseProp,
					},
					Required: []string{"table"},
				},
			},
			{
				Name:        "show_create_table",
				Description: "Show a table's CREATE TABLE DDL (reconstructed on PostgreSQL)",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"table":    {Type: "string", Description: "Table name"},
						"database": databaseProp,
					},
					Required: []string{"table"},
				},
			},
			{
				Name:        "show_schema",
				Description: "Render the whole database schema as a Mermaid ER diagram with foreign-key relationships",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"database": databaseProp,
					},
				},
			},
			{
				Name:        "sample_data",
				Description: "Fetch sample rows from a table, optionally filtered by a WHERE condition",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"table":    {Type: "string", Description: "Table name"},
						"where":    {Type: "string", Description: "Optional WHERE condition (without the WHERE keyword)"},
						"database": databaseProp,
					},
					Required: []string{"table"},
				},
			},
			{
				Name:        "query",
				Description: "Execute a SQL statement. In read-only mode only SELECT, WITH, SHOW, PRAGMA and EXPLAIN are accepted and uncapped SELECTs get a LIMIT",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"sql":      {Type: "string", Description: "The SQL statement to execute"},
						"database": databaseProp,
					},
					Required: []string{"sql"},
				},
			},
			{
				Name:        "explain",
				Description: "Show the backend's execution plan for a statement without running it",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"sql":      {Type: "string", Description: "The SQL statement to plan"},
						"database": databaseProp,
					},
					Required: []string{"sql"},
				},
			},
			{
				Name:        "query_dry_run",
				Description: "Validate a statement against the backend planner without executing it; reports {valid, error}",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"sql":      {Type: "string", Description: "The SQL statement to validate"},
						"database": databaseProp,
					},
					Required: []string{"sql"},
				},
			},
		},
	}, nil
}

func (s *Server) handleCallTool(params json.RawMessage) (*CallToolResult, *Error) {
	var callParams CallToolParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Invalid parameters",
			Data:    err.Error(),
		}
	}
	args := callParams.Arguments

	switch callParams.Name {
	case "list_databases":
		return s.listDatabases()
	case "list_tables":
		return s.listTables(args)
	case "describe_table":
		return s.describeTable(args)
	case "list_indexes":
		return s.listIndexes(args)
	case "show_create_table":
		return s.showCreateTable(args)
	case "show_schema":
		return s.showSchema(args)
	case "sample_data":
		return s.sampleData(args)
	case "query":
		return s.runQuery(args)
	case "explain":
		return s.runExplain(args)
	case "query_dry_run":
		return s.runDryRun(args)
	default:
		return nil, &Error{
			Code:    MethodNotFound,
			Message: fmt.Sprintf("Unknown tool: %s", callParams.Name),
		}
	}
}

// resolve picks the target connection from the optional "database" argument.
func (s *Server) resolve(args map[string]any) (*registry.Entry, *CallToolResult) {
	name, _ := args["database"].(string)
	entry, err := s.reg.Resolve(name)
	if err != nil {
		return nil, errorResult(err)
	}
	return entry, nil
}

// requireString extracts a mandatory string argument.
func requireString(args map[string]any, key string) (string, *Error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", &Error{
			Code:    InvalidParams,
			Message: fmt.Sprintf("Missing or invalid '%s' parameter", key),
		}
	}
	return v, nil
}

// errorResult wraps a domain error as a tool-level failure. Domain errors are
// part of normal operation and never become protocol errors.
func errorResult(err error) *CallToolResult {
	return &CallToolResult{
		Content: []Content{{Type: "text", Text: err.Error()}},
		IsError: true,
	}
}

// jsonResult marshals a value as an indented JSON text block.
func jsonResult(v any) (*CallToolResult, *Error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, &Error{
			Code:    InternalError,
			Message: fmt.Sprintf("Failed to marshal result: %v", err),
		}
	}
	return &CallToolResult{
		Content: []Content{{Type: "text", Text: string(out)}},
	}, nil
}

func textResult(text string) *CallToolResult {
	return &CallToolResult{
		Content: []Content{{Type: "text", Text: text}},
	}
}

// toolCtx bounds an introspection call the same way query execution is
// bounded.
func (s *Server) toolCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, s.engine.Timeout)
}

func (s *Server) listDatabases() (*CallToolResult, *Error) {
	type database struct {
		Name    string `json:"name"`
		Backend string `json:"type"`
		URL     string `json:"url"`
	}
	databases := []database{}
	for _, e := range s.reg.Entries() {
		databases = append(databases, database{
			Name:    e.Name,
			Backend: e.Backend.String(),
			URL:     e.RedactedURL,
		})
	}
	return jsonResult(databases)
}

func (s *Server) listTables(args map[string]any) (*CallToolResult, *Error) {
	entry, fail := s.resolve(args)
	if fail != nil {
		return fail, nil
	}

	ctx, cancel := s.toolCtx()
	defer cancel()

	stats, err := entry.Adapter.ListTables(ctx, entry.DB)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(stats)
}

func (s *Server) describeTable(args map[string]any) (*CallToolResult, *Error) {
	table, perr := requireString(args, "table")
	if perr != nil {
		return nil, perr
	}
	entry, fail := s.resolve(args)
	if fail != nil {
		return fail, nil
	}
	if err := safety.ValidateIdentifier(table); err != nil {
		return errorResult(err), nil
	}

	ctx, cancel := s.toolCtx()
	defer cancel()

	columns, err := entry.Adapter.DescribeTable(ctx, entry.DB, table)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(columns)
}

func (s *Server) listIndexes(args map[string]any) (*CallToolResult, *Error) {
	table, perr := requireString(args, "table")
	if perr != nil {
		return nil, perr
	}
	entry, fail := s.resolve(args)
	if fail != nil {
		return fail, nil
	}
	if err := safety.ValidateIdentifier(table); err != nil {
		return errorResult(err), nil
	}

	ctx, cancel := s.toolCtx()
	defer cancel()

	indexes, err := entry.Adapter.ListIndexes(ctx, entry.DB, table)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(indexes)
}

func (s *Server) showCreateTable(args map[string]any) (*CallToolResult, *Error) {
	table, perr := requireString(args, "table")
	if perr != nil {
		return nil, perr
	}
	entry, fail := s.resolve(args)
	if fail != nil {
		return fail, nil
	}
	if err := safety.ValidateIdentifier(table); err != nil {
		return errorResult(err), nil
	}

	ctx, cancel := s.toolCtx()
	defer cancel()

	ddl, err := entry.Adapter.ShowCreateTable(ctx, entry.DB, table)
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(ddl), nil
}

func (s *Server) showSchema(args map[string]any) (*CallToolResult, *Error) {
	entry, fail := s.resolve(args)
	if fail != nil {
		return fail, nil
	}

	ctx, cancel := s.toolCtx()
	defer cancel()

	diagram, err := schema.Mermaid(ctx, entry)
	if err != nil {
		return errorResult(err), nil
	}
	return textResult(diagram), nil
}

func (s *Server) sampleData(args map[string]any) (*CallToolResult, *Error) {
	table, perr := requireString(args, "table")
	if perr != nil {
		return nil, perr
	}
	entry, fail := s.resolve(args)
	if fail != nil {
		return fail, nil
	}
	where, _ := args["where"].(string)

	rows, err := s.engine.Sample(s.ctx, entry, table, where)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{
		"table": table,
		"rows":  rows,
		"count": len(rows),
	})
}

func (s *Server) runQuery(args map[string]any) (*CallToolResult, *Error) {
	stmt, perr := requireString(args, "sql")
	if perr != nil {
		return nil, perr
	}
	entry, fail := s.resolve(args)
	if fail != nil {
		return fail, nil
	}

	rows, err := s.engine.Query(s.ctx, entry, stmt)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{
		"rows":  rows,
		"count": len(rows),
	})
}

func (s *Server) runExplain(args map[string]any) (*CallToolResult, *Error) {
	stmt, perr := requireString(args, "sql")
	if perr != nil {
		return nil, perr
	}
	entry, fail := s.resolve(args)
	if fail != nil {
		return fail, nil
	}

	plan, err := s.engine.Explain(s.ctx, entry, stmt)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(plan)
}

func (s *Server) runDryRun(args map[string]any) (*CallToolResult, *Error) {
	stmt, perr := requireString(args, "sql")
	if perr != nil {
		return nil, perr
	}
	entry, fail := s.resolve(args)
	if fail != nil {
		return fail, nil
	}

	// A statement the backend refuses to plan is still a successful dry-run
	// outcome; only gating failures and timeouts surface as tool errors.
	result, err := s.engine.DryRun(s.ctx, entry, stmt)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result)
}
