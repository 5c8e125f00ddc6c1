package server

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Resource URIs take the form sqlgate://<database>/<table>/schema.
const resourceScheme = "sqlgate://"

func (s *Server) handleListResources() (*ListResourcesResult, *Error) {
	ctx, cancel := s.toolCtx()
	defer cancel()

	resources := []Resource{}
	for _, entry := range s.reg.Entries() {
		names, err := entry.Adapter.TableNames(ctx, entry.DB)
		if err != nil {
			s.log.Warnf("list tables for %s: %v", entry.Name, err)
			continue
		}
		for _, table := range names {
			resources = append(resources, Resource{
				URI:      fmt.Sprintf("%s%s/%s/schema", resourceScheme, entry.Name, table),
				Name:     fmt.Sprintf("Schema for table '%s' in %s", table, entry.Name),
				MimeType: "application/json",
			})
		}
	}

	return &ListResourcesResult{Resources: resources}, nil
}

func (s *Server) handleReadResource(params json.RawMessage) (*ReadResourceResult, *Error) {
	var readParams ReadResourceParams
	if err := json.Unmarshal(params, &readParams); err != nil {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Invalid parameters",
			Data:    err.Error(),
		}
	}

	uri := readParams.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, &Error{
			Code:    InvalidParams,
			Message: fmt.Sprintf("Invalid resource URI: must start with %s", resourceScheme),
		}
	}

	parts := strings.Split(strings.TrimPrefix(uri, resourceScheme), "/")
	if len(parts) < 3 || parts[len(parts)-1] != "schema" {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Invalid resource URI format: expected sqlgate://database/table/schema",
		}
	}
	dbName := parts[0]
	// PostgreSQL table names may themselves be schema-qualified with a slash
	// never appearing; everything between database and the trailing segment
	// is the table name.
	table := strings.Join(parts[1:len(parts)-1], "/")

	entry, err := s.reg.Resolve(dbName)
	if err != nil {
		return nil, &Error{
			Code:    InvalidParams,
			Message: err.Error(),
		}
	}

	ctx, cancel := s.toolCtx()
	defer cancel()

	columns, err := entry.Adapter.DescribeTable(ctx, entry.DB, table)
	if err != nil {
		return nil, &Error{
			Code:    InternalError,
			Message: fmt.Sprintf("Failed to get schema: %v", err),
		}
	}

	schemaJSON, err := json.MarshalIndent(columns, "", "  ")
	if err != nil {
		return nil, &Error{
			Code:    InternalError,
			Message: fmt.Sprintf("Failed to marshal schema: %v", err),
		}
	}

	return &ReadResourceResult{
		Contents: []ResourceContent{
			{
				URI:      uri,
				MimeType: "application/json",
				Text:     string(schemaJSON),
			},
		},
	}, nil
}
