// Package server speaks MCP over stdio: newline-delimited JSON-RPC 2.0
// requests in, responses out. All diagnostics go to the logger so stdout
// stays a clean protocol stream.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sqlgate/sqlgate/internal/registry"
	"github.com/sqlgate/sqlgate/internal/safety"
)

// Server dispatches MCP requests against the registry and safety engine.
type Server struct {
	reg    *registry.Registry
	engine *safety.Engine
	log    *logrus.Logger

	in  io.Reader
	out io.Writer

	initialized bool
	ctx         context.Context
	cancel      context.CancelFunc
}

// New builds a server over an already-connected registry.
func New(ctx context.Context, reg *registry.Registry, engine *safety.Engine, log *logrus.Logger) *Server {
	sctx, cancel := context.WithCancel(ctx)
	return &Server{
		reg:    reg,
		engine: engine,
		log:    log,
		in:     os.Stdin,
		out:    os.Stdout,
		ctx:    sctx,
		cancel: cancel,
	}
}

// Run reads requests until EOF or shutdown.
func (s *Server) Run() error {
	reader := bufio.NewReader(s.in)

	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		response := s.handleMessage([]byte(line))
		if response == nil {
			continue
		}
		out, err := json.Marshal(response)
		if err != nil {
			s.log.Errorf("marshal response: %v", err)
			continue
		}
		fmt.Fprintln(s.out, string(out))
	}
}

func (s *Server) handleMessage(data []byte) *JSONRPCResponse {
	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      nil,
			Error: &Error{
				Code:    ParseError,
				Message: "Parse error",
				Data:    err.Error(),
			},
		}
	}

	if req.JSONRPC != "2.0" {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    InvalidRequest,
				Message: "Invalid JSON-RPC version",
			},
		}
	}

	return s.handleRequest(&req)
}

func (s *Server) handleRequest(req *JSONRPCRequest) *JSONRPCResponse {
	var result any
	var err *Error

	switch req.Method {
	case "initialize":
		result, err = s.handleInitialize(req.Params)
	case "initialized", "notifications/initialized":
		// Notification, no response needed
		return nil
	case "tools/list":
		result, err = s.handleListTools()
	case "tools/call":
		result, err = s.handleCallTool(req.Params)
	case "resources/list":
		result, err = s.handleListResources()
	case "resources/read":
		result, err = s.handleReadResource(req.Params)
	case "ping":
		result = map[string]any{}
	default:
		err = &Error{
			Code:    MethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
		Error:   err,
	}
}

func (s *Server) handleInitialize(params json.RawMessage) (*InitializeResult, *Error) {
	var initParams InitializeParams
	if params != nil {
		if err := json.Unmarshal(params, &initParams); err != nil {
			return nil, &Error{
				Code:    InvalidParams,
				Message: "Invalid initialize parameters",
				Data:    err.Error(),
			}
		}
	}

	s.initialized = true
	s.log.Infof("initialized by client %s %s",
		initParams.ClientInfo.Name, initParams.ClientInfo.Version)

	mode := "read-only"
	if s.engine.Unrestricted {
		mode = "unrestricted"
	}

	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools:     &ToolsCapability{},
			Resources: &ResourcesCapability{},
		},
		ServerInfo: ServerInfo{
			Name:    ServerName,
			Version: ServerVersion,
		},
		Instructions: fmt.Sprintf(
			"SQL gateway in %s mode over databases: %s. Start with list_databases and show_schema.",
			mode, strings.Join(s.reg.Names(), ", ")),
	}, nil
}

// Shutdown cancels in-flight work and stops the read loop.
func (s *Server) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
}
