// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/bureau-foundation/logrelay/cmd/logrelay/cli"
	"github.com/bureau-foundation/logrelay/lib/query"
)

// maxMessageSize bounds one JSON-RPC line from the client.
const maxMessageSize = 1024 * 1024

// Server answers MCP requests with the query engine. A Server handles
// one session; it is not safe for concurrent use.
type Server struct {
	engine      *query.Engine
	info        ServerInfo
	logger      *slog.Logger
	tools       []tool
	toolsByName map[string]*tool
	initialized bool
}

type tool struct {
	operation   query.Operation
	description toolDescription
	structured  bool
}

// NewServer builds the tool list from query.Operations. It fails only
// if a request or result type cannot be described as a schema.
func NewServer(engine *query.Engine, info ServerInfo, logger *slog.Logger) (*Server, error) {
	s := &Server{engine: engine, info: info, logger: logger}
	for _, operation := range query.Operations() {
		inputSchema, err := operation.InputSchema()
		if err != nil {
			return nil, fmt.Errorf("input schema for %s: %w", operation.Name, err)
		}
		outputSchema, err := operation.OutputSchema()
		if err != nil {
			return nil, fmt.Errorf("output schema for %s: %w", operation.Name, err)
		}

		description := toolDescription{
			Name:        operation.Name,
			Title:       operation.Title,
			Description: operation.Description,
			InputSchema: inputSchema,
			Annotations: annotationsFor(operation),
		}
		// MCP output schemas describe objects; list results are
		// returned as text only.
		structured := outputSchema.Type == "object"
		if structured {
			description.OutputSchema = outputSchema
		}
		s.tools = append(s.tools, tool{operation: operation, description: description, structured: structured})
	}

	s.toolsByName = make(map[string]*tool, len(s.tools))
	for index := range s.tools {
		s.toolsByName[s.tools[index].operation.Name] = &s.tools[index]
	}
	return s, nil
}

// Run reads requests from input and writes responses to output until
// input reaches EOF. Each message occupies one line.
func (s *Server) Run(input io.Reader, output io.Writer) error {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	encoder := json.NewEncoder(output)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if err := writeError(encoder, json.RawMessage("null"), codeParseError, "parse error: "+err.Error()); err != nil {
				return fmt.Errorf("writing parse error response: %w", err)
			}
			continue
		}
		if req.JSONRPC != "2.0" {
			if !req.isNotification() {
				if err := writeError(encoder, req.ID, codeInvalidRequest, "unsupported JSON-RPC version"); err != nil {
					return fmt.Errorf("writing version error response: %w", err)
				}
			}
			continue
		}
		if req.isNotification() {
			s.logger.Debug("mcp notification", "method", req.Method)
			continue
		}
		if err := s.dispatch(encoder, &req); err != nil {
			return fmt.Errorf("writing %s response: %w", req.Method, err)
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(encoder *json.Encoder, req *request) error {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(encoder, req)
	case "ping":
		return writeResult(encoder, req.ID, map[string]any{})
	case "tools/list":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsList(encoder, req)
	case "tools/call":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsCall(encoder, req)
	default:
		return writeError(encoder, req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Server) handleInitialize(encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for initialize")
	}
	var params initializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid initialize params: "+err.Error())
	}
	s.logger.Info("mcp client connected",
		"client", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version,
		"protocol_version", params.ProtocolVersion,
	)
	s.initialized = true
	return writeResult(encoder, req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    serverCapabilities{Tools: &toolCapability{}},
		ServerInfo:      s.info,
	})
}

func (s *Server) handleToolsList(encoder *json.Encoder, req *request) error {
	descriptions := make([]toolDescription, len(s.tools))
	for index, t := range s.tools {
		descriptions[index] = t.description
	}
	return writeResult(encoder, req.ID, toolsListResult{Tools: descriptions})
}

func (s *Server) handleToolsCall(encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for tools/call")
	}
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}
	return writeResult(encoder, req.ID, s.callTool(params.Name, params.Arguments))
}

// callTool runs one tool and converts the outcome into a result.
func (s *Server) callTool(name string, arguments json.RawMessage) toolsCallResult {
	t, ok := s.toolsByName[name]
	if !ok {
		return errorResult(cli.NotFound("Unknown tool: %s", name))
	}

	value, err := s.engine.Invoke(name, query.DecodeJSON(arguments))
	if err != nil {
		s.logger.Debug("tool call failed", "tool", name, "error", err)
		return errorResult(err)
	}

	text, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(cli.Internal("encoding %s result: %w", name, err))
	}
	result := toolsCallResult{Content: []contentBlock{{Type: "text", Text: string(text)}}}
	if t.structured {
		result.StructuredContent = value
	}
	return result
}

// errorResult reports err as {"error": message} text with its
// category.
func errorResult(err error) toolsCallResult {
	text, marshalError := json.MarshalIndent(map[string]string{"error": err.Error()}, "", "  ")
	if marshalError != nil {
		text = []byte(err.Error())
	}
	category := cli.Categorize(err)
	return toolsCallResult{
		Content: []contentBlock{{Type: "text", Text: string(text)}},
		IsError: true,
		ErrorInfo: &errorInfo{
			Category:  string(category),
			Retryable: category == cli.CategoryTransient,
		},
	}
}

func annotationsFor(operation query.Operation) *toolAnnotations {
	return &toolAnnotations{
		ReadOnlyHint:    boolPtr(operation.ReadOnly),
		DestructiveHint: boolPtr(operation.Destructive),
		IdempotentHint:  boolPtr(operation.ReadOnly),
		OpenWorldHint:   boolPtr(false),
	}
}

func boolPtr(value bool) *bool {
	return &value
}

func writeResult(encoder *json.Encoder, id json.RawMessage, result any) error {
	return encoder.Encode(response{JSONRPC: "2.0", ID: id, Result: result})
}

func writeError(encoder *json.Encoder, id json.RawMessage, code int, message string) error {
	return encoder.Encode(response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}
