// Package mcpserver exposes the Aviationstack client over the Model Context
// Protocol: five fetch tools sharing one dispatch path, plus documentation
// resources and prompt templates. Tool failures are returned as structured
// {error} results, never as protocol errors, so MCP clients always get the
// same payload shape.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aviolabs/avstack/internal/domain/audit"
	"github.com/aviolabs/avstack/internal/infra/aviationstack"
	"github.com/aviolabs/avstack/internal/infra/eventbus"
)

// Service is the tool dispatch layer. It owns the upstream client and
// publishes an invocation event per dispatched call.
type Service struct {
	client *aviationstack.Client
	bus    eventbus.EventBus
	logger *log.Logger
}

// NewService wires the dispatch layer. bus may be nil when invocation
// logging is disabled.
func NewService(client *aviationstack.Client, bus eventbus.EventBus, logger *log.Logger) *Service {
	return &Service{client: client, bus: bus, logger: logger}
}

// Dispatch resolves a tool name to its upstream resource, fetches it, and
// renders the outcome as a tool result. It never returns a protocol error:
// unknown tools, client failures and anything unexpected all come back as
// an {error} result with IsError set.
func (s *Service) Dispatch(ctx context.Context, tool string, args map[string]any) *mcp.CallToolResult {
	resource, ok := endpointMap[tool]
	if !ok {
		code := "unknown_tool"
		return errorResult(aviationstack.ErrorPayload{
			Provider: "aviationstack",
			Code:     &code,
			Message:  fmt.Sprintf("Unknown tool: %s. Valid tools: %s", tool, strings.Join(toolNames(), ", ")),
		})
	}

	start := time.Now()
	res, err := s.client.Fetch(ctx, resource, args)
	elapsed := time.Since(start)

	if err != nil {
		payload := classifyDispatchError(err)
		if s.logger != nil {
			s.logger.Printf("tool %s failed after %s: %s", tool, elapsed.Round(time.Millisecond), payload.Message)
		}
		s.publish(audit.Invocation{
			Tool:       tool,
			Resource:   resource,
			Outcome:    audit.OutcomeError,
			ErrorCode:  payload.Code,
			DurationMS: elapsed.Milliseconds(),
		})
		return errorResult(payload)
	}

	s.publish(audit.Invocation{
		Tool:       tool,
		Resource:   resource,
		Outcome:    audit.OutcomeSuccess,
		ItemCount:  len(res.Items),
		DurationMS: elapsed.Milliseconds(),
	})
	return successResult(res)
}

// classifyDispatchError maps a Fetch failure onto the wire error shape. The
// client only returns *APIError, but anything else is wrapped rather than
// letting it escape as a protocol error.
func classifyDispatchError(err error) aviationstack.ErrorPayload {
	var apiErr *aviationstack.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Payload
	}
	code := "unexpected_error"
	return aviationstack.ErrorPayload{
		Provider: "aviationstack",
		Code:     &code,
		Message:  fmt.Sprintf("Unexpected error in MCP server: %v", err),
	}
}

func (s *Service) publish(inv audit.Invocation) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(audit.TopicInvocation, inv)
}

// toolNames returns the registered tool names in a stable order for error
// messages.
func toolNames() []string {
	names := make([]string, 0, len(endpointMap))
	for name := range endpointMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func successResult(res *aviationstack.Result) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: mustJSON(res)}},
		StructuredContent: res,
	}
}

func errorResult(payload aviationstack.ErrorPayload) *mcp.CallToolResult {
	wrapped := map[string]any{"error": payload}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: mustJSON(wrapped)}},
		StructuredContent: wrapped,
		IsError:           true,
	}
}

// mustJSON renders v for the text content block. Both payload shapes are
// plain structs and maps, so marshalling cannot fail; the fallback exists
// to keep the result well-formed regardless.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{"error":{"provider":"aviationstack","code":"unexpected_error","message":"failed to encode result"}}`
	}
	return string(b)
}

// registerTools declares the five fetch tools, all bound to Dispatch.
func (s *Service) registerTools(server *mcp.Server) {
	for _, def := range toolDefs() {
		tool := &mcp.Tool{
			Name:         def.name,
			Description:  def.description,
			InputSchema:  def.inputSchema,
			OutputSchema: outputSchema,
		}
		name := def.name
		server.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return s.Dispatch(ctx, name, decodeArgs(req)), nil
		})
	}
}

// decodeArgs extracts the call arguments as a plain map. Absent or
// malformed arguments become an empty map; parameter validation is the
// upstream API's job.
func decodeArgs(req *mcp.CallToolRequest) map[string]any {
	var raw any = req.Params.Arguments
	switch v := raw.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return v
	case json.RawMessage:
		out := map[string]any{}
		if len(v) > 0 {
			_ = json.Unmarshal(v, &out) //nolint:errcheck
		}
		return out
	default:
		return map[string]any{}
	}
}
