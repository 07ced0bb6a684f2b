package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aviolabs/avstack/internal/domain/audit"
	"github.com/aviolabs/avstack/internal/infra/aviationstack"
	"github.com/aviolabs/avstack/internal/infra/eventbus"
)

func newTestDispatch(t *testing.T, handler http.HandlerFunc) (*Service, <-chan eventbus.Event) {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := aviationstack.New(aviationstack.Config{
		APIKey:  "test-key",
		BaseURL: ts.URL + "/",
	})
	if err != nil {
		t.Fatalf("aviationstack.New error = %v", err)
	}

	bus := eventbus.New()
	events := bus.Subscribe(audit.TopicInvocation)
	logger := log.New(io.Discard, "", 0)
	return NewService(client, bus, logger), events
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("len(Content) = %d; want 1", len(result.Content))
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("Content[0] is %T; want *mcp.TextContent", result.Content[0])
	}
	return text.Text
}

func awaitEvent(t *testing.T, events <-chan eventbus.Event) audit.Invocation {
	t.Helper()
	select {
	case evt := <-events:
		inv, ok := evt.Payload.(audit.Invocation)
		if !ok {
			t.Fatalf("event payload is %T; want audit.Invocation", evt.Payload)
		}
		return inv
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for invocation event")
		return audit.Invocation{}
	}
}

func TestToolDefs_AllFiveRegistered(t *testing.T) {
	t.Parallel()

	defs := toolDefs()
	if len(defs) != 5 {
		t.Fatalf("len(toolDefs) = %d; want 5", len(defs))
	}
	if defs[0].name != ToolGetFlights {
		t.Errorf("defs[0].name = %q; want %q", defs[0].name, ToolGetFlights)
	}
	if defs[1].name != ToolGetAirports {
		t.Errorf("defs[1].name = %q; want %q", defs[1].name, ToolGetAirports)
	}
	for _, def := range defs {
		if def.inputSchema == nil {
			t.Errorf("%s: nil input schema", def.name)
		}
		if _, ok := endpointMap[def.name]; !ok {
			t.Errorf("%s: not present in endpointMap", def.name)
		}
	}
	if outputSchema == nil || len(outputSchema.OneOf) != 2 {
		t.Error("output schema must offer success and error branches")
	}
}

func TestDispatch_GetFlights_Success(t *testing.T) {
	t.Parallel()

	svc, events := newTestDispatch(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/flights" {
			t.Errorf("path = %q; want /flights", got)
		}
		if got := r.URL.Query().Get("flight_number"); got != "123" {
			t.Errorf("flight_number = %q; want 123", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"pagination":{"current_page":1,"limit":100,"total":1},"data":[{"flight_number":"123"}]}`)) //nolint:errcheck
	})

	result := svc.Dispatch(context.Background(), ToolGetFlights, map[string]any{"flight_number": "123"})
	if result.IsError {
		t.Fatalf("IsError = true; text = %s", resultText(t, result))
	}

	var parsed struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &parsed); err != nil {
		t.Fatalf("unmarshal result text: %v", err)
	}
	if len(parsed.Items) != 1 || parsed.Items[0]["flight_number"] != "123" {
		t.Errorf("items = %+v; want one flight 123", parsed.Items)
	}

	inv := awaitEvent(t, events)
	if inv.Outcome != audit.OutcomeSuccess {
		t.Errorf("outcome = %q; want success", inv.Outcome)
	}
	if inv.Tool != ToolGetFlights || inv.Resource != "flights" {
		t.Errorf("event = %+v; want flights tool/resource", inv)
	}
	if inv.ItemCount != 1 {
		t.Errorf("item count = %d; want 1", inv.ItemCount)
	}
}

func TestDispatch_UnknownTool(t *testing.T) {
	t.Parallel()

	svc, events := newTestDispatch(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unknown tool must not reach the upstream API")
	})

	result := svc.Dispatch(context.Background(), "unknown_tool", map[string]any{})
	if !result.IsError {
		t.Fatal("IsError = false; want true")
	}

	var parsed struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &parsed); err != nil {
		t.Fatalf("unmarshal result text: %v", err)
	}
	if parsed.Error.Code != "unknown_tool" {
		t.Errorf("error.code = %q; want unknown_tool", parsed.Error.Code)
	}
	if !strings.Contains(parsed.Error.Message, ToolGetFlights) {
		t.Errorf("error message %q should list valid tools", parsed.Error.Message)
	}

	select {
	case evt := <-events:
		t.Errorf("unexpected invocation event for unknown tool: %+v", evt)
	default:
	}
}

func TestDispatch_UpstreamError(t *testing.T) {
	t.Parallel()

	svc, events := newTestDispatch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"invalid_api_function","message":"unknown endpoint"}}`)) //nolint:errcheck
	})

	result := svc.Dispatch(context.Background(), ToolGetAirports, nil)
	if !result.IsError {
		t.Fatal("IsError = false; want true")
	}

	var parsed struct {
		Error aviationstack.ErrorPayload `json:"error"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &parsed); err != nil {
		t.Fatalf("unmarshal result text: %v", err)
	}
	if parsed.Error.StatusCode == nil || *parsed.Error.StatusCode != http.StatusNotFound {
		t.Errorf("error.status_code = %v; want 404", parsed.Error.StatusCode)
	}
	if parsed.Error.Retryable {
		t.Error("a 404 must not be retryable")
	}

	inv := awaitEvent(t, events)
	if inv.Outcome != audit.OutcomeError {
		t.Errorf("outcome = %q; want error", inv.Outcome)
	}
}

func TestDecodeArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  *mcp.CallToolRequest
		want map[string]any
	}{
		{
			name: "raw json object",
			req: &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{
				Arguments: json.RawMessage(`{"dep_iata":"EZE"}`),
			}},
			want: map[string]any{"dep_iata": "EZE"},
		},
		{
			name: "absent arguments",
			req:  &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{}},
			want: map[string]any{},
		},
		{
			name: "malformed json",
			req: &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{
				Arguments: json.RawMessage(`{not json`),
			}},
			want: map[string]any{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := decodeArgs(tc.req)
			if len(got) != len(tc.want) {
				t.Fatalf("decodeArgs = %v; want %v", got, tc.want)
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Errorf("decodeArgs[%q] = %v; want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestNew_BuildsServer(t *testing.T) {
	t.Parallel()

	svc, _ := newTestDispatch(t, func(w http.ResponseWriter, r *http.Request) {})
	server := New(svc, "0.1.0")
	if server == nil {
		t.Fatal("New returned nil server")
	}
}
