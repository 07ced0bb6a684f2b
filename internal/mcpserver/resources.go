package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	resourceDocsURI      = "aviationstack://docs"
	resourceEndpointsURI = "aviationstack://endpoints"
)

const docsMarkdown = `# Aviationstack MCP Server

## Tools (aviationstack_* prefix)
- ` + "`aviationstack_get_flights`" + `: Get real-time and historical flight data
- ` + "`aviationstack_get_airports`" + `: Search for global airports
- ` + "`aviationstack_get_airlines`" + `: Search for global airlines
- ` + "`aviationstack_get_routes`" + `: Get airline route information
- ` + "`aviationstack_get_airplanes`" + `: Get aircraft information

## Response Format
All tools return structured responses:
- Success: { meta: { provider, resource, page, per_page, total }, items: [...], raw: {...} }
- Error: { error: { provider, code, message, status_code, retryable, rate_limited, retry_after_seconds } }

## Environment Variables
- AVIATIONSTACK_API_KEY: Required API key from aviationstack.com
- AVIATIONSTACK_TIMEOUT_SECONDS: Request timeout (default: 10)
- AVIATIONSTACK_MAX_RETRIES: Max retry attempts (default: 2)
`

// registerResources declares the two documentation resources: a markdown
// overview and a machine-readable endpoint list.
func (s *Service) registerResources(server *mcp.Server) {
	server.AddResource(&mcp.Resource{
		URI:         resourceDocsURI,
		Name:        "Aviationstack API Documentation",
		Description: "Overview of Aviationstack MCP tools and usage",
		MIMEType:    "text/markdown",
	}, readDocs)

	server.AddResource(&mcp.Resource{
		URI:         resourceEndpointsURI,
		Name:        "Available Endpoints",
		Description: "List of all available Aviationstack API endpoints",
		MIMEType:    "application/json",
	}, readEndpoints)
}

func readDocs(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      resourceDocsURI,
			MIMEType: "text/markdown",
			Text:     docsMarkdown,
		}},
	}, nil
}

func readEndpoints(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	type endpoint struct {
		Name string `json:"name"`
		Tool string `json:"tool"`
	}
	endpoints := make([]endpoint, 0, len(endpointMap))
	for _, tool := range toolNames() {
		endpoints = append(endpoints, endpoint{Name: endpointMap[tool], Tool: tool})
	}
	body, err := json.MarshalIndent(map[string]any{"endpoints": endpoints}, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      resourceEndpointsURI,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
