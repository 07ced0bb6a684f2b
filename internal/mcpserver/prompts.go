package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	promptFlightSearchHelper = "flight_search_helper"
	promptAirportLookup      = "airport_lookup"
	promptFlightSearch       = "aviationstack_flight_search"
)

// registerPrompts declares the prompt templates. Two are conversational
// helpers that explain which tool to reach for; the third builds a compact
// search instruction from structured arguments.
func (s *Service) registerPrompts(server *mcp.Server) {
	server.AddPrompt(&mcp.Prompt{
		Name:        promptFlightSearchHelper,
		Description: "Help users search for flights using natural language",
		Arguments: []*mcp.PromptArgument{
			{Name: "query", Description: "Natural language flight search query", Required: true},
		},
	}, getFlightSearchHelper)

	server.AddPrompt(&mcp.Prompt{
		Name:        promptAirportLookup,
		Description: "Get airport information by IATA/ICAO code or name",
		Arguments: []*mcp.PromptArgument{
			{Name: "airport_info", Description: "Airport name, IATA code, or ICAO code", Required: true},
		},
	}, getAirportLookup)

	server.AddPrompt(&mcp.Prompt{
		Name:        promptFlightSearch,
		Description: "Search for flights by criteria",
		Arguments: []*mcp.PromptArgument{
			{Name: "flight_number", Description: "Optional flight number (e.g. BA123)"},
			{Name: "dep_iata", Description: "Departure airport IATA code"},
			{Name: "arr_iata", Description: "Arrival airport IATA code"},
		},
	}, getFlightSearch)
}

func getFlightSearchHelper(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	query := req.Params.Arguments["query"]
	text := fmt.Sprintf(`Help me search for flights with this query: %q

Please use the aviationstack_get_flights tool with appropriate parameters:
- flight_date: Use YYYY-MM-DD format if date mentioned
- dep_iata: Departure airport IATA code if mentioned
- arr_iata: Arrival airport IATA code if mentioned
- airline_name: Airline name if mentioned
- flight_number: Flight number if mentioned
- flight_status: Filter by status if mentioned (scheduled, active, landed, cancelled, incident, diverted)

Return the results in a clear, readable format.`, query)

	return &mcp.GetPromptResult{
		Description: "Flight search helper prompt",
		Messages:    []*mcp.PromptMessage{userMessage(text)},
	}, nil
}

func getAirportLookup(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	airportInfo := req.Params.Arguments["airport_info"]
	text := fmt.Sprintf(`Find information about this airport: %q

Please use the aviationstack_get_airports tool with appropriate parameters:
- search: General search term if airport name provided
- iata_code: IATA code if provided
- icao_code: ICAO code if provided
- country_name: Country name if mentioned

Return detailed airport information including location, codes, and other available details.`, airportInfo)

	return &mcp.GetPromptResult{
		Description: "Airport lookup prompt",
		Messages:    []*mcp.PromptMessage{userMessage(text)},
	}, nil
}

func getFlightSearch(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	parts := []string{"Search for flights"}
	if v := req.Params.Arguments["flight_number"]; v != "" {
		parts = append(parts, "with flight number "+v)
	}
	if v := req.Params.Arguments["dep_iata"]; v != "" {
		parts = append(parts, "departing from "+v)
	}
	if v := req.Params.Arguments["arr_iata"]; v != "" {
		parts = append(parts, "arriving at "+v)
	}
	return &mcp.GetPromptResult{
		Messages: []*mcp.PromptMessage{userMessage(strings.Join(parts, " "))},
	}, nil
}

func userMessage(text string) *mcp.PromptMessage {
	return &mcp.PromptMessage{
		Role:    "user",
		Content: &mcp.TextContent{Text: text},
	}
}
