package mcpserver

import (
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/aviolabs/avstack/internal/infra/aviationstack"
)

// Tool names exposed over MCP. Every tool is prefixed aviationstack_ so
// clients aggregating multiple servers can tell them apart.
const (
	ToolGetFlights   = "aviationstack_get_flights"
	ToolGetAirports  = "aviationstack_get_airports"
	ToolGetAirlines  = "aviationstack_get_airlines"
	ToolGetRoutes    = "aviationstack_get_routes"
	ToolGetAirplanes = "aviationstack_get_airplanes"
)

// endpointMap binds each tool name to the upstream REST resource it fetches.
var endpointMap = map[string]string{
	ToolGetFlights:   aviationstack.ResourceFlights,
	ToolGetAirports:  aviationstack.ResourceAirports,
	ToolGetAirlines:  aviationstack.ResourceAirlines,
	ToolGetRoutes:    aviationstack.ResourceRoutes,
	ToolGetAirplanes: aviationstack.ResourceAirplanes,
}

// outputSchema is shared by all tools: either a normalized success payload
// ({meta, items, raw}) or an {error} wrapper. Numeric pagination fields and
// the error detail fields are nullable on the wire, so the schema admits
// null for them.
var outputSchema = &jsonschema.Schema{
	Type: "object",
	OneOf: []*jsonschema.Schema{
		{
			Type:        "object",
			Description: "Normalized successful response from Aviationstack API",
			Properties: map[string]*jsonschema.Schema{
				"meta": {
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"provider": {Type: "string", Enum: []any{"aviationstack"}},
						"resource": {
							Type: "string",
							Enum: []any{"flights", "airports", "airlines", "routes", "airplanes"},
						},
						"page":     {Types: []string{"number", "null"}},
						"per_page": {Types: []string{"number", "null"}},
						"total":    {Types: []string{"number", "null"}},
					},
				},
				"items": {Type: "array"},
				"raw":   {Types: []string{"object", "array"}},
			},
			Required: []string{"meta", "items", "raw"},
		},
		{
			Type:        "object",
			Description: "Error response",
			Properties: map[string]*jsonschema.Schema{
				"error": {
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"provider":            {Type: "string"},
						"code":                {Types: []string{"string", "null"}},
						"message":             {Type: "string"},
						"status_code":         {Types: []string{"number", "null"}},
						"retryable":           {Type: "boolean"},
						"rate_limited":        {Type: "boolean"},
						"retry_after_seconds": {Types: []string{"number", "null"}},
					},
					Required: []string{"provider", "message"},
				},
			},
			Required: []string{"error"},
		},
	},
}

// toolDef pairs a tool declaration with nothing else; the handler is bound
// at registration time so every tool shares the same dispatch path.
type toolDef struct {
	name        string
	description string
	inputSchema *jsonschema.Schema
}

func toolDefs() []toolDef {
	return []toolDef{
		{
			name:        ToolGetFlights,
			description: "Get real-time and historical flight data.",
			inputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"flight_status": {
						Type: "string",
						Enum: []any{"scheduled", "active", "landed", "cancelled", "incident", "diverted"},
					},
					"flight_date":   {Type: "string", Description: "Date in YYYY-MM-DD format"},
					"dep_iata":      {Type: "string", Description: "Departure airport IATA code"},
					"arr_iata":      {Type: "string", Description: "Arrival airport IATA code"},
					"airline_name":  {Type: "string"},
					"flight_number": {Type: "string"},
				},
			},
		},
		{
			name:        ToolGetAirports,
			description: "Search for global airports.",
			inputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"search":       {Type: "string", Description: "Search query"},
					"iata_code":    {Type: "string"},
					"icao_code":    {Type: "string"},
					"country_name": {Type: "string"},
				},
			},
		},
		{
			name:        ToolGetAirlines,
			description: "Search for global airlines.",
			inputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"airline_name": {Type: "string"},
					"iata_code":    {Type: "string"},
					"icao_code":    {Type: "string"},
				},
			},
		},
		{
			name:        ToolGetRoutes,
			description: "Get information about airline routes.",
			inputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"dep_iata":     {Type: "string", Description: "Departure airport IATA code"},
					"arr_iata":     {Type: "string", Description: "Arrival airport IATA code"},
					"airline_name": {Type: "string"},
				},
			},
		},
		{
			name:        ToolGetAirplanes,
			description: "Get information about specific aircraft.",
			inputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"registration_number": {Type: "string"},
					"iata_type":           {Type: "string"},
				},
			},
		},
	}
}
