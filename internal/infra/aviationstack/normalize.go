package aviationstack

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// providerName tags every payload leaving this package.
const providerName = "aviationstack"

// Meta describes a result set in a provider-agnostic shape. Pagination
// fields are nullable: they are copied from the provider's pagination block
// when present and serialized as null otherwise.
type Meta struct {
	Provider string `json:"provider"`
	Resource string `json:"resource"`
	Page     *int64 `json:"page"`
	PerPage  *int64 `json:"per_page"`
	Total    *int64 `json:"total"`
}

// Result is the normalized successful payload: stable meta, the provider's
// data entries, and the complete parsed body for forward compatibility.
type Result struct {
	Meta  Meta  `json:"meta"`
	Items []any `json:"items"`
	Raw   any   `json:"raw"`
}

// Normalize maps a raw Aviationstack body into the stable Result schema.
// It never fails: missing "data", non-array "data" and missing "pagination"
// all degrade to empty or absent defaults. This keeps MCP-facing code
// insulated from provider quirks.
func Normalize(resource string, body []byte) *Result {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		raw = map[string]any{}
	}

	items := []any{}
	if m, ok := raw.(map[string]any); ok {
		items = normalizeItems(m["data"])
	}

	meta := Meta{Provider: providerName, Resource: resource}
	if pag := gjson.GetBytes(body, "pagination"); pag.IsObject() {
		meta.Page = intField(pag, "current_page")
		meta.PerPage = intField(pag, "limit")
		meta.Total = intField(pag, "total")
	}

	return &Result{Meta: meta, Items: items, Raw: raw}
}

// normalizeItems coerces the provider's "data" field into a flat slice.
// Some endpoints return a single object instead of an array; that object is
// wrapped as a one-element slice. Absent or empty values become an empty
// slice.
func normalizeItems(data any) []any {
	switch v := data.(type) {
	case nil:
		return []any{}
	case []any:
		if v == nil {
			return []any{}
		}
		return v
	case map[string]any:
		if len(v) == 0 {
			return []any{}
		}
		return []any{v}
	case string:
		if v == "" {
			return []any{}
		}
		return []any{v}
	case bool:
		if !v {
			return []any{}
		}
		return []any{v}
	case float64:
		if v == 0 {
			return []any{}
		}
		return []any{v}
	default:
		return []any{v}
	}
}

// intField extracts a numeric field as *int64, nil when absent or null.
func intField(obj gjson.Result, key string) *int64 {
	f := obj.Get(key)
	if !f.Exists() || f.Type == gjson.Null {
		return nil
	}
	v := f.Int()
	return &v
}
