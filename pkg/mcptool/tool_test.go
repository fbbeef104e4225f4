package mcptool

import (
	"encoding/json"
	"testing"
)

func TestToMCPToolCarriesRawInputSchema(t *testing.T) {
	tool := Tool{
		Name:        "getPetById",
		Title:       "Get pet by id",
		Description: "Endpoint: GET /pet/{petId}",
		InputSchema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []string{"petId"},
			"properties": map[string]any{
				"petId": map[string]any{"type": "integer"},
			},
		},
		Annotations: Annotations{
			Title:        "Get pet by id",
			ReadOnlyHint: BoolPtr(true),
		},
	}

	mcpTool, err := tool.ToMCPTool()
	if err != nil {
		t.Fatalf("ToMCPTool returned error: %v", err)
	}
	if mcpTool.Name != "getPetById" {
		t.Fatalf("expected name to round-trip, got %q", mcpTool.Name)
	}

	var decoded map[string]any
	if err := json.Unmarshal(mcpTool.RawInputSchema, &decoded); err != nil {
		t.Fatalf("RawInputSchema is not valid JSON: %v", err)
	}
	if decoded["additionalProperties"] != false {
		t.Fatalf("expected additionalProperties:false to survive, got %v", decoded["additionalProperties"])
	}
	if mcpTool.Annotations.ReadOnlyHint == nil || !*mcpTool.Annotations.ReadOnlyHint {
		t.Fatalf("expected ReadOnlyHint true to survive conversion")
	}
}

func TestExecutionContextDefaultsHeaders(t *testing.T) {
	ctx := NewExecutionContext("getPetById", map[string]any{"petId": 1}, nil)
	if ctx.RequestHeaders() == nil {
		t.Fatalf("expected non-nil headers map by default")
	}
}
