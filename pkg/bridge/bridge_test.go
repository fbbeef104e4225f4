// Copyright 2025 MakeMCP Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/lx-industries/rmcp-openapi/pkg/runtime"
	"github.com/lx-industries/rmcp-openapi/pkg/specloader"
	"github.com/lx-industries/rmcp-openapi/pkg/validate"
)

const petstoreSpec = `{
  "openapi": "3.0.3",
  "info": {"title": "Petstore", "version": "1.0.0"},
  "paths": {
    "/pet/findByStatus": {
      "get": {
        "operationId": "findPetsByStatus",
        "tags": ["pet"],
        "parameters": [
          {"name": "status", "in": "query", "required": true,
           "schema": {"type": "array", "items": {"type": "string", "enum": ["available","pending","sold"]}}}
        ],
        "responses": {
          "200": {"description": "ok", "content": {"application/json": {
            "schema": {"type": "array", "items": {"$ref": "#/components/schemas/Pet"}}
          }}}
        }
      }
    },
    "/pet/{petId}": {
      "get": {
        "operationId": "getPetById",
        "tags": ["pet"],
        "parameters": [
          {"name": "petId", "in": "path", "required": true, "schema": {"type": "integer"}}
        ],
        "responses": {
          "200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}},
          "404": {"description": "not found"}
        }
      }
    },
    "/pet": {
      "post": {
        "operationId": "addPet",
        "tags": ["pet"],
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}
        },
        "responses": {
          "200": {"description": "ok", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}}
        }
      }
    }
  },
  "components": {
    "schemas": {
      "Pet": {
        "type": "object",
        "required": ["name", "photoUrls"],
        "properties": {
          "id": {"type": "integer"},
          "name": {"type": "string"},
          "photoUrls": {"type": "array", "items": {"type": "string"}},
          "status": {"type": "string", "enum": ["available", "pending", "sold"]}
        }
      }
    }
  }
}`

func newTestBridge(t *testing.T, baseURL string) *Bridge {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/petstore.json"
	if err := os.WriteFile(path, []byte(petstoreSpec), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	b, err := New(ServerConfig{
		SpecLocation:   path,
		BaseURL:        baseURL,
		ProductName:    "rmcp-openapi",
		ProductVersion: "test",
		LoaderOptions:  specloader.Options{StrictValidation: true},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

// TestCallToolSuccessEnvelope covers spec.md section 8 concrete scenario 1.
func TestCallToolSuccessEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"id":1,"name":"doggie","photoUrls":["x"],"status":"available"}]`))
	}))
	defer server.Close()

	b := newTestBridge(t, server.URL)
	result, err := b.CallTool(context.Background(), "findpetsbystatus", map[string]any{
		"status": []any{"available", "pending"},
	}, nil)
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected IsError=false, got structured content %v", result.StructuredContent)
	}
}

// TestCallToolTypeMismatchIsProtocolError covers scenario 2.
func TestCallToolTypeMismatchIsProtocolError(t *testing.T) {
	b := newTestBridge(t, "http://unused.invalid")
	_, err := b.CallTool(context.Background(), "findpetsbystatus", map[string]any{
		"status": "available",
	}, nil)
	if err == nil {
		t.Fatal("expected a protocol error")
	}
	perr, ok := err.(*ProtocolError)
	if !ok {
		t.Fatalf("err = %T, want *ProtocolError", err)
	}
	if perr.Code != -32602 {
		t.Errorf("Code = %d, want -32602", perr.Code)
	}
	data := perr.Data.(map[string]any)
	violations := data["violations"].([]validate.Violation)
	if len(violations) != 1 || violations[0].Kind != validate.TypeMismatch {
		t.Fatalf("violations = %v, want single type-mismatch", violations)
	}
	if violations[0].ExpectedType != "array" {
		t.Errorf("ExpectedType = %q, want array", violations[0].ExpectedType)
	}
}

// TestCallToolMissingRequiredAndInvalidParameter covers scenario 3.
func TestCallToolMissingRequiredAndInvalidParameter(t *testing.T) {
	b := newTestBridge(t, "http://unused.invalid")
	_, err := b.CallTool(context.Background(), "getpetbyid", map[string]any{"pet_id": 123}, nil)
	perr, ok := err.(*ProtocolError)
	if !ok {
		t.Fatalf("err = %T, want *ProtocolError", err)
	}
	data := perr.Data.(map[string]any)
	violations := data["violations"].([]validate.Violation)
	var hasInvalid, hasMissing bool
	for _, v := range violations {
		if v.Kind == validate.InvalidParameter && v.Parameter == "pet_id" {
			hasInvalid = true
			found := false
			for _, s := range v.Suggestions {
				if s == "petId" {
					found = true
				}
			}
			if !found {
				t.Errorf("expected petId suggested, got %v", v.Suggestions)
			}
		}
		if v.Kind == validate.MissingRequired && v.Parameter == "petId" {
			hasMissing = true
		}
	}
	if !hasInvalid || !hasMissing {
		t.Fatalf("violations = %v, want invalid-parameter(pet_id) and missing-required(petId)", violations)
	}
}

// TestCallToolHttpErrorEnvelope covers scenario 4.
func TestCallToolHttpErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Pet not found"}`))
	}))
	defer server.Close()

	b := newTestBridge(t, server.URL)
	result, err := b.CallTool(context.Background(), "getpetbyid", map[string]any{"petId": float64(999999)}, nil)
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected IsError=true, got %v", result.StructuredContent)
	}
	envelope := result.StructuredContent.(map[string]any)
	if envelope["status"] != 404 {
		t.Errorf("status = %v, want 404", envelope["status"])
	}
}

// TestCallToolNetworkErrorEnvelope covers scenario 5.
func TestCallToolNetworkErrorEnvelope(t *testing.T) {
	b := newTestBridge(t, "http://127.0.0.1:1")
	result, err := b.CallTool(context.Background(), "addpet", map[string]any{
		"request_body":    map[string]any{"name": "x", "photoUrls": []any{}},
		"timeout_seconds": float64(1),
	}, nil)
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected IsError=true, got %v", result.StructuredContent)
	}
	envelope := result.StructuredContent.(map[string]any)
	if envelope["status"] != 0 {
		t.Errorf("status = %v, want 0", envelope["status"])
	}
}

// TestCallToolUnknownNameSuggestsClosestMatch covers scenario 6: a typo'd
// tool name (registry only has "getpetbyid", since tool names are
// lowercased per pkg/schema/naming.go) surfaces -32601 with the closest
// registered name suggested.
func TestCallToolUnknownNameSuggestsClosestMatch(t *testing.T) {
	b := newTestBridge(t, "http://unused.invalid")
	_, err := b.CallTool(context.Background(), "getpetbyidd", map[string]any{}, nil)
	perr, ok := err.(*ProtocolError)
	if !ok {
		t.Fatalf("err = %T, want *ProtocolError", err)
	}
	if perr.Code != -32601 {
		t.Errorf("Code = %d, want -32601", perr.Code)
	}
	data := perr.Data.(map[string]any)
	suggestions := data["suggestions"].([]string)
	found := false
	for _, s := range suggestions {
		if s == "getpetbyid" {
			found = true
		}
	}
	if !found {
		t.Errorf("suggestions = %v, want getpetbyid", suggestions)
	}
}

func TestListToolsPreservesDocumentOrder(t *testing.T) {
	b := newTestBridge(t, "http://unused.invalid")
	tools, err := b.ListTools()
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 3 {
		t.Fatalf("len(tools) = %d, want 3", len(tools))
	}
	if tools[0].Name != "findpetsbystatus" || tools[1].Name != "getpetbyid" || tools[2].Name != "addpet" {
		t.Errorf("tool order = %v, want [findpetsbystatus getpetbyid addpet]", tools)
	}
}

func TestCompliantAuthorizationIsDefault(t *testing.T) {
	runtime.PassthroughCapable = false
	_ = newTestBridge(t, "http://unused.invalid")
}
