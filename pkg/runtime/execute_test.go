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

package runtime

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lx-industries/rmcp-openapi/pkg/mcptool"
)

// TestExecuteSuccessEnvelope covers spec.md section 8 concrete scenario 1:
// a 200 JSON array response produces a non-error envelope carrying the
// parsed body verbatim.
func TestExecuteSuccessEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"id":1,"name":"doggie","photoUrls":["x"],"status":"available"}]`))
	}))
	defer server.Close()

	engine, err := NewEngine(server.URL, nil, "rmcp-openapi", "test", Compliant)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	tool := mcptool.Tool{
		Name: "findPetsByStatus",
		Operation: mcptool.Operation{
			Method:       "GET",
			PathTemplate: "/pet/findByStatus",
			Parameters: []mcptool.Parameter{
				{Name: "status", OriginalName: "status", Location: mcptool.LocationQuery, Required: true, Explode: true},
			},
		},
	}
	execCtx := mcptool.NewExecutionContext(tool.Name, map[string]any{"status": []any{"available", "pending"}}, nil)

	result, err := engine.Execute(context.Background(), execCtx, tool)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.IsError() {
		t.Fatalf("expected is_error=false, got envelope %v", result.Envelope())
	}
	if result.Envelope()["status"] != 200 {
		t.Errorf("status = %v, want 200", result.Envelope()["status"])
	}
}

// TestExecuteHttpErrorEnvelope covers scenario 4: a 404 with a JSON message
// body produces an http-error envelope with is_error true.
func TestExecuteHttpErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Pet not found"}`))
	}))
	defer server.Close()

	engine, err := NewEngine(server.URL, nil, "rmcp-openapi", "test", Compliant)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	tool := getPetByIdTool()
	execCtx := mcptool.NewExecutionContext(tool.Name, map[string]any{"petId": float64(999999)}, nil)

	result, err := engine.Execute(context.Background(), execCtx, tool)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.IsError() {
		t.Fatalf("expected is_error=true, got envelope %v", result.Envelope())
	}
	if result.Envelope()["status"] != 404 {
		t.Errorf("status = %v, want 404", result.Envelope()["status"])
	}
	body, ok := result.Envelope()["body"].(map[string]any)
	if !ok {
		t.Fatalf("body is not a map: %v", result.Envelope()["body"])
	}
	httpErr, ok := body["error"].(HttpError)
	if !ok {
		t.Fatalf("body.error is not an HttpError: %#v", body["error"])
	}
	if httpErr.Type != "http-error" || httpErr.Status != 404 || httpErr.Message != "Pet not found" {
		t.Errorf("httpErr = %+v, want type=http-error status=404 message=Pet not found", httpErr)
	}
}

// TestExecuteNetworkErrorEnvelope covers scenario 5: an unreachable host
// produces a network-error envelope with status 0.
func TestExecuteNetworkErrorEnvelope(t *testing.T) {
	engine, err := NewEngine("http://127.0.0.1:1", nil, "rmcp-openapi", "test", Compliant)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	tool := mcptool.Tool{
		Name:      "addPet",
		Operation: mcptool.Operation{Method: "POST", PathTemplate: "/pet"},
	}
	execCtx := mcptool.NewExecutionContext(tool.Name, map[string]any{
		"request_body":    map[string]any{"name": "x", "photoUrls": []any{}},
		"timeout_seconds": float64(1),
	}, nil)

	result, err := engine.Execute(context.Background(), execCtx, tool)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.IsError() {
		t.Fatalf("expected is_error=true, got envelope %v", result.Envelope())
	}
	if result.Envelope()["status"] != 0 {
		t.Errorf("status = %v, want 0", result.Envelope()["status"])
	}
	body, ok := result.Envelope()["body"].(map[string]any)
	if !ok {
		t.Fatalf("body is not a map: %v", result.Envelope()["body"])
	}
	netErr, ok := body["error"].(NetworkError)
	if !ok {
		t.Fatalf("body.error is not a NetworkError: %#v", body["error"])
	}
	if netErr.Type != "network-error" {
		t.Errorf("netErr.Type = %q, want network-error", netErr.Type)
	}
	if netErr.Category != networkCategoryConnect && netErr.Category != networkCategoryTimeout {
		t.Errorf("netErr.Category = %q, want connect or timeout", netErr.Category)
	}
}

// TestExecuteImageResponseProducesImageContent covers spec.md section 4.5's
// image-content rule: a 2xx response with an image Content-Type is surfaced
// as ImageContent rather than parsed as a JSON envelope.
func TestExecuteImageResponseProducesImageContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer server.Close()

	engine, err := NewEngine(server.URL, nil, "rmcp-openapi", "test", Compliant)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	tool := mcptool.Tool{
		Name: "getPetPhoto",
		Operation: mcptool.Operation{
			Method:                "GET",
			PathTemplate:          "/pet/photo",
			ImageResponseDeclared: true,
		},
	}
	execCtx := mcptool.NewExecutionContext(tool.Name, map[string]any{}, nil)

	result, err := engine.Execute(context.Background(), execCtx, tool)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	img := result.ImageContent()
	if img == nil {
		t.Fatal("expected ImageContent, got nil")
	}
	if img.MediaType != "image/png" {
		t.Errorf("MediaType = %q, want image/png", img.MediaType)
	}
	if string(img.Bytes) != string([]byte{0x89, 'P', 'N', 'G'}) {
		t.Errorf("Bytes = %v, want the PNG payload", img.Bytes)
	}
}

// TestExecuteImageDeclaredMissingContentTypeIsExecutionError covers the
// rule's second clause: an image-declared operation whose response arrives
// with no Content-Type is an execution error, not a silently empty body.
func TestExecuteImageDeclaredMissingContentTypeIsExecutionError(t *testing.T) {
	// Bypass net/http's automatic Content-Type sniffing (which would fill
	// one in on an ordinary ResponseWriter.Write) by hijacking the
	// connection and writing a raw response with no Content-Type header at
	// all, the case spec.md section 4.5 calls out explicitly.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatal("ResponseWriter does not support hijacking")
		}
		conn, buf, err := hj.Hijack()
		if err != nil {
			t.Fatalf("Hijack: %v", err)
		}
		defer conn.Close()
		body := []byte{0x89, 'P', 'N', 'G'}
		_, _ = buf.WriteString("HTTP/1.1 200 OK\r\n")
		_, _ = buf.WriteString(fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body)))
		_, _ = buf.Write(body)
		_ = buf.Flush()
	}))
	defer server.Close()

	engine, err := NewEngine(server.URL, nil, "rmcp-openapi", "test", Compliant)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	tool := mcptool.Tool{
		Name: "getPetPhoto",
		Operation: mcptool.Operation{
			Method:                "GET",
			PathTemplate:          "/pet/photo",
			ImageResponseDeclared: true,
		},
	}
	execCtx := mcptool.NewExecutionContext(tool.Name, map[string]any{}, nil)

	result, err := engine.Execute(context.Background(), execCtx, tool)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.ImageContent() != nil {
		t.Fatal("expected no ImageContent when Content-Type is missing")
	}
	if !result.IsError() {
		t.Fatalf("expected is_error=true, got envelope %v", result.Envelope())
	}
	body, ok := result.Envelope()["body"].(map[string]any)
	if !ok {
		t.Fatalf("body is not a map: %v", result.Envelope()["body"])
	}
	if _, ok := body["error"].(ResponseParsingError); !ok {
		t.Fatalf("body.error is not a ResponseParsingError: %#v", body["error"])
	}
}

func TestPassthroughWarnRequiresCapabilityFlag(t *testing.T) {
	PassthroughCapable = false
	_, err := NewAuthorizer(PassthroughWarn)
	if err == nil {
		t.Fatal("expected a ConfigurationError when the capability flag is unset")
	}
	if _, ok := err.(*ConfigurationError); !ok {
		t.Errorf("err = %T, want *ConfigurationError", err)
	}
}

func TestCompliantModeNeverForwardsAuthorization(t *testing.T) {
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	engine, err := NewEngine(server.URL, nil, "rmcp-openapi", "test", Compliant)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	tool := mcptool.Tool{Name: "noop", Operation: mcptool.Operation{Method: "GET", PathTemplate: "/noop"}}
	execCtx := mcptool.NewExecutionContext(tool.Name, map[string]any{}, map[string]string{"Authorization": "Bearer secret"})

	if _, err := engine.Execute(context.Background(), execCtx, tool); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gotHeaders.Get("Authorization") != "" {
		t.Errorf("Authorization header was forwarded under compliant mode: %q", gotHeaders.Get("Authorization"))
	}
}
