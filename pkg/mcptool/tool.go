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

// Package mcptool is the shared data model for a tool synthesized from an
// OpenAPI operation. pkg/schema, pkg/registry, pkg/validate, pkg/runtime
// and pkg/bridge all build on the types here rather than each owning their
// own slice of the same concept, the way pkg/core served as the shared
// vocabulary for every MakeMCP source package.
package mcptool

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// ParameterLocation is where an OpenAPI parameter is carried on the wire.
type ParameterLocation string

const (
	LocationPath   ParameterLocation = "path"
	LocationQuery  ParameterLocation = "query"
	LocationHeader ParameterLocation = "header"
	LocationCookie ParameterLocation = "cookie"
	LocationBody   ParameterLocation = "body"
)

// Parameter describes one OpenAPI parameter bound to an operation.
type Parameter struct {
	// Name is the MCP-facing (sanitized) property name.
	Name string
	// OriginalName is the name as declared in the OpenAPI document.
	OriginalName string
	Location     ParameterLocation
	Required     bool
	// Style and Explode follow OpenAPI 3's parameter serialization rules.
	Style   string
	Explode bool
	// Schema is the already $ref-resolved JSON Schema fragment for this
	// parameter's value, as a generic tree ready for json.Marshal.
	Schema map[string]any
}

// RequestBody describes an operation's request body.
type RequestBody struct {
	Required    bool
	ContentType string
	Schema      map[string]any
}

// Operation is the invocation descriptor for one OpenAPI path x method.
type Operation struct {
	Method       string
	PathTemplate string
	Parameters   []Parameter
	RequestBody  *RequestBody
	// SecurityRequired records whether the OpenAPI operation itself declares
	// any security requirement; a document-level default is not consulted.
	SecurityRequired bool
	// ImageResponseDeclared is true when at least one of the operation's 2xx
	// responses declares an image media type, per spec.md section 4.5's
	// image-content rule: a missing Content-Type on such an operation's
	// response is an execution error rather than a silently-empty body.
	ImageResponseDeclared bool
}

// Annotations are the structural hints MCP clients use to decide how to
// present or gate a tool call.
type Annotations struct {
	Title           string
	ReadOnlyHint    *bool
	DestructiveHint *bool
	IdempotentHint  *bool
	OpenWorldHint   *bool
}

// Tool is the canonical unit exposed to MCP clients.
type Tool struct {
	Name         string
	Title        string
	Description  string
	InputSchema  map[string]any
	OutputSchema map[string]any
	Annotations  Annotations
	Operation    Operation
	// ParameterMapping maps every MCP-facing argument name (excluding
	// timeout_seconds and request_body) back to the original OpenAPI
	// parameter name.
	ParameterMapping map[string]string
}

func boolPtr(v bool) *bool { return &v }

// BoolPtr exposes the boolean-pointer helper used throughout Annotations
// construction, matching the small helper the teacher carried in
// pkg/sources/openapi/utils.go.
func BoolPtr(v bool) *bool { return boolPtr(v) }

// ToMCPTool renders the tool in the wire vocabulary mark3labs/mcp-go expects.
// The input schema is carried via RawInputSchema since it needs the full
// draft-2020-12 shape (additionalProperties, oneOf, x- annotations) that
// mcp.ToolInputSchema's narrow struct does not model.
func (t Tool) ToMCPTool() (mcp.Tool, error) {
	raw, err := json.Marshal(t.InputSchema)
	if err != nil {
		return mcp.Tool{}, err
	}
	return mcp.Tool{
		Name:           t.Name,
		Description:    t.Description,
		RawInputSchema: json.RawMessage(raw),
		Annotations: mcp.ToolAnnotation{
			Title:           t.Title,
			ReadOnlyHint:    t.Annotations.ReadOnlyHint,
			DestructiveHint: t.Annotations.DestructiveHint,
			IdempotentHint:  t.Annotations.IdempotentHint,
			OpenWorldHint:   t.Annotations.OpenWorldHint,
		},
	}, nil
}

// ToJSON renders the tool descriptor for logging/debugging, matching the
// ToJSON convention every MakeMCPTool implementation carried.
func (t Tool) ToJSON() string {
	b, err := json.Marshal(t)
	if err != nil {
		return `{"error":"failed to marshal tool"}`
	}
	return string(b)
}
