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

package schema

import (
	"fmt"
	"strings"

	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"

	"github.com/lx-industries/rmcp-openapi/pkg/mcptool"
)

// Compiler turns one OpenAPI operation into a complete mcptool.Tool: input
// schema, output schema, annotations, and the invocation descriptor the
// Invocation Runtime binds against.
type Compiler struct {
	MultipleSuccessSchemaPolicy MultipleSuccessSchemaPolicy
}

// NewCompiler builds a Compiler with the spec's stated safe default for the
// multiple-2xx-schema open question (spec.md section 9).
func NewCompiler() *Compiler {
	return &Compiler{MultipleSuccessSchemaPolicy: PreferOK}
}

// Compile builds the tool for one path x method x operation triple.
func (c *Compiler) Compile(method, path string, op *v3.Operation) (mcptool.Tool, error) {
	name := ToolName(op.OperationId, method, path)

	inputSchema, params, mapping := BuildInputSchema(op)
	outputSchema := BuildOutputSchema(op, c.MultipleSuccessSchemaPolicy)

	var requestBody *mcptool.RequestBody
	if props, ok := inputSchema["properties"].(map[string]any); ok {
		if rb, ok := props["request_body"].(map[string]any); ok {
			requestBody = &mcptool.RequestBody{
				ContentType: stringOrEmpty(rb["x-content-type"]),
				Schema:      rb,
			}
			if required, ok := inputSchema["required"].([]string); ok {
				for _, r := range required {
					if r == "request_body" {
						requestBody.Required = true
					}
				}
			}
		}
	}

	tool := mcptool.Tool{
		Name:         name,
		Title:        name,
		Description:  describeOperation(op, method, path),
		InputSchema:  inputSchema,
		OutputSchema: outputSchema,
		Annotations:  methodAnnotations(method, name),
		Operation: mcptool.Operation{
			Method:                strings.ToUpper(method),
			PathTemplate:          path,
			Parameters:            params,
			RequestBody:           requestBody,
			SecurityRequired:      len(op.Security) > 0,
			ImageResponseDeclared: DeclaresImageResponse(op),
		},
		ParameterMapping: mapping,
	}
	return tool, nil
}

func stringOrEmpty(v any) string {
	s, _ := v.(string)
	return s
}

// describeOperation picks the operation's description, falling back to its
// summary and finally to "METHOD /path", per the teacher's GetToolDescription
// fallback chain.
func describeOperation(op *v3.Operation, method, path string) string {
	if op.Description != "" {
		return op.Description
	}
	if op.Summary != "" {
		return op.Summary
	}
	return fmt.Sprintf("%s %s", strings.ToUpper(method), path)
}

// methodAnnotations derives MCP tool annotations from the HTTP method, per
// spec.md's implicit mapping of REST verbs onto MCP's structural hints.
func methodAnnotations(method, name string) mcptool.Annotations {
	a := mcptool.Annotations{Title: name}
	switch strings.ToUpper(method) {
	case "GET", "HEAD", "OPTIONS":
		a.ReadOnlyHint = mcptool.BoolPtr(true)
		a.IdempotentHint = mcptool.BoolPtr(true)
	case "DELETE":
		a.DestructiveHint = mcptool.BoolPtr(true)
	case "PUT":
		a.IdempotentHint = mcptool.BoolPtr(true)
	case "POST":
		a.IdempotentHint = mcptool.BoolPtr(false)
	}
	return a
}
