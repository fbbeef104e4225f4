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
	"encoding/json"
	"fmt"

	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"

	"github.com/lx-industries/rmcp-openapi/pkg/mcptool"
)

// parameterLocations is the order path/query/header/cookie parameters are
// walked in -- document order within each location, locations in this
// fixed order, so two compiles of the same operation produce byte-identical
// property ordering (spec.md's round-trip / idempotence property).
var parameterLocations = []string{"path", "query", "header", "cookie"}

// BuildInputSchema constructs a tool's input schema and parameter table per
// spec.md section 4.2: one property per path/query/header/cookie parameter,
// an optional expanded request_body, and a synthetic timeout_seconds knob.
func BuildInputSchema(op *v3.Operation) (schemaOut map[string]any, params []mcptool.Parameter, mapping map[string]string) {
	properties := map[string]any{}
	var required []string
	mapping = map[string]string{}

	byLocation := map[string][]*v3.Parameter{}
	for _, p := range op.Parameters {
		byLocation[p.In] = append(byLocation[p.In], p)
	}

	// A sanitized name that would collide with another parameter's sanitized
	// name (typically the same name declared in two locations, e.g. a path
	// "id" and a query "id"), or with one of the two reserved input
	// properties, needs its location prefixed back on to stay unambiguous.
	// Everything else keeps its literal OpenAPI name, per spec.md section
	// 4.1.
	sanitizedCount := map[string]int{"request_body": 1, "timeout_seconds": 1}
	for _, p := range op.Parameters {
		sanitizedCount[SanitizeParameterName(p.Name)]++
	}

	for _, loc := range parameterLocations {
		for _, p := range byLocation[loc] {
			disambiguate := sanitizedCount[SanitizeParameterName(p.Name)] > 1
			fieldName := ParameterFieldName(loc, p.Name, disambiguate)
			propSchema := ConvertSchema(p.Schema)
			propSchema["x-parameter-location"] = loc
			isRequired := p.Required != nil && *p.Required
			propSchema["x-parameter-required"] = isRequired
			if desc := exampleEnrichedDescription(p); desc != "" {
				propSchema["description"] = desc
			}
			properties[fieldName] = propSchema
			mapping[fieldName] = p.Name
			params = append(params, mcptool.Parameter{
				Name:         fieldName,
				OriginalName: p.Name,
				Location:     mcptool.ParameterLocation(loc),
				Required:     isRequired,
				Style:        p.Style,
				Explode:      resolveExplode(p),
				Schema:       propSchema,
			})
			if isRequired {
				required = append(required, fieldName)
			}
		}
	}

	if op.RequestBody != nil {
		bodySchema, bodyRequired := buildRequestBodyProperty(op.RequestBody)
		if bodySchema != nil {
			properties["request_body"] = bodySchema
			if bodyRequired {
				required = append(required, "request_body")
			}
		}
	}

	properties["timeout_seconds"] = map[string]any{
		"type":        "integer",
		"description": "Per-call HTTP timeout in seconds.",
		"default":     30,
		"minimum":     1,
		"maximum":     300,
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
		"required":             required,
	}, params, mapping
}

// buildRequestBodyProperty expands the operation's request body into the
// request_body input property, preferring the content registry's highest
// priority declared media type.
func buildRequestBodyProperty(body *v3.RequestBody) (map[string]any, bool) {
	if body == nil || body.Content == nil || body.Content.Len() == 0 {
		return nil, false
	}
	registry := NewContentTypeRegistry()

	var mediaType string
	var media *v3.MediaType
	for _, ct := range registry.PreferredContentTypes() {
		if m, ok := body.Content.Get(ct); ok && m != nil {
			mediaType = ct
			media = m
			break
		}
	}
	if media == nil {
		for pair := body.Content.First(); pair != nil; pair = pair.Next() {
			mediaType = pair.Key()
			media = pair.Value()
			break
		}
	}
	if media == nil {
		return nil, false
	}

	required := body.Required != nil && *body.Required

	if media.Schema != nil {
		s := media.Schema.Schema()
		if s != nil && s.Properties != nil && s.Properties.Len() > 0 {
			schema := ConvertSchema(media.Schema)
			schema["x-content-type"] = mediaType
			schema["x-location"] = "body"
			return schema, required
		}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"x-content-type":       mediaType,
		"x-location":           "body",
		"description":          describeSchema(media.Schema),
	}, required
}

// exampleEnrichedDescription folds a parameter's description and any
// declared example(s) into a single fidelity-preserving description
// string, per spec.md section 4.2, so an LLM sees concrete sample values.
func exampleEnrichedDescription(p *v3.Parameter) string {
	desc := p.Description
	examples := collectExamples(p)
	if len(examples) == 0 {
		return desc
	}
	encoded, err := json.Marshal(examples)
	if err != nil {
		return desc
	}
	if desc == "" {
		return fmt.Sprintf("Example(s): %s", encoded)
	}
	return fmt.Sprintf("%s\n\nExample(s): %s", desc, encoded)
}

// resolveExplode applies OpenAPI 3's default explode value (true for the
// default "form" query style, false otherwise) when a parameter does not
// declare explode explicitly, so the Invocation Runtime never has to guess
// between "unset" and "explicitly false".
func resolveExplode(p *v3.Parameter) bool {
	if p.Explode != nil {
		return *p.Explode
	}
	if p.Style == "" {
		// Query and cookie parameters default to "form"; path and header
		// parameters default to "simple".
		return p.In == "query" || p.In == "cookie"
	}
	return p.Style == "form"
}

func collectExamples(p *v3.Parameter) []any {
	var examples []any
	if p.Example != nil {
		if v, ok := decodeNode(p.Example); ok {
			examples = append(examples, v)
		}
	}
	if p.Examples != nil {
		for pair := p.Examples.First(); pair != nil; pair = pair.Next() {
			if pair.Value() == nil {
				continue
			}
			if v, ok := decodeNode(pair.Value().Value); ok {
				examples = append(examples, v)
			}
		}
	}
	return examples
}
