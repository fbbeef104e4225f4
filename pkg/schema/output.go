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
	"sort"
	"strings"

	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

// MultipleSuccessSchemaPolicy resolves the open question of spec.md section
// 9: which 2xx response schema becomes a tool's success variant S when an
// operation declares more than one with distinct schemas.
type MultipleSuccessSchemaPolicy string

const (
	// PreferOK always uses the 200 response's schema when present, falling
	// back to the lowest declared 2xx code, and is the spec's stated safe
	// default.
	PreferOK MultipleSuccessSchemaPolicy = "prefer-200"
	// UnionAll wraps every distinct 2xx schema in a oneOf instead of
	// picking one.
	UnionAll MultipleSuccessSchemaPolicy = "union-all"
)

// ErrorWrapperSchema is fixed across the system per spec.md section 4.2/4.5:
// changing its shape is a breaking, wire-visible change.
var ErrorWrapperSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []string{"error"},
	"properties": map[string]any{
		"error": map[string]any{
			"type":     "object",
			"required": []string{"type"},
			"properties": map[string]any{
				"type": map[string]any{
					"type": "string",
					"enum": []any{"http-error", "network-error", "response-parsing-error"},
				},
				"status":   map[string]any{"type": "integer"},
				"message":  map[string]any{"type": "string"},
				"category": map[string]any{"type": "string"},
				"reason":   map[string]any{"type": "string"},
				"details":  map[string]any{},
			},
		},
	},
}

// BuildOutputSchema constructs the wrapped {status, body} output schema of
// spec.md section 4.2 from an operation's 2xx responses.
func BuildOutputSchema(op *v3.Operation, policy MultipleSuccessSchemaPolicy) map[string]any {
	successSchemas := collectSuccessSchemas(op)

	var bodySchema any
	switch {
	case len(successSchemas) == 0:
		bodySchema = ErrorWrapperSchema
	case len(successSchemas) == 1 || policy == PreferOK:
		bodySchema = map[string]any{"oneOf": []any{successSchemas[0].schema, ErrorWrapperSchema}}
	default:
		variants := make([]any, 0, len(successSchemas)+1)
		for _, s := range successSchemas {
			variants = append(variants, s.schema)
		}
		variants = append(variants, ErrorWrapperSchema)
		bodySchema = map[string]any{"oneOf": variants}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"status", "body"},
		"properties": map[string]any{
			"status": map[string]any{"type": "integer", "minimum": 100, "maximum": 599},
			"body":   bodySchema,
		},
	}
}

type successSchema struct {
	code   int
	schema map[string]any
}

// collectSuccessSchemas walks an operation's responses for 2xx codes with a
// JSON-ish body, returning them ordered per MultipleSuccessSchemaPolicy's
// "prefer 200, then lowest 2xx" tie-break rule.
func collectSuccessSchemas(op *v3.Operation) []successSchema {
	if op.Responses == nil || op.Responses.Codes == nil {
		return nil
	}
	var result []successSchema
	for pair := op.Responses.Codes.First(); pair != nil; pair = pair.Next() {
		code, ok := parseStatusCode(pair.Key())
		if !ok || code < 200 || code >= 300 {
			continue
		}
		resp := pair.Value()
		if resp == nil || resp.Content == nil {
			continue
		}
		media, ok := resp.Content.Get("application/json")
		if !ok || media == nil {
			media, ok = resp.Content.Get("*/*")
		}
		if !ok || media == nil {
			continue
		}
		if media == nil || media.Schema == nil {
			continue
		}
		result = append(result, successSchema{code: code, schema: ConvertSchema(media.Schema)})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].code == 200 {
			return true
		}
		if result[j].code == 200 {
			return false
		}
		return result[i].code < result[j].code
	})
	return result
}

// DeclaresImageResponse reports whether any of the operation's 2xx
// responses declares an image media type, per spec.md section 4.5: such
// operations route through the Invocation Runtime's image-content branch
// instead of JSON body parsing.
func DeclaresImageResponse(op *v3.Operation) bool {
	if op.Responses == nil || op.Responses.Codes == nil {
		return false
	}
	for pair := op.Responses.Codes.First(); pair != nil; pair = pair.Next() {
		code, ok := parseStatusCode(pair.Key())
		if !ok || code < 200 || code >= 300 {
			continue
		}
		resp := pair.Value()
		if resp == nil || resp.Content == nil {
			continue
		}
		for mediaPair := resp.Content.First(); mediaPair != nil; mediaPair = mediaPair.Next() {
			if strings.HasPrefix(strings.ToLower(mediaPair.Key()), "image/") {
				return true
			}
		}
	}
	return false
}

func parseStatusCode(s string) (int, bool) {
	n := 0
	if len(s) != 3 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
