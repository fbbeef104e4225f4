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

// Package schema is the Schema Compiler: it turns a resolved libopenapi
// schema proxy into a generic JSON Schema tree (map[string]any, ready for
// json.Marshal), builds each tool's input and output schema, and protects
// against self-referencing schemas.
package schema

import (
	"fmt"

	"github.com/pb33f/libopenapi/datamodel/high/base"
	"gopkg.in/yaml.v3"
)

// converter turns schema proxies into JSON Schema trees while tracking which
// $ref paths are currently being expanded, so a self-referencing schema
// (e.g. a Category that contains a parent Category) terminates instead of
// recursing forever. Spec.md section 4.2's "cycle protection."
type converter struct {
	expanding map[string]bool
}

func newConverter() *converter {
	return &converter{expanding: make(map[string]bool)}
}

// ConvertSchema is the package-level entry point: fresh cycle-tracking state
// per top-level call, since two independent parameters must not share one
// another's in-progress reference stack.
func ConvertSchema(proxy *base.SchemaProxy) map[string]any {
	return newConverter().convert(proxy)
}

func (c *converter) convert(proxy *base.SchemaProxy) map[string]any {
	if proxy == nil {
		return map[string]any{}
	}

	refKey := proxy.GetReference()
	if refKey != "" {
		if c.expanding[refKey] {
			// Re-entering a reference currently being expanded: inline an
			// opaque "any" schema instead of recursing, per spec.md 4.2/9.
			return map[string]any{}
		}
		c.expanding[refKey] = true
		defer delete(c.expanding, refKey)
	}

	schema := proxy.Schema()
	if schema == nil {
		return map[string]any{}
	}
	return c.convertSchema(schema)
}

func (c *converter) convertSchema(schema *base.Schema) map[string]any {
	out := map[string]any{}

	switch len(schema.Type) {
	case 0:
		// untyped schema: leave "type" unset, matching "any" semantics.
	case 1:
		out["type"] = schema.Type[0]
	default:
		out["type"] = schema.Type
	}

	if schema.Description != "" {
		out["description"] = schema.Description
	}
	if schema.Format != "" {
		out["format"] = schema.Format
	}
	if schema.Pattern != "" {
		out["pattern"] = schema.Pattern
	}
	if schema.Minimum != nil {
		out["minimum"] = *schema.Minimum
	}
	if schema.Maximum != nil {
		out["maximum"] = *schema.Maximum
	}
	if schema.MinLength != nil {
		out["minLength"] = *schema.MinLength
	}
	if schema.MaxLength != nil {
		out["maxLength"] = *schema.MaxLength
	}
	if schema.MinItems != nil {
		out["minItems"] = *schema.MinItems
	}
	if schema.MaxItems != nil {
		out["maxItems"] = *schema.MaxItems
	}
	if len(schema.Enum) > 0 {
		out["enum"] = decodeNodes(schema.Enum)
	}
	if schema.Default != nil {
		if v, ok := decodeNode(schema.Default); ok {
			out["default"] = v
		}
	}

	if schema.Items != nil && schema.Items.IsA() && schema.Items.A != nil {
		out["items"] = c.convert(schema.Items.A)
	}

	if schema.Properties != nil && schema.Properties.Len() > 0 {
		props := map[string]any{}
		for pair := schema.Properties.First(); pair != nil; pair = pair.Next() {
			props[pair.Key()] = c.convert(pair.Value())
		}
		out["properties"] = props
	}
	if len(schema.Required) > 0 {
		out["required"] = append([]string{}, schema.Required...)
	}

	if schema.AdditionalProperties != nil {
		switch {
		case schema.AdditionalProperties.IsB():
			out["additionalProperties"] = schema.AdditionalProperties.B
		case schema.AdditionalProperties.A != nil:
			out["additionalProperties"] = c.convert(schema.AdditionalProperties.A)
		}
	}

	return out
}

// decodeNode renders a single yaml-decoded scalar/sequence/mapping node as a
// plain Go value suitable for json.Marshal, used for enum members and
// default/example values the schema carries as raw nodes.
func decodeNode(node *yaml.Node) (any, bool) {
	if node == nil {
		return nil, false
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

func decodeNodes(nodes []*yaml.Node) []any {
	result := make([]any, 0, len(nodes))
	for _, n := range nodes {
		if v, ok := decodeNode(n); ok {
			result = append(result, v)
		}
	}
	return result
}

// SchemaTypeString returns the primary JSON type name for a schema proxy,
// defaulting to "string" for an untyped schema -- matching
// GetSchemaTypeString's fallback from the legacy generation.
func SchemaTypeString(proxy *base.SchemaProxy) string {
	if proxy == nil {
		return "string"
	}
	schema := proxy.Schema()
	if schema == nil || len(schema.Type) == 0 {
		return "string"
	}
	return schema.Type[0]
}

// describeSchema renders a one-line human description of a schema, used when
// building fallback documentation text for non-JSON bodies.
func describeSchema(proxy *base.SchemaProxy) string {
	if proxy == nil {
		return "any"
	}
	schema := proxy.Schema()
	if schema == nil {
		return "any"
	}
	t := "any"
	if len(schema.Type) > 0 {
		t = schema.Type[0]
	}
	if schema.Description != "" {
		return fmt.Sprintf("%s - %s", t, schema.Description)
	}
	return t
}
