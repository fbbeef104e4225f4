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

// Package validate is the Argument Validator: it checks an incoming
// arguments object against a tool's compiled input schema and reports
// every violation in a single, deterministic pass. No teacher equivalent
// exists -- the source generation describes schemas but never checks
// arguments against them -- so this package is grounded directly on
// spec.md section 4.4's rule list.
package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/lx-industries/rmcp-openapi/pkg/mcptool"
	"github.com/lx-industries/rmcp-openapi/pkg/registry"
)

// Kind is one of the six violation kinds spec.md section 4.4 enumerates.
type Kind string

const (
	InvalidParameter    Kind = "invalid-parameter"
	MissingRequired     Kind = "missing-required"
	ConstraintViolation Kind = "constraint-violation"
	TypeMismatch        Kind = "type-mismatch"
	EnumMismatch        Kind = "enum-mismatch"
	NullNotAllowed      Kind = "null-not-allowed"
)

// Violation is one reported problem with an arguments object. Only the
// fields relevant to Kind are populated; the rest stay at their zero value.
type Violation struct {
	Kind      Kind   `json:"kind"`
	Parameter string `json:"parameter"`
	FieldPath string `json:"field_path"`
	Message   string `json:"message"`

	Suggestions     []string `json:"suggestions,omitempty"`
	ValidParameters []string `json:"valid_parameters,omitempty"`
	ExpectedType    string   `json:"expected_type,omitempty"`
	AllowedValues   []any    `json:"allowed_values,omitempty"`
}

// Validator holds one tool's compiled per-property JSON Schemas, built
// once at construction so repeated calls never recompile (spec.md section
// 8's "validation is total" determinism property falls out of validating
// against the same compiled schema every time).
type Validator struct {
	tool       mcptool.Tool
	properties map[string]map[string]any
	required   map[string]bool
	compiled   map[string]*jsonschema.Schema
	propNames  []string
}

// New compiles a tool's input schema into a reusable Validator.
func New(tool mcptool.Tool) (*Validator, error) {
	props, _ := tool.InputSchema["properties"].(map[string]any)
	requiredList, _ := tool.InputSchema["required"].([]string)

	v := &Validator{
		tool:       tool,
		properties: map[string]map[string]any{},
		required:   map[string]bool{},
		compiled:   map[string]*jsonschema.Schema{},
	}
	for _, r := range requiredList {
		v.required[r] = true
	}
	for name, raw := range props {
		propSchema, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		v.properties[name] = propSchema
		v.propNames = append(v.propNames, name)
		compiled, err := compileSchema(name, propSchema)
		if err != nil {
			return nil, fmt.Errorf("compiling schema for %q: %w", name, err)
		}
		v.compiled[name] = compiled
	}
	sort.Strings(v.propNames)
	return v, nil
}

// Validate checks an arguments object and returns every violation found,
// in a stable order: unknown parameters sorted by name, then, for each
// declared property in property-name order, its missing-required,
// null-not-allowed or type/enum/constraint violations. An empty slice
// means the arguments satisfy the schema.
func (v *Validator) Validate(args map[string]any) []Violation {
	var violations []Violation

	var unknown []string
	for name := range args {
		if _, ok := v.properties[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		violations = append(violations, Violation{
			Kind:            InvalidParameter,
			Parameter:       name,
			FieldPath:       name,
			Message:         fmt.Sprintf("%q is not a declared parameter for this tool", name),
			Suggestions:     registry.SuggestNames(name, v.propNames),
			ValidParameters: v.propNames,
		})
	}

	for _, name := range v.propNames {
		value, present := args[name]
		isRequired := v.required[name]

		if !present {
			if isRequired {
				violations = append(violations, Violation{
					Kind:      MissingRequired,
					Parameter: name,
					FieldPath: name,
					Message:   fmt.Sprintf("%q is required", name),
				})
			}
			continue
		}

		if value == nil {
			if isRequired {
				violations = append(violations, Violation{
					Kind:         NullNotAllowed,
					Parameter:    name,
					FieldPath:    name,
					Message:      fmt.Sprintf("%q is required and must be non-null", name),
					ExpectedType: schemaTypeString(v.properties[name]),
				})
				continue
			}
			if schemaAllowsNull(v.properties[name]) {
				continue
			}
			message := fmt.Sprintf(
				"%q must be %s when provided (null not allowed, omit if not needed)",
				name, schemaTypeString(v.properties[name]),
			)
			violations = append(violations, Violation{
				Kind:         NullNotAllowed,
				Parameter:    name,
				FieldPath:    name,
				Message:      message,
				ExpectedType: schemaTypeString(v.properties[name]),
			})
			continue
		}

		violations = append(violations, v.validateValue(name, value)...)
	}

	return violations
}

func (v *Validator) validateValue(name string, value any) []Violation {
	compiled, ok := v.compiled[name]
	if !ok {
		return nil
	}

	instance, err := reencode(value)
	if err != nil {
		return []Violation{{
			Kind:      ConstraintViolation,
			Parameter: name,
			FieldPath: name,
			Message:   fmt.Sprintf("value for %q could not be validated: %v", name, err),
		}}
	}

	err = compiled.Validate(instance)
	if err == nil {
		return nil
	}

	valErr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []Violation{{Kind: ConstraintViolation, Parameter: name, FieldPath: name, Message: err.Error()}}
	}

	return flattenValidationError(name, valErr, v.properties[name])
}

// flattenValidationError walks a jsonschema.ValidationError's cause tree,
// classifying each leaf into spec.md's type-mismatch / enum-mismatch /
// constraint-violation taxonomy.
func flattenValidationError(name string, ve *jsonschema.ValidationError, propSchema map[string]any) []Violation {
	if len(ve.Causes) == 0 {
		return []Violation{classifyLeaf(name, ve, propSchema)}
	}
	var out []Violation
	for _, cause := range ve.Causes {
		out = append(out, flattenValidationError(name, cause, propSchema)...)
	}
	return out
}

func classifyLeaf(name string, ve *jsonschema.ValidationError, propSchema map[string]any) Violation {
	fieldPath := name
	if loc := ve.InstanceLocation; len(loc) > 0 {
		fieldPath = fmt.Sprintf("%s/%s", name, joinPointer(loc))
	}

	msg := ve.Error()
	switch kindName(ve) {
	case "type":
		return Violation{
			Kind:         TypeMismatch,
			Parameter:    name,
			FieldPath:    fieldPath,
			Message:      msg,
			ExpectedType: schemaTypeString(propSchema),
		}
	case "enum":
		return Violation{
			Kind:          EnumMismatch,
			Parameter:     name,
			FieldPath:     fieldPath,
			Message:       msg,
			AllowedValues: enumValues(propSchema),
		}
	default:
		return Violation{
			Kind:      ConstraintViolation,
			Parameter: name,
			FieldPath: fieldPath,
			Message:   msg,
		}
	}
}

// kindName extracts a short keyword name ("type", "enum", ...) from a
// validation error for classification, falling back to inspecting the
// error text since jsonschema/v6's ErrorKind type names are not a stable
// public enum to switch on directly.
func kindName(ve *jsonschema.ValidationError) string {
	if ve.ErrorKind == nil {
		return ""
	}
	msg := ve.ErrorKind.KeywordPath()
	if len(msg) > 0 {
		return msg[len(msg)-1]
	}
	return ""
}

func joinPointer(loc []string) string {
	out := ""
	for i, p := range loc {
		if i > 0 {
			out += "/"
		}
		out += p
	}
	return out
}

func schemaTypeString(propSchema map[string]any) string {
	switch t := propSchema["type"].(type) {
	case string:
		return t
	case []string:
		for _, s := range t {
			if s != "null" {
				return s
			}
		}
	case []any:
		for _, s := range t {
			if str, ok := s.(string); ok && str != "null" {
				return str
			}
		}
	}
	return "any"
}

func schemaAllowsNull(propSchema map[string]any) bool {
	switch t := propSchema["type"].(type) {
	case string:
		return t == "null"
	case []string:
		for _, s := range t {
			if s == "null" {
				return true
			}
		}
	case []any:
		for _, s := range t {
			if str, ok := s.(string); ok && str == "null" {
				return true
			}
		}
	}
	return false
}

func enumValues(propSchema map[string]any) []any {
	if enum, ok := propSchema["enum"].([]any); ok {
		return enum
	}
	return nil
}

// compileSchema compiles one property's JSON Schema fragment in isolation,
// so each parameter can be validated independently and violations from
// unrelated properties never block each other's reporting.
func compileSchema(name string, propSchema map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(propSchema)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	resourceID := fmt.Sprintf("mem://rmcp-openapi/%s.json", name)
	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceID, doc); err != nil {
		return nil, err
	}
	return c.Compile(resourceID)
}

// reencode round-trips a decoded Go value through JSON so the jsonschema
// library sees its own canonical number/string representation regardless
// of whether the caller passed native Go types or already-decoded JSON.
func reencode(value any) (any, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(b))
}
