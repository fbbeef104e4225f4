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
)

var nameReplacer = strings.NewReplacer(
	"{", "",
	"}", "",
	"/", "_",
	"-", "_",
	" ", "_",
)

// ToolName derives a tool's wire name from its operationId, falling back to
// method_path when the operation declares none, per spec.md section 4.1.
func ToolName(operationID, method, path string) string {
	name := operationID
	if name == "" {
		name = fmt.Sprintf("%s_%s", method, path)
	}
	return strings.ToLower(nameReplacer.Replace(name))
}

// ParameterFieldName builds the tool-input property name for one operation
// parameter, per spec.md section 4.1: names that are already valid JSON
// Schema property names pass through unchanged (e.g. "petId", "status"),
// so the seed scenarios' literal argument names work as written. A
// location prefix is only added when disambiguate is true, i.e. the
// sanitized name collides with another parameter (a different location
// using the same name, or the reserved "request_body"/"timeout_seconds"
// names) -- see BuildInputSchema's collision pass.
func ParameterFieldName(location, name string, disambiguate bool) string {
	sanitized := SanitizeParameterName(name)
	if !disambiguate {
		return sanitized
	}
	return fmt.Sprintf("%s__%s", location, sanitized)
}

// SanitizeParameterName rewrites an OpenAPI parameter name into a valid
// JSON Schema / tool-argument identifier made of letters, digits and
// underscores. BuildInputSchema records the rewrite in parameter_mapping so
// the Invocation Runtime can map back to the name the HTTP request actually
// needs.
func SanitizeParameterName(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, nameReplacer.Replace(name))
}
