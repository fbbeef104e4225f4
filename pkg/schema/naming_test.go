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

import "testing"

func TestToolName(t *testing.T) {
	cases := []struct {
		operationID, method, path, want string
	}{
		{"getPetById", "get", "/pet/{petId}", "getpetbyid"},
		{"", "get", "/pet/{petId}", "get__pet_petid"},
		{"", "post", "/users", "post__users"},
	}
	for _, tc := range cases {
		if got := ToolName(tc.operationID, tc.method, tc.path); got != tc.want {
			t.Errorf("ToolName(%q,%q,%q) = %q, want %q", tc.operationID, tc.method, tc.path, got, tc.want)
		}
	}
}

func TestParameterFieldName(t *testing.T) {
	if got := ParameterFieldName("query", "petId", false); got != "petId" {
		t.Errorf("ParameterFieldName(no collision) = %q, want petId", got)
	}
	if got := ParameterFieldName("query", "api-key", false); got != "api_key" {
		t.Errorf("ParameterFieldName(sanitized, no collision) = %q, want api_key", got)
	}
	if got := ParameterFieldName("query", "api-key", true); got != "query__api_key" {
		t.Errorf("ParameterFieldName(disambiguate) = %q, want query__api_key", got)
	}
}
