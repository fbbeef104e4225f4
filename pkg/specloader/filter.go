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

package specloader

import (
	"os"
	"regexp"
	"slices"
	"strings"
)

// Filter selects which OpenAPI operations become tools. An empty set for any
// dimension means "pass everything" for that dimension, per spec.md 4.1.
type Filter struct {
	Methods      []string
	Tags         []string
	OperationIDs []string
}

var kebabNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeTag lower-cases a tag and collapses runs of non-alphanumeric
// characters into a single hyphen, so "Pet Store", "pet_store" and
// "pet-store" all compare equal.
func NormalizeTag(tag string) string {
	lowered := strings.ToLower(strings.TrimSpace(tag))
	normalized := kebabNonAlnum.ReplaceAllString(lowered, "-")
	return strings.Trim(normalized, "-")
}

// Match applies the three-dimensional filter of spec.md section 4.1: method
// in the allowed set AND at least one tag matches AND the operationId
// matches, each dimension vacuously true when its allow-list is empty.
// Operations without an operationId are still included when the
// operationId filter is empty.
func (f Filter) Match(method string, tags []string, operationID string) bool {
	if len(f.Methods) > 0 {
		ok := false
		for _, m := range f.Methods {
			if strings.EqualFold(m, method) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	if len(f.Tags) > 0 {
		allowed := make([]string, len(f.Tags))
		for i, t := range f.Tags {
			allowed[i] = NormalizeTag(t)
		}
		matched := false
		for _, tag := range tags {
			if slices.Contains(allowed, NormalizeTag(tag)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.OperationIDs) > 0 {
		if operationID == "" {
			return false
		}
		if !slices.Contains(f.OperationIDs, operationID) {
			return false
		}
	}

	return true
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
