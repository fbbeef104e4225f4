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

// Package registry is the Tool Registry: an immutable, construct-once
// lookup table over the tools the Schema Compiler produced, with
// name-based get/list and fuzzy suggest.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/lx-industries/rmcp-openapi/pkg/mcptool"
)

// suggestionThreshold and suggestionLimit match spec.md section 4.3: up to
// 3 closest names, similarity >= 0.7.
const (
	suggestionThreshold = 0.7
	suggestionLimit     = 3
)

// DuplicateNameError reports two operations that compiled to the same tool
// name, violating the Universal Property that every tool name is unique.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate tool name: %q", e.Name)
}

// Registry is an immutable, ordered collection of tools. Insertion order is
// preserved for list() so loading the same spec twice yields byte-identical
// output (spec.md section 8's round-trip property).
type Registry struct {
	order []string
	byName map[string]mcptool.Tool
}

// New validates and builds a Registry from a slice of compiled tools.
// Validation enforces the Universal Properties spec.md section 8 requires:
// unique names, required subset of properties, and a parameter_mapping
// bijection excluding timeout_seconds/request_body.
func New(tools []mcptool.Tool) (*Registry, error) {
	r := &Registry{byName: make(map[string]mcptool.Tool, len(tools))}
	for _, t := range tools {
		if _, exists := r.byName[t.Name]; exists {
			return nil, &DuplicateNameError{Name: t.Name}
		}
		if err := validateTool(t); err != nil {
			return nil, fmt.Errorf("tool %q: %w", t.Name, err)
		}
		r.byName[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r, nil
}

func validateTool(t mcptool.Tool) error {
	props, _ := t.InputSchema["properties"].(map[string]any)
	required, _ := t.InputSchema["required"].([]string)
	for _, name := range required {
		if _, ok := props[name]; !ok {
			return fmt.Errorf("required property %q is not in input_schema.properties", name)
		}
	}

	if t.OutputSchema["type"] != "object" {
		return fmt.Errorf("output_schema.type must be object")
	}
	if t.OutputSchema["additionalProperties"] != false {
		return fmt.Errorf("output_schema.additionalProperties must be false")
	}
	outRequired, _ := t.OutputSchema["required"].([]string)
	if !hasBoth(outRequired, "status", "body") {
		return fmt.Errorf("output_schema.required must be exactly [status, body], got %v", outRequired)
	}

	seen := map[string]bool{}
	for mcpName, original := range t.ParameterMapping {
		if mcpName == "timeout_seconds" || mcpName == "request_body" {
			return fmt.Errorf("parameter_mapping must not carry timeout_seconds/request_body, found %q", mcpName)
		}
		if seen[original] {
			return fmt.Errorf("parameter_mapping is not a bijection: %q maps from more than one field", original)
		}
		seen[original] = true
	}
	return nil
}

func hasBoth(s []string, a, b string) bool {
	if len(s) != 2 {
		return false
	}
	return (s[0] == a && s[1] == b) || (s[0] == b && s[1] == a)
}

// List returns every tool in insertion (document) order.
func (r *Registry) List() []mcptool.Tool {
	out := make([]mcptool.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Get looks up a tool by exact name.
func (r *Registry) Get(name string) (mcptool.Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Suggest returns up to suggestionLimit tool names similar to the given
// name, ranked by a normalized Levenshtein similarity score, most similar
// first, filtered to a minimum similarity of suggestionThreshold.
func (r *Registry) Suggest(name string) []string {
	return suggest(name, r.order, suggestionThreshold, suggestionLimit)
}

// SuggestNames exposes the same fuzzy-match primitive for any candidate
// list, so the Argument Validator can reuse it for unknown-parameter
// "did you mean" suggestions (spec.md section 4.4) without duplicating the
// similarity metric.
func SuggestNames(name string, candidates []string) []string {
	return suggest(name, candidates, suggestionThreshold, suggestionLimit)
}

// suggest is the shared fuzzy-match primitive behind both Registry.Suggest
// and the Argument Validator's invalid-parameter suggestions: a normalized
// Levenshtein similarity (1 - distance/max(len)) over the lower-cased names,
// thresholded and ranked.
func suggest(name string, candidates []string, threshold float64, limit int) []string {
	type scored struct {
		name  string
		score float64
	}
	var scoredCandidates []scored
	for _, c := range candidates {
		score := similarity(name, c)
		if score >= threshold {
			scoredCandidates = append(scoredCandidates, scored{c, score})
		}
	}
	sort.SliceStable(scoredCandidates, func(i, j int) bool {
		return scoredCandidates[i].score > scoredCandidates[j].score
	})
	if len(scoredCandidates) > limit {
		scoredCandidates = scoredCandidates[:limit]
	}
	out := make([]string, len(scoredCandidates))
	for i, s := range scoredCandidates {
		out[i] = s.name
	}
	return out
}

func similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 1
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}
