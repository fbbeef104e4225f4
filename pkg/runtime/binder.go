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

// Package runtime is the Invocation Runtime: it binds a validated
// arguments object into an HTTP request, executes it against the shared
// client, and classifies the outcome into the wire envelope spec.md
// section 4.5 describes. Binding is grounded on the dropped kin-openapi
// generation's substitutePathParams/encodeQueryParams/parsePrefixedParameters
// (pkg/sources/openapi/utils.go), since the newer generation never wired a
// working HTTP call path (pkg/tool/handler.go is an explicit placeholder).
package runtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/lx-industries/rmcp-openapi/pkg/mcptool"
)

const defaultTimeoutSeconds = 30

// Binder turns a tool and a validated arguments object into an *http.Request.
type Binder struct {
	BaseURL        string
	DefaultHeaders map[string]string
	ProductName    string
	ProductVersion string
}

// Bind constructs the HTTP request for one tool invocation. args has
// already passed the Argument Validator; parameter_mapping restores each
// MCP-facing name to the original OpenAPI name before it touches the wire.
func (b *Binder) Bind(tool mcptool.Tool, args map[string]any) (*http.Request, error) {
	pathParams, queryParams, headerParams, cookieParams := splitByLocation(tool, args)

	renderedPath, err := substitutePathParams(tool.Operation.PathTemplate, pathParams)
	if err != nil {
		return nil, err
	}

	fullURL := JoinURL(b.BaseURL, renderedPath)

	query := encodeQueryParams(tool.Operation.Parameters, queryParams)
	if query != "" {
		fullURL += "?" + query
	}

	var bodyReader *bytes.Reader
	if rawBody, ok := args["request_body"]; ok && rawBody != nil {
		encoded, err := json.Marshal(rawBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request_body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	var req *http.Request
	if bodyReader != nil {
		req, err = http.NewRequest(tool.Operation.Method, fullURL, bodyReader)
	} else {
		req, err = http.NewRequest(tool.Operation.Method, fullURL, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for k, v := range b.DefaultHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range headerParams {
		req.Header.Set(k, fmt.Sprintf("%v", v))
	}
	for name, v := range cookieParams {
		req.AddCookie(&http.Cookie{Name: name, Value: fmt.Sprintf("%v", v)})
	}

	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", fmt.Sprintf("%s/%s", b.ProductName, b.ProductVersion))

	return req, nil
}

// TimeoutSeconds extracts the synthetic timeout_seconds argument, defaulting
// to 30 and clamping to the [1, 300] bounds the Schema Compiler declares.
func TimeoutSeconds(args map[string]any) int {
	raw, ok := args["timeout_seconds"]
	if !ok || raw == nil {
		return defaultTimeoutSeconds
	}
	var seconds int
	switch v := raw.(type) {
	case int:
		seconds = v
	case int64:
		seconds = int(v)
	case float64:
		seconds = int(v)
	default:
		return defaultTimeoutSeconds
	}
	if seconds < 1 {
		return 1
	}
	if seconds > 300 {
		return 300
	}
	return seconds
}

// JoinURL composes the final request URL from a base URL and a rendered
// path so a base URL with a non-empty path is preserved -- concatenate,
// never reset (spec.md section 9's documented regression).
func JoinURL(base, path string) string {
	trimmedBase := strings.TrimSuffix(base, "/")
	trimmedPath := "/" + strings.TrimPrefix(path, "/")
	return trimmedBase + trimmedPath
}

func splitByLocation(tool mcptool.Tool, args map[string]any) (path, query, header, cookie map[string]any) {
	path = map[string]any{}
	query = map[string]any{}
	header = map[string]any{}
	cookie = map[string]any{}

	for _, p := range tool.Operation.Parameters {
		value, present := args[p.Name]
		if !present {
			continue
		}
		switch p.Location {
		case mcptool.LocationPath:
			path[p.OriginalName] = value
		case mcptool.LocationQuery:
			query[p.OriginalName] = value
		case mcptool.LocationHeader:
			header[p.OriginalName] = value
		case mcptool.LocationCookie:
			cookie[p.OriginalName] = value
		}
	}
	return
}

func substitutePathParams(pathTemplate string, pathParams map[string]any) (string, error) {
	result := pathTemplate
	for name, value := range pathParams {
		placeholder := "{" + name + "}"
		encoded := url.PathEscape(fmt.Sprintf("%v", value))
		result = strings.ReplaceAll(result, placeholder, encoded)
	}
	if strings.Contains(result, "{") {
		return "", fmt.Errorf("unresolved path parameter in %q", pathTemplate)
	}
	return result, nil
}

// encodeQueryParams renders query parameters honoring OpenAPI style/explode
// semantics for arrays: explode:true emits repeated name=value pairs,
// explode:false emits a single value joined by the style's delimiter
// (space for spaceDelimited, "|" for pipeDelimited, comma otherwise). An
// unset explode has already been resolved to OpenAPI's default by the
// Schema Compiler. Optional empty arrays with no declared default are
// omitted entirely; required empty arrays are emitted as name=.
func encodeQueryParams(params []mcptool.Parameter, queryParams map[string]any) string {
	values := url.Values{}
	for _, p := range params {
		if p.Location != mcptool.LocationQuery {
			continue
		}
		value, present := queryParams[p.OriginalName]
		if !present {
			continue
		}
		arr, isArray := value.([]any)
		if !isArray {
			values.Set(p.OriginalName, fmt.Sprintf("%v", value))
			continue
		}
		if len(arr) == 0 {
			_, hasDefault := p.Schema["default"]
			if p.Required || hasDefault {
				values.Set(p.OriginalName, "")
			}
			continue
		}
		if p.Explode {
			for _, v := range arr {
				values.Add(p.OriginalName, fmt.Sprintf("%v", v))
			}
			continue
		}
		parts := make([]string, len(arr))
		for i, v := range arr {
			parts[i] = fmt.Sprintf("%v", v)
		}
		sep := ","
		switch p.Style {
		case "spaceDelimited":
			sep = " "
		case "pipeDelimited":
			sep = "|"
		}
		values.Set(p.OriginalName, strings.Join(parts, sep))
	}
	return values.Encode()
}
