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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strings"

	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

// ExtractedProperty is one request-body property discovered by a content
// type handler, ready to be folded into the tool's input schema.
type ExtractedProperty struct {
	Schema   map[string]any
	Required bool
}

// ContentTypeHandler shapes one request body media type both into tool
// input schema properties and, at invocation time, into an HTTP body.
type ContentTypeHandler interface {
	ContentTypes() []string
	ExtractProperties(media *v3.MediaType) (map[string]ExtractedProperty, error)
	BuildRequestBody(bodyParams map[string]any) (io.Reader, error)
}

// ContentTypeRegistry dispatches to the handler for a declared content type,
// falling back to JSON for anything unrecognized.
type ContentTypeRegistry struct {
	handlers map[string]ContentTypeHandler
	order    []string
	fallback ContentTypeHandler
}

// NewContentTypeRegistry builds a registry with the standard handlers
// registered in priority order: JSON first (the only media the runtime
// guarantees to send on the wire), then the richer-description-only media.
func NewContentTypeRegistry() *ContentTypeRegistry {
	r := &ContentTypeRegistry{handlers: make(map[string]ContentTypeHandler)}
	r.register(&jsonHandler{})
	r.register(&xmlHandler{})
	r.register(&formURLEncodedHandler{})
	r.register(&multipartHandler{})
	r.register(&plainTextHandler{})
	r.fallback = &jsonHandler{}
	return r
}

func (r *ContentTypeRegistry) register(h ContentTypeHandler) {
	for _, ct := range h.ContentTypes() {
		if _, exists := r.handlers[ct]; !exists {
			r.order = append(r.order, ct)
		}
		r.handlers[ct] = h
	}
}

// Handler returns the handler for an exact or wildcard (type/*) content
// type match, or the JSON fallback.
func (r *ContentTypeRegistry) Handler(contentType string) ContentTypeHandler {
	if h, ok := r.handlers[contentType]; ok {
		return h
	}
	if parts := strings.SplitN(contentType, "/", 2); len(parts) == 2 {
		if h, ok := r.handlers[parts[0]+"/*"]; ok {
			return h
		}
	}
	return r.fallback
}

// PreferredContentTypes returns every registered content type in
// registration order, used to pick the best available media type an
// operation's request body declares.
func (r *ContentTypeRegistry) PreferredContentTypes() []string {
	return append([]string{}, r.order...)
}

func hasSchemaProperties(media *v3.MediaType) bool {
	if media == nil || media.Schema == nil {
		return false
	}
	s := media.Schema.Schema()
	return s != nil && s.Properties != nil && s.Properties.Len() > 0
}

func fallbackBodyProperty(description string) (map[string]ExtractedProperty, error) {
	return map[string]ExtractedProperty{
		"body": {
			Schema:   map[string]any{"type": "string", "description": description},
			Required: true,
		},
	}, nil
}

// extractObjectProperties expands a media type's object schema into
// individual, prefixed properties -- each becomes its own MCP-facing
// argument rather than one opaque JSON blob.
func extractObjectProperties(media *v3.MediaType, prefix string) (map[string]ExtractedProperty, error) {
	result := map[string]ExtractedProperty{}
	if !hasSchemaProperties(media) {
		return result, nil
	}
	schema := media.Schema.Schema()
	required := map[string]bool{}
	for _, r := range schema.Required {
		required[r] = true
	}
	for pair := schema.Properties.First(); pair != nil; pair = pair.Next() {
		name := pair.Key()
		fieldName := name
		if prefix != "" {
			fieldName = fmt.Sprintf("%s__%s", prefix, name)
		}
		result[fieldName] = ExtractedProperty{
			Schema:   ConvertSchema(pair.Value()),
			Required: required[name],
		}
	}
	return result, nil
}

func singleBodyParam(bodyParams map[string]any) (any, bool) {
	v, ok := bodyParams["body"]
	if ok && len(bodyParams) == 1 {
		return v, true
	}
	return nil, false
}

func buildRawBody(bodyParams map[string]any, contentType string) (io.Reader, error) {
	if len(bodyParams) == 0 {
		return nil, nil
	}
	if v, ok := singleBodyParam(bodyParams); ok {
		if s, ok := v.(string); ok {
			return strings.NewReader(s), nil
		}
		return nil, fmt.Errorf("%s body parameter must be a string", contentType)
	}
	return nil, fmt.Errorf("%s content type requires a single 'body' parameter", contentType)
}

// jsonHandler is the handler spec.md guarantees is actually used on the
// wire; the others exist so the Schema Compiler can still describe and
// document bodies of other media types even though the Invocation Runtime
// never serializes them as anything but JSON (spec.md section 4.5).
type jsonHandler struct{}

func (h *jsonHandler) ContentTypes() []string {
	return []string{"application/json", "*/*", "application/hal+json", "application/vnd.api+json"}
}

func (h *jsonHandler) ExtractProperties(media *v3.MediaType) (map[string]ExtractedProperty, error) {
	if !hasSchemaProperties(media) {
		if media != nil && media.Schema != nil {
			return map[string]ExtractedProperty{
				"body": {Schema: ConvertSchema(media.Schema), Required: true},
			}, nil
		}
		return fallbackBodyProperty("JSON request body content")
	}
	return extractObjectProperties(media, "")
}

func (h *jsonHandler) BuildRequestBody(bodyParams map[string]any) (io.Reader, error) {
	if len(bodyParams) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(bodyParams)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON body: %w", err)
	}
	return bytes.NewReader(b), nil
}

type xmlHandler struct{}

func (h *xmlHandler) ContentTypes() []string { return []string{"application/xml", "text/xml"} }

func (h *xmlHandler) ExtractProperties(media *v3.MediaType) (map[string]ExtractedProperty, error) {
	if hasSchemaProperties(media) {
		return extractObjectProperties(media, "")
	}
	return fallbackBodyProperty("XML request body content")
}

func (h *xmlHandler) BuildRequestBody(bodyParams map[string]any) (io.Reader, error) {
	if len(bodyParams) == 0 {
		return nil, nil
	}
	if v, ok := singleBodyParam(bodyParams); ok {
		if s, ok := v.(string); ok {
			return strings.NewReader(s), nil
		}
		return nil, fmt.Errorf("XML body parameter must be a string containing valid XML")
	}
	// Structured XML bodies fall back to JSON serialization: no XML
	// marshaling library is wired in, and the wire contract this system
	// guarantees is JSON-only (spec.md section 4.5).
	b, err := json.Marshal(bodyParams)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal XML body: %w", err)
	}
	return bytes.NewReader(b), nil
}

type formURLEncodedHandler struct{}

func (h *formURLEncodedHandler) ContentTypes() []string {
	return []string{"application/x-www-form-urlencoded"}
}

func (h *formURLEncodedHandler) ExtractProperties(media *v3.MediaType) (map[string]ExtractedProperty, error) {
	if !hasSchemaProperties(media) {
		return fallbackBodyProperty("Form URL-encoded request body content")
	}
	return extractObjectProperties(media, "form")
}

func (h *formURLEncodedHandler) BuildRequestBody(bodyParams map[string]any) (io.Reader, error) {
	if len(bodyParams) == 0 {
		return nil, nil
	}
	if v, ok := singleBodyParam(bodyParams); ok {
		if s, ok := v.(string); ok {
			return strings.NewReader(s), nil
		}
		return nil, fmt.Errorf("form body parameter must be a string")
	}
	form := url.Values{}
	for name, v := range bodyParams {
		if field, ok := strings.CutPrefix(name, "form__"); ok {
			form.Set(field, fmt.Sprintf("%v", v))
		}
	}
	if len(form) == 0 {
		return nil, fmt.Errorf("no form__ prefixed parameters found for form URL encoding")
	}
	return strings.NewReader(form.Encode()), nil
}

type multipartHandler struct{}

func (h *multipartHandler) ContentTypes() []string { return []string{"multipart/form-data"} }

func (h *multipartHandler) ExtractProperties(media *v3.MediaType) (map[string]ExtractedProperty, error) {
	if !hasSchemaProperties(media) {
		return fallbackBodyProperty("Multipart form data request body")
	}
	props, err := extractObjectProperties(media, "multipart")
	if err != nil {
		return nil, err
	}
	schema := media.Schema.Schema()
	for pair := schema.Properties.First(); pair != nil; pair = pair.Next() {
		fieldName := fmt.Sprintf("multipart__%s", pair.Key())
		propSchema := pair.Value().Schema()
		if propSchema != nil && propSchema.Format == "binary" {
			if prop, ok := props[fieldName]; ok {
				prop.Schema["type"] = "file"
				props[fieldName] = prop
			}
		}
	}
	return props, nil
}

func (h *multipartHandler) BuildRequestBody(bodyParams map[string]any) (io.Reader, error) {
	if len(bodyParams) == 0 {
		return nil, nil
	}
	if v, ok := singleBodyParam(bodyParams); ok {
		if s, ok := v.(string); ok {
			return strings.NewReader(s), nil
		}
		return nil, fmt.Errorf("multipart body parameter must be a string")
	}
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	wrote := false
	for name, v := range bodyParams {
		if field, ok := strings.CutPrefix(name, "multipart__"); ok {
			wrote = true
			if err := writer.WriteField(field, fmt.Sprintf("%v", v)); err != nil {
				return nil, fmt.Errorf("failed to write multipart field %s: %w", field, err)
			}
		}
	}
	if !wrote {
		return nil, fmt.Errorf("no multipart__ prefixed parameters found for multipart form data")
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, nil
}

type plainTextHandler struct{}

func (h *plainTextHandler) ContentTypes() []string { return []string{"text/plain", "text/*"} }

func (h *plainTextHandler) ExtractProperties(media *v3.MediaType) (map[string]ExtractedProperty, error) {
	return fallbackBodyProperty("Plain text request body content")
}

func (h *plainTextHandler) BuildRequestBody(bodyParams map[string]any) (io.Reader, error) {
	return buildRawBody(bodyParams, "plain text")
}
