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

package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/lx-industries/rmcp-openapi/pkg/mcptool"
)

// Envelope is the wire-visible {status, body} result of one tool call.
// Keys are ordered status-before-body by MarshalJSON.
type Envelope struct {
	Status int
	Body   any
}

// MarshalJSON fixes the key order to status-before-body, per spec.md
// section 3's "bit-exact" wire contract.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Status int `json:"status"`
		Body   any `json:"body"`
	}{Status: e.Status, Body: e.Body})
}

// IsError mirrors the MCP result's is_error flag: true iff body is an error
// variant or the HTTP status is >= 400.
func (e Envelope) IsError() bool {
	if e.Status >= 400 {
		return true
	}
	if m, ok := e.Body.(map[string]any); ok {
		_, hasError := m["error"]
		return hasError
	}
	return false
}

// HttpError is the non-2xx response error variant.
type HttpError struct {
	Type    string `json:"type"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NetworkError is the no-response-from-upstream error variant.
type NetworkError struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

// ResponseParsingError is the "got a 2xx but couldn't parse the body as
// JSON" error variant.
type ResponseParsingError struct {
	Type        string `json:"type"`
	Reason      string `json:"reason"`
	RawResponse string `json:"raw_response,omitempty"`
}

const (
	networkCategoryTimeout = "timeout"
	networkCategoryConnect = "connect"
	networkCategoryRequest = "request"
	networkCategoryBody    = "body"
	networkCategoryDecode  = "decode"
	networkCategoryOther   = "other"
)

const maxRawResponseEcho = 2048

// Execute issues req against client with ctx's deadline already applied by
// the caller, and classifies the outcome exactly per spec.md section 4.5.
// imageDeclared marks an operation that declares an image media type on at
// least one of its 2xx responses (mcptool.Operation.ImageResponseDeclared):
// a 2xx response whose Content-Type names an image media type is returned
// as img instead of being parsed as JSON, and a missing Content-Type on
// such an operation's response is reported as an execution error rather
// than silently treated as an empty JSON body. Non-image-declared
// operations still get plain image detection on the Content-Type itself,
// since the rule's first clause is unconditional; only the missing-header
// error is gated on imageDeclared.
func Execute(ctx context.Context, client *http.Client, req *http.Request, imageDeclared bool) (Envelope, *mcptool.ImageContent) {
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return Envelope{Status: 0, Body: map[string]any{"error": classifyNetworkError(ctx, err)}}, nil
	}
	defer resp.Body.Close()

	rawBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return Envelope{Status: 0, Body: map[string]any{"error": NetworkError{
			Type:     "network-error",
			Message:  readErr.Error(),
			Category: networkCategoryBody,
		}}}, nil
	}

	status := resp.StatusCode
	contentType := resp.Header.Get("Content-Type")

	if status >= 200 && status < 300 {
		if IsImageContentType(contentType) {
			mediaType, _, _ := strings.Cut(contentType, ";")
			return Envelope{Status: status}, &mcptool.ImageContent{
				Bytes:     rawBody,
				MediaType: strings.TrimSpace(mediaType),
			}
		}
		if imageDeclared && strings.TrimSpace(contentType) == "" {
			return Envelope{Status: status, Body: map[string]any{"error": ResponseParsingError{
				Type:        "response-parsing-error",
				Reason:      "missing Content-Type on an image-declared response",
				RawResponse: truncateRaw(rawBody),
			}}}, nil
		}

		var parsed any
		if len(strings.TrimSpace(string(rawBody))) == 0 {
			parsed = nil
		} else if jsonErr := json.Unmarshal(rawBody, &parsed); jsonErr != nil {
			return Envelope{Status: status, Body: map[string]any{"error": ResponseParsingError{
				Type:        "response-parsing-error",
				Reason:      jsonErr.Error(),
				RawResponse: truncateRaw(rawBody),
			}}}, nil
		}
		return Envelope{Status: status, Body: parsed}, nil
	}

	message := string(rawBody)
	var details any
	var parsed any
	if json.Unmarshal(rawBody, &parsed) == nil {
		details = parsed
		if m, ok := parsed.(map[string]any); ok {
			if msg, ok := m["message"].(string); ok && msg != "" {
				message = msg
			}
		}
	}
	return Envelope{Status: status, Body: map[string]any{"error": HttpError{
		Type:    "http-error",
		Status:  status,
		Message: message,
		Details: details,
	}}}, nil
}

// classifyNetworkError derives the NetworkError.category from the
// underlying failure class per spec.md section 4.5's enumerated set.
func classifyNetworkError(ctx context.Context, err error) NetworkError {
	category := networkCategoryOther

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		category = networkCategoryTimeout
	case isTimeoutError(err):
		category = networkCategoryTimeout
	case isConnectError(err):
		category = networkCategoryConnect
	default:
		var urlErr interface{ Unwrap() error }
		if errors.As(err, &urlErr) {
			category = networkCategoryRequest
		}
	}

	return NetworkError{
		Type:     "network-error",
		Message:  err.Error(),
		Category: category,
	}
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "deadline exceeded")
}

func isConnectError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "no such host") ||
		strings.Contains(err.Error(), "connect:")
}

func truncateRaw(raw []byte) string {
	if len(raw) <= maxRawResponseEcho {
		return string(raw)
	}
	return string(raw[:maxRawResponseEcho])
}

// IsImageContentType reports whether a response Content-Type names an image
// media type, per spec.md section 4.5's image-content rule.
func IsImageContentType(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.HasPrefix(strings.TrimSpace(mediaType), "image/")
}
