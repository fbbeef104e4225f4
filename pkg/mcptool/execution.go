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

// This file carries forward the transport-independence design from
// pkg/core/mcptool_abstraction.go: pkg/runtime executes a tool call against
// an abstract ExecutionContext and returns an abstract ExecutionResult, and
// pkg/bridge is the only place that knows how to translate those to and
// from a specific transport's wire types (MCP, HTTP, ...).
package mcptool

// ExecutionContext is the input to one tool invocation, independent of
// whatever transport received the call.
type ExecutionContext interface {
	ToolName() string
	Arguments() map[string]any
	// RequestHeaders carries whatever headers arrived on the inbound call
	// (notably Authorization, consulted by the authorization policy).
	RequestHeaders() map[string]string
}

// ExecutionResult is the output of one tool invocation.
type ExecutionResult interface {
	// Envelope is the {status, body} value described in spec.md section 3.
	Envelope() map[string]any
	// IsError mirrors the MCP result's is_error flag.
	IsError() bool
	// ImageContent is non-nil when the upstream response was image content;
	// when set it takes precedence over the textual/structured envelope.
	ImageContent() *ImageContent
}

// ImageContent is a raw image payload to be surfaced as MCP image content.
type ImageContent struct {
	Bytes     []byte
	MediaType string
}

// basicExecutionContext is the concrete ExecutionContext pkg/bridge builds
// from an inbound call_tool request.
type basicExecutionContext struct {
	toolName string
	args     map[string]any
	headers  map[string]string
}

// NewExecutionContext builds the standard ExecutionContext implementation.
func NewExecutionContext(toolName string, args map[string]any, headers map[string]string) ExecutionContext {
	if headers == nil {
		headers = map[string]string{}
	}
	return &basicExecutionContext{toolName: toolName, args: args, headers: headers}
}

func (b *basicExecutionContext) ToolName() string                 { return b.toolName }
func (b *basicExecutionContext) Arguments() map[string]any        { return b.args }
func (b *basicExecutionContext) RequestHeaders() map[string]string { return b.headers }

// basicExecutionResult is the standard ExecutionResult implementation
// produced by pkg/runtime.
type basicExecutionResult struct {
	envelope map[string]any
	isError  bool
	image    *ImageContent
}

// NewExecutionResult builds a standard ExecutionResult from an already
// classified envelope.
func NewExecutionResult(envelope map[string]any, isError bool) ExecutionResult {
	return &basicExecutionResult{envelope: envelope, isError: isError}
}

// NewImageExecutionResult builds a result that should be surfaced as image
// content instead of a JSON envelope.
func NewImageExecutionResult(img ImageContent) ExecutionResult {
	return &basicExecutionResult{image: &img}
}

func (b *basicExecutionResult) Envelope() map[string]any    { return b.envelope }
func (b *basicExecutionResult) IsError() bool                { return b.isError }
func (b *basicExecutionResult) ImageContent() *ImageContent { return b.image }
