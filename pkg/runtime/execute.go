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
	"net/http"
	"time"

	"github.com/lx-industries/rmcp-openapi/pkg/mcptool"
)

// Engine wires Binder, shared Client, Authorizer and TransformerChain into
// the single call_tool entry point pkg/bridge calls for every invocation.
type Engine struct {
	Binder      *Binder
	Client      *http.Client
	Authorizer  *Authorizer
	Transformer TransformerChain
}

// NewEngine builds an Engine from server configuration, constructing the
// one shared *http.Client per spec.md section 5's shared-resource policy.
func NewEngine(baseURL string, defaultHeaders map[string]string, productName, productVersion string, mode AuthorizationMode) (*Engine, error) {
	authorizer, err := NewAuthorizer(mode)
	if err != nil {
		return nil, err
	}
	return &Engine{
		Binder: &Binder{
			BaseURL:        baseURL,
			DefaultHeaders: defaultHeaders,
			ProductName:    productName,
			ProductVersion: productVersion,
		},
		Client:     NewSharedClient(),
		Authorizer: authorizer,
	}, nil
}

// Execute binds, issues, classifies and transforms one tool call, then
// shapes the result into the transport-independent mcptool.ExecutionResult
// spec.md section 4.5 describes.
func (e *Engine) Execute(ctx context.Context, execCtx mcptool.ExecutionContext, tool mcptool.Tool) (mcptool.ExecutionResult, error) {
	args := execCtx.Arguments()

	req, err := e.Binder.Bind(tool, args)
	if err != nil {
		return mcptool.NewExecutionResult(map[string]any{
			"status": 0,
			"body": map[string]any{"error": NetworkError{
				Type:     "network-error",
				Message:  err.Error(),
				Category: networkCategoryRequest,
			}},
		}, true), nil
	}

	e.Authorizer.Apply(tool, execCtx.RequestHeaders(), func(name, value string) {
		req.Header.Set(name, value)
	})

	timeout := time.Duration(TimeoutSeconds(args)) * time.Second
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	envelope, img := Execute(callCtx, e.Client, req, tool.Operation.ImageResponseDeclared)
	if img != nil {
		return mcptool.NewImageExecutionResult(*img), nil
	}
	envelope = e.Transformer.Apply(envelope)

	wire := map[string]any{"status": envelope.Status, "body": envelope.Body}
	return mcptool.NewExecutionResult(wire, envelope.IsError()), nil
}

// RenderTextContent pretty-prints the envelope for the MCP result's textual
// content block, alongside the structured content block set to the same
// value, per spec.md section 4.5's "returns BOTH" rule.
func RenderTextContent(envelope map[string]any) (string, error) {
	encoded, err := json.MarshalIndent(orderedEnvelope(envelope), "", "  ")
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// orderedEnvelope re-expresses a {status, body} map through Envelope so
// json.MarshalIndent emits status before body, matching the wire-exact key
// order spec.md section 3 requires.
func orderedEnvelope(envelope map[string]any) Envelope {
	status, _ := envelope["status"].(int)
	return Envelope{Status: status, Body: envelope["body"]}
}
