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

// Package bridge is the transport boundary spec.md section 4.6 describes:
// the only place that knows both the MCP wire vocabulary
// (mark3labs/mcp-go's mcp.CallToolRequest/mcp.CallToolResult) and the
// transport-independent pkg/mcptool.ExecutionContext/ExecutionResult pair,
// grounded on internal/server.go's mcpRequestToExecutionContext/
// executionResultToMcpResult adapters.
package bridge

import (
	"context"
	"encoding/base64"
	"fmt"

	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lx-industries/rmcp-openapi/pkg/mcptool"
	"github.com/lx-industries/rmcp-openapi/pkg/registry"
	"github.com/lx-industries/rmcp-openapi/pkg/runtime"
	"github.com/lx-industries/rmcp-openapi/pkg/schema"
	"github.com/lx-industries/rmcp-openapi/pkg/specloader"
	"github.com/lx-industries/rmcp-openapi/pkg/validate"
)

// ServerConfig is the immutable-after-construction configuration spec.md
// section 3 describes: base URL, default headers, authorization mode,
// operation filter, description-skip flags, and product identity for the
// User-Agent string.
type ServerConfig struct {
	SpecLocation  string
	BaseURL       string
	DefaultHeaders map[string]string
	AuthorizationMode runtime.AuthorizationMode
	Filter        specloader.Filter

	SkipToolDescriptions      bool
	SkipParameterDescriptions bool

	ProductName    string
	ProductVersion string

	LoaderOptions specloader.Options
	Transformer   runtime.TransformerChain
}

// ProtocolError is an MCP protocol-level error (as opposed to an execution
// error folded into the result envelope), per spec.md section 7: tool
// lookup failures (-32601) and validation failures (-32602).
type ProtocolError struct {
	Code int
	Data any
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("mcp protocol error %d", e.Code)
}

const (
	codeInvalidParams = -32602
	codeMethodNotFound = -32601
)

// Info is the server_info() response spec.md section 4.6 describes.
type Info struct {
	Name         string
	Title        string
	Version      string
	Instructions string
}

// Bridge owns the compiled Tool Registry and the Invocation Runtime
// Engine, and exposes the three operations spec.md section 4.6 grants the
// transport: list_tools, call_tool, server_info.
type Bridge struct {
	registry *registry.Registry
	engine   *runtime.Engine
	info     Info

	validators map[string]*validate.Validator
}

// New loads the OpenAPI document, compiles every operation the filter
// admits into a tool, builds the Tool Registry, and wires the Invocation
// Runtime engine, in that order -- the full Spec Loader -> Schema Compiler
// -> Registry pipeline spec.md section 4 describes end to end.
func New(cfg ServerConfig) (*Bridge, error) {
	doc, err := specloader.Load(cfg.SpecLocation, cfg.LoaderOptions)
	if err != nil {
		return nil, err
	}

	compiler := schema.NewCompiler()
	var tools []mcptool.Tool
	walkErr := specloader.Walk(doc, cfg.Filter, func(method, path string, op *v3.Operation) error {
		tool, err := compiler.Compile(method, path, op)
		if err != nil {
			return fmt.Errorf("compiling %s %s: %w", method, path, err)
		}
		if cfg.SkipToolDescriptions {
			tool.Description = ""
		}
		if cfg.SkipParameterDescriptions {
			stripParameterDescriptions(tool.InputSchema)
		}
		tools = append(tools, tool)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	reg, err := registry.New(tools)
	if err != nil {
		return nil, &specloader.SpecError{Location: cfg.SpecLocation, Detail: err.Error()}
	}

	engine, err := runtime.NewEngine(cfg.BaseURL, cfg.DefaultHeaders, cfg.ProductName, cfg.ProductVersion, cfg.AuthorizationMode)
	if err != nil {
		return nil, err
	}
	if cfg.Transformer != nil {
		engine.Transformer = cfg.Transformer
	}

	validators := make(map[string]*validate.Validator, len(tools))
	for _, t := range tools {
		v, err := validate.New(t)
		if err != nil {
			return nil, fmt.Errorf("building validator for tool %q: %w", t.Name, err)
		}
		validators[t.Name] = v
	}

	title := doc.Model.Model.Info.Title
	return &Bridge{
		registry: reg,
		engine:   engine,
		validators: validators,
		info: Info{
			Name:    cfg.ProductName,
			Title:   title,
			Version: cfg.ProductVersion,
		},
	}, nil
}

// ListTools renders every registered tool in the mark3labs/mcp-go wire
// vocabulary, in registry (document) order.
func (b *Bridge) ListTools() ([]mcp.Tool, error) {
	tools := b.registry.List()
	out := make([]mcp.Tool, 0, len(tools))
	for _, t := range tools {
		mt, err := t.ToMCPTool()
		if err != nil {
			return nil, err
		}
		out = append(out, mt)
	}
	return out, nil
}

// ServerInfo returns the name/title/version/instructions triple spec.md
// section 4.6 describes, derived from the OpenAPI info object and
// configuration.
func (b *Bridge) ServerInfo() Info {
	return b.info
}

// CallTool runs one tool invocation end to end: lookup (with -32601
// suggestions on miss), validation (with -32602 violations on failure),
// then execution through the Invocation Runtime.
func (b *Bridge) CallTool(ctx context.Context, name string, args map[string]any, requestHeaders map[string]string) (*mcp.CallToolResult, error) {
	tool, ok := b.registry.Get(name)
	if !ok {
		return nil, &ProtocolError{
			Code: codeMethodNotFound,
			Data: map[string]any{"suggestions": b.registry.Suggest(name)},
		}
	}

	violations := b.validators[name].Validate(args)
	if len(violations) > 0 {
		return nil, &ProtocolError{
			Code: codeInvalidParams,
			Data: map[string]any{"type": "validation-errors", "violations": violations},
		}
	}

	execCtx := mcptool.NewExecutionContext(name, args, requestHeaders)
	result, err := b.engine.Execute(ctx, execCtx, tool)
	if err != nil {
		return nil, err
	}

	return toMCPResult(result)
}

// toMCPResult renders an ExecutionResult into the MCP wire shape: both a
// pretty-printed textual content block and a structured content block set
// to the same envelope value, per spec.md section 4.5's "returns BOTH"
// rule, or an image content block when the runtime classified the
// response as image content.
func toMCPResult(result mcptool.ExecutionResult) (*mcp.CallToolResult, error) {
	if img := result.ImageContent(); img != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.ImageContent{
				Type:     "image",
				Data:     encodeBase64(img.Bytes),
				MIMEType: img.MediaType,
			}},
		}, nil
	}

	envelope := result.Envelope()
	text, err := runtime.RenderTextContent(envelope)
	if err != nil {
		return nil, err
	}

	return &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		StructuredContent: envelope,
		IsError:           result.IsError(),
	}, nil
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func stripParameterDescriptions(inputSchema map[string]any) {
	props, ok := inputSchema["properties"].(map[string]any)
	if !ok {
		return
	}
	for _, v := range props {
		if prop, ok := v.(map[string]any); ok {
			delete(prop, "description")
		}
	}
}
