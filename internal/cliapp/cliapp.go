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

// Package cliapp is the thin CLI wrapper spec.md section 6 describes: it
// parses flags and environment variables into a bridge.ServerConfig, then
// hands the server off to mark3labs/mcp-go's stdio or HTTP transport.
// Grounded on cmd/makemcp.go's cli.Command wiring and
// internal/orchestrator.go's flag-to-config translation, collapsed from a
// multi-source command tree down to the single `openapi` surface this spec
// needs.
package cliapp

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"

	"github.com/lx-industries/rmcp-openapi/pkg/bridge"
	"github.com/lx-industries/rmcp-openapi/pkg/runtime"
	"github.com/lx-industries/rmcp-openapi/pkg/specloader"
)

const (
	ExitSuccess = 0
	ExitConfigError = 1
	ExitRuntimeError = 2
)

// NewApp builds the top-level CLI command, version stamped by build flags
// (ldflags), matching cmd/makemcp.go's `var version = "dev"` convention.
func NewApp(version string) *cli.Command {
	return &cli.Command{
		Name:    "rmcp-openapi",
		Usage:   "Bridge an OpenAPI document into an MCP server.",
		Version: version,
		ArgsUsage: "<openapi-spec-path-or-url>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "base-url", Usage: "Base URL of the API the OpenAPI document describes."},
			&cli.StringFlag{Name: "port", Value: "8080", Usage: "Port to listen on for the HTTP transport."},
			&cli.StringFlag{Name: "bind", Value: "0.0.0.0", Usage: "Address to bind the HTTP transport to."},
			&cli.StringSliceFlag{Name: "header", Usage: "Default header forwarded on every upstream call, as K:V. Repeatable."},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated list of OpenAPI tags to include."},
			&cli.StringFlag{Name: "methods", Usage: "Comma-separated list of HTTP methods to include."},
			&cli.StringFlag{Name: "operation-ids", Usage: "Comma-separated list of operationIds to include."},
			&cli.StringFlag{Name: "authorization-mode", Usage: "compliant, passthrough-warn, or passthrough-silent."},
			&cli.BoolFlag{Name: "skip-tool-descriptions", Usage: "Omit tool descriptions from the generated schema."},
			&cli.BoolFlag{Name: "skip-parameter-descriptions", Usage: "Omit parameter descriptions from the generated schema."},
			&cli.BoolFlag{Name: "verbose", Usage: "Enable verbose logging."},
			&cli.BoolFlag{Name: "dev-mode", Usage: "Allow fetching the OpenAPI spec from local/private URLs and suppress the related security warnings."},
			&cli.BoolFlag{Name: "stdio", Usage: "Serve over stdio instead of HTTP."},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, cmd, version)
		},
	}
}

func run(ctx context.Context, cmd *cli.Command, version string) error {
	configureLogging(cmd.Bool("verbose"))

	specLocation := cmd.Args().First()
	if specLocation == "" {
		return &exitError{code: ExitConfigError, err: fmt.Errorf("missing required OpenAPI spec location argument")}
	}

	baseURL := cmd.String("base-url")
	if baseURL == "" {
		return &exitError{code: ExitConfigError, err: fmt.Errorf("--base-url is required")}
	}

	devMode := cmd.Bool("dev-mode")
	if !devMode {
		specloader.WarnURLSecurity(specLocation, "OpenAPI spec", false)
		specloader.WarnURLSecurity(baseURL, "Base URL", false)
	}

	mode, err := resolveAuthorizationMode(cmd.String("authorization-mode"))
	if err != nil {
		return &exitError{code: ExitConfigError, err: err}
	}

	cfg := bridge.ServerConfig{
		SpecLocation:   specLocation,
		BaseURL:        baseURL,
		DefaultHeaders: parseHeaders(cmd.StringSlice("header")),
		AuthorizationMode: mode,
		Filter: specloader.Filter{
			Tags:         splitCSV(cmd.String("tags")),
			Methods:      splitCSV(cmd.String("methods")),
			OperationIDs: splitCSV(cmd.String("operation-ids")),
		},
		SkipToolDescriptions:      cmd.Bool("skip-tool-descriptions"),
		SkipParameterDescriptions: cmd.Bool("skip-parameter-descriptions"),
		ProductName:               "rmcp-openapi",
		ProductVersion:            version,
		LoaderOptions: specloader.Options{
			DevMode: devMode,
		},
	}

	b, err := bridge.New(cfg)
	if err != nil {
		return &exitError{code: ExitConfigError, err: err}
	}

	mcpServer, err := buildMCPServer(ctx, b)
	if err != nil {
		return &exitError{code: ExitConfigError, err: err}
	}

	if cmd.Bool("stdio") {
		if err := server.ServeStdio(mcpServer); err != nil {
			return &exitError{code: ExitRuntimeError, err: err}
		}
		return nil
	}

	addr := fmt.Sprintf("%s:%s", cmd.String("bind"), cmd.String("port"))
	httpServer := server.NewStreamableHTTPServer(mcpServer)
	log.Printf("serving MCP over HTTP on %s", addr)
	if err := httpServer.Start(addr); err != nil {
		return &exitError{code: ExitRuntimeError, err: err}
	}
	return nil
}

// buildMCPServer registers every tool in the bridge's registry against a
// mark3labs/mcp-go server, adapting call_tool to the Bridge.CallTool entry
// point, grounded on the dropped internal/server.go's GetMCPServer /
// adaptHandlerToMcpGo wiring.
func buildMCPServer(ctx context.Context, b *bridge.Bridge) (*server.MCPServer, error) {
	info := b.ServerInfo()
	mcpServer := server.NewMCPServer(info.Name, info.Version, server.WithToolCapabilities(true))

	tools, err := b.ListTools()
	if err != nil {
		return nil, err
	}
	for _, tool := range tools {
		mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			headers := requestHeaders(ctx)
			result, err := b.CallTool(ctx, request.Params.Name, request.GetArguments(), headers)
			if err != nil {
				if perr, ok := err.(*bridge.ProtocolError); ok {
					return nil, perr
				}
				return nil, err
			}
			return result, nil
		})
	}
	return mcpServer, nil
}

// requestHeaders extracts inbound HTTP headers for the authorization
// passthrough policy to consult. Stdio connections never carry headers;
// the HTTP transport's per-request header propagation is a transport-level
// concern this wrapper does not yet plumb through, so compliant mode (the
// default) is unaffected and passthrough modes see no Authorization header
// until that wiring is added.
func requestHeaders(ctx context.Context) map[string]string {
	return map[string]string{}
}

// configureLogging applies the RMCP_OPENAPI_LOG / --verbose knobs to the
// standard log package, the only logging facility this module or its
// teacher ever reaches for. A bare "debug"/"verbose" value (or --verbose)
// turns on file:line prefixes; anything else is left at the package
// default. A module=level form is accepted for forward compatibility but
// this module has only one logical module today, so it behaves the same
// as the bare form.
func configureLogging(verboseFlag bool) {
	verbose := verboseFlag
	if level := os.Getenv("RMCP_OPENAPI_LOG"); level != "" {
		for _, part := range strings.Split(level, ",") {
			_, v, ok := strings.Cut(part, "=")
			if !ok {
				v = part
			}
			if v == "debug" || v == "verbose" {
				verbose = true
			}
		}
	}
	if verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}
}

func resolveAuthorizationMode(flagValue string) (runtime.AuthorizationMode, error) {
	mode := flagValue
	if mode == "" {
		mode = os.Getenv("RMCP_AUTHORIZATION_MODE")
	}
	switch runtime.AuthorizationMode(mode) {
	case "", runtime.Compliant:
		return runtime.Compliant, nil
	case runtime.PassthroughWarn:
		return runtime.PassthroughWarn, nil
	case runtime.PassthroughSilent:
		return runtime.PassthroughSilent, nil
	default:
		return "", fmt.Errorf("unknown authorization mode %q", mode)
	}
}

func parseHeaders(raw []string) map[string]string {
	headers := map[string]string{}
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			continue
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return headers
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// exitError carries the process exit code spec.md section 6 assigns to
// each failure class (1 configuration/spec error, 2 runtime I/O error).
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

// ExitCode extracts the intended process exit code from an error returned
// by Run, defaulting to ExitRuntimeError for anything uncategorized.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if ee, ok := err.(*exitError); ok {
		return ee.code
	}
	return ExitRuntimeError
}
