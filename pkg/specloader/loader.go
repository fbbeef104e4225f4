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

// Package specloader ingests an OpenAPI v3 document and hands off each
// included operation to a caller-supplied callback. $ref resolution is
// delegated to pb33f/libopenapi's own model builder; this package adds the
// operation filter, spec-fetch safety checks, and the fatal-load-error
// wrapping spec.md section 4.1 asks for.
package specloader

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"

	"github.com/pb33f/libopenapi"
	"github.com/pb33f/libopenapi/datamodel"
)

// SpecError is the fatal load error spec.md section 4.1 requires: an
// unresolvable $ref, a missing required field, or a conflicting operation
// name all surface as one of these, carrying enough context to find the
// offending location.
type SpecError struct {
	Location string
	Detail   string
}

func (e *SpecError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("spec error: %s", e.Detail)
	}
	return fmt.Sprintf("spec error at %s: %s", e.Location, e.Detail)
}

// Options controls how a document is loaded.
type Options struct {
	// StrictValidation turns libopenapi model-build warnings into a fatal
	// SpecError instead of logging and continuing.
	StrictValidation bool
	// DevMode disables the SSRF-style safety checks on URL specs, matching
	// the teacher's --dev-mode escape hatch.
	DevMode bool
	// FetchTimeout bounds a remote spec fetch; zero means no timeout.
	FetchTimeout time.Duration
}

// Document wraps the built libopenapi v3 model together with the location
// it was loaded from, for error messages and server_info().
type Document struct {
	Model    *libopenapi.DocumentModel[v3.Document]
	Location string
}

// Load reads an OpenAPI document from a local file path or an http(s) URL
// and builds its v3 model.
func Load(location string, opts Options) (*Document, error) {
	log.Printf("loading OpenAPI spec from %s", location)

	specBytes, err := loadSpecBytes(location, opts)
	if err != nil {
		return nil, &SpecError{Location: location, Detail: err.Error()}
	}

	cfg := datamodel.NewDocumentConfiguration()
	cfg.AllowFileReferences = true
	cfg.AllowRemoteReferences = true

	doc, err := libopenapi.NewDocumentWithConfiguration(specBytes, cfg)
	if err != nil {
		return nil, &SpecError{Location: location, Detail: fmt.Sprintf("failed to parse document: %v", err)}
	}

	model, buildErrors := doc.BuildV3Model()
	if len(buildErrors) > 0 {
		msgs := make([]string, 0, len(buildErrors))
		for _, e := range buildErrors {
			msgs = append(msgs, e.Error())
		}
		if opts.StrictValidation || model == nil {
			return nil, &SpecError{Location: location, Detail: strings.Join(msgs, "; ")}
		}
		log.Printf("OpenAPI validation warnings (permissive mode): %s", strings.Join(msgs, "; "))
	}
	if model == nil {
		return nil, &SpecError{Location: location, Detail: "document produced no v3 model"}
	}

	log.Printf("loaded OpenAPI spec: %s v%s", model.Model.Info.Title, model.Model.Info.Version)
	return &Document{Model: model, Location: location}, nil
}

func loadSpecBytes(location string, opts Options) ([]byte, error) {
	if isURL(location) {
		if !opts.DevMode {
			if issues := CheckURLSecurity(location); len(issues) > 0 {
				return nil, fmt.Errorf("refusing to fetch spec from %s: %s (pass dev mode to override)", location, issues[0].Description)
			}
		}
		client := &http.Client{Timeout: opts.FetchTimeout}
		resp, err := client.Get(location)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch OpenAPI spec: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("failed to fetch OpenAPI spec: HTTP %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	return readFile(location)
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Walk visits every path-item x method in the document, in document order,
// invoking fn for each operation that satisfies filter.
func Walk(doc *Document, filter Filter, fn func(method, path string, op *v3.Operation) error) error {
	model := &doc.Model.Model
	if model.Paths == nil || model.Paths.PathItems == nil {
		return nil
	}
	for pathPairs := model.Paths.PathItems.First(); pathPairs != nil; pathPairs = pathPairs.Next() {
		path := pathPairs.Key()
		pathItem := pathPairs.Value()
		if pathItem == nil {
			continue
		}
		operations := pathItem.GetOperations()
		if operations == nil {
			continue
		}
		for opPairs := operations.First(); opPairs != nil; opPairs = opPairs.Next() {
			method := opPairs.Key()
			op := opPairs.Value()
			if op == nil {
				continue
			}
			if !filter.Match(method, op.Tags, op.OperationId) {
				continue
			}
			if err := fn(method, path, op); err != nil {
				return err
			}
		}
	}
	return nil
}
