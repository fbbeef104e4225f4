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
	"os"
	"testing"

	"github.com/pb33f/libopenapi"
	"github.com/pb33f/libopenapi/datamodel"
)

func schemaForFragment(t *testing.T, doc string, path string) map[string]any {
	t.Helper()
	dir := t.TempDir()
	file := dir + "/spec.json"
	if err := os.WriteFile(file, []byte(doc), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	bytes, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("os.ReadFile: %v", err)
	}
	cfg := datamodel.NewDocumentConfiguration()
	d, err := libopenapi.NewDocumentWithConfiguration(bytes, cfg)
	if err != nil {
		t.Fatalf("NewDocumentWithConfiguration: %v", err)
	}
	model, errs := d.BuildV3Model()
	if len(errs) > 0 {
		t.Fatalf("BuildV3Model errors: %v", errs)
	}
	pathItem, ok := model.Model.Paths.PathItems.Get(path)
	if !ok || pathItem == nil || pathItem.Get == nil {
		t.Fatalf("no GET operation at %s", path)
	}
	resp, ok := pathItem.Get.Responses.Codes.Get("200")
	if !ok || resp == nil {
		t.Fatalf("no 200 response at %s", path)
	}
	media, ok := resp.Content.Get("application/json")
	if !ok || media == nil {
		t.Fatalf("no application/json media at %s", path)
	}
	return ConvertSchema(media.Schema)
}

func TestConvertSchemaBasicFields(t *testing.T) {
	doc := `{
	  "openapi": "3.0.3",
	  "info": {"title": "t", "version": "1.0.0"},
	  "paths": {
	    "/widgets": {
	      "get": {
	        "responses": {
	          "200": {"description": "ok", "content": {"application/json": {"schema": {
	            "type": "object",
	            "required": ["id"],
	            "properties": {
	              "id": {"type": "integer", "minimum": 1, "maximum": 100},
	              "kind": {"type": "string", "enum": ["a", "b"], "default": "a"},
	              "tags": {"type": "array", "items": {"type": "string"}}
	            },
	            "additionalProperties": false
	          }}}}
	        }
	      }
	    }
	  }
	}`
	out := schemaForFragment(t, doc, "/widgets")

	if out["type"] != "object" {
		t.Errorf("type = %v, want object", out["type"])
	}
	if out["additionalProperties"] != false {
		t.Errorf("additionalProperties = %v, want false", out["additionalProperties"])
	}
	required, _ := out["required"].([]string)
	if len(required) != 1 || required[0] != "id" {
		t.Errorf("required = %v, want [id]", required)
	}
	props, _ := out["properties"].(map[string]any)
	idProp, _ := props["id"].(map[string]any)
	if idProp["minimum"] != float64(1) && idProp["minimum"] != 1.0 {
		t.Errorf("id.minimum = %v", idProp["minimum"])
	}
	kindProp, _ := props["kind"].(map[string]any)
	enum, _ := kindProp["enum"].([]any)
	if len(enum) != 2 {
		t.Errorf("kind.enum = %v, want 2 entries", enum)
	}
	if kindProp["default"] != "a" {
		t.Errorf("kind.default = %v, want a", kindProp["default"])
	}
	tagsProp, _ := props["tags"].(map[string]any)
	items, _ := tagsProp["items"].(map[string]any)
	if items["type"] != "string" {
		t.Errorf("tags.items.type = %v, want string", items["type"])
	}
}
