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
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/lx-industries/rmcp-openapi/pkg/mcptool"
)

// AuthorizationMode selects how (or whether) the client's Authorization
// header is forwarded to the upstream API, per spec.md section 4.5.
type AuthorizationMode string

const (
	Compliant          AuthorizationMode = "compliant"
	PassthroughWarn    AuthorizationMode = "passthrough-warn"
	PassthroughSilent  AuthorizationMode = "passthrough-silent"
)

// ConfigurationError reports a server configuration that cannot be
// satisfied, such as requesting a passthrough mode without the compile-time
// capability flag set.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string { return "configuration error: " + e.Detail }

// PassthroughCapable gates the two passthrough modes behind a compile-time
// capability flag, per spec.md section 4.5: "only available when a
// compile-time capability flag is set; otherwise requesting them is a
// configuration error." Set to true in a build that opts into forwarding
// client Authorization headers upstream.
var PassthroughCapable = false

// Authorizer applies the configured authorization policy to an outbound
// request, given the inbound MCP request's headers.
type Authorizer struct {
	Mode AuthorizationMode
}

// NewAuthorizer validates the mode against the capability flag at
// construction, so a misconfiguration fails fast at startup rather than on
// the first call.
func NewAuthorizer(mode AuthorizationMode) (*Authorizer, error) {
	if mode == "" {
		mode = Compliant
	}
	if mode != Compliant && !PassthroughCapable {
		return nil, &ConfigurationError{Detail: fmt.Sprintf("authorization mode %q requires the passthrough capability flag", mode)}
	}
	return &Authorizer{Mode: mode}, nil
}

// Apply forwards (or withholds) the inbound Authorization header onto the
// outbound request per the configured mode.
func (a *Authorizer) Apply(tool mcptool.Tool, requestHeaders map[string]string, outbound func(name, value string)) {
	authHeader, ok := requestHeaders["Authorization"]
	if !ok || authHeader == "" {
		return
	}

	switch a.Mode {
	case Compliant:
		return
	case PassthroughWarn:
		outbound("Authorization", authHeader)
		log.Printf(
			"authorization passthrough: tool=%s security_required=%t event=%s",
			tool.Name, tool.Operation.SecurityRequired, uuid.NewString(),
		)
	case PassthroughSilent:
		outbound("Authorization", authHeader)
	}
}
