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
	"net"
	"net/http"
	"time"
)

// NewSharedClient builds the single *http.Client instance shared across
// every tool and every call, per spec.md section 5's shared-resource
// policy: configured once at startup, its transport pooling connections
// across invocations rather than dialing fresh per call. Grounded on
// pkg/sources/openapi/utils.go's NewAPIClient, generalized to expose the
// pooling knobs that single-purpose constructor hard-coded.
func NewSharedClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		// Per-call deadlines are applied via context (see TimeoutSeconds),
		// not here -- a client-wide Timeout would cap every call to the
		// shortest tool's budget.
	}
}
