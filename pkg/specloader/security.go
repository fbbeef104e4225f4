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

package specloader

import (
	"log"
	"net"
	"net/url"
	"strings"
)

// URLSecurityIssue is a potential SSRF-style concern with a spec or base URL:
// the spec document itself, and the upstream base URL tools call into, are
// both attacker-influenced inputs worth the same scrutiny.
type URLSecurityIssue struct {
	Type        string
	Description string
	URL         string
}

var cloudMetadataHosts = []string{
	"169.254.169.254",          // AWS/Azure metadata
	"metadata.google.internal", // GCP metadata
	"100.100.100.200",          // Alibaba Cloud metadata
}

var privateIPv4Ranges = []string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

// CheckURLSecurity flags URLs pointing at loopback, private, link-local, or
// cloud-metadata addresses.
func CheckURLSecurity(rawURL string) []URLSecurityIssue {
	var issues []URLSecurityIssue

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return issues
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return issues
	}
	hostname := parsed.Hostname()

	if hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1" {
		issues = append(issues, URLSecurityIssue{Type: "localhost", Description: "URL points to localhost/loopback address", URL: rawURL})
	}

	if ip := net.ParseIP(hostname); ip != nil {
		if isPrivateIP(ip) {
			issues = append(issues, URLSecurityIssue{Type: "private_ip", Description: "URL points to a private IP address", URL: rawURL})
		}
		if ip.IsLinkLocalUnicast() {
			issues = append(issues, URLSecurityIssue{Type: "link_local", Description: "URL points to a link-local address", URL: rawURL})
		}
	}

	for _, metadataHost := range cloudMetadataHosts {
		if hostname == metadataHost {
			issues = append(issues, URLSecurityIssue{Type: "cloud_metadata", Description: "URL points to a cloud metadata endpoint", URL: rawURL})
			break
		}
	}

	return issues
}

func isPrivateIP(ip net.IP) bool {
	for _, cidr := range privateIPv4Ranges {
		_, network, err := net.ParseCIDR(cidr)
		if err == nil && network.Contains(ip) {
			return true
		}
	}
	if ip.To4() == nil {
		_, network, err := net.ParseCIDR("fc00::/7")
		if err == nil && network.Contains(ip) {
			return true
		}
	}
	return false
}

// WarnURLSecurity logs (but does not block) security concerns for a URL,
// used for the base URL tools will call into -- unlike the spec URL itself,
// refusing to talk to a private base URL would make the bridge useless for
// its most common deployment (an internal API behind a VPN).
func WarnURLSecurity(rawURL string, urlType string, devMode bool) {
	if devMode {
		return
	}
	issues := CheckURLSecurity(rawURL)
	if len(issues) == 0 {
		return
	}
	log.Printf("security warning: %s has potential concerns:", urlType)
	for _, issue := range issues {
		log.Printf("  - %s: %s", issue.Type, issue.Description)
	}
	log.Printf("  url: %s (pass --dev-mode to suppress for local development)", rawURL)
}
