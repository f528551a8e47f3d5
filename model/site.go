/*
Copyright 2025 Rankito Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"net/url"
	"strings"
	"time"
)

// Site is a rank-and-rent property whose pages are submitted for indexing.
type Site struct {
	SiteID    string                 `json:"site_id"`
	Name      string                 `json:"name"`
	Domain    string                 `json:"domain"`
	CreatedAt time.Time              `json:"created_at"`
	MetaData  map[string]interface{} `json:"meta_data,omitempty"`
}

// NormalizeHost strips the scheme and a leading "www." from a host or URL
// string so that site domains and page URLs compare on equal terms.
func NormalizeHost(raw string) string {
	host := raw
	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	}
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "www.")
	return strings.TrimSuffix(host, "/")
}

// MatchesDomain reports whether pageURL belongs to the site's domain.
// The comparison ignores a leading "www." on either side.
func (s *Site) MatchesDomain(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	return NormalizeHost(u.Hostname()) == NormalizeHost(s.Domain)
}
