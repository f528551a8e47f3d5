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

import "time"

// Account health states. Unhealthy accounts are excluded from slot assignment
// until an external health check restores them; inactive accounts have been
// revoked by the user and are never picked up again.
const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
	HealthInactive  = "inactive"
)

// DefaultDailyCap is the provider-enforced daily submission quota per
// credential. It can be overridden per deployment through configuration.
const DefaultDailyCap = 200

// Account is an indexing-capable credential linked to a site. One site pools
// the quota of all its healthy, active accounts.
type Account struct {
	AccountID  string                 `json:"account_id"`
	SiteID     string                 `json:"site_id"`
	Name       string                 `json:"name"`
	Email      string                 `json:"email,omitempty"`
	Health     string                 `json:"health"`
	Active     bool                   `json:"active"`
	DailyCap   int                    `json:"daily_cap"`
	Credential map[string]interface{} `json:"credential,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	MetaData   map[string]interface{} `json:"meta_data,omitempty"`
}

// Eligible reports whether the account can receive slot assignments.
func (a *Account) Eligible() bool {
	return a.Active && a.Health == HealthHealthy
}

// Cap returns the account's daily cap, falling back to the default when the
// stored value is missing or nonsensical.
func (a *Account) Cap() int {
	if a.DailyCap <= 0 {
		return DefaultDailyCap
	}
	return a.DailyCap
}
