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

// Usage record outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// UsageRecord is one row per submission attempt against the provider. The
// table is append-only and is the single source of truth for quota
// consumption; used/remaining are always derived from it, never from a
// maintained counter.
type UsageRecord struct {
	UsageID     string    `json:"usage_id"`
	AccountID   string    `json:"account_id"`
	URL         string    `json:"url"`
	Outcome     string    `json:"outcome"`
	SubmittedAt time.Time `json:"submitted_at"`
	LatencyMS   int64     `json:"latency_ms"`
}

// AccountQuota is the per-account slice of an aggregated quota snapshot.
type AccountQuota struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Health    string `json:"health"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}

// AggregatedQuota sums today's usage across all active, healthy accounts of a
// site. This is what user-facing dashboards read.
type AggregatedQuota struct {
	SiteID     string         `json:"site_id"`
	Used       int            `json:"used"`
	Limit      int            `json:"limit"`
	Remaining  int            `json:"remaining"`
	Percentage float64        `json:"percentage"`
	Breakdown  []AccountQuota `json:"breakdown"`
}

// StartOfUTCDay returns midnight of the current UTC day for t. Daily caps
// reset implicitly because usage is always counted from this boundary.
func StartOfUTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
