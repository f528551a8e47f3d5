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

// Discovered URL lifecycle. A URL moves discovered -> scheduled -> submitted
// -> completed/failed; a failed or orphaned URL re-enters the backlog as
// discovered on a later pass.
const (
	StatusDiscovered = "discovered"
	StatusScheduled  = "scheduled"
	StatusSubmitted  = "submitted"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Validation outcomes set by the discovery checker before scheduling.
const (
	ValidationValid         = "valid"
	ValidationInvalidDomain = "invalid_domain"
	ValidationUnreachable   = "unreachable"
)

// DiscoveredURL is a candidate page awaiting indexing submission.
//
// Invariant: a URL with ScheduledFor set always has an assigned account and a
// submission group; the scheduler only ever touches rows where ScheduledFor
// is NULL, which is what makes re-scheduling idempotent.
type DiscoveredURL struct {
	URLID            string                 `json:"url_id"`
	SiteID           string                 `json:"site_id"`
	URL              string                 `json:"url"`
	Priority         int                    `json:"priority"`
	Status           string                 `json:"status"`
	ScheduledFor     *time.Time             `json:"scheduled_for,omitempty"`
	AccountID        string                 `json:"account_id,omitempty"`
	GroupID          string                 `json:"group_id,omitempty"`
	AutoSchedule     bool                   `json:"auto_schedule_enabled"`
	ValidationStatus string                 `json:"validation_status,omitempty"`
	FailureReason    string                 `json:"failure_reason,omitempty"`
	DiscoveredAt     time.Time              `json:"discovered_at"`
	MetaData         map[string]interface{} `json:"meta_data,omitempty"`
}

// SchedulingEligible reports whether the URL can enter the next scheduling
// pass. Validation must not have failed; a URL that has never been validated
// is still eligible because validation is an optional enrichment step.
func (u *DiscoveredURL) SchedulingEligible() bool {
	if u.Status != StatusDiscovered || u.ScheduledFor != nil || !u.AutoSchedule {
		return false
	}
	return u.ValidationStatus == "" || u.ValidationStatus == ValidationValid
}
