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

// Submission group lifecycle. The dispatcher claims pending -> processing
// exactly once per scheduled slot arrival; terminal states are completed and
// failed.
const (
	GroupPending    = "pending"
	GroupProcessing = "processing"
	GroupCompleted  = "completed"
	GroupFailed     = "failed"
)

// SubmissionGroup is a batch of URLs sharing one scheduled slot and one
// account. Grouping is by (site, scheduled_for, account) so a group is always
// dispatched with a single credential.
type SubmissionGroup struct {
	GroupID      string     `json:"group_id"`
	SiteID       string     `json:"site_id"`
	AccountID    string     `json:"account_id"`
	ScheduledFor time.Time  `json:"scheduled_for"`
	Status       string     `json:"status"`
	Priority     int        `json:"priority"`
	URLCount     int        `json:"url_count"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}
