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

// ExecutionLogEntry records one scheduler run. Append-only diagnostic trail;
// no downstream logic reads it.
type ExecutionLogEntry struct {
	EntryID          string    `json:"entry_id"`
	RunAt            time.Time `json:"run_at"`
	SitesProcessed   int       `json:"sites_processed"`
	URLsScheduled    int       `json:"urls_scheduled"`
	TotalCapacity    int       `json:"total_capacity"`
	IntegrationsUsed int       `json:"integrations_used"`
	DurationMS       int64     `json:"duration_ms"`
}
