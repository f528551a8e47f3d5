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

package database

import (
	"context"
	"time"

	"github.com/rankitohq/indexer/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	site         // Interface for site-related operations
	account      // Interface for account-related operations
	discovery    // Interface for discovered URL operations
	submission   // Interface for submission group operations
	usage        // Interface for quota usage operations
	executionLog // Interface for scheduler run logging
}

// site defines methods for handling sites.
type site interface {
	CreateSite(site model.Site) (model.Site, error)                        // Creates a new site
	GetSiteByID(ctx context.Context, id string) (*model.Site, error)       // Retrieves a site by ID
	GetAllSites(ctx context.Context, limit, offset int) ([]model.Site, error) // Retrieves all sites
	DeleteSite(ctx context.Context, id string) error                       // Deletes a site
}

// account defines methods for handling indexing accounts.
type account interface {
	CreateAccount(account model.Account) (model.Account, error)                            // Creates a new account
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)                 // Retrieves an account by ID
	GetAccountsBySite(ctx context.Context, siteID string) ([]model.Account, error)         // Retrieves all accounts of a site
	GetEligibleAccountsBySite(ctx context.Context, siteID string) ([]model.Account, error) // Retrieves active, healthy accounts of a site
	UpdateAccount(account *model.Account) error                                            // Updates an account
	UpdateAccountHealth(ctx context.Context, id string, health string) error               // Updates an account's health state
	DeleteAccount(ctx context.Context, id string) error                                    // Deletes an account
}

// discovery defines methods for handling discovered URLs.
type discovery interface {
	CreateDiscoveredURLs(ctx context.Context, urls []*model.DiscoveredURL) (int, error)                               // Inserts new URLs, skipping per-site duplicates
	GetDiscoveredURL(ctx context.Context, id string) (*model.DiscoveredURL, error)                                    // Retrieves a URL by ID
	GetURLsBySite(ctx context.Context, siteID, status string, limit, offset int) ([]model.DiscoveredURL, error)       // Retrieves a site's URLs, optionally filtered by status
	GetSchedulableURLs(ctx context.Context, siteID string) ([]model.DiscoveredURL, error)                             // Retrieves the unscheduled backlog of a site
	GetURLsByGroup(ctx context.Context, groupID string) ([]model.DiscoveredURL, error)                                // Retrieves the URLs of a submission group
	AssignURLToSlot(ctx context.Context, urlID, groupID, accountID string, scheduledFor time.Time) (bool, error)      // Claims an unscheduled URL into a slot
	UpdateURLValidation(ctx context.Context, urlID, validationStatus, failureReason string) error                     // Records a validation outcome
	UpdateURLStatus(ctx context.Context, urlID, status, failureReason string) error                                   // Moves a URL through its lifecycle
	RevertURLs(ctx context.Context, urlIDs []string) error                                                            // Returns URLs to the unscheduled backlog
	RevertScheduledURLsBySite(ctx context.Context, siteID string) (int64, error)                                      // Returns all of a site's scheduled URLs to the backlog
	CountURLsBySiteAndStatus(ctx context.Context, siteID string) (map[string]int, error)                              // Counts a site's URLs per status
}

// submission defines methods for handling submission groups.
type submission interface {
	CreateSubmissionGroup(ctx context.Context, group *model.SubmissionGroup) error                        // Creates a new submission group
	GetSubmissionGroup(ctx context.Context, id string) (*model.SubmissionGroup, error)                    // Retrieves a group by ID
	ClaimSubmissionGroup(ctx context.Context, id string) (bool, error)                                    // Atomically claims a pending group for processing
	UpdateSubmissionGroupStatus(ctx context.Context, id, status string) error                             // Moves a group to a new state
	GetPendingGroupsOlderThan(ctx context.Context, cutoff time.Time) ([]model.SubmissionGroup, error)     // Finds pending groups whose slot has passed
	GetGroupsBySite(ctx context.Context, siteID string, limit, offset int) ([]model.SubmissionGroup, error) // Retrieves a site's groups, newest first
	CancelPendingGroupsBySite(ctx context.Context, siteID string) (int64, error)                          // Removes a site's pending groups
}

// usage defines methods for the append-only quota usage trail.
type usage interface {
	RecordUsage(ctx context.Context, record *model.UsageRecord) error                                            // Appends a usage record
	CountUsageSince(ctx context.Context, accountID string, since time.Time) (int, error)                         // Counts an account's submissions since a point in time
	HasUsageForURLSince(ctx context.Context, accountID, url string, since time.Time) (bool, error)               // Reports whether an attempt already exists for the URL
	CountUsageForAccounts(ctx context.Context, accountIDs []string, since time.Time) (map[string]int, error)     // Counts submissions per account since a point in time
	GetUsageBySite(ctx context.Context, siteID string, limit, offset int) ([]model.UsageRecord, error)           // Retrieves a site's usage records, newest first
}

// executionLog defines methods for the scheduler run trail.
type executionLog interface {
	RecordExecutionLog(ctx context.Context, entry *model.ExecutionLogEntry) error                  // Appends a scheduler run entry
	GetExecutionLogs(ctx context.Context, limit, offset int) ([]model.ExecutionLogEntry, error)    // Retrieves run entries, newest first
}
