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
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"github.com/rankitohq/indexer/internal/apierror"
	"github.com/rankitohq/indexer/model"
)

const discoveredURLColumns = `url_id, site_id, url, priority, status, scheduled_for, account_id, group_id, auto_schedule, validation_status, failure_reason, discovered_at, meta_data`

// CreateDiscoveredURLs inserts a batch of URLs into the backlog. URLs already
// known for the same site are skipped, so re-submitting an overlapping list
// is harmless. Returns the number of rows actually inserted.
func (d Datasource) CreateDiscoveredURLs(ctx context.Context, urls []*model.DiscoveredURL) (int, error) {
	if len(urls) == 0 {
		return 0, nil
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to start transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	inserted := 0
	for _, u := range urls {
		metaDataJSON, err := json.Marshal(u.MetaData)
		if err != nil {
			return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
		}

		u.URLID = model.GenerateUUIDWithSuffix("url")
		u.Status = model.StatusDiscovered
		u.DiscoveredAt = time.Now()

		result, err := tx.ExecContext(ctx, `
			INSERT INTO indexer.discovered_urls (url_id, site_id, url, priority, status, auto_schedule, validation_status, discovered_at, meta_data)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (site_id, url) DO NOTHING
		`, u.URLID, u.SiteID, u.URL, u.Priority, u.Status, u.AutoSchedule, u.ValidationStatus, u.DiscoveredAt, metaDataJSON)
		if err != nil {
			pqErr, ok := err.(*pq.Error)
			if ok && pqErr.Code.Name() == "foreign_key_violation" {
				return 0, apierror.NewAPIError(apierror.ErrBadRequest, "Site does not exist", err)
			}
			return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to insert discovered URL", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to insert discovered URL", err)
		}
		inserted += int(affected)
	}

	if err = tx.Commit(); err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit discovered URLs", err)
	}

	return inserted, nil
}

func (d Datasource) GetDiscoveredURL(ctx context.Context, id string) (*model.DiscoveredURL, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+discoveredURLColumns+`
		FROM indexer.discovered_urls
		WHERE url_id = $1
	`, id)

	u, err := scanDiscoveredURL(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "URL not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve URL", err)
	}
	return u, nil
}

func (d Datasource) GetURLsBySite(ctx context.Context, siteID, status string, limit, offset int) ([]model.DiscoveredURL, error) {
	query := `
		SELECT ` + discoveredURLColumns + `
		FROM indexer.discovered_urls
		WHERE site_id = $1
		ORDER BY discovered_at DESC
		LIMIT $2 OFFSET $3
	`
	args := []interface{}{siteID, limit, offset}
	if status != "" {
		query = `
		SELECT ` + discoveredURLColumns + `
		FROM indexer.discovered_urls
		WHERE site_id = $1 AND status = $4
		ORDER BY discovered_at DESC
		LIMIT $2 OFFSET $3
	`
		args = append(args, status)
	}

	return d.queryDiscoveredURLs(ctx, query, args...)
}

// GetSchedulableURLs returns a site's unscheduled backlog in assignment
// order: higher priority first, then oldest discovery first.
func (d Datasource) GetSchedulableURLs(ctx context.Context, siteID string) ([]model.DiscoveredURL, error) {
	return d.queryDiscoveredURLs(ctx, `
		SELECT `+discoveredURLColumns+`
		FROM indexer.discovered_urls
		WHERE site_id = $1
		  AND status = 'discovered'
		  AND scheduled_for IS NULL
		  AND auto_schedule = true
		  AND (validation_status = '' OR validation_status = 'valid')
		ORDER BY priority DESC, discovered_at ASC
	`, siteID)
}

func (d Datasource) GetURLsByGroup(ctx context.Context, groupID string) ([]model.DiscoveredURL, error) {
	return d.queryDiscoveredURLs(ctx, `
		SELECT `+discoveredURLColumns+`
		FROM indexer.discovered_urls
		WHERE group_id = $1
		ORDER BY priority DESC, discovered_at ASC
	`, groupID)
}

// AssignURLToSlot claims an unscheduled URL for a slot. The scheduled_for IS
// NULL guard makes concurrent scheduler runs safe: only one run can win a
// given URL. Returns false when the URL was already claimed.
func (d Datasource) AssignURLToSlot(ctx context.Context, urlID, groupID, accountID string, scheduledFor time.Time) (bool, error) {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE indexer.discovered_urls
		SET status = 'scheduled', scheduled_for = $2, group_id = $3, account_id = $4
		WHERE url_id = $1 AND status = 'discovered' AND scheduled_for IS NULL
	`, urlID, scheduledFor, groupID, accountID)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to assign URL to slot", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to assign URL to slot", err)
	}
	return affected > 0, nil
}

// UpdateURLValidation records a validation outcome. A failed validation also
// turns auto scheduling off so the URL can never enter the eligible set.
func (d Datasource) UpdateURLValidation(ctx context.Context, urlID, validationStatus, failureReason string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE indexer.discovered_urls
		SET validation_status = $2,
		    failure_reason = $3,
		    auto_schedule = CASE WHEN $2 IN ('', 'valid') THEN auto_schedule ELSE false END
		WHERE url_id = $1
	`, urlID, validationStatus, failureReason)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update URL validation", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update URL validation", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "URL not found", nil)
	}

	return nil
}

func (d Datasource) UpdateURLStatus(ctx context.Context, urlID, status, failureReason string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE indexer.discovered_urls SET status = $2, failure_reason = $3 WHERE url_id = $1
	`, urlID, status, failureReason)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update URL status", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update URL status", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "URL not found", nil)
	}

	return nil
}

// RevertURLs returns URLs to the unscheduled backlog, clearing their slot
// assignment so a later scheduling pass picks them up again.
func (d Datasource) RevertURLs(ctx context.Context, urlIDs []string) error {
	if len(urlIDs) == 0 {
		return nil
	}

	_, err := d.Conn.ExecContext(ctx, `
		UPDATE indexer.discovered_urls
		SET status = 'discovered', scheduled_for = NULL, group_id = '', account_id = ''
		WHERE url_id = ANY($1)
	`, pq.Array(urlIDs))
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to revert URLs", err)
	}

	return nil
}

// RevertScheduledURLsBySite clears every not-yet-dispatched assignment of a
// site. Used by force rescheduling before a fresh scheduling pass.
// RevertScheduledURLsBySite sends a site's scheduled URLs back to the
// discovered backlog. Only URLs whose group is still pending are touched; a
// group the dispatcher has already claimed keeps its members.
func (d Datasource) RevertScheduledURLsBySite(ctx context.Context, siteID string) (int64, error) {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE indexer.discovered_urls
		SET status = 'discovered', scheduled_for = NULL, group_id = '', account_id = ''
		WHERE site_id = $1 AND status = 'scheduled'
		AND group_id IN (
			SELECT group_id FROM indexer.submission_groups
			WHERE site_id = $1 AND status = 'pending'
		)
	`, siteID)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to revert scheduled URLs", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to revert scheduled URLs", err)
	}
	return affected, nil
}

func (d Datasource) CountURLsBySiteAndStatus(ctx context.Context, siteID string) (map[string]int, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM indexer.discovered_urls
		WHERE site_id = $1
		GROUP BY status
	`, siteID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count URLs", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err = rows.Scan(&status, &count); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan URL counts", err)
		}
		counts[status] = count
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over URL counts", err)
	}

	return counts, nil
}

func (d Datasource) queryDiscoveredURLs(ctx context.Context, query string, args ...interface{}) ([]model.DiscoveredURL, error) {
	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve URLs", err)
	}
	defer rows.Close()

	urls := []model.DiscoveredURL{}
	for rows.Next() {
		u, err := scanDiscoveredURL(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan URL data", err)
		}
		urls = append(urls, *u)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over URLs", err)
	}

	return urls, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDiscoveredURL(row rowScanner) (*model.DiscoveredURL, error) {
	u := model.DiscoveredURL{}
	var scheduledFor sql.NullTime
	var metaDataJSON []byte

	err := row.Scan(&u.URLID, &u.SiteID, &u.URL, &u.Priority, &u.Status, &scheduledFor, &u.AccountID, &u.GroupID, &u.AutoSchedule, &u.ValidationStatus, &u.FailureReason, &u.DiscoveredAt, &metaDataJSON)
	if err != nil {
		return nil, err
	}

	if scheduledFor.Valid {
		t := scheduledFor.Time
		u.ScheduledFor = &t
	}
	if len(metaDataJSON) > 0 {
		if err = json.Unmarshal(metaDataJSON, &u.MetaData); err != nil {
			return nil, err
		}
	}

	return &u, nil
}
