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
	"time"

	"github.com/lib/pq"

	"github.com/rankitohq/indexer/internal/apierror"
	"github.com/rankitohq/indexer/model"
)

func (d Datasource) CreateSubmissionGroup(ctx context.Context, group *model.SubmissionGroup) error {
	if group.GroupID == "" {
		group.GroupID = model.GenerateUUIDWithSuffix("grp")
	}
	group.Status = model.GroupPending
	group.CreatedAt = time.Now()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO indexer.submission_groups (group_id, site_id, account_id, scheduled_for, status, priority, url_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, group.GroupID, group.SiteID, group.AccountID, group.ScheduledFor, group.Status, group.Priority, group.URLCount, group.CreatedAt)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return apierror.NewAPIError(apierror.ErrConflict, "Submission group already exists", err)
			case "foreign_key_violation":
				return apierror.NewAPIError(apierror.ErrBadRequest, "Site or account does not exist", err)
			default:
				return apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create submission group", err)
	}

	return nil
}

func (d Datasource) GetSubmissionGroup(ctx context.Context, id string) (*model.SubmissionGroup, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT group_id, site_id, account_id, scheduled_for, status, priority, url_count, created_at, completed_at
		FROM indexer.submission_groups
		WHERE group_id = $1
	`, id)

	group, err := scanSubmissionGroup(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Submission group not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve submission group", err)
	}
	return group, nil
}

// ClaimSubmissionGroup moves a group from pending to processing. The status
// guard means exactly one dispatcher claims a group even when the scheduled
// task fires more than once.
func (d Datasource) ClaimSubmissionGroup(ctx context.Context, id string) (bool, error) {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE indexer.submission_groups
		SET status = 'processing'
		WHERE group_id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to claim submission group", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to claim submission group", err)
	}
	return affected > 0, nil
}

func (d Datasource) UpdateSubmissionGroupStatus(ctx context.Context, id, status string) error {
	query := `UPDATE indexer.submission_groups SET status = $2 WHERE group_id = $1`
	if status == model.GroupCompleted || status == model.GroupFailed {
		query = `UPDATE indexer.submission_groups SET status = $2, completed_at = NOW() WHERE group_id = $1`
	}

	result, err := d.Conn.ExecContext(ctx, query, id, status)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update submission group status", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update submission group status", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Submission group not found", nil)
	}

	return nil
}

// GetPendingGroupsOlderThan finds groups whose slot has passed without a
// dispatch. The recovery sweep re-enqueues these after restarts.
func (d Datasource) GetPendingGroupsOlderThan(ctx context.Context, cutoff time.Time) ([]model.SubmissionGroup, error) {
	return d.querySubmissionGroups(ctx, `
		SELECT group_id, site_id, account_id, scheduled_for, status, priority, url_count, created_at, completed_at
		FROM indexer.submission_groups
		WHERE status = 'pending' AND scheduled_for < $1
		ORDER BY scheduled_for ASC
	`, cutoff)
}

func (d Datasource) GetGroupsBySite(ctx context.Context, siteID string, limit, offset int) ([]model.SubmissionGroup, error) {
	return d.querySubmissionGroups(ctx, `
		SELECT group_id, site_id, account_id, scheduled_for, status, priority, url_count, created_at, completed_at
		FROM indexer.submission_groups
		WHERE site_id = $1
		ORDER BY scheduled_for DESC
		LIMIT $2 OFFSET $3
	`, siteID, limit, offset)
}

// CancelPendingGroupsBySite removes a site's undispatched groups. Callers
// must revert the member URLs first so they re-enter the backlog.
func (d Datasource) CancelPendingGroupsBySite(ctx context.Context, siteID string) (int64, error) {
	result, err := d.Conn.ExecContext(ctx, `
		DELETE FROM indexer.submission_groups
		WHERE site_id = $1 AND status = 'pending'
	`, siteID)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to cancel pending groups", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to cancel pending groups", err)
	}
	return affected, nil
}

func (d Datasource) querySubmissionGroups(ctx context.Context, query string, args ...interface{}) ([]model.SubmissionGroup, error) {
	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve submission groups", err)
	}
	defer rows.Close()

	groups := []model.SubmissionGroup{}
	for rows.Next() {
		group, err := scanSubmissionGroup(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan submission group", err)
		}
		groups = append(groups, *group)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over submission groups", err)
	}

	return groups, nil
}

func scanSubmissionGroup(row rowScanner) (*model.SubmissionGroup, error) {
	group := model.SubmissionGroup{}
	var completedAt sql.NullTime

	err := row.Scan(&group.GroupID, &group.SiteID, &group.AccountID, &group.ScheduledFor, &group.Status, &group.Priority, &group.URLCount, &group.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		t := completedAt.Time
		group.CompletedAt = &t
	}

	return &group, nil
}
