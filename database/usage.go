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

	"github.com/lib/pq"

	"github.com/rankitohq/indexer/internal/apierror"
	"github.com/rankitohq/indexer/model"
)

// RecordUsage appends one usage row. The table is append-only; quota counts
// are always derived by querying it against the UTC day boundary.
func (d Datasource) RecordUsage(ctx context.Context, record *model.UsageRecord) error {
	if record.UsageID == "" {
		record.UsageID = model.GenerateUUIDWithSuffix("usg")
	}
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = time.Now()
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO indexer.usage_records (usage_id, account_id, url, outcome, submitted_at, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, record.UsageID, record.AccountID, record.URL, record.Outcome, record.SubmittedAt, record.LatencyMS)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code.Name() == "foreign_key_violation" {
			return apierror.NewAPIError(apierror.ErrBadRequest, "Account does not exist", err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record usage", err)
	}

	return nil
}

func (d Datasource) CountUsageSince(ctx context.Context, accountID string, since time.Time) (int, error) {
	var count int
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM indexer.usage_records
		WHERE account_id = $1 AND submitted_at >= $2
	`, accountID, since).Scan(&count)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count usage", err)
	}
	return count, nil
}

// HasUsageForURLSince reports whether the account already has an attempt for
// the URL after the cutoff. The dispatcher uses it to keep redelivered tasks
// from double-charging quota.
func (d Datasource) HasUsageForURLSince(ctx context.Context, accountID, url string, since time.Time) (bool, error) {
	var exists bool
	err := d.Conn.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM indexer.usage_records
			WHERE account_id = $1 AND url = $2 AND submitted_at >= $3
		)
	`, accountID, url, since).Scan(&exists)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check usage", err)
	}
	return exists, nil
}

// CountUsageForAccounts counts submissions per account in one query.
// Accounts with no rows since the cutoff are simply absent from the map.
func (d Datasource) CountUsageForAccounts(ctx context.Context, accountIDs []string, since time.Time) (map[string]int, error) {
	counts := map[string]int{}
	if len(accountIDs) == 0 {
		return counts, nil
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT account_id, COUNT(*)
		FROM indexer.usage_records
		WHERE account_id = ANY($1) AND submitted_at >= $2
		GROUP BY account_id
	`, pq.Array(accountIDs), since)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count usage", err)
	}
	defer rows.Close()

	for rows.Next() {
		var accountID string
		var count int
		if err = rows.Scan(&accountID, &count); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan usage counts", err)
		}
		counts[accountID] = count
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over usage counts", err)
	}

	return counts, nil
}

func (d Datasource) GetUsageBySite(ctx context.Context, siteID string, limit, offset int) ([]model.UsageRecord, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT u.usage_id, u.account_id, u.url, u.outcome, u.submitted_at, u.latency_ms
		FROM indexer.usage_records u
		JOIN indexer.accounts a ON a.account_id = u.account_id
		WHERE a.site_id = $1
		ORDER BY u.submitted_at DESC
		LIMIT $2 OFFSET $3
	`, siteID, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve usage records", err)
	}
	defer rows.Close()

	records := []model.UsageRecord{}
	for rows.Next() {
		record := model.UsageRecord{}
		err = rows.Scan(&record.UsageID, &record.AccountID, &record.URL, &record.Outcome, &record.SubmittedAt, &record.LatencyMS)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan usage record", err)
		}
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over usage records", err)
	}

	return records, nil
}
