package database

import (
	"context"
	"time"

	"github.com/rankitohq/indexer/internal/apierror"
	"github.com/rankitohq/indexer/model"
)

func (d Datasource) RecordExecutionLog(ctx context.Context, entry *model.ExecutionLogEntry) error {
	if entry.EntryID == "" {
		entry.EntryID = model.GenerateUUIDWithSuffix("run")
	}
	if entry.RunAt.IsZero() {
		entry.RunAt = time.Now()
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO indexer.execution_log (entry_id, run_at, sites_processed, urls_scheduled, total_capacity, integrations_used, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.EntryID, entry.RunAt, entry.SitesProcessed, entry.URLsScheduled, entry.TotalCapacity, entry.IntegrationsUsed, entry.DurationMS)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record execution log", err)
	}

	return nil
}

func (d Datasource) GetExecutionLogs(ctx context.Context, limit, offset int) ([]model.ExecutionLogEntry, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT entry_id, run_at, sites_processed, urls_scheduled, total_capacity, integrations_used, duration_ms
		FROM indexer.execution_log
		ORDER BY run_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve execution logs", err)
	}
	defer rows.Close()

	entries := []model.ExecutionLogEntry{}
	for rows.Next() {
		entry := model.ExecutionLogEntry{}
		err = rows.Scan(&entry.EntryID, &entry.RunAt, &entry.SitesProcessed, &entry.URLsScheduled, &entry.TotalCapacity, &entry.IntegrationsUsed, &entry.DurationMS)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan execution log entry", err)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over execution logs", err)
	}

	return entries, nil
}
