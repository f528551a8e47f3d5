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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/rankitohq/indexer/model"
)

func TestRecordUsage_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	record := &model.UsageRecord{
		AccountID: "acc_1",
		URL:       "https://example.com/page",
		Outcome:   model.OutcomeCompleted,
		LatencyMS: 320,
	}

	mock.ExpectExec("INSERT INTO indexer.usage_records").
		WithArgs(sqlmock.AnyArg(), record.AccountID, record.URL, record.Outcome, sqlmock.AnyArg(), record.LatencyMS).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = ds.RecordUsage(context.Background(), record)
	assert.NoError(t, err)
	assert.NotEmpty(t, record.UsageID)
	assert.WithinDuration(t, time.Now(), record.SubmittedAt, time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUsageSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	since := model.StartOfUTCDay(time.Now())

	mock.ExpectQuery("SELECT COUNT(.+) FROM indexer.usage_records").
		WithArgs("acc_1", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := ds.CountUsageSince(context.Background(), "acc_1", since)
	assert.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestCountUsageForAccounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	since := model.StartOfUTCDay(time.Now())

	rows := sqlmock.NewRows([]string{"account_id", "count"}).
		AddRow("acc_1", 120).
		AddRow("acc_2", 80)

	mock.ExpectQuery("SELECT account_id, COUNT(.+) FROM indexer.usage_records").
		WithArgs(sqlmock.AnyArg(), since).
		WillReturnRows(rows)

	counts, err := ds.CountUsageForAccounts(context.Background(), []string{"acc_1", "acc_2", "acc_3"}, since)
	assert.NoError(t, err)
	assert.Equal(t, 120, counts["acc_1"])
	assert.Equal(t, 80, counts["acc_2"])
	// accounts without usage today are simply absent
	_, ok := counts["acc_3"]
	assert.False(t, ok)
}

func TestCountUsageForAccounts_Empty(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	counts, err := ds.CountUsageForAccounts(context.Background(), nil, time.Now())
	assert.NoError(t, err)
	assert.Empty(t, counts)
}

func TestGetUsageBySite(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	now := time.Now()

	rows := sqlmock.NewRows([]string{"usage_id", "account_id", "url", "outcome", "submitted_at", "latency_ms"}).
		AddRow("usg_2", "acc_1", "https://example.com/b", "completed", now, int64(210)).
		AddRow("usg_1", "acc_2", "https://example.com/a", "failed", now.Add(-time.Minute), int64(540))

	mock.ExpectQuery("SELECT (.+) FROM indexer.usage_records u JOIN indexer.accounts a").
		WithArgs("ste_123", 50, 0).
		WillReturnRows(rows)

	records, err := ds.GetUsageBySite(context.Background(), "ste_123", 50, 0)
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "usg_2", records[0].UsageID)
	assert.Equal(t, model.OutcomeFailed, records[1].Outcome)
}

func TestRecordExecutionLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	entry := &model.ExecutionLogEntry{
		SitesProcessed:   3,
		URLsScheduled:    96,
		TotalCapacity:    400,
		IntegrationsUsed: 2,
		DurationMS:       830,
	}

	mock.ExpectExec("INSERT INTO indexer.execution_log").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), entry.SitesProcessed, entry.URLsScheduled, entry.TotalCapacity, entry.IntegrationsUsed, entry.DurationMS).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = ds.RecordExecutionLog(context.Background(), entry)
	assert.NoError(t, err)
	assert.NotEmpty(t, entry.EntryID)
}

func TestGetExecutionLogs(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	now := time.Now()

	rows := sqlmock.NewRows([]string{"entry_id", "run_at", "sites_processed", "urls_scheduled", "total_capacity", "integrations_used", "duration_ms"}).
		AddRow("run_2", now, 3, 96, 400, 2, int64(830)).
		AddRow("run_1", now.Add(-30*time.Minute), 3, 0, 400, 0, int64(120))

	mock.ExpectQuery("SELECT (.+) FROM indexer.execution_log").
		WithArgs(20, 0).
		WillReturnRows(rows)

	entries, err := ds.GetExecutionLogs(context.Background(), 20, 0)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "run_2", entries[0].EntryID)
	assert.Equal(t, 96, entries[0].URLsScheduled)
}
