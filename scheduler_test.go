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

package indexer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rankitohq/indexer/database/mocks"
	"github.com/rankitohq/indexer/model"
)

func testAccounts(n int) []model.Account {
	accounts := make([]model.Account, 0, n)
	for idx := 0; idx < n; idx++ {
		accounts = append(accounts, model.Account{
			AccountID: fmt.Sprintf("acc_%d", idx+1),
			SiteID:    "ste_1",
			Health:    model.HealthHealthy,
			Active:    true,
			DailyCap:  200,
		})
	}
	return accounts
}

func testBacklog(n int) []model.DiscoveredURL {
	backlog := make([]model.DiscoveredURL, 0, n)
	for idx := 0; idx < n; idx++ {
		backlog = append(backlog, model.DiscoveredURL{
			URLID:        fmt.Sprintf("url_%d", idx+1),
			SiteID:       "ste_1",
			URL:          fmt.Sprintf("https://example.com/page-%d", idx+1),
			Status:       model.StatusDiscovered,
			AutoSchedule: true,
		})
	}
	return backlog
}

func TestPlanSlotsFullDay(t *testing.T) {
	ds := new(mocks.MockDataSource)
	newTestIndexer(t, ds)

	now := time.Now()
	plan := planSlots(testBacklog(96), testAccounts(2), now)

	// 96 URLs over 48 slots: two per slot, one per account, so every group
	// holds exactly one URL.
	assert.Len(t, plan, 96)

	total := 0
	for _, group := range plan {
		total += group.group.URLCount
		assert.Len(t, group.urlIDs, group.group.URLCount)
		assert.NotEmpty(t, group.group.GroupID)
		assert.Equal(t, model.GroupPending, group.group.Status)
	}
	assert.Equal(t, 96, total)

	// First slot is immediate, second account shares it, last slot sits at
	// the end of the rolling day.
	assert.Equal(t, "acc_1", plan[0].group.AccountID)
	assert.Equal(t, now, plan[0].group.ScheduledFor)
	assert.Equal(t, "acc_2", plan[1].group.AccountID)
	assert.Equal(t, now, plan[1].group.ScheduledFor)
	last := plan[len(plan)-1].group
	assert.Equal(t, now.Add(47*30*time.Minute), last.ScheduledFor)
}

func TestPlanSlotsSmallBacklog(t *testing.T) {
	ds := new(mocks.MockDataSource)
	newTestIndexer(t, ds)

	now := time.Now()
	plan := planSlots(testBacklog(10), testAccounts(1), now)

	// Fewer URLs than slots: one URL per slot, spread from now onwards.
	assert.Len(t, plan, 10)
	for idx, group := range plan {
		assert.Equal(t, "acc_1", group.group.AccountID)
		assert.Equal(t, now.Add(time.Duration(idx)*30*time.Minute), group.group.ScheduledFor)
	}
}

func TestPlanSlotsOverfullBacklog(t *testing.T) {
	ds := new(mocks.MockDataSource)
	newTestIndexer(t, ds)

	plan := planSlots(testBacklog(100), testAccounts(1), time.Now())

	// ceil(100/48) = 3 URLs per slot, so 34 slots are used.
	assert.Len(t, plan, 34)
	assert.Equal(t, 3, plan[0].group.URLCount)
}

func TestPlanSlotsGroupPriority(t *testing.T) {
	ds := new(mocks.MockDataSource)
	newTestIndexer(t, ds)

	backlog := testBacklog(2)
	backlog[0].Priority = 9
	backlog[1].Priority = 3

	plan := planSlots(backlog, testAccounts(1), time.Now())
	assert.Len(t, plan, 2)
	assert.Equal(t, 9, plan[0].group.Priority)
	assert.Equal(t, 3, plan[1].group.Priority)
}

func TestScheduleSite(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, enqueuer, _ := newTestIndexer(t, ds)

	ds.On("GetEligibleAccountsBySite", mock.Anything, "ste_1").Return(testAccounts(2), nil)
	ds.On("CountUsageForAccounts", mock.Anything, []string{"acc_1", "acc_2"}, mock.Anything).
		Return(map[string]int{}, nil)
	ds.On("GetSchedulableURLs", mock.Anything, "ste_1").Return(testBacklog(4), nil)
	ds.On("CreateSubmissionGroup", mock.Anything, mock.Anything).Return(nil)
	ds.On("AssignURLToSlot", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

	result, err := idx.ScheduleSite(context.Background(), "ste_1")
	assert.NoError(t, err)
	assert.Empty(t, result.SkippedReason)
	assert.Equal(t, 4, result.URLsScheduled)
	assert.Equal(t, 4, result.GroupsCreated)
	assert.Equal(t, 2, result.AccountsUsed)
	assert.Len(t, enqueuer.delayed, 4)
	ds.AssertExpectations(t)
}

func TestScheduleSiteNoAccounts(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, enqueuer, _ := newTestIndexer(t, ds)

	ds.On("GetEligibleAccountsBySite", mock.Anything, "ste_1").Return([]model.Account{}, nil)

	result, err := idx.ScheduleSite(context.Background(), "ste_1")
	assert.NoError(t, err)
	assert.Equal(t, "no healthy active accounts", result.SkippedReason)
	assert.Empty(t, enqueuer.delayed)
}

func TestScheduleSiteCapacityLimited(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, enqueuer, _ := newTestIndexer(t, ds)

	ds.On("GetEligibleAccountsBySite", mock.Anything, "ste_1").Return(testAccounts(1), nil)
	ds.On("CountUsageForAccounts", mock.Anything, []string{"acc_1"}, mock.Anything).
		Return(map[string]int{"acc_1": 198}, nil)
	ds.On("GetSchedulableURLs", mock.Anything, "ste_1").Return(testBacklog(5), nil)
	ds.On("CreateSubmissionGroup", mock.Anything, mock.Anything).Return(nil)
	ds.On("AssignURLToSlot", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

	// Only 2 submissions remain in today's pooled quota.
	result, err := idx.ScheduleSite(context.Background(), "ste_1")
	assert.NoError(t, err)
	assert.Equal(t, 2, result.URLsScheduled)
	assert.Len(t, enqueuer.delayed, 2)
}

func TestScheduleSiteQuotaExhausted(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, _, _ := newTestIndexer(t, ds)

	ds.On("GetEligibleAccountsBySite", mock.Anything, "ste_1").Return(testAccounts(1), nil)
	ds.On("CountUsageForAccounts", mock.Anything, []string{"acc_1"}, mock.Anything).
		Return(map[string]int{"acc_1": 200}, nil)

	result, err := idx.ScheduleSite(context.Background(), "ste_1")
	assert.NoError(t, err)
	assert.Equal(t, "daily quota exhausted", result.SkippedReason)
}

func TestScheduleSiteAlreadyClaimedURLs(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, enqueuer, _ := newTestIndexer(t, ds)

	ds.On("GetEligibleAccountsBySite", mock.Anything, "ste_1").Return(testAccounts(1), nil)
	ds.On("CountUsageForAccounts", mock.Anything, []string{"acc_1"}, mock.Anything).
		Return(map[string]int{}, nil)
	ds.On("GetSchedulableURLs", mock.Anything, "ste_1").Return(testBacklog(1), nil)
	ds.On("CreateSubmissionGroup", mock.Anything, mock.Anything).Return(nil)
	ds.On("AssignURLToSlot", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	// Another pass claimed the URL first: nothing to enqueue, no error.
	result, err := idx.ScheduleSite(context.Background(), "ste_1")
	assert.NoError(t, err)
	assert.Zero(t, result.URLsScheduled)
	assert.Zero(t, result.GroupsCreated)
	assert.Empty(t, enqueuer.delayed)
}

func TestRunSchedulerRecordsExecutionLog(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, _, _ := newTestIndexer(t, ds)

	ds.On("GetAllSites", mock.Anything, sitePageSize, 0).Return([]model.Site{{SiteID: "ste_1", Domain: "example.com"}}, nil)
	ds.On("GetEligibleAccountsBySite", mock.Anything, "ste_1").Return(testAccounts(2), nil)
	ds.On("CountUsageForAccounts", mock.Anything, []string{"acc_1", "acc_2"}, mock.Anything).
		Return(map[string]int{}, nil)
	ds.On("GetSchedulableURLs", mock.Anything, "ste_1").Return(testBacklog(2), nil)
	ds.On("CreateSubmissionGroup", mock.Anything, mock.Anything).Return(nil)
	ds.On("AssignURLToSlot", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	ds.On("RecordExecutionLog", mock.Anything, mock.MatchedBy(func(entry *model.ExecutionLogEntry) bool {
		return entry.SitesProcessed == 1 && entry.URLsScheduled == 2 && entry.IntegrationsUsed == 2
	})).Return(nil)

	entry, err := idx.RunScheduler(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, entry.SitesProcessed)
	assert.Equal(t, 2, entry.URLsScheduled)
	ds.AssertExpectations(t)
}

func TestRunSchedulerNothingEligible(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, _, _ := newTestIndexer(t, ds)

	ds.On("GetAllSites", mock.Anything, sitePageSize, 0).Return([]model.Site{}, nil)
	ds.On("RecordExecutionLog", mock.Anything, mock.MatchedBy(func(entry *model.ExecutionLogEntry) bool {
		return entry.SitesProcessed == 0 && entry.URLsScheduled == 0
	})).Return(nil)

	// The run trail has an entry even when there was nothing to do.
	entry, err := idx.RunScheduler(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, entry.URLsScheduled)
	ds.AssertExpectations(t)
}

func TestCancelPendingSchedules(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, _, _ := newTestIndexer(t, ds)

	ds.On("RevertScheduledURLsBySite", mock.Anything, "ste_1").Return(int64(3), nil)
	ds.On("CancelPendingGroupsBySite", mock.Anything, "ste_1").Return(int64(2), nil)

	reverted, err := idx.CancelPendingSchedules(context.Background(), "ste_1")
	assert.NoError(t, err)
	assert.Equal(t, int64(3), reverted)
	ds.AssertExpectations(t)
}

func TestForceReschedule(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, _, _ := newTestIndexer(t, ds)

	ds.On("RevertScheduledURLsBySite", mock.Anything, "ste_1").Return(int64(2), nil)
	ds.On("CancelPendingGroupsBySite", mock.Anything, "ste_1").Return(int64(1), nil)
	ds.On("GetEligibleAccountsBySite", mock.Anything, "ste_1").Return(testAccounts(1), nil)
	ds.On("CountUsageForAccounts", mock.Anything, []string{"acc_1"}, mock.Anything).
		Return(map[string]int{}, nil)
	ds.On("GetSchedulableURLs", mock.Anything, "ste_1").Return(testBacklog(2), nil)
	ds.On("CreateSubmissionGroup", mock.Anything, mock.Anything).Return(nil)
	ds.On("AssignURLToSlot", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

	result, err := idx.ForceReschedule(context.Background(), "ste_1")
	assert.NoError(t, err)
	assert.Equal(t, 2, result.URLsScheduled)
	ds.AssertExpectations(t)
}
