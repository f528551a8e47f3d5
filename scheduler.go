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
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/rankitohq/indexer/config"
	redlock "github.com/rankitohq/indexer/internal/lock"
	"github.com/rankitohq/indexer/internal/notification"
	"github.com/rankitohq/indexer/model"
)

var tracer = otel.Tracer("indexer.scheduler")

const schedulerLockDuration = 5 * time.Minute

const sitePageSize = 100

// SiteScheduleResult summarizes one scheduling pass over a single site.
type SiteScheduleResult struct {
	SiteID        string `json:"site_id"`
	URLsScheduled int    `json:"urls_scheduled"`
	GroupsCreated int    `json:"groups_created"`
	AccountsUsed  int    `json:"accounts_used"`
	Capacity      int    `json:"capacity"`
	SkippedReason string `json:"skipped_reason,omitempty"`
}

// RunScheduler walks every site, schedules each one's eligible backlog into
// time slots, and appends an execution log entry. The entry is written even
// when no site had anything to schedule, so the run trail has no gaps.
func (i *Indexer) RunScheduler(ctx context.Context) (*model.ExecutionLogEntry, error) {
	ctx, span := tracer.Start(ctx, "scheduler.run")
	defer span.End()

	start := time.Now()
	entry := &model.ExecutionLogEntry{RunAt: start}

	for offset := 0; ; offset += sitePageSize {
		sites, err := i.datasource.GetAllSites(ctx, sitePageSize, offset)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		for idx := range sites {
			result, err := i.ScheduleSite(ctx, sites[idx].SiteID)
			if err != nil {
				logrus.Errorf("scheduling site %s failed: %v", sites[idx].SiteID, err)
				notification.NotifyError(err)
				continue
			}
			if result.SkippedReason != "" {
				continue
			}
			entry.SitesProcessed++
			entry.URLsScheduled += result.URLsScheduled
			entry.TotalCapacity += result.Capacity
			entry.IntegrationsUsed += result.AccountsUsed
		}
		if len(sites) < sitePageSize {
			break
		}
	}

	entry.DurationMS = time.Since(start).Milliseconds()
	if err := i.datasource.RecordExecutionLog(ctx, entry); err != nil {
		span.RecordError(err)
		return nil, err
	}
	logrus.Infof("scheduler run: %d sites, %d URLs scheduled in %dms", entry.SitesProcessed, entry.URLsScheduled, entry.DurationMS)
	return entry, nil
}

// ScheduleSite partitions the site's eligible backlog into 30-minute slots
// over a rolling day and rotates assignment across the account pool. The
// pass is idempotent: only URLs with no slot yet can be claimed, and a
// per-site lock keeps concurrent passes from interleaving.
func (i *Indexer) ScheduleSite(ctx context.Context, siteID string) (*SiteScheduleResult, error) {
	ctx, span := tracer.Start(ctx, "scheduler.site")
	defer span.End()

	result := &SiteScheduleResult{SiteID: siteID}

	locker := redlock.NewLocker(i.redis, fmt.Sprintf("schedule:%s", siteID), model.GenerateUUIDWithSuffix("loc"))
	if err := locker.Lock(ctx, schedulerLockDuration); err != nil {
		result.SkippedReason = "another scheduling pass holds the site lock"
		return result, nil
	}
	defer func() {
		if err := locker.Unlock(ctx); err != nil {
			logrus.Warnf("failed to release schedule lock for %s: %v", siteID, err)
		}
	}()

	accounts, err := i.datasource.GetEligibleAccountsBySite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		logrus.Infof("site %s has no healthy active accounts, skipping", siteID)
		result.SkippedReason = "no healthy active accounts"
		return result, nil
	}

	quota, err := i.GetAggregatedQuota(ctx, siteID)
	if err != nil {
		return nil, err
	}
	result.Capacity = quota.Remaining
	if quota.Remaining == 0 {
		result.SkippedReason = "daily quota exhausted"
		return result, nil
	}

	backlog, err := i.datasource.GetSchedulableURLs(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if len(backlog) == 0 {
		result.SkippedReason = "no eligible URLs"
		return result, nil
	}
	if len(backlog) > quota.Remaining {
		backlog = backlog[:quota.Remaining]
	}

	plan := planSlots(backlog, accounts, time.Now())

	accountsUsed := map[string]struct{}{}
	for _, group := range plan {
		if err := i.datasource.CreateSubmissionGroup(ctx, group.group); err != nil {
			return nil, err
		}
		claimed := 0
		for _, urlID := range group.urlIDs {
			ok, err := i.datasource.AssignURLToSlot(ctx, urlID, group.group.GroupID, group.group.AccountID, group.group.ScheduledFor)
			if err != nil {
				return nil, err
			}
			if ok {
				claimed++
			}
		}
		if claimed == 0 {
			continue
		}
		if err := i.enqueuer.EnqueueGroup(ctx, group.group); err != nil {
			return nil, err
		}
		result.GroupsCreated++
		result.URLsScheduled += claimed
		accountsUsed[group.group.AccountID] = struct{}{}
	}
	result.AccountsUsed = len(accountsUsed)
	return result, nil
}

type plannedGroup struct {
	group  *model.SubmissionGroup
	urlIDs []string
}

// planSlots computes the slot and account for every URL in one pass. With N
// URLs and 48 slots, ceil(N/48) URLs share a slot; accounts rotate
// round-robin in backlog order so load spreads evenly from the first URL.
func planSlots(backlog []model.DiscoveredURL, accounts []model.Account, now time.Time) []*plannedGroup {
	slotCount, interval := slotSettings()

	urlsPerSlot := (len(backlog) + slotCount - 1) / slotCount
	if urlsPerSlot < 1 {
		urlsPerSlot = 1
	}

	groups := map[string]*plannedGroup{}
	order := []string{}
	for idx := range backlog {
		entry := backlog[idx]
		slotIndex := idx / urlsPerSlot
		scheduledFor := now.Add(time.Duration(slotIndex) * interval)
		account := accounts[idx%len(accounts)]

		key := fmt.Sprintf("%s|%d", account.AccountID, slotIndex)
		planned, ok := groups[key]
		if !ok {
			planned = &plannedGroup{
				group: &model.SubmissionGroup{
					GroupID:      model.GenerateUUIDWithSuffix("grp"),
					SiteID:       entry.SiteID,
					AccountID:    account.AccountID,
					ScheduledFor: scheduledFor,
					Status:       model.GroupPending,
				},
			}
			groups[key] = planned
			order = append(order, key)
		}
		planned.urlIDs = append(planned.urlIDs, entry.URLID)
		planned.group.URLCount++
		if entry.Priority > planned.group.Priority {
			planned.group.Priority = entry.Priority
		}
	}

	result := make([]*plannedGroup, 0, len(order))
	for _, key := range order {
		result = append(result, groups[key])
	}
	return result
}

func slotSettings() (int, time.Duration) {
	cnf, err := config.Fetch()
	if err != nil {
		return 48, 30 * time.Minute
	}
	return cnf.SlotCount(), cnf.SlotInterval()
}

// GetExecutionLogs returns recent scheduler runs, newest first.
func (i *Indexer) GetExecutionLogs(ctx context.Context, limit, offset int) ([]model.ExecutionLogEntry, error) {
	return i.datasource.GetExecutionLogs(ctx, limit, offset)
}

// CancelPendingSchedules reverts a site's not-yet-dispatched work: member
// URLs of pending groups go back to discovered and the groups are removed.
// Groups already claimed by the dispatcher are left alone.
func (i *Indexer) CancelPendingSchedules(ctx context.Context, siteID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "scheduler.cancel")
	defer span.End()

	reverted, err := i.datasource.RevertScheduledURLsBySite(ctx, siteID)
	if err != nil {
		return 0, err
	}
	if _, err := i.datasource.CancelPendingGroupsBySite(ctx, siteID); err != nil {
		return reverted, err
	}
	logrus.Infof("cancelled pending schedules for %s, %d URLs reverted", siteID, reverted)
	return reverted, nil
}

// ForceReschedule throws away the site's pending slot plan and builds a new
// one from the current backlog and account pool.
func (i *Indexer) ForceReschedule(ctx context.Context, siteID string) (*SiteScheduleResult, error) {
	if _, err := i.CancelPendingSchedules(ctx, siteID); err != nil {
		return nil, err
	}
	return i.ScheduleSite(ctx, siteID)
}
