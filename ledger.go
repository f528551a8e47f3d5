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

	"github.com/rankitohq/indexer/model"
)

// Aggregated quota snapshots are cached briefly. Account health can flip
// between calls, so the TTL stays short enough that dashboards never read a
// stale pool for long.
const aggregatedQuotaTTL = 10 * time.Second

func aggregatedQuotaCacheKey(siteID string) string {
	return fmt.Sprintf("quota:aggregated:%s", siteID)
}

// GetUsedToday counts submission attempts recorded for an account since UTC
// midnight. Usage is always derived from the usage table; there is no
// maintained counter to drift.
func (i *Indexer) GetUsedToday(ctx context.Context, accountID string) (int, error) {
	return i.datasource.CountUsageSince(ctx, accountID, model.StartOfUTCDay(time.Now()))
}

// GetRemaining returns the account's remaining quota for the current UTC day,
// floored at zero.
func (i *Indexer) GetRemaining(ctx context.Context, account *model.Account) (int, error) {
	used, err := i.GetUsedToday(ctx, account.AccountID)
	if err != nil {
		return 0, err
	}
	remaining := account.Cap() - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// HasAttemptToday reports whether the account already has a usage record for
// the URL in the current UTC day. Callers use it to avoid double-charging
// quota when a task is redelivered.
func (i *Indexer) HasAttemptToday(ctx context.Context, accountID, pageURL string) (bool, error) {
	return i.datasource.HasUsageForURLSince(ctx, accountID, pageURL, model.StartOfUTCDay(time.Now()))
}

// RecordAttempt appends a usage record for a submission attempt. Every
// attempt that reached the provider counts against quota, whatever its
// outcome.
func (i *Indexer) RecordAttempt(ctx context.Context, accountID, pageURL, outcome string, latency time.Duration) error {
	record := &model.UsageRecord{
		AccountID:   accountID,
		URL:         pageURL,
		Outcome:     outcome,
		SubmittedAt: time.Now(),
		LatencyMS:   latency.Milliseconds(),
	}
	if err := i.datasource.RecordUsage(ctx, record); err != nil {
		return err
	}
	// The site's cached aggregate is now stale; drop it rather than wait out
	// the TTL.
	if i.cache != nil {
		account, err := i.datasource.GetAccountByID(ctx, accountID)
		if err == nil {
			_ = i.cache.Delete(ctx, aggregatedQuotaCacheKey(account.SiteID))
		}
	}
	return nil
}

// GetUsageBySite returns a site's submission history, newest first.
func (i *Indexer) GetUsageBySite(ctx context.Context, siteID string, limit, offset int) ([]model.UsageRecord, error) {
	return i.datasource.GetUsageBySite(ctx, siteID, limit, offset)
}

// GetAggregatedQuota sums today's usage across the site's eligible accounts.
// The pooled limit is the sum of the accounts' daily caps; the breakdown
// carries per-account numbers for dashboards.
func (i *Indexer) GetAggregatedQuota(ctx context.Context, siteID string) (*model.AggregatedQuota, error) {
	var cached model.AggregatedQuota
	if i.cache != nil {
		if err := i.cache.Get(ctx, aggregatedQuotaCacheKey(siteID), &cached); err == nil && cached.SiteID == siteID {
			return &cached, nil
		}
	}

	accounts, err := i.datasource.GetEligibleAccountsBySite(ctx, siteID)
	if err != nil {
		return nil, err
	}

	quota := &model.AggregatedQuota{SiteID: siteID, Breakdown: []model.AccountQuota{}}
	if len(accounts) == 0 {
		return quota, nil
	}

	accountIDs := make([]string, 0, len(accounts))
	for _, account := range accounts {
		accountIDs = append(accountIDs, account.AccountID)
	}
	usage, err := i.datasource.CountUsageForAccounts(ctx, accountIDs, model.StartOfUTCDay(time.Now()))
	if err != nil {
		return nil, err
	}

	for idx := range accounts {
		account := accounts[idx]
		used := usage[account.AccountID]
		remaining := account.Cap() - used
		if remaining < 0 {
			remaining = 0
		}
		quota.Used += used
		quota.Limit += account.Cap()
		quota.Breakdown = append(quota.Breakdown, model.AccountQuota{
			AccountID: account.AccountID,
			Name:      account.Name,
			Health:    account.Health,
			Used:      used,
			Limit:     account.Cap(),
			Remaining: remaining,
		})
	}
	quota.Remaining = quota.Limit - quota.Used
	if quota.Remaining < 0 {
		quota.Remaining = 0
	}
	if quota.Limit > 0 {
		quota.Percentage = float64(quota.Used) / float64(quota.Limit) * 100
	}

	if i.cache != nil {
		_ = i.cache.Set(ctx, aggregatedQuotaCacheKey(siteID), quota, aggregatedQuotaTTL)
	}
	return quota, nil
}
