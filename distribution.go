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
	"time"

	"github.com/rankitohq/indexer/model"
)

// GetLoadDistribution reports how evenly today's submissions are spread
// across a site's account pool. Diagnostic only; slot assignment stays
// round-robin regardless of the score.
func (i *Indexer) GetLoadDistribution(ctx context.Context, siteID string) (*model.LoadDistribution, error) {
	accounts, err := i.datasource.GetEligibleAccountsBySite(ctx, siteID)
	if err != nil {
		return nil, err
	}

	distribution := &model.LoadDistribution{SiteID: siteID, Integrations: []model.IntegrationLoad{}}
	if len(accounts) == 0 {
		distribution.BalanceScore = 1
		distribution.IsBalanced = true
		return distribution, nil
	}

	accountIDs := make([]string, 0, len(accounts))
	for _, account := range accounts {
		accountIDs = append(accountIDs, account.AccountID)
	}
	usage, err := i.datasource.CountUsageForAccounts(ctx, accountIDs, model.StartOfUTCDay(time.Now()))
	if err != nil {
		return nil, err
	}

	usedCounts := make([]int, 0, len(accounts))
	for idx := range accounts {
		account := accounts[idx]
		used := usage[account.AccountID]
		remaining := account.Cap() - used
		if remaining < 0 {
			remaining = 0
		}
		distribution.TotalURLs += used
		usedCounts = append(usedCounts, used)
		distribution.Integrations = append(distribution.Integrations, model.IntegrationLoad{
			AccountID: account.AccountID,
			Name:      account.Name,
			Health:    account.Health,
			UsedToday: used,
			Remaining: remaining,
		})
	}

	distribution.BalanceScore, distribution.IsBalanced = model.BalanceScore(usedCounts)
	return distribution, nil
}
