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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rankitohq/indexer/database/mocks"
	"github.com/rankitohq/indexer/model"
)

func TestGetLoadDistributionEven(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, _, _ := newTestIndexer(t, ds)

	accounts := []model.Account{
		{AccountID: "acc_1", Name: "primary", Health: model.HealthHealthy, Active: true, DailyCap: 200},
		{AccountID: "acc_2", Name: "secondary", Health: model.HealthHealthy, Active: true, DailyCap: 200},
	}
	ds.On("GetEligibleAccountsBySite", mock.Anything, "ste_1").Return(accounts, nil)
	ds.On("CountUsageForAccounts", mock.Anything, []string{"acc_1", "acc_2"}, mock.Anything).
		Return(map[string]int{"acc_1": 100, "acc_2": 100}, nil)

	distribution, err := idx.GetLoadDistribution(context.Background(), "ste_1")
	assert.NoError(t, err)
	assert.Equal(t, 200, distribution.TotalURLs)
	assert.InDelta(t, 1.0, distribution.BalanceScore, 0.001)
	assert.True(t, distribution.IsBalanced)
	assert.Len(t, distribution.Integrations, 2)
}

func TestGetLoadDistributionSkewed(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, _, _ := newTestIndexer(t, ds)

	accounts := []model.Account{
		{AccountID: "acc_1", Name: "primary", Health: model.HealthHealthy, Active: true, DailyCap: 200},
		{AccountID: "acc_2", Name: "secondary", Health: model.HealthHealthy, Active: true, DailyCap: 200},
	}
	ds.On("GetEligibleAccountsBySite", mock.Anything, "ste_1").Return(accounts, nil)
	ds.On("CountUsageForAccounts", mock.Anything, []string{"acc_1", "acc_2"}, mock.Anything).
		Return(map[string]int{"acc_1": 190, "acc_2": 10}, nil)

	// mean 100, population stddev 90, cv 0.9: score 1 - 0.9/1.5 = 0.4
	distribution, err := idx.GetLoadDistribution(context.Background(), "ste_1")
	assert.NoError(t, err)
	assert.InDelta(t, 0.4, distribution.BalanceScore, 0.001)
	assert.False(t, distribution.IsBalanced)
}

func TestGetLoadDistributionNoAccounts(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, _, _ := newTestIndexer(t, ds)

	ds.On("GetEligibleAccountsBySite", mock.Anything, "ste_1").Return([]model.Account{}, nil)

	distribution, err := idx.GetLoadDistribution(context.Background(), "ste_1")
	assert.NoError(t, err)
	assert.InDelta(t, 1.0, distribution.BalanceScore, 0.001)
	assert.True(t, distribution.IsBalanced)
	assert.Empty(t, distribution.Integrations)
}

func TestGetLoadDistributionZeroUsage(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, _, _ := newTestIndexer(t, ds)

	accounts := []model.Account{
		{AccountID: "acc_1", Health: model.HealthHealthy, Active: true, DailyCap: 200},
		{AccountID: "acc_2", Health: model.HealthHealthy, Active: true, DailyCap: 200},
	}
	ds.On("GetEligibleAccountsBySite", mock.Anything, "ste_1").Return(accounts, nil)
	ds.On("CountUsageForAccounts", mock.Anything, []string{"acc_1", "acc_2"}, mock.Anything).
		Return(map[string]int{}, nil)

	distribution, err := idx.GetLoadDistribution(context.Background(), "ste_1")
	assert.NoError(t, err)
	assert.Equal(t, 0, distribution.TotalURLs)
	assert.InDelta(t, 1.0, distribution.BalanceScore, 0.001)
	assert.True(t, distribution.IsBalanced)
}
