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
package mocks

import (
	"context"
	"time"

	"github.com/rankitohq/indexer/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Site methods

func (m *MockDataSource) CreateSite(site model.Site) (model.Site, error) {
	args := m.Called(site)
	return args.Get(0).(model.Site), args.Error(1)
}

func (m *MockDataSource) GetSiteByID(ctx context.Context, id string) (*model.Site, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Site), args.Error(1)
}

func (m *MockDataSource) GetAllSites(ctx context.Context, limit, offset int) ([]model.Site, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Site), args.Error(1)
}

func (m *MockDataSource) DeleteSite(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Account methods

func (m *MockDataSource) CreateAccount(account model.Account) (model.Account, error) {
	args := m.Called(account)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *MockDataSource) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockDataSource) GetAccountsBySite(ctx context.Context, siteID string) ([]model.Account, error) {
	args := m.Called(ctx, siteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Account), args.Error(1)
}

func (m *MockDataSource) GetEligibleAccountsBySite(ctx context.Context, siteID string) ([]model.Account, error) {
	args := m.Called(ctx, siteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Account), args.Error(1)
}

func (m *MockDataSource) UpdateAccount(account *model.Account) error {
	args := m.Called(account)
	return args.Error(0)
}

func (m *MockDataSource) UpdateAccountHealth(ctx context.Context, id string, health string) error {
	args := m.Called(ctx, id, health)
	return args.Error(0)
}

func (m *MockDataSource) DeleteAccount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Discovered URL methods

func (m *MockDataSource) CreateDiscoveredURLs(ctx context.Context, urls []*model.DiscoveredURL) (int, error) {
	args := m.Called(ctx, urls)
	return args.Int(0), args.Error(1)
}

func (m *MockDataSource) GetDiscoveredURL(ctx context.Context, id string) (*model.DiscoveredURL, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DiscoveredURL), args.Error(1)
}

func (m *MockDataSource) GetURLsBySite(ctx context.Context, siteID, status string, limit, offset int) ([]model.DiscoveredURL, error) {
	args := m.Called(ctx, siteID, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DiscoveredURL), args.Error(1)
}

func (m *MockDataSource) GetSchedulableURLs(ctx context.Context, siteID string) ([]model.DiscoveredURL, error) {
	args := m.Called(ctx, siteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DiscoveredURL), args.Error(1)
}

func (m *MockDataSource) GetURLsByGroup(ctx context.Context, groupID string) ([]model.DiscoveredURL, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DiscoveredURL), args.Error(1)
}

func (m *MockDataSource) AssignURLToSlot(ctx context.Context, urlID, groupID, accountID string, scheduledFor time.Time) (bool, error) {
	args := m.Called(ctx, urlID, groupID, accountID, scheduledFor)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) UpdateURLValidation(ctx context.Context, urlID, validationStatus, failureReason string) error {
	args := m.Called(ctx, urlID, validationStatus, failureReason)
	return args.Error(0)
}

func (m *MockDataSource) UpdateURLStatus(ctx context.Context, urlID, status, failureReason string) error {
	args := m.Called(ctx, urlID, status, failureReason)
	return args.Error(0)
}

func (m *MockDataSource) RevertURLs(ctx context.Context, urlIDs []string) error {
	args := m.Called(ctx, urlIDs)
	return args.Error(0)
}

func (m *MockDataSource) RevertScheduledURLsBySite(ctx context.Context, siteID string) (int64, error) {
	args := m.Called(ctx, siteID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) CountURLsBySiteAndStatus(ctx context.Context, siteID string) (map[string]int, error) {
	args := m.Called(ctx, siteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

// Submission group methods

func (m *MockDataSource) CreateSubmissionGroup(ctx context.Context, group *model.SubmissionGroup) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockDataSource) GetSubmissionGroup(ctx context.Context, id string) (*model.SubmissionGroup, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SubmissionGroup), args.Error(1)
}

func (m *MockDataSource) ClaimSubmissionGroup(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) UpdateSubmissionGroupStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockDataSource) GetPendingGroupsOlderThan(ctx context.Context, cutoff time.Time) ([]model.SubmissionGroup, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SubmissionGroup), args.Error(1)
}

func (m *MockDataSource) GetGroupsBySite(ctx context.Context, siteID string, limit, offset int) ([]model.SubmissionGroup, error) {
	args := m.Called(ctx, siteID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SubmissionGroup), args.Error(1)
}

func (m *MockDataSource) CancelPendingGroupsBySite(ctx context.Context, siteID string) (int64, error) {
	args := m.Called(ctx, siteID)
	return args.Get(0).(int64), args.Error(1)
}

// Usage methods

func (m *MockDataSource) RecordUsage(ctx context.Context, record *model.UsageRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockDataSource) CountUsageSince(ctx context.Context, accountID string, since time.Time) (int, error) {
	args := m.Called(ctx, accountID, since)
	return args.Int(0), args.Error(1)
}

func (m *MockDataSource) HasUsageForURLSince(ctx context.Context, accountID, url string, since time.Time) (bool, error) {
	args := m.Called(ctx, accountID, url, since)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) CountUsageForAccounts(ctx context.Context, accountIDs []string, since time.Time) (map[string]int, error) {
	args := m.Called(ctx, accountIDs, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockDataSource) GetUsageBySite(ctx context.Context, siteID string, limit, offset int) ([]model.UsageRecord, error) {
	args := m.Called(ctx, siteID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UsageRecord), args.Error(1)
}

// Execution log methods

func (m *MockDataSource) RecordExecutionLog(ctx context.Context, entry *model.ExecutionLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockDataSource) GetExecutionLogs(ctx context.Context, limit, offset int) ([]model.ExecutionLogEntry, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ExecutionLogEntry), args.Error(1)
}
