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

package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	model2 "github.com/rankitohq/indexer/api/model"
	"github.com/rankitohq/indexer/internal/apierror"
	"github.com/rankitohq/indexer/internal/request"
	"github.com/rankitohq/indexer/model"
)

func TestRunSchedulerEndpoint(t *testing.T) {
	router, ds := setupRouter(t)
	ds.On("GetAllSites", mock.Anything, mock.Anything, mock.Anything).Return([]model.Site{}, nil)
	ds.On("RecordExecutionLog", mock.Anything, mock.Anything).Return(nil)

	var response model.ExecutionLogEntry
	resp, err := SetUpTestRequest(TestRequest{
		Method:   "POST",
		Route:    "/schedule",
		Response: &response,
		Router:   router,
	})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 0, response.SitesProcessed)
	ds.AssertCalled(t, "RecordExecutionLog", mock.Anything, mock.Anything)
}

func TestScheduleSiteEndpointNoBacklog(t *testing.T) {
	router, ds := setupRouter(t)
	ds.On("GetEligibleAccountsBySite", mock.Anything, "ste_1").Return([]model.Account{}, nil)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Method:   "POST",
		Route:    "/sites/ste_1/schedule",
		Response: &response,
		Router:   router,
	})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "no healthy active accounts", response["skipped_reason"])
}

func TestCancelSchedulesEndpoint(t *testing.T) {
	router, ds := setupRouter(t)
	ds.On("RevertScheduledURLsBySite", mock.Anything, "ste_1").Return(int64(6), nil)
	ds.On("CancelPendingGroupsBySite", mock.Anything, "ste_1").Return(int64(3), nil)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Method:   "DELETE",
		Route:    "/sites/ste_1/schedule",
		Response: &response,
		Router:   router,
	})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(6), response["urls_reverted"])
}

func TestRecoverGroupsEndpoint(t *testing.T) {
	router, ds := setupRouter(t)
	ds.On("GetPendingGroupsOlderThan", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		return cutoff.Before(time.Now())
	})).Return([]model.SubmissionGroup{}, nil)

	payload := model2.RecoverGroups{ThresholdMinutes: 90}
	payloadBytes, _ := request.ToJsonReq(&payload)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  payloadBytes,
		Method:   "POST",
		Route:    "/recover-groups",
		Response: &response,
		Router:   router,
	})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(0), response["groups_recovered"])
}

func TestGetGroup(t *testing.T) {
	router, ds := setupRouter(t)
	ds.On("GetSubmissionGroup", mock.Anything, "grp_1").Return(&model.SubmissionGroup{
		GroupID:   "grp_1",
		SiteID:    "ste_1",
		AccountID: "acc_1",
		Status:    model.GroupPending,
	}, nil)

	var response model.SubmissionGroup
	resp, err := SetUpTestRequest(TestRequest{
		Method:   "GET",
		Route:    "/groups/grp_1",
		Response: &response,
		Router:   router,
	})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "acc_1", response.AccountID)
}

func TestGetGroupNotFound(t *testing.T) {
	router, ds := setupRouter(t)
	ds.On("GetSubmissionGroup", mock.Anything, "grp_missing").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "Submission group not found", nil))

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Method:   "GET",
		Route:    "/groups/grp_missing",
		Response: &response,
		Router:   router,
	})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
