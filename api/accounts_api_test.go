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

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	model2 "github.com/rankitohq/indexer/api/model"
	"github.com/rankitohq/indexer/internal/request"
	"github.com/rankitohq/indexer/model"
)

func TestCreateAccount(t *testing.T) {
	router, ds := setupRouter(t)
	ds.On("GetSiteByID", mock.Anything, "ste_1").Return(&model.Site{SiteID: "ste_1"}, nil)
	ds.On("CreateAccount", mock.MatchedBy(func(a model.Account) bool {
		return a.SiteID == "ste_1" && a.Active && a.Health == model.HealthHealthy
	})).Return(model.Account{AccountID: "acc_1", SiteID: "ste_1"}, nil)

	tests := []struct {
		name         string
		payload      model2.CreateAccount
		expectedCode int
	}{
		{
			name: "Valid Account",
			payload: model2.CreateAccount{
				SiteID:     "ste_1",
				Name:       gofakeit.Name(),
				Email:      gofakeit.Email(),
				DailyCap:   200,
				Credential: map[string]interface{}{"access_token": "token-1"},
			},
			expectedCode: http.StatusCreated,
		},
		{
			name: "Missing Credential",
			payload: model2.CreateAccount{
				SiteID: "ste_1",
				Name:   gofakeit.Name(),
			},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "Missing Site",
			payload: model2.CreateAccount{
				Name:       gofakeit.Name(),
				Credential: map[string]interface{}{"access_token": "token-1"},
			},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payloadBytes, _ := request.ToJsonReq(&tt.payload)
			var response model.Account
			resp, err := SetUpTestRequest(TestRequest{
				Payload:  payloadBytes,
				Response: &response,
				Method:   "POST",
				Route:    "/accounts",
				Router:   router,
			})
			if err != nil {
				t.Fatal(err)
			}
			assert.Equal(t, tt.expectedCode, resp.Code)
			if tt.expectedCode == http.StatusCreated {
				assert.Equal(t, "acc_1", response.AccountID)
			}
		})
	}
}

func TestGetSiteAccounts(t *testing.T) {
	router, ds := setupRouter(t)
	ds.On("GetAccountsBySite", mock.Anything, "ste_1").Return([]model.Account{
		{AccountID: "acc_1", SiteID: "ste_1"},
		{AccountID: "acc_2", SiteID: "ste_1"},
	}, nil)

	var response []model.Account
	resp, err := SetUpTestRequest(TestRequest{
		Response: &response,
		Method:   "GET",
		Route:    "/sites/ste_1/accounts",
		Router:   router,
	})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, response, 2)
}

func TestDeactivateAccount(t *testing.T) {
	router, ds := setupRouter(t)
	ds.On("GetAccountByID", mock.Anything, "acc_1").Return(&model.Account{
		AccountID: "acc_1",
		SiteID:    "ste_1",
		Active:    true,
		Health:    model.HealthHealthy,
	}, nil)
	ds.On("UpdateAccount", mock.MatchedBy(func(a *model.Account) bool {
		return a.AccountID == "acc_1" && !a.Active
	})).Return(nil)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Response: &response,
		Method:   "DELETE",
		Route:    "/accounts/acc_1",
		Router:   router,
	})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, http.StatusOK, resp.Code)
}
