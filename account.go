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

	"github.com/sirupsen/logrus"

	"github.com/rankitohq/indexer/internal/apierror"
	"github.com/rankitohq/indexer/internal/notification"
	"github.com/rankitohq/indexer/model"
)

// CreateAccount registers an indexing credential under a site. The site must
// exist; the credential blob is stored opaque.
func (i *Indexer) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	_, err := i.datasource.GetSiteByID(ctx, account.SiteID)
	if err != nil {
		return model.Account{}, err
	}
	return i.datasource.CreateAccount(account)
}

func (i *Indexer) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return i.datasource.GetAccountByID(ctx, id)
}

func (i *Indexer) GetAccountsBySite(ctx context.Context, siteID string) ([]model.Account, error) {
	return i.datasource.GetAccountsBySite(ctx, siteID)
}

func (i *Indexer) UpdateAccount(_ context.Context, account *model.Account) error {
	return i.datasource.UpdateAccount(account)
}

// DeactivateAccount retires a credential without deleting its usage history.
// Pending work already assigned to the account is cancelled by the next
// force reschedule.
func (i *Indexer) DeactivateAccount(ctx context.Context, id string) error {
	account, err := i.datasource.GetAccountByID(ctx, id)
	if err != nil {
		return err
	}
	if !account.Active {
		return apierror.NewAPIError(apierror.ErrConflict, "account is already inactive", nil)
	}
	account.Active = false
	account.Health = model.HealthInactive
	return i.datasource.UpdateAccount(account)
}

// markAccountUnhealthy flags a credential after an authentication failure so
// the scheduler stops assigning URLs to it, and notifies operators.
func (i *Indexer) markAccountUnhealthy(ctx context.Context, account *model.Account, reason string) {
	if err := i.datasource.UpdateAccountHealth(ctx, account.AccountID, model.HealthUnhealthy); err != nil {
		logrus.Errorf("failed to mark account %s unhealthy: %v", account.AccountID, err)
		notification.NotifyError(err)
		return
	}
	logrus.Warnf("account %s marked unhealthy: %s", account.AccountID, reason)
	err := SendWebhook(NewWebhook{
		Event: "account.unhealthy",
		Payload: map[string]interface{}{
			"account_id": account.AccountID,
			"site_id":    account.SiteID,
			"reason":     reason,
		},
	})
	if err != nil {
		notification.NotifyError(err)
	}
}
