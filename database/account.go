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
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"github.com/rankitohq/indexer/internal/apierror"
	"github.com/rankitohq/indexer/model"
)

// CreateAccount inserts a new indexing account. The credential payload is
// stored as JSONB alongside the account row.
func (d Datasource) CreateAccount(account model.Account) (model.Account, error) {
	credentialJSON, err := json.Marshal(account.Credential)
	if err != nil {
		return account, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal credential", err)
	}
	metaDataJSON, err := json.Marshal(account.MetaData)
	if err != nil {
		return account, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	account.AccountID = model.GenerateUUIDWithSuffix("acc")
	account.CreatedAt = time.Now()
	if account.Health == "" {
		account.Health = model.HealthHealthy
	}
	if account.DailyCap <= 0 {
		account.DailyCap = model.DefaultDailyCap
	}

	_, err = d.Conn.Exec(`
		INSERT INTO indexer.accounts (account_id, site_id, name, email, health, active, daily_cap, credential, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, account.AccountID, account.SiteID, account.Name, account.Email, account.Health, account.Active, account.DailyCap, credentialJSON, account.CreatedAt, metaDataJSON)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return account, apierror.NewAPIError(apierror.ErrConflict, "Account already connected to this site", err)
			case "foreign_key_violation":
				return account, apierror.NewAPIError(apierror.ErrBadRequest, "Site does not exist", err)
			default:
				return account, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return account, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create account", err)
	}

	return account, nil
}

func (d Datasource) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	account := model.Account{}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT account_id, site_id, name, email, health, active, daily_cap, credential, created_at, meta_data
		FROM indexer.accounts
		WHERE account_id = $1
	`, id)

	var credentialJSON, metaDataJSON []byte
	err := row.Scan(&account.AccountID, &account.SiteID, &account.Name, &account.Email, &account.Health, &account.Active, &account.DailyCap, &credentialJSON, &account.CreatedAt, &metaDataJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Account not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve account", err)
	}

	if err = json.Unmarshal(credentialJSON, &account.Credential); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal credential", err)
	}
	if err = json.Unmarshal(metaDataJSON, &account.MetaData); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
	}

	return &account, nil
}

func (d Datasource) GetAccountsBySite(ctx context.Context, siteID string) ([]model.Account, error) {
	return d.queryAccounts(ctx, `
		SELECT account_id, site_id, name, email, health, active, daily_cap, credential, created_at, meta_data
		FROM indexer.accounts
		WHERE site_id = $1
		ORDER BY created_at ASC
	`, siteID)
}

// GetEligibleAccountsBySite returns the accounts the scheduler may assign
// URLs to. Ordered by creation time so round-robin assignment is stable
// across runs.
func (d Datasource) GetEligibleAccountsBySite(ctx context.Context, siteID string) ([]model.Account, error) {
	return d.queryAccounts(ctx, `
		SELECT account_id, site_id, name, email, health, active, daily_cap, credential, created_at, meta_data
		FROM indexer.accounts
		WHERE site_id = $1 AND active = true AND health = 'healthy'
		ORDER BY created_at ASC
	`, siteID)
}

func (d Datasource) queryAccounts(ctx context.Context, query string, args ...interface{}) ([]model.Account, error) {
	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve accounts", err)
	}
	defer rows.Close()

	accounts := []model.Account{}

	for rows.Next() {
		account := model.Account{}
		var credentialJSON, metaDataJSON []byte
		err = rows.Scan(&account.AccountID, &account.SiteID, &account.Name, &account.Email, &account.Health, &account.Active, &account.DailyCap, &credentialJSON, &account.CreatedAt, &metaDataJSON)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan account data", err)
		}

		if err = json.Unmarshal(credentialJSON, &account.Credential); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal credential", err)
		}
		if err = json.Unmarshal(metaDataJSON, &account.MetaData); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
		}

		accounts = append(accounts, account)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over accounts", err)
	}

	return accounts, nil
}

func (d Datasource) UpdateAccount(account *model.Account) error {
	credentialJSON, err := json.Marshal(account.Credential)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal credential", err)
	}
	metaDataJSON, err := json.Marshal(account.MetaData)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	result, err := d.Conn.Exec(`
		UPDATE indexer.accounts
		SET name = $2, email = $3, health = $4, active = $5, daily_cap = $6, credential = $7, meta_data = $8
		WHERE account_id = $1
	`, account.AccountID, account.Name, account.Email, account.Health, account.Active, account.DailyCap, credentialJSON, metaDataJSON)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update account", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update account", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Account not found", nil)
	}

	return nil
}

// UpdateAccountHealth flips only the health column. Used by the dispatcher
// when a credential is rejected mid-batch.
func (d Datasource) UpdateAccountHealth(ctx context.Context, id string, health string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE indexer.accounts SET health = $2 WHERE account_id = $1
	`, id, health)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update account health", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update account health", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Account not found", nil)
	}

	return nil
}

func (d Datasource) DeleteAccount(ctx context.Context, id string) error {
	result, err := d.Conn.ExecContext(ctx, `
		DELETE FROM indexer.accounts WHERE account_id = $1
	`, id)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete account", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete account", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Account not found", nil)
	}

	return nil
}
