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

func (d Datasource) CreateSite(site model.Site) (model.Site, error) {
	metaDataJSON, err := json.Marshal(site.MetaData)
	if err != nil {
		return model.Site{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	site.SiteID = model.GenerateUUIDWithSuffix("ste")
	site.Domain = model.NormalizeHost(site.Domain)
	site.CreatedAt = time.Now()

	_, err = d.Conn.Exec(`
		INSERT INTO indexer.sites (site_id, name, domain, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5)
	`, site.SiteID, site.Name, site.Domain, site.CreatedAt, metaDataJSON)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return model.Site{}, apierror.NewAPIError(apierror.ErrConflict, "Site with this domain already exists", err)
			default:
				return model.Site{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.Site{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create site", err)
	}

	return site, nil
}

func (d Datasource) GetSiteByID(ctx context.Context, id string) (*model.Site, error) {
	site := model.Site{}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT site_id, name, domain, created_at, meta_data
		FROM indexer.sites
		WHERE site_id = $1
	`, id)

	var metaDataJSON []byte
	err := row.Scan(&site.SiteID, &site.Name, &site.Domain, &site.CreatedAt, &metaDataJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Site not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve site", err)
	}

	err = json.Unmarshal(metaDataJSON, &site.MetaData)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
	}

	return &site, nil
}

func (d Datasource) GetAllSites(ctx context.Context, limit, offset int) ([]model.Site, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT site_id, name, domain, created_at, meta_data
		FROM indexer.sites
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve sites", err)
	}
	defer rows.Close()

	sites := []model.Site{}

	for rows.Next() {
		site := model.Site{}
		var metaDataJSON []byte
		err = rows.Scan(&site.SiteID, &site.Name, &site.Domain, &site.CreatedAt, &metaDataJSON)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan site data", err)
		}

		err = json.Unmarshal(metaDataJSON, &site.MetaData)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
		}

		sites = append(sites, site)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over sites", err)
	}

	return sites, nil
}

func (d Datasource) DeleteSite(ctx context.Context, id string) error {
	result, err := d.Conn.ExecContext(ctx, `
		DELETE FROM indexer.sites WHERE site_id = $1
	`, id)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete site", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete site", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Site not found", nil)
	}

	return nil
}
