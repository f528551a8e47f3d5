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

	"github.com/rankitohq/indexer/internal/notification"
	"github.com/rankitohq/indexer/model"
)

func (i *Indexer) postSiteActions(_ context.Context, site *model.Site) {
	go func() {
		err := SendWebhook(NewWebhook{
			Event:   "site.created",
			Payload: site,
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}

func (i *Indexer) CreateSite(ctx context.Context, site model.Site) (model.Site, error) {
	site, err := i.datasource.CreateSite(site)
	if err != nil {
		return model.Site{}, err
	}
	i.postSiteActions(ctx, &site)
	return site, nil
}

func (i *Indexer) GetSiteByID(ctx context.Context, id string) (*model.Site, error) {
	return i.datasource.GetSiteByID(ctx, id)
}

func (i *Indexer) GetAllSites(ctx context.Context, limit, offset int) ([]model.Site, error) {
	return i.datasource.GetAllSites(ctx, limit, offset)
}

func (i *Indexer) DeleteSite(ctx context.Context, id string) error {
	return i.datasource.DeleteSite(ctx, id)
}
