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

	"github.com/rankitohq/indexer/model"
)

func (i *Indexer) GetSubmissionGroup(ctx context.Context, id string) (*model.SubmissionGroup, error) {
	return i.datasource.GetSubmissionGroup(ctx, id)
}

func (i *Indexer) GetGroupURLs(ctx context.Context, groupID string) ([]model.DiscoveredURL, error) {
	return i.datasource.GetURLsByGroup(ctx, groupID)
}

func (i *Indexer) GetGroupsBySite(ctx context.Context, siteID string, limit, offset int) ([]model.SubmissionGroup, error) {
	return i.datasource.GetGroupsBySite(ctx, siteID, limit, offset)
}
