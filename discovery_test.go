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
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rankitohq/indexer/database/mocks"
	"github.com/rankitohq/indexer/model"
)

func TestEnqueueURL(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, _, _ := newTestIndexer(t, ds)

	ds.On("GetSiteByID", mock.Anything, "ste_1").Return(&model.Site{SiteID: "ste_1", Domain: "example.com"}, nil)
	ds.On("CreateDiscoveredURLs", mock.Anything, mock.MatchedBy(func(urls []*model.DiscoveredURL) bool {
		return len(urls) == 1 && urls[0].URL == "https://example.com/new-page" && urls[0].Priority == 5
	})).Return(1, nil)

	entry, err := idx.EnqueueURL(context.Background(), "ste_1", "https://example.com/new-page", 5, true)
	assert.NoError(t, err)
	assert.Equal(t, "ste_1", entry.SiteID)
	ds.AssertExpectations(t)
}

func TestEnqueueURLDuplicate(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, _, _ := newTestIndexer(t, ds)

	ds.On("GetSiteByID", mock.Anything, "ste_1").Return(&model.Site{SiteID: "ste_1", Domain: "example.com"}, nil)
	ds.On("CreateDiscoveredURLs", mock.Anything, mock.Anything).Return(0, nil)

	_, err := idx.EnqueueURL(context.Background(), "ste_1", "https://example.com/known", 0, true)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already in the discovery backlog")
}

func TestValidateDiscoveredURLs(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, _, _ := newTestIndexer(t, ds)

	httpmock.ActivateNonDefault(idx.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodHead, "https://example.com/good",
		httpmock.NewStringResponder(http.StatusOK, ""))
	httpmock.RegisterResponder(http.MethodHead, "https://example.com/gone",
		httpmock.NewStringResponder(http.StatusNotFound, ""))

	site := &model.Site{SiteID: "ste_1", Domain: "example.com"}
	backlog := []model.DiscoveredURL{
		{URLID: "url_1", SiteID: "ste_1", URL: "https://example.com/good", Status: model.StatusDiscovered, AutoSchedule: true},
		{URLID: "url_2", SiteID: "ste_1", URL: "https://other.com/page", Status: model.StatusDiscovered, AutoSchedule: true},
		{URLID: "url_3", SiteID: "ste_1", URL: "https://example.com/gone", Status: model.StatusDiscovered, AutoSchedule: true},
		{URLID: "url_4", SiteID: "ste_1", URL: "https://example.com/done", Status: model.StatusDiscovered, AutoSchedule: true, ValidationStatus: model.ValidationValid},
	}

	ds.On("GetSiteByID", mock.Anything, "ste_1").Return(site, nil)
	ds.On("GetSchedulableURLs", mock.Anything, "ste_1").Return(backlog, nil)
	ds.On("UpdateURLValidation", mock.Anything, "url_1", model.ValidationValid, "").Return(nil)
	ds.On("UpdateURLValidation", mock.Anything, "url_2", model.ValidationInvalidDomain, mock.Anything).Return(nil)
	ds.On("UpdateURLValidation", mock.Anything, "url_3", model.ValidationUnreachable, mock.Anything).Return(nil)

	checked, err := idx.ValidateDiscoveredURLs(context.Background(), "ste_1")
	assert.NoError(t, err)
	// url_4 was already validated and is skipped.
	assert.Equal(t, 3, checked)
	ds.AssertExpectations(t)
}

func TestValidateDiscoveredURLsEmptyBacklog(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, _, _ := newTestIndexer(t, ds)

	ds.On("GetSiteByID", mock.Anything, "ste_1").Return(&model.Site{SiteID: "ste_1", Domain: "example.com"}, nil)
	ds.On("GetSchedulableURLs", mock.Anything, "ste_1").Return([]model.DiscoveredURL{}, nil)

	checked, err := idx.ValidateDiscoveredURLs(context.Background(), "ste_1")
	assert.NoError(t, err)
	assert.Zero(t, checked)
}

func TestDiscoverFromSitemap(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, _, _ := newTestIndexer(t, ds)

	httpmock.ActivateNonDefault(idx.httpClient)
	defer httpmock.DeactivateAndReset()

	sitemap := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/page-one</loc></url>
  <url><loc>https://example.com/page-two</loc></url>
</urlset>`
	httpmock.RegisterResponder(http.MethodGet, "https://example.com/sitemap.xml",
		httpmock.NewStringResponder(http.StatusOK, sitemap))

	ds.On("GetSiteByID", mock.Anything, "ste_1").Return(&model.Site{SiteID: "ste_1", Domain: "www.example.com"}, nil)
	ds.On("CreateDiscoveredURLs", mock.Anything, mock.MatchedBy(func(urls []*model.DiscoveredURL) bool {
		return len(urls) == 2 && urls[0].URL == "https://example.com/page-one" && urls[0].AutoSchedule
	})).Return(2, nil)

	inserted, err := idx.DiscoverFromSitemap(context.Background(), "ste_1")
	assert.NoError(t, err)
	assert.Equal(t, 2, inserted)
	ds.AssertExpectations(t)
}

func TestDiscoverFromSitemapIndex(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, _, _ := newTestIndexer(t, ds)

	httpmock.ActivateNonDefault(idx.httpClient)
	defer httpmock.DeactivateAndReset()

	index := `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/sitemap-posts.xml</loc></sitemap>
</sitemapindex>`
	nested := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/post-one</loc></url>
</urlset>`
	httpmock.RegisterResponder(http.MethodGet, "https://example.com/sitemap.xml",
		httpmock.NewStringResponder(http.StatusOK, index))
	httpmock.RegisterResponder(http.MethodGet, "https://example.com/sitemap-posts.xml",
		httpmock.NewStringResponder(http.StatusOK, nested))

	ds.On("GetSiteByID", mock.Anything, "ste_1").Return(&model.Site{SiteID: "ste_1", Domain: "example.com"}, nil)
	ds.On("CreateDiscoveredURLs", mock.Anything, mock.MatchedBy(func(urls []*model.DiscoveredURL) bool {
		return len(urls) == 1 && urls[0].URL == "https://example.com/post-one"
	})).Return(1, nil)

	inserted, err := idx.DiscoverFromSitemap(context.Background(), "ste_1")
	assert.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestDiscoverFromSitemapFetchError(t *testing.T) {
	ds := new(mocks.MockDataSource)
	idx, _, _ := newTestIndexer(t, ds)

	httpmock.ActivateNonDefault(idx.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://example.com/sitemap.xml",
		httpmock.NewStringResponder(http.StatusInternalServerError, ""))

	ds.On("GetSiteByID", mock.Anything, "ste_1").Return(&model.Site{SiteID: "ste_1", Domain: "example.com"}, nil)

	_, err := idx.DiscoverFromSitemap(context.Background(), "ste_1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "returned status 500")
}
