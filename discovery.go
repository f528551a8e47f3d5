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
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rankitohq/indexer/config"
	"github.com/rankitohq/indexer/internal/apierror"
	"github.com/rankitohq/indexer/model"
)

// Nested sitemap indexes are followed at most this deep. Real sites rarely
// nest beyond index -> sitemap; anything deeper is treated as malformed.
const maxSitemapDepth = 2

const sitemapSeenTTL = 24 * time.Hour

// EnqueueURL adds one URL to a site's discovery backlog with status
// discovered. A URL already known for the site is left untouched.
func (i *Indexer) EnqueueURL(ctx context.Context, siteID, pageURL string, priority int, autoSchedule bool) (*model.DiscoveredURL, error) {
	if _, err := i.datasource.GetSiteByID(ctx, siteID); err != nil {
		return nil, err
	}
	entry := &model.DiscoveredURL{
		SiteID:       siteID,
		URL:          pageURL,
		Priority:     priority,
		AutoSchedule: autoSchedule,
	}
	inserted, err := i.datasource.CreateDiscoveredURLs(ctx, []*model.DiscoveredURL{entry})
	if err != nil {
		return nil, err
	}
	if inserted == 0 {
		return nil, apierror.NewAPIError(apierror.ErrConflict, "URL is already in the discovery backlog", nil)
	}
	return entry, nil
}

// EnqueueURLs bulk-inserts discovered URLs for a site and returns how many
// were new. Duplicates within the backlog are skipped silently.
func (i *Indexer) EnqueueURLs(ctx context.Context, siteID string, entries []*model.DiscoveredURL) (int, error) {
	if _, err := i.datasource.GetSiteByID(ctx, siteID); err != nil {
		return 0, err
	}
	for _, entry := range entries {
		entry.SiteID = siteID
	}
	return i.datasource.CreateDiscoveredURLs(ctx, entries)
}

// ListEligibleURLs returns the site's schedulable backlog in stable priority
// order: priority descending, then discovery time ascending.
func (i *Indexer) ListEligibleURLs(ctx context.Context, siteID string) ([]model.DiscoveredURL, error) {
	return i.datasource.GetSchedulableURLs(ctx, siteID)
}

func (i *Indexer) GetURLsBySite(ctx context.Context, siteID, status string, limit, offset int) ([]model.DiscoveredURL, error) {
	return i.datasource.GetURLsBySite(ctx, siteID, status, limit, offset)
}

// GetDiscoveredURL retrieves a single backlog entry by ID.
func (i *Indexer) GetDiscoveredURL(ctx context.Context, id string) (*model.DiscoveredURL, error) {
	return i.datasource.GetDiscoveredURL(ctx, id)
}

// CountURLsBySiteAndStatus returns the per-status counts of a site's backlog.
func (i *Indexer) CountURLsBySiteAndStatus(ctx context.Context, siteID string) (map[string]int, error) {
	return i.datasource.CountURLsBySiteAndStatus(ctx, siteID)
}

// ValidateDiscoveredURLs runs the domain and reachability checks over the
// site's unvalidated backlog. Checks run with bounded concurrency; a URL
// failing either check is marked ineligible with the reason persisted.
// Returns how many URLs were checked.
func (i *Indexer) ValidateDiscoveredURLs(ctx context.Context, siteID string) (int, error) {
	site, err := i.datasource.GetSiteByID(ctx, siteID)
	if err != nil {
		return 0, err
	}
	backlog, err := i.datasource.GetSchedulableURLs(ctx, siteID)
	if err != nil {
		return 0, err
	}

	pending := make([]model.DiscoveredURL, 0, len(backlog))
	for _, entry := range backlog {
		if entry.ValidationStatus == "" {
			pending = append(pending, entry)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	cnf := i.validationConfig()
	sem := make(chan struct{}, cnf.batchSize)
	var wg sync.WaitGroup
	for idx := range pending {
		entry := pending[idx]
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			status, reason := i.validateURL(ctx, site, entry.URL, cnf.reachabilityTimeout)
			if err := i.datasource.UpdateURLValidation(ctx, entry.URLID, status, reason); err != nil {
				logrus.Errorf("failed to record validation for %s: %v", entry.URLID, err)
			}
		}()
	}
	wg.Wait()
	return len(pending), nil
}

type validationSettings struct {
	batchSize           int
	reachabilityTimeout time.Duration
}

func (i *Indexer) validationConfig() validationSettings {
	settings := validationSettings{batchSize: 10, reachabilityTimeout: 5 * time.Second}
	cnf, err := config.Fetch()
	if err != nil {
		return settings
	}
	if cnf.Scheduler.ValidationBatchSize > 0 {
		settings.batchSize = cnf.Scheduler.ValidationBatchSize
	}
	settings.reachabilityTimeout = cnf.ReachabilityTimeout()
	return settings
}

// validateURL applies the two checks in order: the page must live on the
// site's domain (a leading "www." is ignored on either side), and it must
// answer a HEAD request with a 2xx within the timeout.
func (i *Indexer) validateURL(ctx context.Context, site *model.Site, pageURL string, timeout time.Duration) (status, reason string) {
	if !site.MatchesDomain(pageURL) {
		return model.ValidationInvalidDomain, fmt.Sprintf("URL host does not match site domain %s", site.Domain)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, pageURL, nil)
	if err != nil {
		return model.ValidationUnreachable, err.Error()
	}
	resp, err := i.reachabilityClient().Do(req)
	if err != nil {
		return model.ValidationUnreachable, err.Error()
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.ValidationUnreachable, fmt.Sprintf("HEAD returned status %d", resp.StatusCode)
	}
	return model.ValidationValid, ""
}

func (i *Indexer) reachabilityClient() *http.Client {
	if i.httpClient != nil {
		return i.httpClient
	}
	return http.DefaultClient
}

// sitemapDocument covers both document shapes the sitemap protocol defines.
// A urlset carries page locations; a sitemapindex carries nested sitemaps.
type sitemapDocument struct {
	XMLName  xml.Name     `xml:""`
	URLs     []sitemapLoc `xml:"url"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// DiscoverFromSitemap crawls the site's sitemap.xml (following nested
// sitemap indexes to a bounded depth) and enqueues every URL not yet in the
// backlog. URLs seen in a recent crawl are skipped through a short-lived
// Redis marker so repeated crawls stay cheap.
func (i *Indexer) DiscoverFromSitemap(ctx context.Context, siteID string) (int, error) {
	site, err := i.datasource.GetSiteByID(ctx, siteID)
	if err != nil {
		return 0, err
	}

	sitemapURL := fmt.Sprintf("https://%s/sitemap.xml", model.NormalizeHost(site.Domain))
	pages, err := i.crawlSitemap(ctx, sitemapURL, 0)
	if err != nil {
		return 0, err
	}

	entries := make([]*model.DiscoveredURL, 0, len(pages))
	for _, page := range pages {
		if i.sitemapSeen(ctx, siteID, page) {
			continue
		}
		entries = append(entries, &model.DiscoveredURL{
			SiteID:       siteID,
			URL:          page,
			AutoSchedule: true,
		})
	}
	if len(entries) == 0 {
		return 0, nil
	}

	inserted, err := i.datasource.CreateDiscoveredURLs(ctx, entries)
	if err != nil {
		return 0, err
	}
	for _, entry := range entries {
		i.markSitemapSeen(ctx, siteID, entry.URL)
	}
	logrus.Infof("sitemap crawl for %s: %d URLs found, %d new", siteID, len(pages), inserted)
	return inserted, nil
}

func (i *Indexer) crawlSitemap(ctx context.Context, sitemapURL string, depth int) ([]string, error) {
	if depth > maxSitemapDepth {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := i.reachabilityClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sitemap fetch %s returned status %d", sitemapURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var doc sitemapDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("sitemap parse %s: %w", sitemapURL, err)
	}

	pages := make([]string, 0, len(doc.URLs))
	for _, entry := range doc.URLs {
		if entry.Loc != "" {
			pages = append(pages, entry.Loc)
		}
	}
	for _, nested := range doc.Sitemaps {
		if nested.Loc == "" {
			continue
		}
		nestedPages, err := i.crawlSitemap(ctx, nested.Loc, depth+1)
		if err != nil {
			logrus.Warnf("skipping nested sitemap %s: %v", nested.Loc, err)
			continue
		}
		pages = append(pages, nestedPages...)
	}
	return pages, nil
}

func sitemapSeenKey(siteID, pageURL string) string {
	return fmt.Sprintf("sitemap:seen:%s:%s", siteID, pageURL)
}

func (i *Indexer) sitemapSeen(ctx context.Context, siteID, pageURL string) bool {
	if i.cache == nil {
		return false
	}
	var marker bool
	if err := i.cache.Get(ctx, sitemapSeenKey(siteID, pageURL), &marker); err != nil {
		return false
	}
	return marker
}

func (i *Indexer) markSitemapSeen(ctx context.Context, siteID, pageURL string) {
	if i.cache == nil {
		return
	}
	if err := i.cache.Set(ctx, sitemapSeenKey(siteID, pageURL), true, sitemapSeenTTL); err != nil {
		logrus.Debugf("failed to mark sitemap URL seen: %v", err)
	}
}
