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

package model

import (
	"errors"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/rankitohq/indexer/model"
)

// CreateSite is the request body for registering a site.
type CreateSite struct {
	Name     string                 `json:"name"`
	Domain   string                 `json:"domain"`
	MetaData map[string]interface{} `json:"meta_data"`
}

// CreateAccount is the request body for registering an indexing credential
// under a site.
type CreateAccount struct {
	SiteID     string                 `json:"site_id"`
	Name       string                 `json:"name"`
	Email      string                 `json:"email"`
	DailyCap   int                    `json:"daily_cap"`
	Credential map[string]interface{} `json:"credential"`
	MetaData   map[string]interface{} `json:"meta_data"`
}

// EnqueueURL is the request body for adding one URL to a site's discovery
// backlog.
type EnqueueURL struct {
	URL          string `json:"url"`
	Priority     int    `json:"priority"`
	AutoSchedule *bool  `json:"auto_schedule_enabled"`
}

// EnqueueURLs is the bulk form of EnqueueURL.
type EnqueueURLs struct {
	URLs []EnqueueURL `json:"urls"`
}

// RecoverGroups is the request body for the manual recovery trigger.
type RecoverGroups struct {
	ThresholdMinutes int `json:"threshold_minutes"`
}

func validateURLFormat(value interface{}) error {
	raw, ok := value.(string)
	if !ok {
		return errors.New("invalid type for url")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("url must be absolute, including scheme and host")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}
	return nil
}

func (s *CreateSite) ValidateCreateSite() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.Domain, validation.Required),
	)
}

func (a *CreateAccount) ValidateCreateAccount() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.SiteID, validation.Required),
		validation.Field(&a.Name, validation.Required),
		validation.Field(&a.Credential, validation.Required),
		validation.Field(&a.DailyCap, validation.Min(0)),
	)
}

func (u *EnqueueURL) ValidateEnqueueURL() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.URL, validation.Required, validation.By(validateURLFormat)),
		validation.Field(&u.Priority, validation.Min(0)),
	)
}

func (b *EnqueueURLs) ValidateEnqueueURLs() error {
	if len(b.URLs) == 0 {
		return errors.New("urls is required")
	}
	for idx := range b.URLs {
		if err := b.URLs[idx].ValidateEnqueueURL(); err != nil {
			return err
		}
	}
	return nil
}

func (s *CreateSite) ToSite() model.Site {
	return model.Site{
		Name:     s.Name,
		Domain:   s.Domain,
		MetaData: s.MetaData,
	}
}

func (a *CreateAccount) ToAccount() model.Account {
	return model.Account{
		SiteID:     a.SiteID,
		Name:       a.Name,
		Email:      a.Email,
		DailyCap:   a.DailyCap,
		Credential: a.Credential,
		Active:     true,
		Health:     model.HealthHealthy,
		MetaData:   a.MetaData,
	}
}

// AutoScheduleEnabled defaults to true when the field is omitted.
func (u *EnqueueURL) AutoScheduleEnabled() bool {
	if u.AutoSchedule == nil {
		return true
	}
	return *u.AutoSchedule
}

func (b *EnqueueURLs) ToDiscoveredURLs() []*model.DiscoveredURL {
	entries := make([]*model.DiscoveredURL, 0, len(b.URLs))
	for idx := range b.URLs {
		entries = append(entries, &model.DiscoveredURL{
			URL:          b.URLs[idx].URL,
			Priority:     b.URLs[idx].Priority,
			AutoSchedule: b.URLs[idx].AutoScheduleEnabled(),
		})
	}
	return entries
}
