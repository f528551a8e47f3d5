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

// Package gsc talks to the Google Indexing API on behalf of connected
// Search Console accounts. A credential is the token material stored with
// the account; the client never refreshes tokens itself.
package gsc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rankitohq/indexer/internal/request"
)

var (
	// ErrQuotaExceeded means the credential has exhausted its daily
	// publish quota. The submission failed but the account is healthy.
	ErrQuotaExceeded = errors.New("indexing api daily quota exceeded")

	// ErrAuthFailure means the credential was rejected. The account should
	// be marked unhealthy and no further URLs sent with it.
	ErrAuthFailure = errors.New("indexing api authentication failed")
)

// PublishRequest is the urlNotifications:publish payload.
type PublishRequest struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// PublishResponse mirrors the urlNotifications metadata envelope. Only the
// fields we read are declared.
type PublishResponse struct {
	URLNotificationMetadata struct {
		URL          string `json:"url"`
		LatestUpdate struct {
			URL        string `json:"url"`
			Type       string `json:"type"`
			NotifyTime string `json:"notifyTime"`
		} `json:"latestUpdate"`
	} `json:"urlNotificationMetadata"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// Client submits URL notifications to the indexing API endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Submit publishes a single URL notification using the given credential.
// Quota and auth rejections come back as ErrQuotaExceeded and ErrAuthFailure
// so callers can branch on the outcome.
func (c *Client) Submit(ctx context.Context, credential map[string]interface{}, pageURL, requestType string) (*PublishResponse, error) {
	token, _ := credential["access_token"].(string)
	if token == "" {
		return nil, ErrAuthFailure
	}

	payload, err := request.ToJsonReq(&PublishRequest{URL: pageURL, Type: requestType})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var publishResp PublishResponse
		if err := json.Unmarshal(body, &publishResp); err != nil {
			return nil, err
		}
		return &publishResp, nil
	}

	return nil, c.mapAPIError(resp.StatusCode, body)
}

// mapAPIError turns an error response into a typed failure. The API reports
// quota exhaustion as 429 or as 403 with a quota reason; 401 and the
// remaining 403s are credential problems.
func (c *Client) mapAPIError(status int, body []byte) error {
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)

	switch status {
	case http.StatusTooManyRequests:
		return ErrQuotaExceeded
	case http.StatusUnauthorized:
		return ErrAuthFailure
	case http.StatusForbidden:
		for _, e := range apiErr.Error.Errors {
			if e.Reason == "quotaExceeded" || e.Reason == "rateLimitExceeded" || e.Reason == "dailyLimitExceeded" {
				return ErrQuotaExceeded
			}
		}
		if strings.Contains(strings.ToLower(apiErr.Error.Message), "quota") {
			return ErrQuotaExceeded
		}
		return ErrAuthFailure
	}

	if apiErr.Error.Message != "" {
		return fmt.Errorf("indexing api error: %d %s", status, apiErr.Error.Message)
	}
	return fmt.Errorf("indexing api error: unexpected status %d", status)
}
