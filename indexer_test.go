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
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rankitohq/indexer/config"
	"github.com/rankitohq/indexer/database/mocks"
	"github.com/rankitohq/indexer/internal/gsc"
	"github.com/rankitohq/indexer/model"
)

// fakeEnqueuer records enqueued groups instead of talking to asynq.
type fakeEnqueuer struct {
	mu        sync.Mutex
	delayed   []*model.SubmissionGroup
	immediate []*model.SubmissionGroup
	err       error
}

func (f *fakeEnqueuer) EnqueueGroup(_ context.Context, group *model.SubmissionGroup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.delayed = append(f.delayed, group)
	return nil
}

func (f *fakeEnqueuer) EnqueueGroupNow(_ context.Context, group *model.SubmissionGroup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.immediate = append(f.immediate, group)
	return nil
}

// fakeSubmitter answers submissions from a per-URL error table. URLs without
// an entry succeed.
type fakeSubmitter struct {
	mu      sync.Mutex
	calls   []string
	outcome map[string]error
}

func (f *fakeSubmitter) Submit(_ context.Context, _ map[string]interface{}, pageURL, _ string) (*gsc.PublishResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pageURL)
	if err, ok := f.outcome[pageURL]; ok && err != nil {
		return nil, err
	}
	return &gsc.PublishResponse{}, nil
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestIndexer(t *testing.T, ds *mocks.MockDataSource) (*Indexer, *fakeEnqueuer, *fakeSubmitter) {
	t.Helper()

	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
		Queue: config.QueueConfig{SubmissionQueue: "indexer:submission", WebhookQueue: "indexer:webhook", NumberOfQueues: 4},
		GSC:   config.GSCConfig{DailyCap: 200, RequestType: "URL_UPDATED"},
	})

	enqueuer := &fakeEnqueuer{}
	submitter := &fakeSubmitter{outcome: map[string]error{}}
	idx := &Indexer{
		datasource: ds,
		redis:      redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		enqueuer:   enqueuer,
		submitter:  submitter,
		httpClient: &http.Client{},
	}
	return idx, enqueuer, submitter
}
