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
	"embed"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rankitohq/indexer/cache"
	"github.com/rankitohq/indexer/config"
	"github.com/rankitohq/indexer/database"
	"github.com/rankitohq/indexer/internal/gsc"
	redis_db "github.com/rankitohq/indexer/internal/redis-db"
	"github.com/rankitohq/indexer/model"
)

// Submitter is the outbound contract against the indexing API. The production
// implementation is internal/gsc; tests swap in a fake.
type Submitter interface {
	Submit(ctx context.Context, credential map[string]interface{}, pageURL, requestType string) (*gsc.PublishResponse, error)
}

// Indexer is the service layer of the application. Every API handler and
// worker task goes through it.
// groupEnqueuer is the slice of Queue the scheduler and recovery sweep need.
// Tests substitute an in-memory fake.
type groupEnqueuer interface {
	EnqueueGroup(ctx context.Context, group *model.SubmissionGroup) error
	EnqueueGroupNow(ctx context.Context, group *model.SubmissionGroup) error
}

type Indexer struct {
	queue      *Queue
	enqueuer   groupEnqueuer
	redis      redis.UniversalClient
	cache      cache.Cache
	datasource database.IDataSource
	submitter  Submitter
	httpClient *http.Client
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewIndexer initializes the service layer with the provided datasource.
// It wires the Redis client, the cache, the task queue and the indexing API
// client from configuration.
func NewIndexer(db database.IDataSource) (*Indexer, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)}, configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}
	newCache, err := cache.NewCache()
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)
	client := gsc.NewClient(configuration.GSC.Endpoint, time.Duration(configuration.GSC.TimeoutSec)*time.Second)

	newIndexer := &Indexer{
		datasource: db,
		queue:      newQueue,
		enqueuer:   newQueue,
		redis:      redisClient.Client(),
		cache:      newCache,
		submitter:  client,
		httpClient: &http.Client{},
	}
	return newIndexer, nil
}
