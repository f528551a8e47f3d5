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
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/rankitohq/indexer/config"
	redis_db "github.com/rankitohq/indexer/internal/redis-db"
	"github.com/rankitohq/indexer/model"
)

// Queue wraps the asynq client used to schedule submission group dispatch.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// NewQueue initializes the queue from the Redis configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// EnqueueGroup schedules a submission group as a delayed task that becomes
// available when its slot arrives. The group ID doubles as the task ID, so a
// group re-enqueued by a repeated scheduling pass is deduplicated by asynq.
func (q *Queue) EnqueueGroup(ctx context.Context, group *model.SubmissionGroup) error {
	ctx, span := tracer.Start(ctx, "queue.enqueue_group")
	defer span.End()

	payload, err := json.Marshal(group)
	if err != nil {
		return err
	}
	info, err := q.Client.EnqueueContext(ctx, q.groupTask(group, payload, true), asynq.MaxRetry(5))
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued submission group: %s for %s", group.GroupID, group.ScheduledFor)
	return nil
}

// EnqueueGroupNow re-enqueues a group for immediate dispatch, bypassing the
// slot delay. Used by the recovery sweep for groups whose delayed task was
// lost.
func (q *Queue) EnqueueGroupNow(ctx context.Context, group *model.SubmissionGroup) error {
	payload, err := json.Marshal(group)
	if err != nil {
		return err
	}
	info, err := q.Client.EnqueueContext(ctx, q.groupTask(group, payload, false), asynq.MaxRetry(5))
	if err != nil {
		log.Println(err, info)
		return err
	}
	return nil
}

// groupTask builds the asynq task for a group, assigning it to a numbered
// queue by hashing the account ID. All groups of one account land in the
// same queue and dispatch serially, which keeps quota accounting per
// credential free of races while different accounts proceed in parallel.
func (q *Queue) groupTask(group *model.SubmissionGroup, payload []byte, delayed bool) *asynq.Task {
	queueName := groupQueueName(group.AccountID)

	taskOptions := []asynq.Option{asynq.TaskID(group.GroupID), asynq.Queue(queueName)}
	if delayed && !group.ScheduledFor.IsZero() {
		taskOptions = append(taskOptions, asynq.ProcessIn(time.Until(group.ScheduledFor)))
	}

	return asynq.NewTask(queueName, payload, taskOptions...)
}

// GetGroupTask looks up a group's task across the numbered submission
// queues. Used by operators to inspect where a delayed group currently sits.
func (q *Queue) GetGroupTask(groupID string) (*asynq.TaskInfo, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	for queueIndex := 1; queueIndex <= cnf.Queue.NumberOfQueues; queueIndex++ {
		queueName := fmt.Sprintf("%s_%d", cnf.Queue.SubmissionQueue, queueIndex)
		task, err := q.Inspector.GetTaskInfo(queueName, groupID)
		if err != nil {
			continue
		}
		if task != nil {
			return task, nil
		}
	}
	return nil, fmt.Errorf("group %s not found in any queue", groupID)
}

func groupQueueName(accountID string) string {
	cnf, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config: %v", err)
		return fmt.Sprintf("indexer:submission_%d", hashAccountID(accountID)%4+1)
	}
	queueIndex := hashAccountID(accountID) % cnf.Queue.NumberOfQueues
	return fmt.Sprintf("%s_%d", cnf.Queue.SubmissionQueue, queueIndex+1)
}

// hashAccountID returns a consistent hash for an account ID.
func hashAccountID(accountID string) int {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(accountID))
	return int(hasher.Sum32())
}
