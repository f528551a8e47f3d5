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
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/rankitohq/indexer/config"
	"github.com/rankitohq/indexer/internal/apierror"
	"github.com/rankitohq/indexer/internal/gsc"
	"github.com/rankitohq/indexer/internal/notification"
	"github.com/rankitohq/indexer/model"
)

// ProcessSubmissionGroupTask is the asynq handler for submission group
// dispatch. The payload is the group as enqueued by the scheduler.
func (i *Indexer) ProcessSubmissionGroupTask(ctx context.Context, task *asynq.Task) error {
	var group model.SubmissionGroup
	if err := json.Unmarshal(task.Payload(), &group); err != nil {
		logrus.Errorf("malformed submission group payload: %v", err)
		return err
	}
	return i.ProcessSubmissionGroup(ctx, group.GroupID)
}

// ProcessSubmissionGroup dispatches one group against the indexing API.
//
// The pending -> processing transition is conditional, so a group is
// dispatched at most once per slot arrival no matter how often the task is
// delivered. Per-URL failures never fail the task; only a storage error is
// returned to asynq, and the claim guard makes the retry harmless.
func (i *Indexer) ProcessSubmissionGroup(ctx context.Context, groupID string) error {
	ctx, span := tracer.Start(ctx, "dispatcher.group")
	defer span.End()

	group, err := i.datasource.GetSubmissionGroup(ctx, groupID)
	if err != nil {
		if isNotFound(err) {
			// Cancelled between enqueue and dispatch.
			logrus.Infof("submission group %s no longer exists, dropping task", groupID)
			return nil
		}
		return err
	}
	if group.Status != model.GroupPending {
		return nil
	}

	claimed, err := i.datasource.ClaimSubmissionGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	account, err := i.datasource.GetAccountByID(ctx, group.AccountID)
	if err != nil {
		return err
	}

	urls, err := i.datasource.GetURLsByGroup(ctx, groupID)
	if err != nil {
		return err
	}

	if !account.Eligible() {
		return i.abortGroup(ctx, group, urls, 0, "account no longer eligible")
	}

	requestType := submissionRequestType()

	allCompleted := true
	for idx := range urls {
		entry := urls[idx]

		// A redelivered task must not charge quota twice for the same page.
		seen, err := i.HasAttemptToday(ctx, account.AccountID, entry.URL)
		if err != nil {
			return err
		}
		if seen {
			continue
		}

		// Mark the URL in flight before the provider call so a crash between
		// submit and the outcome write is visible as a stuck submitted row.
		if err := i.datasource.UpdateURLStatus(ctx, entry.URLID, model.StatusSubmitted, ""); err != nil {
			return err
		}

		start := time.Now()
		_, submitErr := i.submitter.Submit(ctx, account.Credential, entry.URL, requestType)
		latency := time.Since(start)

		switch {
		case submitErr == nil:
			if err := i.RecordAttempt(ctx, account.AccountID, entry.URL, model.OutcomeCompleted, latency); err != nil {
				return err
			}
			if err := i.datasource.UpdateURLStatus(ctx, entry.URLID, model.StatusCompleted, ""); err != nil {
				return err
			}

		case errors.Is(submitErr, gsc.ErrQuotaExceeded):
			// The provider's count outranks ours; record the attempt so the
			// local ledger converges, fail the URL and stop. Every remaining
			// URL would burn a call that fails the same way until the UTC day
			// rolls over, so they go back to the backlog instead.
			if err := i.RecordAttempt(ctx, account.AccountID, entry.URL, model.OutcomeFailed, latency); err != nil {
				return err
			}
			if err := i.datasource.UpdateURLStatus(ctx, entry.URLID, model.StatusFailed, "quota exceeded"); err != nil {
				return err
			}
			return i.abortGroup(ctx, group, urls, idx+1, "provider quota exhausted")

		case errors.Is(submitErr, gsc.ErrAuthFailure):
			allCompleted = false
			if err := i.RecordAttempt(ctx, account.AccountID, entry.URL, model.OutcomeFailed, latency); err != nil {
				return err
			}
			if err := i.datasource.UpdateURLStatus(ctx, entry.URLID, model.StatusFailed, "authentication failed"); err != nil {
				return err
			}
			i.markAccountUnhealthy(ctx, account, submitErr.Error())
			// Every remaining URL would hit the same dead credential; send
			// them back to the backlog for the next pass instead.
			return i.abortGroup(ctx, group, urls, idx+1, "authentication failure")

		default:
			allCompleted = false
			if err := i.RecordAttempt(ctx, account.AccountID, entry.URL, model.OutcomeFailed, latency); err != nil {
				return err
			}
			if err := i.datasource.UpdateURLStatus(ctx, entry.URLID, model.StatusFailed, submitErr.Error()); err != nil {
				return err
			}
		}
	}

	status := model.GroupCompleted
	event := "submission.completed"
	if !allCompleted {
		status = model.GroupFailed
		event = "submission.failed"
	}
	if err := i.datasource.UpdateSubmissionGroupStatus(ctx, groupID, status); err != nil {
		return err
	}
	i.postGroupActions(ctx, group, event)
	return nil
}

// abortGroup fails the group and reverts its unprocessed URLs to the
// discovered backlog, starting at the given offset.
func (i *Indexer) abortGroup(ctx context.Context, group *model.SubmissionGroup, urls []model.DiscoveredURL, from int, reason string) error {
	remaining := make([]string, 0, len(urls)-from)
	for idx := from; idx < len(urls); idx++ {
		if urls[idx].Status == model.StatusScheduled {
			remaining = append(remaining, urls[idx].URLID)
		}
	}
	if len(remaining) > 0 {
		if err := i.datasource.RevertURLs(ctx, remaining); err != nil {
			return err
		}
	}
	if err := i.datasource.UpdateSubmissionGroupStatus(ctx, group.GroupID, model.GroupFailed); err != nil {
		return err
	}
	logrus.Warnf("submission group %s aborted: %s, %d URLs reverted", group.GroupID, reason, len(remaining))
	i.postGroupActions(ctx, group, "submission.failed")
	return nil
}

func (i *Indexer) postGroupActions(_ context.Context, group *model.SubmissionGroup, event string) {
	go func() {
		err := SendWebhook(NewWebhook{
			Event:   event,
			Payload: group,
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}

func submissionRequestType() string {
	cnf, err := config.Fetch()
	if err != nil || cnf.GSC.RequestType == "" {
		return "URL_UPDATED"
	}
	return cnf.GSC.RequestType
}

func isNotFound(err error) bool {
	var apiErr apierror.APIError
	return errors.As(err, &apiErr) && apiErr.Code == apierror.ErrNotFound
}
