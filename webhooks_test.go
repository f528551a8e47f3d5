/*
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
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/rankitohq/indexer/config"
)

func webhookTestConfig(redisAddr, webhookURL string) *config.Configuration {
	cnf := &config.Configuration{
		Redis: config.RedisConfig{Dns: redisAddr},
		Queue: config.QueueConfig{WebhookQueue: "indexer:webhook", NumberOfQueues: 1, SubmissionQueue: "indexer:submission"},
	}
	cnf.Notification.Webhook.Url = webhookURL
	return cnf
}

func TestSendWebhook(t *testing.T) {
	mr := miniredis.RunT(t)
	config.MockConfig(webhookTestConfig(mr.Addr(), "http://localhost:5001/webhook"))

	err := SendWebhook(NewWebhook{
		Event:   "submission.completed",
		Payload: map[string]interface{}{"group_id": "grp_1"},
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, mr.Keys())
}

func TestSendWebhookWithoutURL(t *testing.T) {
	mr := miniredis.RunT(t)
	config.MockConfig(webhookTestConfig(mr.Addr(), ""))

	// No webhook endpoint configured: the whole path is a no-op.
	err := SendWebhook(NewWebhook{Event: "submission.failed"})
	assert.NoError(t, err)
	assert.Empty(t, mr.Keys())
}

func TestProcessWebhook(t *testing.T) {
	mr := miniredis.RunT(t)
	config.MockConfig(webhookTestConfig(mr.Addr(), "http://localhost:5001/webhook"))

	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder(http.MethodPost, "http://localhost:5001/webhook",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]interface{}{"ok": true}))

	payload, err := json.Marshal(NewWebhook{Event: "account.unhealthy", Payload: map[string]interface{}{"account_id": "acc_1"}})
	assert.NoError(t, err)
	task := asynq.NewTask("indexer:webhook", payload)

	err = ProcessWebhook(context.Background(), task)
	assert.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestProcessWebhookRetriesServerErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	config.MockConfig(webhookTestConfig(mr.Addr(), "http://localhost:5001/webhook"))

	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	calls := 0
	httpmock.RegisterResponder(http.MethodPost, "http://localhost:5001/webhook",
		func(*http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return httpmock.NewStringResponse(http.StatusBadGateway, ""), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, "{}"), nil
		})

	payload, err := json.Marshal(NewWebhook{Event: "submission.completed"})
	assert.NoError(t, err)

	err = ProcessWebhook(context.Background(), asynq.NewTask("indexer:webhook", payload))
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestProcessWebhookMalformedPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	config.MockConfig(webhookTestConfig(mr.Addr(), "http://localhost:5001/webhook"))

	err := ProcessWebhook(context.Background(), asynq.NewTask("indexer:webhook", []byte("not json")))
	assert.Error(t, err)
}
