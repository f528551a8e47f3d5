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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5002"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"INDEXER_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"INDEXER_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"INDEXER_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"INDEXER_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"INDEXER_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"INDEXER_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"INDEXER_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"INDEXER_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"INDEXER_REDIS_SKIP_TLS_VERIFY"`
}

type QueueConfig struct {
	SubmissionQueue string `json:"submission_queue" envconfig:"INDEXER_QUEUE_SUBMISSION"`
	WebhookQueue    string `json:"webhook_queue" envconfig:"INDEXER_QUEUE_WEBHOOK"`
	NumberOfQueues  int    `json:"number_of_queues" envconfig:"INDEXER_QUEUE_NUMBER_OF_QUEUES"`
	MonitoringPort  string `json:"monitoring_port" envconfig:"INDEXER_QUEUE_MONITORING_PORT"`
}

// GSCConfig describes the external indexing API. The daily cap is a provider
// constant (200/day/credential for the Google Indexing API) surfaced here so
// deployments against other providers can adjust it.
type GSCConfig struct {
	Endpoint    string `json:"endpoint" envconfig:"INDEXER_GSC_ENDPOINT"`
	DailyCap    int    `json:"daily_cap" envconfig:"INDEXER_GSC_DAILY_CAP"`
	RequestType string `json:"request_type" envconfig:"INDEXER_GSC_REQUEST_TYPE"`
	TimeoutSec  int    `json:"timeout_sec" envconfig:"INDEXER_GSC_TIMEOUT_SEC"`
}

// SchedulerConfig tunes slot partitioning and discovery validation. The
// defaults encode the 48-slot / 30-minute / 24-hour window.
type SchedulerConfig struct {
	SlotCount               int    `json:"slot_count" envconfig:"INDEXER_SCHEDULER_SLOT_COUNT"`
	SlotIntervalMinutes     int    `json:"slot_interval_minutes" envconfig:"INDEXER_SCHEDULER_SLOT_INTERVAL_MINUTES"`
	Cadence                 string `json:"cadence" envconfig:"INDEXER_SCHEDULER_CADENCE"`
	ReachabilityTimeoutSec  int    `json:"reachability_timeout_sec" envconfig:"INDEXER_SCHEDULER_REACHABILITY_TIMEOUT_SEC"`
	ValidationBatchSize     int    `json:"validation_batch_size" envconfig:"INDEXER_SCHEDULER_VALIDATION_BATCH_SIZE"`
	RecoveryStuckThresholdM int    `json:"recovery_stuck_threshold_minutes" envconfig:"INDEXER_SCHEDULER_RECOVERY_STUCK_THRESHOLD_MINUTES"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"INDEXER_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"INDEXER_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"INDEXER_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"INDEXER_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Queue        QueueConfig      `json:"queue"`
	GSC          GSCConfig        `json:"gsc"`
	Scheduler    SchedulerConfig  `json:"scheduler"`
	Notification Notification     `json:"notification"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("indexer", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called indexer.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Rankito Indexer"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Queue.SubmissionQueue == "" {
		cnf.Queue.SubmissionQueue = "new:submission"
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "new:webhook"
	}
	if cnf.Queue.NumberOfQueues <= 0 {
		cnf.Queue.NumberOfQueues = 4
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5003"
	}

	if cnf.GSC.Endpoint == "" {
		cnf.GSC.Endpoint = "https://indexing.googleapis.com/v3/urlNotifications:publish"
	}
	if cnf.GSC.DailyCap <= 0 {
		cnf.GSC.DailyCap = 200
	}
	if cnf.GSC.RequestType == "" {
		cnf.GSC.RequestType = "URL_UPDATED"
	}
	if cnf.GSC.TimeoutSec <= 0 {
		cnf.GSC.TimeoutSec = 30
	}

	if cnf.Scheduler.SlotCount <= 0 {
		cnf.Scheduler.SlotCount = 48
	}
	if cnf.Scheduler.SlotIntervalMinutes <= 0 {
		cnf.Scheduler.SlotIntervalMinutes = 30
	}
	if cnf.Scheduler.Cadence == "" {
		cnf.Scheduler.Cadence = "@every 30m"
	}
	if cnf.Scheduler.ReachabilityTimeoutSec <= 0 {
		cnf.Scheduler.ReachabilityTimeoutSec = 5
	}
	if cnf.Scheduler.ValidationBatchSize <= 0 {
		cnf.Scheduler.ValidationBatchSize = 10
	}
	if cnf.Scheduler.RecoveryStuckThresholdM <= 0 {
		cnf.Scheduler.RecoveryStuckThresholdM = 60
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// SlotInterval returns the slot width as a duration, falling back to the
// 30-minute default when the config was never validated (tests).
func (cnf *Configuration) SlotInterval() time.Duration {
	if cnf.Scheduler.SlotIntervalMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(cnf.Scheduler.SlotIntervalMinutes) * time.Minute
}

// SlotCount returns the number of slots in the scheduling window, defaulting
// to 48.
func (cnf *Configuration) SlotCount() int {
	if cnf.Scheduler.SlotCount <= 0 {
		return 48
	}
	return cnf.Scheduler.SlotCount
}

// ReachabilityTimeout returns the HEAD-check timeout as a duration,
// defaulting to 5s.
func (cnf *Configuration) ReachabilityTimeout() time.Duration {
	if cnf.Scheduler.ReachabilityTimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(cnf.Scheduler.ReachabilityTimeoutSec) * time.Second
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
