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
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/rankitohq/indexer/config"
)

// SubmissionRecoveryProcessor re-enqueues submission groups whose delayed
// task was lost, typically after a Redis flush. A group still pending well
// past its slot has no task coming for it; re-enqueueing is safe because the
// dispatcher's conditional claim tolerates duplicates.
type SubmissionRecoveryProcessor struct {
	indexer        *Indexer
	pollInterval   time.Duration
	stuckThreshold time.Duration
	stopCh         chan struct{}
	wg             sync.WaitGroup
	running        bool
	mu             sync.Mutex
}

func NewSubmissionRecoveryProcessor(indexer *Indexer) *SubmissionRecoveryProcessor {
	stuckThreshold := time.Hour
	cfg, err := config.Fetch()
	if err == nil && cfg.Scheduler.RecoveryStuckThresholdM > 0 {
		stuckThreshold = time.Duration(cfg.Scheduler.RecoveryStuckThresholdM) * time.Minute
	}

	return &SubmissionRecoveryProcessor{
		indexer:        indexer,
		pollInterval:   30 * time.Second,
		stuckThreshold: stuckThreshold,
		stopCh:         make(chan struct{}),
	}
}

func (p *SubmissionRecoveryProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx)
	}()

	logrus.Info("Submission recovery processor started")
}

func (p *SubmissionRecoveryProcessor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	logrus.Info("Submission recovery processor stopped")
}

func (p *SubmissionRecoveryProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SubmissionRecoveryProcessor) run(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Submission recovery processor context cancelled")
			return
		case <-p.stopCh:
			logrus.Info("Submission recovery processor stop signal received")
			return
		case <-ticker.C:
			p.recoverWithThreshold(ctx, p.stuckThreshold)
		}
	}
}

// RecoverStuckGroups triggers an immediate recovery pass with the provided
// threshold. Exposed for the manual trigger API endpoint.
func (i *Indexer) RecoverStuckGroups(ctx context.Context, threshold time.Duration) (int, error) {
	if threshold < 2*time.Minute {
		threshold = 2 * time.Minute
	}

	processor := NewSubmissionRecoveryProcessor(i)
	return processor.recoverWithThreshold(ctx, threshold), nil
}

func (p *SubmissionRecoveryProcessor) recoverWithThreshold(ctx context.Context, threshold time.Duration) int {
	cutoff := time.Now().Add(-threshold)
	stuckGroups, err := p.indexer.datasource.GetPendingGroupsOlderThan(ctx, cutoff)
	if err != nil {
		logrus.Errorf("failed to get stuck submission groups: %v", err)
		return 0
	}

	if len(stuckGroups) == 0 {
		return 0
	}

	logrus.Infof("Re-enqueueing %d stuck submission groups (threshold=%v)", len(stuckGroups), threshold)

	recovered := 0
	for idx := range stuckGroups {
		group := stuckGroups[idx]
		err := p.indexer.enqueuer.EnqueueGroupNow(ctx, &group)
		if err != nil {
			// A conflict means the original delayed task still exists, so
			// the group is not actually stuck.
			if errors.Is(err, asynq.ErrTaskIDConflict) {
				continue
			}
			logrus.Errorf("failed to re-enqueue stuck group %s: %v", group.GroupID, err)
			continue
		}
		recovered++
	}
	return recovered
}
