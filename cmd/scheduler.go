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

package main

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rankitohq/indexer/config"
	"github.com/rankitohq/indexer/internal/notification"
)

// schedulerCommands returns the command that runs the scheduling loop on the
// configured cadence. Each tick partitions every site's eligible backlog into
// time slots and enqueues the resulting submission groups.
func schedulerCommands(in *indexerInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "start indexer scheduler",
		Run: func(cmd *cobra.Command, args []string) {
			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			c := cron.New()
			_, err = c.AddFunc(conf.Scheduler.Cadence, func() {
				entry, err := in.indexer.RunScheduler(context.Background())
				if err != nil {
					logrus.Errorf("scheduler run failed: %v", err)
					notification.NotifyError(err)
					return
				}
				logrus.Infof("scheduled %d URLs across %d sites", entry.URLsScheduled, entry.SitesProcessed)
			})
			if err != nil {
				log.Fatalf("invalid scheduler cadence %q: %v", conf.Scheduler.Cadence, err)
			}

			log.Printf("Scheduler running with cadence %q", conf.Scheduler.Cadence)
			c.Run()
		},
	}

	return cmd
}
