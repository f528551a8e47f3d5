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
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rankitohq/indexer"
	"github.com/rankitohq/indexer/config"
	"github.com/rankitohq/indexer/database"
	"github.com/rankitohq/indexer/internal/notification"
)

type CLI struct {
	cmd *cobra.Command
}

// indexerInstance holds the service instance and its configuration for the
// lifetime of a command.
type indexerInstance struct {
	indexer *indexer.Indexer
	cnf     *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration and initializes the service before any command
// runs.
func preRun(app *indexerInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("indexer.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newIndexer, err := setupIndexer(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.indexer = newIndexer
		app.cnf = cnf

		return nil
	}
}

func setupIndexer(cfg *config.Configuration) (*indexer.Indexer, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newIndexer, err := indexer.NewIndexer(db)
	if err != nil {
		return nil, fmt.Errorf("error creating indexer: %v", err)
	}
	return newIndexer, nil
}

// NewCLI assembles the root command and its subcommands.
func NewCLI() *CLI {
	var configFile string
	in := &indexerInstance{}

	var rootCmd = &cobra.Command{
		Use:   "indexer",
		Short: "Search indexing quota scheduler",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./indexer.json", "Configuration file for the indexer")

	rootCmd.PersistentPreRunE = preRun(in)

	rootCmd.AddCommand(serverCommands(in))
	rootCmd.AddCommand(workerCommands(in))
	rootCmd.AddCommand(schedulerCommands(in))
	rootCmd.AddCommand(migrateCommands(in))
	rootCmd.AddCommand(configCommands())

	return &CLI{cmd: rootCmd}
}

func (w CLI) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
