/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

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
package cmd

import (
	"log/slog"
	"os"

	"github.com/gnames/epidump/internal/io/dbio"
	"github.com/gnames/epidump/pkg/config"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Creates or updates database tables",
	Run: func(_ *cobra.Command, _ []string) {
		cfg := config.New(opts...)
		db, err := dbio.OpenMigrated(cfg)
		if err != nil {
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("Database is ready", "driver", cfg.DbDriver)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
