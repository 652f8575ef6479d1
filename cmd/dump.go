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

	"github.com/gnames/epidump/internal/io/dumpio"
	"github.com/gnames/epidump/pkg/config"
	"github.com/spf13/cobra"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dumps epidemics, locations, sources and daily stats to CSV files",
	Run: func(cmd *cobra.Command, _ []string) {
		o := append(opts, config.OptSource("local"))
		if dir, _ := cmd.Flags().GetString("output"); dir != "" {
			o = append(o, config.OptDumpDir(dir))
		}
		cfg := config.New(o...)

		s := newSession(cfg)
		defer s.close()
		d, err := dumpio.New(s.db, cfg.DumpDir)
		if err != nil {
			slog.Error("Cannot create Dumper", "error", err)
			return
		}
		if err = s.ed.Dump(d); err != nil {
			slog.Error("Cannot dump database", "error", err)
			s.close()
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringP("output", "o", "", "Directory for CSV files")
}
