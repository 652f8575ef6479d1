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
	"fmt"
	"log/slog"
	"os"

	"github.com/gnames/epidump/internal/ent/report"
	"github.com/gnames/epidump/pkg/config"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Loads dataset families and recomputes totals",
	Long: `Acquires every configured dataset family, or only families given by
--family flags, loads their files and recomputes totals of every epidemic.
A report with the outcome of every family and file is printed at the end.`,
	Run: func(cmd *cobra.Command, _ []string) {
		families, err := cmd.Flags().GetStringSlice("family")
		if err != nil {
			slog.Error("Cannot get flag", "error", err)
			os.Exit(1)
		}
		reset, _ := cmd.Flags().GetBool("reset")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg := config.New(append(opts, config.OptReset(reset))...)
		s := newSession(cfg)
		rep := s.ed.Ingest(families)
		s.close()

		if asJSON {
			out, err := rep.JSON(true)
			if err != nil {
				slog.Error("Cannot encode report", "error", err)
				os.Exit(1)
			}
			fmt.Println(string(out))
		} else {
			for _, r := range rep {
				fmt.Println(r)
			}
		}

		if rep.Count(report.Error) > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceP("family", "f", nil,
		"Dataset family to load, can be repeated")
	runCmd.Flags().Bool("reset", false,
		"Removes daily stats a family loaded before")
	runCmd.Flags().Bool("json", false, "Prints the report as JSON")
}
