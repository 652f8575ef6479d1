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

	"github.com/gnames/epidump/internal/ent/aggregate"
	"github.com/gnames/epidump/pkg/config"
	"github.com/gnames/gnfmt"
	"github.com/spf13/cobra"
)

// recomputeCmd represents the recompute command
var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recomputes totals of every epidemic from daily stats",
	Run: func(_ *cobra.Command, _ []string) {
		cfg := config.New(append(opts, config.OptSource("local"))...)
		s := newSession(cfg)
		res, err := s.ed.Recompute()
		s.close()
		if err != nil {
			slog.Error("Cannot recompute totals", "error", err)
			os.Exit(1)
		}
		printTotals(res)
	},
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints stored totals of every epidemic as JSON",
	Run: func(_ *cobra.Command, _ []string) {
		cfg := config.New(append(opts, config.OptSource("local"))...)
		s := newSession(cfg)
		res, err := s.ed.Overall()
		s.close()
		if err != nil {
			slog.Error("Cannot get totals", "error", err)
			os.Exit(1)
		}
		printTotals(res)
	},
}

func printTotals(ts []aggregate.Totals) {
	if ts == nil {
		ts = []aggregate.Totals{}
	}
	enc := gnfmt.GNjson{Pretty: true}
	out, err := enc.Encode(ts)
	if err != nil {
		slog.Error("Cannot encode totals", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func init() {
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(statsCmd)
}
