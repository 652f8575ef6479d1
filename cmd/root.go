// Copyright © 2020 Dmitry Mozzherin <dmozzherin@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	epidump "github.com/gnames/epidump/pkg"
	"github.com/gnames/epidump/pkg/config"
	"github.com/gnames/gnsys"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//go:embed epidump.yaml
var configText string

var (
	opts []config.Option

	// LogLevel is the level of the default logger, --debug lowers it.
	LogLevel = new(slog.LevelVar)
)

type cfgData struct {
	CacheDir       string
	DumpDir        string
	Source         string
	LocalDir       string
	KaggleURL      string
	KaggleUser     string
	KaggleKey      string
	S3Endpoint     string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3SSL          bool
	DbDriver       string
	DbHost         string
	DbPort         int
	DbUser         string
	DbPass         string
	DbName         string
	SqlitePath     string
	BatchSize      int
	MaxAttempts    int
	BaseDelay      time.Duration
	Multiplier     float64
	FamilyAttempts int
	FileAttempts   int
	MetricsFile    string
	Datasets       []config.Dataset
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "epidump",
	Short: "Loads epidemic statistics datasets into a relational database",
	Long: `Downloads public datasets with daily epidemic statistics, normalizes
their differing layouts into daily observations per location, upserts them
into MySQL, PostgreSQL or SQLite and recomputes totals per epidemic.`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			LogLevel.Set(slog.LevelDebug)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		version, err := cmd.Flags().GetBool("version")
		if err != nil {
			slog.Error("Cannot get flag", "error", err)
			os.Exit(1)
		}
		if version {
			fmt.Printf("\nversion: %s\nbuild: %s\n\n", epidump.Version, epidump.Build)
			os.Exit(0)
		}

		_ = cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Flags().BoolP("version", "V", false, "Returns version and build date")
	rootCmd.PersistentFlags().Bool("debug", false, "Logs debug messages")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	var err error
	var homeDir, cfgDir string
	configFile := "epidump"

	// Find home directory.
	homeDir, err = os.UserHomeDir()
	if err != nil {
		slog.Error("Cannot find home dir", "error", err)
		os.Exit(1)
	}
	cfgDir = filepath.Join(homeDir, ".config")

	// Search config in home directory with name "epidump" (without extension).
	viper.AddConfigPath(cfgDir)
	viper.SetConfigName(configFile)

	configPath := filepath.Join(cfgDir, fmt.Sprintf("%s.yaml", configFile))
	touchConfigFile(configPath)

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		slog.Error("Config file epidump.yaml not found", "error", err)
		os.Exit(1)
	}
	opts = getOpts(homeDir)
}

// getOpts imports data from the configuration file. Some of the settings can
// be overriden by command line flags.
func getOpts(homeDir string) []config.Option {
	var res []config.Option
	cfg := cfgData{}
	err := viper.Unmarshal(&cfg)
	if err != nil {
		slog.Error("Cannot unmarshal config file", "error", err)
	}

	if cfg.CacheDir != "" {
		res = append(res, config.OptCacheDir(expandHome(cfg.CacheDir, homeDir)))
	}
	if cfg.DumpDir != "" {
		res = append(res, config.OptDumpDir(expandHome(cfg.DumpDir, homeDir)))
	}
	if cfg.Source != "" {
		res = append(res, config.OptSource(cfg.Source))
	}
	if cfg.LocalDir != "" {
		res = append(res, config.OptLocalDir(expandHome(cfg.LocalDir, homeDir)))
	}
	if cfg.KaggleURL != "" {
		res = append(res, config.OptKaggleURL(cfg.KaggleURL))
	}
	if cfg.KaggleUser == "" {
		cfg.KaggleUser = os.Getenv("KAGGLE_USERNAME")
	}
	if cfg.KaggleKey == "" {
		cfg.KaggleKey = os.Getenv("KAGGLE_KEY")
	}
	if cfg.KaggleUser != "" {
		res = append(res, config.OptKaggleUser(cfg.KaggleUser))
	}
	if cfg.KaggleKey != "" {
		res = append(res, config.OptKaggleKey(cfg.KaggleKey))
	}
	if cfg.S3Endpoint != "" {
		res = append(res, config.OptS3(
			cfg.S3Endpoint, cfg.S3Bucket, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3SSL,
		))
	}
	if cfg.DbDriver != "" {
		res = append(res, config.OptDbDriver(cfg.DbDriver))
	}
	if cfg.DbHost != "" {
		res = append(res, config.OptDbHost(cfg.DbHost))
	}
	if cfg.DbPort != 0 {
		res = append(res, config.OptDbPort(cfg.DbPort))
	}
	if cfg.DbUser != "" {
		res = append(res, config.OptDbUser(cfg.DbUser))
	}
	if cfg.DbPass != "" {
		res = append(res, config.OptDbPass(cfg.DbPass))
	}
	if cfg.DbName != "" {
		res = append(res, config.OptDbName(cfg.DbName))
	}
	if cfg.SqlitePath != "" {
		res = append(res, config.OptSqlitePath(expandHome(cfg.SqlitePath, homeDir)))
	}
	if cfg.BatchSize > 0 {
		res = append(res, config.OptBatchSize(cfg.BatchSize))
	}
	if cfg.MaxAttempts > 0 {
		if cfg.BaseDelay <= 0 {
			cfg.BaseDelay = time.Second
		}
		if cfg.Multiplier < 1 {
			cfg.Multiplier = 2
		}
		res = append(res, config.OptRetry(cfg.MaxAttempts, cfg.BaseDelay, cfg.Multiplier))
	}
	if cfg.FamilyAttempts > 0 {
		res = append(res, config.OptFamilyAttempts(cfg.FamilyAttempts))
	}
	if cfg.FileAttempts > 0 {
		res = append(res, config.OptFileAttempts(cfg.FileAttempts))
	}
	if cfg.MetricsFile != "" {
		res = append(res, config.OptMetricsFile(expandHome(cfg.MetricsFile, homeDir)))
	}
	if len(cfg.Datasets) > 0 {
		res = append(res, config.OptDatasets(cfg.Datasets))
	}
	return res
}

func expandHome(path, homeDir string) string {
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~\\") {
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// touchConfigFile checks if config file exists, and if not, it gets created.
func touchConfigFile(configPath string) {
	fileExists, _ := gnsys.FileExists(configPath)
	if fileExists {
		return
	}

	slog.Info("Creating config file", "path", configPath)
	createConfig(configPath)
}

// createConfig creates config file.
func createConfig(path string) {
	err := gnsys.MakeDir(filepath.Dir(path))
	if err != nil {
		slog.Error("Cannot create config dir", "error", err)
		os.Exit(1)
	}

	err = os.WriteFile(path, []byte(configText), 0644)
	if err != nil {
		slog.Error("Cannot write to config file", "error", err)
		os.Exit(1)
	}
}
