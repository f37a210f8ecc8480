package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemap/cuemap/internal/logging"
)

var (
	// Version is set during build
	Version = "0.1.0"

	// Global flags
	quiet    bool
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cuemap",
	Short: "Temporal-associative memory store",
	Long: `CueMap is a cue-based memory store: remember content against a set of
cues, recall by cue or free-text query, and let reinforcement, recency
decay, salience, and systems consolidation shape what surfaces over time.

Examples:
  cuemap serve
  cuemap remember "Go channels are like pipes between goroutines" --cues go,concurrency
  cuemap recall --cues go,concurrency
  cuemap recall --query "how do goroutines communicate"
  cuemap stats
  cuemap snapshot save ./data`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log_level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress output")

	cobra.OnInitialize(func() {
		level := logLevel
		if quiet {
			level = "error"
		}
		logging.Init(logging.Config{Level: level, Format: "console", Output: "stderr"})
	})
}
