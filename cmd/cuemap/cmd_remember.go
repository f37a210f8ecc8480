package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuemap/cuemap/internal/cuemap"
	"github.com/cuemap/cuemap/pkg/config"
)

var rememberCues []string

var rememberCmd = &cobra.Command{
	Use:   "remember <content>",
	Short: "Store a memory against a set of cues",
	Long: `Store a new memory with the given content, indexed under the cues
provided with --cues.

Examples:
  cuemap remember "Go channels are like pipes between goroutines" --cues go,concurrency
  cuemap remember "Meeting notes from standup" --cues meeting,team`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		content := strings.Join(args, " ")
		if err := runRemember(content); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rememberCmd.Flags().StringSliceVar(&rememberCues, "cues", nil, "comma-separated cues to index this memory under")
	rootCmd.AddCommand(rememberCmd)
}

func runRemember(content string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	engine, err := loadDefaultTenant(cfg)
	if err != nil {
		return err
	}

	result, err := engine.Remember(content, rememberCues)
	if err != nil {
		return fmt.Errorf("remember: %w", err)
	}

	if err := saveDefaultTenant(engine, cfg); err != nil {
		return err
	}

	if !quiet {
		fmt.Printf("stored %s\n", result.Record.ID)
		if len(result.RejectedCues) > 0 {
			fmt.Printf("rejected cues: %s\n", strings.Join(result.RejectedCues, ", "))
		}
	}
	return nil
}

// loadDefaultTenant opens the default tenant's engine from its snapshot,
// if one exists, for one-shot CLI commands that don't run the server.
func loadDefaultTenant(cfg *config.Config) (*cuemap.Engine, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("preparing data directory: %w", err)
	}
	engine := cuemap.NewEngine(nil)
	path := cuemap.SnapshotPath(cfg.Snapshot.DataDir, cuemap.DefaultTenant)
	if _, err := os.Stat(path); err == nil {
		if err := engine.Load(path); err != nil {
			return nil, fmt.Errorf("loading snapshot: %w", err)
		}
	}
	return engine, nil
}

func saveDefaultTenant(engine *cuemap.Engine, cfg *config.Config) error {
	path := cuemap.SnapshotPath(cfg.Snapshot.DataDir, cuemap.DefaultTenant)
	if err := engine.Save(path); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}
