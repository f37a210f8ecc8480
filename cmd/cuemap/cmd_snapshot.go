package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemap/cuemap/internal/cuemap"
	"github.com/cuemap/cuemap/pkg/config"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save or load the default tenant's snapshot",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save <dir>",
	Short: "Save the default tenant's engine state to a snapshot directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSnapshotSave(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var snapshotLoadCmd = &cobra.Command{
	Use:   "load <dir>",
	Short: "Load the default tenant's engine state from a snapshot directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSnapshotLoad(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	snapshotCmd.AddCommand(snapshotSaveCmd, snapshotLoadCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshotSave(dataDir string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	engine, err := loadDefaultTenant(cfg)
	if err != nil {
		return err
	}
	path := cuemap.SnapshotPath(dataDir, cuemap.DefaultTenant)
	if err := engine.Save(path); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	if !quiet {
		fmt.Printf("saved snapshot to %s\n", path)
	}
	return nil
}

func runSnapshotLoad(dataDir string) error {
	path := cuemap.SnapshotPath(dataDir, cuemap.DefaultTenant)
	engine := cuemap.NewEngine(nil)
	if err := engine.Load(path); err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	st := engine.Stats()
	if !quiet {
		fmt.Printf("loaded %d memories across %d cues from %s\n", st.TotalMemories, st.TotalCues, path)
	}
	return nil
}
