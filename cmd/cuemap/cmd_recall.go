package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemap/cuemap/internal/cuemap"
	"github.com/cuemap/cuemap/internal/lexicon"
	"github.com/cuemap/cuemap/pkg/config"
)

var (
	recallCues    []string
	recallQuery   string
	recallLimit   int
	recallExplain bool
)

var recallCmd = &cobra.Command{
	Use:   "recall",
	Short: "Recall memories by cue or free-text query",
	Long: `Recall ranks memories matching the given cues (or, with --query, cues
resolved from free text through the lexicon) and prints the results as
JSON.

Examples:
  cuemap recall --cues go,concurrency
  cuemap recall --query "how do goroutines communicate" --limit 5`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRecall(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	recallCmd.Flags().StringSliceVar(&recallCues, "cues", nil, "comma-separated cues to recall by")
	recallCmd.Flags().StringVar(&recallQuery, "query", "", "free-text query resolved through the lexicon")
	recallCmd.Flags().IntVar(&recallLimit, "limit", 10, "maximum results")
	recallCmd.Flags().BoolVar(&recallExplain, "explain", false, "include scoring breakdown")
	rootCmd.AddCommand(recallCmd)
}

func runRecall() error {
	if len(recallCues) == 0 && recallQuery == "" {
		return fmt.Errorf("either --cues or --query is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	engine, err := loadDefaultTenant(cfg)
	if err != nil {
		return err
	}

	weighted := engine.Aliases.ExpandWeighted(recallCues)
	if recallQuery != "" {
		lex := lexicon.New(nil)
		resolved, err := lex.Resolve(recallQuery, recallLimit)
		if err != nil {
			return fmt.Errorf("resolving query: %w", err)
		}
		weighted = append(weighted, resolved...)
	}
	if len(weighted) == 0 {
		fmt.Println("[]")
		return nil
	}

	results, err := engine.Recall(cuemap.RecallQuery{
		Cues:  weighted,
		Limit: recallLimit,
		Flags: cuemap.RecallFlags{Explain: recallExplain},
	})
	if err != nil {
		return fmt.Errorf("recall: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
