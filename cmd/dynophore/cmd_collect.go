package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dynophore/internal/organize"
)

var collectFlags struct {
	workDir string
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Sweep frame directories for hypothesis files and file them",
	Long: `Collect re-runs the final filing pass: every hypothesis file found under
PROCESSED_FILES is copied into saved_HYPOTHESIS. Useful after a run was
interrupted between hypothesis generation and filing. Idempotent.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		layout := organize.NewLayout(collectFlags.workDir)
		n, err := layout.CollectAll()
		if err != nil {
			return err
		}
		fmt.Printf("Filed %d hypothesis file(s) into %s\n", n, layout.HypothesisDir())
		return nil
	},
}

func init() {
	collectCmd.Flags().StringVar(&collectFlags.workDir, "work-dir", ".", "Directory DYNOPHORE_ANALYSIS lives under")
}
