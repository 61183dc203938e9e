package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"dynophore/internal/ledger"
	"dynophore/internal/organize"
)

var statusFlags struct {
	workDir string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the most recent run from the ledger",
	RunE: func(_ *cobra.Command, _ []string) error {
		layout := organize.NewLayout(statusFlags.workDir)
		path := filepath.Join(layout.AnalysisDir(), ledger.DefaultName)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("no run ledger at %s (has a run been started here?)", path)
		}

		led, err := ledger.Open(path)
		if err != nil {
			return err
		}
		defer led.Close()

		run, err := led.LatestRun()
		if err != nil {
			return err
		}
		if run == nil {
			fmt.Println("Ledger is empty; no runs recorded yet.")
			return nil
		}

		recs, err := led.Frames(run.ID)
		if err != nil {
			return err
		}

		var ok, failed []int
		for _, rec := range recs {
			if rec.Status == "ok" {
				ok = append(ok, rec.Index)
			} else {
				failed = append(failed, rec.Index)
			}
		}

		fmt.Printf("Run:      #%d (%s)\n", run.ID, run.Status)
		fmt.Printf("Frames:   %d..%d step %d, %d workers\n", run.Start, run.End, run.Step, run.Workers)
		fmt.Printf("Started:  %s\n", run.StartedAt)
		if run.FinishedAt != "" {
			fmt.Printf("Finished: %s\n", run.FinishedAt)
		}
		fmt.Printf("Succeeded: %s\n", formatIndexList(ok))
		fmt.Printf("Failed:    %s\n", formatIndexList(failed))
		for _, rec := range recs {
			if rec.Status != "ok" {
				fmt.Printf("  frame %d: stage %s after %d attempt(s): %s\n",
					rec.Index, rec.Stage, rec.Attempts, rec.Detail)
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusFlags.workDir, "work-dir", ".", "Directory DYNOPHORE_ANALYSIS lives under")
}
