// dynophore derives per-frame dynamic e-pharmacophore hypotheses from
// molecular-dynamics trajectory frames by sequencing the Schrödinger
// suite: protonate, split, site, grid, hypothesis.
//
// Usage:
//
//	dynophore run     --start 1 --end 1000 [--step 10] [--ncores N] [--batch N]
//	dynophore collect [--work-dir DIR]
//	dynophore status  [--work-dir DIR]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dynophore/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
}

var rootCmd = &cobra.Command{
	Use:   "dynophore",
	Short: "Dynamic e-pharmacophore generation from MD trajectory frames",
	Long: "Dynophore sequences the Schrödinger suite over molecular-dynamics\n" +
		"trajectory frames, deriving one e-pharmacophore hypothesis per frame.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return logging.Setup(rootFlags.logLevel, rootFlags.logFormat)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
