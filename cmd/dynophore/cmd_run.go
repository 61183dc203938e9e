package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"dynophore/internal/batch"
	"dynophore/internal/config"
	"dynophore/internal/frames"
	"dynophore/internal/ledger"
	"dynophore/internal/logging"
	"dynophore/internal/organize"
	"dynophore/internal/pipeline"
	"dynophore/internal/schrod"
)

var runFlags struct {
	start   int
	end     int
	step    int
	ncores  int
	batch   int
	retries int

	inputDir string
	workDir  string
	protocol string
	noLedger bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a frame range through the full pipeline",
	Long: `Run enumerates the frame indices start..end (both inclusive) with the
given step, locates each frame's <index>.mae input, and drives every frame
through protonation, complex splitting, site computation, grid generation
and e-pharmacophore hypothesis generation on a bounded worker pool.

Exit status is non-zero when any frame fails; the other frames still run.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.start, "start", 0, "First frame index (inclusive, required)")
	f.IntVar(&runFlags.end, "end", 0, "Last frame index (inclusive, required)")
	f.IntVar(&runFlags.step, "step", 1, "Step between frame indices")
	f.IntVar(&runFlags.ncores, "ncores", config.DefaultCores(), "CPU core budget for the run")
	f.IntVar(&runFlags.batch, "batch", config.DefaultCores(), "Frames dispatched per batch")
	f.IntVar(&runFlags.retries, "retries", 0, "Extra attempts per failed frame (transient suite failures)")
	f.StringVar(&runFlags.inputDir, "input-dir", "input_mae_files", "Directory of <index>.mae input files")
	f.StringVar(&runFlags.workDir, "work-dir", ".", "Directory DYNOPHORE_ANALYSIS is created under")
	f.StringVar(&runFlags.protocol, "protocol", "", "YAML protocol file overriding the default stage parameters")
	f.BoolVar(&runFlags.noLedger, "no-ledger", false, "Skip the SQLite run ledger")
	_ = runCmd.MarkFlagRequired("start")
	_ = runCmd.MarkFlagRequired("end")
}

func runRun(cmd *cobra.Command, _ []string) error {
	logger := logging.New("run")

	r, err := frames.NewRange(runFlags.start, runFlags.end, runFlags.step)
	if err != nil {
		return err
	}

	proto := config.DefaultProtocol()
	if runFlags.protocol != "" {
		if proto, err = config.LoadProtocol(runFlags.protocol); err != nil {
			return err
		}
	}

	cfg := config.Config{
		Frames:    r,
		InputDir:  runFlags.inputDir,
		WorkDir:   runFlags.workDir,
		Workers:   config.PoolSize(runFlags.ncores),
		BatchSize: runFlags.batch,
		Retries:   runFlags.retries,
		Protocol:  proto,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	tk, err := schrod.Discover()
	if err != nil {
		return config.Errorf(err, "schrödinger toolchain")
	}

	frs, err := frames.Select(cfg.InputDir, r)
	if err != nil {
		return config.Errorf(err, "frame selection")
	}
	logger.Info("run configured",
		"frames", len(frs), "start", r.Start, "end", r.End, "step", r.Step,
		"workers", cfg.Workers, "batch", cfg.BatchSize, "suite", tk.Root)

	layout := organize.NewLayout(cfg.WorkDir)
	if err := layout.Ensure(); err != nil {
		return err
	}

	var led *ledger.Ledger
	if !runFlags.noLedger {
		led, err = ledger.Open(filepath.Join(layout.AnalysisDir(), ledger.DefaultName))
		if err != nil {
			logger.Warn("run ledger disabled", "error", err)
		} else {
			defer led.Close()
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(tk, schrod.ExecRunner{Nice: true}, layout, cfg.Protocol)
	driver := batch.New(p, cfg.Workers, cfg.BatchSize, cfg.Retries)
	driver.Ledger = led

	report, runErr := driver.Run(ctx, r, frs)
	if report != nil {
		fmt.Printf("Frames succeeded: %s\n", formatIndexList(report.Succeeded()))
		fmt.Printf("Frames failed:    %s\n", formatIndexList(report.Failed()))
		fmt.Printf("Hypotheses in:    %s\n", layout.HypothesisDir())
	}
	if runErr != nil {
		return runErr
	}
	if !report.OK() {
		return fmt.Errorf("%d of %d frames failed", len(report.Failed()), len(report.Results))
	}
	return nil
}
