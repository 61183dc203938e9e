// Package batch fans per-frame pipeline runs out across a bounded worker
// pool, collects per-frame outcomes without letting one frame's failure
// abort the others, and journals outcomes to the run ledger.
package batch

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"dynophore/internal/frames"
	"dynophore/internal/ledger"
	"dynophore/internal/logging"
	"dynophore/internal/organize"
	"dynophore/internal/pipeline"
	"dynophore/internal/schrod"
)

// FrameResult is the outcome of one frame's pipeline.
type FrameResult struct {
	Index    int
	Attempts int
	Stage    string // failing stage name, empty unless a stage failed
	Err      error
}

// OK reports whether the frame succeeded.
func (r FrameResult) OK() bool { return r.Err == nil }

// Report aggregates all frame outcomes of one run.
type Report struct {
	Results []FrameResult
}

// Failed returns the indices of failed frames, in frame order.
func (r *Report) Failed() []int {
	var out []int
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res.Index)
		}
	}
	return out
}

// Succeeded returns the indices of succeeded frames, in frame order.
func (r *Report) Succeeded() []int {
	var out []int
	for _, res := range r.Results {
		if res.OK() {
			out = append(out, res.Index)
		}
	}
	return out
}

// OK reports whether every frame succeeded.
func (r *Report) OK() bool { return len(r.Failed()) == 0 }

// Driver dispatches frame pipelines in batches over a worker pool.
type Driver struct {
	Pipeline *pipeline.Pipeline
	Layout   organize.Layout

	Workers   int
	BatchSize int
	// Retries is how many extra attempts a failed frame gets. Transient
	// suite failures (license timeouts) are the usual reason to set it.
	Retries int

	// Ledger, when non-nil, journals the run. Ledger errors never fail
	// frames; they are logged and dropped.
	Ledger *ledger.Ledger

	logger *slog.Logger
}

// New returns a Driver over the given pipeline and layout.
func New(p *pipeline.Pipeline, workers, batchSize, retries int) *Driver {
	return &Driver{
		Pipeline:  p,
		Layout:    p.Layout,
		Workers:   workers,
		BatchSize: batchSize,
		Retries:   retries,
		logger:    logging.New("batch"),
	}
}

// Run processes all frames and returns the aggregate report. The returned
// error reports infrastructure problems only (layout creation, cancelled
// context); per-frame failures live in the report.
func (d *Driver) Run(ctx context.Context, r frames.Range, frs []frames.Frame) (*Report, error) {
	if d.logger == nil {
		d.logger = logging.New("batch")
	}
	if err := d.Layout.Ensure(); err != nil {
		return nil, err
	}

	var runID int64
	if d.Ledger != nil {
		id, err := d.Ledger.BeginRun(r.Start, r.End, r.Step, d.Workers)
		if err != nil {
			d.logger.Warn("ledger unavailable for this run", "error", err)
			d.Ledger = nil
		} else {
			runID = id
		}
	}

	results := make([]FrameResult, len(frs))
	batches := (len(frs) + d.BatchSize - 1) / d.BatchSize

	for b := 0; b*d.BatchSize < len(frs); b++ {
		lo := b * d.BatchSize
		hi := min(lo+d.BatchSize, len(frs))
		d.logger.Info("batch started", "batch", b+1, "batches", batches, "frames", hi-lo, "workers", d.Workers)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(d.Workers)
		for i := lo; i < hi; i++ {
			i := i
			g.Go(func() error {
				results[i] = d.processFrame(gctx, frs[i])
				d.record(runID, results[i])
				return nil
			})
		}
		_ = g.Wait() // frame errors are captured in results

		if err := ctx.Err(); err != nil {
			for i := hi; i < len(frs); i++ {
				results[i] = FrameResult{Index: frs[i].Index, Err: err}
				d.record(runID, results[i])
			}
			d.finishRun(runID, "canceled")
			return &Report{Results: results}, err
		}

		d.cleanupJobs(ctx)
		d.logger.Info("batch completed", "batch", b+1, "batches", batches)
	}

	report := &Report{Results: results}
	status := "ok"
	if !report.OK() {
		status = "failed"
	}
	d.finishRun(runID, status)
	return report, nil
}

// processFrame runs one frame's pipeline, re-attempting per the retry
// policy, and files its hypothesis on success.
func (d *Driver) processFrame(ctx context.Context, fr frames.Frame) FrameResult {
	res := FrameResult{Index: fr.Index}
	for attempt := 1; attempt <= d.Retries+1; attempt++ {
		res.Attempts = attempt
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}

		err := d.Pipeline.Process(ctx, fr)
		if err == nil {
			if _, ferr := d.Layout.Collect(fr.Index); ferr != nil {
				err = ferr
			}
		}
		if err == nil {
			res.Err = nil
			res.Stage = ""
			return res
		}

		res.Err = err
		res.Stage = ""
		var sf *pipeline.StageFailure
		if errors.As(err, &sf) {
			res.Stage = sf.Stage
		}
		d.logger.Warn("frame attempt failed",
			"frame", fr.Index, "attempt", attempt, "stage", res.Stage, "error", err)
	}
	return res
}

// record journals one frame outcome; best-effort.
func (d *Driver) record(runID int64, res FrameResult) {
	if d.Ledger == nil {
		return
	}
	rec := ledger.FrameRecord{Index: res.Index, Status: "ok", Attempts: res.Attempts}
	if !res.OK() {
		rec.Status = "failed"
		rec.Stage = res.Stage
		rec.Detail = res.Err.Error()
	}
	if err := d.Ledger.RecordFrame(runID, rec); err != nil {
		d.logger.Warn("ledger write failed", "frame", res.Index, "error", err)
	}
}

func (d *Driver) finishRun(runID int64, status string) {
	if d.Ledger == nil {
		return
	}
	if err := d.Ledger.FinishRun(runID, status); err != nil {
		d.logger.Warn("ledger finish failed", "error", err)
	}
}

// cleanupJobs reaps finished suite jobs between batches so the job server
// does not accumulate state across thousands of frames. Best-effort.
func (d *Driver) cleanupJobs(ctx context.Context) {
	tk := d.Pipeline.Toolkit
	if tk == nil {
		return
	}
	inv := schrod.Invocation{
		Stage: "jobcontrol",
		Argv:  []string{tk.JobControl(), "-delete", "finished"},
		Dir:   d.Layout.AnalysisDir(),
	}
	if _, err := d.Pipeline.Runner.Run(ctx, inv); err != nil {
		d.logger.Warn("job cleanup failed", "error", err)
	}
}
