// Package pipeline runs the five-stage dynophore workflow for one frame:
// protonate, split, site, grid, hypothesis. Each stage consumes the
// previous stage's declared output inside the frame's private directory,
// and the first failing stage halts the frame.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"dynophore/internal/config"
	"dynophore/internal/frames"
	"dynophore/internal/logging"
	"dynophore/internal/mae"
	"dynophore/internal/organize"
	"dynophore/internal/schrod"
)

// Stage names, in execution order.
const (
	StageProtonate  = "protonate"
	StageSplit      = "split"
	StageSite       = "site"
	StageGrid       = "grid"
	StageHypothesis = "hypothesis"
)

// Stages lists the stage names in execution order.
var Stages = []string{StageProtonate, StageSplit, StageSite, StageGrid, StageHypothesis}

// StageFailure reports that one stage of one frame failed. Downstream
// stages of that frame are never attempted; other frames are unaffected.
type StageFailure struct {
	Frame int
	Stage string
	Err   error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("frame %d: stage %s: %v", e.Frame, e.Stage, e.Err)
}

func (e *StageFailure) Unwrap() error { return e.Err }

// Pipeline executes the stage sequence for single frames. It is safe for
// concurrent use: all per-frame state lives in the frame's directory.
type Pipeline struct {
	Toolkit  *schrod.Toolkit
	Runner   schrod.Runner
	Layout   organize.Layout
	Protocol config.Protocol

	// GridWait bounds how long to wait for the grid generator's archive to
	// appear after the tool exits; GridPoll is the poll interval. The tool
	// hands the archive off through its job server, so it can trail the
	// process exit.
	GridWait time.Duration
	GridPoll time.Duration
}

// New returns a Pipeline with the default grid-archive wait policy.
func New(tk *schrod.Toolkit, r schrod.Runner, l organize.Layout, p config.Protocol) *Pipeline {
	return &Pipeline{
		Toolkit:  tk,
		Runner:   r,
		Layout:   l,
		Protocol: p,
		GridWait: 2 * time.Minute,
		GridPoll: 2 * time.Second,
	}
}

// Process runs all stages for one frame. On success the frame's directory
// holds every intermediate artifact plus the hypothesis file.
func (p *Pipeline) Process(ctx context.Context, fr frames.Frame) error {
	logger := logging.New("pipeline").With(slog.Int("frame", fr.Index))

	dir, err := p.Layout.EnsureFrame(fr.Index)
	if err != nil {
		return err
	}
	n := artifacts{frame: fr.Index, ph: p.Protocol.PH}

	logger.Info("frame started")
	if err := p.protonate(ctx, fr, dir, n, logger); err != nil {
		return err
	}
	if err := p.split(ctx, dir, n, logger); err != nil {
		return err
	}
	site, err := p.site(dir, n, logger)
	if err != nil {
		return err
	}
	if err := p.grid(ctx, dir, n, site, logger); err != nil {
		return err
	}
	if err := p.hypothesis(ctx, dir, n, site, logger); err != nil {
		return err
	}
	logger.Info("frame completed", "hypothesis", n.hypothesisFile())
	return nil
}

// runTool dispatches one invocation and persists its log under the frame
// directory as <logName>.log.gz.
func (p *Pipeline) runTool(ctx context.Context, frame int, dir, stage, logName string, argv []string, logger *slog.Logger) error {
	res, err := p.Runner.Run(ctx, schrod.Invocation{Stage: stage, Argv: argv, Dir: dir})
	if res != nil && res.Log != "" {
		if werr := writeStageLog(dir, logName, res.Log); werr != nil {
			logger.Warn("stage log not persisted", "stage", stage, "error", werr)
		}
	}
	if err != nil {
		return &StageFailure{Frame: frame, Stage: stage, Err: err}
	}
	return nil
}

// site computes the ligand centroid from the split ligand structure. This
// is the only stage that stays in-process; everything scientific about it
// is just an unweighted coordinate mean.
func (p *Pipeline) site(dir string, n artifacts, logger *slog.Logger) (string, error) {
	s, err := mae.ReadFile(filepath.Join(dir, n.ligand()))
	if err != nil {
		return "", &StageFailure{Frame: n.frame, Stage: StageSite, Err: err}
	}
	site := mae.Site(s.Centroid())
	logger.Info("ligand site computed", "stage", StageSite, "atoms", s.NumAtoms(), "center", site)
	return site, nil
}
