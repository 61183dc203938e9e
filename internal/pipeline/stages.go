package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"dynophore/internal/frames"
	"dynophore/internal/organize"
)

// artifacts names every per-frame file. All names are relative to the
// frame directory and keyed by the frame index, so frames never collide.
type artifacts struct {
	frame int
	ph    float64
}

func (a artifacts) input() string       { return fmt.Sprintf("%d.mae", a.frame) }
func (a artifacts) preparedTmp() string { return fmt.Sprintf("%d_pH%.1f_prepared.mae", a.frame, a.ph) }
func (a artifacts) prepared() string    { return fmt.Sprintf("%d_prepared.mae", a.frame) }
func (a artifacts) ligand() string      { return fmt.Sprintf("%d_prepared-out_lig.mae", a.frame) }
func (a artifacts) receptor() string    { return fmt.Sprintf("%d_prepared-out_recep.mae", a.frame) }
func (a artifacts) gridCSV() string     { return fmt.Sprintf("%d_grid_input.csv", a.frame) }
func (a artifacts) gridZip() string     { return fmt.Sprintf("%d_grid.zip", a.frame) }
func (a artifacts) hypoPrefix() string  { return fmt.Sprintf("%d_hypo", a.frame) }
func (a artifacts) hypothesisFile() string {
	return a.hypoPrefix() + organize.HypothesisExt
}

// protonate stages the input file into the frame directory and runs the
// preparation wizard at the configured pH.
func (p *Pipeline) protonate(ctx context.Context, fr frames.Frame, dir string, n artifacts, logger *slog.Logger) error {
	if err := organize.CopyFile(fr.Path, filepath.Join(dir, n.input())); err != nil {
		return &StageFailure{Frame: n.frame, Stage: StageProtonate, Err: fmt.Errorf("stage input: %w", err)}
	}

	argv := []string{
		p.Toolkit.PrepWizard(), n.input(), n.preparedTmp(),
		"-NOJOBID", "-noimpref", "-noepik",
		"-propka_pH", formatFloat(p.Protocol.PH),
		"-keepfarwat",
	}
	if err := p.runTool(ctx, n.frame, dir, StageProtonate, StageProtonate, argv, logger); err != nil {
		return err
	}

	if err := os.Rename(filepath.Join(dir, n.preparedTmp()), filepath.Join(dir, n.prepared())); err != nil {
		return &StageFailure{Frame: n.frame, Stage: StageProtonate, Err: fmt.Errorf("prepared structure missing: %w", err)}
	}

	// The wizard leaves protassign scratch files behind in -NOJOBID mode.
	for _, suffix := range []string{"-protassign.log", "-protassign.mae", "-protassign-out.mae"} {
		os.Remove(filepath.Join(dir, strconv.Itoa(n.frame)+suffix))
	}
	logger.Info("structure prepared", "stage", StageProtonate, "ph", p.Protocol.PH)
	return nil
}

// split extracts the ligand and the receptor from the prepared complex.
func (p *Pipeline) split(ctx context.Context, dir string, n artifacts, logger *slog.Logger) error {
	for _, part := range []struct {
		mode, out, logName string
	}{
		{"split_ligand", n.ligand(), "split_ligand"},
		{"split_receptor", n.receptor(), "split_receptor"},
	} {
		argv := p.Toolkit.SplitArgs(part.mode, n.prepared(), part.out)
		if err := p.runTool(ctx, n.frame, dir, StageSplit, part.logName, argv, logger); err != nil {
			return err
		}
	}
	logger.Info("complex split", "stage", StageSplit, "ligand", n.ligand(), "receptor", n.receptor())
	return nil
}

// grid writes the grid-generator input CSV and runs it, then claims the
// generated archive under the frame's own name.
func (p *Pipeline) grid(ctx context.Context, dir string, n artifacts, site string, logger *slog.Logger) error {
	if err := p.writeGridCSV(dir, n, site); err != nil {
		return &StageFailure{Frame: n.frame, Stage: StageGrid, Err: err}
	}

	argv := []string{p.Toolkit.GlideGridGen(), n.gridCSV()}
	if err := p.runTool(ctx, n.frame, dir, StageGrid, StageGrid, argv, logger); err != nil {
		return err
	}

	zip, err := p.awaitGridArchive(ctx, dir)
	if err != nil {
		return &StageFailure{Frame: n.frame, Stage: StageGrid, Err: err}
	}
	if err := organize.CopyFile(zip, filepath.Join(dir, n.gridZip())); err != nil {
		return &StageFailure{Frame: n.frame, Stage: StageGrid, Err: err}
	}
	logger.Info("receptor grid built", "stage", StageGrid, "archive", n.gridZip())
	return nil
}

// writeGridCSV emits the one-receptor input table generate_glide_grids
// expects: receptor file, site center, and empty constraint columns.
func (p *Pipeline) writeGridCSV(dir string, n artifacts, site string) error {
	f, err := os.Create(filepath.Join(dir, n.gridCSV()))
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	records := [][]string{
		{"rec_file", "cent_coor", "hbond_cons", "lig_asl", "res_asl"},
		{n.receptor(), site, "", "", ""},
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// awaitGridArchive waits for the newest *gridgen*.zip in dir. The grid
// generator's job server can finish writing the archive after the driver
// process exits, hence the bounded poll.
func (p *Pipeline) awaitGridArchive(ctx context.Context, dir string) (string, error) {
	deadline := time.Now().Add(p.GridWait)
	for {
		if path := newestGridZip(dir); path != "" {
			return path, nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("no gridgen archive appeared within %s", p.GridWait)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.GridPoll):
		}
	}
}

func newestGridZip(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestMod time.Time
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.Contains(name, "gridgen") || !strings.HasSuffix(name, ".zip") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) {
			best = filepath.Join(dir, name)
			bestMod = info.ModTime()
		}
	}
	return best
}

// hypothesis generates the e-pharmacophore hypothesis in place and
// verifies the declared output file exists. That file existing is the
// frame's success criterion.
func (p *Pipeline) hypothesis(ctx context.Context, dir string, n artifacts, site string, logger *slog.Logger) error {
	proto := p.Protocol
	argv := []string{
		p.Toolkit.EPharmacophores(), "-WAIT",
		"-rec_file", n.receptor(),
		"-lig_file", n.ligand(),
		"-site_center=" + site,
		"-in_place",
		"-fd", "",
		"-f", strconv.Itoa(proto.Features),
		"-site_dist", formatFloat(proto.SiteDist),
		"-pair_dist", formatFloat(proto.PairDist),
		"-xvol", "-scale", formatFloat(proto.XvolScale),
		"-buff", formatFloat(proto.Buffer),
		"-limit", formatFloat(proto.Limit),
		"-HOST", proto.Host,
		"-j", n.hypoPrefix(),
	}
	if err := p.runTool(ctx, n.frame, dir, StageHypothesis, StageHypothesis, argv, logger); err != nil {
		return err
	}

	if _, err := os.Stat(filepath.Join(dir, n.hypothesisFile())); err != nil {
		return &StageFailure{Frame: n.frame, Stage: StageHypothesis,
			Err: fmt.Errorf("hypothesis file not produced: %w", err)}
	}
	logger.Info("hypothesis generated", "stage", StageHypothesis)
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// writeStageLog persists one tool invocation's combined output as
// <name>.log.gz in the frame directory, replacing any previous attempt's.
func writeStageLog(dir, name, text string) error {
	f, err := os.Create(filepath.Join(dir, name+".log.gz"))
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(text)); err != nil {
		zw.Close()
		f.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
