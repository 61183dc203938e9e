// Package organize owns the on-disk layout of a run:
//
//	<work dir>/DYNOPHORE_ANALYSIS/PROCESSED_FILES/<frame>/  intermediate artifacts
//	<work dir>/DYNOPHORE_ANALYSIS/saved_HYPOTHESIS/         final hypothesis files
//
// Every frame works inside its own PROCESSED_FILES subdirectory, so
// parallel frames never touch the same paths and no locking is needed.
package organize

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	analysisDirName   = "DYNOPHORE_ANALYSIS"
	processedDirName  = "PROCESSED_FILES"
	hypothesisDirName = "saved_HYPOTHESIS"

	// HypothesisExt is the suffix of a final pharmacophore hypothesis file.
	HypothesisExt = ".phypo"
)

// OrganizationError reports a filesystem failure while filing artifacts.
type OrganizationError struct {
	Frame int // 0 when not frame-specific
	Op    string
	Err   error
}

func (e *OrganizationError) Error() string {
	if e.Frame > 0 {
		return fmt.Sprintf("organize frame %d: %s: %v", e.Frame, e.Op, e.Err)
	}
	return fmt.Sprintf("organize: %s: %v", e.Op, e.Err)
}

func (e *OrganizationError) Unwrap() error { return e.Err }

// Layout resolves all output paths under one working directory.
type Layout struct {
	workDir string
}

// NewLayout returns the layout rooted at workDir.
func NewLayout(workDir string) Layout {
	return Layout{workDir: workDir}
}

func (l Layout) AnalysisDir() string   { return filepath.Join(l.workDir, analysisDirName) }
func (l Layout) ProcessedDir() string  { return filepath.Join(l.AnalysisDir(), processedDirName) }
func (l Layout) HypothesisDir() string { return filepath.Join(l.AnalysisDir(), hypothesisDirName) }

// FrameDir is the private work directory of one frame.
func (l Layout) FrameDir(frame int) string {
	return filepath.Join(l.ProcessedDir(), strconv.Itoa(frame))
}

// Ensure creates the shared directory tree. MkdirAll makes it idempotent
// and safe to race across processes.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.AnalysisDir(), l.ProcessedDir(), l.HypothesisDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &OrganizationError{Op: "create " + dir, Err: err}
		}
	}
	return nil
}

// EnsureFrame creates (idempotently) and returns the frame's directory.
func (l Layout) EnsureFrame(frame int) (string, error) {
	dir := l.FrameDir(frame)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &OrganizationError{Frame: frame, Op: "create frame dir", Err: err}
	}
	return dir, nil
}

// Collect copies the frame's hypothesis files into saved_HYPOTHESIS and
// returns how many were filed. Copy (not move) keeps the frame directory a
// complete record; re-collecting overwrites with identical content, so the
// operation is idempotent.
func (l Layout) Collect(frame int) (int, error) {
	return l.collectDir(l.FrameDir(frame), frame)
}

// CollectAll sweeps every frame directory for hypothesis files. It is the
// recovery path when a run was interrupted after hypotheses were produced
// but before they were filed.
func (l Layout) CollectAll() (int, error) {
	entries, err := os.ReadDir(l.ProcessedDir())
	if err != nil {
		return 0, &OrganizationError{Op: "read processed dir", Err: err}
	}
	total := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		frame, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		n, err := l.collectDir(filepath.Join(l.ProcessedDir(), e.Name()), frame)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (l Layout) collectDir(dir string, frame int) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, &OrganizationError{Frame: frame, Op: "read frame dir", Err: err}
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), HypothesisExt) {
			continue
		}
		src := filepath.Join(dir, e.Name())
		dst := filepath.Join(l.HypothesisDir(), e.Name())
		if err := CopyFile(src, dst); err != nil {
			return n, &OrganizationError{Frame: frame, Op: "file " + e.Name(), Err: err}
		}
		n++
	}
	return n, nil
}

// CopyFile copies src to dst, truncating dst if it exists.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
