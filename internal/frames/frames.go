// Package frames enumerates trajectory frame indices and locates their
// input structure files.
package frames

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// InvalidRangeError reports a frame range that cannot be enumerated.
type InvalidRangeError struct {
	Start, End, Step int
	Reason           string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid frame range start=%d end=%d step=%d: %s",
		e.Start, e.End, e.Step, e.Reason)
}

// Range describes the frame indices to process. Both ends are inclusive;
// matching the trajectory export convention, indices start at 1.
type Range struct {
	Start int
	End   int
	Step  int
}

// NewRange validates and returns a Range.
func NewRange(start, end, step int) (Range, error) {
	r := Range{Start: start, End: end, Step: step}
	switch {
	case step <= 0:
		return r, &InvalidRangeError{start, end, step, "step must be >= 1"}
	case start <= 0:
		return r, &InvalidRangeError{start, end, step, "start must be >= 1"}
	case start > end:
		return r, &InvalidRangeError{start, end, step, "start is past end"}
	}
	return r, nil
}

// Indices returns the ordered frame indices start, start+step, ... <= end.
// The result depends only on the Range value, so repeated calls agree.
func (r Range) Indices() []int {
	out := make([]int, 0, r.Len())
	for i := r.Start; i <= r.End; i += r.Step {
		out = append(out, i)
	}
	return out
}

// Len reports how many indices the range enumerates.
func (r Range) Len() int {
	if r.Step <= 0 || r.Start > r.End {
		return 0
	}
	return (r.End-r.Start)/r.Step + 1
}

// Contains reports whether n lies on the range lattice.
func (r Range) Contains(n int) bool {
	return n >= r.Start && n <= r.End && (n-r.Start)%r.Step == 0
}

// Frame is one snapshot to process: its index and input file path.
type Frame struct {
	Index int
	Path  string
}

// Select scans inputDir for <index>.mae files whose numeric basename falls
// on the range lattice, sorted by index. Files whose basename is not a bare
// integer are ignored. An empty selection is an error: it almost always
// means the range and the exported frames disagree.
func Select(inputDir string, r Range) ([]Frame, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	var selected []Frame
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".mae") {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSuffix(e.Name(), ".mae"))
		if err != nil {
			continue
		}
		if !r.Contains(idx) {
			continue
		}
		selected = append(selected, Frame{Index: idx, Path: filepath.Join(inputDir, e.Name())})
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no .mae files in %s within frames %d..%d step %d",
			inputDir, r.Start, r.End, r.Step)
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i].Index < selected[j].Index })
	return selected, nil
}
