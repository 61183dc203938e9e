// Package schrodtest provides a canned Runner for tests: it records every
// invocation and fabricates the output files the real tools would write,
// without needing a suite installation.
package schrodtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"dynophore/internal/schrod"
)

// LigandMae is a minimal Maestro file with four atoms whose centroid is
// (0.5, 0.5, 0.5) — site string "0.50,0.50,0.50".
const LigandMae = `f_m_ct {
  s_m_title
  :::
  "split ligand"
  m_atom[4] {
    i_m_mmod_type
    r_m_x_coord
    r_m_y_coord
    r_m_z_coord
    s_m_pdb_atom_name
    :::
    1 3 0.000 0.000 0.000 " C1 "
    2 3 2.000 0.000 0.000 " C2 "
    3 3 0.000 2.000 0.000 " N1 "
    4 3 0.000 0.000 2.000 " O1 "
    :::
  }
}
`

// FakeRunner implements schrod.Runner. When FailHook returns a non-nil
// error for an invocation, that invocation fails without producing its
// output files, matching the real adapter's failure contract.
type FakeRunner struct {
	mu    sync.Mutex
	calls []schrod.Invocation

	FailHook func(inv schrod.Invocation) error

	// NoOutput lists stages whose invocations succeed without producing
	// their declared files, for testing output-existence checks.
	NoOutput map[string]bool
}

// FrameOf recovers the frame index from an invocation's directory (frame
// directories are named by index).
func FrameOf(inv schrod.Invocation) int {
	n, _ := strconv.Atoi(filepath.Base(inv.Dir))
	return n
}

// FailStage returns a hook failing every invocation of one stage.
func FailStage(stage string) func(schrod.Invocation) error {
	return func(inv schrod.Invocation) error {
		if inv.Stage == stage {
			return fmt.Errorf("simulated %s failure", stage)
		}
		return nil
	}
}

// FailFrame returns a hook failing every invocation belonging to frame n.
func FailFrame(n int) func(schrod.Invocation) error {
	return func(inv schrod.Invocation) error {
		if FrameOf(inv) == n {
			return fmt.Errorf("simulated failure for frame %d", n)
		}
		return nil
	}
}

func (r *FakeRunner) Run(_ context.Context, inv schrod.Invocation) (*schrod.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, inv)
	r.mu.Unlock()

	if r.FailHook != nil {
		if err := r.FailHook(inv); err != nil {
			return &schrod.Result{Log: "error: " + err.Error()}, err
		}
	}
	if !r.NoOutput[inv.Stage] {
		if err := r.fabricate(inv); err != nil {
			return nil, err
		}
	}
	return &schrod.Result{Log: inv.Stage + " ok"}, nil
}

// fabricate writes the files the real tool would have produced.
func (r *FakeRunner) fabricate(inv schrod.Invocation) error {
	write := func(name, body string) error {
		return os.WriteFile(filepath.Join(inv.Dir, name), []byte(body), 0o644)
	}
	switch inv.Stage {
	case "protonate":
		// prepwizard <in> <out> flags...
		return write(inv.Argv[2], "prepared structure")
	case "split":
		// run pv_convert.py -mode <mode> <in> -o <out>
		mode, out := inv.Argv[3], inv.Argv[6]
		if mode == "split_ligand" {
			return write(out, LigandMae)
		}
		return write(out, "receptor structure")
	case "grid":
		return write("glide-gridgen_1.zip", "grid archive")
	case "hypothesis":
		prefix := inv.Argv[len(inv.Argv)-1]
		return write(prefix+".phypo", "hypothesis")
	case "jobcontrol":
		return nil
	}
	return nil
}

// Calls returns a copy of the recorded invocations.
func (r *FakeRunner) Calls() []schrod.Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]schrod.Invocation(nil), r.calls...)
}

// StagesRun returns the distinct stage names in first-run order.
func (r *FakeRunner) StagesRun() []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range r.Calls() {
		if !seen[c.Stage] {
			seen[c.Stage] = true
			out = append(out, c.Stage)
		}
	}
	return out
}
