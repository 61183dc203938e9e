// Package schrod is the adapter boundary to the Schrödinger suite. The
// orchestrator depends only on tool exit status, declared output files, and
// captured log text; everything else about the suite is opaque.
package schrod

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables naming the installation root, in lookup order.
// The versioned names match the release the pipeline was validated against.
var rootEnvVars = []string{"SCHRODINGER", "SCHRODINGER18", "SCHRODINGER18_4"}

// DefaultRoot is used when no environment variable is set.
const DefaultRoot = "/opt/schrodinger2018-4"

// pv_convert.py ships with the suite and is resolved by the suite's own
// script runner, not by path.
const pvConvertScript = "pv_convert.py"

// Toolkit locates the executables of one Schrödinger installation.
type Toolkit struct {
	Root string
}

// Discover resolves the installation root from the environment and verifies
// it is usable. It fails when the root directory does not exist or the
// preparation wizard is not executable, so a bad installation is caught
// before any frame is dispatched.
func Discover() (*Toolkit, error) {
	root := DefaultRoot
	for _, v := range rootEnvVars {
		if s := os.Getenv(v); s != "" {
			root = s
			break
		}
	}
	return New(root)
}

// New returns a Toolkit rooted at root, verifying the installation.
func New(root string) (*Toolkit, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("schrödinger root %s is not a directory (set $SCHRODINGER)", root)
	}
	tk := &Toolkit{Root: root}
	pw, err := os.Stat(tk.PrepWizard())
	if err != nil {
		return nil, fmt.Errorf("schrödinger installation at %s has no prepwizard: %w", root, err)
	}
	if pw.Mode()&0o111 == 0 {
		return nil, fmt.Errorf("%s is not executable", tk.PrepWizard())
	}
	return tk, nil
}

// PrepWizard is the protein preparation wizard (protonation assignment).
func (t *Toolkit) PrepWizard() string {
	return filepath.Join(t.Root, "utilities", "prepwizard")
}

// ScriptRunner is the suite's python script driver ($SCHRODINGER/run).
func (t *Toolkit) ScriptRunner() string {
	return filepath.Join(t.Root, "run")
}

// GlideGridGen is the receptor grid generator.
func (t *Toolkit) GlideGridGen() string {
	return filepath.Join(t.Root, "utilities", "generate_glide_grids")
}

// EPharmacophores is the pharmacophore hypothesis generator.
func (t *Toolkit) EPharmacophores() string {
	return filepath.Join(t.Root, "utilities", "epharmacophores")
}

// JobControl is the suite's job manager, used to reap finished jobs.
func (t *Toolkit) JobControl() string {
	return filepath.Join(t.Root, "jobcontrol")
}

// SplitArgs builds the pv_convert.py argv for one split mode
// ("split_ligand" or "split_receptor").
func (t *Toolkit) SplitArgs(mode, in, out string) []string {
	return []string{t.ScriptRunner(), pvConvertScript, "-mode", mode, in, "-o", out}
}
