package schrod

import (
	"context"
	"fmt"
	"os/exec"
	"syscall"
)

// Invocation is one external tool run: the stage it belongs to, the full
// argv (binary first), and the directory the tool runs in. Each frame's
// invocations run inside that frame's private directory.
type Invocation struct {
	Stage string
	Argv  []string
	Dir   string
}

// Result carries the combined stdout+stderr of a tool run. On failure the
// log is still returned alongside the error for diagnostics; output files
// must be treated as absent or corrupt.
type Result struct {
	Log string
}

// Runner executes external tool invocations synchronously. It performs no
// retries; retry policy belongs to the batch driver.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
}

// ExecRunner runs invocations as real subprocesses. Tools run with reduced
// scheduling priority so minutes-scale jobs stay polite on shared hosts.
type ExecRunner struct {
	// Nice disables the "nice -n 10" prefix when false (tests, containers
	// without the binary).
	Nice bool
}

func (r ExecRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if len(inv.Argv) == 0 {
		return nil, fmt.Errorf("empty invocation for stage %s", inv.Stage)
	}

	argv := inv.Argv
	if r.Nice {
		argv = append([]string{"nice", "-n", "10"}, argv...)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = inv.Dir
	// Own process group, so cancellation reaps the tool's children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	out, err := cmd.CombinedOutput()
	res := &Result{Log: string(out)}
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, fmt.Errorf("%s: %s: %w", inv.Stage, argv[0], err)
	}
	return res, nil
}
