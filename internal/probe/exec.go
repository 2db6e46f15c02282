package probe

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds a single adapter invocation. Individual call
// sites may pass a tighter or looser bound, never an unbounded one.
const DefaultTimeout = 5 * time.Second

// Executor is the seam between collectors and the outside world. The
// System implementation shells out and reads the real filesystem; tests
// substitute fakes.
type Executor interface {
	// Run executes a command and returns its stdout. Missing binaries,
	// non-zero exits, and timeouts all collapse to Unavailable.
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) Result[string]

	// ReadFile reads a small file (sysfs/procfs attribute) whole.
	ReadFile(path string) Result[string]

	// Glob expands a filesystem pattern; a failed or empty match is an
	// empty slice, never an error.
	Glob(pattern string) []string
}

// System is the production Executor.
type System struct{}

func (System) Run(ctx context.Context, timeout time.Duration, name string, args ...string) Result[string] {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if _, err := exec.LookPath(name); err != nil {
		return Unavailable[string](name + ": not found")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Unavailable[string](name + ": timed out")
		}
		return Unavailable[string](name + ": " + exitReason(err))
	}
	return OK(string(out))
}

func (System) ReadFile(path string) Result[string] {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return Unavailable[string](path + ": permission denied")
		}
		return Unavailable[string](path + ": not present")
	}
	return OK(strings.TrimSpace(string(data)))
}

func (System) Glob(pattern string) []string {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}
	return matches
}

func exitReason(err error) string {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ProcessState.String()
	}
	return err.Error()
}
