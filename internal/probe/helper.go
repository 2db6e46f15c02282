package probe

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Helper binaries are opaque subprocesses invoked with no arguments that
// must exit 0 and print a single JSON object on stdout within the
// timeout. Anything else is Unavailable; exit 0 with unparseable output
// is Malformed, so callers can tell a missing helper from a broken one.

// HelperJSON runs the named helper from dir and decodes its stdout into
// T. The decode is strict only at the top level: unknown keys and
// missing fields are left to the caller, per the helper contract.
func HelperJSON[T any](ctx context.Context, exec Executor, dir, name string, timeout time.Duration) Result[T] {
	path := helperPath(dir, name)
	if path == "" {
		return Unavailable[T](name + ": helper not found")
	}

	out := exec.Run(ctx, timeout, path)
	if !out.IsOK() {
		return Unavailable[T](out.Reason)
	}

	var v T
	if err := json.Unmarshal([]byte(out.Value), &v); err != nil {
		return Malformed[T](name + ": " + err.Error())
	}
	return OK(v)
}

// helperPath resolves a helper binary against dir, then the executable's
// own directory, then the working directory. Returns "" when absent.
func helperPath(dir, name string) string {
	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	var candidates []string
	if dir != "" {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), name))
	}
	candidates = append(candidates, name)

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}
