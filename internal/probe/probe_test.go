package probe

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestRunMissingBinaryIsUnavailable(t *testing.T) {
	r := System{}.Run(context.Background(), time.Second, "no-such-binary-sysreport")
	if r.Status != StatusUnavailable {
		t.Fatalf("status = %v, want StatusUnavailable", r.Status)
	}
	if r.Reason == "" {
		t.Fatal("unavailable result should carry a reason")
	}
}

func TestRunCapturesStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on /bin/echo semantics")
	}
	r := System{}.Run(context.Background(), time.Second, "echo", "hello")
	if !r.IsOK() {
		t.Fatalf("echo failed: %v %q", r.Status, r.Reason)
	}
	if r.Value != "hello\n" {
		t.Errorf("stdout = %q", r.Value)
	}
}

func TestRunTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on sleep(1)")
	}
	r := System{}.Run(context.Background(), 50*time.Millisecond, "sleep", "5")
	if r.Status != StatusUnavailable {
		t.Fatalf("status = %v, want StatusUnavailable on timeout", r.Status)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attr")
	if err := os.WriteFile(path, []byte("2400000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := System{}.ReadFile(path)
	if !r.IsOK() || r.Value != "2400000" {
		t.Fatalf("ReadFile = %+v", r)
	}

	if r := (System{}).ReadFile(filepath.Join(t.TempDir(), "missing")); r.Status != StatusUnavailable {
		t.Fatalf("missing file: status = %v, want StatusUnavailable", r.Status)
	}
}

type fakeExec struct {
	out    string
	status Status
}

func (f fakeExec) Run(ctx context.Context, timeout time.Duration, name string, args ...string) Result[string] {
	if f.status != StatusOK {
		return Result[string]{Status: f.status, Reason: "stubbed"}
	}
	return OK(f.out)
}

func (f fakeExec) ReadFile(path string) Result[string] { return Unavailable[string]("stubbed") }
func (f fakeExec) Glob(pattern string) []string        { return nil }

func TestHelperJSONMalformedIsDistinguishable(t *testing.T) {
	dir := t.TempDir()
	name := "fake_helper"
	if runtime.GOOS == "windows" {
		name = "fake_helper" // .exe suffix appended by helperPath
	}
	bin := filepath.Join(dir, name)
	if runtime.GOOS == "windows" {
		bin += ".exe"
	}
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	type payload struct {
		Success bool `json:"success"`
	}

	// Helper exists but prints garbage: Malformed, not Unavailable.
	r := HelperJSON[payload](context.Background(), fakeExec{out: "{not json"}, dir, "fake_helper", time.Second)
	if r.Status != StatusMalformed {
		t.Fatalf("garbage output: status = %v, want StatusMalformed", r.Status)
	}

	// Helper missing entirely: Unavailable.
	r = HelperJSON[payload](context.Background(), fakeExec{out: "{}"}, t.TempDir(), "fake_helper", time.Second)
	if r.Status != StatusUnavailable {
		t.Fatalf("missing helper: status = %v, want StatusUnavailable", r.Status)
	}

	// Well-formed JSON decodes.
	r = HelperJSON[payload](context.Background(), fakeExec{out: `{"success": true}`}, dir, "fake_helper", time.Second)
	if !r.IsOK() || !r.Value.Success {
		t.Fatalf("valid output: %+v", r)
	}
}
