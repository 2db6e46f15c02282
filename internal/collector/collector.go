// Package collector gathers hardware facts from every source the host
// exposes and merges them into a single Report. Collectors degrade
// field by field: a report with every field at its sentinel is a valid
// outcome, and no probe failure ever reaches the caller as an error.
package collector

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/halfax/sysreport/internal/platform"
	"github.com/halfax/sysreport/internal/probe"
)

// Collector holds the immutable inputs for collection passes. It is
// safe for concurrent use; each pass produces an independent Report.
type Collector struct {
	facts     platform.Facts
	exec      probe.Executor
	sys       sysAPI
	helperDir string
	timeout   time.Duration
	log       *log.Helper
}

// Option configures a Collector.
type Option func(*Collector)

// WithExecutor substitutes the adapter executor (used by tests).
func WithExecutor(e probe.Executor) Option {
	return func(c *Collector) { c.exec = e }
}

// WithHelperDir sets the directory searched for helper binaries.
func WithHelperDir(dir string) Option {
	return func(c *Collector) { c.helperDir = dir }
}

// WithTimeout sets the per-adapter invocation bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Collector) { c.timeout = d }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l log.Logger) Option {
	return func(c *Collector) { c.log = log.NewHelper(l) }
}

// New builds a Collector for the detected platform.
func New(facts platform.Facts, opts ...Option) *Collector {
	c := &Collector{
		facts:   facts,
		exec:    probe.System{},
		sys:     gopsutilAPI{},
		timeout: probe.DefaultTimeout,
		log:     log.NewHelper(log.NewStdLogger(os.Stderr)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect runs every domain collector and assembles a fresh Report.
// Collectors are independent, so they run concurrently; each writes its
// own result and the report is assembled only after all have joined.
// Cancelling ctx cancels every in-flight adapter call.
func (c *Collector) Collect(ctx context.Context) *Report {
	hostname, _ := os.Hostname()

	r := &Report{
		CollectedAt: time.Now().UTC(),
		Hostname:    hostname,
		Platform:    c.facts.OS.String(),
		SingleBoard: c.facts.SingleBoard,
	}

	var wg sync.WaitGroup
	run := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}

	run(func() { r.System = c.System(ctx) })
	run(func() { r.CPU = c.CPU(ctx) })
	run(func() { r.Memory = c.Memory(ctx) })
	run(func() { r.GPU = c.GPU(ctx) })
	run(func() { r.Disk = c.Disk(ctx) })
	run(func() { r.Network = c.Network(ctx) })
	run(func() { r.Battery = c.Battery(ctx) })
	run(func() { r.Monitors = c.Monitors(ctx) })
	run(func() { r.PCI = c.PCI(ctx) })

	wg.Wait()
	return r
}

// diag appends a diagnostic line and mirrors it to the logger; used by
// collectors for malformed-source notes the operator may care about.
func (c *Collector) diag(list []string, msg string) []string {
	c.log.Debug(msg)
	return append(list, msg)
}
