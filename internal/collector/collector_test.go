package collector

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	gopsnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"

	"github.com/halfax/sysreport/internal/platform"
	"github.com/halfax/sysreport/internal/probe"
)

// fakeExec serves canned command output (keyed by binary base name),
// file contents, and glob expansions. Anything not present degrades to
// Unavailable, same as the real executor.
type fakeExec struct {
	cmds  map[string]string
	files map[string]string
	globs map[string][]string
}

func (f fakeExec) Run(_ context.Context, _ time.Duration, name string, _ ...string) probe.Result[string] {
	key := strings.TrimSuffix(filepath.Base(name), ".exe")
	if out, ok := f.cmds[key]; ok {
		return probe.OK(out)
	}
	return probe.Unavailable[string](name + ": not found")
}

func (f fakeExec) ReadFile(path string) probe.Result[string] {
	if content, ok := f.files[path]; ok {
		return probe.OK(strings.TrimSpace(content))
	}
	return probe.Unavailable[string](path + ": not present")
}

func (f fakeExec) Glob(pattern string) []string {
	return f.globs[pattern]
}

var errNoReading = errors.New("reading not available")

// fakeSys serves canned OS statistics. Any reading left at its zero
// value degrades to an error, the same shape as a host where the
// underlying API is missing.
type fakeSys struct {
	vm         *mem.VirtualMemoryStat
	cpuInfo    []cpu.InfoStat
	logical    int
	physical   int
	partitions []disk.PartitionStat
	usage      map[string]*disk.UsageStat
	diskIO     map[string]disk.IOCountersStat
	ifaces     gopsnet.InterfaceStatList
	netIO      []gopsnet.IOCountersStat
	conns      []gopsnet.ConnectionStat
	hostInfo   *host.InfoStat
	temps      []sensors.TemperatureStat
}

func (f fakeSys) VirtualMemory(context.Context) (*mem.VirtualMemoryStat, error) {
	if f.vm == nil {
		return nil, errNoReading
	}
	return f.vm, nil
}

func (f fakeSys) CPUInfo(context.Context) ([]cpu.InfoStat, error) {
	if len(f.cpuInfo) == 0 {
		return nil, errNoReading
	}
	return f.cpuInfo, nil
}

func (f fakeSys) CPUCounts(_ context.Context, logical bool) (int, error) {
	n := f.physical
	if logical {
		n = f.logical
	}
	if n == 0 {
		return 0, errNoReading
	}
	return n, nil
}

func (f fakeSys) CPUPercent(context.Context, time.Duration, bool) ([]float64, error) {
	return nil, errNoReading
}

func (f fakeSys) Partitions(context.Context, bool) ([]disk.PartitionStat, error) {
	if f.partitions == nil {
		return nil, errNoReading
	}
	return f.partitions, nil
}

func (f fakeSys) Usage(_ context.Context, path string) (*disk.UsageStat, error) {
	if u, ok := f.usage[path]; ok {
		return u, nil
	}
	return nil, errNoReading
}

func (f fakeSys) DiskIOCounters(context.Context) (map[string]disk.IOCountersStat, error) {
	if f.diskIO == nil {
		return nil, errNoReading
	}
	return f.diskIO, nil
}

func (f fakeSys) Interfaces(context.Context) (gopsnet.InterfaceStatList, error) {
	if f.ifaces == nil {
		return nil, errNoReading
	}
	return f.ifaces, nil
}

func (f fakeSys) NetIOCounters(context.Context, bool) ([]gopsnet.IOCountersStat, error) {
	if f.netIO == nil {
		return nil, errNoReading
	}
	return f.netIO, nil
}

func (f fakeSys) Connections(context.Context, string) ([]gopsnet.ConnectionStat, error) {
	if f.conns == nil {
		return nil, errNoReading
	}
	return f.conns, nil
}

func (f fakeSys) HostInfo(context.Context) (*host.InfoStat, error) {
	if f.hostInfo == nil {
		return nil, errNoReading
	}
	return f.hostInfo, nil
}

func (f fakeSys) Temperatures(context.Context) ([]sensors.TemperatureStat, error) {
	if f.temps == nil {
		return nil, errNoReading
	}
	return f.temps, nil
}

func newTestCollector(t *testing.T, os platform.OS, fe fakeExec, opts ...Option) *Collector {
	t.Helper()
	all := append([]Option{WithExecutor(fe), WithTimeout(time.Second), withSysAPI(fakeSys{})}, opts...)
	return New(platform.Facts{OS: os}, all...)
}

func TestSourceTableFallsBackToOther(t *testing.T) {
	table := sourceTable{
		platform.Linux: {srcSysfs},
		platform.Other: {srcGopsutil},
	}
	if got := table.sourcesFor(platform.Linux); len(got) != 1 || got[0] != srcSysfs {
		t.Fatalf("linux sources = %v", got)
	}
	if got := table.sourcesFor(platform.Darwin); len(got) != 1 || got[0] != srcGopsutil {
		t.Fatalf("unlisted platform should fall back to Other, got %v", got)
	}
}

// A host where every probe fails must still produce a structurally
// complete report with sentinel values, not a panic or an error.
func TestCollectDegradesToSentinels(t *testing.T) {
	c := newTestCollector(t, platform.Other, fakeExec{})
	rep := c.Collect(context.Background())

	if rep == nil {
		t.Fatal("Collect returned nil")
	}
	if rep.Platform != "Other" {
		t.Fatalf("Platform = %q", rep.Platform)
	}
	if rep.Battery.Present {
		t.Fatal("battery should be absent with no probes")
	}
	if rep.Battery.Health != "No battery detected" {
		t.Fatalf("Health = %q", rep.Battery.Health)
	}
	if rep.CPU.TDP == "" || rep.CPU.Socket == "" {
		t.Fatal("string fields must hold a sentinel, not be empty")
	}
	if rep.CollectedAt.IsZero() {
		t.Fatal("CollectedAt not set")
	}
}

// With every source dark except the virtual-memory reading, the report
// still carries the usage arithmetic: 8 GB used of 16 GB is 50%.
func TestCollectMemoryUsageStandsAlone(t *testing.T) {
	sys := fakeSys{vm: &mem.VirtualMemoryStat{
		Total:       16 << 30,
		Available:   8 << 30,
		Used:        8 << 30,
		UsedPercent: 50.0,
	}}
	c := newTestCollector(t, platform.Other, fakeExec{}, withSysAPI(sys))
	rep := c.Collect(context.Background())

	if rep.Memory.TotalGB != 16.0 || rep.Memory.UsedGB != 8.0 || rep.Memory.AvailableGB != 8.0 {
		t.Fatalf("totals = %v/%v/%v", rep.Memory.TotalGB, rep.Memory.UsedGB, rep.Memory.AvailableGB)
	}
	if rep.Memory.UsedPercent != 50.0 {
		t.Fatalf("UsedPercent = %v", rep.Memory.UsedPercent)
	}
	if rep.Memory.ModuleCount != 0 {
		t.Fatalf("no module source should report modules, got %d", rep.Memory.ModuleCount)
	}
	if len(rep.Disk.Volumes) != 0 || len(rep.Network.Interfaces) != 0 {
		t.Fatal("dark sources must stay empty")
	}
}

// Two passes over unchanged host state must agree on everything except
// the collection timestamp.
func TestCollectConsecutivePassesAgree(t *testing.T) {
	sys := fakeSys{
		vm:      &mem.VirtualMemoryStat{Total: 16 << 30, Available: 8 << 30, Used: 8 << 30, UsedPercent: 50.0},
		logical: 8, physical: 4,
		partitions: []disk.PartitionStat{{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"}},
		usage:      map[string]*disk.UsageStat{"/": {Total: 512 << 30, Used: 256 << 30, Free: 256 << 30, UsedPercent: 50}},
	}
	c := newTestCollector(t, platform.Other, fakeExec{}, withSysAPI(sys))

	first := c.Collect(context.Background())
	second := c.Collect(context.Background())

	first.CollectedAt, second.CollectedAt = time.Time{}, time.Time{}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("consecutive passes disagree:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestFillString(t *testing.T) {
	dst := NotReported
	fillString(&dst, "value")
	if dst != "value" {
		t.Fatalf("sentinel not replaced: %q", dst)
	}
	fillString(&dst, "other")
	if dst != "value" {
		t.Fatalf("set field overwritten: %q", dst)
	}
	empty := NotReported
	fillString(&empty, "")
	if empty != NotReported {
		t.Fatalf("empty value should not fill: %q", empty)
	}
}
