package collector

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	gopsnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"
)

// sysAPI is the OS statistics surface the collectors read through. It
// mirrors the gopsutil calls one-to-one so tests can substitute canned
// readings the same way fakeExec substitutes subprocess output.
type sysAPI interface {
	VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error)
	CPUInfo(ctx context.Context) ([]cpu.InfoStat, error)
	CPUCounts(ctx context.Context, logical bool) (int, error)
	CPUPercent(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	Partitions(ctx context.Context, all bool) ([]disk.PartitionStat, error)
	Usage(ctx context.Context, path string) (*disk.UsageStat, error)
	DiskIOCounters(ctx context.Context) (map[string]disk.IOCountersStat, error)
	Interfaces(ctx context.Context) (gopsnet.InterfaceStatList, error)
	NetIOCounters(ctx context.Context, pernic bool) ([]gopsnet.IOCountersStat, error)
	Connections(ctx context.Context, kind string) ([]gopsnet.ConnectionStat, error)
	HostInfo(ctx context.Context) (*host.InfoStat, error)
	Temperatures(ctx context.Context) ([]sensors.TemperatureStat, error)
}

// withSysAPI substitutes the OS statistics source (used by tests).
func withSysAPI(s sysAPI) Option {
	return func(c *Collector) { c.sys = s }
}

// gopsutilAPI is the production sysAPI.
type gopsutilAPI struct{}

func (gopsutilAPI) VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error) {
	return mem.VirtualMemoryWithContext(ctx)
}

func (gopsutilAPI) CPUInfo(ctx context.Context) ([]cpu.InfoStat, error) {
	return cpu.InfoWithContext(ctx)
}

func (gopsutilAPI) CPUCounts(ctx context.Context, logical bool) (int, error) {
	return cpu.CountsWithContext(ctx, logical)
}

func (gopsutilAPI) CPUPercent(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error) {
	return cpu.PercentWithContext(ctx, interval, percpu)
}

func (gopsutilAPI) Partitions(ctx context.Context, all bool) ([]disk.PartitionStat, error) {
	return disk.PartitionsWithContext(ctx, all)
}

func (gopsutilAPI) Usage(ctx context.Context, path string) (*disk.UsageStat, error) {
	return disk.UsageWithContext(ctx, path)
}

func (gopsutilAPI) DiskIOCounters(ctx context.Context) (map[string]disk.IOCountersStat, error) {
	return disk.IOCountersWithContext(ctx)
}

func (gopsutilAPI) Interfaces(ctx context.Context) (gopsnet.InterfaceStatList, error) {
	return gopsnet.InterfacesWithContext(ctx)
}

func (gopsutilAPI) NetIOCounters(ctx context.Context, pernic bool) ([]gopsnet.IOCountersStat, error) {
	return gopsnet.IOCountersWithContext(ctx, pernic)
}

func (gopsutilAPI) Connections(ctx context.Context, kind string) ([]gopsnet.ConnectionStat, error) {
	return gopsnet.ConnectionsWithContext(ctx, kind)
}

func (gopsutilAPI) HostInfo(ctx context.Context) (*host.InfoStat, error) {
	return host.InfoWithContext(ctx)
}

func (gopsutilAPI) Temperatures(ctx context.Context) ([]sensors.TemperatureStat, error) {
	return sensors.TemperaturesWithContext(ctx)
}
