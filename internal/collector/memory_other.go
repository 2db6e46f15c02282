//go:build !windows

package collector

import "github.com/halfax/sysreport/internal/probe"

func wmiPhysicalMemoryModules() probe.Result[[]wmiPhysicalMemory] {
	return probe.Unavailable[[]wmiPhysicalMemory]("WMI requires Windows")
}
