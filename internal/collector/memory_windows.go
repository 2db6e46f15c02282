//go:build windows

package collector

import (
	"github.com/halfax/sysreport/internal/probe"
)

func wmiPhysicalMemoryModules() probe.Result[[]wmiPhysicalMemory] {
	var rows []wmiPhysicalMemory
	q := "SELECT Capacity, Speed, Manufacturer, PartNumber, SerialNumber, DeviceLocator, SMBIOSMemoryType, FormFactor, TotalWidth, DataWidth, Attributes FROM Win32_PhysicalMemory"
	if r := probe.WMIQuery(q, &rows); !r.IsOK() {
		return probe.Unavailable[[]wmiPhysicalMemory](r.Reason)
	}
	return probe.OK(rows)
}
