//go:build windows

package collector

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/halfax/sysreport/internal/probe"
)

func wmiProcessors() probe.Result[[]wmiProcessor] {
	var rows []wmiProcessor
	q := "SELECT Name, Manufacturer, MaxClockSpeed, CurrentClockSpeed, ExtClock, L2CacheSize, L3CacheSize, NumberOfCores, NumberOfLogicalProcessors, SocketDesignation, VirtualizationFirmwareEnabled FROM Win32_Processor"
	if r := probe.WMIQuery(q, &rows); !r.IsOK() {
		return probe.Unavailable[[]wmiProcessor](r.Reason)
	}
	return probe.OK(rows)
}

// processorPowerInformation is PROCESSOR_POWER_INFORMATION from
// powrprof; one record per logical processor.
type processorPowerInformation struct {
	Number           uint32
	MaxMhz           uint32
	CurrentMhz       uint32
	MhzLimit         uint32
	MaxIdleState     uint32
	CurrentIdleState uint32
}

const procInformationLevel = 11 // POWER_INFORMATION_LEVEL ProcessorInformation

// ntPerCoreFrequencies asks the kernel power manager for each logical
// processor's current and maximum clock.
func ntPerCoreFrequencies(logical int) probe.Result[[]ntCoreFrequency] {
	if logical <= 0 {
		return probe.Unavailable[[]ntCoreFrequency]("logical core count unknown")
	}
	buf := make([]processorPowerInformation, logical)
	size := uint32(logical) * uint32(unsafe.Sizeof(buf[0]))
	err := windows.CallNtPowerInformation(procInformationLevel, nil, 0, unsafe.Pointer(&buf[0]), size)
	if err != nil {
		return probe.Unavailable[[]ntCoreFrequency](fmt.Sprintf("CallNtPowerInformation: %v", err))
	}
	out := make([]ntCoreFrequency, 0, logical)
	for _, p := range buf {
		out = append(out, ntCoreFrequency{Number: p.Number, MaxMHz: p.MaxMhz, CurrentMHz: p.CurrentMhz})
	}
	return probe.OK(out)
}
