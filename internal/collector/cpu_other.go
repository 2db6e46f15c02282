//go:build !windows

package collector

import "github.com/halfax/sysreport/internal/probe"

func wmiProcessors() probe.Result[[]wmiProcessor] {
	return probe.Unavailable[[]wmiProcessor]("WMI requires Windows")
}

func ntPerCoreFrequencies(logical int) probe.Result[[]ntCoreFrequency] {
	return probe.Unavailable[[]ntCoreFrequency]("kernel power interface requires Windows")
}
