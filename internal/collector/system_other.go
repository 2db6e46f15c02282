//go:build !windows

package collector

import "github.com/halfax/sysreport/internal/probe"

func wmiComputerSystems() probe.Result[[]wmiComputerSystem] {
	return probe.Unavailable[[]wmiComputerSystem]("WMI requires Windows")
}

func wmiBIOSInfo() probe.Result[[]wmiBIOS] {
	return probe.Unavailable[[]wmiBIOS]("WMI requires Windows")
}
