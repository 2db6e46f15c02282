//go:build !windows

package collector

import "github.com/halfax/sysreport/internal/probe"

func wmiDesktopMonitors() probe.Result[[]wmiDesktopMonitor] {
	return probe.Unavailable[[]wmiDesktopMonitor]("WMI requires Windows")
}
