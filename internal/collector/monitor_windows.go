//go:build windows

package collector

import "github.com/halfax/sysreport/internal/probe"

func wmiDesktopMonitors() probe.Result[[]wmiDesktopMonitor] {
	var rows []wmiDesktopMonitor
	q := "SELECT Name, ScreenWidth, ScreenHeight FROM Win32_DesktopMonitor"
	if r := probe.WMIQuery(q, &rows); !r.IsOK() {
		return probe.Unavailable[[]wmiDesktopMonitor](r.Reason)
	}
	return probe.OK(rows)
}
