//go:build windows

package collector

import "github.com/halfax/sysreport/internal/probe"

func wmiComputerSystems() probe.Result[[]wmiComputerSystem] {
	var rows []wmiComputerSystem
	if r := probe.WMIQuery("SELECT Manufacturer, Model FROM Win32_ComputerSystem", &rows); !r.IsOK() {
		return probe.Unavailable[[]wmiComputerSystem](r.Reason)
	}
	return probe.OK(rows)
}

func wmiBIOSInfo() probe.Result[[]wmiBIOS] {
	var rows []wmiBIOS
	if r := probe.WMIQuery("SELECT SerialNumber FROM Win32_BIOS", &rows); !r.IsOK() {
		return probe.Unavailable[[]wmiBIOS](r.Reason)
	}
	return probe.OK(rows)
}
