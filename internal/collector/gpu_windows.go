//go:build windows

package collector

import "github.com/halfax/sysreport/internal/probe"

func wmiVideoControllers() probe.Result[[]wmiVideoController] {
	var rows []wmiVideoController
	q := "SELECT Name, AdapterRAM, DriverVersion, VideoProcessor, CurrentRefreshRate, VideoModeDescription, Status, DeviceID FROM Win32_VideoController"
	if r := probe.WMIQuery(q, &rows); !r.IsOK() {
		return probe.Unavailable[[]wmiVideoController](r.Reason)
	}
	return probe.OK(rows)
}
