//go:build windows

package collector

import "github.com/halfax/sysreport/internal/probe"

func wmiDiskDrives() probe.Result[[]wmiDiskDrive] {
	var rows []wmiDiskDrive
	q := "SELECT Index, Model, SerialNumber, MediaType, InterfaceType, Size FROM Win32_DiskDrive"
	if r := probe.WMIQuery(q, &rows); !r.IsOK() {
		return probe.Unavailable[[]wmiDiskDrive](r.Reason)
	}
	return probe.OK(rows)
}
