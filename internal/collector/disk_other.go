//go:build !windows

package collector

import "github.com/halfax/sysreport/internal/probe"

func wmiDiskDrives() probe.Result[[]wmiDiskDrive] {
	return probe.Unavailable[[]wmiDiskDrive]("WMI requires Windows")
}
