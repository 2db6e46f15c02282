//go:build !linux

package collector

import "github.com/halfax/sysreport/internal/probe"

func smbiosMemoryModules() probe.Result[[]smbiosModule] {
	return probe.Unavailable[[]smbiosModule]("smbios table access is Linux only")
}

func smbiosSystemIdentity() probe.Result[[3]string] {
	return probe.Unavailable[[3]string]("smbios table access is Linux only")
}
