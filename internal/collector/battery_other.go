//go:build !windows

package collector

import "github.com/halfax/sysreport/internal/probe"

func wmiBatteries() probe.Result[[]wmiBattery] {
	return probe.Unavailable[[]wmiBattery]("WMI requires Windows")
}
