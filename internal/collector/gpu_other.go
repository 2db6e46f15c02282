//go:build !windows

package collector

import "github.com/halfax/sysreport/internal/probe"

func wmiVideoControllers() probe.Result[[]wmiVideoController] {
	return probe.Unavailable[[]wmiVideoController]("WMI requires Windows")
}
