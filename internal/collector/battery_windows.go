//go:build windows

package collector

import "github.com/halfax/sysreport/internal/probe"

func wmiBatteries() probe.Result[[]wmiBattery] {
	var rows []wmiBattery
	q := "SELECT EstimatedChargeRemaining, EstimatedRunTime, BatteryStatus FROM Win32_Battery"
	if r := probe.WMIQuery(q, &rows); !r.IsOK() {
		return probe.Unavailable[[]wmiBattery](r.Reason)
	}
	return probe.OK(rows)
}
