package collector

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/halfax/sysreport/internal/platform"
)

// wmiBattery mirrors Win32_Battery; the query lives in
// battery_windows.go.
type wmiBattery struct {
	EstimatedChargeRemaining uint16
	EstimatedRunTime         uint32
	BatteryStatus            uint16
}

// Battery reports charge state and the wear analysis. A machine with no
// battery yields Present=false and a filled Health string, which is a
// normal outcome, not a failure.
func (c *Collector) Battery(ctx context.Context) BatteryReport {
	rep := BatteryReport{Health: "No battery detected"}

	switch c.facts.OS {
	case platform.Windows:
		c.batteryFromWMI(ctx, &rep)
	case platform.Linux:
		c.batteryFromSysfs(&rep)
	}

	if rep.Present {
		rep.WearLevel, rep.Health = batteryWear(rep.DesignCapacity, rep.FullChargeCapacity)
	}
	return rep
}

// batteryWear computes the capacity lost to aging and grades it. With
// either capacity unknown the wear stays nil and the grade says so.
func batteryWear(design, full int64) (*float64, string) {
	if design <= 0 || full <= 0 {
		return nil, "Unknown (capacity not reported)"
	}
	wear := (1 - float64(full)/float64(design)) * 100
	if wear < 0 {
		wear = 0
	}
	var health string
	switch {
	case wear < 20:
		health = "Good"
	case wear < 50:
		health = "Fair"
	default:
		health = "Poor"
	}
	return &wear, health
}

// batteryFromSysfs walks /sys/class/power_supply. The kernel exposes
// either energy_* (µWh) or charge_* (µAh) capacity pairs depending on
// the driver; wear is a ratio so either unit works unconverted.
func (c *Collector) batteryFromSysfs(rep *BatteryReport) {
	bats := c.exec.Glob("/sys/class/power_supply/BAT*")
	if len(bats) == 0 {
		return
	}
	sort.Strings(bats)
	base := bats[0]

	readInt := func(name string) int64 {
		r := c.exec.ReadFile(base + "/" + name)
		if !r.IsOK() {
			return 0
		}
		n, err := strconv.ParseInt(r.Value, 10, 64)
		if err != nil {
			return 0
		}
		return n
	}

	rep.Present = true
	rep.Percent = float64(readInt("capacity"))
	rep.SecsLeft = -1

	if status := c.exec.ReadFile(base + "/status"); status.IsOK() {
		s := strings.ToLower(status.Value)
		rep.PowerOnline = s == "charging" || s == "full"
	}
	for _, ac := range c.exec.Glob("/sys/class/power_supply/AC*") {
		if online := c.exec.ReadFile(ac + "/online"); online.IsOK() && online.Value == "1" {
			rep.PowerOnline = true
		}
	}

	if design := readInt("energy_full_design"); design > 0 {
		rep.DesignCapacity = design
		rep.FullChargeCapacity = readInt("energy_full")
	} else if design := readInt("charge_full_design"); design > 0 {
		rep.DesignCapacity = design
		rep.FullChargeCapacity = readInt("charge_full")
	}
}

// psBatteryCapacity is the ConvertTo-Json shape of the root\wmi battery
// capacity classes.
type psBatteryCapacity struct {
	DesignedCapacity    int64 `json:"DesignedCapacity"`
	FullChargedCapacity int64 `json:"FullChargedCapacity"`
}

func (c *Collector) batteryFromWMI(ctx context.Context, rep *BatteryReport) {
	res := wmiBatteries()
	if !res.IsOK() || len(res.Value) == 0 {
		return
	}
	b := res.Value[0]
	rep.Present = true
	rep.Percent = float64(b.EstimatedChargeRemaining)
	rep.SecsLeft = -1
	if b.EstimatedRunTime > 0 && b.EstimatedRunTime < 0xFFFF {
		rep.SecsLeft = int64(b.EstimatedRunTime) * 60
	}
	// BatteryStatus 2 is "on AC".
	rep.PowerOnline = b.BatteryStatus == 2

	// The capacity pair lives in root\wmi, which the query adapter does
	// not reach; PowerShell bridges it.
	design := c.psCapacity(ctx, "BatteryStaticData")
	full := c.psCapacity(ctx, "BatteryFullChargedCapacity")
	if design > 0 {
		rep.DesignCapacity = design
	}
	if full > 0 {
		rep.FullChargeCapacity = full
	}
}

func (c *Collector) psCapacity(ctx context.Context, class string) int64 {
	out := c.exec.Run(ctx, c.timeout, "powershell", "-NoProfile", "-NonInteractive", "-Command",
		"Get-CimInstance -Namespace root\\wmi -ClassName "+class+" | Select-Object DesignedCapacity,FullChargedCapacity | ConvertTo-Json")
	if !out.IsOK() {
		return 0
	}
	trimmed := strings.TrimSpace(out.Value)
	if trimmed == "" {
		return 0
	}
	var caps []psBatteryCapacity
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &caps); err != nil {
			return 0
		}
	} else {
		var one psBatteryCapacity
		if err := json.Unmarshal([]byte(trimmed), &one); err != nil {
			return 0
		}
		caps = append(caps, one)
	}
	for _, entry := range caps {
		if entry.DesignedCapacity > 0 {
			return entry.DesignedCapacity
		}
		if entry.FullChargedCapacity > 0 {
			return entry.FullChargedCapacity
		}
	}
	return 0
}
