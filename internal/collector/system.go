package collector

import (
	"context"
	"os"
	"strings"

	"github.com/halfax/sysreport/internal/platform"
)

// wmiComputerSystem mirrors Win32_ComputerSystem.
type wmiComputerSystem struct {
	Manufacturer string
	Model        string
}

// wmiBIOS mirrors Win32_BIOS.
type wmiBIOS struct {
	SerialNumber string
}

// System reports machine identity plus the storage and power summary
// shown on the overview tab.
func (c *Collector) System(ctx context.Context) SystemReport {
	rep := SystemReport{
		Model:  NotReported,
		Serial: NotReported,
	}

	if info, err := c.sys.HostInfo(ctx); err == nil {
		rep.Hostname = info.Hostname
	}
	if rep.Hostname == "" {
		rep.Hostname, _ = os.Hostname()
	}

	c.collectIdentity(&rep)
	c.collectStorageTotals(ctx, &rep)
	c.collectPowerSnapshot(ctx, &rep)
	return rep
}

func (c *Collector) collectIdentity(rep *SystemReport) {
	switch c.facts.OS {
	case platform.Windows:
		if cs := wmiComputerSystems(); cs.IsOK() && len(cs.Value) > 0 {
			model := strings.TrimSpace(cs.Value[0].Manufacturer + " " + cs.Value[0].Model)
			if model != "" {
				rep.Model = model
			}
		}
		if bios := wmiBIOSInfo(); bios.IsOK() && len(bios.Value) > 0 {
			if s := strings.TrimSpace(bios.Value[0].SerialNumber); s != "" {
				rep.Serial = s
			}
		}
	case platform.Linux:
		if c.facts.SingleBoard {
			rep.Model = c.facts.BoardModel
			if serial := c.exec.ReadFile("/sys/firmware/devicetree/base/serial-number"); serial.IsOK() {
				rep.Serial = strings.Trim(serial.Value, "\x00")
			}
			return
		}
		if id := smbiosSystemIdentity(); id.IsOK() {
			model := strings.TrimSpace(id.Value[0] + " " + id.Value[1])
			if model != "" {
				rep.Model = model
			}
			if id.Value[2] != "" {
				rep.Serial = id.Value[2]
			}
			return
		}
		// DMI files are world-readable where the firmware table is not.
		vendor := c.exec.ReadFile("/sys/class/dmi/id/sys_vendor")
		name := c.exec.ReadFile("/sys/class/dmi/id/product_name")
		if vendor.IsOK() || name.IsOK() {
			rep.Model = strings.TrimSpace(vendor.Value + " " + name.Value)
		}
		if serial := c.exec.ReadFile("/sys/class/dmi/id/product_serial"); serial.IsOK() && serial.Value != "" {
			rep.Serial = serial.Value
		}
	}
}

// collectStorageTotals sums capacity and free space across real
// mounted filesystems, skipping duplicate devices (bind mounts, btrfs
// subvolumes) so one disk is not counted twice.
func (c *Collector) collectStorageTotals(ctx context.Context, rep *SystemReport) {
	parts, err := c.sys.Partitions(ctx, false)
	if err != nil {
		rep.Diagnostics = c.diag(rep.Diagnostics, "system: partitions unavailable: "+err.Error())
		return
	}
	seen := make(map[string]bool)
	for _, p := range parts {
		if seen[p.Device] {
			continue
		}
		seen[p.Device] = true
		u, err := c.sys.Usage(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		rep.TotalStorageGB += toGB(u.Total)
		rep.FreeStorageGB += toGB(u.Free)
		rep.DriveCount++
	}
}

// collectPowerSnapshot fills the short battery line and the PSU entry;
// the full wear analysis lives in the battery collector.
func (c *Collector) collectPowerSnapshot(ctx context.Context, rep *SystemReport) {
	b := c.Battery(ctx)
	if b.Present {
		rep.Battery = &BatterySnapshot{
			Percent:     b.Percent,
			SecsLeft:    b.SecsLeft,
			PowerOnline: b.PowerOnline,
		}
	}

	if c.facts.OS == platform.Linux {
		for _, dir := range c.exec.Glob("/sys/class/power_supply/*") {
			t := c.exec.ReadFile(dir + "/type")
			if !t.IsOK() || t.Value != "Mains" {
				continue
			}
			name := dir[strings.LastIndexByte(dir, '/')+1:]
			status := "Offline"
			if online := c.exec.ReadFile(dir + "/online"); online.IsOK() && online.Value == "1" {
				status = "Online"
			}
			rep.PowerSupply = &PowerSupply{Name: name, Status: status}
			break
		}
	}
}
