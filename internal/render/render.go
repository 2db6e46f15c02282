// Package render turns a collected report into the terminal text view.
// Sections mirror the collector domains; an empty section filter means
// all of them, and unknown names are reported back to the caller.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/halfax/sysreport/internal/collector"
)

// Section names accepted by the --section flag, in display order.
var sectionOrder = []string{
	"system", "cpu", "memory", "gpu", "disk", "network", "battery", "monitors", "pci",
}

// Sections returns the valid section names.
func Sections() []string {
	out := make([]string, len(sectionOrder))
	copy(out, sectionOrder)
	return out
}

// Text writes the selected sections of the report. A nil or empty
// selection renders everything.
func Text(w io.Writer, rep *collector.Report, sections []string) error {
	selected, err := normalizeSections(sections)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "System Report - %s (%s)\n", rep.Hostname, rep.Platform)
	fmt.Fprintf(w, "Collected at %s\n", rep.CollectedAt.Format("2006-01-02 15:04:05 MST"))

	for _, name := range sectionOrder {
		if !selected[name] {
			continue
		}
		fmt.Fprintf(w, "\n=== %s ===\n", strings.ToUpper(name))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		switch name {
		case "system":
			renderSystem(tw, rep)
		case "cpu":
			renderCPU(tw, &rep.CPU)
		case "memory":
			renderMemory(tw, &rep.Memory)
		case "gpu":
			renderGPU(tw, &rep.GPU)
		case "disk":
			renderDisk(tw, &rep.Disk)
		case "network":
			renderNetwork(tw, &rep.Network)
		case "battery":
			renderBattery(tw, &rep.Battery)
		case "monitors":
			renderMonitors(tw, &rep.Monitors)
		case "pci":
			renderPCI(tw, &rep.PCI)
		}
		tw.Flush()
	}
	return nil
}

func normalizeSections(sections []string) (map[string]bool, error) {
	selected := make(map[string]bool)
	if len(sections) == 0 {
		for _, s := range sectionOrder {
			selected[s] = true
		}
		return selected, nil
	}
	valid := make(map[string]bool, len(sectionOrder))
	for _, s := range sectionOrder {
		valid[s] = true
	}
	for _, s := range sections {
		name := strings.ToLower(strings.TrimSpace(s))
		if !valid[name] {
			return nil, fmt.Errorf("unknown section %q (valid: %s)", s, strings.Join(sectionOrder, ", "))
		}
		selected[name] = true
	}
	return selected, nil
}

func row(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "%s\t%v\n", label, value)
}

func renderSystem(w io.Writer, rep *collector.Report) {
	s := rep.System
	row(w, "Hostname", s.Hostname)
	row(w, "Model", s.Model)
	row(w, "Serial", s.Serial)
	row(w, "Storage", fmt.Sprintf("%.1f GB total, %.1f GB free across %d drive(s)",
		s.TotalStorageGB, s.FreeStorageGB, s.DriveCount))
	if s.Battery != nil {
		state := "on battery"
		if s.Battery.PowerOnline {
			state = "plugged in"
		}
		row(w, "Battery", fmt.Sprintf("%.0f%% (%s)", s.Battery.Percent, state))
	}
	if s.PowerSupply != nil {
		row(w, "Power supply", s.PowerSupply.Name+" ("+s.PowerSupply.Status+")")
	}
	renderDiagnostics(w, s.Diagnostics)
}

func renderCPU(w io.Writer, c *collector.CPUReport) {
	row(w, "Brand", c.Brand)
	row(w, "Architecture", c.Architecture)
	row(w, "Cores", fmt.Sprintf("%d physical / %d logical", c.PhysicalCores, c.LogicalCores))
	row(w, "SMT", c.SMTStatus)

	f := c.Frequency
	row(w, "Base frequency", mhz(f.BaseMHz))
	row(w, "Max frequency", mhz(f.MaxMHz))
	row(w, "Turbo", mhz(f.TurboMHz)+" ("+f.TurboSupport+")")
	row(w, "Current", mhz(f.CurrentMHz))
	if len(f.Sources) > 0 {
		row(w, "Frequency sources", strings.Join(f.Sources, ", "))
	}

	row(w, "L1 cache", c.CacheL1)
	row(w, "L2 cache", c.CacheL2)
	row(w, "L3 cache", c.CacheL3)
	row(w, "TDP", c.TDP)
	row(w, "Socket", c.Socket)
	row(w, "NUMA", c.NUMANodes)
	row(w, "Virtualization", c.Virtualization)

	if len(c.InstructionGroups) > 0 {
		var groups []string
		for g := range c.InstructionGroups {
			groups = append(groups, g)
		}
		sort.Strings(groups)
		for _, g := range groups {
			row(w, "ISA ("+g+")", strings.Join(c.InstructionGroups[g], " "))
		}
	}
	if len(c.Temperatures) > 0 {
		var keys []string
		for k := range c.Temperatures {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			row(w, "Temp "+k, c.Temperatures[k])
		}
	}
	renderDiagnostics(w, c.Diagnostics)
}

func mhz(v *float64) string {
	if v == nil {
		return collector.NotReported
	}
	return fmt.Sprintf("%.0f MHz", *v)
}

func renderMemory(w io.Writer, m *collector.MemoryReport) {
	row(w, "Total", fmt.Sprintf("%.1f GB", m.TotalGB))
	row(w, "Used", fmt.Sprintf("%.1f GB (%.1f%%)", m.UsedGB, m.UsedPercent))
	row(w, "Available", fmt.Sprintf("%.1f GB", m.AvailableGB))
	row(w, "Channels", m.ChannelConfig)
	row(w, "ECC", m.ECCDetail)
	row(w, "Form factor", m.FormFactor)
	row(w, "Max supported speed", m.MaxSupportedSpeed)

	for i, mod := range m.Modules {
		row(w, fmt.Sprintf("Module %d", i+1), fmt.Sprintf("%s: %.1f GB %s @ %s (%s %s)",
			mod.Slot, mod.CapacityGB, mod.Type, mod.Speed, mod.Manufacturer, mod.PartNumber))
	}
	if m.SPDHelper != nil {
		row(w, "SPD source", m.SPDHelper.Method)
	}
	renderDiagnostics(w, m.Diagnostics)
}

func renderGPU(w io.Writer, g *collector.GPUReport) {
	if len(g.GPUs) == 0 {
		row(w, "Adapters", "none detected")
	}
	for i, gpu := range g.GPUs {
		prefix := fmt.Sprintf("GPU %d", i)
		row(w, prefix, gpu.Name)
		if gpu.VRAMGB != nil {
			row(w, prefix+" VRAM", fmt.Sprintf("%.1f GB", *gpu.VRAMGB))
		}
		row(w, prefix+" driver", gpu.DriverVersion)
		if gpu.TemperatureC != nil {
			row(w, prefix+" temp", fmt.Sprintf("%.0f°C", *gpu.TemperatureC))
		}
		if gpu.CoreUtilization != nil {
			row(w, prefix+" load", fmt.Sprintf("%.0f%%", *gpu.CoreUtilization))
		}
		row(w, prefix+" link", gpu.LinkSpeed+" "+gpu.LinkWidth)
		row(w, prefix+" source", gpu.Source)
	}
	renderDiagnostics(w, g.Diagnostics)
}

func renderDisk(w io.Writer, d *collector.DiskReport) {
	for _, v := range d.Volumes {
		row(w, v.Mountpoint, fmt.Sprintf("%s (%s) %.1f/%.1f GB used (%.1f%%)",
			v.Device, v.Fstype, v.UsedGB, v.TotalGB, v.UsedPercent))
		row(w, v.Mountpoint+" model", v.Model+" ["+v.DiskType+"]")
		if v.IO != nil {
			row(w, v.Mountpoint+" io", fmt.Sprintf("read %s, written %s",
				humanize.Bytes(v.IO.ReadBytes), humanize.Bytes(v.IO.WriteBytes)))
		}
	}
	if d.NVMe != nil {
		for _, dev := range d.NVMe.Devices {
			label := "NVMe " + dev.DevicePath
			row(w, label, dev.FriendlyName+" "+humanize.Bytes(dev.CapacityBytes))
			if dev.WearLevelPct != nil {
				row(w, label+" wear", fmt.Sprintf("%.1f%%", *dev.WearLevelPct))
			}
			if dev.TemperatureC != nil {
				row(w, label+" temp", fmt.Sprintf("%.0f°C", *dev.TemperatureC))
			}
		}
	}
	renderDiagnostics(w, d.Diagnostics)
}

func renderNetwork(w io.Writer, n *collector.NetworkReport) {
	for _, iface := range n.Interfaces {
		state := "down"
		if iface.Up {
			state = "up"
		}
		row(w, iface.Name, fmt.Sprintf("%s, MTU %d, %s", state, iface.MTU, iface.Speed))
		for _, a := range iface.Addresses {
			row(w, iface.Name+" "+strings.ToLower(a.Family), a.Address+" / "+a.Netmask)
		}
	}
	row(w, "Traffic", fmt.Sprintf("sent %s, received %s",
		humanize.Bytes(n.IO.BytesSent), humanize.Bytes(n.IO.BytesRecv)))
	row(w, "Connections", n.Connections)
	renderDiagnostics(w, n.Diagnostics)
}

func renderBattery(w io.Writer, b *collector.BatteryReport) {
	if !b.Present {
		row(w, "Battery", b.Health)
		return
	}
	row(w, "Charge", fmt.Sprintf("%.0f%%", b.Percent))
	state := "on battery"
	if b.PowerOnline {
		state = "plugged in"
	}
	row(w, "Power", state)
	if b.WearLevel != nil {
		row(w, "Wear", fmt.Sprintf("%.1f%% (%s)", *b.WearLevel, b.Health))
	} else {
		row(w, "Wear", b.Health)
	}
	if b.DesignCapacity > 0 {
		row(w, "Capacity", fmt.Sprintf("%s of %s design",
			humanize.Comma(b.FullChargeCapacity), humanize.Comma(b.DesignCapacity)))
	}
	renderDiagnostics(w, b.Diagnostics)
}

func renderMonitors(w io.Writer, m *collector.MonitorReport) {
	if len(m.Monitors) == 0 {
		row(w, "Displays", "none detected")
	}
	for _, mon := range m.Monitors {
		row(w, mon.Name, mon.Resolution+" @ "+mon.RefreshRate)
		if mon.EDID != nil {
			e := mon.EDID
			row(w, mon.Name+" EDID", fmt.Sprintf("%s %s (week %d, %d)",
				e.Manufacturer, e.MonitorName, e.ManufactureWeek, e.ManufactureYear))
		}
	}
	for _, e := range m.Unmatched {
		row(w, "Unmatched EDID", e.Device+" "+e.MonitorName)
	}
	renderDiagnostics(w, m.Diagnostics)
}

func renderPCI(w io.Writer, p *collector.PCIReport) {
	groups := p.ByClass()
	if groups == nil {
		row(w, "Devices", "none detected")
		return
	}
	var classes []string
	for c := range groups {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	for _, c := range classes {
		for _, d := range groups[c] {
			detail := d.DeviceID
			if d.Driver != collector.NotReported {
				detail += " (driver " + d.Driver + ")"
			}
			row(w, c, detail)
		}
	}
	renderDiagnostics(w, p.Diagnostics)
}

func renderDiagnostics(w io.Writer, diags []string) {
	for _, d := range diags {
		row(w, "note", d)
	}
}
