package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/halfax/sysreport/internal/platform"
	"github.com/halfax/sysreport/internal/probe"
)

// wmiPhysicalMemory mirrors Win32_PhysicalMemory. Declared here,
// untagged, so the Linux build of the collector still compiles; the
// query itself lives in memory_windows.go.
type wmiPhysicalMemory struct {
	Capacity         uint64
	Speed            uint32
	Manufacturer     string
	PartNumber       string
	SerialNumber     string
	DeviceLocator    string
	SMBIOSMemoryType uint16
	FormFactor       uint16
	TotalWidth       uint16
	DataWidth        uint16
	Attributes       uint32
}

// smbiosModule is a normalized SMBIOS type-17 record, produced by the
// go-smbios walk on Linux.
type smbiosModule struct {
	Locator      string
	SizeBytes    uint64
	SpeedMTs     uint32
	MemoryType   string
	FormFactor   string
	Manufacturer string
	PartNumber   string
	Rank         int
}

// SMBIOS memory-type codes seen in Win32_PhysicalMemory.
var memoryTypeNames = map[uint16]string{
	20: "DDR",
	21: "DDR2",
	22: "DDR2 FB-DIMM",
	24: "DDR3",
	26: "DDR4",
	34: "DDR5",
}

// SMBIOS form-factor codes.
var formFactorNames = map[uint16]string{
	1: "Other", 2: "SIP", 3: "DIP", 4: "ZIP", 5: "SOJ",
	6: "Proprietary", 7: "SIMM", 8: "DIMM", 9: "TSOP", 10: "PGA",
	11: "RIMM", 12: "SO-DIMM", 13: "SRIMM", 14: "SMD", 15: "SSMP",
	16: "QFP", 17: "TQFP", 18: "SOIC", 19: "LCC", 20: "PLCC",
	21: "BGA", 22: "FPBGA", 23: "LGA", 24: "FB-DIMM", 25: "LRDIMM",
}

// toGB converts bytes to binary gigabytes. All byte fields in the
// report go through this once, at collection.
func toGB(b uint64) float64 {
	return float64(b) / (1 << 30)
}

// Memory collects usage totals, per-module inventory, and the extended
// platform detail (channels, ECC, timings, NUMA, controller), then
// merges the optional SPD helper output on top.
func (c *Collector) Memory(ctx context.Context) MemoryReport {
	rep := MemoryReport{
		ChannelConfig:     NotReported,
		ECCDetail:         ECCUnknown.String(),
		FormFactor:        NotReported,
		CASLatency:        NotReported,
		Temperature:       NotReported,
		RankInfo:          NotReported,
		BankInfo:          NotReported,
		SPDTiming:         SPDTiming{CAS: NotReported, RAS: NotReported, RCD: NotReported, RP: NotReported},
		ControllerInfo:    NotReported,
		NUMAMapping:       NotReported,
		MaxSupportedSpeed: NotReported,
	}

	if vm, err := c.sys.VirtualMemory(ctx); err == nil {
		rep.TotalGB = toGB(vm.Total)
		rep.AvailableGB = toGB(vm.Available)
		rep.UsedGB = toGB(vm.Used)
		rep.UsedPercent = vm.UsedPercent
	} else {
		rep.Diagnostics = c.diag(rep.Diagnostics, "memory: usage totals unavailable: "+err.Error())
	}

	c.collectMemoryModules(ctx, &rep)
	rep.ModuleCount = len(rep.Modules)

	if rep.ChannelConfig == NotReported && len(rep.Modules) > 0 {
		rep.ChannelConfig = channelDescription(rep.Modules)
	}

	if c.facts.OS == platform.Linux && !c.facts.SingleBoard {
		c.memoryDetailFromDmidecode(ctx, &rep)
		rep.NUMAMapping = c.numaMapping(ctx)
		if rep.ControllerInfo == NotReported {
			rep.ControllerInfo = c.linuxControllerInfo(ctx)
		}
	}
	if c.facts.SingleBoard {
		rep.FormFactor = "SO-DIMM (Onboard SoC)"
		rep.ControllerInfo = "SoC Integrated Memory Controller (Shared RAM)"
		rep.NUMAMapping = "Single SoC (UMA - Unified Memory)"
		rep.MaxSupportedSpeed = "LPDDR4/LPDDR5 (SoC Spec)"
	}

	if t := c.memoryTemperature(ctx); t != "" {
		rep.Temperature = t
	}

	if rep.MaxSupportedSpeed == NotReported {
		if speed := maxSupportedMemorySpeed(c.cpuBrand(ctx)); speed != "" {
			rep.MaxSupportedSpeed = speed
		}
	}

	c.mergeSPDHelper(ctx, &rep)
	return rep
}

// collectMemoryModules walks the platform's module sources in priority
// order, stopping at the first that produces entries.
func (c *Collector) collectMemoryModules(ctx context.Context, rep *MemoryReport) {
	for _, src := range memoryModuleSources.sourcesFor(c.facts.OS) {
		if len(rep.Modules) > 0 {
			return
		}
		switch src {
		case srcBoard:
			if c.facts.SingleBoard {
				rep.Modules = []MemoryModule{{
					Slot:         "SODIMM (Onboard)",
					CapacityGB:   rep.TotalGB,
					Speed:        "Unknown (System on Chip)",
					Type:         "LPDDR4/LPDDR5",
					Manufacturer: "Broadcom",
					PartNumber:   "SoC Integrated",
				}}
			}
		case srcWMI:
			c.modulesFromWMI(rep)
		case srcSMBIOS:
			c.modulesFromSMBIOS(rep)
		case srcDmidecode:
			c.modulesFromDmidecode(ctx, rep)
		}
	}
}

// modulesFromWMI fills modules and the WMI-derived extended fields from
// a single Win32_PhysicalMemory pass.
func (c *Collector) modulesFromWMI(rep *MemoryReport) {
	res := wmiPhysicalMemoryModules()
	if !res.IsOK() {
		if res.Status == probe.StatusUnavailable && c.facts.OS == platform.Windows {
			rep.Diagnostics = c.diag(rep.Diagnostics, "memory: "+res.Reason)
		}
		return
	}

	for _, m := range res.Value {
		typeName := memoryTypeNames[m.SMBIOSMemoryType]
		if typeName == "" {
			typeName = fmt.Sprintf("Type %d", m.SMBIOSMemoryType)
		}
		speed := "Unknown"
		if m.Speed > 0 {
			speed = fmt.Sprintf("%d MT/s", m.Speed)
		}
		rep.Modules = append(rep.Modules, MemoryModule{
			Slot:         orUnknown(m.DeviceLocator),
			CapacityGB:   toGB(m.Capacity),
			Speed:        speed,
			Type:         typeName,
			Manufacturer: orUnknown(strings.TrimSpace(m.Manufacturer)),
			PartNumber:   orUnknown(strings.TrimSpace(m.PartNumber)),
		})
	}
	if len(res.Value) == 0 {
		return
	}

	first := res.Value[0]

	// TotalWidth exceeding DataWidth means extra check bits are wired.
	if first.TotalWidth > 0 && first.DataWidth > 0 {
		if first.TotalWidth > first.DataWidth {
			rep.ECC = ECCEnabled
		} else {
			rep.ECC = ECCDisabled
		}
		rep.ECCDetail = rep.ECC.String()
	}

	if name, ok := formFactorNames[first.FormFactor]; ok {
		rep.FormFactor = name
	} else if first.FormFactor != 0 {
		rep.FormFactor = fmt.Sprintf("Form Factor %d", first.FormFactor)
	}

	// Attributes bit 2 marks dual-rank.
	if first.Attributes != 0 {
		if first.Attributes&4 != 0 {
			rep.RankInfo = "Dual-Rank (DR)"
		} else {
			rep.RankInfo = "Single-Rank (SR)"
		}
	}
	rep.BankInfo = bankEstimate(first.Speed)
}

// bankEstimate guesses the bank count from module speed. Heuristic,
// labeled as such in the output.
func bankEstimate(speed uint32) string {
	switch {
	case speed >= 2400:
		return "8 Banks (heuristic)"
	case speed >= 1600:
		return "4-8 Banks (DDR3/DDR4, heuristic)"
	case speed > 0:
		return "4 Banks (heuristic)"
	default:
		return NotReported
	}
}

// modulesFromSMBIOS reads the firmware tables directly; Linux only, a
// no-op elsewhere.
func (c *Collector) modulesFromSMBIOS(rep *MemoryReport) {
	res := smbiosMemoryModules()
	if !res.IsOK() {
		return
	}
	for _, m := range res.Value {
		if m.SizeBytes == 0 {
			continue
		}
		speed := "Unknown"
		if m.SpeedMTs > 0 {
			speed = fmt.Sprintf("%d MT/s", m.SpeedMTs)
		}
		rep.Modules = append(rep.Modules, MemoryModule{
			Slot:         orUnknown(m.Locator),
			CapacityGB:   toGB(m.SizeBytes),
			Speed:        speed,
			Type:         orUnknown(m.MemoryType),
			Manufacturer: orUnknown(m.Manufacturer),
			PartNumber:   orUnknown(m.PartNumber),
		})
		if rep.FormFactor == NotReported && m.FormFactor != "" {
			rep.FormFactor = m.FormFactor
		}
		if rep.RankInfo == NotReported && m.Rank > 0 {
			if m.Rank >= 2 {
				rep.RankInfo = "Dual-Rank (DR)"
			} else {
				rep.RankInfo = "Single-Rank (SR)"
			}
		}
	}
}

// modulesFromDmidecode shells out to dmidecode and parses its type-17
// blocks. Requires root on most systems; a denial is just Unavailable.
func (c *Collector) modulesFromDmidecode(ctx context.Context, rep *MemoryReport) {
	out := c.exec.Run(ctx, c.timeout, "dmidecode", "-t", "memory")
	if !out.IsOK() {
		return
	}
	rep.Modules = append(rep.Modules, parseDmidecodeModules(out.Value)...)
}

// parseDmidecodeModules extracts populated "Memory Device" blocks.
func parseDmidecodeModules(out string) []MemoryModule {
	var modules []MemoryModule
	var cur *MemoryModule
	flush := func() {
		if cur != nil && cur.CapacityGB > 0 {
			modules = append(modules, *cur)
		}
		cur = nil
	}

	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "Memory Device" {
			flush()
			cur = &MemoryModule{
				Slot: "Unknown", Speed: "Unknown", Type: "Unknown",
				Manufacturer: "Unknown", PartNumber: "Unknown",
			}
			continue
		}
		if cur == nil {
			continue
		}
		key, val, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		switch strings.TrimSpace(key) {
		case "Size":
			cur.CapacityGB = dmidecodeSizeGB(val)
		case "Locator":
			cur.Slot = val
		case "Speed":
			if val != "Unknown" {
				cur.Speed = val
			}
		case "Type":
			if val != "Unknown" {
				cur.Type = val
			}
		case "Manufacturer":
			if val != "" {
				cur.Manufacturer = val
			}
		case "Part Number":
			if val != "" {
				cur.PartNumber = val
			}
		}
	}
	flush()
	return modules
}

// dmidecodeSizeGB parses "16 GB", "16384 MB", or "No Module Installed".
func dmidecodeSizeGB(val string) float64 {
	fields := strings.Fields(val)
	if len(fields) < 2 {
		return 0
	}
	n, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	switch fields[1] {
	case "GB":
		return n
	case "MB":
		return n / 1024
	case "kB", "KB":
		return n / (1024 * 1024)
	}
	return 0
}

// memoryDetailFromDmidecode scans the same dmidecode output for ECC,
// form factor, CAS latency, rank, bank, and the SPD timing lines.
func (c *Collector) memoryDetailFromDmidecode(ctx context.Context, rep *MemoryReport) {
	out := c.exec.Run(ctx, c.timeout, "dmidecode", "-t", "memory")
	if !out.IsOK() {
		if strings.Contains(out.Reason, "permission denied") {
			rep.Diagnostics = c.diag(rep.Diagnostics, "memory: dmidecode unavailable: requires elevated access")
		}
		return
	}
	applyDmidecodeDetail(out.Value, rep)
}

// applyDmidecodeDetail fills only fields still at their sentinel.
func applyDmidecodeDetail(out string, rep *MemoryReport) {
	if rep.ECC == ECCUnknown {
		switch {
		case strings.Contains(out, "ECC Unknown"):
			// stays unknown
		case strings.Contains(out, "Multi-bit ECC"), strings.Contains(out, "Single-bit ECC"), strings.Contains(out, "ECC Present"):
			rep.ECC = ECCEnabled
			rep.ECCDetail = rep.ECC.String()
		case strings.Contains(out, "Error Correction Type: None"):
			rep.ECC = ECCDisabled
			rep.ECCDetail = rep.ECC.String()
		}
	}

	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		key, val, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if val == "" || val == "Unknown" || val == "None" {
			continue
		}

		switch {
		case key == "Form Factor" && rep.FormFactor == NotReported:
			rep.FormFactor = val
		case strings.Contains(strings.ToUpper(key), "CAS") && rep.CASLatency == NotReported:
			rep.CASLatency = trimmed
		case key == "Rank" && rep.RankInfo == NotReported:
			switch val {
			case "2":
				rep.RankInfo = "Dual-Rank (DR)"
			case "1":
				rep.RankInfo = "Single-Rank (SR)"
			default:
				rep.RankInfo = val + " Ranks"
			}
		case strings.Contains(key, "Bank") && rep.BankInfo == NotReported:
			rep.BankInfo = val
		}

		upper := strings.ToUpper(key)
		switch {
		case upper == "CAS LATENCY" || upper == "SUPPORTED CAS LATENCIES":
			if rep.SPDTiming.CAS == NotReported {
				rep.SPDTiming.CAS = val
			}
		case strings.Contains(upper, "RAS TO CAS"):
			if rep.SPDTiming.RCD == NotReported {
				rep.SPDTiming.RCD = val
			}
		case strings.Contains(upper, "RAS") && !strings.Contains(upper, "RAS TO CAS"):
			if rep.SPDTiming.RAS == NotReported {
				rep.SPDTiming.RAS = val
			}
		case strings.Contains(upper, "RP") && strings.Contains(key, "Precharge"):
			if rep.SPDTiming.RP == NotReported {
				rep.SPDTiming.RP = val
			}
		}
	}
}

// channelDescription derives the channel layout from the populated
// module count, the way the management interface reports it.
func channelDescription(modules []MemoryModule) string {
	var total float64
	for _, m := range modules {
		total += m.CapacityGB
	}
	switch n := len(modules); {
	case n >= 4:
		return fmt.Sprintf("Quad-Channel (%d DIMMs, %.0f GB total)", n, total)
	case n >= 2:
		return fmt.Sprintf("Dual-Channel (%d DIMMs, %.0f GB total)", n, total)
	case n == 1:
		return fmt.Sprintf("Single-Channel (1 DIMM, %.0f GB)", total)
	default:
		return NotReported
	}
}

// memoryTemperature looks for a DIMM thermal sensor, first through the
// sensors API, then the raw hwmon tree.
func (c *Collector) memoryTemperature(ctx context.Context) string {
	if temps, err := c.sys.Temperatures(ctx); err == nil {
		for _, t := range temps {
			key := strings.ToLower(t.SensorKey)
			if strings.Contains(key, "mem") || strings.Contains(key, "dimm") {
				return fmt.Sprintf("%.1f°C", t.Temperature)
			}
		}
	}

	for _, labelPath := range c.exec.Glob("/sys/class/hwmon/hwmon*/temp*_label") {
		label := c.exec.ReadFile(labelPath)
		if !label.IsOK() {
			continue
		}
		l := strings.ToLower(label.Value)
		if !strings.Contains(l, "mem") && !strings.Contains(l, "dimm") {
			continue
		}
		input := c.exec.ReadFile(strings.Replace(labelPath, "_label", "_input", 1))
		if !input.IsOK() {
			continue
		}
		if raw, err := strconv.Atoi(input.Value); err == nil {
			return fmt.Sprintf("%.1f°C", float64(raw)/1000)
		}
	}
	return ""
}

// numaMapping summarizes the NUMA layout via numactl, falling back to
// lscpu.
func (c *Collector) numaMapping(ctx context.Context) string {
	if out := c.exec.Run(ctx, c.timeout, "numactl", "-H"); out.IsOK() {
		for _, line := range strings.Split(out.Value, "\n") {
			if !strings.Contains(strings.ToLower(line), "available") {
				continue
			}
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				if n, err := strconv.Atoi(fields[1]); err == nil {
					if n > 1 {
						return fmt.Sprintf("NUMA Enabled (%d nodes)", n)
					}
					return "Single NUMA Node (UMA system)"
				}
			}
		}
	}

	if out := c.exec.Run(ctx, c.timeout, "lscpu"); out.IsOK() {
		if strings.Contains(out.Value, "NUMA node") {
			return "NUMA Enabled"
		}
		return "UMA System (No NUMA)"
	}
	return NotReported
}

// linuxControllerInfo describes the memory controller from lscpu's NUMA
// lines or the core topology in /proc/cpuinfo.
func (c *Collector) linuxControllerInfo(ctx context.Context) string {
	if out := c.exec.Run(ctx, c.timeout, "lscpu"); out.IsOK() {
		for _, line := range strings.Split(out.Value, "\n") {
			if strings.Contains(line, "NUMA node") {
				return "IMC per NUMA node - " + strings.TrimSpace(line)
			}
		}
	}
	if info := c.exec.ReadFile("/proc/cpuinfo"); info.IsOK() && strings.Contains(info.Value, "core id") {
		return "Integrated Memory Controller (Detected via core topology)"
	}
	return NotReported
}

// maxSupportedMemorySpeed maps a CPU brand string to the platform's
// rated memory ceiling. Pure inference from marketing names: it stays a
// last resort and is labeled as such in the value. Unlisted models get
// no answer rather than a wrong one.
func maxSupportedMemorySpeed(brand string) string {
	if brand == "" {
		return ""
	}
	type entry struct {
		needles []string
		speed   string
	}
	table := []entry{
		{[]string{"Ryzen 9 7", "EPYC 9"}, "DDR5-6400+ (Zen 4, Zen 4c)"},
		{[]string{"Ryzen 7 7", "Ryzen 5 7"}, "DDR5-6400 (Zen 4)"},
		{[]string{"Core i9-14", "Core i7-14"}, "DDR5-7600 (Arrow Lake)"},
		{[]string{"Core i9-13", "Core i7-13"}, "DDR5-6400 (Raptor Lake)"},
		{[]string{"Core i9-12", "Core i7-12"}, "DDR5-4800 / DDR4-3200 (Alder Lake)"},
		{[]string{"Ryzen 5 5", "Ryzen 7 5"}, "DDR4-3600 (Zen 3)"},
		{[]string{"Xeon"}, "DDR5-4800+ (Xeon)"},
	}
	for _, e := range table {
		for _, n := range e.needles {
			if strings.Contains(brand, n) {
				return e.speed + " (heuristic from CPU model)"
			}
		}
	}
	return ""
}

// mergeSPDHelper attaches the SPD helper output and backfills module
// entries when no other source produced any.
func (c *Collector) mergeSPDHelper(ctx context.Context, rep *MemoryReport) {
	res := c.runSPDHelper(ctx)
	switch res.Status {
	case probe.StatusMalformed:
		rep.Diagnostics = c.diag(rep.Diagnostics, "memory: spd helper: "+res.Reason)
		return
	case probe.StatusUnavailable:
		return
	}

	spd := res.Value
	rep.SPDHelper = &spd

	if len(rep.Modules) == 0 {
		for _, d := range spd.DIMMs {
			if !d.Present || d.SizeMB <= 0 {
				continue
			}
			speed := "Unknown"
			if d.SpeedMHz > 0 {
				speed = fmt.Sprintf("%d MT/s", d.SpeedMHz)
			}
			rep.Modules = append(rep.Modules, MemoryModule{
				Slot:         orUnknown(d.Slot),
				CapacityGB:   float64(d.SizeMB) / 1024,
				Speed:        speed,
				Type:         orUnknown(d.DDRGeneration),
				Manufacturer: orUnknown(d.Manufacturer),
				PartNumber:   orUnknown(d.PartNumber),
			})
		}
		rep.ModuleCount = len(rep.Modules)
	}

	if rep.ECC == ECCUnknown && spd.MemoryArray != nil {
		switch t := strings.ToLower(spd.MemoryArray.SystemECCType); {
		case t == "" || strings.Contains(t, "unknown"):
		case strings.Contains(t, "none"):
			rep.ECC = ECCDisabled
			rep.ECCDetail = rep.ECC.String()
		default:
			rep.ECC = ECCEnabled
			rep.ECCDetail = rep.ECC.String()
		}
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
