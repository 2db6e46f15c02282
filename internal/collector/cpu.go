package collector

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/cpuid/v2"

	"github.com/halfax/sysreport/internal/platform"
	"github.com/halfax/sysreport/internal/probe"
)

// wmiProcessor mirrors the Win32_Processor columns the CPU collector
// needs. Declared untagged; the query lives in cpu_windows.go.
type wmiProcessor struct {
	Name                      string
	Manufacturer              string
	MaxClockSpeed             uint32
	CurrentClockSpeed         uint32
	ExtClock                  uint32
	L2CacheSize               uint32
	L3CacheSize               uint32
	NumberOfCores             uint32
	NumberOfLogicalProcessors uint32
	SocketDesignation         string
	VirtualizationFirmwareEnabled bool
}

// ntCoreFrequency is one logical processor's clock pair from the kernel
// power interface.
type ntCoreFrequency struct {
	Number     uint32
	MaxMHz     uint32
	CurrentMHz uint32
}

// CPU gathers identity, topology, the merged frequency bundle, caches,
// features, and the point-in-time clock and residency snapshots.
func (c *Collector) CPU(ctx context.Context) CPUReport {
	rep := CPUReport{
		SMTStatus:      NotReported,
		CacheL1:        NotReported,
		CacheL2:        NotReported,
		CacheL3:        NotReported,
		TDP:            NotReported,
		Socket:         NotReported,
		NUMANodes:      NotReported,
		Microcode:      NotReported,
		Virtualization: NotReported,
		Frequency: FrequencyInfo{
			TurboSupport: NotReported,
			MSRAccess:    NotReported,
		},
	}
	rep.Architecture = archName(runtime.GOARCH)
	rep.Brand = c.cpuBrand(ctx)

	c.collectTopology(ctx, &rep)

	helper := c.runCPUIDHelper(ctx)
	if helper.Status == probe.StatusMalformed {
		rep.Diagnostics = c.diag(rep.Diagnostics, "cpu: cpuid helper: "+helper.Reason)
	}

	c.collectFrequency(ctx, &rep, helper)
	c.collectCaches(ctx, &rep, helper)
	c.collectPlatformDetail(ctx, &rep)
	c.collectFeatures(&rep)

	rep.Temperatures = c.cpuTemperatures(ctx)
	rep.PerCoreFrequency = c.perCoreFrequencies(ctx, &rep)
	rep.CStateResidency = c.coreResidency(ctx)

	if helper.IsOK() {
		rep.CacheTopology = helper.Value.CacheSharing
		rep.APICIDs = helper.Value.APICIDs
	}
	return rep
}

// cpuBrand resolves the marketing name, preferring the in-process CPUID
// leaf over the OS view.
func (c *Collector) cpuBrand(ctx context.Context) string {
	if b := strings.TrimSpace(cpuid.CPU.BrandName); b != "" {
		return b
	}
	if infos, err := c.sys.CPUInfo(ctx); err == nil && len(infos) > 0 {
		if b := strings.TrimSpace(infos[0].ModelName); b != "" {
			return b
		}
	}
	if c.facts.SingleBoard && c.facts.BoardModel != "" {
		return c.facts.BoardModel
	}
	return NotReported
}

func archName(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64 (64-bit)"
	case "386":
		return "x86 (32-bit)"
	case "arm64":
		return "ARM64 (aarch64)"
	case "arm":
		return "ARM (32-bit)"
	default:
		return goarch
	}
}

func (c *Collector) collectTopology(ctx context.Context, rep *CPUReport) {
	if n, err := c.sys.CPUCounts(ctx, true); err == nil {
		rep.LogicalCores = n
	}
	if n, err := c.sys.CPUCounts(ctx, false); err == nil {
		rep.PhysicalCores = n
	}
	if rep.PhysicalCores == 0 && cpuid.CPU.PhysicalCores > 0 {
		rep.PhysicalCores = cpuid.CPU.PhysicalCores
	}

	switch {
	case cpuid.CPU.ThreadsPerCore > 1:
		rep.SMTStatus = fmt.Sprintf("Enabled (%d threads/core)", cpuid.CPU.ThreadsPerCore)
	case rep.LogicalCores > 0 && rep.PhysicalCores > 0 && rep.LogicalCores > rep.PhysicalCores:
		rep.SMTStatus = "Enabled"
	case rep.LogicalCores > 0 && rep.PhysicalCores > 0:
		rep.SMTStatus = "Disabled or not supported"
	}
}

// collectFrequency walks the platform's frequency sources and merges
// high-to-low: a later source fills only fields still nil. Sources
// records every producer that contributed at least one field.
func (c *Collector) collectFrequency(ctx context.Context, rep *CPUReport, helper probe.Result[cpuidPayload]) {
	f := &rep.Frequency
	contributed := false
	mark := func(src Source) {
		if contributed {
			f.Sources = append(f.Sources, string(src))
		}
	}
	fill := func(dst **float64, v float64) {
		if *dst == nil && v > 0 {
			val := v
			*dst = &val
			contributed = true
		}
	}

	for _, src := range frequencySources.sourcesFor(c.facts.OS) {
		contributed = false
		switch src {
		case srcCPUIDHelper:
			if !helper.IsOK() {
				continue
			}
			p := helper.Value
			fill(&f.BaseMHz, p.BaseMHz)
			fill(&f.MaxMHz, p.MaxMHz)
			fill(&f.BusMHz, p.BusMHz)
			fill(&f.Turbo1CMHz, p.Turbo1CMHz)
			fill(&f.TurboACMHz, p.TurboACMHz)
			fill(&f.TurboMHz, p.Turbo1CMHz)
			if p.TurboSupported {
				f.TurboSupport = "Supported"
			} else {
				f.TurboSupport = "Not supported"
			}
			contributed = true
			if p.MSRAccess != "" {
				f.MSRAccess = p.MSRAccess
			}
		case srcCPUID:
			fill(&f.BaseMHz, float64(cpuid.CPU.Hz)/1e6)
			fill(&f.TurboMHz, float64(cpuid.CPU.BoostFreq)/1e6)
		case srcWMI:
			res := wmiProcessors()
			if !res.IsOK() || len(res.Value) == 0 {
				continue
			}
			p := res.Value[0]
			fill(&f.MaxMHz, float64(p.MaxClockSpeed))
			fill(&f.CurrentMHz, float64(p.CurrentClockSpeed))
			fill(&f.BusMHz, float64(p.ExtClock))
		case srcSysfs:
			c.sysfsFrequency(f, fill)
		case srcProcfs:
			if cur := c.procCPUInfoMHz(); cur > 0 {
				fill(&f.CurrentMHz, cur)
			}
		case srcGopsutil:
			if infos, err := c.sys.CPUInfo(ctx); err == nil && len(infos) > 0 {
				fill(&f.MaxMHz, infos[0].Mhz)
				fill(&f.CurrentMHz, infos[0].Mhz)
			}
		}
		mark(src)
	}

	if f.TurboSupport == NotReported && f.TurboMHz != nil && f.BaseMHz != nil && *f.TurboMHz > *f.BaseMHz {
		f.TurboSupport = "Supported (inferred from max > base)"
	}
}

// sysfsFrequency reads the cpufreq node for cpu0. Values are kHz.
func (c *Collector) sysfsFrequency(f *FrequencyInfo, fill func(**float64, float64)) {
	read := func(name string) float64 {
		r := c.exec.ReadFile("/sys/devices/system/cpu/cpu0/cpufreq/" + name)
		if !r.IsOK() {
			return 0
		}
		khz, err := strconv.ParseFloat(r.Value, 64)
		if err != nil {
			return 0
		}
		return khz / 1000
	}
	fill(&f.MaxMHz, read("cpuinfo_max_freq"))
	fill(&f.BaseMHz, read("base_frequency"))
	fill(&f.CurrentMHz, read("scaling_cur_freq"))
}

func (c *Collector) procCPUInfoMHz() float64 {
	info := c.exec.ReadFile("/proc/cpuinfo")
	if !info.IsOK() {
		return 0
	}
	for _, line := range strings.Split(info.Value, "\n") {
		if !strings.HasPrefix(line, "cpu MHz") {
			continue
		}
		_, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if mhz, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return mhz
		}
	}
	return 0
}

// collectCaches formats L1/L2/L3 from the best available source.
func (c *Collector) collectCaches(ctx context.Context, rep *CPUReport, helper probe.Result[cpuidPayload]) {
	for _, src := range cacheSources.sourcesFor(c.facts.OS) {
		if rep.CacheL1 != NotReported {
			return
		}
		switch src {
		case srcCPUIDHelper:
			if !helper.IsOK() {
				continue
			}
			p := helper.Value
			if p.L1DKB > 0 {
				rep.CacheL1 = formatCacheLevel(p.l1d()) + " + " + formatCacheLevel(p.l1i())
			}
			if p.L2KB > 0 {
				rep.CacheL2 = formatCacheLevel(p.l2())
			}
			if p.L3KB > 0 {
				rep.CacheL3 = formatCacheLevel(p.l3())
			}
		case srcCPUID:
			cache := cpuid.CPU.Cache
			if cache.L1D > 0 {
				rep.CacheL1 = fmt.Sprintf("%d KB data + %d KB instruction (per core)", cache.L1D/1024, cache.L1I/1024)
			}
			if cache.L2 > 0 {
				rep.CacheL2 = fmt.Sprintf("%d KB (per core)", cache.L2/1024)
			}
			if cache.L3 > 0 {
				rep.CacheL3 = fmt.Sprintf("%.1f MB (shared)", float64(cache.L3)/(1024*1024))
			}
		case srcLscpu:
			c.lscpuCaches(ctx, rep)
		case srcWMI:
			res := wmiProcessors()
			if !res.IsOK() || len(res.Value) == 0 {
				continue
			}
			p := res.Value[0]
			if p.L2CacheSize > 0 {
				rep.CacheL2 = fmt.Sprintf("%d KB", p.L2CacheSize)
			}
			if p.L3CacheSize > 0 {
				rep.CacheL3 = fmt.Sprintf("%.1f MB", float64(p.L3CacheSize)/1024)
			}
		}
	}
}

func formatCacheLevel(l cacheLevel) string {
	s := fmt.Sprintf("%s: %d KB", l.Label, l.SizeKB)
	if l.Assoc > 0 {
		s += fmt.Sprintf(", %d-way", l.Assoc)
	}
	if l.LineBytes > 0 {
		s += fmt.Sprintf(", %dB line", l.LineBytes)
	}
	if l.Sharing > 1 {
		s += fmt.Sprintf(", shared by %d cores", l.Sharing)
	}
	switch l.Inclusive {
	case 1:
		s += ", inclusive"
	case 0:
		s += ", exclusive"
	}
	return s
}

func (c *Collector) lscpuCaches(ctx context.Context, rep *CPUReport) {
	out := c.exec.Run(ctx, c.timeout, "lscpu")
	if !out.IsOK() {
		return
	}
	var l1d, l1i string
	for _, line := range strings.Split(out.Value, "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		switch strings.TrimSpace(key) {
		case "L1d cache":
			l1d = val
		case "L1i cache":
			l1i = val
		case "L2 cache":
			rep.CacheL2 = val
		case "L3 cache":
			rep.CacheL3 = val
		}
	}
	if l1d != "" {
		rep.CacheL1 = l1d
		if l1i != "" {
			rep.CacheL1 += " data + " + l1i + " instruction"
		}
	}
}

// collectPlatformDetail fills socket, NUMA node count, microcode, TDP,
// and the virtualization summary.
func (c *Collector) collectPlatformDetail(ctx context.Context, rep *CPUReport) {
	switch c.facts.OS {
	case platform.Windows:
		if res := wmiProcessors(); res.IsOK() && len(res.Value) > 0 {
			p := res.Value[0]
			if p.SocketDesignation != "" {
				rep.Socket = p.SocketDesignation
			}
			rep.NUMANodes = fmt.Sprintf("%d socket(s)", len(res.Value))
			if p.VirtualizationFirmwareEnabled {
				rep.Virtualization = "Enabled in firmware"
			}
		}
	case platform.Linux:
		c.lscpuPlatformDetail(ctx, rep)
		// RAPL exposes the sustained package power limit, which is the
		// closest thing to a measured TDP.
		if r := c.exec.ReadFile("/sys/class/powercap/intel-rapl:0/constraint_0_power_limit_uw"); r.IsOK() {
			if uw, err := strconv.ParseFloat(r.Value, 64); err == nil && uw > 0 {
				rep.TDP = fmt.Sprintf("%.0f W (RAPL package limit)", uw/1e6)
			}
		}
		if info := c.exec.ReadFile("/proc/cpuinfo"); info.IsOK() {
			for _, line := range strings.Split(info.Value, "\n") {
				if strings.HasPrefix(line, "microcode") {
					if _, val, ok := strings.Cut(line, ":"); ok {
						rep.Microcode = strings.TrimSpace(val)
					}
					break
				}
			}
		}
	}

	if rep.Virtualization == NotReported {
		switch {
		case cpuid.CPU.Supports(cpuid.VMX):
			rep.Virtualization = "VT-x (VMX) supported"
		case cpuid.CPU.Supports(cpuid.SVM):
			rep.Virtualization = "AMD-V (SVM) supported"
		}
	}

	if rep.TDP == NotReported {
		if tdp := estimateTDP(rep.Brand); tdp != "" {
			rep.TDP = tdp
		}
	}
}

func (c *Collector) lscpuPlatformDetail(ctx context.Context, rep *CPUReport) {
	out := c.exec.Run(ctx, c.timeout, "lscpu")
	if !out.IsOK() {
		return
	}
	for _, line := range strings.Split(out.Value, "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		switch strings.TrimSpace(key) {
		case "Socket(s)":
			rep.Socket = val + " socket(s)"
		case "NUMA node(s)":
			rep.NUMANodes = val + " node(s)"
		case "Virtualization":
			rep.Virtualization = val
		}
	}
}

// estimateTDP maps a brand string to the typical package power for that
// family. Pure inference; labeled in the value and skipped for unlisted
// models.
func estimateTDP(brand string) string {
	type entry struct {
		needle string
		tdp    string
	}
	table := []entry{
		{"Ryzen 9", "105-170 W (heuristic)"},
		{"Ryzen 7", "65-105 W (heuristic)"},
		{"Ryzen 5", "65 W (heuristic)"},
		{"Core i9", "125-253 W (heuristic)"},
		{"Core i7", "65-125 W (heuristic)"},
		{"Core i5", "65 W (heuristic)"},
		{"Core i3", "58-65 W (heuristic)"},
		{"Xeon", "105-350 W (heuristic)"},
		{"EPYC", "200-400 W (heuristic)"},
		{"Raspberry Pi", "5-12 W (board, heuristic)"},
	}
	for _, e := range table {
		if strings.Contains(brand, e.needle) {
			return e.tdp
		}
	}
	return ""
}

// collectFeatures reads the in-process feature set and groups it for
// display. Feature probing needs no OS help, so it works everywhere the
// binary runs on x86; other architectures just report nothing.
func (c *Collector) collectFeatures(rep *CPUReport) {
	features := cpuid.CPU.FeatureSet()
	if len(features) == 0 {
		return
	}
	sort.Strings(features)
	rep.InstructionSets = features
	rep.InstructionGroups = groupFeatures(features)

	security := []cpuid.FeatureID{
		cpuid.NX, cpuid.SGX, cpuid.CETIBT, cpuid.CETSS,
		cpuid.IBPB, cpuid.STIBP, cpuid.MD_CLEAR, cpuid.SRBDS_CTRL,
	}
	for _, f := range security {
		if cpuid.CPU.Has(f) {
			rep.SecurityFeatures = append(rep.SecurityFeatures, f.String())
		}
	}
}

// groupFeatures buckets flags into the display categories.
func groupFeatures(features []string) map[string][]string {
	groups := make(map[string][]string)
	add := func(group, f string) { groups[group] = append(groups[group], f) }

	simd := map[string]bool{
		"MMX": true, "MMXEXT": true, "SSE": true, "SSE2": true,
		"SSE3": true, "SSSE3": true, "SSE4": true, "SSE41": true,
		"SSE42": true, "SSE4A": true, "AVX": true, "AVX2": true,
		"FMA3": true, "FMA4": true, "F16C": true,
	}
	crypto := map[string]bool{
		"AESNI": true, "SHA": true, "GFNI": true, "VAES": true,
		"VPCLMULQDQ": true, "CLMUL": true, "RDRAND": true, "RDSEED": true,
	}
	bitmanip := map[string]bool{
		"BMI1": true, "BMI2": true, "POPCNT": true, "LZCNT": true,
		"ADX": true, "TBM": true, "MOVBE": true,
	}
	system := map[string]bool{
		"MSR": true, "RDTSCP": true, "TSC": true, "CX16": true,
		"XSAVE": true, "OSXSAVE": true, "SERIALIZE": true, "WAITPKG": true,
	}
	virt := map[string]bool{
		"VMX": true, "SVM": true, "HYPERVISOR": true, "SVMNP": true,
		"VMCBCLEAN": true, "VMPL": true, "SEV": true, "SEV_ES": true, "SGX": true,
	}

	for _, f := range features {
		switch {
		case strings.HasPrefix(f, "AVX512"), strings.HasPrefix(f, "AVX10"):
			add("AVX-512 / AVX10", f)
		case strings.HasPrefix(f, "AMX"):
			add("AMX", f)
		case simd[f]:
			add("SIMD", f)
		case crypto[f]:
			add("Cryptography", f)
		case bitmanip[f]:
			add("Bit Manipulation", f)
		case system[f]:
			add("System", f)
		case virt[f]:
			add("Virtualization", f)
		default:
			add("Other", f)
		}
	}
	return groups
}

// cpuTemperatures keeps only CPU-looking sensor keys, preserving the
// raw key so the operator can tell package from per-core readings.
func (c *Collector) cpuTemperatures(ctx context.Context) map[string]string {
	temps, err := c.sys.Temperatures(ctx)
	if err != nil {
		return nil
	}
	out := make(map[string]string)
	for _, t := range temps {
		key := strings.ToLower(t.SensorKey)
		if strings.Contains(key, "core") || strings.Contains(key, "package") ||
			strings.Contains(key, "k10temp") || strings.Contains(key, "cpu") ||
			strings.Contains(key, "tctl") || strings.Contains(key, "tdie") {
			out[t.SensorKey] = fmt.Sprintf("%.1f°C", t.Temperature)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// perCoreFrequencies snapshots each logical core's current clock. On
// Windows the kernel power interface reports it directly; on Linux it
// comes from per-cpu cpufreq nodes; elsewhere it degrades to the
// package figure.
func (c *Collector) perCoreFrequencies(ctx context.Context, rep *CPUReport) []CoreFrequency {
	maxMHz := 0.0
	if rep.Frequency.MaxMHz != nil {
		maxMHz = *rep.Frequency.MaxMHz
	}
	pct := func(cur float64) int {
		if maxMHz <= 0 {
			return 0
		}
		return int(cur / maxMHz * 100)
	}

	if c.facts.OS == platform.Windows {
		if res := ntPerCoreFrequencies(rep.LogicalCores); res.IsOK() {
			var cores []CoreFrequency
			for _, f := range res.Value {
				cores = append(cores, CoreFrequency{
					Core:       int(f.Number),
					CurrentMHz: float64(f.CurrentMHz),
					MaxMHz:     float64(f.MaxMHz),
					Percent:    pct(float64(f.CurrentMHz)),
				})
			}
			return cores
		}
	}

	if c.facts.OS == platform.Linux {
		paths := c.exec.Glob("/sys/devices/system/cpu/cpu[0-9]*/cpufreq/scaling_cur_freq")
		sort.Strings(paths)
		var cores []CoreFrequency
		for _, p := range paths {
			r := c.exec.ReadFile(p)
			if !r.IsOK() {
				continue
			}
			khz, err := strconv.ParseFloat(r.Value, 64)
			if err != nil {
				continue
			}
			cur := khz / 1000
			cores = append(cores, CoreFrequency{
				Core:       cpuIndexFromPath(p),
				CurrentMHz: cur,
				MaxMHz:     maxMHz,
				Percent:    pct(cur),
			})
		}
		if len(cores) > 0 {
			sort.Slice(cores, func(i, j int) bool { return cores[i].Core < cores[j].Core })
			return cores
		}
	}

	// Degraded path: one package-level figure copied across cores.
	if infos, err := c.sys.CPUInfo(ctx); err == nil && len(infos) > 0 && rep.LogicalCores > 0 {
		cores := make([]CoreFrequency, rep.LogicalCores)
		for i := range cores {
			cores[i] = CoreFrequency{Core: i, CurrentMHz: infos[0].Mhz, MaxMHz: maxMHz, Percent: pct(infos[0].Mhz)}
		}
		return cores
	}
	return nil
}

// cpuIndexFromPath extracts N from .../cpuN/cpufreq/....
func cpuIndexFromPath(p string) int {
	i := strings.Index(p, "/cpu/cpu")
	if i < 0 {
		return 0
	}
	rest := p[i+len("/cpu/cpu"):]
	end := strings.IndexByte(rest, '/')
	if end < 0 {
		end = len(rest)
	}
	n, _ := strconv.Atoi(rest[:end])
	return n
}

// coreResidency approximates C0 (active) vs deeper states from a short
// per-core utilization sample. True residency counters need MSR access;
// utilization is the portable stand-in and is presented as an estimate.
func (c *Collector) coreResidency(ctx context.Context) []CoreResidency {
	pcts, err := c.sys.CPUPercent(ctx, 250*time.Millisecond, true)
	if err != nil {
		return nil
	}
	var out []CoreResidency
	for i, p := range pcts {
		out = append(out, CoreResidency{Core: i, ActivePct: p, IdlePct: 100 - p})
	}
	return out
}
