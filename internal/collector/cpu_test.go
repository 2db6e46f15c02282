package collector

import (
	"context"
	"strings"
	"testing"

	"github.com/halfax/sysreport/internal/platform"
	"github.com/halfax/sysreport/internal/probe"
)

func TestArchName(t *testing.T) {
	cases := map[string]string{
		"amd64": "x86_64 (64-bit)",
		"arm64": "ARM64 (aarch64)",
		"riscv64": "riscv64",
	}
	for in, want := range cases {
		if got := archName(in); got != want {
			t.Errorf("archName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGroupFeatures(t *testing.T) {
	groups := groupFeatures([]string{
		"AVX512F", "AVX512VL", "SSE2", "AESNI", "VMX",
		"BMI1", "BMI2", "POPCNT", "LZCNT", "RDTSCP", "MSR", "CLZERO",
	})

	if got := groups["AVX-512 / AVX10"]; len(got) != 2 {
		t.Fatalf("AVX-512 group = %v", got)
	}
	if got := groups["SIMD"]; len(got) != 1 || got[0] != "SSE2" {
		t.Fatalf("SIMD group = %v", got)
	}
	if got := groups["Cryptography"]; len(got) != 1 || got[0] != "AESNI" {
		t.Fatalf("crypto group = %v", got)
	}
	if got := groups["Bit Manipulation"]; len(got) != 4 {
		t.Fatalf("bit-manipulation group = %v", got)
	}
	if got := groups["System"]; len(got) != 2 || got[0] != "RDTSCP" || got[1] != "MSR" {
		t.Fatalf("system group = %v", got)
	}
	if got := groups["Virtualization"]; len(got) != 1 || got[0] != "VMX" {
		t.Fatalf("virt group = %v", got)
	}
	if got := groups["Other"]; len(got) != 1 || got[0] != "CLZERO" {
		t.Fatalf("other group = %v", got)
	}
}

func TestEstimateTDP(t *testing.T) {
	if got := estimateTDP("AMD Ryzen 9 7950X"); !strings.Contains(got, "heuristic") {
		t.Fatalf("ryzen 9: %q", got)
	}
	if got := estimateTDP("Some Unknown Chip"); got != "" {
		t.Fatalf("unknown chip: %q", got)
	}
}

func TestFormatCacheLevel(t *testing.T) {
	got := formatCacheLevel(cacheLevel{Label: "L2", SizeKB: 1024, Assoc: 8, LineBytes: 64, Sharing: 2, Inclusive: 1})
	for _, want := range []string{"L2: 1024 KB", "8-way", "64B line", "shared by 2 cores", "inclusive"} {
		if !strings.Contains(got, want) {
			t.Fatalf("%q missing %q", got, want)
		}
	}

	minimal := formatCacheLevel(cacheLevel{Label: "L1D", SizeKB: 32, Inclusive: -1})
	if minimal != "L1D: 32 KB" {
		t.Fatalf("minimal = %q", minimal)
	}
}

func TestCPUIndexFromPath(t *testing.T) {
	cases := map[string]int{
		"/sys/devices/system/cpu/cpu0/cpufreq/scaling_cur_freq":  0,
		"/sys/devices/system/cpu/cpu12/cpufreq/scaling_cur_freq": 12,
	}
	for in, want := range cases {
		if got := cpuIndexFromPath(in); got != want {
			t.Errorf("cpuIndexFromPath(%q) = %d, want %d", in, got, want)
		}
	}
}

const lscpuOut = `Architecture:            x86_64
CPU(s):                  16
Socket(s):               1
NUMA node(s):            1
Virtualization:          AMD-V
L1d cache:               256 KiB
L1i cache:               256 KiB
L2 cache:                4 MiB
L3 cache:                32 MiB
`

func TestLscpuCaches(t *testing.T) {
	fe := fakeExec{cmds: map[string]string{"lscpu": lscpuOut}}
	c := newTestCollector(t, platform.Linux, fe)

	rep := CPUReport{CacheL1: NotReported, CacheL2: NotReported, CacheL3: NotReported}
	c.lscpuCaches(context.Background(), &rep)

	if !strings.Contains(rep.CacheL1, "256 KiB") || !strings.Contains(rep.CacheL1, "instruction") {
		t.Fatalf("L1 = %q", rep.CacheL1)
	}
	if rep.CacheL2 != "4 MiB" || rep.CacheL3 != "32 MiB" {
		t.Fatalf("L2 = %q, L3 = %q", rep.CacheL2, rep.CacheL3)
	}
}

func TestLscpuPlatformDetail(t *testing.T) {
	fe := fakeExec{cmds: map[string]string{"lscpu": lscpuOut}}
	c := newTestCollector(t, platform.Linux, fe)

	rep := CPUReport{Socket: NotReported, NUMANodes: NotReported, Virtualization: NotReported}
	c.lscpuPlatformDetail(context.Background(), &rep)

	if rep.Socket != "1 socket(s)" || rep.NUMANodes != "1 node(s)" || rep.Virtualization != "AMD-V" {
		t.Fatalf("detail = %+v", rep)
	}
}

// The helper outranks sysfs: fields the helper supplied must survive,
// and sysfs may only fill what is still nil.
func TestCollectFrequencyMergePrecedence(t *testing.T) {
	fe := fakeExec{files: map[string]string{
		"/sys/devices/system/cpu/cpu0/cpufreq/cpuinfo_max_freq": "9999000",
		"/sys/devices/system/cpu/cpu0/cpufreq/scaling_cur_freq": "4100000",
	}}
	c := newTestCollector(t, platform.Linux, fe)

	helper := probe.OK(cpuidPayload{
		Success:        true,
		BaseMHz:        3400,
		MaxMHz:         5000,
		BusMHz:         100,
		Turbo1CMHz:     5700,
		TurboSupported: true,
		MSRAccess:      "direct",
	})

	rep := CPUReport{Frequency: FrequencyInfo{TurboSupport: NotReported, MSRAccess: NotReported}}
	c.collectFrequency(context.Background(), &rep, helper)

	f := rep.Frequency
	if f.MaxMHz == nil || *f.MaxMHz != 5000 {
		t.Fatalf("helper max overwritten: %v", f.MaxMHz)
	}
	if f.CurrentMHz == nil || *f.CurrentMHz != 4100 {
		t.Fatalf("sysfs should fill current: %v", f.CurrentMHz)
	}
	if f.TurboSupport != "Supported" || f.MSRAccess != "direct" {
		t.Fatalf("turbo/msr = %q / %q", f.TurboSupport, f.MSRAccess)
	}
	if len(f.Sources) == 0 || f.Sources[0] != string(srcCPUIDHelper) {
		t.Fatalf("sources = %v", f.Sources)
	}
	foundSysfs := false
	for _, s := range f.Sources {
		if s == string(srcSysfs) {
			foundSysfs = true
		}
	}
	if !foundSysfs {
		t.Fatalf("sysfs contributed but is not recorded: %v", f.Sources)
	}
}

func TestCollectFrequencyWithoutHelper(t *testing.T) {
	fe := fakeExec{files: map[string]string{
		"/sys/devices/system/cpu/cpu0/cpufreq/cpuinfo_max_freq": "4500000",
		"/sys/devices/system/cpu/cpu0/cpufreq/scaling_cur_freq": "2200000",
	}}
	c := newTestCollector(t, platform.Linux, fe)

	rep := CPUReport{Frequency: FrequencyInfo{TurboSupport: NotReported, MSRAccess: NotReported}}
	c.collectFrequency(context.Background(), &rep, probe.Unavailable[cpuidPayload]("no helper"))

	if rep.Frequency.MaxMHz == nil || *rep.Frequency.MaxMHz != 4500 {
		t.Fatalf("max = %v", rep.Frequency.MaxMHz)
	}
	if rep.Frequency.CurrentMHz == nil || *rep.Frequency.CurrentMHz != 2200 {
		t.Fatalf("current = %v", rep.Frequency.CurrentMHz)
	}
}

func TestProcCPUInfoMHz(t *testing.T) {
	fe := fakeExec{files: map[string]string{
		"/proc/cpuinfo": "processor\t: 0\ncpu MHz\t\t: 3393.624\nmodel name\t: test\n",
	}}
	c := newTestCollector(t, platform.Linux, fe)
	if got := c.procCPUInfoMHz(); got != 3393.624 {
		t.Fatalf("got %v", got)
	}
}
