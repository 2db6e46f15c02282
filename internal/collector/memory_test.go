package collector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/halfax/sysreport/internal/platform"
)

func TestToGB(t *testing.T) {
	if got := toGB(17179869184); got != 16.0 {
		t.Fatalf("toGB(17179869184) = %v, want 16.0", got)
	}
	if got := toGB(0); got != 0 {
		t.Fatalf("toGB(0) = %v", got)
	}
}

const dmidecodeMemoryOut = `# dmidecode 3.3
Handle 0x003A, DMI type 17, 84 bytes
Memory Device
	Size: 16 GB
	Form Factor: DIMM
	Locator: DIMM_A1
	Type: DDR4
	Speed: 3200 MT/s
	Manufacturer: Kingston
	Part Number: KF432C16BB1/16
	Rank: 2

Handle 0x003B, DMI type 17, 84 bytes
Memory Device
	Size: No Module Installed
	Locator: DIMM_A2

Handle 0x003C, DMI type 17, 84 bytes
Memory Device
	Size: 8192 MB
	Locator: DIMM_B1
	Type: DDR4
	Speed: Unknown
	Manufacturer: Corsair
`

func TestParseDmidecodeModules(t *testing.T) {
	modules := parseDmidecodeModules(dmidecodeMemoryOut)
	if len(modules) != 2 {
		t.Fatalf("got %d modules, want 2 (empty slot skipped)", len(modules))
	}

	first := modules[0]
	if first.Slot != "DIMM_A1" || first.CapacityGB != 16 || first.Type != "DDR4" {
		t.Fatalf("first module = %+v", first)
	}
	if first.Speed != "3200 MT/s" || first.Manufacturer != "Kingston" {
		t.Fatalf("first module = %+v", first)
	}

	second := modules[1]
	if second.CapacityGB != 8 {
		t.Fatalf("MB size not converted: %v", second.CapacityGB)
	}
	if second.Speed != "Unknown" {
		t.Fatalf("Unknown speed should stay Unknown, got %q", second.Speed)
	}
}

func TestDmidecodeSizeGB(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"16 GB", 16},
		{"8192 MB", 8},
		{"No Module Installed", 0},
		{"Unknown", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := dmidecodeSizeGB(tc.in); got != tc.want {
			t.Errorf("dmidecodeSizeGB(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestChannelDescription(t *testing.T) {
	two := []MemoryModule{{CapacityGB: 16}, {CapacityGB: 16}}
	if got := channelDescription(two); !strings.HasPrefix(got, "Dual-Channel (2 DIMMs") {
		t.Fatalf("two modules: %q", got)
	}
	one := []MemoryModule{{CapacityGB: 8}}
	if got := channelDescription(one); !strings.HasPrefix(got, "Single-Channel") {
		t.Fatalf("one module: %q", got)
	}
	four := make([]MemoryModule, 4)
	if got := channelDescription(four); !strings.HasPrefix(got, "Quad-Channel") {
		t.Fatalf("four modules: %q", got)
	}
}

func TestApplyDmidecodeDetailECC(t *testing.T) {
	rep := MemoryReport{ECCDetail: ECCUnknown.String()}
	applyDmidecodeDetail("Error Correction Type: Multi-bit ECC\n", &rep)
	if rep.ECC != ECCEnabled {
		t.Fatalf("multi-bit ECC not detected: %v", rep.ECC)
	}

	rep = MemoryReport{ECCDetail: ECCUnknown.String()}
	applyDmidecodeDetail("Error Correction Type: None\n", &rep)
	if rep.ECC != ECCDisabled {
		t.Fatalf("ECC None not detected: %v", rep.ECC)
	}

	rep = MemoryReport{ECCDetail: ECCUnknown.String()}
	applyDmidecodeDetail("no correction lines here\n", &rep)
	if rep.ECC != ECCUnknown {
		t.Fatalf("absence of evidence must stay unknown: %v", rep.ECC)
	}
}

func TestMaxSupportedMemorySpeed(t *testing.T) {
	got := maxSupportedMemorySpeed("AMD Ryzen 7 7700X 8-Core Processor")
	if !strings.Contains(got, "DDR5-6400") || !strings.Contains(got, "(heuristic from CPU model)") {
		t.Fatalf("ryzen 7000: %q", got)
	}
	if got := maxSupportedMemorySpeed("Obscure CPU 9000"); got != "" {
		t.Fatalf("unlisted model should return nothing, got %q", got)
	}
	if got := maxSupportedMemorySpeed(""); got != "" {
		t.Fatalf("empty brand: %q", got)
	}
}

func TestBankEstimate(t *testing.T) {
	if got := bankEstimate(3200); !strings.HasPrefix(got, "8 Banks") {
		t.Fatalf("3200: %q", got)
	}
	if got := bankEstimate(0); got != NotReported {
		t.Fatalf("0: %q", got)
	}
}

// writeHelper drops a canned helper "binary" into a temp dir so the
// path resolution finds it; the fake executor serves its output.
func writeHelper(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestMergeSPDHelperBackfillsModules(t *testing.T) {
	dir := t.TempDir()
	writeHelper(t, dir, helperSPD)

	fe := fakeExec{cmds: map[string]string{
		helperSPD: `{
			"dimms": [
				{"slot": "DIMM_A1", "present": true, "size_mb": 16384, "speed_mhz": 3200,
				 "manufacturer": "Kingston", "part_number": "KF432", "ddr_generation": "DDR4"},
				{"slot": "DIMM_A2", "present": false, "size_mb": 0}
			],
			"method": "smbios",
			"memory_array": {"max_capacity_mb": 131072, "num_slots": 4, "system_ecc_type": "None"}
		}`,
	}}
	c := newTestCollector(t, platform.Linux, fe, WithHelperDir(dir))

	rep := MemoryReport{ECCDetail: ECCUnknown.String()}
	c.mergeSPDHelper(context.Background(), &rep)

	if rep.SPDHelper == nil {
		t.Fatal("helper report not attached")
	}
	if len(rep.Modules) != 1 {
		t.Fatalf("got %d modules, want 1 (absent DIMM skipped)", len(rep.Modules))
	}
	m := rep.Modules[0]
	if m.CapacityGB != 16 || m.Speed != "3200 MT/s" || m.Type != "DDR4" {
		t.Fatalf("backfilled module = %+v", m)
	}
	if rep.ECC != ECCDisabled {
		t.Fatalf("system_ecc_type None should disable ECC, got %v", rep.ECC)
	}
}

func TestMergeSPDHelperMalformed(t *testing.T) {
	dir := t.TempDir()
	writeHelper(t, dir, helperSPD)

	fe := fakeExec{cmds: map[string]string{helperSPD: "not json at all"}}
	c := newTestCollector(t, platform.Linux, fe, WithHelperDir(dir))

	rep := MemoryReport{ECCDetail: ECCUnknown.String()}
	c.mergeSPDHelper(context.Background(), &rep)

	if rep.SPDHelper != nil {
		t.Fatal("malformed output must not attach")
	}
	if len(rep.Diagnostics) == 0 {
		t.Fatal("malformed helper must leave a diagnostic")
	}
	if !strings.Contains(rep.Diagnostics[0], "spd helper") {
		t.Fatalf("diagnostic = %q", rep.Diagnostics[0])
	}
}

func TestMergeSPDHelperAbsentIsSilent(t *testing.T) {
	c := newTestCollector(t, platform.Linux, fakeExec{}, WithHelperDir(t.TempDir()))
	rep := MemoryReport{}
	c.mergeSPDHelper(context.Background(), &rep)
	if len(rep.Diagnostics) != 0 {
		t.Fatalf("absent helper is normal, got diagnostics %v", rep.Diagnostics)
	}
}

func TestModulesFromDmidecodeViaExecutor(t *testing.T) {
	fe := fakeExec{cmds: map[string]string{"dmidecode": dmidecodeMemoryOut}}
	c := newTestCollector(t, platform.Linux, fe)

	rep := MemoryReport{}
	c.modulesFromDmidecode(context.Background(), &rep)
	if len(rep.Modules) != 2 {
		t.Fatalf("got %d modules", len(rep.Modules))
	}
}
