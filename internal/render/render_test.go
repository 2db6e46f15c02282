package render

import (
	"strings"
	"testing"
	"time"

	"github.com/halfax/sysreport/internal/collector"
)

func sampleReport() *collector.Report {
	wear := 10.0
	vram := 10.0
	return &collector.Report{
		CollectedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Hostname:    "workstation-1",
		Platform:    "Linux",
		System: collector.SystemReport{
			Hostname:       "workstation-1",
			Model:          "Example Systems Mark IV",
			Serial:         "SN-1234",
			TotalStorageGB: 931.5,
			FreeStorageGB:  400.2,
			DriveCount:     2,
		},
		CPU: collector.CPUReport{
			Brand:         "AMD Ryzen 7 7700X 8-Core Processor",
			Architecture:  "x86_64 (64-bit)",
			LogicalCores:  16,
			PhysicalCores: 8,
			SMTStatus:     "Enabled (2 threads/core)",
			CacheL1:       "256 KiB",
			CacheL2:       "8 MiB",
			CacheL3:       "32 MiB",
			TDP:           collector.NotReported,
			Socket:        "1 socket(s)",
			NUMANodes:     "1 node(s)",
			Frequency: collector.FrequencyInfo{
				TurboSupport: "Supported",
				MSRAccess:    collector.NotReported,
				Sources:      []string{"cpuid-helper", "sysfs"},
			},
		},
		Memory: collector.MemoryReport{
			TotalGB:       16.0,
			UsedGB:        8.0,
			UsedPercent:   50.0,
			ChannelConfig: "Dual-Channel (2 DIMMs, 16 GB total)",
			ECCDetail:     "ECC Disabled (No)",
			FormFactor:    "DIMM",
			Modules: []collector.MemoryModule{
				{Slot: "DIMM_A1", CapacityGB: 8, Speed: "3200 MT/s", Type: "DDR4", Manufacturer: "Kingston", PartNumber: "KF432"},
			},
			MaxSupportedSpeed: collector.NotReported,
		},
		GPU: collector.GPUReport{GPUs: []collector.GPUEntry{{
			Name:          "NVIDIA GeForce RTX 3080",
			VRAMGB:        &vram,
			DriverVersion: "535.161.07",
			LinkSpeed:     "PCIe Gen 4",
			LinkWidth:     "x16",
			Source:        "nvidia-smi",
		}}},
		Battery: collector.BatteryReport{
			Present:            true,
			Percent:            85,
			DesignCapacity:     50000,
			FullChargeCapacity: 45000,
			WearLevel:          &wear,
			Health:             "Good",
		},
	}
}

func TestTextRendersAllSections(t *testing.T) {
	var sb strings.Builder
	if err := Text(&sb, sampleReport(), nil); err != nil {
		t.Fatal(err)
	}
	out := sb.String()

	for _, want := range []string{
		"System Report - workstation-1",
		"=== SYSTEM ===",
		"=== CPU ===",
		"=== MEMORY ===",
		"=== BATTERY ===",
		"workstation-1",
		"AMD Ryzen 7 7700X",
		"Dual-Channel",
		"10.0% (Good)",
		collector.NotReported,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestTextSectionFilter(t *testing.T) {
	var sb strings.Builder
	if err := Text(&sb, sampleReport(), []string{"cpu"}); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if !strings.Contains(out, "=== CPU ===") {
		t.Fatal("selected section missing")
	}
	if strings.Contains(out, "=== MEMORY ===") {
		t.Fatal("unselected section rendered")
	}
}

func TestTextUnknownSection(t *testing.T) {
	var sb strings.Builder
	err := Text(&sb, sampleReport(), []string{"bogus"})
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("err = %v", err)
	}
}

func TestSectionsCopy(t *testing.T) {
	s := Sections()
	s[0] = "mutated"
	if Sections()[0] == "mutated" {
		t.Fatal("Sections must return a copy")
	}
}
