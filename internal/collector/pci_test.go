package collector

import (
	"context"
	"testing"

	"github.com/halfax/sysreport/internal/platform"
)

func TestSysfsPCIClassName(t *testing.T) {
	cases := map[string]string{
		"0x030000": "Display Controller",
		"0x0c0330": "Serial Bus Controller",
		"0x020000": "Network Controller",
		"0xff0000": "Unknown (class ff0000)",
		"":         "Unknown",
	}
	for in, want := range cases {
		if got := sysfsPCIClassName(in); got != want {
			t.Errorf("sysfsPCIClassName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPCIFromSysfs(t *testing.T) {
	fe := fakeExec{
		globs: map[string][]string{
			"/sys/bus/pci/devices/*": {
				"/sys/bus/pci/devices/0000:00:02.0",
				"/sys/bus/pci/devices/0000:01:00.0",
			},
		},
		files: map[string]string{
			"/sys/bus/pci/devices/0000:00:02.0/vendor": "0x8086",
			"/sys/bus/pci/devices/0000:00:02.0/device": "0x3e92",
			"/sys/bus/pci/devices/0000:00:02.0/class":  "0x030000",
			"/sys/bus/pci/devices/0000:00:02.0/uevent": "DRIVER=i915\nPCI_CLASS=30000",
			"/sys/bus/pci/devices/0000:01:00.0/vendor": "0x10de",
			"/sys/bus/pci/devices/0000:01:00.0/class":  "0x030200",
		},
	}
	c := newTestCollector(t, platform.Linux, fe)
	rep := c.PCI(context.Background())

	if len(rep.Devices) != 2 {
		t.Fatalf("got %d devices", len(rep.Devices))
	}

	igpu := rep.Devices[0]
	if igpu.DeviceID != "0000:00:02.0" || igpu.VendorID != "8086" || igpu.DeviceCode != "3e92" {
		t.Fatalf("first device = %+v", igpu)
	}
	if igpu.Class != "Display Controller" || igpu.Driver != "i915" {
		t.Fatalf("first device = %+v", igpu)
	}

	// Second device has no device/uevent files: those fields degrade
	// individually.
	dgpu := rep.Devices[1]
	if dgpu.VendorID != "10de" || dgpu.DeviceCode != NotReported || dgpu.Driver != NotReported {
		t.Fatalf("second device = %+v", dgpu)
	}
}

func TestPCIByClass(t *testing.T) {
	rep := PCIReport{Devices: []PCIDevice{
		{DeviceID: "a", Class: "Display Controller"},
		{DeviceID: "b", Class: "Network Controller"},
		{DeviceID: "c", Class: "Display Controller"},
	}}
	groups := rep.ByClass()
	if len(groups["Display Controller"]) != 2 || len(groups["Network Controller"]) != 1 {
		t.Fatalf("groups = %v", groups)
	}
	if (PCIReport{}).ByClass() != nil {
		t.Fatal("empty report should group to nil")
	}
}
