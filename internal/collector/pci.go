package collector

import (
	"context"
	"sort"
	"strings"

	"github.com/halfax/sysreport/internal/platform"
)

// pciClassNames maps the top byte of the sysfs class code to a display
// name; codes follow the PCI SIG base-class table.
var pciClassNames = map[string]string{
	"00": "Unclassified",
	"01": "Mass Storage Controller",
	"02": "Network Controller",
	"03": "Display Controller",
	"04": "Multimedia Controller",
	"05": "Memory Controller",
	"06": "Bridge",
	"07": "Communication Controller",
	"08": "System Peripheral",
	"09": "Input Device Controller",
	"0a": "Docking Station",
	"0b": "Processor",
	"0c": "Serial Bus Controller",
	"0d": "Wireless Controller",
	"0e": "Intelligent Controller",
	"0f": "Satellite Communications Controller",
	"10": "Encryption Controller",
	"11": "Signal Processing Controller",
	"12": "Processing Accelerator",
	"13": "Non-Essential Instrumentation",
}

// PCI enumerates the bus. On Linux it walks sysfs directly; on Windows
// it reads the PCI enumerator branch of the registry, which works
// without WMI and without elevation.
func (c *Collector) PCI(ctx context.Context) PCIReport {
	var rep PCIReport
	for _, src := range pciSources.sourcesFor(c.facts.OS) {
		if len(rep.Devices) > 0 {
			break
		}
		switch src {
		case srcSysfs:
			if c.facts.OS == platform.Linux {
				c.pciFromSysfs(&rep)
			}
		case srcRegistry:
			c.pciFromRegistry(&rep)
		}
	}
	return rep
}

func (c *Collector) pciFromSysfs(rep *PCIReport) {
	paths := c.exec.Glob("/sys/bus/pci/devices/*")
	sort.Strings(paths)
	for _, dir := range paths {
		read := func(name string) string {
			r := c.exec.ReadFile(dir + "/" + name)
			if !r.IsOK() {
				return ""
			}
			return strings.TrimSpace(r.Value)
		}

		addr := dir[strings.LastIndexByte(dir, '/')+1:]
		dev := PCIDevice{
			DeviceID:   addr,
			VendorID:   strings.TrimPrefix(read("vendor"), "0x"),
			DeviceCode: strings.TrimPrefix(read("device"), "0x"),
			Class:      sysfsPCIClassName(read("class")),
			ClassGUID:  NotReported,
			Driver:     NotReported,
		}
		if dev.VendorID == "" {
			dev.VendorID = NotReported
		}
		if dev.DeviceCode == "" {
			dev.DeviceCode = NotReported
		}

		// The bound driver appears as DRIVER= in uevent; the driver
		// symlink itself is not readable through the file adapter.
		if uevent := read("uevent"); uevent != "" {
			for _, line := range strings.Split(uevent, "\n") {
				if name, ok := strings.CutPrefix(line, "DRIVER="); ok && name != "" {
					dev.Driver = name
				}
			}
		}

		rep.Devices = append(rep.Devices, dev)
	}
}

// sysfsPCIClassName decodes the "0x030000" class file into a name.
func sysfsPCIClassName(class string) string {
	code := strings.TrimPrefix(strings.ToLower(class), "0x")
	if len(code) < 2 {
		return "Unknown"
	}
	if name, ok := pciClassNames[code[:2]]; ok {
		return name
	}
	return "Unknown (class " + code + ")"
}
