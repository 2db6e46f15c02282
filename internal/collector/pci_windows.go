//go:build windows

package collector

import (
	"strings"

	"golang.org/x/sys/windows/registry"
)

const pciEnumKey = `SYSTEM\CurrentControlSet\Enum\PCI`

// pciFromRegistry walks HKLM\...\Enum\PCI: one key per hardware ID, one
// subkey per instance, with the class and driver service as values.
func (c *Collector) pciFromRegistry(rep *PCIReport) {
	root, err := registry.OpenKey(registry.LOCAL_MACHINE, pciEnumKey, registry.READ)
	if err != nil {
		rep.Diagnostics = c.diag(rep.Diagnostics, "pci: registry: "+err.Error())
		return
	}
	defer root.Close()

	hwIDs, err := root.ReadSubKeyNames(-1)
	if err != nil {
		rep.Diagnostics = c.diag(rep.Diagnostics, "pci: registry: "+err.Error())
		return
	}

	for _, hwID := range hwIDs {
		idKey, err := registry.OpenKey(root, hwID, registry.READ)
		if err != nil {
			continue
		}
		instances, err := idKey.ReadSubKeyNames(-1)
		if err != nil {
			idKey.Close()
			continue
		}
		for _, inst := range instances {
			instKey, err := registry.OpenKey(idKey, inst, registry.READ)
			if err != nil {
				continue
			}
			dev := PCIDevice{
				DeviceID:   hwID + "\\" + inst,
				VendorID:   registryHWIDPart(hwID, "VEN_"),
				DeviceCode: registryHWIDPart(hwID, "DEV_"),
				Class:      NotReported,
				ClassGUID:  NotReported,
				Driver:     NotReported,
			}
			if v, _, err := instKey.GetStringValue("Class"); err == nil && v != "" {
				dev.Class = v
			}
			if v, _, err := instKey.GetStringValue("ClassGUID"); err == nil && v != "" {
				dev.ClassGUID = v
			}
			if v, _, err := instKey.GetStringValue("Service"); err == nil && v != "" {
				dev.Driver = v
			}
			instKey.Close()
			rep.Devices = append(rep.Devices, dev)
		}
		idKey.Close()
	}
}

// registryHWIDPart pulls one underscore-tagged field out of a hardware
// ID like VEN_8086&DEV_43ED&SUBSYS_...
func registryHWIDPart(hwID, tag string) string {
	for _, part := range strings.Split(hwID, "&") {
		if v, ok := strings.CutPrefix(part, tag); ok {
			return strings.ToLower(v)
		}
	}
	return NotReported
}
