//go:build linux

package collector

import (
	"github.com/siderolabs/go-smbios/smbios"

	"github.com/halfax/sysreport/internal/probe"
)

// smbiosMemoryModules decodes the firmware memory-device table directly
// from /sys/firmware/dmi, which works without dmidecode installed but
// still needs read access to the DMI tables.
func smbiosMemoryModules() probe.Result[[]smbiosModule] {
	s, err := smbios.New()
	if err != nil {
		return probe.Unavailable[[]smbiosModule]("smbios: " + err.Error())
	}

	var modules []smbiosModule
	for _, md := range s.MemoryDevices {
		m := smbiosModule{
			Locator:      md.DeviceLocator,
			Manufacturer: md.Manufacturer,
			PartNumber:   md.PartNumber,
			SpeedMTs:     uint32(md.Speed),
			MemoryType:   md.MemoryType.String(),
			FormFactor:   md.FormFactor.String(),
		}
		switch {
		case md.Size == 0 || md.Size == 0xFFFF:
			// empty slot or unknown
		case md.Size == 0x7FFF:
			m.SizeBytes = uint64(md.ExtendedSize) * 1024 * 1024
		case md.Size&0x8000 != 0:
			// bit 15 set: size is in kilobytes
			m.SizeBytes = uint64(md.Size&0x7FFF) * 1024
		default:
			m.SizeBytes = uint64(md.Size) * 1024 * 1024
		}
		if md.Attributes != 0 {
			m.Rank = int(md.Attributes & 0x0F)
		}
		modules = append(modules, m)
	}
	if len(modules) == 0 {
		return probe.Unavailable[[]smbiosModule]("smbios: no memory devices in table")
	}
	return probe.OK(modules)
}

// smbiosSystemIdentity returns manufacturer/product/serial from the
// type-1 structure.
func smbiosSystemIdentity() probe.Result[[3]string] {
	s, err := smbios.New()
	if err != nil {
		return probe.Unavailable[[3]string]("smbios: " + err.Error())
	}
	si := s.SystemInformation
	id := [3]string{si.Manufacturer, si.ProductName, si.SerialNumber}
	if id[0] == "" && id[1] == "" && id[2] == "" {
		return probe.Unavailable[[3]string]("smbios: system information empty")
	}
	return probe.OK(id)
}
