package collector

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/halfax/sysreport/internal/probe"
)

// wmiDiskDrive mirrors Win32_DiskDrive.
type wmiDiskDrive struct {
	Index         uint32
	Model         string
	SerialNumber  string
	MediaType     string
	InterfaceType string
	Size          uint64
}

// Disk lists mounted volumes with usage, matches each to its physical
// device where the platform allows it, and attaches cumulative I/O
// counters and the optional NVMe SMART helper output.
func (c *Collector) Disk(ctx context.Context) DiskReport {
	var rep DiskReport

	parts, err := c.sys.Partitions(ctx, false)
	if err != nil {
		rep.Diagnostics = c.diag(rep.Diagnostics, "disk: partitions unavailable: "+err.Error())
	}

	for _, p := range parts {
		v := VolumeEntry{
			Device:        p.Device,
			Mountpoint:    p.Mountpoint,
			Fstype:        p.Fstype,
			Model:         NotReported,
			Serial:        NotReported,
			MediaType:     NotReported,
			DiskType:      "Unknown",
			InterfaceType: NotReported,
		}
		if u, err := c.sys.Usage(ctx, p.Mountpoint); err == nil {
			v.TotalGB = toGB(u.Total)
			v.UsedGB = toGB(u.Used)
			v.FreeGB = toGB(u.Free)
			v.UsedPercent = u.UsedPercent
		}
		rep.Volumes = append(rep.Volumes, v)
	}

	for _, src := range diskModelSources.sourcesFor(c.facts.OS) {
		switch src {
		case srcWMI:
			c.matchWMIDrives(&rep)
		case srcLsblk:
			c.matchLsblkDevices(ctx, &rep)
		}
	}

	c.attachIOCounters(ctx, &rep)
	c.mergeNVMeHelper(ctx, &rep)
	return rep
}

// inferDiskType classifies the medium from whatever identity fields the
// platform produced. NVMe wins outright; a known rotational flag beats
// the media-type string; the model name is the last resort before
// Unknown.
func inferDiskType(interfaceType, mediaType, tran, model string, rotational *bool) string {
	if strings.Contains(strings.ToUpper(interfaceType), "NVME") || strings.EqualFold(tran, "nvme") {
		return "NVMe SSD"
	}
	if rotational != nil {
		if *rotational {
			return "HDD"
		}
		return "SSD"
	}
	if strings.Contains(strings.ToLower(mediaType), "fixed hard disk") {
		return "HDD"
	}
	if strings.Contains(strings.ToUpper(mediaType), "SSD") {
		return "SSD"
	}

	lower := strings.ToLower(model)
	for _, kw := range []string{"nvme", "ssd", "970", "980", "990", "wd black sn", "kioxia xg", "crucial p", "sabrent"} {
		if strings.Contains(lower, kw) {
			if strings.Contains(lower, "nvme") {
				return "NVMe SSD"
			}
			return "SSD"
		}
	}
	for _, kw := range []string{"wd ", "seagate", "barracuda", "hdd", "hgst"} {
		if strings.Contains(lower, kw) {
			return "HDD"
		}
	}
	return "Unknown"
}

// matchWMIDrives attaches Win32_DiskDrive identity to the volumes. The
// partition-to-drive association table is not queried; with one
// physical drive the mapping is exact, with several it falls back to
// enumeration order.
func (c *Collector) matchWMIDrives(rep *DiskReport) {
	res := wmiDiskDrives()
	if !res.IsOK() || len(res.Value) == 0 {
		return
	}
	drives := res.Value
	for i := range rep.Volumes {
		d := drives[0]
		if len(drives) > 1 && i < len(drives) {
			d = drives[i]
		}
		v := &rep.Volumes[i]
		v.Model = orNotReported(d.Model)
		v.Serial = orNotReported(strings.TrimSpace(d.SerialNumber))
		v.MediaType = orNotReported(d.MediaType)
		v.InterfaceType = orNotReported(d.InterfaceType)
		v.DiskType = inferDiskType(d.InterfaceType, d.MediaType, "", d.Model, nil)
	}
}

// lsblkDevice is one node of the lsblk -J tree.
type lsblkDevice struct {
	Name       string        `json:"name"`
	Model      string        `json:"model"`
	Serial     string        `json:"serial"`
	Rota       flexBool      `json:"rota"`
	Tran       string        `json:"tran"`
	Type       string        `json:"type"`
	Mountpoint string        `json:"mountpoint"`
	Children   []lsblkDevice `json:"children"`
}

type lsblkOutput struct {
	BlockDevices []lsblkDevice `json:"blockdevices"`
}

// flexBool accepts both the modern lsblk boolean and the "0"/"1"
// strings older util-linux emits.
type flexBool struct {
	Set   bool
	Value bool
}

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	switch s {
	case "true", "1":
		b.Set, b.Value = true, true
	case "false", "0":
		b.Set, b.Value = true, false
	}
	return nil
}

func (c *Collector) matchLsblkDevices(ctx context.Context, rep *DiskReport) {
	out := c.exec.Run(ctx, c.timeout, "lsblk", "-J", "-o", "NAME,MODEL,SERIAL,ROTA,TRAN,TYPE,MOUNTPOINT")
	if !out.IsOK() {
		return
	}
	var tree lsblkOutput
	if err := json.Unmarshal([]byte(out.Value), &tree); err != nil {
		rep.Diagnostics = c.diag(rep.Diagnostics, "disk: lsblk: "+err.Error())
		return
	}
	for i := range rep.Volumes {
		v := &rep.Volumes[i]
		d := findDiskForDevice(tree.BlockDevices, strings.TrimPrefix(v.Device, "/dev/"))
		if d == nil {
			continue
		}
		v.Model = orNotReported(strings.TrimSpace(d.Model))
		v.Serial = orNotReported(strings.TrimSpace(d.Serial))
		v.InterfaceType = orNotReported(strings.ToUpper(d.Tran))
		var rota *bool
		if d.Rota.Set {
			rota = &d.Rota.Value
		}
		v.DiskType = inferDiskType("", "", d.Tran, d.Model, rota)
	}
}

// findDiskForDevice returns the top-level disk whose name prefixes the
// partition device name (sda1 -> sda, nvme0n1p2 -> nvme0n1).
func findDiskForDevice(devices []lsblkDevice, partName string) *lsblkDevice {
	var best *lsblkDevice
	for i := range devices {
		d := &devices[i]
		if d.Type != "" && d.Type != "disk" {
			continue
		}
		if strings.HasPrefix(partName, d.Name) {
			if best == nil || len(d.Name) > len(best.Name) {
				best = d
			}
		}
	}
	return best
}

// attachIOCounters joins the per-device counter map to the volumes by
// base device name and derives lifetime average transfer rates.
func (c *Collector) attachIOCounters(ctx context.Context, rep *DiskReport) {
	counters, err := c.sys.DiskIOCounters(ctx)
	if err != nil || len(counters) == 0 {
		return
	}
	for i := range rep.Volumes {
		v := &rep.Volumes[i]
		name := strings.TrimPrefix(v.Device, "/dev/")
		stat, ok := counters[name]
		if !ok {
			// Partition counters may be keyed by the parent disk.
			for key, s := range counters {
				if strings.HasPrefix(name, key) {
					stat, ok = s, true
					break
				}
			}
		}
		if !ok {
			continue
		}
		v.IO = &DiskIOStats{
			ReadBytes:  stat.ReadBytes,
			WriteBytes: stat.WriteBytes,
			ReadTime:   stat.ReadTime,
			WriteTime:  stat.WriteTime,
			ReadCount:  stat.ReadCount,
			WriteCount: stat.WriteCount,
		}
		if stat.ReadTime > 0 {
			v.AvgReadMBps = (float64(stat.ReadBytes) / (1 << 20)) / (float64(stat.ReadTime) / 1000)
		}
		if stat.WriteTime > 0 {
			v.AvgWriteMBps = (float64(stat.WriteBytes) / (1 << 20)) / (float64(stat.WriteTime) / 1000)
		}
	}
}

// mergeNVMeHelper attaches SMART telemetry from the NVMe helper and
// upgrades matching volumes to NVMe SSD when the OS view was vaguer.
func (c *Collector) mergeNVMeHelper(ctx context.Context, rep *DiskReport) {
	res := c.runNVMeHelper(ctx)
	switch res.Status {
	case probe.StatusMalformed:
		rep.Diagnostics = c.diag(rep.Diagnostics, "disk: nvme helper: "+res.Reason)
		return
	case probe.StatusUnavailable:
		return
	}
	nvme := res.Value
	rep.NVMe = &nvme

	for i := range rep.Volumes {
		v := &rep.Volumes[i]
		for _, d := range nvme.Devices {
			if d.DevicePath == "" {
				continue
			}
			if strings.HasPrefix(v.Device, d.DevicePath) {
				if v.DiskType == "Unknown" {
					v.DiskType = "NVMe SSD"
				}
				if v.Model == NotReported && d.FriendlyName != "" {
					v.Model = d.FriendlyName
				}
			}
		}
	}
}
