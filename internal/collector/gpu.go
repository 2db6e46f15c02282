package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// wmiVideoController mirrors Win32_VideoController.
type wmiVideoController struct {
	Name                 string
	AdapterRAM           uint64
	DriverVersion        string
	VideoProcessor       string
	CurrentRefreshRate   uint32
	VideoModeDescription string
	Status               string
	DeviceID             string
}

// GPU enumerates adapters through the platform's sources. Entries seen
// by more than one source merge by name, with the earlier (more
// capable) source's fields kept and later sources filling gaps only.
func (c *Collector) GPU(ctx context.Context) GPUReport {
	var rep GPUReport

	for _, src := range gpuSources.sourcesFor(c.facts.OS) {
		switch src {
		case srcNvidiaSMI:
			c.gpusFromNvidiaSMI(ctx, &rep)
		case srcWMI:
			c.gpusFromWMI(&rep)
		case srcPowerShell:
			c.gpusFromPowerShell(ctx, &rep)
		case srcLspci:
			c.gpusFromLspci(ctx, &rep)
		case srcBoard:
			if c.facts.SingleBoard && len(rep.GPUs) == 0 {
				rep.GPUs = append(rep.GPUs, newGPUEntry("Broadcom VideoCore (integrated)", string(srcBoard)))
			}
		}
	}
	return rep
}

func newGPUEntry(name, source string) GPUEntry {
	return GPUEntry{
		Name:           name,
		DriverVersion:  NotReported,
		VideoProcessor: NotReported,
		RefreshRate:    NotReported,
		VideoMode:      NotReported,
		Status:         NotReported,
		DeviceID:       NotReported,
		LinkSpeed:      NotReported,
		LinkWidth:      NotReported,
		Source:         source,
	}
}

// mergeGPU folds a new sighting into the report: fill-only-unset when
// the adapter is already listed, append otherwise.
func mergeGPU(rep *GPUReport, entry GPUEntry) {
	key := gpuKey(entry.Name)
	for i := range rep.GPUs {
		if gpuKey(rep.GPUs[i].Name) != key {
			continue
		}
		dst := &rep.GPUs[i]
		if dst.VRAMGB == nil {
			dst.VRAMGB = entry.VRAMGB
		}
		fillString(&dst.DriverVersion, entry.DriverVersion)
		fillString(&dst.VideoProcessor, entry.VideoProcessor)
		fillString(&dst.RefreshRate, entry.RefreshRate)
		fillString(&dst.VideoMode, entry.VideoMode)
		fillString(&dst.Status, entry.Status)
		fillString(&dst.DeviceID, entry.DeviceID)
		fillString(&dst.LinkSpeed, entry.LinkSpeed)
		fillString(&dst.LinkWidth, entry.LinkWidth)
		if dst.CoreUtilization == nil {
			dst.CoreUtilization = entry.CoreUtilization
		}
		if dst.MemoryUtilization == nil {
			dst.MemoryUtilization = entry.MemoryUtilization
		}
		if dst.TemperatureC == nil {
			dst.TemperatureC = entry.TemperatureC
		}
		dst.Source += "+" + entry.Source
		return
	}
	rep.GPUs = append(rep.GPUs, entry)
}

func fillString(dst *string, v string) {
	if *dst == NotReported && v != NotReported && v != "" {
		*dst = v
	}
}

// gpuKey normalizes an adapter name for de-duplication across sources
// that format vendor prefixes differently.
func gpuKey(name string) string {
	k := strings.ToLower(name)
	for _, drop := range []string{"nvidia ", "amd ", "intel(r) ", "intel ", "(r)", "(tm)"} {
		k = strings.ReplaceAll(k, drop, "")
	}
	return strings.Join(strings.Fields(k), " ")
}

const nvidiaSMIFields = "name,memory.total,driver_version,utilization.gpu,utilization.memory,temperature.gpu,pcie.link.gen.current,pcie.link.width.current"

func (c *Collector) gpusFromNvidiaSMI(ctx context.Context, rep *GPUReport) {
	out := c.exec.Run(ctx, c.timeout, "nvidia-smi",
		"--query-gpu="+nvidiaSMIFields, "--format=csv,noheader,nounits")
	if !out.IsOK() {
		return
	}
	entries, err := parseNvidiaSMI(out.Value)
	if err != nil {
		rep.Diagnostics = c.diag(rep.Diagnostics, "gpu: nvidia-smi: "+err.Error())
		return
	}
	for _, e := range entries {
		mergeGPU(rep, e)
	}
}

// parseNvidiaSMI parses one CSV row per GPU in the query-gpu field
// order. Unparseable numeric cells (the tool prints "[N/A]") leave the
// field unset instead of failing the row.
func parseNvidiaSMI(out string) ([]GPUEntry, error) {
	var entries []GPUEntry
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, ",")
		if len(cols) < 8 {
			return nil, fmt.Errorf("expected 8 columns, got %d in %q", len(cols), line)
		}
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}

		e := newGPUEntry(cols[0], string(srcNvidiaSMI))
		if mb, err := strconv.ParseFloat(cols[1], 64); err == nil {
			gb := mb / 1024
			e.VRAMGB = &gb
		}
		e.DriverVersion = cols[2]
		if v, err := strconv.ParseFloat(cols[3], 64); err == nil {
			e.CoreUtilization = &v
		}
		if v, err := strconv.ParseFloat(cols[4], 64); err == nil {
			e.MemoryUtilization = &v
		}
		if v, err := strconv.ParseFloat(cols[5], 64); err == nil {
			e.TemperatureC = &v
		}
		if cols[6] != "" && !strings.Contains(cols[6], "N/A") {
			e.LinkSpeed = "PCIe Gen " + cols[6]
		}
		if cols[7] != "" && !strings.Contains(cols[7], "N/A") {
			e.LinkWidth = "x" + cols[7]
		}
		e.Status = "OK"
		entries = append(entries, e)
	}
	return entries, nil
}

func (c *Collector) gpusFromWMI(rep *GPUReport) {
	res := wmiVideoControllers()
	if !res.IsOK() {
		return
	}
	for _, v := range res.Value {
		e := newGPUEntry(v.Name, string(srcWMI))
		if v.AdapterRAM > 0 {
			gb := toGB(v.AdapterRAM)
			e.VRAMGB = &gb
		}
		e.DriverVersion = orNotReported(v.DriverVersion)
		e.VideoProcessor = orNotReported(v.VideoProcessor)
		if v.CurrentRefreshRate > 0 {
			e.RefreshRate = fmt.Sprintf("%d Hz", v.CurrentRefreshRate)
		}
		e.VideoMode = orNotReported(v.VideoModeDescription)
		e.Status = orNotReported(v.Status)
		e.DeviceID = orNotReported(v.DeviceID)
		mergeGPU(rep, e)
	}
}

// psVideoController is the ConvertTo-Json shape of the PowerShell
// fallback query; CIM serializes a single adapter as a bare object.
type psVideoController struct {
	Name                 string `json:"Name"`
	AdapterRAM           uint64 `json:"AdapterRAM"`
	DriverVersion        string `json:"DriverVersion"`
	VideoProcessor       string `json:"VideoProcessor"`
	CurrentRefreshRate   uint32 `json:"CurrentRefreshRate"`
	VideoModeDescription string `json:"VideoModeDescription"`
	Status               string `json:"Status"`
}

func (c *Collector) gpusFromPowerShell(ctx context.Context, rep *GPUReport) {
	out := c.exec.Run(ctx, c.timeout, "powershell", "-NoProfile", "-NonInteractive", "-Command",
		"Get-CimInstance Win32_VideoController | Select-Object Name,AdapterRAM,DriverVersion,VideoProcessor,CurrentRefreshRate,VideoModeDescription,Status | ConvertTo-Json")
	if !out.IsOK() {
		return
	}
	controllers, err := parsePowerShellVideoControllers(out.Value)
	if err != nil {
		rep.Diagnostics = c.diag(rep.Diagnostics, "gpu: powershell: "+err.Error())
		return
	}
	for _, v := range controllers {
		e := newGPUEntry(v.Name, string(srcPowerShell))
		if v.AdapterRAM > 0 {
			gb := toGB(v.AdapterRAM)
			e.VRAMGB = &gb
		}
		e.DriverVersion = orNotReported(v.DriverVersion)
		e.VideoProcessor = orNotReported(v.VideoProcessor)
		if v.CurrentRefreshRate > 0 {
			e.RefreshRate = fmt.Sprintf("%d Hz", v.CurrentRefreshRate)
		}
		e.VideoMode = orNotReported(v.VideoModeDescription)
		e.Status = orNotReported(v.Status)
		mergeGPU(rep, e)
	}
}

func parsePowerShellVideoControllers(out string) ([]psVideoController, error) {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var many []psVideoController
		if err := json.Unmarshal([]byte(trimmed), &many); err != nil {
			return nil, err
		}
		return many, nil
	}
	var one psVideoController
	if err := json.Unmarshal([]byte(trimmed), &one); err != nil {
		return nil, err
	}
	return []psVideoController{one}, nil
}

func (c *Collector) gpusFromLspci(ctx context.Context, rep *GPUReport) {
	out := c.exec.Run(ctx, c.timeout, "lspci")
	if !out.IsOK() {
		return
	}
	for _, name := range parseLspciDisplayAdapters(out.Value) {
		mergeGPU(rep, newGPUEntry(name, string(srcLspci)))
	}
}

// parseLspciDisplayAdapters keeps VGA/3D/Display class lines and
// returns the device description after the class prefix.
func parseLspciDisplayAdapters(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "vga compatible controller") &&
			!strings.Contains(lower, "3d controller") &&
			!strings.Contains(lower, "display controller") {
			continue
		}
		if _, desc, ok := strings.Cut(line, ": "); ok {
			names = append(names, strings.TrimSpace(desc))
		}
	}
	return names
}

func orNotReported(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return NotReported
	}
	return s
}
