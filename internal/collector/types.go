package collector

import "time"

// NotReported is the sentinel for any field the current platform or
// hardware could not supply. It is distinct from zero and from empty so
// the renderer can say "unknown" instead of a silently wrong default.
const NotReported = "Not reported by system API"

// Report is the unified snapshot produced by one collection pass. Every
// pass builds a fresh Report; nothing here is ever mutated afterwards.
//
// Fields documented as point-in-time (current frequencies, utilization,
// temperatures, I/O counters) may differ between otherwise identical
// passes; everything else is deterministic for a fixed set of sources.
type Report struct {
	CollectedAt time.Time `json:"collected_at"`
	Hostname    string    `json:"hostname"`
	Platform    string    `json:"platform"`
	SingleBoard bool      `json:"single_board"`

	System   SystemReport  `json:"system"`
	CPU      CPUReport     `json:"cpu"`
	Memory   MemoryReport  `json:"memory"`
	GPU      GPUReport     `json:"gpu"`
	Disk     DiskReport    `json:"disk"`
	Network  NetworkReport `json:"network"`
	Battery  BatteryReport `json:"battery"`
	Monitors MonitorReport `json:"monitors"`
	PCI      PCIReport     `json:"pci"`
}

// SystemReport holds machine identity and storage/power aggregates.
type SystemReport struct {
	Hostname string `json:"hostname"`
	Model    string `json:"model"`
	Serial   string `json:"serial"`

	TotalStorageGB float64 `json:"total_storage_gb"`
	FreeStorageGB  float64 `json:"total_storage_free_gb"`
	DriveCount     int     `json:"drive_count"`

	Battery     *BatterySnapshot `json:"battery_info,omitempty"`
	PowerSupply *PowerSupply     `json:"power_supply,omitempty"`

	Diagnostics []string `json:"diagnostics,omitempty"`
}

// BatterySnapshot is the short battery summary embedded in the system
// tab; the full health analysis lives in BatteryReport.
type BatterySnapshot struct {
	Percent     float64 `json:"percent"`
	SecsLeft    int64   `json:"secsleft"`
	PowerOnline bool    `json:"power_plugged"`
}

// PowerSupply describes a reported PSU, when the platform exposes one.
type PowerSupply struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// --- Memory ---

// ECCState is the tri-state ECC answer; absence of evidence is its own
// value, never folded into "disabled".
type ECCState int

const (
	ECCUnknown ECCState = iota
	ECCEnabled
	ECCDisabled
)

func (e ECCState) String() string {
	switch e {
	case ECCEnabled:
		return "ECC Enabled (Yes)"
	case ECCDisabled:
		return "ECC Disabled (No)"
	default:
		return "ECC Status: Unknown"
	}
}

// SPDTiming carries the primary DRAM timings; each field is
// independently NotReported.
type SPDTiming struct {
	CAS string `json:"cas"`
	RAS string `json:"ras"`
	RCD string `json:"rcd"`
	RP  string `json:"rp"`
}

// MemoryModule is one physical DIMM (or a synthesized SoC entry on
// single-board hardware).
type MemoryModule struct {
	Slot         string  `json:"slot"`
	CapacityGB   float64 `json:"capacity"`
	Speed        string  `json:"speed"`
	Type         string  `json:"type"`
	Manufacturer string  `json:"manufacturer"`
	PartNumber   string  `json:"part_number"`
}

// MemoryReport merges usage totals with per-module and platform detail.
// Totals are binary gigabytes (bytes / 1024^3), converted once here.
type MemoryReport struct {
	TotalGB     float64 `json:"total"`
	AvailableGB float64 `json:"available"`
	UsedGB      float64 `json:"used"`
	UsedPercent float64 `json:"percent"`

	Modules     []MemoryModule `json:"modules"`
	ModuleCount int            `json:"module_count"`

	ChannelConfig     string    `json:"channel_info"`
	ECC               ECCState  `json:"ecc"`
	ECCDetail         string    `json:"ecc_status"`
	FormFactor        string    `json:"form_factor"`
	CASLatency        string    `json:"cas_latency"`
	Temperature       string    `json:"memory_temp"`
	RankInfo          string    `json:"rank_info"`
	BankInfo          string    `json:"bank_info"`
	SPDTiming         SPDTiming `json:"spd_timing"`
	ControllerInfo    string    `json:"controller_info"`
	NUMAMapping       string    `json:"numa_mapping"`
	MaxSupportedSpeed string    `json:"max_supported_speed"`

	SPDHelper *SPDHelperReport `json:"spd_helper,omitempty"`

	Diagnostics []string `json:"diagnostics,omitempty"`
}

// --- CPU ---

// FrequencyInfo is the merged frequency bundle. Pointers distinguish
// "not obtainable" from a genuine zero; Sources names each producer in
// the order it contributed, most specific first.
type FrequencyInfo struct {
	BaseMHz    *float64 `json:"base,omitempty"`
	MaxMHz     *float64 `json:"max,omitempty"`
	TurboMHz   *float64 `json:"turbo,omitempty"`
	CurrentMHz *float64 `json:"current,omitempty"`
	BusMHz     *float64 `json:"bus,omitempty"`
	Turbo1CMHz *float64 `json:"turbo_1c,omitempty"`
	TurboACMHz *float64 `json:"turbo_ac,omitempty"`

	TurboSupport string   `json:"turbo_support"`
	MSRAccess    string   `json:"msr_access"`
	Sources      []string `json:"sources"`
}

// CoreFrequency is a point-in-time reading for one logical core.
type CoreFrequency struct {
	Core       int     `json:"core"`
	CurrentMHz float64 `json:"frequency_mhz"`
	MaxMHz     float64 `json:"max_mhz"`
	Percent    int     `json:"percentage"`
}

// CoreResidency approximates active vs idle time for one logical core.
type CoreResidency struct {
	Core      int     `json:"core"`
	ActivePct float64 `json:"c0"`
	IdlePct   float64 `json:"c1_plus"`
}

// CacheTopology summarizes cache instance counts across the package.
type CacheTopology struct {
	L1DInstances int `json:"l1d_instances"`
	L2Instances  int `json:"l2_instances"`
	L3Instances  int `json:"l3_instances"`
}

// APICEntry maps one logical processor to its cache sharing groups.
type APICEntry struct {
	Index    int    `json:"index"`
	APIC     int    `json:"apic"`
	CoreType string `json:"core_type"`
	L1DGroup int    `json:"l1d_group"`
	L2Group  int    `json:"l2_group"`
	L3Group  int    `json:"l3_group"`
}

// CPUReport describes the processor package.
type CPUReport struct {
	Brand        string `json:"brand"`
	Architecture string `json:"architecture"`

	LogicalCores  int    `json:"cores_logical"`
	PhysicalCores int    `json:"cores_physical"`
	SMTStatus     string `json:"smt_status"`

	Frequency FrequencyInfo `json:"frequency"`

	CacheL1 string `json:"cache_l1"`
	CacheL2 string `json:"cache_l2"`
	CacheL3 string `json:"cache_l3"`

	TDP       string `json:"tdp"`
	Socket    string `json:"socket"`
	NUMANodes string `json:"numa_nodes"`
	Microcode string `json:"microcode"`

	InstructionSets   []string            `json:"instruction_sets"`
	InstructionGroups map[string][]string `json:"instruction_sets_grouped"`
	Virtualization    string              `json:"virtualization"`
	SecurityFeatures  []string            `json:"security_features"`

	// Point-in-time fields.
	Temperatures     map[string]string `json:"temperatures,omitempty"`
	PerCoreFrequency []CoreFrequency   `json:"per_core_frequency"`
	CStateResidency  []CoreResidency   `json:"c_state_residency"`

	CacheTopology CacheTopology `json:"cache_sharing_groups"`
	APICIDs       []APICEntry   `json:"apic_ids"`

	Diagnostics []string `json:"diagnostics,omitempty"`
}

// --- GPU ---

// GPUEntry is one adapter; entries visible through two sources are
// de-duplicated by name, with nvidia-smi fields taking priority.
type GPUEntry struct {
	Name           string   `json:"name"`
	VRAMGB         *float64 `json:"adapter_ram,omitempty"`
	DriverVersion  string   `json:"driver_version"`
	VideoProcessor string   `json:"video_processor"`
	RefreshRate    string   `json:"current_refresh_rate"`
	VideoMode      string   `json:"video_mode_description"`
	Status         string   `json:"status"`
	DeviceID       string   `json:"device_id"`

	LinkSpeed string `json:"link_speed"`
	LinkWidth string `json:"link_width"`

	// Point-in-time fields.
	CoreUtilization   *float64 `json:"core_utilization,omitempty"`
	MemoryUtilization *float64 `json:"memory_utilization,omitempty"`
	TemperatureC      *float64 `json:"temperature_c,omitempty"`

	Source string `json:"source"`
}

// GPUReport lists detected adapters.
type GPUReport struct {
	GPUs        []GPUEntry `json:"gpus"`
	Diagnostics []string   `json:"diagnostics,omitempty"`
}

// --- Disk ---

// DiskIOStats are cumulative per-device counters (point-in-time).
type DiskIOStats struct {
	ReadBytes  uint64 `json:"read_bytes"`
	WriteBytes uint64 `json:"write_bytes"`
	ReadTime   uint64 `json:"read_time"`
	WriteTime  uint64 `json:"write_time"`
	ReadCount  uint64 `json:"read_count"`
	WriteCount uint64 `json:"write_count"`
}

// VolumeEntry combines a mounted partition with its best-effort matched
// physical device.
type VolumeEntry struct {
	Device     string `json:"device"`
	Mountpoint string `json:"mountpoint"`
	Fstype     string `json:"fstype"`

	TotalGB     float64 `json:"total"`
	UsedGB      float64 `json:"used"`
	FreeGB      float64 `json:"free"`
	UsedPercent float64 `json:"percent"`

	Model         string `json:"model"`
	Serial        string `json:"serial"`
	MediaType     string `json:"media_type"`
	DiskType      string `json:"disk_type"`
	InterfaceType string `json:"interface_type"`

	AvgReadMBps  float64      `json:"avg_read_speed"`
	AvgWriteMBps float64      `json:"avg_write_speed"`
	IO           *DiskIOStats `json:"io_stats,omitempty"`
}

// DiskReport lists mounted volumes plus optional NVMe SMART telemetry
// from the helper binary.
type DiskReport struct {
	Volumes     []VolumeEntry     `json:"volumes"`
	NVMe        *NVMeHelperReport `json:"nvme,omitempty"`
	Diagnostics []string          `json:"diagnostics,omitempty"`
}

// --- Network ---

// AddressEntry is one address bound to an interface.
type AddressEntry struct {
	Family    string `json:"family"`
	Address   string `json:"address"`
	Netmask   string `json:"netmask"`
	Broadcast string `json:"broadcast"`
}

// InterfaceEntry describes one network interface.
type InterfaceEntry struct {
	Name      string         `json:"name"`
	Up        bool           `json:"is_up"`
	MTU       int            `json:"mtu"`
	Speed     string         `json:"speed"`
	Addresses []AddressEntry `json:"addresses"`
}

// NetIOStats are aggregate counters across all interfaces
// (point-in-time).
type NetIOStats struct {
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
	ErrIn       uint64 `json:"errin"`
	ErrOut      uint64 `json:"errout"`
	DropIn      uint64 `json:"dropin"`
	DropOut     uint64 `json:"dropout"`
}

// NetworkReport describes interfaces and aggregate traffic.
type NetworkReport struct {
	Interfaces  []InterfaceEntry `json:"interfaces"`
	IO          NetIOStats       `json:"io"`
	Connections int              `json:"connections"`
	Diagnostics []string         `json:"diagnostics,omitempty"`
}

// --- Battery ---

// BatteryReport is the full battery health analysis. Capacities of zero
// mean unknown; WearLevel is nil until both capacities are known.
type BatteryReport struct {
	Present     bool    `json:"present"`
	Percent     float64 `json:"percent"`
	PowerOnline bool    `json:"power_plugged"`
	SecsLeft    int64   `json:"secsleft"`

	DesignCapacity     int64 `json:"design_capacity"`
	FullChargeCapacity int64 `json:"full_charge_capacity"`

	WearLevel *float64 `json:"wear_level,omitempty"`
	Health    string   `json:"health_status"`

	Diagnostics []string `json:"diagnostics,omitempty"`
}

// --- Monitors ---

// MonitorEntry is one detected display.
type MonitorEntry struct {
	Name        string `json:"name"`
	Resolution  string `json:"resolution"`
	RefreshRate string `json:"refresh_rate"`
	ColorDepth  string `json:"bits_per_pixel"`
	Source      string `json:"source"`

	EDID *EDIDDevice `json:"edid,omitempty"`
}

// MonitorReport lists displays plus any EDID records that could not be
// matched to an enumerated display.
type MonitorReport struct {
	Monitors    []MonitorEntry `json:"monitors"`
	Unmatched   []EDIDDevice   `json:"unmatched_edid,omitempty"`
	Diagnostics []string       `json:"diagnostics,omitempty"`
}

// --- PCI ---

// PCIDevice is one PCI function.
type PCIDevice struct {
	DeviceID   string `json:"device_id"`
	VendorID   string `json:"vendor_id"`
	DeviceCode string `json:"device_code"`
	Class      string `json:"class"`
	ClassGUID  string `json:"class_guid"`
	Driver     string `json:"driver"`
}

// PCIReport is the flat device list.
type PCIReport struct {
	Devices     []PCIDevice `json:"devices"`
	Diagnostics []string    `json:"diagnostics,omitempty"`
}

// ByClass groups devices by their class string.
func (r PCIReport) ByClass() map[string][]PCIDevice {
	if len(r.Devices) == 0 {
		return nil
	}
	groups := make(map[string][]PCIDevice)
	for _, d := range r.Devices {
		groups[d.Class] = append(groups[d.Class], d)
	}
	return groups
}
