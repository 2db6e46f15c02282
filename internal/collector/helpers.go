package collector

import (
	"context"

	"github.com/halfax/sysreport/internal/probe"
)

// Helper binaries are pluggable external tools speaking a fixed JSON
// contract on stdout. The collectors depend only on that contract; a
// missing key or wrong type degrades that one field, never the call.

const (
	helperCPUID = "cpuid_helper"
	helperSPD   = "spd_helper"
	helperNVMe  = "nvme_helper"
	helperEDID  = "edid_helper"
)

// cpuidPayload is the CPUID helper's top-level object. Numeric fields
// are zero when the helper omitted them; inclusivity uses -1 for
// unknown, matching the helper.
type cpuidPayload struct {
	Success bool   `json:"success"`
	Brand   string `json:"brand"`

	BaseMHz float64 `json:"base_mhz"`
	MaxMHz  float64 `json:"max_mhz"`
	BusMHz  float64 `json:"bus_mhz"`

	Turbo1CMHz     float64 `json:"cpuid_max_turbo_1c_mhz"`
	TurboACMHz     float64 `json:"cpuid_max_turbo_ac_mhz"`
	TurboSupported bool    `json:"turbo_supported"`
	MSRAccess      string  `json:"msr_access"`

	NumLogicalCores int `json:"num_logical_cores"`

	L1DKB        int `json:"l1d_kb"`
	L1DAssoc     int `json:"l1d_assoc"`
	L1DLine      int `json:"l1d_line"`
	L1DSets      int `json:"l1d_sets"`
	L1DSharing   int `json:"l1d_cores_sharing"`
	L1DInclusive int `json:"l1d_inclusive"`

	L1IKB        int `json:"l1i_kb"`
	L1IAssoc     int `json:"l1i_assoc"`
	L1ILine      int `json:"l1i_line"`
	L1ISets      int `json:"l1i_sets"`
	L1ISharing   int `json:"l1i_cores_sharing"`
	L1IInclusive int `json:"l1i_inclusive"`

	L2KB        int `json:"l2_kb"`
	L2Assoc     int `json:"l2_assoc"`
	L2Line      int `json:"l2_line"`
	L2Sets      int `json:"l2_sets"`
	L2Sharing   int `json:"l2_cores_sharing"`
	L2Inclusive int `json:"l2_inclusive"`

	L3KB        int `json:"l3_kb"`
	L3Assoc     int `json:"l3_assoc"`
	L3Line      int `json:"l3_line"`
	L3Sets      int `json:"l3_sets"`
	L3Sharing   int `json:"l3_cores_sharing"`
	L3Inclusive int `json:"l3_inclusive"`

	APICIDs      []APICEntry   `json:"apic_ids"`
	CacheSharing CacheTopology `json:"cache_sharing"`
}

// cacheLevel is one cache level's detail, normalized for formatting.
type cacheLevel struct {
	Label     string
	SizeKB    int
	Assoc     int
	LineBytes int
	Sets      int
	Sharing   int
	Inclusive int // 1 inclusive, 0 exclusive, -1 unknown
}

func (p cpuidPayload) l1d() cacheLevel {
	return cacheLevel{"L1D", p.L1DKB, p.L1DAssoc, p.L1DLine, p.L1DSets, p.L1DSharing, p.L1DInclusive}
}

func (p cpuidPayload) l1i() cacheLevel {
	return cacheLevel{"L1I", p.L1IKB, p.L1IAssoc, p.L1ILine, p.L1ISets, p.L1ISharing, p.L1IInclusive}
}

func (p cpuidPayload) l2() cacheLevel {
	return cacheLevel{"L2", p.L2KB, p.L2Assoc, p.L2Line, p.L2Sets, p.L2Sharing, p.L2Inclusive}
}

func (p cpuidPayload) l3() cacheLevel {
	return cacheLevel{"L3", p.L3KB, p.L3Assoc, p.L3Line, p.L3Sets, p.L3Sharing, p.L3Inclusive}
}

func (c *Collector) runCPUIDHelper(ctx context.Context) probe.Result[cpuidPayload] {
	r := probe.HelperJSON[cpuidPayload](ctx, c.exec, c.helperDir, helperCPUID, c.timeout)
	if r.IsOK() && !r.Value.Success {
		return probe.Unavailable[cpuidPayload](helperCPUID + ": helper reported failure")
	}
	return r
}

// spdHelperDIMM is one slot as reported by the SPD/SMBIOS helper.
type spdHelperDIMM struct {
	Slot              string `json:"slot"`
	Channel           string `json:"channel"`
	Present           bool   `json:"present"`
	SizeMB            int64  `json:"size_mb"`
	SpeedMHz          int    `json:"speed_mhz"`
	ConfiguredSpeed   int    `json:"configured_speed_mhz"`
	Manufacturer      string `json:"manufacturer"`
	PartNumber        string `json:"part_number"`
	SerialNumber      string `json:"serial_number"`
	DDRGeneration     string `json:"ddr_generation"`
	ModuleType        string `json:"module_type"`
	FormFactor        string `json:"form_factor"`
	Rank              int    `json:"rank"`
	DataWidth         int    `json:"data_width"`
	TotalWidth        int    `json:"total_width"`
	ECC               bool   `json:"ecc"`
	VoltageMV         int    `json:"voltage_mv"`
	JEDECProfile      string `json:"jedec_profile"`
	TimingsAvailable  bool   `json:"timings_available"`
	Timings           string `json:"timings"`
	DataSource        string `json:"data_source"`
}

// spdMemoryArray is the SMBIOS type-16 summary.
type spdMemoryArray struct {
	MaxCapacityMB int64  `json:"max_capacity_mb"`
	NumSlots      int    `json:"num_slots"`
	SystemECCType string `json:"system_ecc_type"`
}

// spdMemoryError is one SMBIOS memory-error record.
type spdMemoryError struct {
	ErrorType        string `json:"error_type"`
	ErrorGranularity string `json:"error_granularity"`
	ErrorOperation   string `json:"error_operation"`
	ErrorCount       int    `json:"error_count"`
}

// SPDHelperReport is the decoded SPD helper output, carried verbatim on
// the memory report when the helper is present and parseable.
type SPDHelperReport struct {
	DIMMs        []spdHelperDIMM  `json:"dimms"`
	Method       string           `json:"method"`
	Note         string           `json:"note"`
	MemoryArray  *spdMemoryArray  `json:"memory_array,omitempty"`
	MemoryErrors []spdMemoryError `json:"memory_errors,omitempty"`
}

// NVMeDevice is one drive from the NVMe SMART helper. Pointer fields
// are per-field optional per the helper contract.
type NVMeDevice struct {
	Index         int      `json:"index"`
	DevicePath    string   `json:"device_path"`
	FriendlyName  string   `json:"friendly_name"`
	CapacityBytes uint64   `json:"capacity_bytes"`
	TemperatureC  *float64 `json:"temperature_c,omitempty"`
	WearLevelPct  *float64 `json:"wear_level_percent,omitempty"`
	PowerOnHours  *uint64  `json:"power_on_hours,omitempty"`
	DataUnitsWr   *uint64  `json:"data_units_written,omitempty"`
	MediaErrors   *uint64  `json:"media_errors,omitempty"`
}

// NVMeHelperReport is the decoded NVMe helper output.
type NVMeHelperReport struct {
	Devices []NVMeDevice `json:"nvme_devices"`
	Method  string       `json:"method"`
	Note    string       `json:"note"`
}

// EDIDDevice is one display's EDID identity block.
type EDIDDevice struct {
	Device           string  `json:"device"`
	Manufacturer     string  `json:"manufacturer"`
	ManufacturerID   string  `json:"manufacturer_id"`
	ProductCode      string  `json:"product_code"`
	MonitorName      string  `json:"monitor_name"`
	SerialNumber     string  `json:"serial_number"`
	PhysicalWidthCm  float64 `json:"physical_width_cm"`
	PhysicalHeightCm float64 `json:"physical_height_cm"`
	ManufactureWeek  int     `json:"manufacturing_week"`
	ManufactureYear  int     `json:"manufacturing_year"`
	Gamma            float64 `json:"gamma"`
	EDIDVersion      string  `json:"edid_version"`
	InputType        string  `json:"input_type"`
}

type edidHelperReport struct {
	Devices []EDIDDevice `json:"edid_devices"`
}

func (c *Collector) runSPDHelper(ctx context.Context) probe.Result[SPDHelperReport] {
	return probe.HelperJSON[SPDHelperReport](ctx, c.exec, c.helperDir, helperSPD, c.timeout)
}

func (c *Collector) runNVMeHelper(ctx context.Context) probe.Result[NVMeHelperReport] {
	return probe.HelperJSON[NVMeHelperReport](ctx, c.exec, c.helperDir, helperNVMe, c.timeout)
}

func (c *Collector) runEDIDHelper(ctx context.Context) probe.Result[edidHelperReport] {
	return probe.HelperJSON[edidHelperReport](ctx, c.exec, c.helperDir, helperEDID, c.timeout)
}
