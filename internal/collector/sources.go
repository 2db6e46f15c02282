package collector

import "github.com/halfax/sysreport/internal/platform"

// Source identifies one external source a collector can try. Collectors
// walk the platform's ordered list and merge results high-to-low: a
// later source only fills fields still unset.
type Source string

const (
	srcCPUIDHelper Source = "cpuid-helper"
	srcCPUID       Source = "cpuid"
	srcWMI         Source = "wmi"
	srcPowerShell  Source = "powershell"
	srcKernelPower Source = "nt-power"
	srcRegistry    Source = "registry"
	srcSMBIOS      Source = "smbios"
	srcDmidecode   Source = "dmidecode"
	srcLscpu       Source = "lscpu"
	srcLsblk       Source = "lsblk"
	srcLspci       Source = "lspci"
	srcNumactl     Source = "numactl"
	srcNvidiaSMI   Source = "nvidia-smi"
	srcXrandr      Source = "xrandr"
	srcWlrRandr    Source = "wlr-randr"
	srcSysfs       Source = "sysfs"
	srcProcfs      Source = "procfs"
	srcGopsutil    Source = "gopsutil"
	srcBoard       Source = "board"
	srcHeuristic   Source = "heuristic"
)

// sourceTable maps a platform to the ordered candidate sources for one
// domain concern. Keeping the fallback order as data makes it testable
// on its own and keeps the collectors free of platform conditionals.
type sourceTable map[platform.OS][]Source

func (t sourceTable) sourcesFor(os platform.OS) []Source {
	if s, ok := t[os]; ok {
		return s
	}
	return t[platform.Other]
}

var (
	frequencySources = sourceTable{
		platform.Windows: {srcCPUIDHelper, srcCPUID, srcWMI, srcGopsutil},
		platform.Linux:   {srcCPUIDHelper, srcCPUID, srcSysfs, srcProcfs, srcGopsutil},
		platform.Darwin:  {srcCPUID, srcGopsutil},
		platform.Other:   {srcGopsutil},
	}

	cacheSources = sourceTable{
		platform.Windows: {srcCPUIDHelper, srcCPUID, srcWMI},
		platform.Linux:   {srcCPUIDHelper, srcCPUID, srcLscpu},
		platform.Darwin:  {srcCPUID},
		platform.Other:   {srcCPUID},
	}

	memoryModuleSources = sourceTable{
		platform.Windows: {srcWMI},
		platform.Linux:   {srcBoard, srcSMBIOS, srcDmidecode},
		platform.Darwin:  {},
		platform.Other:   {},
	}

	gpuSources = sourceTable{
		platform.Windows: {srcNvidiaSMI, srcPowerShell, srcWMI},
		platform.Linux:   {srcNvidiaSMI, srcLspci, srcBoard},
		platform.Darwin:  {},
		platform.Other:   {},
	}

	diskModelSources = sourceTable{
		platform.Windows: {srcWMI},
		platform.Linux:   {srcLsblk},
		platform.Darwin:  {},
		platform.Other:   {},
	}

	monitorSources = sourceTable{
		platform.Windows: {srcWMI},
		platform.Linux:   {srcXrandr, srcWlrRandr},
		platform.Darwin:  {},
		platform.Other:   {},
	}

	pciSources = sourceTable{
		platform.Windows: {srcRegistry},
		platform.Linux:   {srcSysfs},
		platform.Darwin:  {},
		platform.Other:   {},
	}
)
