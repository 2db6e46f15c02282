package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/halfax/sysreport/internal/platform"
)

// Network describes every interface with its bound addresses, the
// aggregate traffic counters, and the live connection count. Counter
// fields are cumulative since boot, so they differ between passes.
func (c *Collector) Network(ctx context.Context) NetworkReport {
	var rep NetworkReport

	ifaces, err := c.sys.Interfaces(ctx)
	if err != nil {
		rep.Diagnostics = c.diag(rep.Diagnostics, "network: interfaces unavailable: "+err.Error())
	}
	for _, iface := range ifaces {
		entry := InterfaceEntry{
			Name:  iface.Name,
			MTU:   iface.MTU,
			Up:    hasFlag(iface.Flags, "up"),
			Speed: c.interfaceSpeed(iface.Name),
		}
		for _, addr := range iface.Addrs {
			entry.Addresses = append(entry.Addresses, parseInterfaceAddr(addr.Addr))
		}
		rep.Interfaces = append(rep.Interfaces, entry)
	}

	if counters, err := c.sys.NetIOCounters(ctx, false); err == nil && len(counters) > 0 {
		io := counters[0]
		rep.IO = NetIOStats{
			BytesSent:   io.BytesSent,
			BytesRecv:   io.BytesRecv,
			PacketsSent: io.PacketsSent,
			PacketsRecv: io.PacketsRecv,
			ErrIn:       io.Errin,
			ErrOut:      io.Errout,
			DropIn:      io.Dropin,
			DropOut:     io.Dropout,
		}
	} else if err != nil {
		rep.Diagnostics = c.diag(rep.Diagnostics, "network: io counters unavailable: "+err.Error())
	}

	if conns, err := c.sys.Connections(ctx, "inet"); err == nil {
		rep.Connections = len(conns)
	}

	return rep
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, want) {
			return true
		}
	}
	return false
}

// interfaceSpeed reads the link speed from sysfs on Linux; no other
// platform exposes it without a management query.
func (c *Collector) interfaceSpeed(name string) string {
	if c.facts.OS != platform.Linux {
		return NotReported
	}
	r := c.exec.ReadFile("/sys/class/net/" + name + "/speed")
	if !r.IsOK() {
		return NotReported
	}
	mbps, err := strconv.Atoi(r.Value)
	if err != nil || mbps <= 0 {
		// Wireless and virtual links report -1 here.
		return NotReported
	}
	if mbps >= 1000 {
		return fmt.Sprintf("%g Gbps", float64(mbps)/1000)
	}
	return fmt.Sprintf("%d Mbps", mbps)
}

// parseInterfaceAddr splits a CIDR-form address into the display entry.
// Bare addresses (no prefix) pass through with the mask unreported.
func parseInterfaceAddr(addr string) AddressEntry {
	entry := AddressEntry{
		Address:   addr,
		Netmask:   NotReported,
		Broadcast: NotReported,
		Family:    "IPv4",
	}
	ip, prefix, ok := strings.Cut(addr, "/")
	if strings.Contains(ip, ":") {
		entry.Family = "IPv6"
	}
	if !ok {
		return entry
	}
	entry.Address = ip
	bits, err := strconv.Atoi(prefix)
	if err != nil {
		return entry
	}
	if entry.Family == "IPv4" {
		entry.Netmask = ipv4Netmask(bits)
	} else {
		entry.Netmask = "/" + prefix
	}
	return entry
}

// ipv4Netmask renders a prefix length in dotted-quad form.
func ipv4Netmask(bits int) string {
	if bits < 0 || bits > 32 {
		return NotReported
	}
	mask := ^uint32(0) << (32 - bits)
	if bits == 0 {
		mask = 0
	}
	return fmt.Sprintf("%d.%d.%d.%d", byte(mask>>24), byte(mask>>16), byte(mask>>8), byte(mask))
}
