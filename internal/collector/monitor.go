package collector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/halfax/sysreport/internal/probe"
)

// wmiDesktopMonitor mirrors Win32_DesktopMonitor.
type wmiDesktopMonitor struct {
	Name         string
	ScreenWidth  uint32
	ScreenHeight uint32
}

// Monitors enumerates attached displays and pairs each with its EDID
// identity block from the helper when one matches. EDID records with no
// matching display are reported separately rather than dropped.
func (c *Collector) Monitors(ctx context.Context) MonitorReport {
	var rep MonitorReport

	for _, src := range monitorSources.sourcesFor(c.facts.OS) {
		if len(rep.Monitors) > 0 {
			break
		}
		switch src {
		case srcWMI:
			c.monitorsFromWMI(&rep)
		case srcXrandr:
			c.monitorsFromXrandr(ctx, &rep)
		case srcWlrRandr:
			c.monitorsFromWlrRandr(ctx, &rep)
		}
	}

	c.mergeEDIDHelper(ctx, &rep)
	return rep
}

func newMonitorEntry(name, source string) MonitorEntry {
	return MonitorEntry{
		Name:        name,
		Resolution:  NotReported,
		RefreshRate: NotReported,
		ColorDepth:  NotReported,
		Source:      source,
	}
}

func (c *Collector) monitorsFromWMI(rep *MonitorReport) {
	res := wmiDesktopMonitors()
	if !res.IsOK() {
		return
	}
	for _, m := range res.Value {
		e := newMonitorEntry(orUnknown(m.Name), string(srcWMI))
		if m.ScreenWidth > 0 && m.ScreenHeight > 0 {
			e.Resolution = fmt.Sprintf("%dx%d", m.ScreenWidth, m.ScreenHeight)
		}
		rep.Monitors = append(rep.Monitors, e)
	}

	// Refresh rate and depth live on the video controller, not the
	// monitor class; apply the first controller's values when the
	// monitor rows did not carry any.
	if vc := wmiVideoControllers(); vc.IsOK() && len(vc.Value) > 0 {
		for i := range rep.Monitors {
			if rep.Monitors[i].RefreshRate == NotReported && vc.Value[0].CurrentRefreshRate > 0 {
				rep.Monitors[i].RefreshRate = fmt.Sprintf("%d Hz", vc.Value[0].CurrentRefreshRate)
			}
		}
	}
}

func (c *Collector) monitorsFromXrandr(ctx context.Context, rep *MonitorReport) {
	out := c.exec.Run(ctx, c.timeout, "xrandr", "--query")
	if !out.IsOK() {
		return
	}
	rep.Monitors = append(rep.Monitors, parseXrandr(out.Value)...)
}

var xrandrGeometry = regexp.MustCompile(`(\d+x\d+)\+\d+\+\d+`)

// parseXrandr extracts connected outputs and the refresh rate of the
// active mode (marked with '*').
func parseXrandr(out string) []MonitorEntry {
	var monitors []MonitorEntry
	var cur *MonitorEntry
	flush := func() {
		if cur != nil {
			monitors = append(monitors, *cur)
		}
		cur = nil
	}

	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			flush()
			fields := strings.Fields(line)
			if len(fields) < 2 || fields[1] != "connected" {
				continue
			}
			e := newMonitorEntry(fields[0], string(srcXrandr))
			if m := xrandrGeometry.FindStringSubmatch(line); m != nil {
				e.Resolution = m[1]
			}
			cur = &e
			continue
		}
		if cur == nil || !strings.Contains(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if cur.Resolution == NotReported && len(fields) > 0 {
			cur.Resolution = fields[0]
		}
		for _, f := range fields[1:] {
			if strings.ContainsAny(f, "*") {
				rate := strings.Trim(f, "*+ ")
				if rate != "" {
					cur.RefreshRate = rate + " Hz"
				}
				break
			}
		}
	}
	flush()
	return monitors
}

func (c *Collector) monitorsFromWlrRandr(ctx context.Context, rep *MonitorReport) {
	out := c.exec.Run(ctx, c.timeout, "wlr-randr")
	if !out.IsOK() {
		return
	}
	rep.Monitors = append(rep.Monitors, parseWlrRandr(out.Value)...)
}

var wlrMode = regexp.MustCompile(`(\d+x\d+)\s*px,\s*([\d.]+)\s*Hz`)

// parseWlrRandr handles the wayland tool's indented layout: output
// names at column zero, modes indented, the active one marked
// "current".
func parseWlrRandr(out string) []MonitorEntry {
	var monitors []MonitorEntry
	var cur *MonitorEntry
	flush := func() {
		if cur != nil {
			monitors = append(monitors, *cur)
		}
		cur = nil
	}

	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, " ") {
			flush()
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			e := newMonitorEntry(fields[0], string(srcWlrRandr))
			cur = &e
			continue
		}
		if cur == nil || !strings.Contains(line, "current") {
			continue
		}
		if m := wlrMode.FindStringSubmatch(line); m != nil {
			cur.Resolution = m[1]
			cur.RefreshRate = m[2] + " Hz"
		}
	}
	flush()
	return monitors
}

// mergeEDIDHelper attaches EDID identity to matching displays by
// connector name; leftovers land in Unmatched.
func (c *Collector) mergeEDIDHelper(ctx context.Context, rep *MonitorReport) {
	res := c.runEDIDHelper(ctx)
	switch res.Status {
	case probe.StatusMalformed:
		rep.Diagnostics = c.diag(rep.Diagnostics, "monitors: edid helper: "+res.Reason)
		return
	case probe.StatusUnavailable:
		return
	}

	for _, dev := range res.Value.Devices {
		d := dev
		if i := matchEDIDToMonitor(rep.Monitors, d); i >= 0 {
			rep.Monitors[i].EDID = &d
			if rep.Monitors[i].Name == "Unknown" && d.MonitorName != "" {
				rep.Monitors[i].Name = d.MonitorName
			}
			continue
		}
		rep.Unmatched = append(rep.Unmatched, d)
	}
}

// matchEDIDToMonitor pairs an EDID record with a display by connector
// substring: the DRM device "card0-HDMI-A-1" matches the xrandr output
// "HDMI-A-1" (and the X name "HDMI-1" matches via a relaxed form).
func matchEDIDToMonitor(monitors []MonitorEntry, d EDIDDevice) int {
	dev := strings.ToLower(d.Device)
	for i, m := range monitors {
		if m.EDID != nil {
			continue
		}
		name := strings.ToLower(m.Name)
		if name == "" || name == "unknown" {
			continue
		}
		if strings.Contains(dev, name) || strings.Contains(dev, strings.ReplaceAll(name, "-", "-a-")) {
			return i
		}
		if d.MonitorName != "" && strings.EqualFold(d.MonitorName, m.Name) {
			return i
		}
	}
	// Single display, single EDID record: pair them regardless of the
	// connector spelling.
	if len(monitors) == 1 && monitors[0].EDID == nil {
		return 0
	}
	return -1
}
