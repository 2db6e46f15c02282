//go:build windows

package probe

import (
	"sync"

	"github.com/yusufpapurcu/wmi"
)

var (
	wmiOnce  sync.Once
	wmiReady bool
)

// WMIAvailable reports whether the management interface answers at all.
// Resolved once per process with a trivial query so that every adapter
// can branch on a capability flag instead of an import-time failure.
func WMIAvailable() bool {
	wmiOnce.Do(func() {
		var dst []struct{ Caption string }
		wmiReady = wmi.Query("SELECT Caption FROM Win32_OperatingSystem", &dst) == nil
	})
	return wmiReady
}

// WMIQuery runs a WQL query into dst, degrading to Unavailable like any
// other adapter.
func WMIQuery(query string, dst any) Result[struct{}] {
	if !WMIAvailable() {
		return Unavailable[struct{}]("WMI not available")
	}
	if err := wmi.Query(query, dst); err != nil {
		return Unavailable[struct{}]("WMI: " + err.Error())
	}
	return OK(struct{}{})
}
