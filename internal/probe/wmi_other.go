//go:build !windows

package probe

// WMIAvailable is always false off Windows.
func WMIAvailable() bool { return false }

// WMIQuery is a stub so collectors can reference the adapter without
// build tags of their own.
func WMIQuery(query string, dst any) Result[struct{}] {
	return Unavailable[struct{}]("WMI not available on this platform")
}
