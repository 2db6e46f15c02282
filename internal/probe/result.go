// Package probe wraps every external source the collectors draw from:
// subprocess invocations, pseudo-filesystem reads, helper binaries, and
// (on Windows) WMI. All of them degrade to an explicit Result value; no
// probe failure ever propagates as an error.
package probe

// Status classifies the outcome of a single probe.
type Status int

const (
	// StatusOK means the source produced usable output.
	StatusOK Status = iota

	// StatusUnavailable means the source does not exist, denied access,
	// exited non-zero, or timed out.
	StatusUnavailable

	// StatusMalformed means the source responded but its output failed
	// structural parsing.
	StatusMalformed
)

// Result is the tagged outcome of one probe. Collectors branch on it;
// they never see an error from this package.
type Result[T any] struct {
	Status Status
	Value  T

	// Reason is a short human-readable note for Unavailable and
	// Malformed results, suitable for report diagnostics.
	Reason string
}

// OK wraps a successful probe value.
func OK[T any](v T) Result[T] {
	return Result[T]{Status: StatusOK, Value: v}
}

// Unavailable marks a source as absent, denied, or timed out.
func Unavailable[T any](reason string) Result[T] {
	return Result[T]{Status: StatusUnavailable, Reason: reason}
}

// Malformed marks a source that responded with unparseable output.
func Malformed[T any](reason string) Result[T] {
	return Result[T]{Status: StatusMalformed, Reason: reason}
}

// IsOK reports whether the probe produced a value.
func (r Result[T]) IsOK() bool { return r.Status == StatusOK }
