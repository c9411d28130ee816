package maintenance

// Status classifies the result of the power-on maintenance sequence.
type Status int

const (
	// StatusSuccess means every step completed without a fatal failure.
	StatusSuccess Status = iota

	// StatusRecovered means a step failed but the single recovery attempt
	// brought the store back to a validated state.
	StatusRecovered

	// StatusFatal means the store could not be validated even after
	// recovery. The caller must not begin accepting load.
	StatusFatal
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRecovered:
		return "recovered"
	case StatusFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is the result of the power-on maintenance sequence. The failure
// branch is a first-class return value rather than a raised error so both
// branches are plain call paths.
type Outcome struct {
	Status Status

	// Reason describes the failing step for non-success outcomes,
	// distinguishing structural failures from space exhaustion.
	Reason string
}

// Fatal reports whether the system must abort startup.
func (o Outcome) Fatal() bool {
	return o.Status == StatusFatal
}
