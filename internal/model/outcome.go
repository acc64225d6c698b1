package model

// Status tags the result of processing a single row. Rows never abort the
// batch: transient failures are requeued, everything else is emitted.
type Status int

const (
	// StatusEmitted means the row resolved (or definitively failed to
	// resolve) and was written to the batch output.
	StatusEmitted Status = iota
	// StatusRequeued means a transient lookup failure left the row on the
	// retry queue for the delayed second pass.
	StatusRequeued
	// StatusAbandoned means the second pass also failed and the row was
	// force-written without an identifier.
	StatusAbandoned
)

func (s Status) String() string {
	switch s {
	case StatusEmitted:
		return "emitted"
	case StatusRequeued:
		return "requeued"
	case StatusAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Outcome pairs a processed row with its terminal status and, for requeued
// and abandoned rows, the error that caused it.
type Outcome struct {
	Row    *Row
	Status Status
	Err    error
}
