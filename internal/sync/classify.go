package sync

import (
	"strings"
)

// Outcome is the bucket a per-record action lands in.
type Outcome int

// Per-record outcomes.
const (
	OutcomeSucceeded Outcome = iota
	OutcomeFailed
	OutcomeSkipped
	OutcomeFailedToLinkPerson
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailedToLinkPerson:
		return "failed_to_link_person"
	default:
		return "unknown"
	}
}

// Failure-text markers. The directory's read API cannot see accounts whose
// validity window has not started, so the diff reports them missing and the
// create collides with a "not unique" rejection; those records are skipped,
// not failed. The "unpack" marker identifies an exactly-one person lookup
// that matched zero or several records.
const (
	notUniqueMarker = "not unique"
	unpackMarker    = "unpack"
)

// Classify maps a per-record failure to its outcome bucket. The chain is
// the same for every error kind and every pass; this is the only place
// that inspects failure text.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSucceeded
	}

	message := err.Error()
	switch {
	case strings.Contains(message, notUniqueMarker):
		return OutcomeSkipped
	case strings.Contains(message, unpackMarker):
		return OutcomeFailedToLinkPerson
	default:
		return OutcomeFailed
	}
}
