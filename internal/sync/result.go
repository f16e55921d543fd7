package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/utc"
)

// ExitDataErr is the process exit status for insert-pass anomalies,
// matching BSD sysexits EX_DATAERR.
const ExitDataErr = 65

// Pass names one of the four reconciliation passes.
type Pass string

// The reconciliation passes, in run order.
const (
	PassInsert       Pass = "insert"
	PassUpdate       Pass = "update"
	PassDeactivate   Pass = "deactivate"
	PassNormalizePwd Pass = "normalize_pwd_flag"
)

// Passes lists the passes in run order.
var Passes = []Pass{PassInsert, PassUpdate, PassDeactivate, PassNormalizePwd}

// Buckets collects per-record outcomes for one pass. Keys arrive in sorted
// order, so each bucket stays sorted by construction. Only the insert pass
// populates Skipped and FailedToLinkPerson.
type Buckets struct {
	Succeeded          []string
	Skipped            []string
	Failed             []string
	FailedToLinkPerson []string
}

// Add records a key under its outcome.
func (b *Buckets) Add(outcome Outcome, key string) {
	switch outcome {
	case OutcomeSucceeded:
		b.Succeeded = append(b.Succeeded, key)
	case OutcomeSkipped:
		b.Skipped = append(b.Skipped, key)
	case OutcomeFailedToLinkPerson:
		b.FailedToLinkPerson = append(b.FailedToLinkPerson, key)
	default:
		b.Failed = append(b.Failed, key)
	}
}

// Total returns the number of records bucketed.
func (b *Buckets) Total() int {
	return len(b.Succeeded) + len(b.Skipped) + len(b.Failed) + len(b.FailedToLinkPerson)
}

// Result represents the outcome of one reconciliation run.
type Result struct {
	// Started is when the run began.
	Started utc.Time

	// Finished is when the run completed.
	Finished utc.Time

	// DryRun indicates no mutations were performed.
	DryRun bool

	// Per-pass outcome buckets.
	Insert       Buckets
	Update       Buckets
	Deactivate   Buckets
	NormalizePwd Buckets

	// Planned counts the records each pass set out to touch.
	Planned map[Pass]int
}

// NewResult starts a result clock.
func NewResult() *Result {
	return &Result{
		Started: utc.Now(),
		Planned: make(map[Pass]int),
	}
}

// Finalize stamps the completion time.
func (r *Result) Finalize() {
	r.Finished = utc.Now()
}

// Duration returns how long the run took.
func (r *Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Buckets returns the bucket set for a pass.
func (r *Result) Buckets(pass Pass) *Buckets {
	switch pass {
	case PassInsert:
		return &r.Insert
	case PassUpdate:
		return &r.Update
	case PassDeactivate:
		return &r.Deactivate
	case PassNormalizePwd:
		return &r.NormalizePwd
	default:
		return nil
	}
}

// ExitCode derives the process exit status from the insert-pass buckets.
// Skipped records signal directory data anomalies and win over link
// failures; generic failures in any pass never change the exit status.
func (r *Result) ExitCode() int {
	if len(r.Insert.Skipped) > 0 {
		return ExitDataErr
	}
	if len(r.Insert.FailedToLinkPerson) > 0 {
		return ExitDataErr
	}
	return 0
}

// Summary returns a human-readable summary of the run.
func (r *Result) Summary() string {
	var sb strings.Builder

	if r.DryRun {
		sb.WriteString("Account sync summary (dry run):\n")
	} else {
		sb.WriteString("Account sync summary:\n")
	}

	for _, pass := range Passes {
		b := r.Buckets(pass)
		line := fmt.Sprintf("  %s: %d succeeded, %d failed", pass, len(b.Succeeded), len(b.Failed))
		if pass == PassInsert {
			line += fmt.Sprintf(", %d skipped, %d failed to link person", len(b.Skipped), len(b.FailedToLinkPerson))
		}
		line += fmt.Sprintf(" (%d planned)\n", r.Planned[pass])
		sb.WriteString(line)
	}

	sb.WriteString(fmt.Sprintf("  duration: %s\n", r.Duration().Round(time.Millisecond)))
	return sb.String()
}
