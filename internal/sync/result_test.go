package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketsAdd(t *testing.T) {
	var b Buckets
	b.Add(OutcomeSucceeded, "a")
	b.Add(OutcomeSkipped, "b")
	b.Add(OutcomeFailed, "c")
	b.Add(OutcomeFailedToLinkPerson, "d")
	b.Add(Outcome(99), "e") // unknown outcomes count as failures

	assert.Equal(t, []string{"a"}, b.Succeeded)
	assert.Equal(t, []string{"b"}, b.Skipped)
	assert.Equal(t, []string{"c", "e"}, b.Failed)
	assert.Equal(t, []string{"d"}, b.FailedToLinkPerson)
	assert.Equal(t, 5, b.Total())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Result)
		code   int
	}{
		{
			name:   "empty run exits clean",
			mutate: func(*Result) {},
			code:   0,
		},
		{
			name: "insert skipped trips data error",
			mutate: func(r *Result) {
				r.Insert.Add(OutcomeSkipped, "dupe")
			},
			code: ExitDataErr,
		},
		{
			name: "insert link failure trips data error",
			mutate: func(r *Result) {
				r.Insert.Add(OutcomeFailedToLinkPerson, "orphan")
			},
			code: ExitDataErr,
		},
		{
			name: "skipped wins over link failure",
			mutate: func(r *Result) {
				r.Insert.Add(OutcomeSkipped, "dupe")
				r.Insert.Add(OutcomeFailedToLinkPerson, "orphan")
			},
			code: ExitDataErr,
		},
		{
			name: "generic failures never change the exit status",
			mutate: func(r *Result) {
				r.Insert.Add(OutcomeFailed, "a")
				r.Update.Add(OutcomeFailed, "b")
				r.Deactivate.Add(OutcomeFailed, "c")
				r.NormalizePwd.Add(OutcomeFailed, "d")
			},
			code: 0,
		},
		{
			name: "successes alongside failures still exit clean",
			mutate: func(r *Result) {
				r.Insert.Add(OutcomeSucceeded, "a")
				r.Update.Add(OutcomeFailed, "b")
			},
			code: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewResult()
			tt.mutate(result)
			result.Finalize()
			assert.Equal(t, tt.code, result.ExitCode())
		})
	}
}

func TestResultSummary(t *testing.T) {
	result := NewResult()
	result.Planned[PassInsert] = 3
	result.Planned[PassUpdate] = 10
	result.Insert.Add(OutcomeSucceeded, "a")
	result.Insert.Add(OutcomeSkipped, "b")
	result.Insert.Add(OutcomeFailedToLinkPerson, "c")
	result.Update.Add(OutcomeSucceeded, "d")
	result.Update.Add(OutcomeFailed, "e")
	result.Finalize()

	summary := result.Summary()
	assert.Contains(t, summary, "Account sync summary:")
	assert.Contains(t, summary, "insert: 1 succeeded, 0 failed, 1 skipped, 1 failed to link person (3 planned)")
	assert.Contains(t, summary, "update: 1 succeeded, 1 failed (10 planned)")
	assert.Contains(t, summary, "deactivate: 0 succeeded, 0 failed (0 planned)")
	assert.Contains(t, summary, "duration:")
}

func TestResultSummaryDryRun(t *testing.T) {
	result := NewResult()
	result.DryRun = true
	result.Finalize()

	assert.Contains(t, result.Summary(), "(dry run)")
}

func TestResultBucketsAccessor(t *testing.T) {
	result := NewResult()
	result.Insert.Add(OutcomeSucceeded, "a")

	assert.Equal(t, &result.Insert, result.Buckets(PassInsert))
	assert.Equal(t, &result.Update, result.Buckets(PassUpdate))
	assert.Equal(t, &result.Deactivate, result.Buckets(PassDeactivate))
	assert.Equal(t, &result.NormalizePwd, result.Buckets(PassNormalizePwd))
	assert.Nil(t, result.Buckets(Pass("bogus")))
}

func TestResultTiming(t *testing.T) {
	result := NewResult()
	assert.False(t, result.Started.IsZero())
	assert.True(t, result.Finished.IsZero())

	result.Finalize()
	assert.False(t, result.Finished.IsZero())
	assert.GreaterOrEqual(t, result.Duration().Nanoseconds(), int64(0))
}
