// Package sync implements the account reconciliation engine: set-based
// diffing of the identity roster against the directory's account records,
// per-record action dispatch, message-content outcome classification, and
// the exit-status policy derived from the outcome buckets.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/dartmouth/accountsync/internal/ipaas"
	"github.com/dartmouth/accountsync/internal/planon"
	"github.com/dartmouth/accountsync/pkg/errors"
	"github.com/dartmouth/accountsync/pkg/logging"
)

// Roster is the authoritative identity feed.
type Roster interface {
	People(ctx context.Context) ([]ipaas.Person, error)
}

// Directory is the account store being reconciled.
type Directory interface {
	Accounts(ctx context.Context, filter planon.Filter) ([]planon.Account, error)
	AccountGroups(ctx context.Context, filter planon.Filter) ([]planon.AccountGroup, error)
	Persons(ctx context.Context, filter planon.Filter) ([]planon.Person, error)
	CreateAccount(ctx context.Context, values planon.AccountValues) (*planon.Account, error)
	SaveAccount(ctx context.Context, syscode int, values planon.AccountValues) (*planon.Account, error)
	CreateAccountGroupLink(ctx context.Context, values planon.GroupLinkValues) (*planon.AccountGroupLink, error)
	CreateAccountPersonLink(ctx context.Context, values planon.PersonLinkValues) (*planon.AccountPersonLink, error)
}

// Syncer runs the four reconciliation passes against a directory. Passes
// run strictly sequentially; each per-key mutation blocks until the remote
// call returns, and record-level failures never abort a pass.
type Syncer struct {
	roster    Roster
	directory Directory
	policy    Policy
	excludes  Excludes
	runDate   utc.Time
	dryRun    bool
	logger    *zerolog.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithRunDate pins the run date used for begin and end dates, for
// reproducing a past run.
func WithRunDate(t time.Time) Option {
	return func(s *Syncer) {
		s.runDate = utc.Time{Time: t}
	}
}

// WithDryRun computes and logs every planned action without mutating the
// directory.
func WithDryRun(dryRun bool) Option {
	return func(s *Syncer) {
		s.dryRun = dryRun
	}
}

// WithLogger sets the run logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Syncer over the given roster and directory.
func New(roster Roster, directory Directory, policy Policy, excludes Excludes, opts ...Option) *Syncer {
	s := &Syncer{
		roster:    roster,
		directory: directory,
		policy:    policy.withDefaults(),
		excludes:  excludes,
		runDate:   utc.Now(),
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one reconciliation: insert, update, deactivate, then
// password-flag normalization. Fetch failures abort the run; per-record
// mutation failures are classified into the result buckets instead.
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	// Step 0: Set context
	if ctx == nil {
		ctx = context.Background()
	}

	result := NewResult()
	result.DryRun = s.dryRun

	// Step 1: Resolve the requestor group new accounts are linked to
	group, err := s.resolveRequestorGroup(ctx)
	if err != nil {
		return nil, err
	}

	// Step 2: Fetch the roster once and materialize both views
	people, err := s.roster.People(ctx)
	if err != nil {
		return nil, errors.WrapResource("fetch", "roster", "", err)
	}
	view := NewRosterView(people, s.policy)
	s.logger.Info().
		Int("people", len(view.All)).
		Int("eligible", len(view.Eligible)).
		Msg("Roster fetched")

	// Step 3: Generation-1 snapshot and insert pass
	snap1, err := s.takeSnapshot(ctx, 1)
	if err != nil {
		return nil, err
	}
	inserts := ToInsert(view, snap1)
	result.Planned[PassInsert] = len(inserts)
	s.runInsert(ctx, inserts, view, group, &result.Insert)

	// Step 4: Generation-2 snapshot picks up the freshly inserted accounts
	snap2, err := s.takeSnapshot(ctx, 2)
	if err != nil {
		return nil, err
	}

	// Step 5: Update pass refreshes stale display names
	updates := ToUpdate(view, snap2)
	result.Planned[PassUpdate] = len(updates)
	s.runUpdate(ctx, updates, view, snap2, &result.Update)

	// Step 6: Deactivate pass ends accounts for departed people
	deactivates := ToDeactivate(view, snap2, s.excludes)
	result.Planned[PassDeactivate] = len(deactivates)
	s.runDeactivate(ctx, deactivates, snap2, &result.Deactivate)

	// Step 7: Password-flag pass over a separate filtered fetch
	pwdExpiring, err := s.directory.Accounts(ctx, planon.Filter{
		"EndDate":              planon.Exists(false),
		"PasswordNeverExpires": planon.Eq(false),
	})
	if err != nil {
		return nil, errors.WrapResource("fetch", "account", "password-expiring", err)
	}
	pwdKeys := ToNormalizePwdFlag(pwdExpiring)
	result.Planned[PassNormalizePwd] = len(pwdKeys)
	s.runNormalizePwd(ctx, pwdKeys, snap2, &result.NormalizePwd)

	// Step 8: Finalize and summarize
	result.Finalize()
	s.logSummary(result)

	return result, nil
}

// resolveRequestorGroup looks up the account group new accounts join.
// Anything but exactly one match aborts the run.
func (s *Syncer) resolveRequestorGroup(ctx context.Context) (*planon.AccountGroup, error) {
	groups, err := s.directory.AccountGroups(ctx, planon.Filter{
		"Description": planon.Eq(s.policy.RequestorGroup),
	})
	if err != nil {
		return nil, errors.WrapResource("fetch", "group", s.policy.RequestorGroup, err)
	}

	group, err := planon.One(groups, "account group")
	if err != nil {
		return nil, errors.WrapResource("resolve", "group", s.policy.RequestorGroup, err)
	}
	return group, nil
}

// takeSnapshot fetches the active accounts and builds a generation snapshot.
func (s *Syncer) takeSnapshot(ctx context.Context, generation int) (*Snapshot, error) {
	accounts, err := s.directory.Accounts(ctx, planon.Filter{
		"EndDate": planon.Exists(false),
	})
	if err != nil {
		return nil, errors.WrapResource("fetch", "account", fmt.Sprintf("generation %d", generation), err)
	}

	snap := NewSnapshot(generation, accounts)
	s.logger.Debug().
		Int("generation", generation).
		Int("accounts", len(snap.Accounts)).
		Msg("Snapshot taken")
	return snap, nil
}

// logOutcome writes one line per classified record.
func (s *Syncer) logOutcome(pass Pass, key string, outcome Outcome, err error) {
	switch outcome {
	case OutcomeSucceeded:
		s.logger.Debug().
			Str("pass", string(pass)).
			Str("account", key).
			Msg("Record reconciled")
	case OutcomeSkipped:
		s.logger.Warn().
			Str("pass", string(pass)).
			Str("account", key).
			Err(err).
			Msg("Record skipped")
	case OutcomeFailedToLinkPerson:
		s.logger.Warn().
			Str("pass", string(pass)).
			Str("account", key).
			Err(err).
			Msg("Account created but person link failed")
	default:
		s.logger.Error().
			Str("pass", string(pass)).
			Str("account", key).
			Err(err).
			Msg("Record failed")
	}
}

// logSummary emits one warning line per insert anomaly, then the
// structured run summary.
func (s *Syncer) logSummary(result *Result) {
	for _, key := range result.Insert.Skipped {
		s.logger.Warn().
			Str("account", key).
			Msg("Account skipped during insert; name already taken but not visible to the read API")
	}
	for _, key := range result.Insert.FailedToLinkPerson {
		s.logger.Warn().
			Str("account", key).
			Msg("Account created during insert but not linked to a person")
	}

	event := s.logger.Info().
		Bool("dry_run", result.DryRun).
		Dur("duration", result.Duration())
	for _, pass := range Passes {
		b := result.Buckets(pass)
		event = event.
			Int(string(pass)+"_succeeded", len(b.Succeeded)).
			Int(string(pass)+"_failed", len(b.Failed))
	}
	event.
		Int("insert_skipped", len(result.Insert.Skipped)).
		Int("insert_link_failures", len(result.Insert.FailedToLinkPerson)).
		Msg("Account sync completed")
}
