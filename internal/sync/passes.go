package sync

import (
	"context"

	"github.com/dartmouth/accountsync/internal/ipaas"
	"github.com/dartmouth/accountsync/internal/planon"
	"github.com/dartmouth/accountsync/internal/utils/ptr"
	"github.com/dartmouth/accountsync/pkg/errors"
)

// runInsert creates an account for each key, links it to the requestor
// group, then looks up the matching person by cross-reference field and
// links them too.
func (s *Syncer) runInsert(ctx context.Context, keys []string, view *RosterView, group *planon.AccountGroup, buckets *Buckets) {
	for _, key := range keys {
		if s.dryRun {
			s.logger.Info().
				Str("pass", string(PassInsert)).
				Str("account", key).
				Msg("Would create account")
			continue
		}

		err := s.insertOne(ctx, key, view.Eligible[key], group)
		outcome := Classify(err)
		buckets.Add(outcome, key)
		s.logOutcome(PassInsert, key, outcome, err)
	}
}

// insertOne performs the three-step insert for a single netid. A failure
// after account creation leaves the account in place but unlinked.
func (s *Syncer) insertOne(ctx context.Context, netid string, person ipaas.Person, group *planon.AccountGroup) error {
	begin := planon.NewDate(s.runDate.Time)
	account, err := s.directory.CreateAccount(ctx, planon.AccountValues{
		Accountname:          netid,
		Description:          person.Name,
		BeginDate:            &begin,
		PasswordNeverExpires: ptr.Bool(true),
	})
	if err != nil {
		return err
	}

	if _, err := s.directory.CreateAccountGroupLink(ctx, planon.GroupLinkValues{
		AccountGroupRef: group.Syscode,
		AccountRef:      account.Syscode,
	}); err != nil {
		return err
	}

	persons, err := s.directory.Persons(ctx, planon.Filter{
		s.policy.PersonCrossRefField: planon.Eq(netid),
	})
	if err != nil {
		return err
	}
	match, err := planon.One(persons, "person")
	if err != nil {
		return err
	}

	_, err = s.directory.CreateAccountPersonLink(ctx, planon.PersonLinkValues{
		PersonRef:  match.Syscode,
		AccountRef: account.Syscode,
	})
	return err
}

// runUpdate refreshes display names that drifted from the roster. An
// already-current name makes no remote call and no bucket entry, so the
// succeeded bucket records performed mutations only.
func (s *Syncer) runUpdate(ctx context.Context, keys []string, view *RosterView, snap *Snapshot, buckets *Buckets) {
	for _, key := range keys {
		account := snap.Accounts[key]
		person := view.All[key]
		if person.Name == account.Description {
			continue
		}

		if s.dryRun {
			s.logger.Info().
				Str("pass", string(PassUpdate)).
				Str("account", key).
				Str("from", account.Description).
				Str("to", person.Name).
				Msg("Would refresh display name")
			continue
		}

		_, err := s.directory.SaveAccount(ctx, account.Syscode, planon.AccountValues{
			Description: person.Name,
		})
		if err == nil {
			account.Description = person.Name
		}
		outcome := Classify(err)
		buckets.Add(outcome, key)
		s.logOutcome(PassUpdate, key, outcome, err)
	}
}

// runDeactivate sets the end date to the run date for each key.
func (s *Syncer) runDeactivate(ctx context.Context, keys []string, snap *Snapshot, buckets *Buckets) {
	for _, key := range keys {
		account := snap.Accounts[key]

		if s.dryRun {
			s.logger.Info().
				Str("pass", string(PassDeactivate)).
				Str("account", key).
				Msg("Would deactivate account")
			continue
		}

		end := planon.NewDate(s.runDate.Time)
		_, err := s.directory.SaveAccount(ctx, account.Syscode, planon.AccountValues{
			EndDate: &end,
		})
		if err == nil {
			account.EndDate = &end
		}
		outcome := Classify(err)
		buckets.Add(outcome, key)
		s.logOutcome(PassDeactivate, key, outcome, err)
	}
}

// runNormalizePwd raises the password-never-expires flag. Keys come from
// the filtered fetch but the mutated records come from the generation-2
// snapshot; a key the snapshot cannot see is a per-record failure.
func (s *Syncer) runNormalizePwd(ctx context.Context, keys []string, snap *Snapshot, buckets *Buckets) {
	for _, key := range keys {
		if s.dryRun {
			s.logger.Info().
				Str("pass", string(PassNormalizePwd)).
				Str("account", key).
				Msg("Would set password-never-expires")
			continue
		}

		var err error
		if account, ok := snap.Accounts[key]; ok {
			_, err = s.directory.SaveAccount(ctx, account.Syscode, planon.AccountValues{
				PasswordNeverExpires: ptr.Bool(true),
			})
			if err == nil {
				account.PasswordNeverExpires = true
			}
		} else {
			err = errors.NewNotFoundError("account", key)
		}
		outcome := Classify(err)
		buckets.Add(outcome, key)
		s.logOutcome(PassNormalizePwd, key, outcome, err)
	}
}
