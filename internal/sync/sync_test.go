package sync

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dartmouth/accountsync/internal/ipaas"
	"github.com/dartmouth/accountsync/internal/planon"
	"github.com/dartmouth/accountsync/pkg/errors"
	"github.com/dartmouth/accountsync/pkg/logging"
)

// fakeRoster serves a fixed identity feed.
type fakeRoster struct {
	people []ipaas.Person
	err    error
}

func (r *fakeRoster) People(_ context.Context) ([]ipaas.Person, error) {
	return r.people, r.err
}

// fakeDirectory is an in-memory account store honoring the filters the
// engine uses: active accounts (no end date) and password-expiring
// accounts (active with the never-expires flag down).
type fakeDirectory struct {
	groups   []planon.AccountGroup
	accounts []planon.Account
	persons  []planon.Person

	// pwdExtra is appended to password-expiring reads only, to simulate
	// records the snapshot fetch cannot see.
	pwdExtra []planon.Account

	nextSyscode int

	failCreate     map[string]error
	failSave       map[int]error
	failGroupLink  error
	failPersonLink error

	createCalls []string
	saveCalls   map[int][]planon.AccountValues
	groupLinks  []planon.GroupLinkValues
	personLinks []planon.PersonLinkValues
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		nextSyscode: 100,
		failCreate:  make(map[string]error),
		failSave:    make(map[int]error),
		saveCalls:   make(map[int][]planon.AccountValues),
	}
}

func (d *fakeDirectory) addGroup(syscode int, description string) {
	d.groups = append(d.groups, planon.AccountGroup{Syscode: syscode, Description: description})
}

func (d *fakeDirectory) addAccount(syscode int, name, description string, pwdNeverExpires bool) {
	d.accounts = append(d.accounts, planon.Account{
		Syscode:              syscode,
		Accountname:          name,
		Description:          description,
		PasswordNeverExpires: pwdNeverExpires,
	})
}

func (d *fakeDirectory) addPerson(syscode int, netid string) {
	d.persons = append(d.persons, planon.Person{Syscode: syscode, FreeString7: netid})
}

func (d *fakeDirectory) totalSaves() int {
	total := 0
	for _, calls := range d.saveCalls {
		total += len(calls)
	}
	return total
}

func (d *fakeDirectory) Accounts(_ context.Context, filter planon.Filter) ([]planon.Account, error) {
	wantPwdExpiring := false
	if cond, ok := filter["PasswordNeverExpires"]; ok && cond.Eq == false {
		wantPwdExpiring = true
	}

	var out []planon.Account
	for _, account := range d.accounts {
		if cond, ok := filter["EndDate"]; ok && cond.Exists != nil && !*cond.Exists && account.EndDate != nil {
			continue
		}
		if wantPwdExpiring && account.PasswordNeverExpires {
			continue
		}
		out = append(out, account)
	}
	if wantPwdExpiring {
		out = append(out, d.pwdExtra...)
	}
	return out, nil
}

func (d *fakeDirectory) AccountGroups(_ context.Context, filter planon.Filter) ([]planon.AccountGroup, error) {
	var out []planon.AccountGroup
	for _, group := range d.groups {
		if cond, ok := filter["Description"]; ok {
			if description, _ := cond.Eq.(string); group.Description != description {
				continue
			}
		}
		out = append(out, group)
	}
	return out, nil
}

func (d *fakeDirectory) Persons(_ context.Context, filter planon.Filter) ([]planon.Person, error) {
	var out []planon.Person
	for _, person := range d.persons {
		if cond, ok := filter["FreeString7"]; ok {
			if netid, _ := cond.Eq.(string); person.FreeString7 != netid {
				continue
			}
		}
		out = append(out, person)
	}
	return out, nil
}

func (d *fakeDirectory) CreateAccount(_ context.Context, values planon.AccountValues) (*planon.Account, error) {
	d.createCalls = append(d.createCalls, values.Accountname)
	if err := d.failCreate[values.Accountname]; err != nil {
		return nil, err
	}

	d.nextSyscode++
	account := planon.Account{
		Syscode:     d.nextSyscode,
		Accountname: values.Accountname,
		Description: values.Description,
		BeginDate:   values.BeginDate,
	}
	if values.PasswordNeverExpires != nil {
		account.PasswordNeverExpires = *values.PasswordNeverExpires
	}
	d.accounts = append(d.accounts, account)
	return &account, nil
}

func (d *fakeDirectory) SaveAccount(_ context.Context, syscode int, values planon.AccountValues) (*planon.Account, error) {
	d.saveCalls[syscode] = append(d.saveCalls[syscode], values)
	if err := d.failSave[syscode]; err != nil {
		return nil, err
	}

	for i := range d.accounts {
		if d.accounts[i].Syscode != syscode {
			continue
		}
		if values.Description != "" {
			d.accounts[i].Description = values.Description
		}
		if values.EndDate != nil {
			d.accounts[i].EndDate = values.EndDate
		}
		if values.PasswordNeverExpires != nil {
			d.accounts[i].PasswordNeverExpires = *values.PasswordNeverExpires
		}
		account := d.accounts[i]
		return &account, nil
	}
	return nil, errors.NewNotFoundError("account", fmt.Sprint(syscode))
}

func (d *fakeDirectory) CreateAccountGroupLink(_ context.Context, values planon.GroupLinkValues) (*planon.AccountGroupLink, error) {
	if d.failGroupLink != nil {
		return nil, d.failGroupLink
	}
	d.groupLinks = append(d.groupLinks, values)
	return &planon.AccountGroupLink{Syscode: 1, AccountGroupRef: values.AccountGroupRef, AccountRef: values.AccountRef}, nil
}

func (d *fakeDirectory) CreateAccountPersonLink(_ context.Context, values planon.PersonLinkValues) (*planon.AccountPersonLink, error) {
	if d.failPersonLink != nil {
		return nil, d.failPersonLink
	}
	d.personLinks = append(d.personLinks, values)
	return &planon.AccountPersonLink{Syscode: 1, PersonRef: values.PersonRef, AccountRef: values.AccountRef}, nil
}

var runDate = time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

func newTestSyncer(roster *fakeRoster, directory *fakeDirectory, opts ...Option) *Syncer {
	base := []Option{
		WithRunDate(runDate),
		WithLogger(logging.NewNopLogger()),
	}
	return New(roster, directory, DefaultPolicy(), Excludes{}, append(base, opts...)...)
}

func TestRunFullReconciliation(t *testing.T) {
	roster := &fakeRoster{people: []ipaas.Person{
		{NetID: "alice", Name: "Alice Employee", FirstName: "Alice", Affiliation: "EMPLOYEE"},
		{NetID: "bob", Name: "Bob Builder", FirstName: "Bob", Affiliation: "EMPLOYEE"},
	}}

	directory := newFakeDirectory()
	directory.addGroup(1, "DC - Requestors")
	directory.addAccount(10, "bob", "Robert Builder", true)
	directory.addAccount(11, "carol", "Carol Departed", true)
	directory.addPerson(20, "alice")

	syncer := newTestSyncer(roster, directory)
	result, err := syncer.Run(context.Background())
	require.NoError(t, err)

	// Insert: alice created, group-linked, person-linked.
	assert.Equal(t, []string{"alice"}, result.Insert.Succeeded)
	assert.Equal(t, []string{"alice"}, directory.createCalls)
	require.Len(t, directory.groupLinks, 1)
	assert.Equal(t, 1, directory.groupLinks[0].AccountGroupRef)
	require.Len(t, directory.personLinks, 1)
	assert.Equal(t, 20, directory.personLinks[0].PersonRef)
	assert.Equal(t, directory.groupLinks[0].AccountRef, directory.personLinks[0].AccountRef)

	created := directory.accounts[len(directory.accounts)-1]
	assert.Equal(t, "alice", created.Accountname)
	assert.Equal(t, "Alice Employee", created.Description)
	require.NotNil(t, created.BeginDate)
	assert.Equal(t, "2026-08-25", created.BeginDate.String())
	assert.True(t, created.PasswordNeverExpires)

	// Update: bob's stale display name refreshed; alice already current.
	assert.Equal(t, []string{"bob"}, result.Update.Succeeded)
	assert.Equal(t, 2, result.Planned[PassUpdate])
	assert.Equal(t, "Bob Builder", directory.accounts[0].Description)

	// Deactivate: carol end-dated with the run date.
	assert.Equal(t, []string{"carol"}, result.Deactivate.Succeeded)
	require.NotNil(t, directory.accounts[1].EndDate)
	assert.Equal(t, "2026-08-25", directory.accounts[1].EndDate.String())

	// Password flag: no account had the flag down, nothing to normalize.
	assert.Empty(t, result.NormalizePwd.Succeeded)
	assert.Equal(t, 0, result.Planned[PassNormalizePwd])

	assert.Equal(t, 0, result.ExitCode())
	assert.False(t, result.Finished.IsZero())
}

func TestRunNormalizesPwdFlag(t *testing.T) {
	roster := &fakeRoster{people: []ipaas.Person{
		{NetID: "bob", Name: "Bob Builder"},
	}}

	directory := newFakeDirectory()
	directory.addGroup(1, "DC - Requestors")
	directory.addAccount(10, "bob", "Bob Builder", false)

	syncer := newTestSyncer(roster, directory)
	result, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"bob"}, result.NormalizePwd.Succeeded)
	assert.True(t, directory.accounts[0].PasswordNeverExpires)

	// Exactly one save: the flag raise. The name was already current.
	assert.Equal(t, 1, directory.totalSaves())
}

func TestRunSecondPassIsIdempotent(t *testing.T) {
	roster := &fakeRoster{people: []ipaas.Person{
		{NetID: "alice", Name: "Alice Employee"},
		{NetID: "bob", Name: "Bob Builder"},
	}}

	directory := newFakeDirectory()
	directory.addGroup(1, "DC - Requestors")
	directory.addAccount(10, "bob", "Robert Builder", false)
	directory.addAccount(11, "carol", "Carol Departed", true)
	directory.addPerson(20, "alice")

	first, err := newTestSyncer(roster, directory).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, first.ExitCode())
	savesAfterFirst := directory.totalSaves()
	createsAfterFirst := len(directory.createCalls)

	second, err := newTestSyncer(roster, directory).Run(context.Background())
	require.NoError(t, err)

	// Nothing left to do: no creates, no saves, empty buckets.
	assert.Equal(t, createsAfterFirst, len(directory.createCalls))
	assert.Equal(t, savesAfterFirst, directory.totalSaves())
	assert.Empty(t, second.Insert.Succeeded)
	assert.Empty(t, second.Update.Succeeded)
	assert.Empty(t, second.Deactivate.Succeeded)
	assert.Empty(t, second.NormalizePwd.Succeeded)
	assert.Equal(t, 0, second.Planned[PassInsert])
	assert.Equal(t, 0, second.Planned[PassDeactivate])
}

func TestRunInsertNotUniqueSkips(t *testing.T) {
	roster := &fakeRoster{people: []ipaas.Person{
		{NetID: "dupe", Name: "Duplicate Doe"},
	}}

	directory := newFakeDirectory()
	directory.addGroup(1, "DC - Requestors")
	directory.failCreate["dupe"] = errors.NewAPIError(planon.System, http.StatusUnprocessableEntity,
		"The User name field with value DUPE on Users is not unique.")

	testLogger := logging.NewTestLogger(t)
	syncer := newTestSyncer(roster, directory, WithLogger(testLogger.Logger))
	result, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"dupe"}, result.Insert.Skipped)
	assert.Empty(t, result.Insert.Failed)
	assert.Empty(t, result.Insert.Succeeded)
	assert.Equal(t, ExitDataErr, result.ExitCode())

	// One line at classification time, one warning at summary time.
	testLogger.AssertContains(t, "Record skipped")
	testLogger.AssertContains(t, "Account skipped during insert")
}

func TestRunInsertPersonLookupUnpack(t *testing.T) {
	t.Run("no person match", func(t *testing.T) {
		roster := &fakeRoster{people: []ipaas.Person{
			{NetID: "orphan", Name: "Orphan Account"},
		}}

		directory := newFakeDirectory()
		directory.addGroup(1, "DC - Requestors")
		// No person with FreeString7 = orphan.

		result, err := newTestSyncer(roster, directory).Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []string{"orphan"}, result.Insert.FailedToLinkPerson)
		assert.Equal(t, ExitDataErr, result.ExitCode())

		// The account exists, group-linked but not person-linked.
		assert.Equal(t, []string{"orphan"}, directory.createCalls)
		assert.Len(t, directory.groupLinks, 1)
		assert.Empty(t, directory.personLinks)
	})

	t.Run("several person matches", func(t *testing.T) {
		roster := &fakeRoster{people: []ipaas.Person{
			{NetID: "twin", Name: "Twin Account"},
		}}

		directory := newFakeDirectory()
		directory.addGroup(1, "DC - Requestors")
		directory.addPerson(20, "twin")
		directory.addPerson(21, "twin")

		result, err := newTestSyncer(roster, directory).Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []string{"twin"}, result.Insert.FailedToLinkPerson)
		assert.Empty(t, directory.personLinks)
		assert.Equal(t, ExitDataErr, result.ExitCode())
	})
}

func TestRunGenericFailuresExitClean(t *testing.T) {
	roster := &fakeRoster{people: []ipaas.Person{
		{NetID: "bob", Name: "Bob Builder"},
	}}

	directory := newFakeDirectory()
	directory.addGroup(1, "DC - Requestors")
	directory.addAccount(10, "bob", "Robert Builder", true)
	directory.addAccount(11, "carol", "Carol Departed", true)
	directory.failSave[10] = errors.NewAPIError(planon.System, http.StatusInternalServerError, "internal server error")
	directory.failSave[11] = errors.New("connection reset by peer")

	result, err := newTestSyncer(roster, directory).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"bob"}, result.Update.Failed)
	assert.Equal(t, []string{"carol"}, result.Deactivate.Failed)
	assert.Equal(t, 0, result.ExitCode(), "generic failures never change the exit status")
}

func TestRunRecordFailureDoesNotAbortPass(t *testing.T) {
	roster := &fakeRoster{people: []ipaas.Person{
		{NetID: "ann", Name: "Ann Current"},
		{NetID: "bob", Name: "Bob Current"},
	}}

	directory := newFakeDirectory()
	directory.addGroup(1, "DC - Requestors")
	directory.addAccount(10, "ann", "Ann Stale", true)
	directory.addAccount(11, "bob", "Bob Stale", true)
	directory.failSave[10] = errors.New("boom")

	result, err := newTestSyncer(roster, directory).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"ann"}, result.Update.Failed)
	assert.Equal(t, []string{"bob"}, result.Update.Succeeded)
	assert.Equal(t, "Bob Current", directory.accounts[1].Description)
}

func TestRunPwdKeyMissingFromSnapshot(t *testing.T) {
	roster := &fakeRoster{people: nil}

	directory := newFakeDirectory()
	directory.addGroup(1, "DC - Requestors")
	// Visible to the password-expiring read but not to the snapshot fetch.
	directory.pwdExtra = []planon.Account{{Syscode: 999, Accountname: "phantom"}}

	result, err := newTestSyncer(roster, directory).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"phantom"}, result.NormalizePwd.Failed)
	assert.Equal(t, 0, result.ExitCode())
}

func TestRunDeactivateHonorsExcludes(t *testing.T) {
	roster := &fakeRoster{people: nil}

	directory := newFakeDirectory()
	directory.addGroup(1, "DC - Requestors")
	directory.addAccount(10, "BreakGlass", "Emergency Access", true)
	directory.addAccount(11, "departed", "Gone Person", true)

	excludes := Excludes{Key("BreakGlass"): {AccountName: "BreakGlass"}}
	syncer := New(roster, directory, DefaultPolicy(), excludes,
		WithRunDate(runDate), WithLogger(logging.NewNopLogger()))

	result, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"departed"}, result.Deactivate.Succeeded)
	assert.Nil(t, directory.accounts[0].EndDate, "excluded account untouched")
	require.NotNil(t, directory.accounts[1].EndDate)
}

func TestRunDryRun(t *testing.T) {
	roster := &fakeRoster{people: []ipaas.Person{
		{NetID: "alice", Name: "Alice Employee"},
		{NetID: "bob", Name: "Bob Builder"},
	}}

	directory := newFakeDirectory()
	directory.addGroup(1, "DC - Requestors")
	directory.addAccount(10, "bob", "Robert Builder", false)
	directory.addAccount(11, "carol", "Carol Departed", true)
	directory.addPerson(20, "alice")

	syncer := newTestSyncer(roster, directory, WithDryRun(true))
	result, err := syncer.Run(context.Background())
	require.NoError(t, err)

	// Everything planned, nothing touched.
	assert.Equal(t, 1, result.Planned[PassInsert])
	assert.Equal(t, 1, result.Planned[PassUpdate])
	assert.Equal(t, 1, result.Planned[PassDeactivate])
	assert.Equal(t, 1, result.Planned[PassNormalizePwd])

	assert.Empty(t, directory.createCalls)
	assert.Equal(t, 0, directory.totalSaves())
	assert.Empty(t, directory.groupLinks)
	assert.Empty(t, directory.personLinks)

	assert.Equal(t, 0, result.Insert.Total())
	assert.Equal(t, 0, result.Update.Total())
	assert.Equal(t, 0, result.Deactivate.Total())
	assert.Equal(t, 0, result.NormalizePwd.Total())
	assert.True(t, result.DryRun)
	assert.Equal(t, 0, result.ExitCode())
}

func TestRunRequestorGroupResolution(t *testing.T) {
	t.Run("missing group aborts the run", func(t *testing.T) {
		roster := &fakeRoster{}
		directory := newFakeDirectory()

		_, err := newTestSyncer(roster, directory).Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DC - Requestors")
	})

	t.Run("ambiguous group aborts the run", func(t *testing.T) {
		roster := &fakeRoster{}
		directory := newFakeDirectory()
		directory.addGroup(1, "DC - Requestors")
		directory.addGroup(2, "DC - Requestors")

		_, err := newTestSyncer(roster, directory).Run(context.Background())
		require.Error(t, err)

		var unpackErr *errors.UnpackError
		assert.True(t, errors.As(err, &unpackErr))
	})
}

func TestRunRosterFetchFailureAborts(t *testing.T) {
	roster := &fakeRoster{err: errors.NewAPIError(ipaas.System, http.StatusBadGateway, "upstream unavailable")}
	directory := newFakeDirectory()
	directory.addGroup(1, "DC - Requestors")

	_, err := newTestSyncer(roster, directory).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roster")
}

func TestRunNilContext(t *testing.T) {
	roster := &fakeRoster{}
	directory := newFakeDirectory()
	directory.addGroup(1, "DC - Requestors")

	result, err := newTestSyncer(roster, directory).Run(nil) //nolint:staticcheck // nil context tolerated
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode())
}
