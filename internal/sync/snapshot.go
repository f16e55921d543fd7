package sync

import (
	"github.com/agentstation/utc"
	"golang.org/x/text/cases"

	"github.com/dartmouth/accountsync/internal/ipaas"
	"github.com/dartmouth/accountsync/internal/planon"
)

// Key normalizes an account name for snapshot and exclusion lookups using
// Unicode case folding. Roster netids are used as-is; only the target side
// is folded.
func Key(name string) string {
	return cases.Fold().String(name)
}

// Snapshot holds the directory's account records at one point in time,
// keyed by folded account name. A run takes two generations: generation 1
// before the insert pass and generation 2 after it. Duplicate folded keys
// within one fetch are not deduplicated; the last record wins.
type Snapshot struct {
	Generation int
	TakenAt    utc.Time
	Accounts   map[string]*planon.Account
}

// NewSnapshot builds a snapshot from a directory fetch.
func NewSnapshot(generation int, accounts []planon.Account) *Snapshot {
	snap := &Snapshot{
		Generation: generation,
		TakenAt:    utc.Now(),
		Accounts:   make(map[string]*planon.Account, len(accounts)),
	}
	for i := range accounts {
		snap.Accounts[Key(accounts[i].Accountname)] = &accounts[i]
	}
	return snap
}

// RosterView is the identity roster fetched once per run and materialized
// into two mappings keyed by netid: every person, and the subset eligible
// for an account under the sync policy.
type RosterView struct {
	All      map[string]ipaas.Person
	Eligible map[string]ipaas.Person
}

// NewRosterView builds both roster mappings from a single people fetch.
func NewRosterView(people []ipaas.Person, policy Policy) *RosterView {
	view := &RosterView{
		All:      make(map[string]ipaas.Person, len(people)),
		Eligible: make(map[string]ipaas.Person, len(people)),
	}
	for _, p := range people {
		view.All[p.NetID] = p
		if policy.Eligible(p) {
			view.Eligible[p.NetID] = p
		}
	}
	return view
}
