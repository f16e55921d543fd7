package sync

import (
	"sort"

	"github.com/dartmouth/accountsync/internal/planon"
)

// The reconciliation sets. Each function returns sorted keys so passes run
// in a deterministic order; the sets themselves are pure functions of their
// inputs, so a pass is idempotent given an unchanged snapshot.

// ToInsert returns the eligible roster keys with no account in the
// generation-1 snapshot.
func ToInsert(roster *RosterView, snap *Snapshot) []string {
	keys := make([]string, 0, len(roster.Eligible))
	for netid := range roster.Eligible {
		if _, ok := snap.Accounts[netid]; !ok {
			keys = append(keys, netid)
		}
	}
	sort.Strings(keys)
	return keys
}

// ToUpdate returns the snapshot keys present in the unfiltered roster.
// Using the unfiltered view means service and placeholder accounts still
// receive display-name refreshes.
func ToUpdate(roster *RosterView, snap *Snapshot) []string {
	keys := make([]string, 0, len(snap.Accounts))
	for key := range snap.Accounts {
		if _, ok := roster.All[key]; ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// ToDeactivate returns the snapshot keys absent from the unfiltered roster
// and not shielded by the exclusion registry.
func ToDeactivate(roster *RosterView, snap *Snapshot, excludes Excludes) []string {
	keys := make([]string, 0, len(snap.Accounts))
	for key := range snap.Accounts {
		if _, ok := roster.All[key]; ok {
			continue
		}
		if excludes.Contains(key) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ToNormalizePwdFlag returns the folded keys of a password-expiring fetch,
// the accounts whose password-never-expires flag needs raising.
func ToNormalizePwdFlag(pwdExpiring []planon.Account) []string {
	keys := make([]string, 0, len(pwdExpiring))
	for _, account := range pwdExpiring {
		keys = append(keys, Key(account.Accountname))
	}
	sort.Strings(keys)
	return keys
}
