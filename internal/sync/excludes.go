package sync

import (
	"encoding/json"
	"os"

	"github.com/dartmouth/accountsync/pkg/errors"
)

// DefaultExcludesFile is the exclusion registry path used when no flag
// overrides it.
const DefaultExcludesFile = "account_sync_excludes.json"

// ExcludeEntry is one account shielded from deactivation.
type ExcludeEntry struct {
	AccountName string `json:"account_name"`
}

// Excludes is the exclusion registry keyed by folded account name. It is a
// pure filter on the deactivate pass and is never mutated by a run.
type Excludes map[string]ExcludeEntry

// Contains reports whether the folded key is excluded.
func (e Excludes) Contains(key string) bool {
	_, ok := e[key]
	return ok
}

// LoadExcludes reads the exclusion registry JSON file, an array of objects
// each bearing account_name. A missing file is an error; an empty array is
// a valid, empty registry.
func LoadExcludes(path string) (Excludes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var entries []ExcludeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.NewParseError("json", path, err.Error(), err)
	}

	excludes := make(Excludes, len(entries))
	for _, entry := range entries {
		excludes[Key(entry.AccountName)] = entry
	}
	return excludes, nil
}
