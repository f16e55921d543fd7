package sync

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/dartmouth/accountsync/internal/ipaas"
	"github.com/dartmouth/accountsync/pkg/errors"
)

// Policy controls which roster identities get accounts and how new accounts
// are linked into the directory.
type Policy struct {
	// RequestorGroup is the Description of the account group every new
	// account is linked to.
	RequestorGroup string `yaml:"requestor_group"`

	// NonPersonNames are first names marking placeholder identities.
	// Matched exactly, not case-folded.
	NonPersonNames []string `yaml:"non_person_names"`

	// ServiceAffiliations are roster affiliations excluded from account
	// creation, such as service accounts managed elsewhere.
	ServiceAffiliations []string `yaml:"service_affiliations"`

	// PersonCrossRefField is the Planon person field carrying the netid.
	PersonCrossRefField string `yaml:"person_cross_ref_field"`
}

// DefaultPolicy returns the policy the sync ships with.
func DefaultPolicy() Policy {
	return Policy{
		RequestorGroup:      "DC - Requestors",
		NonPersonNames:      []string{"nonperson", "NONPERSON", "NonPerson"},
		ServiceAffiliations: []string{"SERVICE"},
		PersonCrossRefField: "FreeString7",
	}
}

// LoadPolicy reads a policy YAML file. Fields absent from the file keep
// their defaults.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, errors.WrapIO("read", path, err)
	}

	policy := DefaultPolicy()
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, errors.NewParseError("yaml", path, err.Error(), err)
	}
	return policy.withDefaults(), nil
}

// withDefaults fills zero-value fields from the default policy.
func (p Policy) withDefaults() Policy {
	defaults := DefaultPolicy()
	if p.RequestorGroup == "" {
		p.RequestorGroup = defaults.RequestorGroup
	}
	if p.NonPersonNames == nil {
		p.NonPersonNames = defaults.NonPersonNames
	}
	if p.ServiceAffiliations == nil {
		p.ServiceAffiliations = defaults.ServiceAffiliations
	}
	if p.PersonCrossRefField == "" {
		p.PersonCrossRefField = defaults.PersonCrossRefField
	}
	return p
}

// Eligible reports whether a roster identity should have an account.
func (p Policy) Eligible(person ipaas.Person) bool {
	for _, name := range p.NonPersonNames {
		if person.FirstName == name {
			return false
		}
	}
	for _, affiliation := range p.ServiceAffiliations {
		if person.Affiliation == affiliation {
			return false
		}
	}
	return true
}
