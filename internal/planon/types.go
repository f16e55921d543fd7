package planon

import (
	"encoding/json"
	"time"
)

// DateFormat is the wire format Planon uses for date fields.
const DateFormat = "2006-01-02"

// Date is a calendar date as Planon represents it on the wire.
type Date struct {
	time.Time
}

// NewDate creates a Date from a time.Time, keeping only the calendar day.
func NewDate(t time.Time) Date {
	return Date{Time: t}
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(DateFormat))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return err
	}
	*d = Date{Time: t}
	return nil
}

// String returns the date in wire format.
func (d Date) String() string {
	return d.Format(DateFormat)
}

// Account is the Planon Account business object. Accountname is the login
// name; EndDate set to a past or present day deactivates the account.
type Account struct {
	Syscode              int    `json:"Syscode"`
	Accountname          string `json:"Accountname"`
	Description          string `json:"Description"`
	BeginDate            *Date  `json:"BeginDate,omitempty"`
	EndDate              *Date  `json:"EndDate,omitempty"`
	PasswordNeverExpires bool   `json:"PasswordNeverExpires"`
}

// AccountGroup is the Planon AccountGroup business object.
type AccountGroup struct {
	Syscode     int    `json:"Syscode"`
	Code        string `json:"Code"`
	Description string `json:"Description"`
}

// Person is the Planon UsrPerson business object. FreeString7 carries the
// netid cross-reference that ties a person record to a directory identity.
type Person struct {
	Syscode     int    `json:"Syscode"`
	Code        string `json:"Code"`
	FreeString7 string `json:"FreeString7"`
}

// AccountGroupLink is the AccountAccountGroup join business object.
type AccountGroupLink struct {
	Syscode         int `json:"Syscode"`
	AccountGroupRef int `json:"AccountGroupRef"`
	AccountRef      int `json:"AccountRef"`
}

// AccountPersonLink is the AccountPerson join business object.
type AccountPersonLink struct {
	Syscode    int `json:"Syscode"`
	PersonRef  int `json:"PersonRef"`
	AccountRef int `json:"AccountRef"`
}

// AccountValues holds the writable fields of an Account for create and
// save calls. Pointer fields are omitted from the payload when nil, so a
// save touches only what the caller sets.
type AccountValues struct {
	Accountname          string `json:"Accountname,omitempty"`
	Description          string `json:"Description,omitempty"`
	BeginDate            *Date  `json:"BeginDate,omitempty"`
	EndDate              *Date  `json:"EndDate,omitempty"`
	PasswordNeverExpires *bool  `json:"PasswordNeverExpires,omitempty"`
}

// GroupLinkValues holds the writable fields of an AccountAccountGroup link.
type GroupLinkValues struct {
	AccountGroupRef int `json:"AccountGroupRef"`
	AccountRef      int `json:"AccountRef"`
}

// PersonLinkValues holds the writable fields of an AccountPerson link.
type PersonLinkValues struct {
	PersonRef  int `json:"PersonRef"`
	AccountRef int `json:"AccountRef"`
}

// Condition is a single field predicate in a read filter.
type Condition struct {
	Eq     any   `json:"eq,omitempty"`
	Exists *bool `json:"exists,omitempty"`
}

// Filter maps business object field names to predicates.
type Filter map[string]Condition

// Eq builds an equality condition.
func Eq(value any) Condition {
	return Condition{Eq: value}
}

// Exists builds a field presence condition.
func Exists(present bool) Condition {
	return Condition{Exists: &present}
}
