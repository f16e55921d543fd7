// Package planon provides a client for the Planon SDK REST API, covering
// the business objects the account sync touches: accounts, account groups,
// persons, and the links between them.
package planon

import (
	"context"
	"fmt"
	"strings"

	"github.com/dartmouth/accountsync/internal/transport"
	"github.com/dartmouth/accountsync/pkg/errors"
)

// System identifies Planon in errors and log fields.
const System = "planon"

// Business object names in the Planon SDK.
const (
	boAccount             = "Account"
	boAccountGroup        = "AccountGroup"
	boPerson              = "UsrPerson"
	boAccountAccountGroup = "AccountAccountGroup"
	boAccountPerson       = "AccountPerson"
)

// Request and response envelopes for the SDK REST endpoints.
type readRequest struct {
	Filter Filter `json:"filter,omitempty"`
}

type createRequest struct {
	Values any `json:"values"`
}

type saveRequest struct {
	Syscode int `json:"syscode"`
	Values  any `json:"values"`
}

type recordsResponse[T any] struct {
	Records []T `json:"records"`
}

type recordResponse[T any] struct {
	Record T `json:"record"`
}

// Client talks to a Planon site over the SDK REST API.
type Client struct {
	site      string
	apiKey    string
	transport *transport.Client
}

// New creates a new Planon client for the given site URL and API key.
func New(site, apiKey string) *Client {
	return &Client{
		site:      strings.TrimRight(site, "/"),
		apiKey:    apiKey,
		transport: transport.New(&transport.BearerAuth{}),
	}
}

// boURL builds the endpoint URL for a business object verb.
func (c *Client) boURL(bo, verb string) string {
	return fmt.Sprintf("%s/sdk/system/rest/v1/%s/%s", c.site, bo, verb)
}

// read fetches all records of a business object matching the filter.
func read[T any](ctx context.Context, c *Client, bo string, filter Filter) ([]T, error) {
	url := c.boURL(bo, "read")
	resp, err := c.transport.Post(ctx, url, c.apiKey, readRequest{Filter: filter})
	if err != nil {
		return nil, &errors.APIError{
			System:   System,
			Endpoint: url,
			Message:  "request failed",
			Err:      err,
		}
	}

	var result recordsResponse[T]
	if err := transport.DecodeResponse(System, resp, &result); err != nil {
		return nil, err
	}
	return result.Records, nil
}

// create inserts a new record of a business object.
func create[T any](ctx context.Context, c *Client, bo string, values any) (*T, error) {
	url := c.boURL(bo, "create")
	resp, err := c.transport.Post(ctx, url, c.apiKey, createRequest{Values: values})
	if err != nil {
		return nil, &errors.APIError{
			System:   System,
			Endpoint: url,
			Message:  "request failed",
			Err:      err,
		}
	}

	var result recordResponse[T]
	if err := transport.DecodeResponse(System, resp, &result); err != nil {
		return nil, err
	}
	return &result.Record, nil
}

// save updates an existing record identified by syscode.
func save[T any](ctx context.Context, c *Client, bo string, syscode int, values any) (*T, error) {
	url := c.boURL(bo, "save")
	resp, err := c.transport.Post(ctx, url, c.apiKey, saveRequest{Syscode: syscode, Values: values})
	if err != nil {
		return nil, &errors.APIError{
			System:   System,
			Endpoint: url,
			Message:  "request failed",
			Err:      err,
		}
	}

	var result recordResponse[T]
	if err := transport.DecodeResponse(System, resp, &result); err != nil {
		return nil, err
	}
	return &result.Record, nil
}

// Accounts retrieves Account records matching the filter. A nil filter
// retrieves everything.
func (c *Client) Accounts(ctx context.Context, filter Filter) ([]Account, error) {
	return read[Account](ctx, c, boAccount, filter)
}

// AccountGroups retrieves AccountGroup records matching the filter.
func (c *Client) AccountGroups(ctx context.Context, filter Filter) ([]AccountGroup, error) {
	return read[AccountGroup](ctx, c, boAccountGroup, filter)
}

// Persons retrieves UsrPerson records matching the filter.
func (c *Client) Persons(ctx context.Context, filter Filter) ([]Person, error) {
	return read[Person](ctx, c, boPerson, filter)
}

// CreateAccount inserts a new Account.
func (c *Client) CreateAccount(ctx context.Context, values AccountValues) (*Account, error) {
	return create[Account](ctx, c, boAccount, values)
}

// SaveAccount updates the Account identified by syscode.
func (c *Client) SaveAccount(ctx context.Context, syscode int, values AccountValues) (*Account, error) {
	return save[Account](ctx, c, boAccount, syscode, values)
}

// CreateAccountGroupLink links an Account to an AccountGroup.
func (c *Client) CreateAccountGroupLink(ctx context.Context, values GroupLinkValues) (*AccountGroupLink, error) {
	return create[AccountGroupLink](ctx, c, boAccountAccountGroup, values)
}

// CreateAccountPersonLink links an Account to a UsrPerson.
func (c *Client) CreateAccountPersonLink(ctx context.Context, values PersonLinkValues) (*AccountPersonLink, error) {
	return create[AccountPersonLink](ctx, c, boAccountPerson, values)
}

// One unpacks a read result that must contain exactly one record. Zero or
// several records yield an *errors.UnpackError naming the resource.
func One[T any](records []T, resource string) (*T, error) {
	if len(records) != 1 {
		return nil, errors.NewUnpackError(resource, len(records))
	}
	return &records[0], nil
}
