// Package ipaas provides a client for the Dartmouth iPaaS identity API,
// the authoritative roster of people eligible for directory accounts.
package ipaas

import (
	"context"

	"github.com/dartmouth/accountsync/internal/transport"
	"github.com/dartmouth/accountsync/pkg/errors"
)

// System identifies iPaaS in errors and log fields.
const System = "ipaas"

// Person is one identity record from the iPaaS people feed.
type Person struct {
	NetID       string `json:"netid"`
	Name        string `json:"name"`
	FirstName   string `json:"first_name"`
	Affiliation string `json:"dartmouth_affiliation"`
}

// Client talks to the iPaaS identity API.
type Client struct {
	baseURL   string
	apiKey    string
	transport *transport.Client
}

// New creates a new iPaaS client for the given base URL and API key.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		transport: transport.New(&transport.BearerAuth{}),
	}
}

// People retrieves the full identity roster.
func (c *Client) People(ctx context.Context) ([]Person, error) {
	url := c.baseURL + "/people"
	resp, err := c.transport.Get(ctx, url, c.apiKey)
	if err != nil {
		return nil, &errors.APIError{
			System:   System,
			Endpoint: url,
			Message:  "request failed",
			Err:      err,
		}
	}

	var people []Person
	if err := transport.DecodeResponse(System, resp, &people); err != nil {
		return nil, err
	}
	return people, nil
}
