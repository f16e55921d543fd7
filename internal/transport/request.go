package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/dartmouth/accountsync/pkg/errors"
)

// DecodeResponse decodes a JSON response into the target structure.
// Non-2xx responses become an *errors.APIError whose Message carries the
// raw body text, so callers can classify on the remote system's wording.
func DecodeResponse(system string, resp *http.Response, target any) error {
	defer resp.Body.Close() //nolint:errcheck // read side already consumed

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &errors.APIError{
			System:     system,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	if target == nil {
		return nil
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}

	return nil
}
