package clearbit

import "errors"

var (
	// ErrMissingAPIKey is reported once when the unit runs without an API key.
	// It latches the unit for the rest of the run.
	ErrMissingAPIKey = errors.New("clearbit API key not set")

	// ErrUnexpectedStatus is a non-200 answer from the API
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrParse is a response body that is not a JSON object
	ErrParse = errors.New("invalid JSON response")
)
