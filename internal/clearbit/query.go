package clearbit

import (
	"encoding/base64"
	"net/http"
	"net/url"
)

// Query is a fully formed lookup request. Building one performs no I/O.
type Query struct {
	Method  string
	URL     string
	Headers map[string]string
}

// BuildQuery builds the lookup for email against endpoint.
// The key is used as raw bytes in "key:" before base64, never URL-encoded.
func BuildQuery(endpoint, email, apiKey string) Query {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return Query{
		Method: http.MethodGet,
		URL:    endpoint + "?email=" + url.QueryEscape(email),
		Headers: map[string]string{
			"Accept":        "application/json",
			"Authorization": BasicAuth(apiKey),
		},
	}
}

// BasicAuth encodes an API key as a Basic credential with an empty password
func BasicAuth(apiKey string) string {
	token := append([]byte(apiKey), ':')
	return "Basic " + base64.StdEncoding.EncodeToString(token)
}
