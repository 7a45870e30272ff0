package clearbit

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery(t *testing.T) {
	q := BuildQuery("", "jane.doe@example.com", "sk_test")

	assert.Equal(t, http.MethodGet, q.Method)
	assert.Equal(t, "https://person.clearbit.com/v2/combined/find?email=jane.doe%40example.com", q.URL)
	assert.Equal(t, "application/json", q.Headers["Accept"])
	assert.Equal(t, "Basic c2tfdGVzdDo=", q.Headers["Authorization"])
}

func TestBuildQuery_EscapesEmail(t *testing.T) {
	q := BuildQuery("http://127.0.0.1:8080/find", "a+b&c=d@example.com", "k")

	parsed, err := url.Parse(q.URL)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", parsed.Host)
	assert.Equal(t, "/find", parsed.Path)
	assert.Equal(t, "a+b&c=d@example.com", parsed.Query().Get("email"))
}

func TestBasicAuth_RawKeyBytes(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"sk_test", "Basic c2tfdGVzdDo="},
		{"key with spaces&=%", "Basic a2V5IHdpdGggc3BhY2VzJj0lOg=="},
		{"ключ", "Basic 0LrQu9GO0Yc6"},
		{"", "Basic Og=="},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, BasicAuth(tt.key))
		})
	}
}
