package cupid

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestOwnsURL(t *testing.T) {
	tests := []struct {
		base string
		url  string
		want bool
	}{
		{"https://api.example.com", "https://api.example.com/photos/1.jpg", true},
		{"https://api.example.com", "https://API.example.com/photos/1.jpg", true},
		{"https://api.example.com", "https://api.example.com.evil.net/photos/1.jpg", false},
		{"https://api.example.com", "https://api.example.com@evil.net/x.jpg", false},
		{"https://api.example.com", "http://api.example.com/photos/1.jpg", false},
		{"https://api.example.com", "https://api.example.com:8443/photos/1.jpg", false},
		{"https://api.example.com/v3.0", "https://api.example.com/v3.0/properties/1", true},
		{"https://api.example.com/v3.0", "https://api.example.com/v3.0", true},
		{"https://api.example.com/v3.0", "https://api.example.com/v3.0evil/x", false},
		{"https://api.example.com/v3.0/", "https://api.example.com/v3.0/x", true},
		{"https://api.example.com", "://broken", false},
	}
	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			c, err := New(tc.base, "k", 100)
			require.NoError(t, err)
			assert.Equal(t, tc.want, c.ownsURL(tc.url))
		})
	}
}

func TestGetPhoto_KeyOnlyForAPIHost(t *testing.T) {
	c, err := New("https://api.example.com", "secret", 100)
	require.NoError(t, err)

	var mu sync.Mutex
	seen := map[string]string{}
	c.hc = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		mu.Lock()
		seen[r.URL.Host] = r.Header.Get("X-API-Key")
		mu.Unlock()
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"image/png"}},
			Body:       io.NopCloser(strings.NewReader("png")),
			Request:    r,
		}, nil
	})}

	ctx := context.Background()
	_, err = c.GetPhoto(ctx, "https://api.example.com/photos/1.png")
	require.NoError(t, err)
	_, err = c.GetPhoto(ctx, "https://api.example.com.evil.net/photos/1.png")
	require.NoError(t, err)

	assert.Equal(t, "secret", seen["api.example.com"])
	assert.Empty(t, seen["api.example.com.evil.net"])
}

func TestNew_RejectsBadBase(t *testing.T) {
	_, err := New("api.example.com", "k", 1)
	assert.Error(t, err)
	_, err = New("", "k", 1)
	assert.Error(t, err)
}
