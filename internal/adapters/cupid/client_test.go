package cupid_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_media/internal/adapters/cupid"
	"hotel_media/internal/domain"
)

func TestClient_GetProperty_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			w.WriteHeader(200)
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 123.0})
		}
	}))
	defer ts.Close()

	cl, err := cupid.New(ts.URL, "test-key", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := cl.GetProperty(ctx, 123)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	id, ok := got["id"].(float64)
	if !ok || int(id) != 123 {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_GetProperty_404(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl, err := cupid.New(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = cl.GetProperty(ctx, 1)
	if err == nil {
		t.Fatalf("expected error for 404")
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("404 should map to domain.ErrNotFound, got %v", err)
	}
}

func TestClient_GetProperty_ForbiddenIsNotRetried(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	cl, err := cupid.New(ts.URL, "test-key", 100)
	require.NoError(t, err)

	_, err = cl.GetProperty(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestClient_GetPhoto(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n")
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer api.Close()
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("X-API-Key"), "key must not leak to other hosts")
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	}))
	defer cdn.Close()

	cl, err := cupid.New(api.URL, "test-key", 100)
	require.NoError(t, err)
	ctx := context.Background()

	ph, err := cl.GetPhoto(ctx, api.URL+"/photos/1.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", ph.ContentType)
	assert.Equal(t, png, ph.Data)

	ph, err = cl.GetPhoto(ctx, cdn.URL+"/x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ph.ContentType)
}

func TestClient_GetPhoto_TooLarge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(bytes.Repeat([]byte{0}, cupid.MaxPhotoBytes+1))
	}))
	defer ts.Close()

	cl, err := cupid.New(ts.URL, "test-key", 100)
	require.NoError(t, err)

	_, err = cl.GetPhoto(context.Background(), ts.URL+"/big.png")
	assert.ErrorIs(t, err, cupid.ErrPhotoTooLarge)
}
