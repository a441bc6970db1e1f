// Package cupid is the client for the Cupid content API, used by the importer
// to fetch hotel properties and their photos.
package cupid

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"hotel_media/internal/adapters/observability"
	"hotel_media/internal/datauri"
	"hotel_media/internal/domain"
)

var _ domain.PhotoSource = (*Client)(nil)

type Client struct {
	base    string
	baseURL *url.URL
	hc      *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", base)
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:    strings.TrimRight(base, "/"),
		baseURL: u,
		hc:      &http.Client{Timeout: 20 * time.Second},
		key:     key,
		rl:      rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Public API (tries modern endpoints first, falls back to legacy variants) ----

func (c *Client) GetProperty(ctx context.Context, id int64) (map[string]any, error) {
	candidates := []string{
		fmt.Sprintf("%s/properties/%d", c.base, id), // preferred
		fmt.Sprintf("%s/property/%d", c.base, id),   // legacy
	}
	var out map[string]any
	return out, c.getFirst(ctx, candidates, &out)
}

// GetPhoto downloads one photo. Provider photo URLs are absolute and usually
// point at a CDN, so the API key is only sent to the API host itself.
func (c *Client) GetPhoto(ctx context.Context, photoURL string) (domain.Photo, error) {
	var ph domain.Photo
	err := c.do(ctx, photoURL, "image/*", func(resp *http.Response) error {
		b, err := io.ReadAll(io.LimitReader(resp.Body, MaxPhotoBytes+1))
		if err != nil {
			return err
		}
		if len(b) > MaxPhotoBytes {
			return ErrPhotoTooLarge
		}
		ph = domain.Photo{ContentType: resp.Header.Get("Content-Type"), Data: b}
		return nil
	})
	return ph, err
}

// ---- Internals ----

// ownsURL reports whether rawURL points at the API itself: same scheme, same
// host and port, and a path under the base path.
func (c *Client) ownsURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Scheme, c.baseURL.Scheme) || !strings.EqualFold(u.Host, c.baseURL.Host) {
		return false
	}
	base := strings.TrimRight(c.baseURL.Path, "/")
	return base == "" || u.Path == base || strings.HasPrefix(u.Path, base+"/")
}

// MaxPhotoBytes caps a photo download at the largest payload the image store accepts.
const MaxPhotoBytes = datauri.MaxDecodedBytes

var (
	ErrNotFound      = fmt.Errorf("cupid: %w", domain.ErrNotFound)
	ErrUnauthorized  = fmt.Errorf("cupid: unauthorized: %w", domain.ErrForbidden)
	ErrForbidden     = fmt.Errorf("cupid: %w", domain.ErrForbidden)
	ErrPhotoTooLarge = errors.New("cupid: photo exceeds size limit")
)

func (c *Client) getFirst(ctx context.Context, urls []string, out any) error {
	var last error
	for _, u := range urls {
		if err := c.get(ctx, u, out); err != nil {
			if errors.Is(err, ErrNotFound) {
				last = err
				continue // try next pattern
			}
			return err // non-404: stop early
		}
		return nil // success
	}
	if last != nil {
		return last
	}
	return errors.New("no candidate URL succeeded")
}

// get performs a JSON GET and decodes the body into out.
func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	return c.do(ctx, rawURL, "application/json", func(resp *http.Response) error {
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

// do performs a GET with client-side rate limiting and retries, handing 2xx
// bodies to read. Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) do(ctx context.Context, rawURL, accept string, read func(*http.Response) error) error {
	// client-side rate limiting
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	endpoint := endpointLabel(c.base, rawURL)
	withKey := c.key != "" && c.ownsURL(rawURL)

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		if withKey {
			req.Header.Set("X-API-Key", c.key)
		}
		req.Header.Set("Accept", accept)
		req.Header.Set("User-Agent", "hotel-media/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("cupid", endpoint, 0, time.Since(start))
			// network error or context canceled
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			// context-aware sleep before retry
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			// no more retries or context canceled
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}

		observability.ObserveExternal("cupid", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			// read then close
			err := read(resp)
			resp.Body.Close()
			return err

		case http.StatusNoContent:
			// success, empty body
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// endpointLabel keeps metric cardinality low: API paths lose their ids and
// every other host collapses to "photo".
func endpointLabel(base, rawURL string) string {
	if !strings.HasPrefix(rawURL, base+"/") {
		return "photo"
	}
	path := strings.TrimPrefix(rawURL, base)
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	// seconds form
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	// HTTP-date form
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	// concurrency-safe jitter using crypto/rand
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0                  // 0..1
	j := time.Duration(0.5 * f * float64(base)) // up to +50%
	return base + j
}
