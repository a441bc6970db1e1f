package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	server "hotel_media/internal/adapters/http_server"
	"hotel_media/internal/app"
	"hotel_media/internal/domain"
	"hotel_media/internal/storage/memory"
)

const samplePNG = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg=="

type testAPI struct {
	t     *testing.T
	store *memory.Store
	h     http.Handler
}

func newAPI(t *testing.T, opts server.Options) *testAPI {
	t.Helper()
	store := memory.New()
	primary := app.NewPrimaryCoordinator(store, nil, nil)
	srv := server.New(opts)
	srv.MountHandlers(&server.Handlers{
		Images:  app.NewImageService(store, nil),
		Assoc:   app.NewAssociationService(store, primary, nil),
		Primary: primary,
		Queries: app.NewQueryService(store, nil, time.Minute),
		Hotels:  app.NewHotelService(store, nil, time.Minute),
	})
	return &testAPI{t: t, store: store, h: srv.Mux()}
}

func (a *testAPI) do(method, path string, user int64, body any, hdr ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if user > 0 {
		req.Header.Set(server.CallerHeader, fmt.Sprint(user))
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rr := httptest.NewRecorder()
	a.h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

type problemBody struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Field  string `json:"field"`
}

func (a *testAPI) createImage(user int64, title string) server.ImageView {
	a.t.Helper()
	rr := a.do("POST", "/v1/images", user, map[string]any{"title": title, "image_base64": samplePNG})
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[server.ImageView](a.t, rr)
}

func (a *testAPI) seedHotel(id int64) {
	a.t.Helper()
	require.NoError(a.t, a.store.UpsertHotel(context.Background(), domain.Hotel{ID: id, Name: "h"}))
}

func TestHealthzNeedsNoCaller(t *testing.T) {
	api := newAPI(t, server.Options{})
	assert.Equal(t, http.StatusOK, api.do("GET", "/healthz", 0, nil).Code)
}

func TestCallerRequired(t *testing.T) {
	api := newAPI(t, server.Options{})
	rr := api.do("GET", "/v1/images/mine", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	rr = api.do("GET", "/v1/images/mine", 0, nil, server.CallerHeader, "abc")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateImage(t *testing.T) {
	api := newAPI(t, server.Options{})
	v := api.createImage(1, "pixel")

	assert.Equal(t, "png", v.ImageType)
	assert.EqualValues(t, 70, v.ImageSize)
	assert.Equal(t, samplePNG, v.ImageBase64)
	assert.Equal(t, samplePNG, v.ImageURL)
	assert.False(t, v.IsLarge)
	require.NotNil(t, v.ImageWidth)
	assert.Equal(t, 1, *v.ImageWidth)
}

func TestCreateImage_ValidationProblems(t *testing.T) {
	api := newAPI(t, server.Options{})

	cases := map[string]struct {
		body  any
		title string
		field string
	}{
		"bad payload":     {map[string]any{"title": "x", "image_base64": "data:text/plain;base64,AA=="}, "UnsupportedMediaType", "image_base64"},
		"not a data uri":  {map[string]any{"title": "x", "image_base64": "hello"}, "NotADataUri", "image_base64"},
		"long subtype":    {map[string]any{"title": "x", "image_base64": "data:image/" + strings.Repeat("p", 60) + ";base64,AAAA"}, "UnsupportedMediaType", "image_base64"},
		"missing title":   {map[string]any{"image_base64": samplePNG}, "Validation Failed", "title"},
		"missing payload": {map[string]any{"title": "x"}, "Validation Failed", "image_base64"},
		"blank title":     {map[string]any{"title": "   ", "image_base64": samplePNG}, "Missing Parameter", "title"},
		"broken json":     {"{", "Invalid Body", ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr := api.do("POST", "/v1/images", 1, tc.body)
			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			p := decode[problemBody](t, rr)
			assert.Equal(t, tc.title, p.Title)
			assert.Equal(t, tc.field, p.Field)
		})
	}

	rr := api.do("GET", "/v1/images/mine", 1, nil)
	assert.Empty(t, decode[[]server.ImageSummaryView](t, rr))
}

func TestCreateImage_BodyTooLarge(t *testing.T) {
	api := newAPI(t, server.Options{MaxBodyBytes: 1024})
	body := fmt.Sprintf(`{"title":"x","image_base64":"data:image/png;base64,%s"}`, strings.Repeat("A", 2048))
	rr := api.do("POST", "/v1/images", 1, body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestImageLifecycle(t *testing.T) {
	api := newAPI(t, server.Options{})
	v := api.createImage(1, "pixel")
	path := fmt.Sprintf("/v1/images/%d", v.ID)

	// other users see nothing
	assert.Equal(t, http.StatusNotFound, api.do("GET", path, 2, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do("PATCH", path, 2, map[string]any{"title": "x"}).Code)
	assert.Equal(t, http.StatusNotFound, api.do("DELETE", path, 2, nil).Code)

	rr := api.do("PATCH", path, 1, map[string]any{"title": "renamed", "is_active": false})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	up := decode[server.ImageView](t, rr)
	assert.Equal(t, "renamed", up.Title)
	assert.False(t, up.IsActive)

	rr = api.do("GET", "/v1/images?active=false&q=REN", 1, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]server.ImageSummaryView](t, rr), 1)

	rr = api.do("GET", path+"/download", 1, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	d := decode[server.DownloadView](t, rr)
	assert.Equal(t, "renamed", d.Title)
	assert.Equal(t, "png", d.ImageType)

	assert.Equal(t, http.StatusNoContent, api.do("DELETE", path, 1, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do("GET", path, 1, nil).Code)
}

func TestListImages_BadParams(t *testing.T) {
	api := newAPI(t, server.Options{})
	for _, q := range []string{"limit=0", "limit=201", "limit=x", "active=maybe"} {
		rr := api.do("GET", "/v1/images?"+q, 1, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestBulkDelete(t *testing.T) {
	api := newAPI(t, server.Options{})
	mine := api.createImage(1, "mine")
	theirs := api.createImage(2, "theirs")

	rr := api.do("POST", "/v1/images/bulk-delete", 1, map[string]any{"ids": []int64{mine.ID, theirs.ID}})
	require.Equal(t, http.StatusOK, rr.Code)
	out := decode[struct {
		DeletedCount int64 `json:"deleted_count"`
	}](t, rr)
	assert.EqualValues(t, 1, out.DeletedCount)

	assert.Equal(t, http.StatusOK, api.do("GET", fmt.Sprintf("/v1/images/%d", theirs.ID), 2, nil).Code)

	rr = api.do("POST", "/v1/images/bulk-delete", 1, map[string]any{"ids": []int64{}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAssociationsAndPrimary(t *testing.T) {
	api := newAPI(t, server.Options{})
	api.seedHotel(7)
	a := api.createImage(1, "a")
	b := api.createImage(1, "b")

	rr := api.do("POST", "/v1/hotel-images", 1, map[string]any{"hotel_id": 7, "image_id": a.ID, "order": 2})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = api.do("POST", "/v1/hotel-images", 1, map[string]any{"hotel_id": 7, "image_id": b.ID, "order": 1})
	require.Equal(t, http.StatusCreated, rr.Code)
	link := decode[server.AssociationView](t, rr)

	rr = api.do("POST", "/v1/hotel-images", 1, map[string]any{"hotel_id": 7, "image_id": a.ID})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = api.do("GET", "/v1/hotel-images/primary-by-hotel?hotel_id=7", 1, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = api.do("GET", "/v1/hotel-images/primary-by-hotel", 1, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "hotel_id", decode[problemBody](t, rr).Field)

	rr = api.do("POST", fmt.Sprintf("/v1/images/%d/set-primary", a.ID), 1, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "hotel_id is required")

	for _, id := range []int64{a.ID, a.ID, b.ID} {
		rr = api.do("POST", fmt.Sprintf("/v1/images/%d/set-primary?hotel_id=7", id), 1, nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	rr = api.do("GET", "/v1/hotel-images/primary-by-hotel?hotel_id=7", 1, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	p := decode[server.AssociationView](t, rr)
	assert.Equal(t, b.ID, p.ImageID)
	require.NotNil(t, p.Image)
	assert.Equal(t, "b", p.Image.Title)

	rr = api.do("GET", "/v1/hotel-images/by-hotel?hotel_id=7", 1, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]server.AssociationView](t, rr)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ImageID)
	var flagged int
	for _, l := range list {
		if l.IsPrimary {
			flagged++
		}
	}
	assert.Equal(t, 1, flagged)

	etag := rr.Header().Get("ETag")
	require.NotEmpty(t, etag)
	rr = api.do("GET", "/v1/hotel-images/by-hotel?hotel_id=7", 1, nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rr.Code)

	assert.Equal(t, http.StatusNoContent, api.do("DELETE", fmt.Sprintf("/v1/hotel-images/%d", link.ID), 1, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do("DELETE", fmt.Sprintf("/v1/hotel-images/%d", link.ID), 1, nil).Code)
}

func TestHotels(t *testing.T) {
	api := newAPI(t, server.Options{})

	rr := api.do("PUT", "/v1/hotels/3", 1, map[string]any{"name": "Grand", "city": "Rome", "image_base64": samplePNG})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	h := decode[server.HotelView](t, rr)
	require.NotNil(t, h.ImageType)
	assert.Equal(t, "png", *h.ImageType)
	assert.EqualValues(t, 70, h.ImageSize)

	rr = api.do("PUT", "/v1/hotels/3", 1, map[string]any{"name": "Grand", "image_base64": "data:image/png;base64,!!"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "image_base64", decode[problemBody](t, rr).Field)

	rr = api.do("GET", "/v1/hotels/3", 1, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	etag := rr.Header().Get("ETag")
	rr = api.do("GET", "/v1/hotels/3", 1, nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rr.Code)

	assert.Equal(t, http.StatusNotFound, api.do("GET", "/v1/hotels/4", 1, nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do("GET", "/v1/hotels/abc", 1, nil).Code)
}

func TestWriteRateLimit(t *testing.T) {
	api := newAPI(t, server.Options{WritesPerMinute: 2})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, api.do("POST", "/v1/images", 1, map[string]any{"title": "x", "image_base64": samplePNG}).Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)

	// reads are not limited
	assert.Equal(t, http.StatusOK, api.do("GET", "/v1/images/mine", 1, nil).Code)
}
