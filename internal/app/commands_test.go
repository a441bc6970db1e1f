package app_test

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_media/internal/app"
	"hotel_media/internal/domain"
	"hotel_media/internal/storage/memory"
)

type fakeSource struct {
	props  map[int64]map[string]any
	photos map[string]domain.Photo
	calls  int
}

func (f *fakeSource) GetProperty(ctx context.Context, id int64) (map[string]any, error) {
	p, ok := f.props[id]
	if !ok {
		return nil, fmt.Errorf("source: %w", domain.ErrNotFound)
	}
	return p, nil
}

func (f *fakeSource) GetPhoto(ctx context.Context, url string) (domain.Photo, error) {
	f.calls++
	ph, ok := f.photos[url]
	if !ok {
		return domain.Photo{}, errors.New("photo unavailable")
	}
	return ph, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	b, err := base64.StdEncoding.DecodeString(samplePNG[len("data:image/png;base64,"):])
	require.NoError(t, err)
	return b
}

func newImporter(src domain.PhotoSource, store *memory.Store, maxPhotos int) *app.ImportService {
	images := app.NewImageService(store, nil)
	return app.NewImportService(src, store, images, newAssoc(store, nil), 77, maxPhotos)
}

func TestImportHotel(t *testing.T) {
	png := pngBytes(t)
	src := &fakeSource{
		props: map[int64]map[string]any{
			10: {
				"hotel_name": "Sea Breeze",
				"address":    map[string]any{"city": "Nice"},
				"photos": []any{
					map[string]any{"url": "https://cdn/missing.jpg"},
					map[string]any{"url": "https://cdn/a.png"},
					"https://cdn/b",
					"https://cdn/a.png",
					map[string]any{"url": "https://cdn/text"},
				},
			},
		},
		photos: map[string]domain.Photo{
			"https://cdn/a.png": {ContentType: "image/png", Data: png},
			"https://cdn/b":     {ContentType: "application/octet-stream", Data: png},
			"https://cdn/text":  {ContentType: "text/plain; charset=utf-8", Data: []byte("hello")},
		},
	}
	store := memory.New()
	imp := newImporter(src, store, 10)
	ctx := context.Background()

	res, err := imp.ImportHotel(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, app.ImportResult{Stored: 2, Skipped: 2}, res)

	h, err := store.GetHotel(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Sea Breeze", h.Name)
	require.NotNil(t, h.City)
	assert.Equal(t, "Nice", *h.City)

	rows, err := store.ListByHotel(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].IsPrimary, "first stored photo becomes primary")
	assert.False(t, rows[1].IsPrimary)
	assert.Equal(t, "png", rows[1].Image.Subtype, "sniffed from the bytes")
	assert.Equal(t, int64(77), rows[0].Image.OwnerID)

	// re-runs leave hotels with images alone
	before := src.calls
	res, err = imp.ImportHotel(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, app.ImportResult{}, res)
	assert.Equal(t, before, src.calls)
}

func TestImportHotel_MissIsRecorded(t *testing.T) {
	store := memory.New()
	imp := newImporter(&fakeSource{}, store, 10)

	res, err := imp.ImportHotel(context.Background(), 404)
	require.NoError(t, err)
	assert.Zero(t, res.Stored)
	assert.Equal(t, map[int64]string{404: "property"}, store.Misses())
}

func TestImportHotel_MaxPhotos(t *testing.T) {
	png := pngBytes(t)
	src := &fakeSource{
		props: map[int64]map[string]any{
			1: {"name": "x", "images": []any{"u1", "u2", "u3"}},
		},
		photos: map[string]domain.Photo{
			"u1": {ContentType: "image/png", Data: png},
			"u2": {ContentType: "image/png", Data: png},
			"u3": {ContentType: "image/png", Data: png},
		},
	}
	store := memory.New()
	res, err := newImporter(src, store, 2).ImportHotel(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stored)
	assert.Equal(t, 2, src.calls)
}
