package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_media/internal/app"
	"hotel_media/internal/datauri"
	"hotel_media/internal/domain"
	"hotel_media/internal/storage/memory"
)

func TestHotelUpsert_InlineImage(t *testing.T) {
	store := memory.New()
	cache := newFakeCache()
	svc := app.NewHotelService(store, cache, time.Minute)
	ctx := context.Background()

	h, err := svc.Upsert(ctx, 3, app.HotelInput{Name: " Grand ", City: ptr("Paris"), Payload: ptr(samplePNG)})
	require.NoError(t, err)
	assert.Equal(t, "Grand", h.Name)
	require.NotNil(t, h.Image)
	assert.Equal(t, "png", h.Image.Subtype)
	assert.EqualValues(t, 70, h.Image.Size)

	// cached read
	_, err = svc.Get(ctx, 3)
	require.NoError(t, err)
	assert.True(t, cache.has("hotel:3"))

	// no payload keeps the stored image and evicts the cache
	h, err = svc.Upsert(ctx, 3, app.HotelInput{Name: "Grand II"})
	require.NoError(t, err)
	assert.Equal(t, "Grand II", h.Name)
	require.NotNil(t, h.Image)
	assert.False(t, cache.has("hotel:3"))
}

func TestHotelUpsert_RejectsBadImage(t *testing.T) {
	store := memory.New()
	svc := app.NewHotelService(store, nil, time.Minute)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, 3, app.HotelInput{Name: "x", Payload: ptr("data:application/pdf;base64,AAAA")})
	var ve *datauri.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, datauri.UnsupportedMediaType, ve.Kind)

	_, err = store.GetHotel(ctx, 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Upsert(ctx, 0, app.HotelInput{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrRequiredParameter)
}

func TestHotelGet_CorruptCacheEntryIsAMiss(t *testing.T) {
	store := memory.New()
	cache := newFakeCache()
	svc := app.NewHotelService(store, cache, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.UpsertHotel(ctx, domain.Hotel{ID: 8, Name: "Harbor"}))
	cache.put("hotel:8", `{"ID":"oops"`)

	h, err := svc.Get(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(8), h.ID)
	assert.Equal(t, "Harbor", h.Name)
}
