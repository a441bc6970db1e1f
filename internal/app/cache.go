package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"hotel_media/internal/domain"
)

// cached values above this size are not written back
const maxCachedBytes = 1_000_000

func hotelImagesKey(hotelID int64) string  { return fmt.Sprintf("hotel-images:%d", hotelID) }
func hotelPrimaryKey(hotelID int64) string { return fmt.Sprintf("hotel-primary:%d", hotelID) }
func hotelGenKey(hotelID int64) string     { return fmt.Sprintf("hotel-gen:%d", hotelID) }
func hotelKey(hotelID int64) string        { return fmt.Sprintf("hotel:%d", hotelID) }

// hotelFills dedups concurrent store reads of the per-hotel listings. It is
// shared with the eviction path so a write can detach in-flight reads.
var hotelFills singleflight.Group

// hotelGeneration reads the token rotated by every eviction of hotelID.
// ok is false when the cache could not answer.
func hotelGeneration(ctx context.Context, c domain.Cache, hotelID int64) (gen string, ok bool) {
	found, err := c.Get(ctx, hotelGenKey(hotelID), &gen)
	if err != nil {
		return "", false
	}
	if !found {
		return "", true
	}
	return gen, true
}

// evictHotelImages drops the association listings of every given hotel.
// The generation moves first so fills that read the store earlier never
// write their result back.
func evictHotelImages(ctx context.Context, c domain.Cache, hotelIDs ...int64) {
	for _, id := range hotelIDs {
		hotelFills.Forget(hotelImagesKey(id))
		hotelFills.Forget(hotelPrimaryKey(id))
		if c == nil {
			continue
		}
		_ = c.Set(ctx, hotelGenKey(id), uuid.NewString(), 0)
		_ = c.Del(ctx, hotelImagesKey(id))
		_ = c.Del(ctx, hotelPrimaryKey(id))
	}
}
