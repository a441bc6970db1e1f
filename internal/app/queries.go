package app

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"hotel_media/internal/datauri"
	"hotel_media/internal/domain"
)

// QueryService serves the read side: the caller's images, downloads, bulk
// deletion, and the cached per-hotel listings.
type QueryService struct {
	images   domain.ImageRepository
	links    domain.HotelImageRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

// fillTimeout bounds a shared cache fill, which runs detached from callers.
const fillTimeout = 10 * time.Second

func NewQueryService(s domain.Store, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{images: s, links: s, cache: c, cacheTTL: ttl}
}

// Download is the payload export of one image.
type Download struct {
	Title   string
	Payload string
	Subtype string
	SizeMB  float64
}

func (s *QueryService) ListMine(ctx context.Context, callerID int64) ([]domain.Image, error) {
	return s.images.ListImages(ctx, callerID, domain.ImageFilter{})
}

// BulkDelete deletes the ids that exist and belong to callerID. Other ids are
// skipped without being reported; only the deleted count comes back.
func (s *QueryService) BulkDelete(ctx context.Context, ids []int64, callerID int64) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: ids", domain.ErrRequiredParameter)
	}
	uniq := slices.Clone(ids)
	slices.Sort(uniq)
	uniq = slices.Compact(uniq)

	n, hotels, err := s.images.DeleteImages(ctx, uniq, callerID)
	if err != nil {
		return 0, err
	}
	evictHotelImages(ctx, s.cache, hotels...)
	return n, nil
}

func (s *QueryService) Download(ctx context.Context, id, callerID int64) (Download, error) {
	img, err := s.images.GetImage(ctx, id, callerID)
	if err != nil {
		return Download{}, err
	}
	return Download{Title: img.Title, Payload: img.Payload, Subtype: img.Subtype, SizeMB: datauri.SizeMB(img.Size)}, nil
}

func (s *QueryService) ByHotel(ctx context.Context, hotelID int64) ([]domain.HotelImageWithImage, error) {
	if hotelID <= 0 {
		return nil, fmt.Errorf("%w: hotel_id", domain.ErrRequiredParameter)
	}
	rows, err := fillHotel(ctx, s, hotelID, hotelImagesKey(hotelID), s.links.ListByHotel)
	if err != nil {
		return nil, err
	}
	// copy so callers sharing a singleflight result can't alias each other
	return slices.Clone(rows), nil
}

// PrimaryByHotel returns ErrNotFound when the hotel has no primary image.
// Misses are not cached.
func (s *QueryService) PrimaryByHotel(ctx context.Context, hotelID int64) (domain.HotelImageWithImage, error) {
	if hotelID <= 0 {
		return domain.HotelImageWithImage{}, fmt.Errorf("%w: hotel_id", domain.ErrRequiredParameter)
	}
	return fillHotel(ctx, s, hotelID, hotelPrimaryKey(hotelID), s.links.PrimaryByHotel)
}

// fillHotel serves key from the cache or loads it once for all concurrent
// callers. The shared load does not inherit the first caller's cancellation;
// each caller still stops waiting when its own ctx ends.
func fillHotel[T any](ctx context.Context, s *QueryService, hotelID int64, key string, load func(context.Context, int64) (T, error)) (T, error) {
	var zero T
	if s.cache != nil {
		var out T
		// an undecodable entry counts as a miss
		if ok, err := s.cache.Get(ctx, key, &out); ok && err == nil {
			return out, nil
		}
	}

	ch := hotelFills.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fillTimeout)
		defer cancel()

		var gen string
		genOK := false
		if s.cache != nil {
			gen, genOK = hotelGeneration(fctx, s.cache, hotelID)
		}
		v, err := load(fctx, hotelID)
		if err != nil {
			return nil, err
		}
		if genOK {
			s.store(fctx, hotelID, gen, key, v)
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// store writes v back unless the hotel was evicted since gen was read. The
// second check removes an entry that raced with an eviction.
func (s *QueryService) store(ctx context.Context, hotelID int64, gen, key string, v any) {
	// payloads are large; skip anything that would bloat the cache
	if b, err := json.Marshal(v); err != nil || len(b) >= maxCachedBytes {
		return
	}
	if cur, ok := hotelGeneration(ctx, s.cache, hotelID); !ok || cur != gen {
		return
	}
	_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
	if cur, ok := hotelGeneration(ctx, s.cache, hotelID); !ok || cur != gen {
		_ = s.cache.Del(ctx, key)
	}
}
