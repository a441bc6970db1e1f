package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hotel_media/internal/domain"
)

// HotelService writes and reads the hotel's own inline image. That field is a
// separate copy and is not kept in step with the hotel's associations.
type HotelService struct {
	repo     domain.HotelRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewHotelService(r domain.HotelRepository, c domain.Cache, ttl time.Duration) *HotelService {
	return &HotelService{repo: r, cache: c, cacheTTL: ttl}
}

// HotelInput is the upsert shape; a nil Payload leaves the stored image as is.
type HotelInput struct {
	Name    string
	City    *string
	Payload *string
}

func (s *HotelService) Upsert(ctx context.Context, id int64, in HotelInput) (domain.Hotel, error) {
	if id <= 0 {
		return domain.Hotel{}, fmt.Errorf("%w: id", domain.ErrRequiredParameter)
	}
	h := domain.Hotel{ID: id, Name: strings.TrimSpace(in.Name), City: in.City, Active: true}
	if in.Payload != nil {
		meta, err := derive(*in.Payload)
		if err != nil {
			return domain.Hotel{}, err
		}
		h.Image = &domain.InlineImage{Payload: *in.Payload, Subtype: meta.Subtype, Size: meta.Size}
	}
	if err := s.repo.UpsertHotel(ctx, h); err != nil {
		return domain.Hotel{}, err
	}
	if s.cache != nil {
		_ = s.cache.Del(ctx, hotelKey(id))
	}
	return s.repo.GetHotel(ctx, id)
}

func (s *HotelService) Get(ctx context.Context, id int64) (domain.Hotel, error) {
	key := hotelKey(id)
	if s.cache != nil {
		var cached domain.Hotel
		// an undecodable entry counts as a miss
		if ok, err := s.cache.Get(ctx, key, &cached); ok && err == nil {
			return cached, nil
		}
	}
	h, err := s.repo.GetHotel(ctx, id)
	if err != nil {
		return domain.Hotel{}, err
	}
	if s.cache != nil && (h.Image == nil || len(h.Image.Payload) < maxCachedBytes) {
		_ = s.cache.Set(ctx, key, h, int(s.cacheTTL.Seconds()))
	}
	return h, nil
}
