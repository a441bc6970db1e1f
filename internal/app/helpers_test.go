package app_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"hotel_media/internal/domain"
	"hotel_media/internal/storage/memory"
)

const samplePNG = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg=="

func ptr[T any](v T) *T { return &v }

// ---- fake cache ----

type fakeCache struct {
	mu   sync.Mutex
	m    map[string][]byte
	sets int
	dels []string
}

func newFakeCache() *fakeCache { return &fakeCache{m: map[string][]byte{}} }

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = b
	c.sets++
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	c.dels = append(c.dels, key)
	return nil
}

// put stores raw bytes, bypassing JSON encoding.
func (c *fakeCache) put(key, raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = []byte(raw)
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.m[key]
	return ok
}

// ---- store seeding ----

func seedHotel(t *testing.T, s *memory.Store, id int64) {
	t.Helper()
	if err := s.UpsertHotel(context.Background(), domain.Hotel{ID: id, Name: "hotel"}); err != nil {
		t.Fatalf("seed hotel: %v", err)
	}
}

func seedImage(t *testing.T, s *memory.Store, owner int64, title string) domain.Image {
	t.Helper()
	img, err := s.CreateImage(context.Background(), domain.NewImage{
		OwnerID: owner,
		Title:   title,
		Payload: samplePNG,
		Meta:    domain.DerivedMetadata{Subtype: "png", Size: 70},
	})
	if err != nil {
		t.Fatalf("seed image: %v", err)
	}
	return img
}

func seedLink(t *testing.T, s *memory.Store, hotelID, imageID int64, order int) domain.HotelImage {
	t.Helper()
	hi, err := s.AttachImage(context.Background(), hotelID, imageID, order)
	if err != nil {
		t.Fatalf("seed link: %v", err)
	}
	return hi
}

// primaries counts the hotel's links flagged primary.
func primaries(t *testing.T, s domain.HotelImageRepository, hotelID int64) []int64 {
	t.Helper()
	rows, err := s.ListByHotel(context.Background(), hotelID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var out []int64
	for _, r := range rows {
		if r.IsPrimary {
			out = append(out, r.ImageID)
		}
	}
	return out
}
