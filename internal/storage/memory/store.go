// Package memory is an in-process implementation of the repositories, used
// for local runs (STORAGE_DRIVER=memory) and tests. A single mutex guards all
// state, so every method is atomic.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"hotel_media/internal/domain"
)

type Store struct {
	mu     sync.Mutex
	now    func() time.Time
	nextID int64
	images map[int64]domain.Image
	links  map[int64]domain.HotelImage
	hotels map[int64]domain.Hotel
	misses map[int64]string
}

var _ domain.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:    func() time.Time { return time.Now().UTC() },
		images: make(map[int64]domain.Image),
		links:  make(map[int64]domain.HotelImage),
		hotels: make(map[int64]domain.Hotel),
		misses: make(map[int64]string),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

/********** images **********/

func (s *Store) CreateImage(ctx context.Context, in domain.NewImage) (domain.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	img := domain.Image{
		ID:          s.id(),
		OwnerID:     in.OwnerID,
		Title:       in.Title,
		Description: in.Description,
		Payload:     in.Payload,
		Subtype:     in.Meta.Subtype,
		Size:        in.Meta.Size,
		Width:       in.Meta.Width,
		Height:      in.Meta.Height,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.images[img.ID] = img
	return img, nil
}

func (s *Store) UpdateImage(ctx context.Context, id, ownerID int64, p domain.ImagePatch) (domain.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[id]
	if !ok || img.OwnerID != ownerID {
		return domain.Image{}, domain.ErrNotFound
	}
	if p.Title != nil {
		img.Title = *p.Title
	}
	if p.Description != nil {
		img.Description = emptyToNil(*p.Description)
	}
	if p.Active != nil {
		img.Active = *p.Active
	}
	if p.Payload != nil && p.Meta != nil {
		img.Payload = *p.Payload
		img.Subtype, img.Size = p.Meta.Subtype, p.Meta.Size
		img.Width, img.Height = p.Meta.Width, p.Meta.Height
	}
	img.UpdatedAt = s.now()
	s.images[id] = img
	return img, nil
}

func (s *Store) DeleteImage(ctx context.Context, id, ownerID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[id]
	if !ok || img.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return s.deleteImageLocked(id), nil
}

func (s *Store) DeleteImages(ctx context.Context, ids []int64, ownerID int64) (int64, []int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	var hotels []int64
	for _, id := range ids {
		img, ok := s.images[id]
		if !ok || img.OwnerID != ownerID {
			continue
		}
		hotels = append(hotels, s.deleteImageLocked(id)...)
		n++
	}
	slices.Sort(hotels)
	return n, slices.Compact(hotels), nil
}

// deleteImageLocked cascades to the image's links.
func (s *Store) deleteImageLocked(id int64) []int64 {
	var hotels []int64
	for lid, l := range s.links {
		if l.ImageID == id {
			hotels = append(hotels, l.HotelID)
			delete(s.links, lid)
		}
	}
	delete(s.images, id)
	return hotels
}

func (s *Store) GetImage(ctx context.Context, id, ownerID int64) (domain.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[id]
	if !ok || img.OwnerID != ownerID {
		return domain.Image{}, domain.ErrNotFound
	}
	return img, nil
}

func (s *Store) ListImages(ctx context.Context, ownerID int64, f domain.ImageFilter) ([]domain.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Image
	for _, img := range s.images {
		if img.OwnerID != ownerID {
			continue
		}
		if f.Subtype != nil && img.Subtype != strings.ToLower(*f.Subtype) {
			continue
		}
		if f.Active != nil && img.Active != *f.Active {
			continue
		}
		if f.Search != nil && !strings.Contains(strings.ToLower(img.Title), strings.ToLower(*f.Search)) {
			continue
		}
		out = append(out, img)
	}
	// newest first
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

/********** hotel images **********/

func (s *Store) AttachImage(ctx context.Context, hotelID, imageID int64, order int) (domain.HotelImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hotels[hotelID]; !ok {
		return domain.HotelImage{}, domain.ErrNotFound
	}
	if _, ok := s.images[imageID]; !ok {
		return domain.HotelImage{}, domain.ErrNotFound
	}
	for _, l := range s.links {
		if l.HotelID == hotelID && l.ImageID == imageID {
			return domain.HotelImage{}, domain.ErrConflict
		}
	}
	hi := domain.HotelImage{ID: s.id(), HotelID: hotelID, ImageID: imageID, Order: order, CreatedAt: s.now()}
	s.links[hi.ID] = hi
	return hi, nil
}

func (s *Store) SetPrimary(ctx context.Context, hotelID, imageID int64) (domain.HotelImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var target *domain.HotelImage
	for _, l := range s.links {
		if l.HotelID == hotelID && l.ImageID == imageID {
			l := l
			target = &l
			break
		}
	}
	if target == nil {
		return domain.HotelImage{}, domain.ErrNotFound
	}
	for id, l := range s.links {
		if l.HotelID == hotelID && l.IsPrimary {
			l.IsPrimary = false
			s.links[id] = l
		}
	}
	target.IsPrimary = true
	s.links[target.ID] = *target
	return *target, nil
}

func (s *Store) DeleteHotelImage(ctx context.Context, id int64) (domain.HotelImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return domain.HotelImage{}, domain.ErrNotFound
	}
	delete(s.links, id)
	return l, nil
}

func (s *Store) ListByHotel(ctx context.Context, hotelID int64) ([]domain.HotelImageWithImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.HotelImageWithImage
	for _, l := range s.links {
		if l.HotelID == hotelID {
			out = append(out, domain.HotelImageWithImage{HotelImage: l, Image: s.images[l.ImageID]})
		}
	}
	// ids grow with insertion, so they break order ties
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) PrimaryByHotel(ctx context.Context, hotelID int64) (domain.HotelImageWithImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		if l.HotelID == hotelID && l.IsPrimary {
			return domain.HotelImageWithImage{HotelImage: l, Image: s.images[l.ImageID]}, nil
		}
	}
	return domain.HotelImageWithImage{}, domain.ErrNotFound
}

func (s *Store) CountByHotel(ctx context.Context, hotelID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.links {
		if l.HotelID == hotelID {
			n++
		}
	}
	return n, nil
}

func (s *Store) HotelIDsForImage(ctx context.Context, imageID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int64
	for _, l := range s.links {
		if l.ImageID == imageID {
			out = append(out, l.HotelID)
		}
	}
	slices.Sort(out)
	return out, nil
}

/********** hotels **********/

func (s *Store) UpsertHotel(ctx context.Context, h domain.Hotel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	cur, ok := s.hotels[h.ID]
	if !ok {
		cur = domain.Hotel{ID: h.ID, CreatedAt: now, Active: true}
	}
	cur.Name, cur.City = h.Name, h.City
	if h.Image != nil {
		img := *h.Image
		cur.Image = &img
	}
	cur.UpdatedAt = now
	s.hotels[h.ID] = cur
	return nil
}

func (s *Store) GetHotel(ctx context.Context, id int64) (domain.Hotel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hotels[id]
	if !ok {
		return domain.Hotel{}, domain.ErrNotFound
	}
	return h, nil
}

// DeleteHotel removes a hotel and cascades to its links.
func (s *Store) DeleteHotel(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hotels[id]; !ok {
		return domain.ErrNotFound
	}
	for lid, l := range s.links {
		if l.HotelID == id {
			delete(s.links, lid)
		}
	}
	delete(s.hotels, id)
	return nil
}

func (s *Store) LogMiss(ctx context.Context, id int64, status int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.misses[id] = reason
	return nil
}

// Misses returns the recorded import misses keyed by hotel id.
func (s *Store) Misses() map[int64]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]string, len(s.misses))
	for k, v := range s.misses {
		out[k] = v
	}
	return out
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
