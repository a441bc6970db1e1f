package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_media/internal/adapters/observability"
	"hotel_media/internal/domain"
)

// PrimaryCoordinator keeps at most one primary image per hotel. Swaps for the
// same hotel run one at a time behind the hotel lock, and the repository
// performs the clear+set itself in a single transaction.
type PrimaryCoordinator struct {
	images domain.ImageRepository
	links  domain.HotelImageRepository
	locker domain.HotelLocker
	cache  domain.Cache
}

func NewPrimaryCoordinator(s domain.Store, l domain.HotelLocker, c domain.Cache) *PrimaryCoordinator {
	if l == nil {
		l = NewLocalLocker()
	}
	return &PrimaryCoordinator{images: s, links: s, locker: l, cache: c}
}

// SetPrimary marks the (hotelID, imageID) link as the hotel's primary image.
// The image must belong to callerID.
func (c *PrimaryCoordinator) SetPrimary(ctx context.Context, hotelID, imageID, callerID int64) (domain.HotelImage, error) {
	if hotelID <= 0 {
		return domain.HotelImage{}, fmt.Errorf("%w: hotel_id", domain.ErrRequiredParameter)
	}
	if _, err := c.images.GetImage(ctx, imageID, callerID); err != nil {
		return domain.HotelImage{}, err
	}

	var out domain.HotelImage
	err := c.withHotelLock(ctx, hotelID, func() error {
		var err error
		out, err = c.links.SetPrimary(ctx, hotelID, imageID)
		return err
	})
	if err != nil {
		return domain.HotelImage{}, err
	}
	c.swapped(ctx, out)
	return out, nil
}

func (c *PrimaryCoordinator) withHotelLock(ctx context.Context, hotelID int64, fn func() error) error {
	start := time.Now()
	unlock, err := c.locker.Lock(ctx, hotelID)
	observability.ObserveLockWait(time.Since(start))
	if err != nil {
		return fmt.Errorf("lock hotel %d: %w", hotelID, err)
	}
	defer unlock()
	return fn()
}

func (c *PrimaryCoordinator) swapped(ctx context.Context, hi domain.HotelImage) {
	observability.ObservePrimarySwap()
	evictHotelImages(ctx, c.cache, hi.HotelID)
	log.Info().Int64("hotel_id", hi.HotelID).Int64("image_id", hi.ImageID).Msg("primary image set")
}

// LocalLocker is an in-process HotelLocker keyed by hotel id. Entries are
// dropped once nobody holds or waits for them.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[int64]*hotelLock
}

type hotelLock struct {
	sem  chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[int64]*hotelLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, hotelID int64) (func(), error) {
	l.mu.Lock()
	hl, ok := l.locks[hotelID]
	if !ok {
		hl = &hotelLock{sem: make(chan struct{}, 1)}
		l.locks[hotelID] = hl
	}
	hl.refs++
	l.mu.Unlock()

	select {
	case hl.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(hotelID, hl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-hl.sem
			l.release(hotelID, hl)
		})
	}, nil
}

func (l *LocalLocker) release(hotelID int64, hl *hotelLock) {
	l.mu.Lock()
	hl.refs--
	if hl.refs == 0 {
		delete(l.locks, hotelID)
	}
	l.mu.Unlock()
}
