package redisad

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"hotel_media/internal/domain"
)

// release only deletes the key while it still holds our token, so an expired
// lock taken over by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a per-hotel lock shared by every API replica. The TTL bounds how
// long a crashed holder can block a hotel.
type Locker struct {
	c    *redis.Client
	ttl  time.Duration
	poll time.Duration
}

var _ domain.HotelLocker = (*Locker)(nil)

func NewLocker(c *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Locker{c: c, ttl: ttl, poll: 25 * time.Millisecond}
}

func lockKey(hotelID int64) string { return fmt.Sprintf("lock:hotel:%d", hotelID) }

// Lock polls until the key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, hotelID int64) (func(), error) {
	key := lockKey(hotelID)
	token := uuid.NewString()

	t := time.NewTicker(l.poll)
	defer t.Stop()
	for {
		ok, err := l.c.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's ctx may already be cancelled
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.c, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				log.Warn().Err(err).Int64("hotel_id", hotelID).Msg("hotel lock release failed; it will expire")
			}
		})
	}, nil
}
