package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"backend-recordpath/internal/shared/geo"

	"github.com/redis/go-redis/v9"
)

// Cache memoizes resolved places in redis. Nearby coordinates share a key
// (three decimals, roughly 100 m) so a slow walk does not refetch.
type Cache struct {
	next Gateway
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCache(next Gateway, rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{next: next, rdb: rdb, ttl: ttl}
}

func cacheKey(c geo.Coordinate) string {
	return fmt.Sprintf("geocode:%.3f:%.3f", c.Lat, c.Lng)
}

func (c *Cache) Lookup(ctx context.Context, coord geo.Coordinate) (*Place, error) {
	key := cacheKey(coord)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var place Place
		decodeErr := json.Unmarshal(raw, &place)
		if decodeErr == nil {
			return &place, nil
		}
		log.Printf("geocode cache decode %s: %v", key, decodeErr)
	case !errors.Is(err, redis.Nil):
		log.Printf("geocode cache get %s: %v", key, err)
	}

	place, err := c.next.Lookup(ctx, coord)
	if err != nil || place == nil {
		return place, err
	}

	payload, _ := json.Marshal(place)
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		log.Printf("geocode cache set %s: %v", key, err)
	}
	return place, nil
}
