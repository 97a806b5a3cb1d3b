package matrix

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	redis "github.com/redis/go-redis/v9"

	"routeopt/internal/model"
)

// RedisCache keeps built matrices in Redis keyed by a digest of the ordered
// coordinate list. Cache failures are logged and treated as misses; the
// builder never depends on Redis being up.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache parses a Redis URL and returns a cache with a 24h TTL.
func NewRedisCache(url string) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("matrix cache: parse redis url: %w", err)
	}
	return &RedisCache{rdb: redis.NewClient(opt), ttl: 24 * time.Hour}, nil
}

func (c *RedisCache) key(locs []model.Location) string {
	h := sha256.New()
	for _, loc := range locs {
		fmt.Fprintf(h, "%.6f,%.6f;", loc.Lng, loc.Lat)
	}
	return "matrix:" + hex.EncodeToString(h.Sum(nil)[:16])
}

func (c *RedisCache) Get(ctx context.Context, locs []model.Location) (*Matrices, bool) {
	data, err := c.rdb.Get(ctx, c.key(locs)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("matrix cache get: %v", err)
		}
		return nil, false
	}
	var m Matrices
	if err := json.Unmarshal(data, &m); err != nil {
		log.Printf("matrix cache decode: %v", err)
		return nil, false
	}
	if m.Dim() != len(locs) {
		return nil, false
	}
	return &m, true
}

func (c *RedisCache) Put(ctx context.Context, locs []model.Location, m *Matrices) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(locs), data, c.ttl).Err(); err != nil {
		log.Printf("matrix cache put: %v", err)
	}
}
