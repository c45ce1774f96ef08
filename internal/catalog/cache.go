package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisclient "github.com/dmarceau/shopstream-backend/pkg/redis"
)

// ErrCacheMiss signals the featured list is not in the cache.
var ErrCacheMiss = fmt.Errorf("featured products cache miss")

// FeaturedCache holds the serialized featured product list.
type FeaturedCache interface {
	GetFeatured(ctx context.Context) ([]ProductDTO, error)
	SetFeatured(ctx context.Context, products []ProductDTO) error
}

type featuredStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

type featuredKeyer interface {
	FeaturedProductsKey() string
}

type redisFeaturedCache struct {
	store featuredStore
	keyer featuredKeyer
}

// NewFeaturedCache builds the Redis-backed featured product cache.
func NewFeaturedCache(client *redisclient.Client) FeaturedCache {
	return &redisFeaturedCache{store: client, keyer: client}
}

func (c *redisFeaturedCache) GetFeatured(ctx context.Context) ([]ProductDTO, error) {
	raw, err := c.store.Get(ctx, c.keyer.FeaturedProductsKey())
	if err != nil {
		if redisclient.IsNil(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	var products []ProductDTO
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		return nil, fmt.Errorf("decode featured cache: %w", err)
	}
	return products, nil
}

// SetFeatured overwrites the cached list with the provided snapshot. The key
// has no TTL; it is kept current by recomputing after every catalog mutation.
func (c *redisFeaturedCache) SetFeatured(ctx context.Context, products []ProductDTO) error {
	if products == nil {
		products = []ProductDTO{}
	}
	raw, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("encode featured cache: %w", err)
	}
	return c.store.Set(ctx, c.keyer.FeaturedProductsKey(), string(raw), 0)
}
