package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var (
	_ TypedCache[string] = (*SmartCache[string])(nil)
	_ TypedCache[string] = (*DistributedSmartCache[string])(nil)
	_ BytesCache         = (*RedisCache)(nil)
	_ BytesCache         = (*fakeBytesCache)(nil)
)

// fakeBytesCache is an in-memory BytesCache stand-in so
// DistributedSmartCache's JSON (de)serialization can be exercised without a
// real Redis instance.
type fakeBytesCache struct {
	data map[string][]byte
}

func newFakeBytesCache() *fakeBytesCache {
	return &fakeBytesCache{data: make(map[string][]byte)}
}

func (f *fakeBytesCache) Get(ctx context.Context, key string) ([]byte, bool) {
	v, ok := f.data[key]
	return v, ok
}

func (f *fakeBytesCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	f.data[key] = val
}

type cachedValue struct {
	Label string
	Score int
}

func TestDistributedSmartCacheRoundTripsThroughBackend(t *testing.T) {
	backend := newFakeBytesCache()
	dc := NewDistributedSmartCache[cachedValue](backend)

	dc.Set("BTC-USD", cachedValue{Label: "BUY", Score: 72}, time.Minute)

	got, ok := dc.Get("BTC-USD")
	assert.True(t, ok)
	assert.Equal(t, cachedValue{Label: "BUY", Score: 72}, got)
}

func TestDistributedSmartCacheMissOnUnknownKey(t *testing.T) {
	dc := NewDistributedSmartCache[cachedValue](newFakeBytesCache())
	_, ok := dc.Get("missing")
	assert.False(t, ok)
}

func TestDistributedSmartCacheMissOnCorruptPayload(t *testing.T) {
	backend := newFakeBytesCache()
	backend.data["bad"] = []byte("not json")
	dc := NewDistributedSmartCache[cachedValue](backend)

	_, ok := dc.Get("bad")
	assert.False(t, ok)
}
