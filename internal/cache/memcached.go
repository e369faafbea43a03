package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// NewMemcachedClient builds a memcached client from a comma-separated address
// list (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and
// maxIdleConns use package defaults when zero. The client is shared between
// the geocode and weather caches; each gets its own key prefix.
func NewMemcachedClient(addrs string, timeout time.Duration, maxIdleConns int) *memcache.Client {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return client
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Memcached implements Cache backed by memcached, serializing values as JSON.
// The prefix namespaces keys so the geocode and weather caches do not collide
// on a shared server.
type Memcached[V any] struct {
	client *memcache.Client
	prefix string
}

// NewMemcached wraps an existing memcached client with a typed cache view.
func NewMemcached[V any](client *memcache.Client, prefix string) *Memcached[V] {
	return &Memcached[V]{client: client, prefix: prefix}
}

// key namespaces k under the cache prefix. Geocode keys are raw free-text
// queries, which routinely violate the memcached key rules (max 250 bytes,
// no spaces or control characters); those are replaced with a SHA-256 digest
// of the raw key so every query stays cacheable.
func (c *Memcached[V]) key(k string) string {
	full := c.prefix + ":" + k
	if validKey(full) {
		return full
	}
	sum := sha256.Sum256([]byte(k))
	return c.prefix + ":" + hex.EncodeToString(sum[:])
}

func validKey(k string) bool {
	if len(k) > 250 {
		return false
	}
	for i := 0; i < len(k); i++ {
		if k[i] <= ' ' || k[i] == 0x7f {
			return false
		}
	}
	return true
}

// Get implements Cache.Get. Returns false, nil on cache miss; false, err on error.
func (c *Memcached[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if ctx.Err() != nil {
		return zero, false, ctx.Err()
	}
	item, err := c.client.Get(c.key(key))
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return zero, false, nil
		}
		return zero, false, err
	}
	var value V
	if err := json.Unmarshal(item.Value, &value); err != nil {
		return zero, false, err
	}
	return value, true, nil
}

// Set implements Cache.Set.
func (c *Memcached[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	expSec := int32(ttl.Seconds())
	const maxRelativeExp = 30 * 24 * 60 * 60 // larger values are read as unix timestamps
	if expSec <= 0 || expSec > maxRelativeExp {
		expSec = 3600
	}
	return c.client.Set(&memcache.Item{
		Key:        c.key(key),
		Value:      raw,
		Expiration: expSec,
	})
}
