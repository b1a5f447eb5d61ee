package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize holds every fixed prompt plus a window of per-session
// clarifications.
const DefaultCacheSize = 256

// Cache wraps a Synthesizer with an LRU of rendered utterances. Concurrent
// requests for the same text are collapsed into a single upstream call.
type Cache struct {
	next  Synthesizer
	lru   *lru.Cache[string, Audio]
	group singleflight.Group
}

// NewCache wraps next with a cache of the given size. A non-positive size
// applies DefaultCacheSize.
func NewCache(next Synthesizer, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	l, err := lru.New[string, Audio](size)
	if err != nil {
		return nil, err
	}
	return &Cache{next: next, lru: l}, nil
}

// Synthesize implements Synthesizer.
func (c *Cache) Synthesize(ctx context.Context, text string) (Audio, error) {
	key := cacheKey(text)
	if audio, ok := c.lru.Get(key); ok {
		return audio, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if audio, ok := c.lru.Get(key); ok {
			return audio, nil
		}
		audio, err := c.next.Synthesize(ctx, text)
		if err != nil {
			return Audio{}, err
		}
		c.lru.Add(key, audio)
		return audio, nil
	})
	if err != nil {
		return Audio{}, err
	}
	return v.(Audio), nil
}

// Len reports the number of cached utterances.
func (c *Cache) Len() int {
	return c.lru.Len()
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
