package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tubequiz/internal/domain"
)

// Acquirer produces a transcript for a video; the cache wraps the expensive
// acquisition pipeline behind it.
type Acquirer interface {
	Acquire(ctx context.Context, ref domain.VideoRef, observe func(domain.Stage)) (domain.Transcript, error)
}

// TranscriptCache memoizes acquired transcripts with TTL so repeated quiz
// requests for the same video skip the caption fetch and, worse, the
// transcription fallback. Concurrent misses for one video are deduplicated.
type TranscriptCache struct {
	acquirer Acquirer
	ttl      time.Duration
	clock    func() time.Time
	sf       singleflight.Group

	// rnd is shared across singleflight callbacks for distinct videos, which
	// run concurrently; rand.Rand is not goroutine-safe.
	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedTranscript
}

type cachedTranscript struct {
	transcript domain.Transcript
	expiresAt  time.Time
}

func NewTranscriptCache(acquirer Acquirer, ttl time.Duration) *TranscriptCache {
	return &TranscriptCache{
		acquirer: acquirer,
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:    make(map[string]cachedTranscript),
	}
}

func (c *TranscriptCache) Acquire(ctx context.Context, ref domain.VideoRef, observe func(domain.Stage)) (domain.Transcript, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[ref.ID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.transcript, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(ref.ID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[ref.ID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.transcript, nil
		}
		c.mu.RUnlock()

		transcript, err := c.acquirer.Acquire(ctx, ref, observe)
		if err != nil {
			return domain.Transcript{}, err
		}

		c.mu.Lock()
		c.cache[ref.ID] = cachedTranscript{
			transcript: transcript,
			expiresAt:  now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return transcript, nil
	})
	if err != nil {
		return domain.Transcript{}, err
	}
	return result.(domain.Transcript), nil
}

func (c *TranscriptCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
