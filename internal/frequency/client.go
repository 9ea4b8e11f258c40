package frequency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config controls lookup concurrency and retry behavior.
type Config struct {
	// Workers is the number of concurrent remote lookups.
	Workers int
	// MaxAttempts bounds the tries per job, including the first.
	MaxAttempts int
	// BaseDelay is the wait before the first retry; it doubles per retry.
	BaseDelay time.Duration
	// MaxDelay caps a single backoff wait.
	MaxDelay time.Duration
	// BatchSize is the number of keys per bulk request. Values above 1 only
	// take effect when the source implements BatchSource.
	BatchSize int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Workers:     4,
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		BatchSize:   1,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BaseDelay < 0 {
		c.BaseDelay = 0
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	return c
}

// Stats are cumulative lookup counters for a client.
type Stats struct {
	RemoteCalls int64
	CacheHits   int64
	Found       int64
	NotFound    int64
	Failed      int64
}

// flight is a key claimed by one Resolve call. Other callers wait on done.
type flight struct {
	done   chan struct{}
	result Result
}

// Client resolves allele frequencies through a run-scoped cache and a bounded
// worker pool. It is safe for concurrent use.
type Client struct {
	source Source
	batch  BatchSource
	cfg    Config
	cache  *Cache
	logger *zap.Logger
	sleep  func(context.Context, time.Duration) error

	mu       sync.Mutex
	inflight map[Key]*flight

	remoteCalls atomic.Int64
	cacheHits   atomic.Int64
	found       atomic.Int64
	notFound    atomic.Int64
	failed      atomic.Int64
}

// NewClient creates a client for the given source.
func NewClient(source Source, cfg Config) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		source:   source,
		cfg:      cfg,
		cache:    NewCache(),
		logger:   zap.NewNop(),
		sleep:    sleepContext,
		inflight: make(map[Key]*flight),
	}
	if bs, ok := source.(BatchSource); ok && cfg.BatchSize > 1 {
		c.batch = bs
	}
	return c
}

// SetLogger sets the logger for retry and failure messages.
func (c *Client) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Resolve returns a result for every key. Each distinct key is fetched from
// the source at most once per client; repeated and concurrent requests for
// the same key share that result. Resolve never returns an error: lookups
// that cannot be completed resolve to StatusLookupFailed.
func (c *Client) Resolve(ctx context.Context, keys []Key) map[Key]Result {
	out := make(map[Key]Result, len(keys))

	var claimed []Key
	waiting := make(map[Key]*flight)

	c.mu.Lock()
	for _, k := range keys {
		if _, seen := out[k]; seen {
			continue
		}
		if _, seen := waiting[k]; seen {
			continue
		}
		if r, ok := c.cache.Get(k); ok {
			c.cacheHits.Add(1)
			out[k] = r
			continue
		}
		if f, ok := c.inflight[k]; ok {
			waiting[k] = f
			continue
		}
		f := &flight{done: make(chan struct{})}
		c.inflight[k] = f
		// Placeholder so duplicates in keys are skipped.
		out[k] = Failed()
		claimed = append(claimed, k)
	}
	c.mu.Unlock()

	if len(claimed) > 0 {
		for k, r := range c.fetchAll(ctx, claimed) {
			out[k] = r
		}
	}

	for k, f := range waiting {
		select {
		case <-f.done:
			c.cacheHits.Add(1)
			out[k] = f.result
		case <-ctx.Done():
			out[k] = Failed()
		}
	}

	return out
}

// Lookup resolves a single key.
func (c *Client) Lookup(ctx context.Context, k Key) Result {
	return c.Resolve(ctx, []Key{k})[k]
}

// fetchAll resolves claimed keys through the worker pool, publishing each
// result to the cache and to any waiters as its job completes.
func (c *Client) fetchAll(ctx context.Context, claimed []Key) map[Key]Result {
	size := 1
	if c.batch != nil {
		size = c.cfg.BatchSize
	}
	jobs := chunkKeys(claimed, size)

	out := make(map[Key]Result, len(claimed))
	for jr := range runPool(ctx, jobs, c.cfg.Workers, c.fetch) {
		for _, k := range jobs[jr.Seq].Keys {
			r, ok := jr.Results[k]
			if !ok {
				r = Failed()
			}
			c.record(r)
			c.publish(k, r)
			out[k] = r
		}
	}
	return out
}

func (c *Client) record(r Result) {
	switch r.Status {
	case StatusFound:
		c.found.Add(1)
	case StatusNotFound:
		c.notFound.Add(1)
	default:
		c.failed.Add(1)
	}
}

func (c *Client) publish(k Key, r Result) {
	c.cache.Set(k, r)

	c.mu.Lock()
	f := c.inflight[k]
	delete(c.inflight, k)
	c.mu.Unlock()

	if f != nil {
		f.result = r
		close(f.done)
	}
}

// fetch performs one job with retries. Transient errors are retried with
// exponential backoff until MaxAttempts is reached or ctx is done.
func (c *Client) fetch(ctx context.Context, keys []Key) map[Key]Result {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt)
			c.logger.Debug("retrying frequency lookup",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Int("keys", len(keys)),
				zap.Error(lastErr))
			if err := c.sleep(ctx, delay); err != nil {
				lastErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		c.remoteCalls.Add(1)
		results, err := c.query(ctx, keys)
		if err == nil {
			return results
		}
		lastErr = err
		if !IsTransient(err) {
			break
		}
	}

	c.logger.Warn("frequency lookup failed",
		zap.String("first_key", keys[0].String()),
		zap.Int("keys", len(keys)),
		zap.Error(lastErr))

	failed := make(map[Key]Result, len(keys))
	for _, k := range keys {
		failed[k] = Failed()
	}
	return failed
}

// query issues a single request for keys.
func (c *Client) query(ctx context.Context, keys []Key) (map[Key]Result, error) {
	results := make(map[Key]Result, len(keys))

	if c.batch != nil && len(keys) > 1 {
		answered, err := c.batch.QueryBatch(ctx, keys)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			if r, ok := answered[k]; ok {
				results[k] = r
			} else {
				results[k] = NotFound()
			}
		}
		return results, nil
	}

	for _, k := range keys {
		af, err := c.source.Query(ctx, k)
		switch {
		case err == nil:
			results[k] = Found(af)
		case errors.Is(err, ErrNotFound):
			results[k] = NotFound()
		default:
			return nil, err
		}
	}
	return results, nil
}

// backoff returns the wait before the given retry (1-based): BaseDelay
// doubled per retry, capped at MaxDelay.
func (c *Client) backoff(retry int) time.Duration {
	delay := c.cfg.BaseDelay
	for i := 1; i < retry; i++ {
		delay *= 2
		if delay >= c.cfg.MaxDelay {
			return c.cfg.MaxDelay
		}
	}
	return min(delay, c.cfg.MaxDelay)
}

// Stats returns a snapshot of the lookup counters.
func (c *Client) Stats() Stats {
	return Stats{
		RemoteCalls: c.remoteCalls.Load(),
		CacheHits:   c.cacheHits.Load(),
		Found:       c.found.Load(),
		NotFound:    c.notFound.Load(),
		Failed:      c.failed.Load(),
	}
}

// Reachable reports whether the source has given at least one definitive
// answer, or has not failed yet.
func (c *Client) Reachable() bool {
	s := c.Stats()
	return s.Failed == 0 || s.Found+s.NotFound > 0
}

// CacheLen returns the number of resolved keys held in the cache.
func (c *Client) CacheLen() int {
	return c.cache.Len()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
