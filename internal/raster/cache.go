// Package raster caches asynchronously loaded tile images. Each image is
// fetched at most once at a time, retried until it succeeds, can be
// refreshed in place, and is evicted once unused for longer than the
// configured time to live.
package raster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jaennil/guide_helper/backend/viewer/internal/settings"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/logger"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/metrics"
)

const (
	MinDownscale = 0
	MaxDownscale = 9

	completionBuffer = 256
)

var ErrDownscaleRange = errors.New("downscale is out of range")

// Stats is a snapshot of the cache contents.
type Stats struct {
	// Total number of rasters tracked.
	Total int `json:"total"`
	// Loading counts rasters without a bitmap yet.
	Loading int `json:"loading"`
	// Updating counts ready rasters with a refresh in flight.
	Updating int `json:"updating"`
	// Used is the fraction of rasters used during the last collection cycle.
	Used float64 `json:"used"`
}

type completion struct {
	raster *Raster
	bitmap *Bitmap
}

type Option func(*Cache)

// WithClock replaces time.Now for usage and eviction bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache maps URLs to rasters. Get, Poll, Stats, Collect and the Raster
// methods must all be called from one goroutine. Fetches run in the
// background and hand their results back through a channel that is only
// drained by Poll, Stats, Collect and Close, never by Get, so a bitmap obtained
// during a frame stays valid until the frame ends.
type Cache struct {
	fetcher  Fetcher
	settings settings.Provider
	logger   logger.Logger
	now      func() time.Time

	rasters map[string]*Raster
	used    float64
	done    chan completion
	tasks   sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func NewCache(f Fetcher, p settings.Provider, l logger.Logger, opts ...Option) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		fetcher:  f,
		settings: p,
		logger:   l,
		now:      time.Now,
		rasters:  make(map[string]*Raster),
		done:     make(chan completion, completionBuffer),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the raster for url once it is ready. The first call for a URL
// starts its fetch; until the bitmap arrives and a Poll has applied it, ok is
// false.
func (c *Cache) Get(url string, downscale int) (r *Raster, ok bool, err error) {
	if downscale < MinDownscale || downscale > MaxDownscale {
		return nil, false, fmt.Errorf("%w: expected [%d, %d], got %d", ErrDownscaleRange, MinDownscale, MaxDownscale, downscale)
	}

	r, exists := c.rasters[url]
	if !exists {
		r = c.open(url, downscale)
	}
	r.touch(c.now())

	if !r.Ready() {
		return nil, false, nil
	}
	return r, true, nil
}

func (c *Cache) open(url string, downscale int) *Raster {
	ctx, cancel := context.WithCancel(c.ctx)
	r := &Raster{
		url:       url,
		downscale: downscale,
		cache:     c,
		state:     Loading,
		ctx:       ctx,
		cancel:    cancel,
	}
	c.rasters[url] = r
	c.startTask(r, url)
	return r
}

// Poll applies finished fetches. Bitmaps replaced by a refresh are released
// here, so it must only run between frames.
func (c *Cache) Poll() {
	c.drain()
}

func (c *Cache) Stats() Stats {
	c.drain()

	var s Stats
	for _, r := range c.rasters {
		switch r.state {
		case Loading:
			s.Loading++
		case Refreshing:
			s.Updating++
		}
		s.Total++
	}
	s.Used = c.used
	return s
}

// Collect evicts rasters that were not used since the previous collection
// and whose last use is older than the time to live. It is meant to run
// once per frame.
func (c *Cache) Collect() {
	c.drain()

	now := c.now()
	ttl := time.Duration(settings.Int(c.settings, settings.RasterTimeToLive)) * time.Millisecond

	total, usedCount := len(c.rasters), 0
	for url, r := range c.rasters {
		if r.checkUsed() {
			usedCount++
			continue
		}

		if now.Sub(r.lastUse) > ttl {
			r.destroy()
			delete(c.rasters, url)
			metrics.RasterEvictions.Inc()
			c.logger.Debug("raster evicted", "url", url, "idle", now.Sub(r.lastUse))
		}
	}

	if total == 0 {
		c.used = 0
		return
	}
	c.used = float64(usedCount) / float64(total)
}

// Close destroys every raster, abandons all fetches and waits for them to
// return. Results that were already delivered are released.
func (c *Cache) Close() {
	for url, r := range c.rasters {
		r.destroy()
		delete(c.rasters, url)
	}
	c.cancel()
	c.tasks.Wait()
	c.drain()
}

// drain applies finished fetches.
func (c *Cache) drain() {
	for {
		select {
		case res := <-c.done:
			c.apply(res)
		default:
			return
		}
	}
}

func (c *Cache) apply(res completion) {
	r := res.raster
	if r.ctx.Err() != nil || r.state == Closed {
		res.bitmap.Release()
		return
	}
	r.finish(res.bitmap, c.now())
}
