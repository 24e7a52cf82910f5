package raster

import (
	"context"
	"fmt"
	"image"
	"time"
)

// State is the lifecycle stage of a Raster.
type State int

const (
	// Closed rasters have been evicted and must not be used.
	Closed State = iota
	// Loading rasters have no bitmap yet and a fetch in flight.
	Loading
	// Ready rasters expose a bitmap.
	Ready
	// Refreshing rasters expose their previous bitmap while a newer one is
	// being fetched.
	Refreshing
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Refreshing:
		return "refreshing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Raster is one cached image, keyed by its URL. It is owned by the Cache
// that created it and may only be used from the goroutine driving that
// cache.
type Raster struct {
	url       string
	downscale int
	cache     *Cache

	state      State
	bitmap     *Bitmap
	lastUpdate time.Time
	lastUse    time.Time
	used       bool

	ctx    context.Context
	cancel context.CancelFunc
}

func (r *Raster) URL() string {
	return r.url
}

func (r *Raster) State() State {
	return r.state
}

func (r *Raster) checkOpen() {
	if r.state == Closed {
		panic("raster: illegal attempt to use raster after collection: " + r.url)
	}
}

func (r *Raster) checkReady() {
	r.checkOpen()
	if r.state != Ready && r.state != Refreshing {
		panic("raster: illegal attempt to use raster before ready: " + r.url)
	}
}

func (r *Raster) Ready() bool {
	r.checkOpen()
	return r.state == Ready || r.state == Refreshing
}

// Updating reports whether a hot refresh is in flight.
func (r *Raster) Updating() bool {
	r.checkOpen()
	return r.state == Refreshing
}

// Bitmap returns the current image. While refreshing this is the previous
// image. It stays valid until the next Poll, Stats, Collect or Close.
func (r *Raster) Bitmap() image.Image {
	r.checkReady()
	return r.bitmap.Image()
}

func (r *Raster) LastUpdated() time.Time {
	r.checkReady()
	return r.lastUpdate
}

func (r *Raster) LastUsed() time.Time {
	r.checkOpen()
	return r.lastUse
}

// MarkDirty starts a hot refresh. The current bitmap stays usable until the
// new one arrives. It is a no-op while a fetch is already in flight.
func (r *Raster) MarkDirty() {
	r.checkOpen()
	if r.state != Ready {
		return
	}
	r.state = Refreshing
	r.cache.startTask(r, cacheBust(r.url))
}

func (r *Raster) touch(now time.Time) {
	r.lastUse = now
	r.used = true
}

// checkUsed reports and clears the used-since-last-collection flag.
func (r *Raster) checkUsed() bool {
	if r.used {
		r.used = false
		return true
	}
	return false
}

// finish installs a freshly fetched bitmap, releasing the one it replaces.
func (r *Raster) finish(bmp *Bitmap, now time.Time) {
	r.resetBitmap(bmp)
	r.lastUpdate = now
	r.state = Ready
}

func (r *Raster) destroy() {
	r.checkOpen()
	r.state = Closed
	r.cancel()
	r.resetBitmap(nil)
}

func (r *Raster) resetBitmap(replacement *Bitmap) {
	if r.bitmap != nil {
		r.bitmap.Release()
	}
	r.bitmap = replacement
}
