package raster

import (
	"time"

	"github.com/jaennil/guide_helper/backend/viewer/internal/settings"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/metrics"
)

// startTask fetches url for r in the background until it succeeds or r is
// destroyed. The retry delay is read once when the task starts.
func (c *Cache) startTask(r *Raster, url string) {
	delay := time.Duration(settings.Int(c.settings, settings.RasterRetryDelay)) * time.Millisecond
	if r.state == Refreshing {
		metrics.RasterRefreshes.Inc()
	}
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		c.run(r, url, delay)
	}()
}

func (c *Cache) run(r *Raster, url string, delay time.Duration) {
	ctx := r.ctx
	for attempt := 1; ; attempt++ {
		start := time.Now()
		bmp, err := c.fetcher.Fetch(ctx, url, r.downscale)
		elapsed := time.Since(start)
		metrics.RasterFetchLatency.Observe(elapsed.Seconds())

		if err == nil {
			metrics.RasterFetches.WithLabelValues("success").Inc()
			if ctx.Err() != nil {
				bmp.Release()
				return
			}
			select {
			case c.done <- completion{raster: r, bitmap: bmp}:
			case <-ctx.Done():
				bmp.Release()
			}
			return
		}

		if ctx.Err() != nil {
			metrics.RasterFetches.WithLabelValues("canceled").Inc()
			return
		}
		metrics.RasterFetches.WithLabelValues("error").Inc()
		c.logger.Debug("raster fetch failed, retrying", "url", url, "attempt", attempt, "error", err)

		// A slow failure has already waited long enough.
		if elapsed >= delay {
			continue
		}

		timer := time.NewTimer(delay - elapsed)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			metrics.RasterFetches.WithLabelValues("canceled").Inc()
			return
		}
	}
}
