package usecase

import (
	"github.com/jaennil/guide_helper/backend/viewer/internal/raster"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/metrics"
)

// Component takes part in the frame loop.
type Component interface {
	Render(delta float64)
}

// Resizer is a Component that reacts to canvas size changes.
type Resizer interface {
	Resize(width, height int)
}

// Gesturer is a Component that handles pointer gestures. n is a normalized
// wheel or pinch magnitude and (cx, cy) the anchor pixel.
type Gesturer interface {
	Zoom(n, cx, cy float64)
	Drag(dx, dy float64)
}

type statsSource interface {
	Stats() raster.Stats
}

// statsReporter publishes raster cache statistics after every frame.
type statsReporter struct {
	source statsSource
}

func (r statsReporter) Render(float64) {
	s := r.source.Stats()
	metrics.RasterStats.WithLabelValues("total").Set(float64(s.Total))
	metrics.RasterStats.WithLabelValues("loading").Set(float64(s.Loading))
	metrics.RasterStats.WithLabelValues("updating").Set(float64(s.Updating))
	metrics.RasterStats.WithLabelValues("used").Set(s.Used)
}
