// Package viewport is the slippy map engine: it owns the current location,
// animates zoom and pan gestures toward their targets, and composites the
// background and foreground tile layers onto a canvas once per frame.
package viewport

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/jaennil/guide_helper/backend/viewer/internal/raster"
	"github.com/jaennil/guide_helper/backend/viewer/internal/settings"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/location"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/logger"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/mercator"
)

const (
	// DefaultNavigateZoom is used by Navigate callers that have no zoom of
	// their own.
	DefaultNavigateZoom = 10

	// SearchResultZoom is the zoom used when jumping to a search result.
	SearchResultZoom = 14

	// ZoomStep is the amount a single zoom button press changes z by.
	ZoomStep = 0.5
)

var (
	ErrInvalidSize     = errors.New("canvas size must be positive")
	ErrInvalidTemplate = errors.New("tile url template is missing a placeholder")
)

// RasterSource hands out cached tiles without blocking. Poll runs at the
// start of a frame and Collect at its end; images returned by Get in between
// stay valid for the rest of the frame.
type RasterSource interface {
	Poll()
	Get(url string, downscale int) (*raster.Raster, bool, error)
	Collect()
}

var _ RasterSource = (*raster.Cache)(nil)

type Config struct {
	Width  int
	Height int

	// BackgroundURL is a template with {z}, {x} and {y} placeholders.
	BackgroundURL string
	// ForegroundURL is a template with {x} and {y} placeholders addressing
	// the fixed foreground grid.
	ForegroundURL string
}

func (c Config) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidSize, c.Width, c.Height)
	}
	for _, p := range []string{"{z}", "{x}", "{y}"} {
		if !strings.Contains(c.BackgroundURL, p) {
			return fmt.Errorf("%w: background %q needs %s", ErrInvalidTemplate, c.BackgroundURL, p)
		}
	}
	for _, p := range []string{"{x}", "{y}"} {
		if !strings.Contains(c.ForegroundURL, p) {
			return fmt.Errorf("%w: foreground %q needs %s", ErrInvalidTemplate, c.ForegroundURL, p)
		}
	}
	return nil
}

// Engine is not safe for concurrent use. All methods must be called from the
// goroutine that renders frames.
type Engine struct {
	source   RasterSource
	settings settings.Provider
	logger   logger.Logger

	backgroundURL string
	foregroundURL string

	width    int
	height   int
	location location.Location
	move     *Move
	timer    float64

	canvas  *image.RGBA
	scratch *image.RGBA

	painted       chan struct{}
	paintedClosed bool
}

// New builds a ready to render engine starting at the last persisted
// location.
func New(src RasterSource, p settings.Provider, l logger.Logger, cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		source:        src,
		settings:      p,
		logger:        l,
		backgroundURL: cfg.BackgroundURL,
		foregroundURL: cfg.ForegroundURL,
		location: location.Location{
			X: p.Get(settings.LastKnownX),
			Y: p.Get(settings.LastKnownY),
			Z: p.Get(settings.LastKnownZ),
		},
		painted: make(chan struct{}),
	}
	e.location = clampLocation(e.location)
	e.resize(cfg.Width, cfg.Height)

	l.Info("viewport engine initialized",
		"width", cfg.Width,
		"height", cfg.Height,
		"x", e.location.X,
		"y", e.location.Y,
		"z", e.location.Z,
	)
	return e, nil
}

// Location returns a copy of the current location.
func (e *Engine) Location() location.Location {
	return e.location
}

// SetLocation jumps to l without animation, cancelling any active move.
func (e *Engine) SetLocation(l location.Location) {
	e.location = clampLocation(l)
	e.finalize()
}

// Coordinates returns the geographic position at the center of the view.
func (e *Engine) Coordinates() mercator.Coordinates {
	return mercator.FromWorld(e.location.X, e.location.Y)
}

// Moving reports whether an animated move is in flight.
func (e *Engine) Moving() bool {
	return e.move != nil
}

func (e *Engine) Size() (width, height int) {
	return e.width, e.height
}

// Rect returns the world rectangle currently visible.
func (e *Engine) Rect() Rect {
	return calcRect(e.width, e.height, e.location)
}

// Canvas returns the last rendered frame. It is overwritten by the next
// Render call.
func (e *Engine) Canvas() *image.RGBA {
	return e.canvas
}

// WhenPainted returns a channel closed after the first frame that fully
// painted a background level.
func (e *Engine) WhenPainted() <-chan struct{} {
	return e.painted
}

func (e *Engine) markPainted() {
	if e.paintedClosed {
		return
	}
	e.paintedClosed = true
	close(e.painted)
	e.logger.Debug("first background paint complete")
}

func (e *Engine) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		e.logger.Warn("ignoring invalid canvas size", "width", width, "height", height)
		return
	}
	e.resize(width, height)
}

func (e *Engine) resize(width, height int) {
	if width == e.width && height == e.height && e.canvas != nil {
		return
	}
	e.width = width
	e.height = height
	e.canvas = image.NewRGBA(image.Rect(0, 0, width, height))
	e.scratch = image.NewRGBA(image.Rect(0, 0, width, height))
}

// Zoom starts a move that changes z by 10*n while keeping the world point
// under the pixel (cx, cy) fixed on screen.
func (e *Engine) Zoom(n, cx, cy float64) {
	rect := calcRect(e.width, e.height, e.location)
	screenX := cx / float64(e.width)
	screenY := cy / float64(e.height)
	worldX, worldY := rect.At(screenX, screenY)

	e.move = &Move{
		WorldX:  worldX,
		WorldY:  worldY,
		ScreenX: screenX,
		ScreenY: screenY,
		Zoom:    math.Min(math.Max(e.location.Z+10*n, 0), location.MaxZoom),
	}
}

// Drag pans the view by a pixel delta immediately.
func (e *Engine) Drag(dx, dy float64) {
	dim := dimension(e.width, e.height, e.location.Z)
	e.location = location.Location{
		X: clamp01(e.location.X - dx/dim),
		Y: clamp01(e.location.Y - dy/dim),
		Z: e.location.Z,
	}
	e.finalize()
}

// Navigate animates the view to c at the given zoom, centered on screen.
func (e *Engine) Navigate(c mercator.Coordinates, zoom float64) {
	x, y := mercator.ToWorld(c)
	e.move = &Move{
		WorldX:  x,
		WorldY:  y,
		ScreenX: 0.5,
		ScreenY: 0.5,
		Zoom:    math.Min(math.Max(zoom, 0), location.MaxZoom),
	}
}

// StepZoom changes z by delta immediately.
func (e *Engine) StepZoom(delta float64) {
	l := e.location
	l.Z = math.Min(math.Max(l.Z+delta, 0), location.MaxZoom)
	e.location = l
	e.move = nil
	e.finalize()
}

func clamp01(n float64) float64 {
	return math.Max(math.Min(n, 1), 0)
}

func clampLocation(l location.Location) location.Location {
	return location.Location{
		X: clamp01(l.X),
		Y: clamp01(l.Y),
		Z: math.Min(math.Max(l.Z, 0), location.MaxZoom),
	}
}
