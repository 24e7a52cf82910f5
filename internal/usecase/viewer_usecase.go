package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/url"
	"strings"
	"time"

	"github.com/jaennil/guide_helper/backend/viewer/internal/raster"
	"github.com/jaennil/guide_helper/backend/viewer/internal/search"
	"github.com/jaennil/guide_helper/backend/viewer/internal/settings"
	"github.com/jaennil/guide_helper/backend/viewer/internal/viewport"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/location"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/logger"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/mercator"
)

var ErrStopped = errors.New("viewer is stopped")

var (
	_ Gesturer = (*viewport.Engine)(nil)
	_ Resizer  = (*viewport.Engine)(nil)
)

type Options struct {
	FPS int
	// At is a location token to start from instead of the last known
	// location. Malformed tokens are ignored.
	At            string
	PublicBaseURL string
}

// View describes the current viewport position.
type View struct {
	Location    location.Location    `json:"location"`
	Coordinates mercator.Coordinates `json:"coordinates"`
	Formatted   string               `json:"formatted"`
	Token       string               `json:"token"`
	Moving      bool                 `json:"moving"`
}

type Share struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// ViewerUseCase hosts the viewport engine. Engine and cache state is only
// touched by the goroutine running Run; every other method posts a command
// to it and waits for the result.
type ViewerUseCase struct {
	engine   *viewport.Engine
	cache    *raster.Cache
	searcher *search.Searcher
	settings settings.Provider
	logger   logger.Logger

	components    []Component
	interval      time.Duration
	publicBaseURL string

	commands chan func()
	stopped  chan struct{}
}

func NewViewerUseCase(
	engine *viewport.Engine,
	cache *raster.Cache,
	searcher *search.Searcher,
	p settings.Provider,
	l logger.Logger,
	opts Options,
) *ViewerUseCase {
	fps := opts.FPS
	if fps <= 0 {
		fps = 30
	}

	uc := &ViewerUseCase{
		engine:        engine,
		cache:         cache,
		searcher:      searcher,
		settings:      p,
		logger:        l,
		components:    []Component{engine, statsReporter{source: cache}},
		interval:      time.Second / time.Duration(fps),
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		commands:      make(chan func()),
		stopped:       make(chan struct{}),
	}

	if opts.At != "" {
		loc, err := location.Decode(opts.At)
		if err != nil {
			l.Warn("ignoring malformed start location", "at", opts.At, "error", err)
		} else {
			engine.SetLocation(loc)
			l.Info("starting at shared location", "x", loc.X, "y", loc.Y, "z", loc.Z)
		}
	}

	return uc
}

// Run drives the frame loop until ctx is done. The raster cache is closed
// on return.
func (uc *ViewerUseCase) Run(ctx context.Context) error {
	defer close(uc.stopped)
	defer uc.cache.Close()

	ticker := time.NewTicker(uc.interval)
	defer ticker.Stop()

	uc.logger.Info("viewer started", "interval", uc.interval)

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			uc.logger.Info("viewer stopped")
			return nil
		case cmd := <-uc.commands:
			cmd()
		case now := <-ticker.C:
			delta := now.Sub(last).Seconds()
			last = now
			for _, c := range uc.components {
				c.Render(delta)
			}
		}
	}
}

// Stopped is closed once Run has returned.
func (uc *ViewerUseCase) Stopped() <-chan struct{} {
	return uc.stopped
}

// do runs fn on the control goroutine and waits for it to finish.
func (uc *ViewerUseCase) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	cmd := func() {
		defer close(done)
		fn()
	}

	select {
	case uc.commands <- cmd:
	case <-uc.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (uc *ViewerUseCase) Zoom(ctx context.Context, n, cx, cy float64) error {
	return uc.do(ctx, func() {
		for _, c := range uc.components {
			if g, ok := c.(Gesturer); ok {
				g.Zoom(n, cx, cy)
			}
		}
	})
}

func (uc *ViewerUseCase) Drag(ctx context.Context, dx, dy float64) error {
	return uc.do(ctx, func() {
		for _, c := range uc.components {
			if g, ok := c.(Gesturer); ok {
				g.Drag(dx, dy)
			}
		}
	})
}

func (uc *ViewerUseCase) Resize(ctx context.Context, width, height int) error {
	return uc.do(ctx, func() {
		for _, c := range uc.components {
			if r, ok := c.(Resizer); ok {
				r.Resize(width, height)
			}
		}
	})
}

func (uc *ViewerUseCase) StepZoom(ctx context.Context, delta float64) error {
	return uc.do(ctx, func() {
		uc.engine.StepZoom(delta)
	})
}

func (uc *ViewerUseCase) Navigate(ctx context.Context, c mercator.Coordinates, zoom float64) error {
	return uc.do(ctx, func() {
		uc.engine.Navigate(c, zoom)
	})
}

// SetLocation jumps to the location encoded in token.
func (uc *ViewerUseCase) SetLocation(ctx context.Context, token string) (View, error) {
	loc, err := location.Decode(token)
	if err != nil {
		return View{}, fmt.Errorf("failed to decode location: %w", err)
	}

	var v View
	err = uc.do(ctx, func() {
		uc.engine.SetLocation(loc)
		v = uc.view()
	})
	return v, err
}

func (uc *ViewerUseCase) Location(ctx context.Context) (View, error) {
	var v View
	err := uc.do(ctx, func() {
		v = uc.view()
	})
	return v, err
}

func (uc *ViewerUseCase) view() View {
	loc := uc.engine.Location()
	coords := uc.engine.Coordinates()
	return View{
		Location:    loc,
		Coordinates: coords,
		Formatted:   mercator.Format(coords),
		Token:       location.Encode(loc),
		Moving:      uc.engine.Moving(),
	}
}

// Share returns a link that reopens the viewer at the current location.
func (uc *ViewerUseCase) Share(ctx context.Context) (Share, error) {
	v, err := uc.Location(ctx)
	if err != nil {
		return Share{}, err
	}
	q := url.Values{}
	q.Set("at", v.Token)
	return Share{
		Token: v.Token,
		URL:   uc.publicBaseURL + "/?" + q.Encode(),
	}, nil
}

func (uc *ViewerUseCase) Stats(ctx context.Context) (raster.Stats, error) {
	var s raster.Stats
	err := uc.do(ctx, func() {
		s = uc.cache.Stats()
	})
	return s, err
}

// Frame returns the most recently rendered frame as PNG.
func (uc *ViewerUseCase) Frame(ctx context.Context) ([]byte, error) {
	var frame *image.RGBA
	err := uc.do(ctx, func() {
		canvas := uc.engine.Canvas()
		frame = image.NewRGBA(canvas.Bounds())
		copy(frame.Pix, canvas.Pix)
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// Painted is closed after the first complete background paint.
func (uc *ViewerUseCase) Painted() <-chan struct{} {
	return uc.engine.WhenPainted()
}

func (uc *ViewerUseCase) Search(ctx context.Context, query string) ([]search.Result, error) {
	return uc.searcher.Search(ctx, query)
}

func (uc *ViewerUseCase) Settings() map[settings.Key]float64 {
	values := make(map[settings.Key]float64)
	for _, k := range settings.Keys() {
		values[k] = uc.settings.Get(k)
	}
	return values
}

func (uc *ViewerUseCase) Setting(key string) (settings.Key, float64, error) {
	k, err := settings.ParseKey(key)
	if err != nil {
		return "", 0, err
	}
	return k, uc.settings.Get(k), nil
}

func (uc *ViewerUseCase) SetSetting(key string, value float64) error {
	k, err := settings.ParseKey(key)
	if err != nil {
		return err
	}
	if err := uc.settings.Set(k, value); err != nil {
		return err
	}
	uc.logger.Info("setting changed", "key", k, "value", value)
	return nil
}

func (uc *ViewerUseCase) ClearSetting(key string) error {
	k, err := settings.ParseKey(key)
	if err != nil {
		return err
	}
	if err := uc.settings.Clear(k); err != nil {
		return err
	}
	uc.logger.Info("setting cleared", "key", k)
	return nil
}
