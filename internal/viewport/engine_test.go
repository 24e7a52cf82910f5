package viewport

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/jaennil/guide_helper/backend/viewer/internal/raster"
	"github.com/jaennil/guide_helper/backend/viewer/internal/repository/store"
	"github.com/jaennil/guide_helper/backend/viewer/internal/settings"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/location"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/logger"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/mercator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBackgroundURL = "https://bg.test/{z}/{x}/{y}.png"
	testForegroundURL = "https://fg.test/{x}/{y}.png"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

// tileFetcher serves solid red background and solid blue foreground tiles.
// URLs starting with hold block until release is closed.
type tileFetcher struct {
	mu      sync.Mutex
	urls    []string
	hold    string
	release chan struct{}
}

func (f *tileFetcher) Fetch(ctx context.Context, url string, downscale int) (*raster.Bitmap, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	hold, release := f.hold, f.release
	f.mu.Unlock()

	if hold != "" && strings.HasPrefix(url, hold) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c := red
	if strings.HasPrefix(url, "https://fg.test/") {
		c = blue
	}
	img := image.NewRGBA(image.Rect(0, 0, 256, 256))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return raster.NewBitmap(img), nil
}

func (f *tileFetcher) fetched(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, u := range f.urls {
		if strings.HasPrefix(u, prefix) {
			n++
		}
	}
	return n
}

func newTestEngine(t *testing.T, width, height int, f *tileFetcher) (*Engine, *settings.Settings) {
	t.Helper()
	s := settings.New(store.NewMapStore(), logger.NewNoOp())
	cache := raster.NewCache(f, s, logger.NewNoOp())
	t.Cleanup(cache.Close)

	e, err := New(cache, s, logger.NewNoOp(), Config{
		Width:         width,
		Height:        height,
		BackgroundURL: testBackgroundURL,
		ForegroundURL: testForegroundURL,
	})
	require.NoError(t, err)
	return e, s
}

func settle(t *testing.T, e *Engine) {
	t.Helper()
	for i := 0; i < 10000 && e.Moving(); i++ {
		e.advance(1.0 / 60)
	}
	require.False(t, e.Moving(), "movement did not converge")
}

func TestCalcRect(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
		loc    location.Location
		want   geom.Extent
		dim    float64
	}{
		{
			name:   "whole world at zoom 0",
			width:  256,
			height: 256,
			loc:    location.Location{X: 0.5, Y: 0.5, Z: 0},
			want:   geom.Extent{0, 0, 1, 1},
			dim:    256,
		},
		{
			name:   "landscape canvas",
			width:  1024,
			height: 768,
			loc:    location.Location{X: 0.5, Y: 0.5, Z: 0},
			want:   geom.Extent{0, 0.125, 1, 0.875},
			dim:    1024,
		},
		{
			name:   "top left quadrant at zoom 1",
			width:  512,
			height: 512,
			loc:    location.Location{X: 0.25, Y: 0.25, Z: 1},
			want:   geom.Extent{0, 0, 0.5, 0.5},
			dim:    1024,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := calcRect(tt.width, tt.height, tt.loc)
			assert.InDeltaSlice(t, tt.want[:], r.Extent[:], 1e-12)
			assert.Equal(t, tt.dim, r.Dim)
		})
	}
}

func TestNew(t *testing.T) {
	s := settings.New(store.NewMapStore(), logger.NewNoOp())
	require.NoError(t, s.Set(settings.LastKnownX, 0.25))
	require.NoError(t, s.Set(settings.LastKnownY, 0.75))
	require.NoError(t, s.Set(settings.LastKnownZ, 3))
	cache := raster.NewCache(&tileFetcher{}, s, logger.NewNoOp())
	t.Cleanup(cache.Close)

	cfg := Config{Width: 640, Height: 480, BackgroundURL: testBackgroundURL, ForegroundURL: testForegroundURL}
	e, err := New(cache, s, logger.NewNoOp(), cfg)
	require.NoError(t, err)
	assert.Equal(t, location.Location{X: 0.25, Y: 0.75, Z: 3}, e.Location())
	assert.False(t, e.Moving())
	assert.Equal(t, image.Rect(0, 0, 640, 480), e.Canvas().Bounds())

	bad := cfg
	bad.Height = 0
	_, err = New(cache, s, logger.NewNoOp(), bad)
	assert.ErrorIs(t, err, ErrInvalidSize)

	bad = cfg
	bad.BackgroundURL = "https://bg.test/{x}/{y}.png"
	_, err = New(cache, s, logger.NewNoOp(), bad)
	assert.ErrorIs(t, err, ErrInvalidTemplate)

	bad = cfg
	bad.ForegroundURL = "https://fg.test/tile.png"
	_, err = New(cache, s, logger.NewNoOp(), bad)
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestEngine_ZoomKeepsAnchorFixed(t *testing.T) {
	e, s := newTestEngine(t, 800, 600, &tileFetcher{})
	e.SetLocation(location.Location{X: 0.5, Y: 0.5, Z: 3})

	before := e.Rect()
	anchorX, anchorY := before.At(200.0/800, 150.0/600)

	e.Zoom(0.2, 200, 150)
	require.True(t, e.Moving())
	settle(t, e)

	after := e.Rect()
	px, py := after.Screen(anchorX, anchorY)
	assert.InDelta(t, 200, px, 1)
	assert.InDelta(t, 150, py, 1)
	assert.InDelta(t, 5, e.Location().Z, 0.1)

	assert.Equal(t, e.Location().X, s.Get(settings.LastKnownX))
	assert.Equal(t, e.Location().Y, s.Get(settings.LastKnownY))
	assert.Equal(t, e.Location().Z, s.Get(settings.LastKnownZ))
}

func TestEngine_ZoomTargetIsClamped(t *testing.T) {
	e, _ := newTestEngine(t, 800, 600, &tileFetcher{})
	e.SetLocation(location.Location{X: 0.5, Y: 0.5, Z: 3})

	e.Zoom(-5, 400, 300)
	require.NotNil(t, e.move)
	assert.Equal(t, 0.0, e.move.Zoom)

	e.Zoom(5, 400, 300)
	require.NotNil(t, e.move)
	assert.Equal(t, float64(location.MaxZoom), e.move.Zoom)
	assert.Equal(t, 0.5, e.move.ScreenX)
	assert.Equal(t, 0.5, e.move.ScreenY)
}

func TestEngine_AdvanceDoesNotOvershoot(t *testing.T) {
	e, _ := newTestEngine(t, 800, 600, &tileFetcher{})
	e.SetLocation(location.Location{X: 0.25, Y: 0.25, Z: 0})

	e.Navigate(mercator.Of(0, 0), DefaultNavigateZoom)
	e.advance(1)
	assert.InDelta(t, 0.5, e.Location().X, 1e-12)
	assert.InDelta(t, 0.5, e.Location().Y, 1e-12)
	assert.Equal(t, 10.0, e.Location().Z)
	assert.True(t, e.Moving())

	e.advance(1)
	assert.False(t, e.Moving())
}

func TestEngine_NavigateConverges(t *testing.T) {
	e, s := newTestEngine(t, 800, 600, &tileFetcher{})
	paris := mercator.Of(48.8566, 2.3522)
	wantX, wantY := mercator.ToWorld(paris)

	e.Navigate(paris, SearchResultZoom)
	settle(t, e)

	l := e.Location()
	assert.InDelta(t, wantX, l.X, 0.01)
	assert.InDelta(t, wantY, l.Y, 0.01)
	assert.InDelta(t, SearchResultZoom, l.Z, 0.1)
	assert.Equal(t, l.Z, s.Get(settings.LastKnownZ))
}

func TestEngine_NewMoveReplacesActive(t *testing.T) {
	e, _ := newTestEngine(t, 800, 600, &tileFetcher{})
	e.Navigate(mercator.Of(10, 10), 5)
	e.Navigate(mercator.Of(-10, -10), 7)
	require.NotNil(t, e.move)
	assert.Equal(t, 7.0, e.move.Zoom)
}

func TestEngine_Drag(t *testing.T) {
	e, s := newTestEngine(t, 512, 512, &tileFetcher{})
	e.Navigate(mercator.Of(10, 10), 5)

	e.Drag(64, -128)
	assert.False(t, e.Moving())
	assert.Equal(t, location.Location{X: 0.375, Y: 0.75, Z: 0}, e.Location())
	assert.Equal(t, 0.375, s.Get(settings.LastKnownX))
	assert.Equal(t, 0.75, s.Get(settings.LastKnownY))

	e.Drag(-100000, 100000)
	assert.Equal(t, location.Location{X: 1, Y: 0, Z: 0}, e.Location())
}

func TestEngine_StepZoom(t *testing.T) {
	e, s := newTestEngine(t, 512, 512, &tileFetcher{})

	e.StepZoom(ZoomStep)
	assert.Equal(t, 0.5, e.Location().Z)
	assert.Equal(t, 0.5, s.Get(settings.LastKnownZ))

	e.StepZoom(-2 * ZoomStep)
	assert.Equal(t, 0.0, e.Location().Z)

	e.SetLocation(location.Location{X: 0.5, Y: 0.5, Z: 21.8})
	e.StepZoom(ZoomStep)
	assert.Equal(t, float64(location.MaxZoom), e.Location().Z)
}

func TestEngine_SetLocation(t *testing.T) {
	e, s := newTestEngine(t, 512, 512, &tileFetcher{})
	e.Navigate(mercator.Of(10, 10), 5)

	e.SetLocation(location.Location{X: 1.5, Y: -0.5, Z: 30})
	assert.False(t, e.Moving())
	assert.Equal(t, location.Location{X: 1, Y: 0, Z: location.MaxZoom}, e.Location())
	assert.Equal(t, float64(location.MaxZoom), s.Get(settings.LastKnownZ))

	// Location returns a copy.
	l := e.Location()
	l.X = 0.1
	assert.Equal(t, 1.0, e.Location().X)
}

func TestEngine_Coordinates(t *testing.T) {
	e, _ := newTestEngine(t, 512, 512, &tileFetcher{})
	e.SetLocation(location.Location{X: 0.5, Y: 0.5, Z: 4})

	c := e.Coordinates()
	assert.InDelta(t, 0, c.Latitude, 1e-9)
	assert.InDelta(t, 0, c.Longitude, 1e-9)
}

func TestEngine_Resize(t *testing.T) {
	e, _ := newTestEngine(t, 512, 512, &tileFetcher{})

	e.Resize(300, 200)
	w, h := e.Size()
	assert.Equal(t, 300, w)
	assert.Equal(t, 200, h)
	assert.Equal(t, image.Rect(0, 0, 300, 200), e.Canvas().Bounds())

	e.Resize(0, 200)
	w, h = e.Size()
	assert.Equal(t, 300, w)
	assert.Equal(t, 200, h)
}
