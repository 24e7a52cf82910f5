package viewport

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/jaennil/guide_helper/backend/viewer/internal/settings"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/metrics"
	"github.com/paulmach/orb/maptile"
	xdraw "golang.org/x/image/draw"
)

const (
	maxBackgroundZoom   = 20
	backgroundLookahead = 1.51

	// foregroundGrid is the fixed number of foreground tiles per world axis.
	foregroundGrid = 2048

	placeholderLUTSize = 43
)

// placeholderLUT holds per tile phase offsets for the loading animation. The
// fixed seed keeps the pattern identical across runs.
var placeholderLUT = func() [placeholderLUTSize]float64 {
	var lut [placeholderLUTSize]float64
	rng := rand.New(rand.NewPCG(0x5eed, 0x7117e5))
	for i := range lut {
		lut[i] = rng.Float64() * 2 * math.Pi
	}
	return lut
}()

// placeholderOpacity is the loading overlay alpha for the tile with the given
// linear index at time t seconds.
func placeholderOpacity(index int, t float64) float64 {
	phase := placeholderLUT[index%placeholderLUTSize]
	speed := 4.5 + placeholderLUT[(index*3)%placeholderLUTSize]
	return 0.25 + 0.125*math.Cos(speed*t+phase)
}

// tileRange returns the inclusive range of tile indices on a grid of
// gridSize tiles per axis that intersect r. ok is false when r lies entirely
// outside the grid.
func tileRange(r *Rect, gridSize int) (minX, minY, maxX, maxY int, ok bool) {
	n := float64(gridSize)
	minX = int(math.Floor(r.MinX() * n))
	minY = int(math.Floor(r.MinY() * n))
	maxX = int(math.Floor(r.MaxX() * n))
	maxY = int(math.Floor(r.MaxY() * n))

	if maxX < 0 || maxY < 0 || minX >= gridSize || minY >= gridSize {
		return 0, 0, 0, 0, false
	}
	minX = max(minX, 0)
	minY = max(minY, 0)
	maxX = min(maxX, gridSize-1)
	maxY = min(maxY, gridSize-1)
	return minX, minY, maxX, maxY, true
}

// tileBounds is the canvas pixel area covered by tile (x, y) of a grid with
// gridSize tiles per axis. Neighbouring tiles share edges exactly.
func tileBounds(r *Rect, x, y, gridSize int) image.Rectangle {
	step := r.Dim / float64(gridSize)
	return image.Rect(
		int(math.Floor(r.OX+step*float64(x))),
		int(math.Floor(r.OY+step*float64(y))),
		int(math.Floor(r.OX+step*float64(x+1))),
		int(math.Floor(r.OY+step*float64(y+1))),
	)
}

func expand(template string, pairs ...string) string {
	return strings.NewReplacer(pairs...).Replace(template)
}

func (e *Engine) backgroundURLFor(t maptile.Tile) string {
	return expand(e.backgroundURL,
		"{z}", strconv.Itoa(int(t.Z)),
		"{x}", strconv.Itoa(int(t.X)),
		"{y}", strconv.Itoa(int(t.Y)),
	)
}

func (e *Engine) foregroundURLFor(x, y int) string {
	return expand(e.foregroundURL,
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	)
}

// Render advances the animation by delta seconds and draws a new frame.
func (e *Engine) Render(delta float64) {
	start := time.Now()
	defer func() {
		metrics.FrameDuration.Observe(time.Since(start).Seconds())
	}()

	e.source.Poll()
	e.advance(delta)
	e.timer += delta

	draw.Draw(e.canvas, e.canvas.Bounds(), image.Transparent, image.Point{}, draw.Src)

	rect := calcRect(e.width, e.height, e.location)

	if opacity := settings.Int(e.settings, settings.BackgroundOpacity); opacity > 0 {
		e.renderBackground(&rect, opacity)
	}

	opacity := settings.Int(e.settings, settings.ForegroundOpacity)
	if opacity > 0 && e.location.Z >= settings.Float(e.settings, settings.ForegroundZ) {
		e.renderForeground(&rect, opacity)
	}

	e.source.Collect()
}

type blit struct {
	img image.Image
	dst image.Rectangle
}

// backgroundTiles returns the corner tiles of the background range at zoom.
// ok is false when r lies entirely outside the world.
func backgroundTiles(r *Rect, zoom int) (lo, hi maptile.Tile, ok bool) {
	minX, minY, maxX, maxY, ok := tileRange(r, 1<<zoom)
	if !ok {
		return maptile.Tile{}, maptile.Tile{}, false
	}
	z := maptile.Zoom(zoom)
	return maptile.New(uint32(minX), uint32(minY), z), maptile.New(uint32(maxX), uint32(maxY), z), true
}

// backgroundLevel gathers the ready tiles between the corners lo and hi.
// complete is true when nothing at this level is missing.
func (e *Engine) backgroundLevel(r *Rect, lo, hi maptile.Tile, downscale int) (blits []blit, complete bool, err error) {
	gridSize := 1 << lo.Z

	complete = true
	for y := lo.Y; y <= hi.Y; y++ {
		for x := lo.X; x <= hi.X; x++ {
			t := maptile.New(x, y, lo.Z)
			ras, ready, err := e.source.Get(e.backgroundURLFor(t), downscale)
			if err != nil {
				return nil, false, err
			}
			if !ready {
				complete = false
				continue
			}
			blits = append(blits, blit{img: ras.Bitmap(), dst: tileBounds(r, int(x), int(y), gridSize)})
		}
	}
	return blits, complete, nil
}

// renderBackground draws the finest zoom level that is fully loaded, with any
// ready tiles of finer levels on top of it. Coarser levels cover the parents
// of the corner tiles of the level above.
func (e *Engine) renderBackground(r *Rect, opacity int) {
	downscale := settings.Int(e.settings, settings.BackgroundDownscaling)
	target := min(int(math.Ceil(e.location.Z+backgroundLookahead)), maxBackgroundZoom)

	lo, hi, ok := backgroundTiles(r, target)
	if !ok {
		e.markPainted()
		return
	}

	var levels [][]blit
	painted := false
	for {
		blits, complete, err := e.backgroundLevel(r, lo, hi, downscale)
		if err != nil {
			e.logger.Error("failed to render background", "zoom", lo.Z, "error", err)
			return
		}
		levels = append(levels, blits)
		if complete {
			painted = true
			break
		}
		if lo.Z == 0 {
			break
		}
		lo, hi = lo.Parent(), hi.Parent()
	}

	dst := e.canvas
	if opacity < 255 {
		dst = e.scratch
		draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)
	}

	for i := len(levels) - 1; i >= 0; i-- {
		for _, b := range levels[i] {
			xdraw.ApproxBiLinear.Scale(dst, b.dst, b.img, b.img.Bounds(), draw.Over, nil)
		}
	}

	if opacity < 255 {
		mask := image.NewUniform(color.Alpha{A: uint8(opacity)})
		draw.DrawMask(e.canvas, e.canvas.Bounds(), dst, image.Point{}, mask, image.Point{}, draw.Over)
	}

	if painted {
		e.markPainted()
	}
}

// renderForeground draws the foreground grid at the current zoom, with a
// pulsing placeholder for every tile still loading.
func (e *Engine) renderForeground(r *Rect, opacity int) {
	minX, minY, maxX, maxY, ok := tileRange(r, foregroundGrid)
	if !ok {
		return
	}

	downscale := settings.Int(e.settings, settings.ForegroundDownscaling)
	alpha := float64(opacity) / 255

	var opts *xdraw.Options
	if opacity < 255 {
		opts = &xdraw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(opacity)})}
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			bounds := tileBounds(r, x, y, foregroundGrid)

			ras, ready, err := e.source.Get(e.foregroundURLFor(x, y), downscale)
			if err != nil {
				e.logger.Error("failed to render foreground", "error", err)
				return
			}
			if !ready {
				a := placeholderOpacity(y*foregroundGrid+x, e.timer) * alpha
				fill := image.NewUniform(color.NRGBA{A: uint8(math.Round(a * 255))})
				draw.Draw(e.canvas, bounds, fill, image.Point{}, draw.Over)
				continue
			}

			bmp := ras.Bitmap()
			xdraw.NearestNeighbor.Scale(e.canvas, bounds, bmp, bmp.Bounds(), draw.Over, opts)
		}
	}
}
