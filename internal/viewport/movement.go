package viewport

import (
	"math"

	"github.com/go-spatial/geom"
	"github.com/jaennil/guide_helper/backend/viewer/internal/settings"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/location"
)

const convergence = 1e-5

// Move is the target of an animated transition.
type Move struct {
	// WorldX and WorldY are the target in normalized world coordinates.
	WorldX float64
	WorldY float64

	// ScreenX and ScreenY are the zoom anchor as a fraction of the canvas.
	ScreenX float64
	ScreenY float64

	Zoom float64
}

func (m Move) centered() bool {
	return m.ScreenX == 0.5 && m.ScreenY == 0.5
}

// Rect is the visible part of the world along with the transform from world
// to screen space: screen = world*Dim + (OX, OY).
type Rect struct {
	geom.Extent

	Dim float64
	OX  float64
	OY  float64
}

// At maps a screen fraction to a world point by interpolating across r.
func (r *Rect) At(screenX, screenY float64) (x, y float64) {
	x = r.MinX() + (r.MaxX()-r.MinX())*screenX
	y = r.MinY() + (r.MaxY()-r.MinY())*screenY
	return x, y
}

// Screen maps a world point to canvas pixels.
func (r *Rect) Screen(x, y float64) (px, py float64) {
	return x*r.Dim + r.OX, y*r.Dim + r.OY
}

func dimension(width, height int, z float64) float64 {
	return math.Round(float64(max(width, height)) * math.Pow(2, z))
}

func calcRect(width, height int, l location.Location) Rect {
	dim := dimension(width, height, l.Z)
	ox := float64(width)/2 - dim*l.X
	oy := float64(height)/2 - dim*l.Y

	return Rect{
		Extent: geom.Extent{
			-ox / dim,
			-oy / dim,
			(float64(width) - ox) / dim,
			(float64(height) - oy) / dim,
		},
		Dim: dim,
		OX:  ox,
		OY:  oy,
	}
}

// advance moves the location one frame toward the active move.
func (e *Engine) advance(delta float64) {
	m := e.move
	if m == nil {
		return
	}

	u1 := math.Min(delta*5, 1)
	u2 := math.Min(delta*3, 1)

	cur := e.location
	next := location.Location{
		X: (1-u1)*cur.X + u1*m.WorldX,
		Y: (1-u1)*cur.Y + u1*m.WorldY,
		Z: (1-u2)*cur.Z + u2*m.Zoom,
	}

	if next.Z != cur.Z && !m.centered() {
		src := calcRect(e.width, e.height, cur)
		dst := calcRect(e.width, e.height, next)
		srcX, srcY := src.At(m.ScreenX, m.ScreenY)
		dstX, dstY := dst.At(m.ScreenX, m.ScreenY)
		next.X += srcX - dstX
		next.Y += srcY - dstY
	}

	next.X = clamp01(next.X)
	next.Y = clamp01(next.Y)
	e.location = next

	dx, dy, dz := next.X-cur.X, next.Y-cur.Y, next.Z-cur.Z
	if dx*dx+dy*dy+dz*dz <= convergence {
		e.finalize()
	}
}

// finalize ends any move and persists the location.
func (e *Engine) finalize() {
	e.move = nil

	l := e.location
	for key, v := range map[settings.Key]float64{
		settings.LastKnownX: l.X,
		settings.LastKnownY: l.Y,
		settings.LastKnownZ: l.Z,
	} {
		if err := e.settings.Set(key, v); err != nil {
			e.logger.Warn("failed to persist location", "key", key, "error", err)
		}
	}
	e.logger.Debug("movement finalized", "x", l.X, "y", l.Y, "z", l.Z)
}
