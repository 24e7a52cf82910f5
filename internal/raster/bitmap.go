package raster

import (
	"image"
	"image/draw"
	"sync"
	"sync/atomic"

	xdraw "golang.org/x/image/draw"
)

// pixPool recycles pixel buffers of released bitmaps. Tiles mostly share a
// size, so a released buffer usually fits the next decode.
var pixPool sync.Pool

// Bitmap is an exclusively owned decoded image. It must be released exactly
// once, after which it can no longer be used.
type Bitmap struct {
	img      *image.RGBA
	released atomic.Bool
}

// NewBitmap takes ownership of img.
func NewBitmap(img *image.RGBA) *Bitmap {
	return &Bitmap{img: img}
}

// Image returns the decoded pixels. It panics if the bitmap was released.
func (b *Bitmap) Image() *image.RGBA {
	if b.released.Load() {
		panic("raster: use of released bitmap")
	}
	return b.img
}

func (b *Bitmap) Released() bool {
	return b.released.Load()
}

// Release returns the pixel buffer for reuse. Releasing twice panics.
func (b *Bitmap) Release() {
	if b.released.Swap(true) {
		panic("raster: bitmap released twice")
	}
	pix := b.img.Pix
	b.img = nil
	pixPool.Put(&pix)
}

func newRGBA(r image.Rectangle) *image.RGBA {
	n := 4 * r.Dx() * r.Dy()
	if p, ok := pixPool.Get().(*[]byte); ok && cap(*p) >= n {
		pix := (*p)[:n]
		clear(pix)
		return &image.RGBA{Pix: pix, Stride: 4 * r.Dx(), Rect: r}
	}
	return image.NewRGBA(r)
}

// Decode converts src into a bitmap, shrinking each dimension by
// 1 << downscale when downscale is positive.
func Decode(src image.Image, downscale int) *Bitmap {
	b := src.Bounds()
	if downscale <= 0 {
		dst := newRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return NewBitmap(dst)
	}

	w := max(b.Dx()>>downscale, 1)
	h := max(b.Dy()>>downscale, 1)
	dst := newRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return NewBitmap(dst)
}
