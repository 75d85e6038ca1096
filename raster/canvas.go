// Package raster holds the grayscale stroke canvas the user draws on.
//
// Pixels are 8-bit intensities: Ink (0) is black, Background (255) is white.
// Brush strokes only ever darken pixels, so overlapping segments never lighten
// ink that is already on the canvas.
package raster

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

const (
	Ink        uint8 = 0
	Background uint8 = 255
)

// Point is a position in canvas pixel space. Pixel (x, y) covers the
// square [x, x+1) × [y, y+1).
type Point struct {
	X, Y float64
}

// Canvas is an owned raster buffer. It is not safe for concurrent use.
type Canvas struct {
	img *image.Gray
}

// New returns a width×height canvas filled with Background.
func New(width, height int) *Canvas {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	c := &Canvas{img: image.NewGray(image.Rect(0, 0, width, height))}
	c.Clear()
	return c
}

// FromImage rasterizes any decoded image into a width×height canvas.
// Transparent areas become Background.
func FromImage(src image.Image, width, height int) *Canvas {
	c := New(width, height)
	draw.BiLinear.Scale(c.img, c.img.Bounds(), src, src.Bounds(), draw.Over, nil)
	return c
}

func (c *Canvas) Width() int {
	return c.img.Rect.Dx()
}

func (c *Canvas) Height() int {
	return c.img.Rect.Dy()
}

func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Rect
}

func (c *Canvas) At(x, y int) uint8 {
	return c.img.GrayAt(x, y).Y
}

func (c *Canvas) Set(x, y int, v uint8) {
	c.img.SetGray(x, y, color.Gray{Y: v})
}

// Image exposes the backing buffer. Callers must treat it as read-only.
func (c *Canvas) Image() *image.Gray {
	return c.img
}

// Clear resets every pixel to Background.
func (c *Canvas) Clear() {
	for i := range c.img.Pix {
		c.img.Pix[i] = Background
	}
}

func (c *Canvas) Clone() *Canvas {
	img := image.NewGray(c.img.Rect)
	copy(img.Pix, c.img.Pix)
	return &Canvas{img: img}
}

// Blank reports whether the canvas holds no ink at all.
func (c *Canvas) Blank() bool {
	for _, v := range c.img.Pix {
		if v != Background {
			return false
		}
	}
	return true
}

// Clamp moves p inside the canvas.
func (c *Canvas) Clamp(p Point) Point {
	maxX := float64(c.Width()) - 0.5
	maxY := float64(c.Height()) - 0.5
	return Point{
		X: math.Max(0, math.Min(maxX, p.X)),
		Y: math.Max(0, math.Min(maxY, p.Y)),
	}
}

// DrawDot stamps a round brush of the given width centered at p.
func (c *Canvas) DrawDot(p Point, width float64) {
	c.DrawSegment(p, p, width)
}

// DrawSegment draws a round-capped line of the given width from a to b.
// Edge pixels get partial coverage. Anything outside the canvas is clipped.
func (c *Canvas) DrawSegment(a, b Point, width float64) {
	r := width / 2
	if r < 0.5 {
		r = 0.5
	}

	area := image.Rect(
		int(math.Floor(math.Min(a.X, b.X)-r-1)),
		int(math.Floor(math.Min(a.Y, b.Y)-r-1)),
		int(math.Ceil(math.Max(a.X, b.X)+r+1)),
		int(math.Ceil(math.Max(a.Y, b.Y)+r+1)),
	).Intersect(c.img.Rect)

	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			d := distToSegment(float64(x)+0.5, float64(y)+0.5, a, b)
			coverage := r + 0.5 - d
			if coverage <= 0 {
				continue
			}
			if coverage > 1 {
				coverage = 1
			}
			v := uint8(math.Round(float64(Background) * (1 - coverage)))
			i := c.img.PixOffset(x, y)
			if v < c.img.Pix[i] {
				c.img.Pix[i] = v
			}
		}
	}
}

func distToSegment(px, py float64, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(px-a.X, py-a.Y)
	}
	t := ((px-a.X)*dx + (py-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(px-(a.X+t*dx), py-(a.Y+t*dy))
}
