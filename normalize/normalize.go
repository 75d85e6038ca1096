// Package normalize turns a freehand stroke canvas into the centered 28×28
// grid that MNIST-trained classifiers expect.
//
// The pipeline is: find the bounding box of the ink, crop it, rescale it
// uniformly so its longer side fills the inner part of a working frame
// (leaving Margin on every side), paste it centered onto a background frame
// and finally resize that frame down to GridSize×GridSize.
package normalize

import (
	"errors"
	"image"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"

	"github.com/juruen/digitpad/log"
	"github.com/juruen/digitpad/raster"
)

const (
	// GridSize is the side of an MNIST digit.
	GridSize = 28

	// DefaultMargin is the fraction of the frame left blank on each side.
	// Content is scaled into the inner 80%.
	DefaultMargin = 0.1

	// DefaultSupersample is the working frame resolution relative to the
	// grid. 10 gives a 280×280 frame, the size of the drawing canvas.
	DefaultSupersample = 10

	// DefaultInkThreshold marks any pixel darker than pure white as ink.
	DefaultInkThreshold = 255
)

var ErrEmpty = errors.New("canvas has no ink")

type Options struct {
	GridSize     int
	Margin       float64
	Supersample  int
	InkThreshold uint8
}

func DefaultOptions() Options {
	return Options{
		GridSize:     GridSize,
		Margin:       DefaultMargin,
		Supersample:  DefaultSupersample,
		InkThreshold: DefaultInkThreshold,
	}
}

// sanitize replaces unusable values with defaults. A zero margin is valid.
func (o Options) sanitize() Options {
	if o.GridSize < 1 {
		o.GridSize = GridSize
	}
	if o.Supersample < 1 {
		o.Supersample = DefaultSupersample
	}
	if o.Margin < 0 || o.Margin >= 0.5 || math.IsNaN(o.Margin) {
		o.Margin = DefaultMargin
	}
	if o.InkThreshold == 0 {
		o.InkThreshold = DefaultInkThreshold
	}
	return o
}

func (o Options) frame() int {
	return o.GridSize * o.Supersample
}

// BoundingBox is an inclusive pixel rectangle.
type BoundingBox struct {
	MinX int `json:"minX"`
	MinY int `json:"minY"`
	MaxX int `json:"maxX"`
	MaxY int `json:"maxY"`
}

func (b BoundingBox) Width() int {
	return b.MaxX - b.MinX + 1
}

func (b BoundingBox) Height() int {
	return b.MaxY - b.MinY + 1
}

// Rect converts the inclusive box to a half-open image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.MinX, b.MinY, b.MaxX+1, b.MaxY+1)
}

type Normalizer struct {
	opts Options
}

func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts.sanitize()}
}

func (n *Normalizer) Options() Options {
	return n.opts
}

// ComputeBoundingBox returns the tightest box around all ink pixels. ok is
// false when the canvas has no ink.
func (n *Normalizer) ComputeBoundingBox(c *raster.Canvas) (box BoundingBox, ok bool) {
	img := c.Image()
	w, h := c.Width(), c.Height()
	box = BoundingBox{MinX: w, MinY: h, MaxX: -1, MaxY: -1}

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x, v := range row {
			if v >= n.opts.InkThreshold {
				continue
			}
			if x < box.MinX {
				box.MinX = x
			}
			if x > box.MaxX {
				box.MaxX = x
			}
			if y < box.MinY {
				box.MinY = y
			}
			if y > box.MaxY {
				box.MaxY = y
			}
		}
	}

	if box.MaxX < 0 {
		return BoundingBox{}, false
	}
	return box, true
}

// Normalize crops box out of the canvas, rescales and centers it, and
// returns the resulting grid. box is clamped to the canvas; a box that does
// not overlap the canvas yields a blank grid.
func (n *Normalizer) Normalize(c *raster.Canvas, box BoundingBox) Grid {
	rect := box.Rect().Intersect(c.Bounds())
	if rect.Empty() {
		log.Trace.Printf("normalize: box %+v outside canvas %v", box, c.Bounds())
		return NewGrid(n.opts.GridSize)
	}

	w, h := rect.Dx(), rect.Dy()
	frame := n.opts.frame()
	inner := float64(frame) * (1 - 2*n.opts.Margin)

	longest := w
	if h > longest {
		longest = h
	}
	scale := inner / float64(longest)

	sw := scaledDim(w, scale)
	sh := scaledDim(h, scale)

	crop := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(crop, crop.Bounds(), c.Image(), rect.Min, draw.Src)

	scaled := resize.Resize(uint(sw), uint(sh), crop, resize.Bilinear)

	framed := image.NewGray(image.Rect(0, 0, frame, frame))
	fill(framed, raster.Background)
	offX := (frame - sw) / 2
	offY := (frame - sh) / 2
	draw.Draw(framed, image.Rect(offX, offY, offX+sw, offY+sh), scaled, scaled.Bounds().Min, draw.Src)

	log.Trace.Printf("normalize: box %dx%d scale %.3f -> %dx%d at (%d,%d) in %d frame", w, h, scale, sw, sh, offX, offY, frame)

	if frame == n.opts.GridSize {
		return gridFromGray(framed)
	}

	out := image.NewGray(image.Rect(0, 0, n.opts.GridSize, n.opts.GridSize))
	fill(out, raster.Background)
	draw.BiLinear.Scale(out, out.Bounds(), framed, framed.Bounds(), draw.Src, nil)
	return gridFromGray(out)
}

// Process runs the whole pipeline, producing a blank grid for a blank canvas.
func (n *Normalizer) Process(c *raster.Canvas) Grid {
	box, ok := n.ComputeBoundingBox(c)
	if !ok {
		return NewGrid(n.opts.GridSize)
	}
	return n.Normalize(c, box)
}

func scaledDim(d int, scale float64) int {
	s := int(math.Round(float64(d) * scale))
	if s < 1 {
		s = 1
	}
	return s
}

func fill(img *image.Gray, v uint8) {
	for i := range img.Pix {
		img.Pix[i] = v
	}
}
