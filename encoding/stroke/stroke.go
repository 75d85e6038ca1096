// Package stroke reads and writes recordings of the strokes drawn on a
// canvas, so a drawing can be saved and replayed.
//
// The format is little endian:
//
//	header        32 bytes, HeaderV1 padded with spaces
//	width         uint32
//	height        uint32
//	brush width   float32
//	stroke count  uint32
//	per stroke:   uint32 point count, then float32 x, float32 y per point
package stroke

import "errors"

type Version int

const (
	V1 Version = 1
)

const (
	HeaderV1  = "digitpad strokes version=1      "
	HeaderLen = 32
)

var ErrUnknownHeader = errors.New("unknown header")

type Point struct {
	X float32
	Y float32
}

// Stroke is one pointer-down to pointer-up sequence.
type Stroke struct {
	Points []Point
}

type Recording struct {
	Version    Version
	Width      uint32
	Height     uint32
	BrushWidth float32
	Strokes    []Stroke
}

// NumPoints counts the points over all strokes.
func (r *Recording) NumPoints() int {
	n := 0
	for _, s := range r.Strokes {
		n += len(s.Points)
	}
	return n
}
