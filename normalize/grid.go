package normalize

import (
	"image"

	"github.com/juruen/digitpad/raster"
)

// Grid is the fixed-size, square grayscale image a classifier consumes.
// Values follow the canvas convention: 0 is ink, 255 is background.
type Grid struct {
	size int
	pix  []uint8
}

// NewGrid returns a size×size grid with every cell set to background.
func NewGrid(size int) Grid {
	if size < 1 {
		size = GridSize
	}
	g := Grid{size: size, pix: make([]uint8, size*size)}
	for i := range g.pix {
		g.pix[i] = raster.Background
	}
	return g
}

func gridFromGray(img *image.Gray) Grid {
	size := img.Rect.Dx()
	g := Grid{size: size, pix: make([]uint8, size*size)}
	for y := 0; y < size; y++ {
		row := img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):]
		copy(g.pix[y*size:(y+1)*size], row[:size])
	}
	return g
}

func (g Grid) Size() int {
	return g.size
}

func (g Grid) At(x, y int) uint8 {
	return g.pix[y*g.size+x]
}

// Pix returns a row-major copy of the cells.
func (g Grid) Pix() []uint8 {
	out := make([]uint8, len(g.pix))
	copy(out, g.pix)
	return out
}

// Rows returns a copy of the grid as a slice of rows.
func (g Grid) Rows() [][]uint8 {
	rows := make([][]uint8, g.size)
	for y := range rows {
		rows[y] = make([]uint8, g.size)
		copy(rows[y], g.pix[y*g.size:(y+1)*g.size])
	}
	return rows
}

// Blank reports whether no cell carries ink.
func (g Grid) Blank() bool {
	for _, v := range g.pix {
		if v != raster.Background {
			return false
		}
	}
	return true
}

func (g Grid) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.size, g.size))
	copy(img.Pix, g.pix)
	return img
}

// ModelInput is the flattened, intensity-inverted grid: ink is close to 1.0,
// background is 0.0.
type ModelInput []float32

// ToModelInput maps each cell v to 1 - v/255 in row-major order.
func ToModelInput(g Grid) ModelInput {
	in := make(ModelInput, len(g.pix))
	for i, v := range g.pix {
		in[i] = 1 - float32(v)/255
	}
	return in
}
