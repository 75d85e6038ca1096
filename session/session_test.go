package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juruen/digitpad/classify"
	"github.com/juruen/digitpad/normalize"
	"github.com/juruen/digitpad/raster"
)

func drawOne(s *Session) {
	s.PointerDown(raster.Point{X: 140, Y: 60})
	s.PointerMove(raster.Point{X: 140, Y: 120})
	s.PointerMove(raster.Point{X: 140, Y: 220})
	s.PointerUp()
}

func TestNewSessionIsEmpty(t *testing.T) {
	s := New(DefaultOptions(), nil)

	assert.Equal(t, Empty, s.State())
	assert.True(t, s.Grid().Blank())
	in := s.Input()
	assert.Len(t, in, 784)
	for _, v := range in {
		assert.Equal(t, float32(0), v)
	}
	_, ok := s.BoundingBox()
	assert.False(t, ok)
}

func TestDrawUpdatesGrid(t *testing.T) {
	s := New(DefaultOptions(), nil)
	drawOne(s)

	assert.Equal(t, HasInk, s.State())
	assert.Equal(t, "ink", s.State().String())
	assert.False(t, s.Grid().Blank())

	box, ok := s.BoundingBox()
	require.True(t, ok)
	assert.Equal(t, 130, box.MinX)
	assert.Equal(t, 149, box.MaxX)
	assert.Equal(t, 50, box.MinY)
	assert.Equal(t, 229, box.MaxY)

	// a vertical bar is tall and thin in the grid too
	g := s.Grid()
	assert.Less(t, g.At(14, 14), uint8(128))
	assert.Equal(t, raster.Background, g.At(5, 14))

	rec := s.Recording()
	require.Len(t, rec.Strokes, 1)
	assert.Len(t, rec.Strokes[0].Points, 3)
}

func TestMoveWithoutDownIsIgnored(t *testing.T) {
	s := New(DefaultOptions(), nil)
	s.PointerMove(raster.Point{X: 10, Y: 10})
	s.PointerMove(raster.Point{X: 100, Y: 100})

	assert.Equal(t, Empty, s.State())
	assert.Empty(t, s.Recording().Strokes)
}

func TestPointerOutsideCanvasIsClamped(t *testing.T) {
	s := New(DefaultOptions(), nil)
	require.NotPanics(t, func() {
		s.PointerDown(raster.Point{X: -50, Y: 1000})
		s.PointerMove(raster.Point{X: 5000, Y: -3})
		s.PointerUp()
	})

	assert.Equal(t, HasInk, s.State())
	pts := s.Recording().Strokes[0].Points
	assert.Equal(t, float32(0), pts[0].X)
	assert.Equal(t, float32(279.5), pts[0].Y)
	assert.Equal(t, float32(279.5), pts[1].X)
	assert.Equal(t, float32(0), pts[1].Y)
}

func TestRecordingIncludesStrokeInProgress(t *testing.T) {
	s := New(DefaultOptions(), nil)
	s.PointerDown(raster.Point{X: 10, Y: 10})
	s.PointerMove(raster.Point{X: 20, Y: 20})

	assert.Len(t, s.Recording().Strokes, 1)

	// a new down closes the open stroke
	s.PointerDown(raster.Point{X: 100, Y: 100})
	s.PointerUp()
	assert.Len(t, s.Recording().Strokes, 2)
}

func TestClear(t *testing.T) {
	s := New(DefaultOptions(), nil)
	drawOne(s)
	require.Equal(t, HasInk, s.State())

	s.Clear()
	assert.Equal(t, Empty, s.State())
	assert.True(t, s.Grid().Blank())
	assert.True(t, s.Canvas().Blank())
	assert.Empty(t, s.Recording().Strokes)
	for _, v := range s.Input() {
		assert.Equal(t, float32(0), v)
	}
}

func TestPredict(t *testing.T) {
	var got normalize.ModelInput
	c := classify.Func(func(ctx context.Context, in normalize.ModelInput) (int, error) {
		got = in
		return 4, nil
	})
	s := New(DefaultOptions(), c)

	p := s.Predict(context.Background())
	assert.False(t, p.Available)
	assert.Equal(t, normalize.ErrEmpty, p.Err)

	drawOne(s)
	p = s.Predict(context.Background())
	require.True(t, p.Available)
	assert.Equal(t, 4, p.Digit)
	assert.NoError(t, p.Err)
	assert.Equal(t, s.Input(), got)
}

func TestPredictWithoutClassifier(t *testing.T) {
	s := New(DefaultOptions(), nil)
	drawOne(s)

	p := s.Predict(context.Background())
	assert.False(t, p.Available)
	assert.Equal(t, -1, p.Digit)
	assert.True(t, classify.IsUnavailable(p.Err))
}

func TestPredictFailureKeepsSessionUsable(t *testing.T) {
	c := classify.Func(func(ctx context.Context, in normalize.ModelInput) (int, error) {
		return -1, errors.New("model not loaded")
	})
	s := New(DefaultOptions(), c)
	drawOne(s)

	p := s.Predict(context.Background())
	assert.False(t, p.Available)
	assert.True(t, classify.IsUnavailable(p.Err))

	s.PointerDown(raster.Point{X: 20, Y: 20})
	s.PointerUp()
	box, ok := s.BoundingBox()
	require.True(t, ok)
	assert.Equal(t, 10, box.MinX)
}

func TestReplayReproducesGrid(t *testing.T) {
	s := New(DefaultOptions(), nil)
	drawOne(s)
	s.PointerDown(raster.Point{X: 100, Y: 100})
	s.PointerMove(raster.Point{X: 180, Y: 100})
	s.PointerUp()

	other := New(DefaultOptions(), nil)
	other.Replay(s.Recording())

	assert.Equal(t, s.Grid().Pix(), other.Grid().Pix())
	assert.Len(t, other.Recording().Strokes, 2)
}

func TestReplayScalesToCanvas(t *testing.T) {
	s := New(DefaultOptions(), nil)
	drawOne(s)

	opts := DefaultOptions()
	opts.Width, opts.Height = 140, 140
	small := New(opts, nil)
	small.Replay(s.Recording())

	box, ok := small.BoundingBox()
	require.True(t, ok)
	assert.InDelta(t, 65, box.MinX, 1)
	assert.InDelta(t, 25, box.MinY, 1)
}

func TestLoadImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 28, 28))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for y := 5; y < 20; y++ {
		img.SetGray(14, y, color.Gray{})
	}

	s := New(DefaultOptions(), nil)
	drawOne(s)
	s.LoadImage(img)

	assert.Equal(t, HasInk, s.State())
	assert.Empty(t, s.Recording().Strokes)
	assert.Equal(t, 280, s.Canvas().Width())
}

func TestConcurrentUse(t *testing.T) {
	s := New(DefaultOptions(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := raster.Point{X: float64(20 + i*30), Y: 140}
			s.PointerDown(p)
			s.PointerMove(raster.Point{X: p.X, Y: 200})
			s.PointerUp()
			_ = s.Snapshot()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, HasInk, s.State())
}

func TestClassifyStandalone(t *testing.T) {
	n := normalize.New(normalize.DefaultOptions())

	snap, p := Classify(context.Background(), n, nil, raster.New(280, 280))
	assert.Equal(t, Empty, snap.State)
	assert.True(t, snap.Grid.Blank())
	assert.Equal(t, normalize.ErrEmpty, p.Err)

	c := raster.New(280, 280)
	c.DrawSegment(raster.Point{X: 50, Y: 50}, raster.Point{X: 200, Y: 200}, 20)
	fixed := classify.Func(func(context.Context, normalize.ModelInput) (int, error) { return 1, nil })
	snap, p = Classify(context.Background(), n, fixed, c)
	assert.Equal(t, HasInk, snap.State)
	assert.True(t, p.Available)
	assert.Equal(t, 1, p.Digit)
}
