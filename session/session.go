// Package session ties a drawing canvas to the normalizer and a classifier.
//
// A Session is driven by pointer events. Every event that changes the canvas
// recomputes the normalized grid and model input; only the latest result is
// kept.
package session

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"

	"github.com/juruen/digitpad/classify"
	"github.com/juruen/digitpad/config"
	"github.com/juruen/digitpad/encoding/stroke"
	"github.com/juruen/digitpad/log"
	"github.com/juruen/digitpad/normalize"
	"github.com/juruen/digitpad/raster"
)

type State int

const (
	Empty State = iota
	HasInk
)

func (s State) String() string {
	if s == HasInk {
		return "ink"
	}
	return "empty"
}

type Options struct {
	Width      int
	Height     int
	BrushWidth float64
	Normalize  normalize.Options
}

func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Width:      cfg.Canvas.Width,
		Height:     cfg.Canvas.Height,
		BrushWidth: cfg.Canvas.BrushWidth,
		Normalize:  cfg.NormalizeOptions(),
	}
}

// Prediction is the classifier's answer for the current grid. Available is
// false when no digit could be produced; Err says why.
type Prediction struct {
	Digit     int   `json:"digit"`
	Available bool  `json:"available"`
	Err       error `json:"-"`
}

// Snapshot is a consistent copy of the derived state.
type Snapshot struct {
	State  State
	Grid   normalize.Grid
	Input  normalize.ModelInput
	Box    normalize.BoundingBox
	HasBox bool
}

type Session struct {
	ID string

	mu         sync.Mutex
	opts       Options
	canvas     *raster.Canvas
	normalizer *normalize.Normalizer
	classifier classify.Classifier

	drawing   bool
	last      raster.Point
	current   []stroke.Point
	recording stroke.Recording

	state  State
	grid   normalize.Grid
	input  normalize.ModelInput
	box    normalize.BoundingBox
	hasBox bool
}

// New creates a session with a blank canvas. c may be nil.
func New(opts Options, c classify.Classifier) *Session {
	s := &Session{
		opts:       opts,
		canvas:     raster.New(opts.Width, opts.Height),
		normalizer: normalize.New(opts.Normalize),
		classifier: c,
	}
	s.recording = s.emptyRecording()
	s.update()
	return s
}

func (s *Session) emptyRecording() stroke.Recording {
	return stroke.Recording{
		Version:    stroke.V1,
		Width:      uint32(s.canvas.Width()),
		Height:     uint32(s.canvas.Height()),
		BrushWidth: float32(s.opts.BrushWidth),
	}
}

// PointerDown starts a stroke and inks a dot under the pointer.
func (s *Session) PointerDown(p raster.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drawing {
		s.endStroke()
	}
	p = s.canvas.Clamp(p)
	s.drawing = true
	s.last = p
	s.current = []stroke.Point{{X: float32(p.X), Y: float32(p.Y)}}
	s.canvas.DrawDot(p, s.opts.BrushWidth)
	s.update()
}

// PointerMove extends the current stroke. Moves without a preceding
// PointerDown are ignored.
func (s *Session) PointerMove(p raster.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.drawing {
		return
	}
	p = s.canvas.Clamp(p)
	s.canvas.DrawSegment(s.last, p, s.opts.BrushWidth)
	s.last = p
	s.current = append(s.current, stroke.Point{X: float32(p.X), Y: float32(p.Y)})
	s.update()
}

func (s *Session) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drawing {
		s.endStroke()
	}
}

func (s *Session) endStroke() {
	s.drawing = false
	if len(s.current) > 0 {
		s.recording.Strokes = append(s.recording.Strokes, stroke.Stroke{Points: s.current})
	}
	s.current = nil
}

// Clear wipes the canvas, the recording and the derived grid.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.canvas.Clear()
	s.drawing = false
	s.current = nil
	s.recording = s.emptyRecording()
	s.update()
}

// Replay clears the session and redraws rec, scaling it to this canvas.
func (s *Session) Replay(rec stroke.Recording) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.canvas.Clear()
	s.drawing = false
	s.current = nil
	s.recording = s.emptyRecording()

	sx, sy := 1.0, 1.0
	if rec.Width > 0 && rec.Height > 0 {
		sx = float64(s.canvas.Width()) / float64(rec.Width)
		sy = float64(s.canvas.Height()) / float64(rec.Height)
	}
	width := s.opts.BrushWidth
	if rec.BrushWidth > 0 {
		width = float64(rec.BrushWidth) * (sx + sy) / 2
	}

	for _, st := range rec.Strokes {
		if len(st.Points) == 0 {
			continue
		}
		points := make([]stroke.Point, 0, len(st.Points))
		var prev raster.Point
		for i, sp := range st.Points {
			p := s.canvas.Clamp(raster.Point{X: float64(sp.X) * sx, Y: float64(sp.Y) * sy})
			if i == 0 {
				s.canvas.DrawDot(p, width)
			} else {
				s.canvas.DrawSegment(prev, p, width)
			}
			prev = p
			points = append(points, stroke.Point{X: float32(p.X), Y: float32(p.Y)})
		}
		s.recording.Strokes = append(s.recording.Strokes, stroke.Stroke{Points: points})
	}

	log.Trace.Printf("session %s: replayed %d strokes", s.ID, len(s.recording.Strokes))
	s.update()
}

// LoadImage replaces the canvas with img scaled to the canvas size.
func (s *Session) LoadImage(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.canvas = raster.FromImage(img, s.canvas.Width(), s.canvas.Height())
	s.drawing = false
	s.current = nil
	s.recording = s.emptyRecording()
	s.update()
}

// update recomputes the grid and model input from the canvas.
func (s *Session) update() {
	s.box, s.hasBox = s.normalizer.ComputeBoundingBox(s.canvas)
	if s.hasBox {
		s.grid = s.normalizer.Normalize(s.canvas, s.box)
		s.state = HasInk
	} else {
		s.grid = normalize.NewGrid(s.normalizer.Options().GridSize)
		s.state = Empty
	}
	s.input = normalize.ToModelInput(s.grid)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Grid() normalize.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid
}

func (s *Session) Input() normalize.ModelInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(normalize.ModelInput(nil), s.input...)
}

func (s *Session) BoundingBox() (normalize.BoundingBox, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.box, s.hasBox
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:  s.state,
		Grid:   s.grid,
		Input:  append(normalize.ModelInput(nil), s.input...),
		Box:    s.box,
		HasBox: s.hasBox,
	}
}

// Canvas returns a copy of the canvas.
func (s *Session) Canvas() *raster.Canvas {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.Clone()
}

// Recording returns the strokes drawn so far, including one in progress.
func (s *Session) Recording() stroke.Recording {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.recording
	rec.Strokes = append([]stroke.Stroke(nil), s.recording.Strokes...)
	if len(s.current) > 0 {
		rec.Strokes = append(rec.Strokes, stroke.Stroke{Points: append([]stroke.Point(nil), s.current...)})
	}
	return rec
}

func (s *Session) Classifier() classify.Classifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.classifier
}

func (s *Session) SetClassifier(c classify.Classifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifier = c
}

// Predict classifies the current model input. The canvas stays usable
// whatever the classifier does.
func (s *Session) Predict(ctx context.Context) Prediction {
	snap := s.Snapshot()
	c := s.Classifier()

	return predict(ctx, c, snap)
}

func predict(ctx context.Context, c classify.Classifier, snap Snapshot) Prediction {
	if snap.State == Empty {
		return Prediction{Digit: -1, Err: normalize.ErrEmpty}
	}
	if c == nil {
		return Prediction{Digit: -1, Err: errors.Wrap(classify.ErrUnavailable, "no classifier configured")}
	}

	digit, err := c.Classify(ctx, snap.Input)
	if err != nil {
		log.Warning.Printf("classification failed: %v", err)
		if !classify.IsUnavailable(err) {
			err = errors.Wrap(classify.ErrUnavailable, err.Error())
		}
		return Prediction{Digit: -1, Err: err}
	}
	return Prediction{Digit: digit, Available: true}
}

// Classify runs the pipeline on a standalone canvas, for one-shot callers
// like the HTTP normalize endpoint.
func Classify(ctx context.Context, n *normalize.Normalizer, c classify.Classifier, canvas *raster.Canvas) (Snapshot, Prediction) {
	var snap Snapshot
	snap.Box, snap.HasBox = n.ComputeBoundingBox(canvas)
	if snap.HasBox {
		snap.Grid = n.Normalize(canvas, snap.Box)
		snap.State = HasInk
	} else {
		snap.Grid = normalize.NewGrid(n.Options().GridSize)
	}
	snap.Input = normalize.ToModelInput(snap.Grid)
	return snap, predict(ctx, c, snap)
}
