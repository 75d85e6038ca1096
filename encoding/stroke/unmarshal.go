package stroke

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"

	"github.com/pkg/errors"
)

const (
	// a point is two float32
	pointSize = 8
	// a stroke carries at least its point count
	minStrokeSize = 4
)

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (rec *Recording) UnmarshalBinary(data []byte) error {
	r := newReader(data)
	if err := r.checkHeader(); err != nil {
		return err
	}
	rec.Version = r.version

	var err error
	if rec.Width, err = r.readNumber(); err != nil {
		return errors.Wrap(err, "width")
	}
	if rec.Height, err = r.readNumber(); err != nil {
		return errors.Wrap(err, "height")
	}
	if rec.BrushWidth, err = r.readFloat32(); err != nil {
		return errors.Wrap(err, "brush width")
	}

	nbStrokes, err := r.readNumber()
	if err != nil {
		return errors.Wrap(err, "stroke count")
	}
	if int64(nbStrokes)*minStrokeSize > int64(r.Len()) {
		return errors.Errorf("%d strokes announced, %d bytes left", nbStrokes, r.Len())
	}

	rec.Strokes = make([]Stroke, 0, nbStrokes)
	for i := uint32(0); i < nbStrokes; i++ {
		s, err := r.readStroke()
		if err != nil {
			return errors.Wrapf(err, "stroke %d", i)
		}
		rec.Strokes = append(rec.Strokes, s)
	}

	return nil
}

type reader struct {
	bytes.Reader
	version Version
}

func newReader(data []byte) *reader {
	return &reader{Reader: *bytes.NewReader(data), version: V1}
}

func (r *reader) checkHeader() error {
	buf := make([]byte, HeaderLen)

	n, err := r.Read(buf)
	if err != nil || n != HeaderLen {
		return errors.New("wrong header size")
	}

	switch {
	case string(buf) == HeaderV1:
		r.version = V1
	case strings.HasPrefix(string(buf), "digitpad strokes version=1"):
		// tolerate other padding
		r.version = V1
	default:
		return ErrUnknownHeader
	}

	return nil
}

func (r *reader) readNumber() (uint32, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, errors.Wrap(err, "wrong number read")
	}
	return n, nil
}

func (r *reader) readFloat32() (float32, error) {
	var f float32
	if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
		return 0, errors.Wrap(err, "wrong float read")
	}
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return 0, errors.New("invalid float")
	}
	return f, nil
}

func (r *reader) readStroke() (Stroke, error) {
	var s Stroke

	nbPoints, err := r.readNumber()
	if err != nil {
		return s, err
	}
	if int64(nbPoints)*pointSize > int64(r.Len()) {
		return s, errors.Errorf("%d points announced, %d bytes left", nbPoints, r.Len())
	}

	s.Points = make([]Point, nbPoints)
	for i := range s.Points {
		if s.Points[i].X, err = r.readFloat32(); err != nil {
			return s, errors.Wrap(err, "failed to read point")
		}
		if s.Points[i].Y, err = r.readFloat32(); err != nil {
			return s, errors.Wrap(err, "failed to read point")
		}
	}

	return s, nil
}
