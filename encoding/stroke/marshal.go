package stroke

import (
	"bytes"
	"encoding/binary"
)

// MarshalBinary implements encoding.BinaryMarshaler.
func (rec *Recording) MarshalBinary() (data []byte, err error) {
	w := new(writer)

	w.writeHeader()
	w.writeNumber(rec.Width)
	w.writeNumber(rec.Height)
	w.writeFloat32(rec.BrushWidth)

	w.writeNumber(uint32(len(rec.Strokes)))
	for _, s := range rec.Strokes {
		w.writeStroke(s)
	}

	return w.Bytes(), nil
}

type writer struct {
	b bytes.Buffer
}

func (w *writer) Bytes() []byte {
	return w.b.Bytes()
}

func (w *writer) writeHeader() {
	w.b.WriteString(HeaderV1)
}

// bytes.Buffer writes never fail, so the binary.Write errors are dropped.
func (w *writer) writeNumber(n uint32) {
	binary.Write(&w.b, binary.LittleEndian, n)
}

func (w *writer) writeFloat32(f float32) {
	binary.Write(&w.b, binary.LittleEndian, f)
}

func (w *writer) writeStroke(s Stroke) {
	w.writeNumber(uint32(len(s.Points)))
	for _, p := range s.Points {
		w.writeFloat32(p.X)
		w.writeFloat32(p.Y)
	}
}
