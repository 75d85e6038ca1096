package stroke

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecording() Recording {
	points := make([]Point, 0)
	for i := 0; i < 200; i++ {
		points = append(points, Point{X: 100, Y: float32(i)})
	}

	return Recording{
		Width:      280,
		Height:     280,
		BrushWidth: 20,
		Strokes: []Stroke{
			{Points: points},
			{Points: []Point{{X: 10, Y: 10}, {X: 270, Y: 270}}},
			{},
		},
	}
}

func TestMarshalBinary(t *testing.T) {
	rec := testRecording()

	data, err := rec.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, HeaderV1, string(data[:HeaderLen]))
	assert.Len(t, data, HeaderLen+16+4*3+202*pointSize)

	fn := filepath.Join(t.TempDir(), "digit.strokes")
	require.NoError(t, os.WriteFile(fn, data, 0600))

	read, err := os.ReadFile(fn)
	require.NoError(t, err)

	var got Recording
	require.NoError(t, got.UnmarshalBinary(read))
	assert.Equal(t, V1, got.Version)
	assert.Equal(t, uint32(280), got.Width)
	assert.Equal(t, float32(20), got.BrushWidth)
	require.Len(t, got.Strokes, 3)
	assert.Equal(t, rec.Strokes[1].Points, got.Strokes[1].Points)
	assert.Equal(t, 202, got.NumPoints())
}

func TestUnmarshalUnknownHeader(t *testing.T) {
	data := []byte("reMarkable .lines file, version=5          ")
	var rec Recording
	err := rec.UnmarshalBinary(data)
	assert.Equal(t, ErrUnknownHeader, errors.Cause(err))
}

func TestUnmarshalShortHeader(t *testing.T) {
	var rec Recording
	assert.Error(t, rec.UnmarshalBinary([]byte("digitpad")))
}

func TestUnmarshalTruncated(t *testing.T) {
	rec := testRecording()
	data, err := rec.MarshalBinary()
	require.NoError(t, err)

	var got Recording
	err = got.UnmarshalBinary(data[:len(data)-5])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stroke")
}

func TestUnmarshalHugeStrokeCount(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(HeaderV1)
	binary.Write(&buf, binary.LittleEndian, uint32(280))
	binary.Write(&buf, binary.LittleEndian, uint32(280))
	binary.Write(&buf, binary.LittleEndian, float32(20))
	binary.Write(&buf, binary.LittleEndian, uint32(0x10000000))
	require.Equal(t, 48, buf.Len())

	var got Recording
	err := got.UnmarshalBinary(buf.Bytes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strokes announced")
}
