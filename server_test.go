package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juruen/digitpad/auth"
	"github.com/juruen/digitpad/classify"
	"github.com/juruen/digitpad/config"
	"github.com/juruen/digitpad/normalize"
	"github.com/juruen/digitpad/shell"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func always(digit int) classify.Classifier {
	return classify.Func(func(ctx context.Context, input normalize.ModelInput) (int, error) {
		return digit, nil
	})
}

func newTestServer(t *testing.T, cfg config.Config, c classify.Classifier) *httptest.Server {
	ts := httptest.NewServer(NewApiServer(cfg, c).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body []byte, out interface{}) int {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	return send(t, req, out)
}

func send(t *testing.T, req *http.Request, out interface{}) int {
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var env envelope
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		if len(env.Data) > 0 {
			require.NoError(t, json.Unmarshal(env.Data, out))
		}
	}
	return resp.StatusCode
}

func pointer(t *testing.T, base, id, typ string, x, y float64) shell.GridJSON {
	body, err := json.Marshal(pointerRequest{Type: typ, X: x, Y: y})
	require.NoError(t, err)

	var g shell.GridJSON
	status := do(t, http.MethodPost, base+"/api/sessions/"+id+"/pointer", body, &g)
	require.Equal(t, http.StatusOK, status)
	return g
}

func createSession(t *testing.T, base string) string {
	var created struct {
		ID     string `json:"id"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	}
	status := do(t, http.MethodPost, base+"/api/sessions", nil, &created)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, 280, created.Width)
	assert.Equal(t, 280, created.Height)
	return created.ID
}

func digitPNG(t *testing.T, ink bool) []byte {
	img := image.NewGray(image.Rect(0, 0, 280, 280))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	if ink {
		for y := 60; y < 220; y++ {
			for x := 120; x < 160; x++ {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, config.Default(), nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVersion(t *testing.T) {
	ts := newTestServer(t, config.Default(), nil)

	var v map[string]string
	status := do(t, http.MethodGet, ts.URL+"/api/version", nil, &v)
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, v["version"])
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t, config.Default(), always(7))
	id := createSession(t, ts.URL)

	g := pointer(t, ts.URL, id, "down", 140, 60)
	assert.Equal(t, "ink", g.State)
	pointer(t, ts.URL, id, "move", 140, 220)
	g = pointer(t, ts.URL, id, "up", 0, 0)
	assert.Equal(t, "ink", g.State)
	require.NotNil(t, g.Box)
	assert.Equal(t, 130, g.Box.MinX)
	assert.Equal(t, 50, g.Box.MinY)
	assert.Len(t, g.Grid, normalize.GridSize)
	assert.Empty(t, g.Input)

	var full shell.GridJSON
	status := do(t, http.MethodGet, ts.URL+"/api/sessions/"+id+"/grid", nil, &full)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, full.Grid, normalize.GridSize)
	assert.Len(t, full.Input, normalize.GridSize*normalize.GridSize)

	var p shell.PredictionJSON
	status = do(t, http.MethodGet, ts.URL+"/api/sessions/"+id+"/predict", nil, &p)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, p.Available)
	assert.Equal(t, 7, p.Digit)

	var cleared shell.GridJSON
	status = do(t, http.MethodPost, ts.URL+"/api/sessions/"+id+"/clear", nil, &cleared)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "empty", cleared.State)
	assert.Nil(t, cleared.Box)
	for _, row := range cleared.Grid {
		for _, v := range row {
			assert.Equal(t, 255, v)
		}
	}

	status = do(t, http.MethodDelete, ts.URL+"/api/sessions/"+id, nil, nil)
	assert.Equal(t, http.StatusOK, status)

	status = do(t, http.MethodGet, ts.URL+"/api/sessions/"+id+"/grid", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPredictEmptyAndUnavailable(t *testing.T) {
	ts := newTestServer(t, config.Default(), nil)
	id := createSession(t, ts.URL)

	var p shell.PredictionJSON
	do(t, http.MethodGet, ts.URL+"/api/sessions/"+id+"/predict", nil, &p)
	assert.False(t, p.Available)

	pointer(t, ts.URL, id, "down", 100, 100)
	pointer(t, ts.URL, id, "up", 0, 0)

	p = shell.PredictionJSON{}
	status := do(t, http.MethodGet, ts.URL+"/api/sessions/"+id+"/predict", nil, &p)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, p.Available)
	assert.Contains(t, p.Error, "unavailable")
}

func TestPointerErrors(t *testing.T) {
	ts := newTestServer(t, config.Default(), nil)
	id := createSession(t, ts.URL)

	status := do(t, http.MethodPost, ts.URL+"/api/sessions/"+id+"/pointer", []byte(`{"type":"hover"}`), nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = do(t, http.MethodPost, ts.URL+"/api/sessions/"+id+"/pointer", []byte(`not json`), nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = do(t, http.MethodGet, ts.URL+"/api/sessions/"+id+"/pointer", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)

	status = do(t, http.MethodPost, ts.URL+"/api/sessions/"+id+"/bogus", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = do(t, http.MethodPost, ts.URL+"/api/sessions/unknown/pointer", []byte(`{"type":"down"}`), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPointerOutOfRangeIsClamped(t *testing.T) {
	ts := newTestServer(t, config.Default(), nil)
	id := createSession(t, ts.URL)

	g := pointer(t, ts.URL, id, "down", -50, 10000)
	assert.Equal(t, "ink", g.State)
	require.NotNil(t, g.Box)
	assert.Equal(t, 0, g.Box.MinX)
	assert.Equal(t, 279, g.Box.MaxY)
}

func TestNormalizeImage(t *testing.T) {
	ts := newTestServer(t, config.Default(), always(1))

	var out struct {
		shell.GridJSON
		Prediction shell.PredictionJSON `json:"prediction"`
	}
	status := do(t, http.MethodPost, ts.URL+"/api/normalize", digitPNG(t, true), &out)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ink", out.State)
	require.NotNil(t, out.Box)
	assert.InDelta(t, 120, out.Box.MinX, 1)
	assert.InDelta(t, 60, out.Box.MinY, 1)
	assert.InDelta(t, 159, out.Box.MaxX, 1)
	assert.InDelta(t, 219, out.Box.MaxY, 1)
	assert.Len(t, out.Grid, normalize.GridSize)
	assert.Len(t, out.Input, normalize.GridSize*normalize.GridSize)
	assert.True(t, out.Prediction.Available)
	assert.Equal(t, 1, out.Prediction.Digit)
}

func TestNormalizeBlankImage(t *testing.T) {
	ts := newTestServer(t, config.Default(), always(1))

	var out struct {
		shell.GridJSON
		Prediction shell.PredictionJSON `json:"prediction"`
	}
	status := do(t, http.MethodPost, ts.URL+"/api/normalize", digitPNG(t, false), &out)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "empty", out.State)
	assert.Nil(t, out.Box)
	for _, v := range out.Input {
		assert.Equal(t, float32(0), v)
	}
	assert.False(t, out.Prediction.Available)
}

func oversizedPNG(w, h uint32) []byte {
	var ihdr bytes.Buffer
	ihdr.WriteString("IHDR")
	binary.Write(&ihdr, binary.BigEndian, w)
	binary.Write(&ihdr, binary.BigEndian, h)
	ihdr.Write([]byte{8, 0, 0, 0, 0})

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(ihdr.Len()-4))
	buf.Write(ihdr.Bytes())
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(ihdr.Bytes()))
	return buf.Bytes()
}

func TestNormalizeRejectsOversizedImage(t *testing.T) {
	ts := newTestServer(t, config.Default(), nil)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/normalize", bytes.NewReader(oversizedPNG(40000, 40000)))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, env.Error, "too large")
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	ts := newTestServer(t, config.Default(), nil)

	status := do(t, http.MethodPost, ts.URL+"/api/normalize", []byte("not an image"), nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAuthentication(t *testing.T) {
	cfg := config.Default()
	cfg.Server.JWTSecret = "s3cret"
	ts := newTestServer(t, cfg, nil)

	status := do(t, http.MethodPost, ts.URL+"/api/sessions", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	bad, err := auth.NewToken("other", "alice", time.Hour)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+bad)
	assert.Equal(t, http.StatusUnauthorized, send(t, req, nil))

	good, err := auth.NewToken(cfg.Server.JWTSecret, "alice", time.Hour)
	require.NoError(t, err)
	req, err = http.NewRequest(http.MethodPost, ts.URL+"/api/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+good)
	assert.Equal(t, http.StatusOK, send(t, req, nil))

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
