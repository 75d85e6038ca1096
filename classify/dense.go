package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/juruen/digitpad/log"
	"github.com/juruen/digitpad/normalize"
)

type activation func([]float32)

var activations = map[string]activation{
	"":        func([]float32) {},
	"linear":  func([]float32) {},
	"relu":    relu,
	"sigmoid": sigmoid,
	"tanh":    tanh,
	"softmax": softmax,
}

type layer struct {
	name       string
	activation string
	fn         activation
	in, out    int
	weights    [][]float32
	bias       []float32
}

// LayerInfo summarises one layer of a Dense network.
type LayerInfo struct {
	Name       string `json:"name"`
	Activation string `json:"activation"`
	Inputs     int    `json:"inputs"`
	Nodes      int    `json:"nodes"`
}

// Dense is a stack of fully connected layers evaluated on the CPU.
type Dense struct {
	layers []layer
}

// LoadDense reads a weights file from disk.
func LoadDense(path string) (*Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "can't open weights")
	}
	defer f.Close()

	d, err := ParseDense(f)
	if err != nil {
		return nil, errors.Wrapf(err, "weights %s", path)
	}
	return d, nil
}

// ParseDense decodes and validates a JSON weights file.
func ParseDense(r io.Reader) (*Dense, error) {
	var wf WeightsFile
	if err := json.NewDecoder(r).Decode(&wf); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	return NewDense(wf)
}

func NewDense(wf WeightsFile) (*Dense, error) {
	if len(wf.Layers) == 0 {
		return nil, errors.New("no layers")
	}

	d := &Dense{}
	for i, lw := range wf.Layers {
		fn, ok := activations[strings.ToLower(lw.Activation)]
		if !ok {
			return nil, errors.Errorf("layer %d: unknown activation %q", i, lw.Activation)
		}
		in := len(lw.Weights)
		if in == 0 {
			return nil, errors.Errorf("layer %d: no weights", i)
		}
		out := len(lw.Weights[0])
		for j, row := range lw.Weights {
			if len(row) != out {
				return nil, errors.Errorf("layer %d: weight row %d has %d columns, want %d", i, j, len(row), out)
			}
		}
		if len(lw.Bias) != out {
			return nil, errors.Errorf("layer %d: bias has %d values, want %d", i, len(lw.Bias), out)
		}
		if i > 0 && d.layers[i-1].out != in {
			return nil, errors.Errorf("layer %d: takes %d inputs but previous layer has %d nodes", i, in, d.layers[i-1].out)
		}

		name := lw.Name
		if name == "" {
			name = fmt.Sprintf("dense_%d", i+1)
		}
		d.layers = append(d.layers, layer{
			name:       name,
			activation: strings.ToLower(lw.Activation),
			fn:         fn,
			in:         in,
			out:        out,
			weights:    lw.Weights,
			bias:       lw.Bias,
		})
	}

	log.Trace.Printf("dense: %d layers, %d inputs, %d outputs", len(d.layers), d.Inputs(), d.layers[len(d.layers)-1].out)
	return d, nil
}

func (d *Dense) Inputs() int {
	return d.layers[0].in
}

func (d *Dense) Layers() []LayerInfo {
	info := make([]LayerInfo, len(d.layers))
	for i, l := range d.layers {
		info[i] = LayerInfo{Name: l.name, Activation: l.activation, Inputs: l.in, Nodes: l.out}
	}
	return info
}

// Activations returns the output of every layer for input.
func (d *Dense) Activations(input normalize.ModelInput) ([][]float32, error) {
	if len(input) != d.Inputs() {
		return nil, errors.Errorf("input has %d values, network expects %d", len(input), d.Inputs())
	}

	out := make([][]float32, len(d.layers))
	x := []float32(input)
	for i, l := range d.layers {
		y := make([]float32, l.out)
		copy(y, l.bias)
		for j, v := range x {
			if v == 0 {
				continue
			}
			row := l.weights[j]
			for k := range y {
				y[k] += v * row[k]
			}
		}
		l.fn(y)
		out[i] = y
		x = y
	}
	return out, nil
}

// Classify returns the index of the largest output of the last layer.
func (d *Dense) Classify(ctx context.Context, input normalize.ModelInput) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, unavailable("%v", err)
	}
	acts, err := d.Activations(input)
	if err != nil {
		return -1, unavailable("%v", err)
	}

	digit := argmax(acts[len(acts)-1])
	if err := checkDigit(digit); err != nil {
		return -1, err
	}
	return digit, nil
}

func argmax(v []float32) int {
	best := 0
	for i := range v {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func relu(v []float32) {
	for i := range v {
		if v[i] < 0 {
			v[i] = 0
		}
	}
}

func sigmoid(v []float32) {
	for i := range v {
		v[i] = float32(1 / (1 + math.Exp(-float64(v[i]))))
	}
}

func tanh(v []float32) {
	for i := range v {
		v[i] = float32(math.Tanh(float64(v[i])))
	}
}

func softmax(v []float32) {
	if len(v) == 0 {
		return
	}
	m := v[argmax(v)]
	var sum float64
	for i := range v {
		e := math.Exp(float64(v[i] - m))
		v[i] = float32(e)
		sum += e
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / sum)
	}
}
