package classify

// Request is the body sent to a remote classifier.
type Request struct {
	Input []float32 `json:"input"`
}

// Response is what a remote classifier answers.
type Response struct {
	Digit         *int      `json:"digit"`
	Probabilities []float32 `json:"probabilities,omitempty"`
}

// WeightsFile is the on-disk description of a dense network.
type WeightsFile struct {
	Layers []LayerWeights `json:"layers"`
}

// LayerWeights holds one fully connected layer. Weights is indexed
// [input][output].
type LayerWeights struct {
	Name       string      `json:"name"`
	Activation string      `json:"activation"`
	Weights    [][]float32 `json:"weights"`
	Bias       []float32   `json:"bias"`
}
