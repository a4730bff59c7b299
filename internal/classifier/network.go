package classifier

import (
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
)

// SequenceLabels maps the network's output index to a label: A-Z then space.
var SequenceLabels = [27]string{
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M",
	"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z", "space",
}

// Layer types understood by the network loader.
const (
	LayerConv1D    = "conv1d"
	LayerMaxPool1D = "maxpool1d"
	LayerFlatten   = "flatten"
	LayerDense     = "dense"
)

// LayerSpec is one exported layer. Weights use the Keras layouts:
// conv1d (kernel_size, in_channels, filters), dense (inputs, units), both row-major.
type LayerSpec struct {
	Type       string    `json:"type"`
	Filters    int       `json:"filters,omitempty"`
	KernelSize int       `json:"kernel_size,omitempty"`
	PoolSize   int       `json:"pool_size,omitempty"`
	Units      int       `json:"units,omitempty"`
	Activation string    `json:"activation,omitempty"`
	Weights    []float64 `json:"weights,omitempty"`
	Bias       []float64 `json:"bias,omitempty"`
}

// NetworkModel is the JSON export of the sequence classifier.
type NetworkModel struct {
	InputLength int         `json:"input_length"`
	Layers      []LayerSpec `json:"layers"`
}

// tensor is a (length, channels) activation map stored row-major.
type tensor struct {
	data     []float64
	length   int
	channels int
}

type layer interface {
	forward(in tensor) tensor
}

// Network is the sequence classifier: the feature vector is read as a
// (length, 1) sequence and run through the exported layers. The output
// index is mapped through SequenceLabels.
type Network struct {
	inputLength int
	layers      []layer
}

// NewNetwork validates model shapes and builds a Network.
func NewNetwork(model NetworkModel) (*Network, error) {
	if model.InputLength <= 0 {
		return nil, errors.New("network: input_length must be positive")
	}

	n := &Network{inputLength: model.InputLength}
	length, channels := model.InputLength, 1

	for i, spec := range model.Layers {
		act, err := activationFor(spec.Activation)
		if err != nil {
			return nil, errors.Wrapf(err, "network: layer %d", i)
		}

		switch spec.Type {
		case LayerConv1D:
			if spec.KernelSize <= 0 || spec.KernelSize > length || spec.Filters <= 0 {
				return nil, errors.Errorf("network: layer %d: bad conv1d shape", i)
			}
			if want := spec.KernelSize * channels * spec.Filters; len(spec.Weights) != want {
				return nil, errors.Errorf("network: layer %d: %d weights, want %d", i, len(spec.Weights), want)
			}
			if len(spec.Bias) != spec.Filters {
				return nil, errors.Errorf("network: layer %d: %d biases, want %d", i, len(spec.Bias), spec.Filters)
			}
			n.layers = append(n.layers, &conv1d{
				kernel: spec.KernelSize, in: channels, filters: spec.Filters,
				weights: spec.Weights, bias: spec.Bias, act: act,
			})
			length, channels = length-spec.KernelSize+1, spec.Filters

		case LayerMaxPool1D:
			if spec.PoolSize <= 0 || spec.PoolSize > length {
				return nil, errors.Errorf("network: layer %d: bad pool size %d", i, spec.PoolSize)
			}
			n.layers = append(n.layers, &maxPool1d{size: spec.PoolSize})
			length = length / spec.PoolSize

		case LayerFlatten:
			n.layers = append(n.layers, flatten{})
			length, channels = length*channels, 1

		case LayerDense:
			inputs := length * channels
			if spec.Units <= 0 {
				return nil, errors.Errorf("network: layer %d: units must be positive", i)
			}
			if want := inputs * spec.Units; len(spec.Weights) != want {
				return nil, errors.Errorf("network: layer %d: %d weights, want %d", i, len(spec.Weights), want)
			}
			if len(spec.Bias) != spec.Units {
				return nil, errors.Errorf("network: layer %d: %d biases, want %d", i, len(spec.Bias), spec.Units)
			}
			n.layers = append(n.layers, &dense{
				inputs: inputs, units: spec.Units, weights: spec.Weights, bias: spec.Bias, act: act,
			})
			length, channels = spec.Units, 1

		default:
			return nil, errors.Errorf("network: layer %d: unknown type %q", i, spec.Type)
		}
	}

	if out := length * channels; out != len(SequenceLabels) {
		return nil, errors.Errorf("network: %d outputs, want %d", out, len(SequenceLabels))
	}

	return n, nil
}

// LoadNetwork reads a NetworkModel JSON document from r.
func LoadNetwork(r io.Reader) (*Network, error) {
	var model NetworkModel
	if err := json.NewDecoder(r).Decode(&model); err != nil {
		return nil, errors.Wrap(err, "decode network model")
	}
	return NewNetwork(model)
}

// LoadNetworkFile reads a NetworkModel from path.
func LoadNetworkFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open network model %s", path)
	}
	defer f.Close()

	network, err := LoadNetwork(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return network, nil
}

// Kind implements Classifier.
func (n *Network) Kind() Kind { return KindSequence }

// NumFeatures implements Classifier.
func (n *Network) NumFeatures() int { return n.inputLength }

// Scores runs the forward pass and returns the raw output activations.
func (n *Network) Scores(features []float64) ([]float64, error) {
	if err := checkLength(n, features); err != nil {
		return nil, err
	}

	t := tensor{data: append([]float64(nil), features...), length: len(features), channels: 1}
	for _, l := range n.layers {
		t = l.forward(t)
	}
	return t.data, nil
}

// Predict implements Classifier.
func (n *Network) Predict(features []float64) (string, error) {
	scores, err := n.Scores(features)
	if err != nil {
		return "", err
	}
	return SequenceLabels[argmax(scores)], nil
}

type conv1d struct {
	kernel, in, filters int
	weights, bias       []float64
	act                 activation
}

func (c *conv1d) forward(t tensor) tensor {
	outLen := t.length - c.kernel + 1
	out := tensor{data: make([]float64, outLen*c.filters), length: outLen, channels: c.filters}

	for pos := 0; pos < outLen; pos++ {
		row := out.data[pos*c.filters : (pos+1)*c.filters]
		copy(row, c.bias)
		for k := 0; k < c.kernel; k++ {
			for ch := 0; ch < c.in; ch++ {
				x := t.data[(pos+k)*t.channels+ch]
				w := c.weights[(k*c.in+ch)*c.filters : (k*c.in+ch+1)*c.filters]
				for f := range row {
					row[f] += x * w[f]
				}
			}
		}
	}
	c.act.apply(out.data)
	return out
}

type maxPool1d struct {
	size int
}

func (p *maxPool1d) forward(t tensor) tensor {
	outLen := t.length / p.size
	out := tensor{data: make([]float64, outLen*t.channels), length: outLen, channels: t.channels}

	for pos := 0; pos < outLen; pos++ {
		for ch := 0; ch < t.channels; ch++ {
			best := math.Inf(-1)
			for k := 0; k < p.size; k++ {
				if v := t.data[(pos*p.size+k)*t.channels+ch]; v > best {
					best = v
				}
			}
			out.data[pos*t.channels+ch] = best
		}
	}
	return out
}

type flatten struct{}

func (flatten) forward(t tensor) tensor {
	return tensor{data: t.data, length: t.length * t.channels, channels: 1}
}

type dense struct {
	inputs, units int
	weights, bias []float64
	act           activation
}

func (d *dense) forward(t tensor) tensor {
	out := make([]float64, d.units)
	copy(out, d.bias)
	for i := 0; i < d.inputs; i++ {
		x := t.data[i]
		if x == 0 {
			continue
		}
		w := d.weights[i*d.units : (i+1)*d.units]
		for u := range out {
			out[u] += x * w[u]
		}
	}
	d.act.apply(out)
	return tensor{data: out, length: d.units, channels: 1}
}
