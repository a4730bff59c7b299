package classifier

import (
	"math"

	"github.com/pkg/errors"
)

type activation interface {
	apply(v []float64)
}

type identityActivation struct{}

func (identityActivation) apply(v []float64) {}

type reluActivation struct{}

func (reluActivation) apply(v []float64) {
	for i, x := range v {
		if x < 0 {
			v[i] = 0
		}
	}
}

type sigmoidActivation struct{}

func (sigmoidActivation) apply(v []float64) {
	for i, x := range v {
		v[i] = 1.0 / (1.0 + math.Exp(-x))
	}
}

// softmaxActivation normalizes v into a probability distribution.
type softmaxActivation struct{}

func (softmaxActivation) apply(v []float64) {
	if len(v) == 0 {
		return
	}
	maxV := v[0]
	for _, x := range v[1:] {
		if x > maxV {
			maxV = x
		}
	}
	var sum float64
	for i, x := range v {
		v[i] = math.Exp(x - maxV)
		sum += v[i]
	}
	for i := range v {
		v[i] /= sum
	}
}

func activationFor(name string) (activation, error) {
	switch name {
	case "", "linear":
		return identityActivation{}, nil
	case "relu":
		return reluActivation{}, nil
	case "sigmoid":
		return sigmoidActivation{}, nil
	case "softmax":
		return softmaxActivation{}, nil
	}
	return nil, errors.Errorf("unknown activation %q", name)
}
