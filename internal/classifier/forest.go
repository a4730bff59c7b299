package classifier

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// leaf marks a node without children, matching the scikit-learn export.
const leaf = -1

// ForestNode is one node of an exported decision tree.
type ForestNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value"`
}

// ForestTree is a decision tree stored as a flat node array rooted at index 0.
type ForestTree struct {
	Nodes []ForestNode `json:"nodes"`
}

// ForestModel is the JSON export of a random forest.
type ForestModel struct {
	Classes   []string     `json:"classes"`
	NFeatures int          `json:"n_features"`
	Trees     []ForestTree `json:"trees"`
}

// Forest is the tabular classifier: a random forest that averages the
// normalized class distributions of its trees' leaves.
type Forest struct {
	model  ForestModel
	labels []string
}

// NewForest validates model and builds a Forest.
// Class "s" is reported as SpaceLabel.
func NewForest(model ForestModel) (*Forest, error) {
	if len(model.Classes) == 0 {
		return nil, errors.New("forest: no classes")
	}
	if model.NFeatures <= 0 {
		return nil, errors.New("forest: n_features must be positive")
	}
	if len(model.Trees) == 0 {
		return nil, errors.New("forest: no trees")
	}

	for ti, tree := range model.Trees {
		if len(tree.Nodes) == 0 {
			return nil, errors.Errorf("forest: tree %d is empty", ti)
		}
		for ni, n := range tree.Nodes {
			if n.Left == leaf {
				if len(n.Value) != len(model.Classes) {
					return nil, errors.Errorf("forest: tree %d node %d has %d values for %d classes",
						ti, ni, len(n.Value), len(model.Classes))
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= model.NFeatures {
				return nil, errors.Errorf("forest: tree %d node %d splits on feature %d", ti, ni, n.Feature)
			}
			// children always follow their parent, so walks terminate
			if n.Left <= ni || n.Left >= len(tree.Nodes) || n.Right <= ni || n.Right >= len(tree.Nodes) {
				return nil, errors.Errorf("forest: tree %d node %d has invalid children", ti, ni)
			}
		}
	}

	labels := make([]string, len(model.Classes))
	for i, c := range model.Classes {
		if c == "s" {
			c = SpaceLabel
		}
		labels[i] = c
	}

	return &Forest{model: model, labels: labels}, nil
}

// LoadForest reads a ForestModel JSON document from r.
func LoadForest(r io.Reader) (*Forest, error) {
	var model ForestModel
	if err := json.NewDecoder(r).Decode(&model); err != nil {
		return nil, errors.Wrap(err, "decode forest model")
	}
	return NewForest(model)
}

// LoadForestFile reads a ForestModel from path.
func LoadForestFile(path string) (*Forest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open forest model %s", path)
	}
	defer f.Close()

	forest, err := LoadForest(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return forest, nil
}

// Kind implements Classifier.
func (f *Forest) Kind() Kind { return KindTabular }

// NumFeatures implements Classifier.
func (f *Forest) NumFeatures() int { return f.model.NFeatures }

// Classes returns the labels in class index order.
func (f *Forest) Classes() []string {
	return append([]string(nil), f.labels...)
}

// Probabilities returns the averaged class distribution for features.
func (f *Forest) Probabilities(features []float64) ([]float64, error) {
	if err := checkLength(f, features); err != nil {
		return nil, err
	}

	probs := make([]float64, len(f.labels))
	for _, tree := range f.model.Trees {
		value := tree.leafValue(features)

		var total float64
		for _, v := range value {
			total += v
		}
		if total == 0 {
			continue
		}
		for i, v := range value {
			probs[i] += v / total
		}
	}

	n := float64(len(f.model.Trees))
	for i := range probs {
		probs[i] /= n
	}
	return probs, nil
}

// Predict implements Classifier.
func (f *Forest) Predict(features []float64) (string, error) {
	probs, err := f.Probabilities(features)
	if err != nil {
		return "", err
	}
	return f.labels[argmax(probs)], nil
}

func (t ForestTree) leafValue(features []float64) []float64 {
	i := 0
	for t.Nodes[i].Left != leaf {
		n := t.Nodes[i]
		if features[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}
