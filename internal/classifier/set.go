package classifier

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Selectors sent by the browser client.
const (
	SelectorRandomForest = "RandomForest"
	SelectorCNN          = "CNN"
)

// Set maps client selectors to loaded classifiers.
type Set struct {
	mu      sync.RWMutex
	entries map[string]Classifier
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{entries: make(map[string]Classifier)}
}

// Register binds a selector to a classifier, replacing any previous binding.
func (s *Set) Register(selector string, c Classifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[selector] = c
}

// Get returns the classifier for selector or ErrUnknownModel.
func (s *Set) Get(selector string) (Classifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.entries[selector]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownModel, "%q", selector)
	}
	return c, nil
}

// Selectors returns the registered selectors in sorted order.
func (s *Set) Selectors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.entries))
	for k := range s.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LoadSet loads the forest and network model files and registers them under
// the RandomForest and CNN selectors. Any load failure is returned; callers
// treat it as fatal.
func LoadSet(forestPath, networkPath string) (*Set, error) {
	forest, err := LoadForestFile(forestPath)
	if err != nil {
		return nil, err
	}

	network, err := LoadNetworkFile(networkPath)
	if err != nil {
		return nil, err
	}

	s := NewSet()
	s.Register(SelectorRandomForest, forest)
	s.Register(SelectorCNN, network)
	return s, nil
}
