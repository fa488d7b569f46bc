package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// StaticSource serves entries held in memory. Entries can be replaced between
// rebuilds, which is how embedding applications feed the engine directly.
type StaticSource struct {
	mu        sync.RWMutex
	datasets  map[string][]Entry
	auxiliary []string
}

func NewStaticSource() *StaticSource {
	return &StaticSource{datasets: make(map[string][]Entry)}
}

// SetDataset replaces the entries of dataset. The slice is copied.
func (s *StaticSource) SetDataset(dataset string, entries []Entry) {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	s.mu.Lock()
	s.datasets[dataset] = cp
	s.mu.Unlock()
}

// SetAuxiliary replaces the auxiliary corpus texts.
func (s *StaticSource) SetAuxiliary(texts []string) {
	cp := make([]string, len(texts))
	copy(cp, texts)
	s.mu.Lock()
	s.auxiliary = cp
	s.mu.Unlock()
}

func (s *StaticSource) Datasets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.datasets))
	for n := range s.datasets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *StaticSource) LoadCatalog(ctx context.Context, dataset string) (*Catalog, error) {
	s.mu.RLock()
	entries, ok := s.datasets[dataset]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, dataset)
	}
	return New(dataset, entries)
}

func (s *StaticSource) LoadAuxiliary(ctx context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.auxiliary))
	copy(out, s.auxiliary)
	return out
}
