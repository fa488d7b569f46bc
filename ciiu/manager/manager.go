// Package manager owns the live snapshot of every dataset and replaces them
// atomically on rebuild. Readers never block: a search loads the current
// pointer once and keeps using that snapshot even if a rebuild lands meanwhile.
package manager

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/ciiu-search/ciiu/catalog"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/indexing"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/metrics"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/normalize"
)

var (
	ErrUnknownDataset    = errors.New("unknown dataset")
	ErrNotReady          = errors.New("dataset has no snapshot yet")
	ErrRebuildInProgress = errors.New("rebuild already in progress")
	ErrNoEncoder         = errors.New("batch encoder is required")
	ErrNoSource          = errors.New("catalog source is required")
)

// BatchEncoder embeds texts in input order.
type BatchEncoder interface {
	Dimensions() int
	EncodeMany(ctx context.Context, texts []string) ([][]float32, error)
}

type slot struct {
	current  atomic.Pointer[indexing.Snapshot]
	building sync.Mutex
}

// Manager holds one snapshot slot per configured dataset. The set of datasets
// is fixed when the manager is created.
type Manager struct {
	source    catalog.Source
	encoder   BatchEncoder
	hash      indexing.CodeHasher
	workers   int
	auxiliary bool
	logger    zerolog.Logger
	metrics   *metrics.RebuildMetrics

	slots map[string]*slot
	names []string

	auxMu  sync.Mutex
	corpus atomic.Pointer[indexing.Corpus]
}

// Option configures a Manager.
type Option func(*Manager)

// WithCodeHasher replaces the code to id hash.
func WithCodeHasher(h indexing.CodeHasher) Option {
	return func(m *Manager) {
		if h != nil {
			m.hash = h
		}
	}
}

// WithWorkers bounds how many datasets RebuildAll builds at once.
func WithWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithAuxiliary turns query expansion corpus loading on or off.
func WithAuxiliary(enabled bool) Option {
	return func(m *Manager) { m.auxiliary = enabled }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics shares a metrics sink.
func WithMetrics(rm *metrics.RebuildMetrics) Option {
	return func(m *Manager) {
		if rm != nil {
			m.metrics = rm
		}
	}
}

// New creates a manager for every dataset the source lists. No snapshot is
// built until Rebuild or RebuildAll runs.
func New(source catalog.Source, encoder BatchEncoder, opts ...Option) (*Manager, error) {
	if source == nil {
		return nil, ErrNoSource
	}
	if encoder == nil {
		return nil, ErrNoEncoder
	}
	m := &Manager{
		source:    source,
		encoder:   encoder,
		hash:      indexing.HashCode,
		workers:   max(1, runtime.NumCPU()/2),
		auxiliary: true,
		logger:    zerolog.Nop(),
		metrics:   &metrics.RebuildMetrics{},
		slots:     make(map[string]*slot),
	}
	for _, o := range opts {
		o(m)
	}
	m.logger = m.logger.With().Str("component", "index-manager").Logger()
	for _, name := range source.Datasets() {
		m.slots[name] = &slot{}
		m.names = append(m.names, name)
	}
	sort.Strings(m.names)
	return m, nil
}

// Datasets returns the managed dataset names in sorted order.
func (m *Manager) Datasets() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Metrics returns the rebuild counters.
func (m *Manager) Metrics() *metrics.RebuildMetrics { return m.metrics }

// Current returns the live snapshot of dataset without locking.
func (m *Manager) Current(dataset string) (*indexing.Snapshot, error) {
	s, ok := m.slots[dataset]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, dataset)
	}
	snap := s.current.Load()
	if snap == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotReady, dataset)
	}
	return snap, nil
}

// Snapshots returns the metadata of every built snapshot.
func (m *Manager) Snapshots() []indexing.SnapshotMeta {
	var out []indexing.SnapshotMeta
	for _, name := range m.names {
		if snap := m.slots[name].current.Load(); snap != nil {
			out = append(out, snap.Meta)
		}
	}
	return out
}

// Rebuild loads, encodes and indexes dataset, then swaps the new snapshot in.
// On any failure the previous snapshot stays live. A second rebuild of the same
// dataset while one is running is refused with ErrRebuildInProgress.
func (m *Manager) Rebuild(ctx context.Context, dataset string) (*indexing.Snapshot, error) {
	s, ok := m.slots[dataset]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, dataset)
	}
	if !s.building.TryLock() {
		m.metrics.RecordRejected()
		return nil, fmt.Errorf("%w: %q", ErrRebuildInProgress, dataset)
	}
	defer s.building.Unlock()

	start := time.Now()
	snap, err := m.build(ctx, dataset)
	if err != nil {
		m.metrics.Record(start, 0, err)
		l := m.logger.Error().Err(err).Str("dataset", dataset)
		if prev := s.current.Load(); prev != nil {
			l = l.Str("kept_snapshot", prev.Meta.ID.String())
		}
		l.Msg("Rebuild failed")
		return nil, err
	}
	s.current.Store(snap)
	m.metrics.Record(start, snap.Meta.Rows, nil)

	m.logger.Info().
		Str("dataset", dataset).
		Str("snapshot", snap.Meta.ID.String()).
		Int("rows", snap.Meta.Rows).
		Int("dim", snap.Meta.Dim).
		Int("aux_texts", snap.Meta.AuxTexts).
		Dur("took", time.Since(start)).
		Msg("Snapshot swapped in")
	return snap, nil
}

func (m *Manager) build(ctx context.Context, dataset string) (*indexing.Snapshot, error) {
	cat, err := m.source.LoadCatalog(ctx, dataset)
	if err != nil {
		return nil, err
	}
	vecs, err := m.encoder.EncodeMany(ctx, cat.NormalizedDescriptions())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", dataset, err)
	}
	corpus, err := m.corpusFor(ctx)
	if err != nil {
		return nil, err
	}
	return indexing.BuildSnapshotWith(cat, vecs, corpus, m.hash)
}

// corpusFor returns the shared auxiliary corpus, loading it on first use.
func (m *Manager) corpusFor(ctx context.Context) (*indexing.Corpus, error) {
	if c := m.corpus.Load(); c != nil {
		return c, nil
	}
	m.auxMu.Lock()
	defer m.auxMu.Unlock()
	if c := m.corpus.Load(); c != nil {
		return c, nil
	}
	return m.loadAuxiliary(ctx)
}

// RebuildAuxiliary reloads and re-encodes the auxiliary corpus. Snapshots built
// afterwards use the new corpus; live snapshots keep theirs. A corpus that
// cannot be read is treated as empty.
func (m *Manager) RebuildAuxiliary(ctx context.Context) (*indexing.Corpus, error) {
	m.auxMu.Lock()
	defer m.auxMu.Unlock()
	return m.loadAuxiliary(ctx)
}

// loadAuxiliary must be called with auxMu held.
func (m *Manager) loadAuxiliary(ctx context.Context) (*indexing.Corpus, error) {
	if !m.auxiliary {
		c := indexing.EmptyCorpus()
		m.corpus.Store(c)
		return c, nil
	}
	texts := nonEmpty(normalize.NormalizeAll(m.source.LoadAuxiliary(ctx)))
	vecs, err := m.encoder.EncodeMany(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("encode auxiliary corpus: %w", err)
	}
	c, err := indexing.NewCorpus(texts, vecs)
	if err != nil {
		return nil, err
	}
	m.corpus.Store(c)
	m.logger.Info().Int("texts", c.Len()).Msg("Auxiliary corpus ready")
	return c, nil
}

func nonEmpty(texts []string) []string {
	out := texts[:0]
	for _, t := range texts {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// DatasetResult is the outcome of rebuilding one dataset.
type DatasetResult struct {
	Rows       int
	SnapshotID uuid.UUID
	Took       time.Duration
	Err        error
}

// Summary collects the per-dataset outcome of RebuildAll.
type Summary struct {
	Datasets map[string]DatasetResult
}

// Err joins the failures of every dataset, nil when all succeeded.
func (s Summary) Err() error {
	names := make([]string, 0, len(s.Datasets))
	for n := range s.Datasets {
		names = append(names, n)
	}
	sort.Strings(names)
	var errs []error
	for _, n := range names {
		if err := s.Datasets[n].Err; err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n, err))
		}
	}
	return errors.Join(errs...)
}

// RebuildAll reloads the auxiliary corpus once, then rebuilds every dataset on
// a bounded worker pool. Datasets fail independently.
func (m *Manager) RebuildAll(ctx context.Context) (Summary, error) {
	sum := Summary{Datasets: make(map[string]DatasetResult, len(m.names))}
	if _, err := m.RebuildAuxiliary(ctx); err != nil {
		return sum, err
	}

	p, err := ants.NewPool(min(m.workers, max(1, len(m.names))))
	if err != nil {
		return sum, fmt.Errorf("rebuild pool: %w", err)
	}
	defer p.Release()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(name string, r DatasetResult) {
		mu.Lock()
		sum.Datasets[name] = r
		mu.Unlock()
	}
	for _, name := range m.names {
		name := name
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			start := time.Now()
			snap, err := m.Rebuild(ctx, name)
			r := DatasetResult{Took: time.Since(start), Err: err}
			if snap != nil {
				r.Rows = snap.Meta.Rows
				r.SnapshotID = snap.Meta.ID
			}
			record(name, r)
		})
		if err != nil {
			wg.Done()
			record(name, DatasetResult{Err: err})
		}
	}
	wg.Wait()
	return sum, nil
}
