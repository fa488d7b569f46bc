// Package retrieval runs the query pipeline against the current snapshot of a
// dataset: normalize, expand, encode, search, resolve, filter and rank.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/ciiu-search/ciiu/expansion"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/indexing"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/metrics"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/normalize"
)

// Searcher is the search entry point shared by every dataset. It holds no
// per-request state; concurrent searches need no coordination.
type Searcher struct {
	snapshots      SnapshotSource
	encoder        TextEncoder
	expander       *expansion.Expander
	overFetch      int
	minQueryLength int
	logger         zerolog.Logger
	metrics        *metrics.SearchMetrics
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithExpander sets the query expander; nil disables expansion.
func WithExpander(x *expansion.Expander) Option {
	return func(s *Searcher) { s.expander = x }
}

// WithOverFetch sets the multiplier applied to TopN when querying the index.
func WithOverFetch(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.overFetch = n
		}
	}
}

// WithMinQueryLength sets the minimum normalized query length in characters.
func WithMinQueryLength(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.minQueryLength = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Searcher) { s.logger = l }
}

// WithMetrics shares a metrics sink.
func WithMetrics(m *metrics.SearchMetrics) Option {
	return func(s *Searcher) {
		if m != nil {
			s.metrics = m
		}
	}
}

func NewSearcher(snapshots SnapshotSource, encoder TextEncoder, opts ...Option) *Searcher {
	s := &Searcher{
		snapshots:      snapshots,
		encoder:        encoder,
		expander:       expansion.New(),
		overFetch:      5,
		minQueryLength: 3,
		logger:         zerolog.Nop(),
		metrics:        &metrics.SearchMetrics{},
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With().Str("component", "searcher").Logger()
	return s
}

// Metrics returns the searcher's counters.
func (s *Searcher) Metrics() *metrics.SearchMetrics { return s.metrics }

// Search runs req against the current snapshot of dataset. The snapshot is
// read once and used for the whole request, so a concurrent rebuild cannot mix
// rows from two snapshots into one answer.
//
// Errors: *ValidationError (wraps ErrInvalidRequest) before any encoding,
// ErrNoResults when filtering leaves nothing, snapshot errors from the source,
// and encoder failures.
func (s *Searcher) Search(ctx context.Context, dataset string, req Request) ([]Result, error) {
	start := time.Now()
	results, expanded, err := s.search(ctx, dataset, req)
	s.metrics.Record(start, outcomeOf(err), len(results), expanded)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Searcher) search(ctx context.Context, dataset string, req Request) ([]Result, bool, error) {
	text := normalize.Normalize(req.Text)
	if err := s.validate(text, req); err != nil {
		return nil, false, err
	}

	snap, err := s.snapshots.Current(dataset)
	if err != nil {
		return nil, false, err
	}
	if !req.Category.IsAll() && !snap.Categories.Present(req.Category) {
		return nil, false, &ValidationError{Field: fieldCategory, Message: MsgCategory}
	}

	query, expanded, err := s.expand(ctx, text, snap)
	if err != nil {
		return nil, false, err
	}
	qv, err := s.encoder.Encode(ctx, query)
	if err != nil {
		return nil, expanded, fmt.Errorf("encode query: %w", err)
	}
	hits, err := snap.Index.Search(indexing.NormalizeL2(qv), s.candidates(req.TopN, snap.Index.Len()))
	if err != nil {
		return nil, expanded, fmt.Errorf("search %s: %w", dataset, err)
	}

	results := s.collect(snap, hits, req)
	s.logger.Debug().
		Str("dataset", dataset).
		Str("snapshot", snap.Meta.ID.String()).
		Str("query", query).
		Int("candidates", len(hits)).
		Int("results", len(results)).
		Bool("expanded", expanded).
		Msg("Search completed")

	if len(results) == 0 {
		return nil, expanded, ErrNoResults
	}
	return results, expanded, nil
}

// Validate runs the request checks that need no snapshot. Search repeats them;
// callers use Validate to reject a request before building a dataset.
func (s *Searcher) Validate(req Request) error {
	return s.validate(normalize.Normalize(req.Text), req)
}

func (s *Searcher) validate(text string, req Request) error {
	switch {
	case text == "":
		return &ValidationError{Field: fieldText, Message: MsgEmptyText}
	case utf8.RuneCountInString(text) < s.minQueryLength:
		return &ValidationError{Field: fieldText, Message: fmt.Sprintf(MsgShortText, s.minQueryLength)}
	case req.TopN <= 0:
		return &ValidationError{Field: fieldTopN, Message: MsgTopN}
	case math.IsNaN(req.Threshold) || req.Threshold < 0 || req.Threshold > 1:
		return &ValidationError{Field: fieldThreshold, Message: MsgThreshold}
	case !req.Category.IsAll() && !req.Category.Valid():
		return &ValidationError{Field: fieldCategory, Message: MsgCategory}
	}
	return nil
}

// expand encodes text once against the auxiliary corpus and returns the text
// to encode for the catalog index. Without a corpus it costs nothing.
func (s *Searcher) expand(ctx context.Context, text string, snap *indexing.Snapshot) (string, bool, error) {
	if !s.expander.Enabled(snap.Auxiliary) {
		return text, false, nil
	}
	v, err := s.encoder.Encode(ctx, text)
	if err != nil {
		return "", false, fmt.Errorf("encode query for expansion: %w", err)
	}
	exp, err := s.expander.Expand(text, v, snap.Auxiliary)
	if err != nil {
		return "", false, fmt.Errorf("expand query: %w", err)
	}
	return exp.Query, exp.Expanded(), nil
}

// candidates is the over-fetched neighbour count, capped at the index size.
func (s *Searcher) candidates(topN, size int) int {
	if topN >= size || topN > size/s.overFetch {
		return size
	}
	return topN * s.overFetch
}

// collect walks hits best first and keeps at most TopN of them.
func (s *Searcher) collect(snap *indexing.Snapshot, hits []indexing.Hit, req Request) []Result {
	results := make([]Result, 0, req.TopN)
	for _, h := range hits {
		if float64(h.Similarity) < req.Threshold {
			// hits are sorted, the rest score lower
			break
		}
		row, ok := snap.Resolver.Resolve(h.ID)
		if !ok {
			continue
		}
		if !snap.Categories.Has(req.Category, row) {
			continue
		}
		e := snap.Catalog.Row(row)
		results = append(results, Result{
			Code:        e.Code,
			Description: e.RawDescription,
			Category:    e.Category,
			Similarity:  indexing.RoundSimilarity(h.Similarity),
		})
		if len(results) >= req.TopN {
			break
		}
	}
	return results
}

func outcomeOf(err error) metrics.SearchOutcome {
	switch {
	case err == nil:
		return metrics.SearchOK
	case errors.Is(err, ErrInvalidRequest):
		return metrics.SearchInvalid
	case errors.Is(err, ErrNoResults):
		return metrics.SearchNoResults
	default:
		return metrics.SearchFailed
	}
}
