package retrieval

import (
	"context"
	"errors"

	"github.com/ZanzyTHEbar/ciiu-search/ciiu/catalog"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/indexing"
)

var (
	ErrInvalidRequest = errors.New("invalid search request")
	ErrNoResults      = errors.New("no relevant results found")
)

// User-facing validation messages.
const (
	MsgEmptyText = "description cannot be empty"
	MsgShortText = "description must be at least %d characters"
	MsgTopN      = "top_n must be greater than 0"
	MsgThreshold = "similarity threshold must be between 0 and 1"
	MsgCategory  = "invalid category"
)

const (
	fieldText      = "text"
	fieldTopN      = "top_n"
	fieldThreshold = "similarity_threshold"
	fieldCategory  = "category"
)

// ValidationError is a request rejected before any encoding work.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// Request is one search against a dataset.
type Request struct {
	Text      string
	TopN      int
	Category  catalog.Category
	Threshold float64
}

// Result is one ranked catalog match.
type Result struct {
	Code        string           `json:"code"`
	Description string           `json:"description"`
	Category    catalog.Category `json:"category"`
	Similarity  float64          `json:"similarity"`
}

// Defaults are applied by request-facing layers when a caller omits fields.
type Defaults struct {
	TopN      int
	Category  catalog.Category
	Threshold float64
}

// DefaultDefaults mirrors the public API defaults: 7 results, ACTIVIDAD, 0.6.
func DefaultDefaults() Defaults {
	return Defaults{TopN: 7, Category: catalog.CategoryActividad, Threshold: 0.6}
}

// Request builds a request for text using the defaults.
func (d Defaults) Request(text string) Request {
	return Request{Text: text, TopN: d.TopN, Category: d.Category, Threshold: d.Threshold}
}

// NewRequest builds a request from transported values. An unknown category
// string is a validation error.
func NewRequest(text string, topN int, category string, threshold float64) (Request, error) {
	cat, err := catalog.ParseCategory(category)
	if err != nil {
		return Request{}, &ValidationError{Field: fieldCategory, Message: MsgCategory}
	}
	return Request{Text: text, TopN: topN, Category: cat, Threshold: threshold}, nil
}

// SnapshotSource hands out the current snapshot of a dataset.
type SnapshotSource interface {
	Current(dataset string) (*indexing.Snapshot, error)
}

// TextEncoder turns a text into a vector of the index dimension.
type TextEncoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}
