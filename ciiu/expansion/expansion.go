// Package expansion folds semantically close phrases from an auxiliary corpus
// into a query before it is encoded, widening recall when catalog wording is
// narrower than the way people describe their activity.
package expansion

import (
	"strings"

	"github.com/ZanzyTHEbar/ciiu-search/ciiu/indexing"
)

const (
	DefaultMinSimilarity = 0.4
	DefaultMaxTerms      = 3
)

// Expander selects auxiliary texts close to a query.
type Expander struct {
	MinSimilarity float32
	MaxTerms      int
}

// Term is an auxiliary text picked for expansion.
type Term struct {
	Text       string
	Similarity float32
}

// Expansion is the outcome of Expand.
type Expansion struct {
	Query string
	Terms []Term
}

// Expanded reports whether any term was appended.
func (e Expansion) Expanded() bool { return len(e.Terms) > 0 }

func New() *Expander {
	return &Expander{MinSimilarity: DefaultMinSimilarity, MaxTerms: DefaultMaxTerms}
}

// Enabled reports whether expansion can do anything against corpus. The
// caller uses it to skip encoding the query twice.
func (x *Expander) Enabled(corpus *indexing.Corpus) bool {
	return x != nil && x.MaxTerms > 0 && !corpus.Empty()
}

// Expand appends up to MaxTerms corpus texts whose cosine similarity to
// queryVec is at least MinSimilarity, best first with corpus order breaking
// ties. The query is returned unchanged when nothing qualifies.
func (x *Expander) Expand(query string, queryVec []float32, corpus *indexing.Corpus) (Expansion, error) {
	out := Expansion{Query: query}
	if !x.Enabled(corpus) {
		return out, nil
	}
	hits, err := corpus.Index().Search(queryVec, x.MaxTerms)
	if err != nil {
		return out, err
	}
	parts := []string{query}
	for _, h := range hits {
		if h.Similarity < x.MinSimilarity {
			// hits are sorted, nothing after this qualifies
			break
		}
		text := corpus.Text(int(h.ID))
		out.Terms = append(out.Terms, Term{Text: text, Similarity: h.Similarity})
		parts = append(parts, text)
	}
	out.Query = strings.Join(parts, " ")
	return out, nil
}
