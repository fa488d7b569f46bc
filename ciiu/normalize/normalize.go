// Package normalize maps raw activity descriptions to the canonical form that
// is fed to the embedding model. Catalog rows and incoming queries must go
// through the same function.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Punctuation kept after cleaning; everything else outside letters, digits and
// whitespace is dropped.
const allowedPunct = ".,!?¿¡"

// Normalize lowercases text, folds accented letters to their base letter,
// drops characters outside the accepted alphabet and collapses whitespace.
// It never fails and Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	folded, _, err := transform.String(foldChain(), text)
	if err != nil {
		// The chain only removes runes; on a transform error keep the raw text
		// and let the filter below do the rest.
		folded = text
	}

	var sb strings.Builder
	sb.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = sb.Len() > 0
		case unicode.IsLetter(r), unicode.IsDigit(r), strings.ContainsRune(allowedPunct, r):
			if pendingSpace {
				sb.WriteByte(' ')
				pendingSpace = false
			}
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	return sb.String()
}

// NormalizeAny returns Normalize(v) for strings and "" for anything else.
func NormalizeAny(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return Normalize(s)
}

// NormalizeAll applies Normalize to every element, returning a new slice.
func NormalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = Normalize(t)
	}
	return out
}

// foldChain decomposes, removes combining marks and recomposes. A transformer
// chain is stateful so a fresh one is built per call.
func foldChain() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
