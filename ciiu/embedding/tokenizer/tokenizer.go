package tokenizer

import (
	"errors"
	"os"
	"path/filepath"
)

// Tokenizer converts raw text to model-ready token IDs and attention masks.
// Rows of one call are padded to the same length.
type Tokenizer interface {
	Tokenize(texts []string) (inputIDs [][]int64, attentionMasks [][]int64, err error)
}

// ErrUnsupported indicates the tokenizer could not be initialized
var ErrUnsupported = errors.New("unsupported tokenizer configuration")

// Load finds a tokenizer next to modelPath: tokenizer.json (HuggingFace fast
// tokenizer export) is preferred, then a BERT vocab.txt.
func Load(modelPath string, maxSeq int) (Tokenizer, error) {
	dir := filepath.Dir(modelPath)
	if p := filepath.Join(dir, "tokenizer.json"); fileExists(p) {
		return NewFromFile(p, maxSeq)
	}
	if p := filepath.Join(dir, "vocab.txt"); fileExists(p) {
		return NewSugarWordPiece(p, maxSeq)
	}
	return nil, ErrUnsupported
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}
