package tokenizer

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	"github.com/sugarme/tokenizer/processor"
)

// Sugar wraps a sugarme/tokenizer pipeline.
type Sugar struct {
	t         *tk.Tokenizer
	maxSeqLen int
}

// NewFromFile loads a HuggingFace tokenizer.json (the export that ships with
// sentence-transformers models, including the multilingual mpnet family).
func NewFromFile(path string, maxSeq int) (*Sugar, error) {
	t, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	t.WithTruncation(&tk.TruncationParams{MaxLength: maxSeq})
	return &Sugar{t: t, maxSeqLen: maxSeq}, nil
}

// NewSugarWordPiece builds a BERT WordPiece tokenizer from vocab.txt.
func NewSugarWordPiece(vocabPath string, maxSeq int) (*Sugar, error) {
	wp, err := wordpiece.NewWordPieceFromFile(vocabPath, "[UNK]")
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", vocabPath, err)
	}
	clsID, sepID, err := specialIDs(vocabPath)
	if err != nil {
		return nil, err
	}

	t := tk.NewTokenizer(wp)
	t.WithNormalizer(normalizer.NewBertNormalizer(true, true, true, true))
	t.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())
	t.WithPostProcessor(processor.NewBertProcessing(
		processor.PostToken{Value: "[SEP]", Id: sepID},
		processor.PostToken{Value: "[CLS]", Id: clsID},
	))
	t.WithTruncation(&tk.TruncationParams{MaxLength: maxSeq})
	return &Sugar{t: t, maxSeqLen: maxSeq}, nil
}

// Tokenize encodes texts and pads every row to the longest one in the call.
func (s *Sugar) Tokenize(texts []string) ([][]int64, [][]int64, error) {
	encIDs := make([][]int, len(texts))
	encMasks := make([][]int, len(texts))
	longest := 0
	for i, txt := range texts {
		enc, err := s.t.Encode(tk.NewSingleEncodeInput(tk.NewInputSequence(txt)), true)
		if err != nil {
			return nil, nil, err
		}
		encIDs[i] = enc.GetIds()
		encMasks[i] = enc.GetAttentionMask()
		longest = max(longest, min(len(encIDs[i]), s.maxSeqLen))
	}

	ids := make([][]int64, len(texts))
	masks := make([][]int64, len(texts))
	for i := range texts {
		rowIDs := make([]int64, longest)
		rowMask := make([]int64, longest)
		n := min(len(encIDs[i]), longest)
		for j := 0; j < n; j++ {
			rowIDs[j] = int64(encIDs[i][j])
			rowMask[j] = 1
			if j < len(encMasks[i]) {
				rowMask[j] = int64(encMasks[i][j])
			}
		}
		ids[i] = rowIDs
		masks[i] = rowMask
	}
	return ids, masks, nil
}

// specialIDs reads [CLS] and [SEP] positions from a vocab file.
func specialIDs(vocabPath string) (cls, sep int, err error) {
	f, err := os.Open(vocabPath)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cls, sep = -1, -1
	idx := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		switch strings.TrimSpace(sc.Text()) {
		case "[CLS]":
			cls = idx
		case "[SEP]":
			sep = idx
		}
		idx++
	}
	if err := sc.Err(); err != nil {
		return 0, 0, err
	}
	if cls < 0 || sep < 0 {
		return 0, 0, fmt.Errorf("%w: vocab %s lacks [CLS] or [SEP]", ErrUnsupported, vocabPath)
	}
	return cls, sep, nil
}
