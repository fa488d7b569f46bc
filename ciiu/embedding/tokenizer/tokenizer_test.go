package tokenizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVocab(t *testing.T, dir string, tokens ...string) string {
	t.Helper()
	p := filepath.Join(dir, "vocab.txt")
	var content string
	for _, tok := range tokens {
		content += tok + "\n"
	}
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadWithoutTokenizerFiles(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "model.onnx"), 32)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSpecialIDs(t *testing.T) {
	p := writeVocab(t, t.TempDir(), "[PAD]", "[UNK]", "[CLS]", "[SEP]", "hola")
	cls, sep, err := specialIDs(p)
	require.NoError(t, err)
	assert.Equal(t, 2, cls)
	assert.Equal(t, 3, sep)

	p = writeVocab(t, t.TempDir(), "[PAD]", "[UNK]", "hola")
	_, _, err = specialIDs(p)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSugarWordPiecePadsToLongest(t *testing.T) {
	dir := t.TempDir()
	writeVocab(t, dir, "[PAD]", "[UNK]", "[CLS]", "[SEP]", "cultivo", "de", "maiz")

	tok, err := Load(filepath.Join(dir, "model.onnx"), 16)
	require.NoError(t, err)

	ids, masks, err := tok.Tokenize([]string{"cultivo de maiz", "maiz"})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.Len(t, masks, 2)
	assert.Equal(t, len(ids[0]), len(ids[1]), "rows are padded to the same length")
	assert.Equal(t, []int64{2, 4, 5, 6, 3}, ids[0])
	assert.Equal(t, []int64{1, 1, 1, 1, 1}, masks[0])
	assert.Equal(t, []int64{2, 6, 3, 0, 0}, ids[1])
	assert.Equal(t, []int64{1, 1, 1, 0, 0}, masks[1])
}
