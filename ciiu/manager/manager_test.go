package manager

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/ciiu-search/ciiu/catalog"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/embedding"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/indexing"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/retrieval"
)

// gatedEncoder counts encoded texts and can hold the next catalog encode until
// released.
type gatedEncoder struct {
	*embedding.Encoder
	texts   atomic.Int64
	mu      sync.Mutex
	entered chan struct{}
	release chan struct{}
}

func newGatedEncoder() *gatedEncoder {
	return &gatedEncoder{Encoder: embedding.NewEncoder(embedding.NewLexicalProvider(1024))}
}

// hold makes the next EncodeMany block until the returned func is called.
func (g *gatedEncoder) hold() (entered <-chan struct{}, release func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entered = make(chan struct{})
	g.release = make(chan struct{})
	rel := g.release
	return g.entered, func() { close(rel) }
}

func (g *gatedEncoder) EncodeMany(ctx context.Context, texts []string) ([][]float32, error) {
	g.mu.Lock()
	entered, release := g.entered, g.release
	g.entered, g.release = nil, nil
	g.mu.Unlock()
	if entered != nil {
		close(entered)
		<-release
	}
	g.texts.Add(int64(len(texts)))
	return g.Encoder.EncodeMany(ctx, texts)
}

func entries(prefix string) []catalog.Entry {
	return []catalog.Entry{
		{Code: prefix + "01", RawDescription: "Cultivo de cereales", Category: catalog.CategorySeccion},
		{Code: prefix + "0111", RawDescription: "Cultivo de maíz", Category: catalog.CategoryActividad},
		{Code: prefix + "0112", RawDescription: "Cultivo de arroz", Category: catalog.CategoryActividad},
		{Code: prefix + "0141", RawDescription: "Cría de ganado bovino", Category: catalog.CategoryActividad},
	}
}

func newSource() *catalog.StaticSource {
	src := catalog.NewStaticSource()
	src.SetDataset("v4", entries("A"))
	src.SetAuxiliary([]string{"Maíz", "", "programación informática"})
	return src
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, newGatedEncoder())
	assert.ErrorIs(t, err, ErrNoSource)
	_, err = New(newSource(), nil)
	assert.ErrorIs(t, err, ErrNoEncoder)
}

func TestCurrentBeforeBuild(t *testing.T) {
	m, err := New(newSource(), newGatedEncoder())
	require.NoError(t, err)

	_, err = m.Current("v4")
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = m.Current("v9")
	assert.ErrorIs(t, err, ErrUnknownDataset)
	_, err = m.Rebuild(context.Background(), "v9")
	assert.ErrorIs(t, err, ErrUnknownDataset)
	assert.Equal(t, []string{"v4"}, m.Datasets())
	assert.Empty(t, m.Snapshots())
}

func TestRebuildSwapsSnapshot(t *testing.T) {
	src := newSource()
	m, err := New(src, newGatedEncoder())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := m.Rebuild(ctx, "v4")
	require.NoError(t, err)
	cur, err := m.Current("v4")
	require.NoError(t, err)
	assert.Same(t, first, cur)
	assert.Equal(t, 4, first.Meta.Rows)
	assert.Equal(t, 2, first.Meta.AuxTexts, "empty auxiliary texts are dropped")
	assert.Equal(t, "maiz", first.Auxiliary.Text(0), "auxiliary texts are normalized")

	src.SetDataset("v4", entries("B"))
	second, err := m.Rebuild(ctx, "v4")
	require.NoError(t, err)
	cur, err = m.Current("v4")
	require.NoError(t, err)
	assert.Same(t, second, cur)
	assert.NotEqual(t, first.Meta.ID, second.Meta.ID)

	// a reader holding the old snapshot still sees a consistent old catalog
	_, _, ok := first.Catalog.Lookup("A0111")
	assert.True(t, ok)
	_, _, ok = second.Catalog.Lookup("A0111")
	assert.False(t, ok)

	assert.Equal(t, int64(2), m.Metrics().SuccessfulOps)
	assert.Equal(t, int64(8), m.Metrics().RowsBuilt)
	require.Len(t, m.Snapshots(), 1)
	assert.Equal(t, second.Meta.ID, m.Snapshots()[0].ID)
}

func TestRebuildCollisionKeepsPreviousSnapshot(t *testing.T) {
	collide := func(code string) indexing.VectorID {
		if strings.HasPrefix(code, "X") {
			return 42
		}
		return indexing.HashCode(code)
	}
	src := newSource()
	enc := newGatedEncoder()
	m, err := New(src, enc, WithCodeHasher(collide))
	require.NoError(t, err)
	ctx := context.Background()

	before, err := m.Rebuild(ctx, "v4")
	require.NoError(t, err)

	src.SetDataset("v4", append(entries("A"),
		catalog.Entry{Code: "X1", RawDescription: "uno", Category: catalog.CategoryActividad},
		catalog.Entry{Code: "X2", RawDescription: "dos", Category: catalog.CategoryActividad},
	))
	_, err = m.Rebuild(ctx, "v4")
	require.ErrorIs(t, err, indexing.ErrDuplicateID)

	cur, err := m.Current("v4")
	require.NoError(t, err)
	assert.Same(t, before, cur)
	assert.Equal(t, int64(1), m.Metrics().FailedOps)

	s := retrieval.NewSearcher(m, enc)
	results, err := s.Search(ctx, "v4", retrieval.Request{
		Text: "cultivo de maiz", TopN: 1, Category: catalog.CategoryAll, Threshold: 0.3,
	})
	require.NoError(t, err)
	assert.Equal(t, "A0111", results[0].Code)
}

func TestRebuildLoadFailureKeepsPreviousSnapshot(t *testing.T) {
	src := newSource()
	m, err := New(src, newGatedEncoder())
	require.NoError(t, err)
	before, err := m.Rebuild(context.Background(), "v4")
	require.NoError(t, err)

	src.SetDataset("v4", nil)
	_, err = m.Rebuild(context.Background(), "v4")
	require.ErrorIs(t, err, catalog.ErrEmptyCatalog)

	cur, err := m.Current("v4")
	require.NoError(t, err)
	assert.Same(t, before, cur)
}

func TestRebuildZeroVectorKeepsPreviousSnapshot(t *testing.T) {
	src := newSource()
	m, err := New(src, newGatedEncoder())
	require.NoError(t, err)
	before, err := m.Rebuild(context.Background(), "v4")
	require.NoError(t, err)

	// punctuation survives normalization but carries no lexical token
	src.SetDataset("v4", append(entries("A"),
		catalog.Entry{Code: "A09", RawDescription: "...", Category: catalog.CategoryActividad},
	))
	_, err = m.Rebuild(context.Background(), "v4")
	require.ErrorIs(t, err, indexing.ErrZeroVector)

	cur, err := m.Current("v4")
	require.NoError(t, err)
	assert.Same(t, before, cur)
	for i := 0; i < cur.Index.Len(); i++ {
		assert.InDelta(t, 1.0, indexing.Norm(cur.Index.Vector(i)), 1e-5)
	}
}

func TestConcurrentRebuildRejected(t *testing.T) {
	enc := newGatedEncoder()
	m, err := New(newSource(), enc)
	require.NoError(t, err)

	entered, release := enc.hold()
	done := make(chan error, 1)
	go func() {
		_, err := m.Rebuild(context.Background(), "v4")
		done <- err
	}()
	<-entered

	_, err = m.Rebuild(context.Background(), "v4")
	assert.ErrorIs(t, err, ErrRebuildInProgress)

	release()
	require.NoError(t, <-done)
	_, err = m.Current("v4")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), m.Metrics().Rejected)
}

func TestSearchesDuringRebuildSeeOneSnapshot(t *testing.T) {
	src := newSource()
	enc := newGatedEncoder()
	m, err := New(src, enc)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = m.Rebuild(ctx, "v4")
	require.NoError(t, err)

	s := retrieval.NewSearcher(m, enc)
	req := retrieval.Request{Text: "cultivo de maiz", TopN: 4, Category: catalog.CategoryAll, Threshold: 0}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				results, err := s.Search(ctx, "v4", req)
				if !assert.NoError(t, err) {
					return
				}
				prefix := results[0].Code[:1]
				for _, r := range results {
					assert.Equal(t, prefix, r.Code[:1], "results mix two snapshots")
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		prefix := "A"
		if i%2 == 0 {
			prefix = "B"
		}
		src.SetDataset("v4", entries(prefix))
		_, err := m.Rebuild(ctx, "v4")
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}

type failingSource struct {
	*catalog.StaticSource
	fail string
}

func (f failingSource) LoadCatalog(ctx context.Context, dataset string) (*catalog.Catalog, error) {
	if dataset == f.fail {
		return nil, errors.New("spreadsheet is corrupt")
	}
	return f.StaticSource.LoadCatalog(ctx, dataset)
}

func TestRebuildAll(t *testing.T) {
	static := newSource()
	static.SetDataset("v2", entries("C"))
	static.SetDataset("v3", entries("D"))
	src := failingSource{StaticSource: static, fail: "v3"}
	enc := newGatedEncoder()
	m, err := New(src, enc, WithWorkers(2))
	require.NoError(t, err)

	sum, err := m.RebuildAll(context.Background())
	require.NoError(t, err)
	require.Len(t, sum.Datasets, 3)

	assert.NoError(t, sum.Datasets["v4"].Err)
	assert.Equal(t, 4, sum.Datasets["v4"].Rows)
	assert.NoError(t, sum.Datasets["v2"].Err)
	assert.Error(t, sum.Datasets["v3"].Err)
	require.Error(t, sum.Err())
	assert.Contains(t, sum.Err().Error(), "v3")

	for _, name := range []string{"v2", "v4"} {
		snap, err := m.Current(name)
		require.NoError(t, err)
		assert.Equal(t, sum.Datasets[name].SnapshotID, snap.Meta.ID)
	}
	_, err = m.Current("v3")
	assert.ErrorIs(t, err, ErrNotReady)

	// two catalogs of four rows plus the two auxiliary texts, encoded once
	assert.Equal(t, int64(4+4+2), enc.texts.Load())

	v2, _ := m.Current("v2")
	v4, _ := m.Current("v4")
	assert.Same(t, v2.Auxiliary, v4.Auxiliary, "datasets share one auxiliary corpus")
}

func TestAuxiliaryDisabled(t *testing.T) {
	enc := newGatedEncoder()
	m, err := New(newSource(), enc, WithAuxiliary(false))
	require.NoError(t, err)

	snap, err := m.Rebuild(context.Background(), "v4")
	require.NoError(t, err)
	assert.True(t, snap.Auxiliary.Empty())
	assert.Equal(t, int64(4), enc.texts.Load())
}

func TestRebuildHonoursCancellation(t *testing.T) {
	m, err := New(newSource(), newGatedEncoder())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err = m.Rebuild(ctx, "v4")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
