package butler

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/poiesic/butler/ai"
	"github.com/poiesic/butler/ai/mock"
	"github.com/poiesic/butler/assistant"
	"github.com/poiesic/butler/config"
	"github.com/poiesic/butler/core"
	"github.com/poiesic/butler/dispatch"
	"github.com/poiesic/butler/intent"
	"github.com/poiesic/butler/recipes"
	"github.com/poiesic/butler/warmup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type staticSource struct {
	recipes []core.Recipe
	err     error
	fetches atomic.Int32
}

func (s *staticSource) Fetch(context.Context) ([]core.Recipe, error) {
	s.fetches.Add(1)
	return s.recipes, s.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Recipes.CachePath = filepath.Join(t.TempDir(), "recipes.json")
	cfg.Recipes.Conversion = config.ConversionNone
	cfg.Cache.Enabled = true
	cfg.Cache.Dir = ""
	cfg.Assistant.Workers = 2
	return cfg
}

func testCorpus() *staticSource {
	return &staticSource{recipes: []core.Recipe{
		{Name: "番茄炒蛋", Description: "家常菜", Ingredients: "番茄、雞蛋"},
		{Name: "紅燒肉", Description: "經典", Ingredients: "五花肉"},
	}}
}

type fixture struct {
	butler   *Butler
	embedder *mock.MockEmbedder
	backends []*mock.MockBackend
	source   *staticSource
}

func newFixture(t *testing.T, cfg *config.Config, backends ...*mock.MockBackend) *fixture {
	t.Helper()
	if len(backends) == 0 {
		backends = []*mock.MockBackend{mock.NewMockBackend("primary", "生成結果")}
	}
	embedder := mock.NewMockEmbedder()
	source := testCorpus()
	b, err := New(context.Background(), cfg,
		WithProvider(mock.NewMockProviderWithServices(embedder, backends...)),
		WithRecipeSource(source),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return &fixture{butler: b, embedder: embedder, backends: backends, source: source}
}

func TestNew_Components(t *testing.T) {
	f := newFixture(t, testConfig(t))
	assert.NotNil(t, f.butler.Classifier())
	assert.NotNil(t, f.butler.Retriever())
	assert.NotNil(t, f.butler.Assistant())
	assert.Equal(t, []string{"primary"}, f.butler.Dispatcher().Backends())
	assert.NotNil(t, f.butler.backend, "embedding cache opened in memory")
}

func TestNew_CacheDirIsFile(t *testing.T) {
	cfg := testConfig(t)
	file := filepath.Join(t.TempDir(), "not_a_dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	cfg.Cache.Dir = file

	_, err := New(context.Background(), cfg, WithProvider(mock.NewMockProvider()))
	assert.Error(t, err)
}

func TestNew_NoBackends(t *testing.T) {
	p := mock.NewMockProviderWithServices(mock.NewMockEmbedder())
	_, err := New(context.Background(), testConfig(t), WithProvider(p))
	assert.ErrorIs(t, err, dispatch.ErrNoBackends)
}

func TestButler_ClassifyAndExtract(t *testing.T) {
	f := newFixture(t, testConfig(t))
	ctx := context.Background()

	c, err := f.butler.ClassifyAndExtract(ctx, "今天天氣如何")
	require.NoError(t, err)
	assert.Equal(t, core.IntentWeather, c.Intent)
	assert.InDelta(t, 1.0, c.Score, 1e-5)
	assert.Contains(t, c.Slots, core.SlotLocation)
	assert.Nil(t, c.Slots[core.SlotLocation])

	c, err = f.butler.ClassifyAndExtract(ctx, "asdkjalksd")
	require.NoError(t, err)
	assert.Equal(t, core.FallbackIntent, c.Intent)
	assert.Empty(t, c.Slots)
}

func TestButler_RetrievalIndependentOfClassification(t *testing.T) {
	f := newFixture(t, testConfig(t))
	ctx := context.Background()

	// Classification works before any corpus exists.
	c, err := f.butler.ClassifyAndExtract(ctx, "你好")
	require.NoError(t, err)
	assert.Equal(t, core.IntentGreeting, c.Intent)
	assert.False(t, f.butler.Retriever().Loaded())
	assert.Zero(t, f.source.fetches.Load())

	// Retrieval loads lazily without any classification call.
	match, err := f.butler.RetrieveDocument(ctx, "紅燒肉")
	require.NoError(t, err)
	assert.Equal(t, "紅燒肉", match.Recipe.Name)

	// Replacing the knowledge base leaves retrieval untouched.
	small := intent.KnowledgeBase{{Intent: core.IntentGreeting, Phrases: []string{"哈囉"}}}
	cfg := testConfig(t)
	cfg.Classifier.KnowledgeBase = small
	require.NoError(t, f.butler.Reconfigure(ctx, cfg))

	again, err := f.butler.RetrieveDocument(ctx, "紅燒肉")
	require.NoError(t, err)
	assert.Equal(t, match.Recipe.Name, again.Recipe.Name)
	assert.InDelta(t, match.Score, again.Score, 1e-6)
	assert.Equal(t, int32(1), f.source.fetches.Load())
}

func TestButler_TitlesFeedClassifier(t *testing.T) {
	f := newFixture(t, testConfig(t))
	ctx := context.Background()

	before, err := f.butler.ClassifyAndExtract(ctx, "番茄炒蛋")
	require.NoError(t, err)
	assert.Equal(t, core.FallbackIntent, before.Intent)

	require.NoError(t, f.butler.EnsureDocumentsLoaded(ctx))
	require.NoError(t, f.butler.EnsureDocumentsLoaded(ctx))
	assert.Equal(t, int32(1), f.source.fetches.Load())

	after, err := f.butler.ClassifyAndExtract(ctx, "番茄炒蛋")
	require.NoError(t, err)
	assert.Equal(t, core.IntentSearchRecipe, after.Intent)
	keyword, ok := after.Slot(core.SlotKeyword)
	require.True(t, ok)
	assert.Equal(t, "番茄炒蛋", keyword)
}

func TestButler_RetrieveDocument_Unavailable(t *testing.T) {
	f := newFixture(t, testConfig(t))
	f.source.err = errors.New("connection refused")

	_, err := f.butler.RetrieveDocument(context.Background(), "番茄炒蛋")
	assert.ErrorIs(t, err, recipes.ErrRetrievalUnavailable)
}

func TestButler_Generate_Failover(t *testing.T) {
	quota := mock.NewFailingBackend("a", llms.NewError(llms.ErrCodeQuotaExceeded, "googleai", "quota"))
	invalid := mock.NewFailingBackend("b", llms.NewError(llms.ErrCodeResourceNotFound, "googleai", "no such model"))
	ok := mock.NewMockBackend("c", "來自 C")
	f := newFixture(t, testConfig(t), quota, invalid, ok)

	text, err := f.butler.Generate(context.Background(), ai.TextPart("hi"))
	require.NoError(t, err)
	assert.Equal(t, "來自 C", text)
	assert.Equal(t, 1, quota.CallCount())
	assert.Equal(t, 1, invalid.CallCount())
	assert.Equal(t, 1, ok.CallCount())
}

func TestButler_Ask(t *testing.T) {
	f := newFixture(t, testConfig(t))
	ctx := context.Background()
	require.NoError(t, f.butler.EnsureDocumentsLoaded(ctx))

	reply, err := f.butler.Ask(ctx, assistant.Request{Text: "番茄炒蛋"})
	require.NoError(t, err)
	assert.Equal(t, core.IntentSearchRecipe, reply.Intent)
	assert.Equal(t, "生成結果", reply.Text)
	assert.Contains(t, f.backends[0].LastPrompt(), `"name":"番茄炒蛋"`)
}

func TestButler_WarmCache(t *testing.T) {
	cfg := testConfig(t)
	f := newFixture(t, cfg)
	ctx := context.Background()

	var out bytes.Buffer
	stats, err := f.butler.WarmCache(ctx, &out)
	require.NoError(t, err)
	want := len(warmup.Dedupe(append(cfg.Classifier.KnowledgeBase.Phrases(), "番茄炒蛋", "紅燒肉")))
	assert.Equal(t, want, stats.Texts)
	assert.Contains(t, out.String(), "Embedding:")

	embedded := f.embedder.TextCount()
	_, err = f.butler.ClassifyAndExtract(ctx, "今天天氣如何")
	require.NoError(t, err)
	assert.Equal(t, embedded, f.embedder.TextCount(), "index and query served from the warm cache")
}

func TestButler_Close(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	p := mock.NewMockProviderWithServices(embedder, mock.NewMockBackend("m", ""))
	b, err := New(context.Background(), testConfig(t), WithProvider(p))
	require.NoError(t, err)

	require.NoError(t, b.Close())
	assert.True(t, p.Closed())
	assert.Zero(t, p.GetMockEmbedder().CallCount(), "nothing is embedded until first use")
	assert.Zero(t, p.GetMockBackends()[0].CallCount())
	assert.True(t, b.backend.IsClosed())
}
