package syncerimpl

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/newspulse/feed-enricher/internal/domain"
	"github.com/newspulse/feed-enricher/internal/enrich"
	"github.com/newspulse/feed-enricher/pkg/config"
	"github.com/newspulse/feed-enricher/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeArticleRepo mimics the skip-on-conflict semantics of the articles
// table over the (title, weblink) natural key.
type fakeArticleRepo struct {
	mu     sync.Mutex
	items  []*domain.Item
	nextID int64
}

func (f *fakeArticleRepo) find(match func(*domain.Item) bool) *domain.Item {
	for _, it := range f.items {
		if match(it) {
			return it
		}
	}
	return nil
}

func (f *fakeArticleRepo) UpsertBatch(_ context.Context, items []domain.Item) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var inserted int64
	for _, item := range items {
		item := item
		exists := f.find(func(it *domain.Item) bool {
			return it.Title == item.Title && it.WebLink == item.WebLink
		})
		if exists != nil {
			continue
		}
		f.nextID++
		item.ID = f.nextID
		f.items = append(f.items, &item)
		inserted++
	}
	return inserted, nil
}

func (f *fakeArticleRepo) LinksMissingNewsSummary(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var links []string
	for _, it := range f.items {
		if strings.TrimSpace(it.NewsSummary) == "" {
			links = append(links, it.WebLink)
		}
	}
	return links, nil
}

func (f *fakeArticleRepo) TitlesMissingTweetSummary(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var titles []string
	for _, it := range f.items {
		if strings.TrimSpace(it.TweetSummary) == "" {
			titles = append(titles, it.Title)
		}
	}
	return titles, nil
}

func (f *fakeArticleRepo) SetNewsSummary(_ context.Context, weblink, summary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	it := f.find(func(it *domain.Item) bool { return it.WebLink == weblink })
	if it == nil {
		return errors.New("article not found")
	}
	it.NewsSummary = summary
	return nil
}

func (f *fakeArticleRepo) SetTweetSummary(_ context.Context, title, digest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	it := f.find(func(it *domain.Item) bool { return it.Title == title })
	if it == nil {
		return errors.New("article not found")
	}
	it.TweetSummary = digest
	return nil
}

func (f *fakeArticleRepo) IDsByTitle(context.Context) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make(map[string]int64, len(f.items))
	for _, it := range f.items {
		ids[it.Title] = it.ID
	}
	return ids, nil
}

func (f *fakeArticleRepo) byTitle(title string) *domain.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(it *domain.Item) bool { return it.Title == title })
}

type fakePostRepo struct {
	mu    sync.Mutex
	posts map[int64][]domain.Post
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[int64][]domain.Post)}
}

func (f *fakePostRepo) CreateBatch(_ context.Context, articleID int64, posts []domain.Post) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[articleID] = append(f.posts[articleID], posts...)
	return int64(len(posts)), nil
}

func (f *fakePostRepo) GetByArticleID(_ context.Context, articleID int64) ([]*domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Post
	for i := range f.posts[articleID] {
		out = append(out, &f.posts[articleID][i])
	}
	return out, nil
}

type fakeFeed struct {
	items []domain.Item
	err   error
}

func (f *fakeFeed) Fetch(context.Context, string) ([]domain.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	fetch func(topic string) ([]domain.Post, error)
}

func (f *fakeFetcher) Fetch(_ context.Context, topic string, _ int) ([]domain.Post, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fetch(topic)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSummarizer struct {
	summarize func(url string) (string, error)
	digest    func(title string, texts []string) (string, error)
}

func (f *fakeSummarizer) SummarizeArticle(_ context.Context, url string) (string, error) {
	return f.summarize(url)
}

func (f *fakeSummarizer) DigestPosts(_ context.Context, title string, texts []string) (string, error) {
	return f.digest(title, texts)
}

type fakeEmbedder struct {
	vectors map[string][]float64
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for _, t := range texts {
		v, ok := f.vectors[t]
		if !ok {
			return nil, errors.New("no vector for text: " + t)
		}
		out = append(out, v)
	}
	return out, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Feed.URLs = "http://feeds.example.com/rss"
	cfg.Social.PostFetchCap = 20
	cfg.Enrich.DedupEps = 0.25
	return cfg
}

func newTestSyncer(feedC *fakeFeed, fetcher *fakeFetcher, summarizer *fakeSummarizer,
	embedder *fakeEmbedder, articles *fakeArticleRepo, posts *fakePostRepo) *SyncerImpl {
	return &SyncerImpl{
		Feed:        feedC,
		Fetcher:     fetcher,
		Summarizer:  summarizer,
		Embedder:    embedder,
		ArticleRepo: articles,
		PostRepo:    posts,
		Logger:      logger.New(logger.Opts{}),
		Config:      testConfig(),
	}
}

func TestCycleEndToEnd(t *testing.T) {
	articles := &fakeArticleRepo{}
	posts := newFakePostRepo()

	feedC := &fakeFeed{items: []domain.Item{
		{Title: "A", WebLink: "http://x/a", Summary: "editorial"},
	}}

	summarizer := &fakeSummarizer{
		summarize: func(string) (string, error) { return "S", nil },
		digest:    func(string, []string) (string, error) { return "D", nil },
	}

	// Three raw posts: the first two are near-duplicates, the third is not.
	rawPosts := []domain.Post{
		{Text: "Interest RATES are rising again today https://x.co/1 @econ", Likes: 10},
		{Text: "Interest rates rising once again today", Likes: 20},
		{Text: "Completely different sports story about the final", Likes: 30},
	}
	fetcher := &fakeFetcher{fetch: func(string) ([]domain.Post, error) {
		return rawPosts, nil
	}}

	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"interest rates are rising again today":             {1, 0},
		"interest rates rising once again today":            {1, 0},
		"completely different sports story about the final": {0, 1},
	}}

	s := newTestSyncer(feedC, fetcher, summarizer, embedder, articles, posts)
	s.RunCycle(context.Background())

	item := articles.byTitle("A")
	require.NotNil(t, item)
	assert.Equal(t, "S", item.NewsSummary)
	assert.Equal(t, "D", item.TweetSummary)

	stored, err := posts.GetByArticleID(context.Background(), item.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2, "near-duplicates must collapse to one representative")
	assert.Equal(t, "interest rates are rising again today", stored[0].Text)
	assert.Equal(t, 10, stored[0].Likes)
	assert.Equal(t, "completely different sports story about the final", stored[1].Text)
	assert.Equal(t, 30, stored[1].Likes)

	// A second cycle finds nothing in the backlog and never re-fetches.
	s.RunCycle(context.Background())
	assert.Equal(t, 1, fetcher.callCount())
	stored, err = posts.GetByArticleID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestIngestionIdempotence(t *testing.T) {
	articles := &fakeArticleRepo{}
	posts := newFakePostRepo()

	feedC := &fakeFeed{items: []domain.Item{
		{Title: "A", WebLink: "http://x/a", Summary: "first version"},
		{Title: "B", WebLink: "http://x/b", Summary: "second entry"},
	}}

	summarizer := &fakeSummarizer{
		summarize: func(string) (string, error) { return "S", nil },
		digest:    func(string, []string) (string, error) { return "D", nil },
	}
	fetcher := &fakeFetcher{fetch: func(string) ([]domain.Post, error) {
		return nil, errors.New("search down")
	}}

	s := newTestSyncer(feedC, fetcher, summarizer, &fakeEmbedder{}, articles, posts)
	s.RunCycle(context.Background())

	require.Len(t, articles.items, 2)

	// Same natural keys with different editorial summaries: the stored
	// rows must not change.
	feedC.items = []domain.Item{
		{Title: "A", WebLink: "http://x/a", Summary: "rewritten"},
		{Title: "B", WebLink: "http://x/b", Summary: "also rewritten"},
	}
	s.RunCycle(context.Background())

	require.Len(t, articles.items, 2)
	assert.Equal(t, "first version", articles.byTitle("A").Summary)
	assert.Equal(t, "second entry", articles.byTitle("B").Summary)
}

func TestPartialFailureIsolation(t *testing.T) {
	articles := &fakeArticleRepo{}
	posts := newFakePostRepo()

	feedC := &fakeFeed{items: []domain.Item{
		{Title: "first story", WebLink: "http://x/1"},
		{Title: "second story", WebLink: "http://x/2"},
	}}

	summarizer := &fakeSummarizer{
		summarize: func(url string) (string, error) {
			if url == "http://x/1" {
				return "", enrich.ErrNoSummary
			}
			return "S2", nil
		},
		digest: func(string, []string) (string, error) { return "D", nil },
	}

	fetcher := &fakeFetcher{fetch: func(topic string) ([]domain.Post, error) {
		if topic == "first story" {
			return nil, errors.New("rate limited until tomorrow")
		}
		return []domain.Post{
			{Text: "plenty of words in this perfectly valid post", Likes: 7},
		}, nil
	}}

	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"plenty of words in this perfectly valid post": {1, 0},
	}}

	s := newTestSyncer(feedC, fetcher, summarizer, embedder, articles, posts)
	s.RunCycle(context.Background())

	first := articles.byTitle("first story")
	second := articles.byTitle("second story")
	require.NotNil(t, first)
	require.NotNil(t, second)

	assert.Empty(t, first.NewsSummary, "failed item keeps its empty summary for the next cycle")
	assert.Equal(t, "S2", second.NewsSummary)

	assert.Equal(t, NoSummarySentinel, first.TweetSummary)
	stored, err := posts.GetByArticleID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Empty(t, stored, "failed fetch records zero posts")

	stored, err = posts.GetByArticleID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestFeedFailureSkipsCycleIngestion(t *testing.T) {
	articles := &fakeArticleRepo{}
	posts := newFakePostRepo()

	feedC := &fakeFeed{err: errors.New("malformed document")}
	summarizer := &fakeSummarizer{
		summarize: func(string) (string, error) { return "S", nil },
		digest:    func(string, []string) (string, error) { return "D", nil },
	}
	fetcher := &fakeFetcher{fetch: func(string) ([]domain.Post, error) { return nil, nil }}

	s := newTestSyncer(feedC, fetcher, summarizer, &fakeEmbedder{}, articles, posts)
	s.RunCycle(context.Background())

	assert.Empty(t, articles.items)
	assert.Equal(t, 0, fetcher.callCount())
}

func TestEntriesWithoutNaturalKeyAreSkipped(t *testing.T) {
	articles := &fakeArticleRepo{}
	posts := newFakePostRepo()

	feedC := &fakeFeed{items: []domain.Item{
		{Title: "", WebLink: "http://x/a"},
		{Title: "valid", WebLink: ""},
		{Title: "kept", WebLink: "http://x/c"},
	}}
	summarizer := &fakeSummarizer{
		summarize: func(string) (string, error) { return "S", nil },
		digest:    func(string, []string) (string, error) { return "D", nil },
	}
	fetcher := &fakeFetcher{fetch: func(string) ([]domain.Post, error) {
		return nil, errors.New("not relevant here")
	}}

	s := newTestSyncer(feedC, fetcher, summarizer, &fakeEmbedder{}, articles, posts)
	s.RunCycle(context.Background())

	require.Len(t, articles.items, 1)
	assert.Equal(t, "kept", articles.items[0].Title)
}
