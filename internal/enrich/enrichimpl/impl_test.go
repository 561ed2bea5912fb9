package enrichimpl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/newspulse/feed-enricher/internal/enrich"
	"github.com/newspulse/feed-enricher/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSummarizer(baseURL string) *SummarizerImpl {
	return &SummarizerImpl{
		client: resty.New().SetBaseURL(baseURL),
		logger: logger.New(logger.Opts{}),
	}
}

func newTestEmbedder(baseURL string) *EmbedderImpl {
	return &EmbedderImpl{
		client: resty.New().SetBaseURL(baseURL),
		logger: logger.New(logger.Opts{}),
	}
}

func summaryServer(t *testing.T, status int, body map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
}

func TestSummarizeArticle(t *testing.T) {
	srv := summaryServer(t, http.StatusOK, map[string]any{"summary": "  Concise synopsis.  "})
	defer srv.Close()

	got, err := newTestSummarizer(srv.URL).SummarizeArticle(context.Background(), "http://x/a")
	require.NoError(t, err)
	assert.Equal(t, "Concise synopsis.", got)
}

func TestSummarizeArticleTrivialResponses(t *testing.T) {
	for _, trivial := range []string{"", "No article text could be extracted.", "Summary failed", "  Summary failed  "} {
		srv := summaryServer(t, http.StatusOK, map[string]any{"summary": trivial})

		_, err := newTestSummarizer(srv.URL).SummarizeArticle(context.Background(), "http://x/a")
		assert.ErrorIs(t, err, enrich.ErrNoSummary, "summary %q must be rejected", trivial)
		srv.Close()
	}
}

func TestSummarizeArticleServiceError(t *testing.T) {
	srv := summaryServer(t, http.StatusOK, map[string]any{"error": "download failed"})
	defer srv.Close()

	_, err := newTestSummarizer(srv.URL).SummarizeArticle(context.Background(), "http://x/a")
	assert.ErrorIs(t, err, enrich.ErrNoSummary)
}

func TestSummarizeArticleBadStatus(t *testing.T) {
	srv := summaryServer(t, http.StatusBadGateway, map[string]any{})
	defer srv.Close()

	_, err := newTestSummarizer(srv.URL).SummarizeArticle(context.Background(), "http://x/a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, enrich.ErrNoSummary, "transport failures stay retryable")
}

func TestDigestPostsSendsTitleAndTexts(t *testing.T) {
	var payload struct {
		Title string   `json:"title"`
		Texts []string `json:"texts"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/posts/digest", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"summary": "People are talking."})
	}))
	defer srv.Close()

	got, err := newTestSummarizer(srv.URL).DigestPosts(context.Background(),
		"Rates rise again", []string{"first post", "second post"})
	require.NoError(t, err)

	assert.Equal(t, "People are talking.", got)
	assert.Equal(t, "Rates rise again", payload.Title)
	assert.Equal(t, []string{"first post", "second post"}, payload.Texts)
}

func TestEmbed(t *testing.T) {
	var payload struct {
		Texts []string `json:"texts"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float64{{1, 0}, {0, 1}},
		})
	}))
	defer srv.Close()

	got, err := newTestEmbedder(srv.URL).Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, got)
	assert.Equal(t, []string{"a", "b"}, payload.Texts)
}

func TestEmbedBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestEmbedder(srv.URL).Embed(context.Background(), []string{"a"})
	assert.Error(t, err)
}
