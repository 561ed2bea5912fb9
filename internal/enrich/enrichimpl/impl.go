package enrichimpl

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/newspulse/feed-enricher/internal/enrich"
	"github.com/newspulse/feed-enricher/pkg/config"
	"github.com/newspulse/feed-enricher/pkg/logger"
	"go.uber.org/fx"
)

// Summary responses carrying one of these are treated as failures, not text.
var trivialSummaries = map[string]struct{}{
	"":                                    {},
	"No article text could be extracted.": {},
	"Summary failed":                      {},
}

type SummarizerImpl struct {
	client *resty.Client
	logger logger.Logger
}

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

func NewSummarizer(opts Opts) *SummarizerImpl {
	return &SummarizerImpl{
		client: resty.New().
			SetBaseURL(opts.Config.Enrich.SummaryAPIURL).
			SetTimeout(time.Duration(opts.Config.Enrich.TimeoutSec) * time.Second),
		logger: opts.Logger.WithComponent("Summarizer"),
	}
}

var _ enrich.Summarizer = (*SummarizerImpl)(nil)

type summaryResponse struct {
	Summary string `json:"summary"`
	Error   string `json:"error"`
}

func (s *SummarizerImpl) SummarizeArticle(ctx context.Context, url string) (string, error) {
	return s.post(ctx, "/news/summarize", map[string]any{"url": url})
}

func (s *SummarizerImpl) DigestPosts(ctx context.Context, title string, texts []string) (string, error) {
	return s.post(ctx, "/posts/digest", map[string]any{"title": title, "texts": texts})
}

func (s *SummarizerImpl) post(ctx context.Context, path string, payload map[string]any) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&summaryResponse{}).
		Post(path)
	if err != nil {
		return "", fmt.Errorf("summary request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("summary API returned status %s", resp.Status())
	}

	body, ok := resp.Result().(*summaryResponse)
	if !ok {
		return "", fmt.Errorf("unexpected summary response body")
	}
	if body.Error != "" {
		s.logger.Warn("Summarization service reported an error", "error", body.Error)
		return "", enrich.ErrNoSummary
	}

	summary := strings.TrimSpace(body.Summary)
	if _, trivial := trivialSummaries[summary]; trivial {
		return "", enrich.ErrNoSummary
	}
	return summary, nil
}
