package enrichimpl

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/newspulse/feed-enricher/internal/dedup"
	"github.com/newspulse/feed-enricher/pkg/config"
	"github.com/newspulse/feed-enricher/pkg/logger"
	"go.uber.org/fx"
)

// EmbedderImpl calls the sentence-embedding endpoint used by deduplication.
type EmbedderImpl struct {
	client *resty.Client
	logger logger.Logger
}

type EmbedderOpts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

func NewEmbedder(opts EmbedderOpts) *EmbedderImpl {
	return &EmbedderImpl{
		client: resty.New().
			SetBaseURL(opts.Config.Enrich.EmbedAPIURL).
			SetTimeout(time.Duration(opts.Config.Enrich.TimeoutSec) * time.Second),
		logger: opts.Logger.WithComponent("Embedder"),
	}
}

var _ dedup.Embedder = (*EmbedderImpl)(nil)

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (e *EmbedderImpl) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"texts": texts}).
		SetResult(&embedResponse{}).
		Post("/embed")
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned status %s", resp.Status())
	}

	body, ok := resp.Result().(*embedResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected embedding response body")
	}
	return body.Embeddings, nil
}
