package enrich

import (
	"context"
	"errors"
)

// ErrNoSummary is reported when the summarization service answered but could
// not produce usable text. Callers leave the enrichment field empty; the
// backlog query re-selects the item on a later cycle.
var ErrNoSummary = errors.New("no usable summary produced")

// Summarizer is the request/response contract to the summarization and
// social-post digest services.
type Summarizer interface {
	// SummarizeArticle asks for a short synopsis of the article behind url.
	SummarizeArticle(ctx context.Context, url string) (string, error)

	// DigestPosts asks for a digest of the public reaction captured in the
	// deduplicated post texts for an item titled title.
	DigestPosts(ctx context.Context, title string, texts []string) (string, error)
}
