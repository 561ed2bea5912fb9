package article

import (
	"context"
	"errors"

	"github.com/newspulse/feed-enricher/internal/domain"
)

var ErrNotFound = errors.New("article not found")

//go:generate go run go.uber.org/mock/mockgen -source=article.go -destination=mocks/mock.go -package=mocks
type Repository interface {
	// UpsertBatch inserts items, skipping any whose (title, weblink) key
	// already exists. Enrichment columns of existing rows are never touched.
	// Returns the number of rows actually inserted.
	UpsertBatch(ctx context.Context, items []domain.Item) (int64, error)

	// LinksMissingNewsSummary returns weblinks of articles whose news
	// summary is NULL or blank.
	LinksMissingNewsSummary(ctx context.Context) ([]string, error)

	// TitlesMissingTweetSummary returns titles of articles whose tweet
	// summary is NULL or blank.
	TitlesMissingTweetSummary(ctx context.Context) ([]string, error)

	// SetNewsSummary stores the synopsis for the article with this weblink.
	SetNewsSummary(ctx context.Context, weblink, summary string) error

	// SetTweetSummary stores the post digest for the article with this title.
	SetTweetSummary(ctx context.Context, title, digest string) error

	// IDsByTitle maps article titles to their ids.
	IDsByTitle(ctx context.Context) (map[string]int64, error)
}
