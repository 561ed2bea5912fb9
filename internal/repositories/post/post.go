package post

import (
	"context"

	"github.com/newspulse/feed-enricher/internal/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=post.go -destination=mocks/mock.go -package=mocks
type Repository interface {
	// CreateBatch appends posts for one article. Post rows are never
	// updated after creation. Returns the number of rows inserted.
	CreateBatch(ctx context.Context, articleID int64, posts []domain.Post) (int64, error)

	// GetByArticleID returns all posts stored for an article.
	GetByArticleID(ctx context.Context, articleID int64) ([]*domain.Post, error)
}
