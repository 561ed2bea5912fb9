package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newspulse/feed-enricher/internal/domain"
)

// ErrNotFound is returned when the search API has no posts for a query.
var ErrNotFound = errors.New("no posts found for query")

// RateLimitError is the cooperative rate-limit rejection: the server names
// the time at which the caller may retry.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited until %s", e.ResetAt.Format(time.RFC3339))
}

// Product selects the search ranking requested from the API.
type Product string

const ProductTop Product = "Top"

//go:generate go run go.uber.org/mock/mockgen -source=social.go -destination=mocks/mock.go -package=mocks

// Client is the post-search collaborator consumed by the paginator. The
// underlying authenticated session is constructed once at process start and
// shared for the process lifetime.
type Client interface {
	Search(ctx context.Context, query string, product Product) (Page, error)
}

// Page is one page of search results. Next requests the following page from
// the server-side cursor; an empty Posts slice on the returned page means
// the result set is exhausted.
type Page interface {
	Posts() []domain.Post
	Next(ctx context.Context) (Page, error)
}
