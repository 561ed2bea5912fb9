package feed

import (
	"context"

	"github.com/newspulse/feed-enricher/internal/domain"
)

// Client retrieves a syndication feed and maps its entries to Items.
type Client interface {
	Fetch(ctx context.Context, url string) ([]domain.Item, error)
}
