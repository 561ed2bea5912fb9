package syncer

import (
	"context"

	"github.com/newspulse/feed-enricher/internal/domain"
)

// Client is the top-level sync orchestrator.
type Client interface {
	// ScheduleSync starts the poll loop: one full cycle per poll interval
	// until the context is cancelled.
	ScheduleSync(ctx context.Context) error

	// RunCycle executes one ingest-discover-enrich cycle.
	RunCycle(ctx context.Context)
}

// PostFetcher retrieves up to cap posts for a topic. Partial results with a
// non-nil error are possible; callers decide what to keep.
type PostFetcher interface {
	Fetch(ctx context.Context, topic string, cap int) ([]domain.Post, error)
}
