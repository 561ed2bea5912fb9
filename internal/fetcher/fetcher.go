package fetcher

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/newspulse/feed-enricher/internal/domain"
	"github.com/newspulse/feed-enricher/internal/social"
	"github.com/newspulse/feed-enricher/pkg/config"
	"github.com/newspulse/feed-enricher/pkg/logger"
	"github.com/newspulse/feed-enricher/pkg/retry"
	"go.uber.org/fx"
)

const (
	// maxAttempts bounds consecutive recoveries (backoffs in Paging,
	// rejections in Searching) before the run terminates with whatever
	// was accumulated.
	maxAttempts = 10

	// notFoundDelay is the fixed wait before retrying a 404 rejection.
	notFoundDelay = 5 * time.Second
)

// fetchCursor is the ephemeral state of one pagination run.
type fetchCursor struct {
	posts    []domain.Post
	attempts int
	sawEmpty bool
}

type Opts struct {
	fx.In

	Social social.Client
	Logger logger.Logger
	Config *config.Config
}

// Fetcher retrieves a bounded batch of posts per topic, honoring the search
// API's cooperative rate-limit protocol.
type Fetcher struct {
	social    social.Client
	logger    logger.Logger
	jitterMin time.Duration
	jitterMax time.Duration

	// sleep and jitter are swapped out in tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

func New(opts Opts) *Fetcher {
	f := &Fetcher{
		social:    opts.Social,
		logger:    opts.Logger.WithComponent("Fetcher"),
		jitterMin: time.Duration(opts.Config.Social.JitterMinSeconds) * time.Second,
		jitterMax: time.Duration(opts.Config.Social.JitterMaxSeconds) * time.Second,
		sleep:     sleepContext,
	}
	f.jitter = f.randomJitter
	return f
}

// Fetch returns up to cap posts for topic, in acquisition order. Partial
// results are valid: exhausting the attempt budget or observing an empty
// page terminates the run with whatever was accumulated. The whole call is
// additionally retried with exponential backoff, but only when the initial
// search itself stayed rate-limited.
func (f *Fetcher) Fetch(ctx context.Context, topic string, cap int) ([]domain.Post, error) {
	var posts []domain.Post

	err := retry.Do(ctx, f.logger, "fetch posts", func() error {
		var ferr error
		posts, ferr = f.fetchOnce(ctx, topic, cap)
		if ferr != nil {
			var rl *social.RateLimitError
			if errors.As(ferr, &rl) {
				return ferr
			}
			return backoff.Permanent(ferr)
		}
		return nil
	}, retry.EnrichmentConfig())

	return posts, err
}

func (f *Fetcher) fetchOnce(ctx context.Context, topic string, cap int) ([]domain.Post, error) {
	cur := &fetchCursor{}

	page, err := f.search(ctx, topic, cur)
	if err != nil {
		return truncate(cur.posts, cap), err
	}
	if page == nil {
		// Searching exhausted its budget on 404s.
		return truncate(cur.posts, cap), nil
	}

	cur.posts = append(cur.posts, page.Posts()...)
	f.logger.Info("Initial batch fetched", "topic", topic, "count", len(cur.posts))

	if err := f.paginate(ctx, page, cur, cap); err != nil {
		return truncate(cur.posts, cap), err
	}

	return truncate(cur.posts, cap), nil
}

// search runs the Searching state: retry 404s after a short fixed delay and
// rate limits after a cooperative backoff, both within the attempt budget.
// A nil page with nil error means the budget ran out on 404s.
func (f *Fetcher) search(ctx context.Context, topic string, cur *fetchCursor) (social.Page, error) {
	for {
		page, err := f.social.Search(ctx, topic, social.ProductTop)
		if err == nil {
			return page, nil
		}

		var rl *social.RateLimitError
		switch {
		case errors.As(err, &rl):
			if cur.attempts >= maxAttempts {
				return nil, err
			}
			if serr := f.backoff(ctx, rl, cur); serr != nil {
				return nil, serr
			}
		case errors.Is(err, social.ErrNotFound):
			if cur.attempts >= maxAttempts {
				return nil, nil
			}
			cur.attempts++
			f.logger.Warn("No results yet, retrying search", "topic", topic)
			if serr := f.sleep(ctx, notFoundDelay); serr != nil {
				return nil, serr
			}
		default:
			return nil, err
		}
	}
}

// paginate runs the Paging state: jitter-sleep between page requests, stop
// on an empty page, back off cooperatively on rate limits, and retry 404s
// without charging the attempt budget.
func (f *Fetcher) paginate(ctx context.Context, page social.Page, cur *fetchCursor, cap int) error {
	for len(cur.posts) < cap && cur.attempts < maxAttempts && !cur.sawEmpty {
		wait := f.jitter()
		f.logger.Debug("Sleeping between pages", "duration", wait.String())
		if err := f.sleep(ctx, wait); err != nil {
			return err
		}

		next, err := page.Next(ctx)
		if err != nil {
			var rl *social.RateLimitError
			switch {
			case errors.As(err, &rl):
				if serr := f.backoff(ctx, rl, cur); serr != nil {
					return serr
				}
			case errors.Is(err, social.ErrNotFound):
				if serr := f.sleep(ctx, notFoundDelay); serr != nil {
					return serr
				}
			default:
				return err
			}
			continue
		}

		batch := next.Posts()
		if len(batch) == 0 {
			cur.sawEmpty = true
			f.logger.Info("No more posts found", "total", len(cur.posts))
			break
		}

		cur.posts = append(cur.posts, batch...)
		cur.attempts = 0
		page = next
		f.logger.Info("New batch fetched", "batch", len(batch), "total", len(cur.posts))
	}
	return nil
}

// backoff honors a cooperative rate-limit rejection: sleep until one second
// past the reset time named by the rejection itself, then charge the
// attempt budget.
func (f *Fetcher) backoff(ctx context.Context, rl *social.RateLimitError, cur *fetchCursor) error {
	wait := time.Until(rl.ResetAt) + time.Second
	if wait < 0 {
		wait = 0
	}
	f.logger.Warn("Rate limit exceeded, waiting for reset",
		"reset_at", rl.ResetAt.Format(time.RFC3339),
		"wait", wait.Round(time.Second).String(),
	)
	cur.attempts++
	return f.sleep(ctx, wait)
}

func (f *Fetcher) randomJitter() time.Duration {
	if f.jitterMax <= f.jitterMin {
		return f.jitterMin
	}
	return f.jitterMin + time.Duration(rand.Int63n(int64(f.jitterMax-f.jitterMin)))
}

func truncate(posts []domain.Post, cap int) []domain.Post {
	if cap >= 0 && len(posts) > cap {
		return posts[:cap]
	}
	return posts
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
