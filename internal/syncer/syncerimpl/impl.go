package syncerimpl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-co-op/gocron/v2"
	"github.com/newspulse/feed-enricher/internal/dedup"
	"github.com/newspulse/feed-enricher/internal/domain"
	"github.com/newspulse/feed-enricher/internal/enrich"
	"github.com/newspulse/feed-enricher/internal/feed"
	"github.com/newspulse/feed-enricher/internal/repositories/article"
	"github.com/newspulse/feed-enricher/internal/repositories/post"
	"github.com/newspulse/feed-enricher/internal/syncer"
	"github.com/newspulse/feed-enricher/internal/textproc"
	"github.com/newspulse/feed-enricher/pkg/config"
	"github.com/newspulse/feed-enricher/pkg/logger"
	"github.com/newspulse/feed-enricher/pkg/retry"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

// NoSummarySentinel marks items whose posts enrichment failed; it keeps the
// item out of the backlog instead of retrying it every cycle.
const NoSummarySentinel = "No summary available"

type Opts struct {
	fx.In

	Feed        feed.Client
	Fetcher     syncer.PostFetcher
	Summarizer  enrich.Summarizer
	Embedder    dedup.Embedder
	ArticleRepo article.Repository
	PostRepo    post.Repository
	Logger      logger.Logger
	Config      *config.Config
}

type SyncerImpl struct {
	Feed        feed.Client
	Fetcher     syncer.PostFetcher
	Summarizer  enrich.Summarizer
	Embedder    dedup.Embedder
	ArticleRepo article.Repository
	PostRepo    post.Repository
	Logger      logger.Logger
	Config      *config.Config

	scheduler gocron.Scheduler
}

func New(opts Opts) *SyncerImpl {
	return &SyncerImpl{
		Feed:        opts.Feed,
		Fetcher:     opts.Fetcher,
		Summarizer:  opts.Summarizer,
		Embedder:    opts.Embedder,
		ArticleRepo: opts.ArticleRepo,
		PostRepo:    opts.PostRepo,
		Logger:      opts.Logger.WithComponent("Syncer"),
		Config:      opts.Config,
	}
}

var _ syncer.Client = (*SyncerImpl)(nil)

// ScheduleSync runs one cycle per poll interval. Singleton mode guarantees a
// slow cycle is never overlapped by the next one.
func (s *SyncerImpl) ScheduleSync(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create sync scheduler: %w", err)
	}
	s.scheduler = scheduler

	interval := time.Duration(s.Config.Feed.PollInterval) * time.Second
	s.Logger.Info("Setting up sync schedule", "interval", interval.String())

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				return
			}
			s.RunCycle(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule sync cycle: %w", err)
	}

	scheduler.Start()

	go func() {
		<-ctx.Done()
		s.Logger.Info("Stopping sync scheduler")
		if err := scheduler.Shutdown(); err != nil {
			s.Logger.Error("Failed to shut down sync scheduler", "error", err)
		}
	}()

	return nil
}

// RunCycle ingests every configured feed, then runs the two enrichment
// passes concurrently and joins them before returning. Ingestion always
// commits before enrichment discovery reads.
func (s *SyncerImpl) RunCycle(ctx context.Context) {
	s.Logger.Info("Starting sync cycle")

	for _, url := range s.Config.FeedURLs() {
		s.ingestFeed(ctx, url)
	}

	links, err := s.ArticleRepo.LinksMissingNewsSummary(ctx)
	if err != nil {
		s.Logger.Error("Failed to query news-summary backlog", "error", err)
	}
	titles, err := s.ArticleRepo.TitlesMissingTweetSummary(ctx)
	if err != nil {
		s.Logger.Error("Failed to query tweet-summary backlog", "error", err)
	}

	// The two passes write disjoint columns of possibly-overlapping rows,
	// so they can interleave freely. Per-item failures are swallowed inside
	// each pass; the group only joins them.
	g := new(errgroup.Group)
	g.Go(func() error {
		s.runSummaryPass(ctx, links)
		return nil
	})
	g.Go(func() error {
		s.runPostsPass(ctx, titles)
		return nil
	})
	_ = g.Wait()

	s.Logger.Info("Sync cycle complete")
}

// ingestFeed upserts all entries of one feed. A parse failure skips this
// feed for the current cycle only.
func (s *SyncerImpl) ingestFeed(ctx context.Context, url string) {
	items, err := s.Feed.Fetch(ctx, url)
	if err != nil {
		s.Logger.Error("Failed to fetch feed, skipping this cycle", "url", url, "error", err)
		return
	}

	valid := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if item.Title == "" || item.WebLink == "" {
			s.Logger.Warn("Skipping entry without natural key", "title", item.Title, "link", item.WebLink)
			continue
		}
		valid = append(valid, item)
	}

	inserted, err := s.ArticleRepo.UpsertBatch(ctx, valid)
	if err != nil {
		s.Logger.Error("Failed to upsert feed entries", "url", url, "error", err)
		return
	}
	s.Logger.Info("Ingested feed", "url", url, "entries", len(valid), "inserted", inserted)
}

// runSummaryPass fills in missing news summaries. A failed item keeps its
// empty column and is re-selected by the backlog query next cycle.
func (s *SyncerImpl) runSummaryPass(ctx context.Context, links []string) {
	if len(links) == 0 {
		s.Logger.Info("No articles require news summaries")
		return
	}
	s.Logger.Info("Running summary pass", "backlog", len(links))

	for _, link := range links {
		if !strings.HasPrefix(link, "http") {
			s.Logger.Error("Invalid article link, skipping", "link", link)
			continue
		}

		var summary string
		err := retry.Do(ctx, s.Logger, "summarize article", func() error {
			var serr error
			summary, serr = s.Summarizer.SummarizeArticle(ctx, link)
			if errors.Is(serr, enrich.ErrNoSummary) {
				return backoff.Permanent(serr)
			}
			return serr
		}, retry.EnrichmentConfig())
		if err != nil {
			s.Logger.Warn("Summary not available, will retry next cycle", "link", link, "error", err)
			continue
		}

		if err := s.ArticleRepo.SetNewsSummary(ctx, link, summary); err != nil {
			s.Logger.Error("Failed to store news summary", "link", link, "error", err)
			continue
		}
		s.Logger.Info("Stored news summary", "link", link)
	}
}

// runPostsPass fills in missing post digests. One item's failure never
// blocks the others.
func (s *SyncerImpl) runPostsPass(ctx context.Context, titles []string) {
	if len(titles) == 0 {
		s.Logger.Info("No articles require post digests")
		return
	}
	s.Logger.Info("Running posts pass", "backlog", len(titles))

	ids, err := s.ArticleRepo.IDsByTitle(ctx)
	if err != nil {
		s.Logger.Error("Failed to map article ids", "error", err)
		return
	}

	for _, title := range titles {
		id, ok := ids[title]
		if !ok {
			s.Logger.Error("Article id not found for title", "title", title)
			continue
		}
		s.enrichPosts(ctx, id, title)
	}
}

func (s *SyncerImpl) enrichPosts(ctx context.Context, articleID int64, title string) {
	raw, err := s.Fetcher.Fetch(ctx, title, s.Config.Social.PostFetchCap)
	if err != nil {
		s.Logger.Warn("Post fetch failed, recording sentinel digest", "title", title, "error", err)
		s.recordSentinel(ctx, title)
		return
	}

	// Normalize each post in place and drop low-information ones, keeping
	// the engagement counts attached to their text.
	cleaned := make([]domain.Post, 0, len(raw))
	texts := make([]string, 0, len(raw))
	for _, p := range raw {
		p.Text = textproc.Normalize(p.Text)
		if !textproc.MeetsThresholds(p.Text, textproc.MinWords, textproc.MinChars) {
			continue
		}
		cleaned = append(cleaned, p)
		texts = append(texts, p.Text)
	}

	if len(cleaned) == 0 {
		s.Logger.Warn("No usable posts for title, recording sentinel digest", "title", title)
		s.recordSentinel(ctx, title)
		return
	}

	reps, err := dedup.Representatives(ctx, texts, s.Config.Enrich.DedupEps, s.Embedder)
	if err != nil {
		s.Logger.Warn("Deduplication failed, recording sentinel digest", "title", title, "error", err)
		s.recordSentinel(ctx, title)
		return
	}

	unique := make([]domain.Post, 0, len(reps))
	uniqueTexts := make([]string, 0, len(reps))
	for _, i := range reps {
		unique = append(unique, cleaned[i])
		uniqueTexts = append(uniqueTexts, texts[i])
	}

	digest, err := s.Summarizer.DigestPosts(ctx, title, uniqueTexts)
	if err != nil {
		s.Logger.Warn("Post digest failed, using sentinel", "title", title, "error", err)
		digest = NoSummarySentinel
	}

	inserted, err := s.PostRepo.CreateBatch(ctx, articleID, unique)
	if err != nil {
		s.Logger.Error("Failed to store posts", "title", title, "error", err)
		return
	}

	if err := s.ArticleRepo.SetTweetSummary(ctx, title, digest); err != nil {
		s.Logger.Error("Failed to store post digest", "title", title, "error", err)
		return
	}
	s.Logger.Info("Enriched article with posts", "title", title, "posts", inserted)
}

func (s *SyncerImpl) recordSentinel(ctx context.Context, title string) {
	if err := s.ArticleRepo.SetTweetSummary(ctx, title, NoSummarySentinel); err != nil {
		s.Logger.Error("Failed to record sentinel digest", "title", title, "error", err)
	}
}
