package feedimpl

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"
	"github.com/newspulse/feed-enricher/internal/domain"
	"github.com/newspulse/feed-enricher/internal/feed"
	"github.com/newspulse/feed-enricher/pkg/config"
	"github.com/newspulse/feed-enricher/pkg/logger"
	"go.uber.org/fx"
)

type FeedImpl struct {
	parser *gofeed.Parser
	http   *resty.Client
	images *resty.Client
	config *config.Config
	logger logger.Logger
}

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

func New(opts Opts) *FeedImpl {
	return &FeedImpl{
		parser: gofeed.NewParser(),
		http:   resty.New().SetTimeout(30 * time.Second),
		images: resty.New().
			SetTimeout(time.Duration(opts.Config.Feed.ImageTimeoutSec) * time.Second),
		config: opts.Config,
		logger: opts.Logger.WithComponent("FeedClient"),
	}
}

var _ feed.Client = (*FeedImpl)(nil)

// Fetch downloads and parses the feed at url. A malformed document is an
// error for the whole call; the caller skips ingestion for this cycle only.
func (f *FeedImpl) Fetch(ctx context.Context, url string) ([]domain.Item, error) {
	resp, err := f.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", url, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned status %s", url, resp.Status())
	}

	doc, err := f.parser.ParseString(string(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", url, err)
	}

	items := make([]domain.Item, 0, len(doc.Items))
	for _, entry := range doc.Items {
		item := domain.Item{
			Title:       strings.TrimSpace(f.stringField(entry, f.config.Feed.TitleField)),
			WebLink:     f.stringField(entry, f.config.Feed.LinkField),
			Summary:     f.stringField(entry, f.config.Feed.SummaryField),
			PublishedAt: f.publishedAt(entry),
			Tags:        f.tags(entry),
		}

		if imageURL := f.imageURL(entry); imageURL != "" {
			item.Image = f.downloadImage(ctx, imageURL)
		}

		items = append(items, item)
	}

	f.logger.Info("Fetched entries from feed", "url", url, "count", len(items))
	return items, nil
}

// stringField resolves a configured field name against the entry, falling
// back to the entry's custom fields for non-standard names.
func (f *FeedImpl) stringField(entry *gofeed.Item, name string) string {
	switch name {
	case "title":
		return entry.Title
	case "link":
		return entry.Link
	case "summary", "description":
		return entry.Description
	case "content":
		return entry.Content
	case "published":
		return entry.Published
	default:
		return entry.Custom[name]
	}
}

func (f *FeedImpl) imageURL(entry *gofeed.Item) string {
	if f.config.Feed.ImageField == "media_content" {
		if media, ok := entry.Extensions["media"]; ok {
			for _, ext := range media["content"] {
				if url := ext.Attrs["url"]; url != "" {
					return url
				}
			}
		}
		if entry.Image != nil {
			return entry.Image.URL
		}
		return ""
	}
	return entry.Custom[f.config.Feed.ImageField]
}

// downloadImage is best-effort: any failure yields a nil image and never
// aborts the entry.
func (f *FeedImpl) downloadImage(ctx context.Context, url string) []byte {
	resp, err := f.images.R().SetContext(ctx).Get(url)
	if err != nil {
		f.logger.Warn("Image download failed", "url", url, "error", err)
		return nil
	}
	if resp.StatusCode() != http.StatusOK {
		f.logger.Warn("Image download failed", "url", url, "status", resp.Status())
		return nil
	}
	return resp.Body()
}

// publishedAt resolves the configured published field: the standard names
// use gofeed's parsed timestamps, anything else is read from the entry's
// custom fields and parsed from the common feed date layouts.
func (f *FeedImpl) publishedAt(entry *gofeed.Item) time.Time {
	switch f.config.Feed.PublishedField {
	case "", "published":
		if entry.PublishedParsed != nil {
			return *entry.PublishedParsed
		}
		if entry.UpdatedParsed != nil {
			return *entry.UpdatedParsed
		}
		return time.Time{}
	case "updated":
		if entry.UpdatedParsed != nil {
			return *entry.UpdatedParsed
		}
		return time.Time{}
	default:
		return parseEntryTime(entry.Custom[f.config.Feed.PublishedField])
	}
}

func parseEntryTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, time.RFC1123Z, time.RFC1123} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// tags resolves the configured tags field: the standard name maps to the
// entry's categories, anything else is a comma-separated custom field.
func (f *FeedImpl) tags(entry *gofeed.Item) []string {
	if name := f.config.Feed.TagsField; name != "" && name != "tags" {
		return splitTags(entry.Custom[name])
	}
	var out []string
	for _, c := range entry.Categories {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func splitTags(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
