package domain

import "time"

// Item is one ingested content record. (Title, WebLink) is its natural key:
// re-ingesting a known pair is a no-op and never touches enrichment columns.
type Item struct {
	ID           int64
	Title        string
	PublishedAt  time.Time
	WebLink      string
	Image        []byte
	Tags         []string
	Summary      string // short editorial summary from the feed entry
	TweetSummary string // digest of the social-post reaction, empty until enriched
	NewsSummary  string // synopsis from the summarization service, empty until enriched
}
