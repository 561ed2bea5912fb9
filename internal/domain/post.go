package domain

// Post is one short social-media message tied to exactly one Item.
// Rows are append-only: created by the enrichment pass, never updated.
type Post struct {
	ID      int64
	ItemID  int64
	Text    string
	Likes   int
	Replies int
	Reposts int
}
