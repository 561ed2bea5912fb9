package migrations

import (
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigration(upEnrichmentColumns, downEnrichmentColumns)
}

func upEnrichmentColumns(tx *sql.Tx) error {
	_, err := tx.Exec(`
	ALTER TABLE articles
		ADD COLUMN IF NOT EXISTS tweet_summary TEXT,
		ADD COLUMN IF NOT EXISTS news_summary TEXT;
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
	CREATE INDEX IF NOT EXISTS idx_tweets_article_id ON tweets (article_id);
	`)
	if err != nil {
		return err
	}
	return nil
}

func downEnrichmentColumns(tx *sql.Tx) error {
	_, err := tx.Exec(`
	DROP INDEX IF EXISTS idx_tweets_article_id;
	ALTER TABLE articles
		DROP COLUMN IF EXISTS tweet_summary,
		DROP COLUMN IF EXISTS news_summary;
	`)
	if err != nil {
		return err
	}
	return nil
}
