package migrations

import (
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigration(upInit, downInit)
}

func upInit(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS articles (
		id SERIAL PRIMARY KEY,
		title TEXT NOT NULL CHECK (title <> ''),
		publication_timestamp TIMESTAMP,
		weblink TEXT NOT NULL CHECK (weblink <> ''),
		image BYTEA,
		tags TEXT[],
		summary TEXT,
		UNIQUE (title, weblink)
	);
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
	CREATE TABLE IF NOT EXISTS tweets (
		id SERIAL PRIMARY KEY,
		article_id INTEGER REFERENCES articles(id) ON DELETE CASCADE,
		tweet_text TEXT NOT NULL CHECK (tweet_text <> ''),
		tweet_likes INTEGER,
		tweet_replies INTEGER,
		tweet_retweets INTEGER
	);
	`)
	if err != nil {
		return err
	}
	return nil
}

func downInit(tx *sql.Tx) error {
	_, err := tx.Exec(`
	DROP TABLE IF EXISTS tweets;
	DROP TABLE IF EXISTS articles;
	`)
	if err != nil {
		return err
	}
	return nil
}
