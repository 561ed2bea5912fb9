package config

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App struct {
		Env       string `env:"APP_ENV" env-default:"development"`
		Port      int    `env:"APP_PORT" env-default:"8080"`
		SentryUrl string `env:"SENTRY_URL"`
	}
	Postgres struct {
		Port    int    `env:"POSTGRES_PORT" env-default:"5432"`
		Host    string `env:"POSTGRES_HOST"`
		User    string `env:"POSTGRES_USER"`
		Pass    string `env:"POSTGRES_PASS"`
		Name    string `env:"POSTGRES_NAME"`
		SslMode string `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	}
	Feed struct {
		URLs            string `env:"RSS_FEED_URLS"`
		PollInterval    int    `env:"POLL_INTERVAL" env-default:"300"`
		TitleField      string `env:"FEED_TITLE_FIELD" env-default:"title"`
		PublishedField  string `env:"FEED_PUBLISHED_FIELD" env-default:"published"`
		TagsField       string `env:"FEED_TAGS_FIELD" env-default:"tags"`
		SummaryField    string `env:"FEED_SUMMARY_FIELD" env-default:"summary"`
		LinkField       string `env:"FEED_LINK_FIELD" env-default:"link"`
		ImageField      string `env:"FEED_IMAGE_FIELD" env-default:"media_content"`
		ImageTimeoutSec int    `env:"FEED_IMAGE_TIMEOUT" env-default:"10"`
	}
	Social struct {
		APIURL           string `env:"SOCIAL_API_URL"`
		CookiesPath      string `env:"SOCIAL_COOKIES_PATH" env-default:"./cookies.json"`
		PostFetchCap     int    `env:"POST_FETCH_CAP" env-default:"20"`
		JitterMinSeconds int    `env:"JITTER_MIN_SECONDS" env-default:"5"`
		JitterMaxSeconds int    `env:"JITTER_MAX_SECONDS" env-default:"15"`
	}
	Enrich struct {
		SummaryAPIURL string  `env:"SUMMARY_API_URL"`
		EmbedAPIURL   string  `env:"EMBED_API_URL"`
		DedupEps      float64 `env:"DEDUP_EPS" env-default:"0.25"`
		TimeoutSec    int     `env:"ENRICH_TIMEOUT" env-default:"120"`
	}
}

// GetDSN builds the postgres connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Pass,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.Name,
		c.Postgres.SslMode,
	)
}

// FeedURLs splits the comma-separated RSS_FEED_URLS value, dropping empties.
func (c *Config) FeedURLs() []string {
	var urls []string
	for _, u := range strings.Split(c.Feed.URLs, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

var (
	once sync.Once
	cfg  *Config
)

func New() (*Config, error) {
	once.Do(func() {
		cfg = &Config{}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			help, _ := cleanenv.GetDescription(cfg, nil)
			log.Fatalf("Failed to read configuration: %v\n%v", err, help)
		}
	})
	return cfg, nil
}
