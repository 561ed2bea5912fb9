package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	"github.com/newspulse/feed-enricher/internal/dedup"
	"github.com/newspulse/feed-enricher/internal/enrich"
	"github.com/newspulse/feed-enricher/internal/enrich/enrichimpl"
	"github.com/newspulse/feed-enricher/internal/feed"
	"github.com/newspulse/feed-enricher/internal/feed/feedimpl"
	"github.com/newspulse/feed-enricher/internal/fetcher"
	_ "github.com/newspulse/feed-enricher/internal/migrations"
	repositories "github.com/newspulse/feed-enricher/internal/repositories/fx"
	"github.com/newspulse/feed-enricher/internal/social"
	"github.com/newspulse/feed-enricher/internal/social/socialimpl"
	"github.com/newspulse/feed-enricher/internal/syncer"
	"github.com/newspulse/feed-enricher/internal/syncer/syncerimpl"
	"github.com/newspulse/feed-enricher/pkg/config"
	"github.com/newspulse/feed-enricher/pkg/logger"
	"github.com/newspulse/feed-enricher/pkg/pgx"
	"github.com/pressly/goose/v3"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		config.New,
		logger.FxOption,
		pgx.New,
	),
	fx.Provide(
		fx.Annotate(
			feedimpl.New,
			fx.As(new(feed.Client)),
		),
		fx.Annotate(
			socialimpl.New,
			fx.As(new(social.Client)),
		),
		fx.Annotate(
			enrichimpl.NewSummarizer,
			fx.As(new(enrich.Summarizer)),
		),
		fx.Annotate(
			enrichimpl.NewEmbedder,
			fx.As(new(dedup.Embedder)),
		),
		fx.Annotate(
			fetcher.New,
			fx.As(new(syncer.PostFetcher)),
		),
		fx.Annotate(
			syncerimpl.New,
			fx.As(new(syncer.Client)),
		),
	),
	repositories.Module,
	fx.Invoke(
		func(c *config.Config) error {
			if err := goose.SetDialect("postgres"); err != nil {
				return err
			}

			db, err := sql.Open("postgres", c.GetDSN())
			if err != nil {
				return err
			}
			defer db.Close()

			wd, err := os.Getwd()
			if err != nil {
				return err
			}

			return goose.Up(db, filepath.Join(wd, "internal", "migrations"))
		}),
	fx.Invoke(run),
)

func run(lc fx.Lifecycle, log logger.Logger, cfg *config.Config, syncClient syncer.Client) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go startHttpServer(log, cfg)

			ctx := context.Background()
			if err := syncClient.ScheduleSync(ctx); err != nil {
				log.Error("Failed to schedule sync loop", "error", err)
				return err
			}

			return nil
		},
	})
}

func startHttpServer(log logger.Logger, cfg *config.Config) {
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		healthCheckHandler(w, r, log)
	})

	log.Info(fmt.Sprintf("Starting server on :%d", cfg.App.Port))

	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.App.Port), nil); err != nil {
		log.Error("Server failed to start: %v", err)
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request, logger logger.Logger) {
	logger.Info("Health check request received", "Method", r.Method, "URL", r.URL.String())
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("ok")); err != nil {
		logger.Error("Failed to write response", "Error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
