package article

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/newspulse/feed-enricher/internal/domain"
	"github.com/newspulse/feed-enricher/internal/repositories"
	apperrors "github.com/newspulse/feed-enricher/pkg/errors"
	"github.com/newspulse/feed-enricher/pkg/logger"
)

type Pgx struct {
	pg     *pgxpool.Pool
	logger logger.Logger
}

func NewPgx(pg *pgxpool.Pool, logger logger.Logger) *Pgx {
	return &Pgx{
		pg:     pg,
		logger: logger.WithComponent("ArticleRepo"),
	}
}

var _ Repository = (*Pgx)(nil)

// UpsertBatch inserts items with skip-on-conflict semantics over the
// (title, weblink) natural key.
func (p *Pgx) UpsertBatch(ctx context.Context, items []domain.Item) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	builder := repositories.SqBuilder.
		Insert("articles").
		Columns("title", "publication_timestamp", "weblink", "image", "tags", "summary").
		Suffix("ON CONFLICT (title, weblink) DO NOTHING")

	for _, item := range items {
		builder = builder.Values(
			item.Title,
			item.PublishedAt,
			item.WebLink,
			item.Image,
			item.Tags,
			item.Summary,
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, repositories.ErrBadQuery
	}

	result, err := p.pg.Exec(ctx, query, args...)
	if err != nil {
		return 0, apperrors.Wrap(err, "upsert articles")
	}
	return result.RowsAffected(), nil
}

func (p *Pgx) LinksMissingNewsSummary(ctx context.Context) ([]string, error) {
	return p.selectMissing(ctx, "weblink", "news_summary")
}

func (p *Pgx) TitlesMissingTweetSummary(ctx context.Context) ([]string, error) {
	return p.selectMissing(ctx, "title", "tweet_summary")
}

func (p *Pgx) selectMissing(ctx context.Context, keyColumn, summaryColumn string) ([]string, error) {
	query, args, err := repositories.SqBuilder.
		Select(keyColumn).
		From("articles").
		Where(sq.Or{
			sq.Eq{summaryColumn: nil},
			sq.Expr("TRIM(" + summaryColumn + ") = ''"),
		}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	rows, err := p.pg.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "query enrichment backlog")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (p *Pgx) SetNewsSummary(ctx context.Context, weblink, summary string) error {
	return p.updateField(ctx, "news_summary", summary, sq.Eq{"weblink": weblink})
}

func (p *Pgx) SetTweetSummary(ctx context.Context, title, digest string) error {
	return p.updateField(ctx, "tweet_summary", digest, sq.Eq{"title": title})
}

func (p *Pgx) updateField(ctx context.Context, column, value string, where sq.Eq) error {
	query, args, err := repositories.SqBuilder.
		Update("articles").
		Set(column, value).
		Where(where).
		ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	result, err := p.pg.Exec(ctx, query, args...)
	if err != nil {
		return apperrors.Wrap(err, "update article "+column)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Pgx) IDsByTitle(ctx context.Context) (map[string]int64, error) {
	query, args, err := repositories.SqBuilder.
		Select("id", "title").
		From("articles").
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	rows, err := p.pg.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "query article ids")
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var (
			id    int64
			title string
		)
		if err := rows.Scan(&id, &title); err != nil {
			return nil, err
		}
		ids[title] = id
	}
	return ids, rows.Err()
}
