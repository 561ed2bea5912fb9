package post

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
		logger: logger.WithComponent("PostRepo"),
	}
}

var _ Repository = (*Pgx)(nil)

// CreateBatch appends posts for one article in a single statement.
func (p *Pgx) CreateBatch(ctx context.Context, articleID int64, posts []domain.Post) (int64, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	builder := repositories.SqBuilder.
		Insert("tweets").
		Columns("article_id", "tweet_text", "tweet_likes", "tweet_replies", "tweet_retweets")

	for _, post := range posts {
		builder = builder.Values(articleID, post.Text, post.Likes, post.Replies, post.Reposts)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, repositories.ErrBadQuery
	}

	result, err := p.pg.Exec(ctx, query, args...)
	if err != nil {
		return 0, apperrors.Wrap(err, "insert posts")
	}
	return result.RowsAffected(), nil
}

// GetByArticleID returns all posts stored for an article.
func (p *Pgx) GetByArticleID(ctx context.Context, articleID int64) ([]*domain.Post, error) {
	query, args, err := repositories.SqBuilder.
		Select("id", "article_id", "tweet_text", "tweet_likes", "tweet_replies", "tweet_retweets").
		From("tweets").
		Where(sq.Eq{"article_id": articleID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	rows, err := p.pg.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "query posts")
	}
	defer rows.Close()

	var posts []*domain.Post
	for rows.Next() {
		var post domain.Post
		if err := rows.Scan(&post.ID, &post.ItemID, &post.Text, &post.Likes, &post.Replies, &post.Reposts); err != nil {
			return nil, err
		}
		posts = append(posts, &post)
	}
	return posts, rows.Err()
}
