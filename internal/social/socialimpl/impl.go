package socialimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/newspulse/feed-enricher/internal/domain"
	"github.com/newspulse/feed-enricher/internal/social"
	"github.com/newspulse/feed-enricher/pkg/config"
	"github.com/newspulse/feed-enricher/pkg/logger"
	"go.uber.org/fx"
)

type SocialImpl struct {
	client *resty.Client
	logger logger.Logger
}

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

// New builds the shared authenticated search client. The session cookies are
// loaded once from disk and held for the process lifetime.
func New(opts Opts) (*SocialImpl, error) {
	cookies, err := loadCookies(opts.Config.Social.CookiesPath)
	if err != nil {
		return nil, fmt.Errorf("login required, save session cookies first: %w", err)
	}

	client := resty.New().
		SetBaseURL(opts.Config.Social.APIURL).
		SetTimeout(30 * time.Second).
		SetCookies(cookies)

	return &SocialImpl{
		client: client,
		logger: opts.Logger.WithComponent("SocialClient"),
	}, nil
}

var _ social.Client = (*SocialImpl)(nil)

type postPayload struct {
	Text    string `json:"text"`
	Likes   int    `json:"likes"`
	Replies int    `json:"replies"`
	Reposts int    `json:"reposts"`
}

type searchResponse struct {
	Posts      []postPayload `json:"posts"`
	NextCursor string        `json:"next_cursor"`
}

func (s *SocialImpl) Search(ctx context.Context, query string, product social.Product) (social.Page, error) {
	return s.request(ctx, query, product, "")
}

func (s *SocialImpl) request(ctx context.Context, query string, product social.Product, cursor string) (social.Page, error) {
	req := s.client.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetQueryParam("product", string(product)).
		SetResult(&searchResponse{})
	if cursor != "" {
		req.SetQueryParam("cursor", cursor)
	}

	resp, err := req.Get("/search")
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		body, ok := resp.Result().(*searchResponse)
		if !ok {
			return nil, fmt.Errorf("unexpected search response body")
		}
		posts := make([]domain.Post, 0, len(body.Posts))
		for _, p := range body.Posts {
			posts = append(posts, domain.Post{
				Text:    p.Text,
				Likes:   p.Likes,
				Replies: p.Replies,
				Reposts: p.Reposts,
			})
		}
		return &page{
			client:  s,
			query:   query,
			product: product,
			cursor:  body.NextCursor,
			posts:   posts,
		}, nil
	case http.StatusTooManyRequests:
		return nil, &social.RateLimitError{ResetAt: resetTime(resp)}
	case http.StatusNotFound:
		return nil, social.ErrNotFound
	default:
		return nil, fmt.Errorf("search API returned status %s", resp.Status())
	}
}

// resetTime reads the rate-limit reset from the rejection itself. A missing
// or malformed header falls back to one minute from now.
func resetTime(resp *resty.Response) time.Time {
	header := resp.Header().Get("X-Rate-Limit-Reset")
	if epoch, err := strconv.ParseInt(header, 10, 64); err == nil && epoch > 0 {
		return time.Unix(epoch, 0)
	}
	return time.Now().Add(time.Minute)
}

type page struct {
	client  *SocialImpl
	query   string
	product social.Product
	cursor  string
	posts   []domain.Post
}

var _ social.Page = (*page)(nil)

func (p *page) Posts() []domain.Post {
	return p.posts
}

func (p *page) Next(ctx context.Context) (social.Page, error) {
	if p.cursor == "" {
		return &page{client: p.client, query: p.query, product: p.product}, nil
	}
	return p.client.request(ctx, p.query, p.product, p.cursor)
}

type cookieEntry struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

func loadCookies(path string) ([]*http.Cookie, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []cookieEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse cookies file %s: %w", path, err)
	}

	cookies := make([]*http.Cookie, 0, len(entries))
	for _, e := range entries {
		cookies = append(cookies, &http.Cookie{
			Name:   e.Name,
			Value:  e.Value,
			Domain: e.Domain,
			Path:   e.Path,
		})
	}
	return cookies, nil
}
