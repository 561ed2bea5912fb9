package fx

import (
	"github.com/newspulse/feed-enricher/internal/repositories/article"
	"github.com/newspulse/feed-enricher/internal/repositories/post"
	"go.uber.org/fx"
)

var Module = fx.Options(
	article.Module,
	post.Module,
)
