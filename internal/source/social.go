package source

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/blog-cli/internal/model"
	"github.com/sells-group/blog-cli/pkg/reddit"
)

const (
	// DefaultHotLimit is how many hot discussions a subreddit contributes.
	DefaultHotLimit = 5
	// DefaultCommentLimit is how many top-level comments each discussion contributes.
	DefaultCommentLimit = 10
)

// SocialFetcher reads Reddit. An identifier containing both "reddit.com/r/"
// and "/comments/" is a single thread; anything else is a subreddit whose
// hot discussions are concatenated into one item.
type SocialFetcher struct {
	client       reddit.Client
	hotLimit     int
	commentLimit int
}

// NewSocialFetcher creates a SocialFetcher backed by client.
func NewSocialFetcher(client reddit.Client) *SocialFetcher {
	return &SocialFetcher{
		client:       client,
		hotLimit:     DefaultHotLimit,
		commentLimit: DefaultCommentLimit,
	}
}

func (s *SocialFetcher) Kind() model.SourceKind { return model.SourceSocial }

// Fetch resolves identifier to a thread or subreddit and builds one item.
// Any failure along the way fails the whole identifier.
func (s *SocialFetcher) Fetch(ctx context.Context, identifier string) (*model.ContentItem, error) {
	item := &model.ContentItem{Source: model.SourceSocial, Identifier: identifier}
	log := zap.L().With(zap.String("identifier", identifier))

	if reddit.IsThreadURL(identifier) {
		th, err := s.client.Thread(ctx, identifier)
		if err != nil {
			return nil, fetchErr(model.SourceSocial, identifier, classifyReddit(err))
		}
		s.appendThread(item, th)
		log.Debug("social: fetched thread", zap.Int("comments", len(item.Comments)))
		return Normalize(item), nil
	}

	name := reddit.NormalizeSubreddit(identifier)
	if name == "" {
		return nil, fetchErr(model.SourceSocial, identifier, eris.New("social: empty subreddit name"))
	}

	posts, err := s.client.Hot(ctx, name, s.hotLimit)
	if err != nil {
		return nil, fetchErr(model.SourceSocial, identifier, classifyReddit(err))
	}
	if len(posts) == 0 {
		return nil, fetchErr(model.SourceSocial, identifier, eris.Wrapf(ErrNotFound, "social: r/%s has no discussions", name))
	}
	if len(posts) > s.hotLimit {
		posts = posts[:s.hotLimit]
	}

	for _, p := range posts {
		th, err := s.client.Thread(ctx, p.Permalink)
		if err != nil {
			return nil, fetchErr(model.SourceSocial, identifier,
				eris.Wrapf(classifyReddit(err), "social: thread %s", p.ID))
		}
		s.appendThread(item, th)
	}

	log.Debug("social: fetched subreddit",
		zap.Int("discussions", len(posts)),
		zap.Int("comments", len(item.Comments)),
		zap.Int("images", len(item.Images)),
	)
	return Normalize(item), nil
}

// appendThread folds one discussion into item: title and body each followed
// by a newline, up to commentLimit top-level comments and every preview image.
func (s *SocialFetcher) appendThread(item *model.ContentItem, th *reddit.Thread) {
	var title, text strings.Builder
	title.WriteString(item.Title)
	title.WriteString(th.Post.Title)
	title.WriteString("\n")
	text.WriteString(item.Text)
	text.WriteString(th.Post.Selftext)
	text.WriteString("\n")
	item.Title = title.String()
	item.Text = text.String()

	for i, c := range th.Comments {
		if i >= s.commentLimit {
			break
		}
		item.Comments = append(item.Comments, c.Body)
	}

	for _, u := range th.Post.ImageURLs {
		item.Images = append(item.Images, model.ImageRef{URL: u})
	}
}

// classifyReddit maps not-found API errors onto ErrNotFound.
func classifyReddit(err error) error {
	var apiErr *reddit.APIError
	if errors.As(err, &apiErr) && apiErr.NotFound() {
		return errors.Join(ErrNotFound, err)
	}
	return err
}
