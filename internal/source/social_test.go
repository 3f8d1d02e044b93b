package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/blog-cli/internal/model"
	"github.com/sells-group/blog-cli/pkg/reddit"
)

// mockReddit implements reddit.Client for testing.
type mockReddit struct {
	mock.Mock
}

func (m *mockReddit) Hot(ctx context.Context, subreddit string, limit int) ([]reddit.Post, error) {
	args := m.Called(ctx, subreddit, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reddit.Post), args.Error(1)
}

func (m *mockReddit) Thread(ctx context.Context, permalink string) (*reddit.Thread, error) {
	args := m.Called(ctx, permalink)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reddit.Thread), args.Error(1)
}

func comments(prefix string, n int) []reddit.Comment {
	out := make([]reddit.Comment, n)
	for i := range out {
		out[i] = reddit.Comment{ID: fmt.Sprintf("%s%d", prefix, i), Body: fmt.Sprintf("%s comment %d", prefix, i)}
	}
	return out
}

func TestSocialFetcher_Thread(t *testing.T) {
	ctx := context.Background()
	const link = "https://www.reddit.com/r/golang/comments/abc/errors/"

	rc := new(mockReddit)
	rc.On("Thread", ctx, link).Return(&reddit.Thread{
		Post: reddit.Post{
			ID: "abc", Title: "Errors", Selftext: "How to wrap?",
			ImageURLs: []string{"https://i.redd.it/a.png"},
		},
		Comments: comments("c", 3),
	}, nil).Once()

	item, err := NewSocialFetcher(rc).Fetch(ctx, link)
	require.NoError(t, err)

	assert.Equal(t, model.SourceSocial, item.Source)
	assert.Equal(t, link, item.Identifier)
	assert.Equal(t, "Errors\n", item.Title)
	assert.Equal(t, "How to wrap?\n", item.Text)
	assert.Equal(t, []string{"c comment 0", "c comment 1", "c comment 2"}, item.Comments)
	require.Len(t, item.Images, 1)
	assert.Equal(t, "https://i.redd.it/a.png", item.Images[0].URL)
	assert.Equal(t, "", item.Images[0].CurrentAlt)
	rc.AssertNotCalled(t, "Hot", mock.Anything, mock.Anything, mock.Anything)
	rc.AssertExpectations(t)
}

func TestSocialFetcher_SubredditCapsDiscussionsAndComments(t *testing.T) {
	ctx := context.Background()
	rc := new(mockReddit)

	var posts []reddit.Post
	for i := 0; i < 7; i++ {
		posts = append(posts, reddit.Post{
			ID:        fmt.Sprintf("p%d", i),
			Title:     fmt.Sprintf("T%d", i),
			Selftext:  fmt.Sprintf("S%d", i),
			Permalink: fmt.Sprintf("/r/golang/comments/p%d/x/", i),
		})
	}
	rc.On("Hot", ctx, "golang", DefaultHotLimit).Return(posts, nil).Once()
	for i := 0; i < 5; i++ {
		p := posts[i]
		rc.On("Thread", ctx, p.Permalink).Return(&reddit.Thread{
			Post:     p,
			Comments: comments(p.ID, 15),
		}, nil).Once()
	}

	item, err := NewSocialFetcher(rc).Fetch(ctx, "r/golang")
	require.NoError(t, err)

	assert.Equal(t, "T0\nT1\nT2\nT3\nT4\n", item.Title)
	assert.Equal(t, "S0\nS1\nS2\nS3\nS4\n", item.Text)
	assert.Len(t, item.Comments, 50)
	assert.Equal(t, "p0 comment 0", item.Comments[0])
	assert.Equal(t, "p0 comment 9", item.Comments[9])
	assert.Equal(t, "p1 comment 0", item.Comments[10])
	rc.AssertNotCalled(t, "Thread", ctx, posts[5].Permalink)
	rc.AssertExpectations(t)
}

func TestSocialFetcher_EmptySubreddit(t *testing.T) {
	ctx := context.Background()
	rc := new(mockReddit)
	rc.On("Hot", ctx, "quiet", DefaultHotLimit).Return([]reddit.Post{}, nil)

	_, err := NewSocialFetcher(rc).Fetch(ctx, "quiet")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, model.SourceSocial, fe.Kind)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, fe.Transient())
}

func TestSocialFetcher_MissingPost(t *testing.T) {
	ctx := context.Background()
	const link = "https://reddit.com/r/golang/comments/gone/x"
	rc := new(mockReddit)
	rc.On("Thread", ctx, link).Return(nil, &reddit.APIError{StatusCode: http.StatusNotFound, Path: "/r/golang/comments/gone/x"})

	_, err := NewSocialFetcher(rc).Fetch(ctx, link)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, link, fe.Identifier)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSocialFetcher_ThreadFailureFailsSubreddit(t *testing.T) {
	ctx := context.Background()
	rc := new(mockReddit)
	posts := []reddit.Post{
		{ID: "a", Permalink: "/r/go/comments/a/x/"},
		{ID: "b", Permalink: "/r/go/comments/b/x/"},
	}
	rc.On("Hot", ctx, "go", DefaultHotLimit).Return(posts, nil)
	rc.On("Thread", ctx, posts[0].Permalink).Return(&reddit.Thread{Post: posts[0]}, nil)
	rc.On("Thread", ctx, posts[1].Permalink).Return(nil, &reddit.APIError{StatusCode: http.StatusBadGateway})

	item, err := NewSocialFetcher(rc).Fetch(ctx, "go")
	assert.Nil(t, item)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.True(t, fe.Transient())
	assert.Contains(t, err.Error(), "social: thread b")
}

func TestSocialFetcher_EmptyName(t *testing.T) {
	rc := new(mockReddit)
	_, err := NewSocialFetcher(rc).Fetch(context.Background(), "r/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty subreddit name")
	rc.AssertNotCalled(t, "Hot", mock.Anything, mock.Anything, mock.Anything)
}

func TestSocialFetcher_SubredditURL(t *testing.T) {
	ctx := context.Background()
	const link = "https://www.reddit.com/r/golang/"
	post := reddit.Post{ID: "a", Permalink: "/r/golang/comments/a/x/"}
	rc := new(mockReddit)
	rc.On("Hot", ctx, "golang", DefaultHotLimit).Return([]reddit.Post{post}, nil)
	rc.On("Thread", ctx, post.Permalink).Return(&reddit.Thread{Post: reddit.Post{Title: "Go 1.26"}}, nil)

	item, err := NewSocialFetcher(rc).Fetch(ctx, link)
	require.NoError(t, err)
	assert.Equal(t, link, item.Identifier)
	assert.Contains(t, item.Title, "Go 1.26")
	rc.AssertExpectations(t)
}

func TestSocialFetcher_EmptyNameVariants(t *testing.T) {
	for _, id := range []string{"/r/", " r/ ", "https://www.reddit.com/r/"} {
		rc := new(mockReddit)
		_, err := NewSocialFetcher(rc).Fetch(context.Background(), id)
		require.Error(t, err, id)
		assert.Contains(t, err.Error(), "empty subreddit name", id)
		rc.AssertNotCalled(t, "Hot", mock.Anything, mock.Anything, mock.Anything)
	}
}
