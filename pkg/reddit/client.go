// Package reddit provides a minimal read-only client for Reddit listings and
// comment threads. It uses OAuth client credentials when configured and the
// public JSON endpoints otherwise.
package reddit

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	defaultPublicURL = "https://www.reddit.com"
	defaultOAuthURL  = "https://oauth.reddit.com"
	defaultTokenURL  = "https://www.reddit.com/api/v1/access_token"
	defaultUserAgent = "blog-cli/1.0"
	maxResponseBytes = 8 << 20
)

// Client reads posts and comments from Reddit.
type Client interface {
	// Hot returns up to limit posts from the subreddit's hot listing.
	Hot(ctx context.Context, subreddit string, limit int) ([]Post, error)
	// Thread returns a post and its top-level comments. permalink may be a
	// full URL or a path such as /r/golang/comments/abc123/title/.
	Thread(ctx context.Context, permalink string) (*Thread, error)
}

// Post is a single submission.
type Post struct {
	ID        string
	Subreddit string
	Title     string
	Selftext  string
	Permalink string
	ImageURLs []string // preview source images, HTML-unescaped
}

// Comment is a top-level comment on a post.
type Comment struct {
	ID     string
	Author string
	Body   string
}

// Thread is a post with its top-level comments in listing order.
type Thread struct {
	Post     Post
	Comments []Comment
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reddit: unexpected status %d for %s: %s", e.StatusCode, e.Path, e.Body)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// NotFound reports whether the resource does not exist or is not visible.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusForbidden
}

// Option configures the client.
type Option func(*httpClient)

// WithCredentials enables OAuth client-credentials auth.
func WithCredentials(clientID, clientSecret string) Option {
	return func(c *httpClient) {
		c.clientID = clientID
		c.clientSecret = clientSecret
	}
}

// WithBaseURL overrides the public API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.publicURL = strings.TrimRight(u, "/")
		}
	}
}

// WithOAuthURL overrides the authenticated API base URL.
func WithOAuthURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.oauthURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.tokenURL = u
		}
	}
}

// WithUserAgent sets the User-Agent header. Reddit rejects generic agents.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateLimit caps outgoing requests per minute. Zero disables the limit.
func WithRateLimit(perMinute int) Option {
	return func(c *httpClient) {
		if perMinute <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1)
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the default http.Client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

type httpClient struct {
	publicURL    string
	oauthURL     string
	tokenURL     string
	clientID     string
	clientSecret string
	userAgent    string
	http         *http.Client
	limiter      *rate.Limiter

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

// NewClient creates a Reddit client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		publicURL: defaultPublicURL,
		oauthURL:  defaultOAuthURL,
		tokenURL:  defaultTokenURL,
		userAgent: defaultUserAgent,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Hot(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	name := NormalizeSubreddit(subreddit)
	if name == "" {
		return nil, eris.New("reddit: empty subreddit name")
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/r/"+url.PathEscape(name)+"/hot.json", q)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, eris.Errorf("reddit: malformed listing for r/%s", name)
	}

	var posts []Post
	gjson.GetBytes(body, "data.children").ForEach(func(_, child gjson.Result) bool {
		// Unknown subreddits can redirect to a search listing of t5 entries.
		if child.Get("kind").String() != "t3" {
			return true
		}
		posts = append(posts, parsePost(child.Get("data")))
		return limit <= 0 || len(posts) < limit
	})
	return posts, nil
}

func (c *httpClient) Thread(ctx context.Context, permalink string) (*Thread, error) {
	path, err := threadPath(permalink)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, path+".json", nil)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, eris.Errorf("reddit: malformed thread %s", path)
	}

	postData := gjson.GetBytes(body, "0.data.children.0.data")
	if !postData.Exists() {
		return nil, &APIError{StatusCode: http.StatusNotFound, Path: path, Body: "post not found"}
	}

	th := &Thread{Post: parsePost(postData)}
	gjson.GetBytes(body, "1.data.children").ForEach(func(_, child gjson.Result) bool {
		// Only real top-level comments; "more" stubs carry no body.
		if child.Get("kind").String() != "t1" {
			return true
		}
		d := child.Get("data")
		th.Comments = append(th.Comments, Comment{
			ID:     d.Get("id").String(),
			Author: d.Get("author").String(),
			Body:   d.Get("body").String(),
		})
		return true
	})
	return th, nil
}

func parsePost(d gjson.Result) Post {
	p := Post{
		ID:        d.Get("id").String(),
		Subreddit: d.Get("subreddit").String(),
		Title:     d.Get("title").String(),
		Selftext:  d.Get("selftext").String(),
		Permalink: d.Get("permalink").String(),
	}
	d.Get("preview.images.#.source.url").ForEach(func(_, u gjson.Result) bool {
		if s := u.String(); s != "" {
			p.ImageURLs = append(p.ImageURLs, html.UnescapeString(s))
		}
		return true
	})
	return p
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "reddit: rate limit wait")
		}
	}

	base := c.publicURL
	var token string
	if c.clientID != "" {
		t, err := c.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		token = t
		base = c.oauthURL
	}

	u := base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "reddit: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "reddit: get %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, eris.Wrap(err, "reddit: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Path: path, Body: truncate(string(body), 200)}
	}
	return body, nil
}

// accessToken returns a cached bearer token, fetching a new one when the
// cached token is missing or about to expire.
func (c *httpClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "reddit: create token request")
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "reddit: token request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", eris.Wrap(err, "reddit: read token response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Path: "access_token", Body: truncate(string(body), 200)}
	}

	tok := gjson.GetBytes(body, "access_token").String()
	if tok == "" {
		return "", eris.New("reddit: token response missing access_token")
	}
	ttl := time.Duration(gjson.GetBytes(body, "expires_in").Int()) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	if ttl > 2*time.Minute {
		ttl -= time.Minute
	}

	c.token = tok
	c.tokenExpiry = c.now().Add(ttl)
	return tok, nil
}

// NormalizeSubreddit reduces a subreddit reference to its bare name. It
// accepts "golang", "r/golang", "/r/golang/" and subreddit URLs such as
// "https://www.reddit.com/r/golang/". An empty reference yields "".
func NormalizeSubreddit(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, "reddit.com"); i >= 0 {
		name = name[i+len("reddit.com"):]
	}
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.TrimPrefix(name, "r/")
	name = strings.Trim(name, "/")
	if i := strings.Index(name, "/"); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// IsThreadURL reports whether identifier points at a specific post.
func IsThreadURL(identifier string) bool {
	return strings.Contains(identifier, "reddit.com/r/") && strings.Contains(identifier, "/comments/")
}

func threadPath(permalink string) (string, error) {
	p := strings.TrimSpace(permalink)
	if strings.Contains(p, "://") {
		u, err := url.Parse(p)
		if err != nil {
			return "", eris.Wrapf(err, "reddit: parse permalink %q", permalink)
		}
		p = u.Path
	} else if i := strings.Index(p, "reddit.com"); i >= 0 {
		p = p[i+len("reddit.com"):]
	}
	p = strings.TrimSuffix(strings.TrimRight(p, "/"), ".json")
	if !strings.Contains(p, "/comments/") {
		return "", eris.Errorf("reddit: %q is not a thread permalink", permalink)
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
