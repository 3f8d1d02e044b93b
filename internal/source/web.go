package source

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/blog-cli/internal/model"
	"github.com/sells-group/blog-cli/internal/resilience"
)

const defaultMaxBody = 2 << 20

// contentContainers are tried in order; the first present wins.
var contentContainers = []string{"main", "article", "body"}

// WebFetcher fetches a single web page and extracts its title, paragraph
// text and images. One GET per URL, no retries.
type WebFetcher struct {
	client      *http.Client
	userAgent   string
	maxBody     int64
	readability bool
}

// WebOption configures a WebFetcher.
type WebOption func(*WebFetcher)

// WithWebHTTPClient overrides the default http.Client.
func WithWebHTTPClient(hc *http.Client) WebOption {
	return func(w *WebFetcher) { w.client = hc }
}

// WithWebTimeout sets the overall request timeout.
func WithWebTimeout(d time.Duration) WebOption {
	return func(w *WebFetcher) {
		if d > 0 {
			w.client.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) WebOption {
	return func(w *WebFetcher) {
		if ua != "" {
			w.userAgent = ua
		}
	}
}

// WithMaxBodyBytes caps how much of a response body is read.
func WithMaxBodyBytes(n int64) WebOption {
	return func(w *WebFetcher) {
		if n > 0 {
			w.maxBody = n
		}
	}
}

// WithReadabilityFallback fills empty paragraph text from a readability parse.
func WithReadabilityFallback(enabled bool) WebOption {
	return func(w *WebFetcher) { w.readability = enabled }
}

// NewWebFetcher creates a WebFetcher with sensible defaults.
func NewWebFetcher(opts ...WebOption) *WebFetcher {
	w := &WebFetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		userAgent: "Mozilla/5.0 (compatible; blog-cli/1.0)",
		maxBody:   defaultMaxBody,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *WebFetcher) Kind() model.SourceKind { return model.SourceWeb }

// Fetch downloads rawURL and extracts its content. Any transport failure or
// non-2xx status is a FetchError.
func (w *WebFetcher) Fetch(ctx context.Context, rawURL string) (*model.ContentItem, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fetchErr(model.SourceWeb, rawURL, eris.Errorf("web: invalid url %q", rawURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fetchErr(model.SourceWeb, rawURL, eris.Wrap(err, "web: create request"))
	}
	req.Header.Set("User-Agent", w.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fetchErr(model.SourceWeb, rawURL, eris.Wrap(err, "web: fetch"))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fetchErr(model.SourceWeb, rawURL,
			eris.Wrap(&resilience.StatusError{StatusCode: resp.StatusCode}, "web: fetch"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, w.maxBody))
	if err != nil {
		return nil, fetchErr(model.SourceWeb, rawURL, eris.Wrap(err, "web: read body"))
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		zap.L().Warn("web: page looks like an anti-bot challenge",
			zap.String("url", rawURL), zap.String("block_type", string(kind)))
		return nil, fetchErr(model.SourceWeb, rawURL, eris.Wrapf(ErrBlocked, "web: %s", kind))
	}

	utf8Body, err := decodeCharset(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fetchErr(model.SourceWeb, rawURL, err)
	}

	base := u
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}

	item, err := Extract(utf8Body, base)
	if err != nil {
		return nil, fetchErr(model.SourceWeb, rawURL, err)
	}
	item.Identifier = rawURL

	if item.Text == "" && w.readability {
		w.fillFromReadability(item, utf8Body, base)
	}

	return Normalize(item), nil
}

func (w *WebFetcher) fillFromReadability(item *model.ContentItem, body []byte, base *url.URL) {
	article, err := readability.FromReader(bytes.NewReader(body), base)
	if err != nil {
		zap.L().Debug("web: readability fallback failed", zap.String("url", base.String()), zap.Error(err))
		return
	}
	item.Text = strings.Join(strings.Fields(article.TextContent), " ")
	if item.Title == "" {
		item.Title = strings.TrimSpace(article.Title)
	}
}

// Extract parses an HTML document into a ContentItem. Relative image
// sources are resolved against base when it is non-nil.
func Extract(body []byte, base *url.URL) (*model.ContentItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "web: parse html")
	}

	item := &model.ContentItem{
		Source: model.SourceWeb,
		Title:  strings.TrimSpace(doc.Find("title").First().Text()),
	}

	var container *goquery.Selection
	for _, tag := range contentContainers {
		if sel := doc.Find(tag); sel.Length() > 0 {
			container = sel.First()
			break
		}
	}

	if container != nil {
		var paras []string
		container.Find("p").Each(func(_ int, p *goquery.Selection) {
			if t := strings.TrimSpace(p.Text()); t != "" {
				paras = append(paras, t)
			}
		})
		item.Text = strings.Join(paras, " ")
	}

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" {
			return
		}
		alt, _ := img.Attr("alt")
		item.Images = append(item.Images, model.ImageRef{
			URL:        resolve(base, src),
			CurrentAlt: alt,
		})
	})

	return item, nil
}

// decodeCharset converts body to UTF-8 using the charset named in the
// Content-Type header. Unknown or absent charsets are passed through.
func decodeCharset(body []byte, contentType string) ([]byte, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body, nil
	}
	cs := strings.ToLower(strings.TrimSpace(params["charset"]))
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return body, nil
	}

	enc, err := htmlindex.Get(cs)
	if err != nil {
		zap.L().Debug("web: unsupported charset, reading as utf-8", zap.String("charset", cs))
		return body, nil
	}
	out, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(body)))
	if err != nil {
		return nil, eris.Wrapf(err, "web: decode charset %q", cs)
	}
	return out, nil
}

func resolve(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}
