// Package source converts external identifiers (web URLs, subreddit names,
// Reddit thread URLs) into normalized content items.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/sells-group/blog-cli/internal/model"
	"github.com/sells-group/blog-cli/internal/resilience"
)

// ErrNotFound marks a source-side absence: an empty listing or a missing post.
var ErrNotFound = errors.New("source returned no content")

// ErrBlocked marks a 2xx page that is an anti-bot challenge, not content.
var ErrBlocked = errors.New("page is an anti-bot challenge")

// Fetcher turns one identifier into one ContentItem.
type Fetcher interface {
	Kind() model.SourceKind
	Fetch(ctx context.Context, identifier string) (*model.ContentItem, error)
}

// FetchError reports a failed fetch for a single identifier.
type FetchError struct {
	Kind       model.SourceKind
	Identifier string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch %s: %v", e.Kind, e.Identifier, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient reports whether resubmitting the same identifier may succeed.
func (e *FetchError) Transient() bool {
	return resilience.Classify(e.Err) == resilience.ClassTransient
}

// Warning converts the error into a run warning.
func (e *FetchError) Warning() model.Warning {
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return model.Warning{
		Stage:      "fetch",
		Source:     e.Kind,
		Identifier: e.Identifier,
		Message:    msg,
		Transient:  e.Transient(),
	}
}

func fetchErr(kind model.SourceKind, id string, err error) *FetchError {
	return &FetchError{Kind: kind, Identifier: id, Err: err}
}
