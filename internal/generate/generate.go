// Package generate turns aggregated content into a Markdown blog post using
// a pluggable text-generation backend.
package generate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/blog-cli/internal/model"
)

// Kind names a generation backend.
type Kind string

const (
	KindOpenAI Kind = "openai"
	KindClaude Kind = "claude"
)

// ParseKind resolves a user-supplied backend name. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindOpenAI, KindClaude:
		return k, nil
	default:
		return "", eris.Errorf("generate: unknown backend %q (want openai or claude)", s)
	}
}

// Backend produces a Markdown document from a non-empty list of items.
type Backend interface {
	Kind() Kind
	Generate(ctx context.Context, items []*model.ContentItem) (string, error)
}

// GenerationError is any backend failure: auth, quota, timeout or an empty reply.
type GenerationError struct {
	Backend Kind
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func genErr(kind Kind, err error) *GenerationError {
	return &GenerationError{Backend: kind, Err: err}
}

// Usage is the token accounting for one Generate call.
type Usage struct {
	Backend      Kind
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// UsageFunc receives token usage after every successful backend call.
type UsageFunc func(Usage)

// Registry maps kinds to configured backends.
type Registry struct {
	mu       sync.RWMutex
	backends map[Kind]Backend
}

// NewRegistry creates a Registry holding backends.
func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: make(map[Kind]Backend)}
	for _, b := range backends {
		r.Register(b)
	}
	return r
}

// Register adds or replaces the backend for b.Kind().
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Kind()] = b
}

// Get returns the backend for kind.
func (r *Registry) Get(kind Kind) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[kind]
	if !ok {
		return nil, eris.Errorf("generate: backend %q is not configured", kind)
	}
	return b, nil
}

// Resolve parses name and returns the matching backend.
func (r *Registry) Resolve(name string) (Backend, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return r.Get(kind)
}

// Kinds lists configured backends in sorted order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.backends))
	for k := range r.backends {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
