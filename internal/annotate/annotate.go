// Package annotate fills in alt text for every image found during fetching.
// Annotation is best-effort: a failed description falls back to the alt text
// the source already had and never fails the run.
package annotate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/blog-cli/internal/model"
)

// Mode selects how images are annotated.
type Mode string

const (
	// ModeFallback copies the source alt text without calling any model.
	ModeFallback Mode = "fallback"
	// ModeVision asks a vision-capable model to describe each image.
	ModeVision Mode = "vision"
)

// Describer produces alt text for a single image.
type Describer interface {
	Describe(ctx context.Context, img model.ImageRef) (string, error)
}

// Error is a failed description for one image. It is only ever logged.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("annotate %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// WithFallback resolves the outcome of a Describe call into final alt text.
// An error or a blank description yields current.
func WithFallback(desc string, err error, current string) string {
	if err != nil {
		return current
	}
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return current
	}
	return desc
}

// Stats counts what an Annotate call did.
type Stats struct {
	Described int
	Fallback  int
}

// Annotator sets GeneratedAlt on every image of every item.
type Annotator struct {
	describer Describer
}

// New creates an Annotator. A nil describer means fallback mode.
func New(d Describer) *Annotator {
	return &Annotator{describer: d}
}

// Mode reports the mode the annotator runs in.
func (a *Annotator) Mode() Mode {
	if a.describer == nil {
		return ModeFallback
	}
	return ModeVision
}

// Annotate mutates items in place and returns them. Images that already
// carry a generated alt are left untouched.
func (a *Annotator) Annotate(ctx context.Context, items []*model.ContentItem) []*model.ContentItem {
	a.AnnotateWithStats(ctx, items)
	return items
}

// AnnotateWithStats is Annotate plus counts of described and fallback images.
func (a *Annotator) AnnotateWithStats(ctx context.Context, items []*model.ContentItem) Stats {
	var st Stats
	for _, item := range items {
		for i := range item.Images {
			img := &item.Images[i]
			if img.GeneratedAlt != nil {
				continue
			}
			alt, described := a.describe(ctx, *img)
			img.SetGeneratedAlt(alt)
			if described {
				st.Described++
			} else {
				st.Fallback++
			}
		}
	}
	return st
}

func (a *Annotator) describe(ctx context.Context, img model.ImageRef) (string, bool) {
	if a.describer == nil {
		return img.CurrentAlt, false
	}
	if ctx.Err() != nil {
		return img.CurrentAlt, false
	}

	desc, err := a.describer.Describe(ctx, img)
	if err != nil {
		err = &Error{URL: img.URL, Err: err}
		zap.L().Warn("annotate: describe failed, using source alt",
			zap.String("url", img.URL),
			zap.Error(err),
		)
	}
	alt := WithFallback(desc, err, img.CurrentAlt)
	return alt, err == nil && strings.TrimSpace(desc) != ""
}
