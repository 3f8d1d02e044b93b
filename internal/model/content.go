package model

// SourceKind identifies which source list produced a ContentItem.
type SourceKind string

const (
	SourceWeb    SourceKind = "web"
	SourceSocial SourceKind = "social"
)

// ContentItem is the normalized unit of fetched content. Every fetcher
// produces the same shape regardless of where the content came from.
type ContentItem struct {
	Title      string     `json:"title"`
	Text       string     `json:"text"`
	Comments   []string   `json:"comments,omitempty"` // social items only
	Images     []ImageRef `json:"images,omitempty"`
	Source     SourceKind `json:"source"`
	Identifier string     `json:"identifier"`
}

// HasComments reports whether the item carries any discussion comments.
func (c *ContentItem) HasComments() bool {
	return len(c.Comments) > 0
}

// ImageRef is an image found at a source plus its annotation state.
type ImageRef struct {
	URL          string  `json:"url"`
	CurrentAlt   string  `json:"current_alt"`
	GeneratedAlt *string `json:"generated_alt,omitempty"` // nil until annotated
}

// SetGeneratedAlt records the annotated alt text. It only succeeds once;
// later calls leave the first value in place and return false.
func (r *ImageRef) SetGeneratedAlt(alt string) bool {
	if r.GeneratedAlt != nil {
		return false
	}
	r.GeneratedAlt = &alt
	return true
}

// ImageCount returns the total number of images across items.
func ImageCount(items []*ContentItem) int {
	n := 0
	for _, it := range items {
		n += len(it.Images)
	}
	return n
}
