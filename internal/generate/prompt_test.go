package generate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/blog-cli/internal/model"
)

func TestBuildPayload(t *testing.T) {
	tests := []struct {
		name  string
		items []*model.ContentItem
		want  string
	}{
		{
			name:  "single web item",
			items: []*model.ContentItem{{Title: "T", Text: "Body."}},
			want:  "Title: T\nContent: Body.\n",
		},
		{
			name:  "empty fields still emit lines",
			items: []*model.ContentItem{{}},
			want:  "Title: \nContent: \n",
		},
		{
			name: "comments only when present",
			items: []*model.ContentItem{
				{Title: "a", Text: "x"},
				{Title: "b\n", Text: "y\n", Comments: []string{"first", "second one"}},
				{Title: "c", Text: "z", Comments: []string{}},
			},
			want: "Title: a\nContent: x\n" +
				"Title: b\n\nContent: y\n\nComments: first second one\n" +
				"Title: c\nContent: z\n",
		},
		{
			name: "images are not part of the payload",
			items: []*model.ContentItem{{
				Title:  "T",
				Text:   "Body.",
				Images: []model.ImageRef{{URL: "https://x/1.png", CurrentAlt: "alt"}},
			}},
			want: "Title: T\nContent: Body.\n",
		},
		{
			name:  "no items",
			items: nil,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildPayload(tt.items))
		})
	}
}

func TestBuildPayload_Deterministic(t *testing.T) {
	items := []*model.ContentItem{
		{Title: "one", Text: "alpha", Comments: []string{"c1", "c2", "c3"}},
		{Title: "two", Text: "beta"},
	}
	first := BuildPayload(items)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, BuildPayload(items))
	}
	assert.Equal(t, "one", items[0].Title)
	assert.Len(t, items[0].Comments, 3)
}

func TestUserMessage(t *testing.T) {
	msg := UserMessage("Title: T\nContent: Body.\n")
	assert.True(t, strings.HasPrefix(msg, "Create a blog post from this content: Title: T\nContent: Body.\n"))
	assert.Contains(t, msg, "Include images with alt text")
	assert.True(t, strings.HasSuffix(msg, "markdown syntax"))
}
