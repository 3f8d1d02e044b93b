package source

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/blog-cli/internal/model"
)

// Normalize applies NFC normalisation to every text field of item, drops
// blank comments and images without a URL. Line structure is preserved.
func Normalize(item *model.ContentItem) *model.ContentItem {
	item.Title = norm.NFC.String(item.Title)
	item.Text = norm.NFC.String(item.Text)

	var comments []string
	for _, c := range item.Comments {
		if strings.TrimSpace(c) == "" {
			continue
		}
		comments = append(comments, norm.NFC.String(c))
	}
	item.Comments = comments

	images := make([]model.ImageRef, 0, len(item.Images))
	for _, img := range item.Images {
		img.URL = strings.TrimSpace(img.URL)
		if img.URL == "" {
			continue
		}
		img.CurrentAlt = norm.NFC.String(strings.TrimSpace(img.CurrentAlt))
		images = append(images, img)
	}
	item.Images = images
	return item
}
