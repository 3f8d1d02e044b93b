package generate

import (
	"strings"

	"github.com/sells-group/blog-cli/internal/model"
)

// SystemFraming is the system instruction given to every backend.
const SystemFraming = "You are a professional blog writer. Create a well-structured, engaging blog post from the provided content."

const (
	userPrefix = "Create a blog post from this content: "
	userSuffix = "\n\nInclude images with alt text accurately describing what the image is all about. " +
		"The blog should be formatted in markdown syntax"
)

// BuildPayload flattens items into the prompt payload. Each item emits a
// Title line, a Content line and, only when it has comments, a Comments line.
// Items are concatenated without separators.
func BuildPayload(items []*model.ContentItem) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("Title: ")
		sb.WriteString(item.Title)
		sb.WriteString("\n")
		sb.WriteString("Content: ")
		sb.WriteString(item.Text)
		sb.WriteString("\n")
		if item.HasComments() {
			sb.WriteString("Comments: ")
			sb.WriteString(strings.Join(item.Comments, " "))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// UserMessage wraps a payload in the user instruction.
func UserMessage(payload string) string {
	return userPrefix + payload + userSuffix
}
