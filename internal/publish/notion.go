package publish

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/blog-cli/pkg/notion"
)

// NotionSink creates one Notion database page per artifact.
type NotionSink struct {
	client     notion.Client
	databaseID string
}

// NewNotionSink creates a NotionSink.
func NewNotionSink(client notion.Client, databaseID string) *NotionSink {
	return &NotionSink{client: client, databaseID: databaseID}
}

func (s *NotionSink) Name() string { return "notion" }

// Publish creates a page titled with the run title, or the artifact's file
// name when no title was given.
func (s *NotionSink) Publish(ctx context.Context, a Artifact) error {
	if s.databaseID == "" {
		return eris.New("notion: database id is not configured")
	}
	title := a.Title
	if title == "" {
		title = filepath.Base(a.Path)
	}

	page, err := notion.PublishMarkdown(ctx, s.client, s.databaseID, title, a.Content)
	if err != nil {
		return err
	}
	zap.L().Debug("notion: page created", zap.String("page_id", string(page.ID)), zap.String("title", title))
	return nil
}
