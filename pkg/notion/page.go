package notion

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

const (
	// MaxRichTextLen is Notion's limit on a single rich text content string.
	MaxRichTextLen = 2000
	// MaxChildrenPerRequest is Notion's limit on blocks per create/append call.
	MaxChildrenPerRequest = 100
)

// PublishMarkdown creates a page titled title in the database and writes
// markdown into it as heading and paragraph blocks. Blocks beyond the
// per-request limit are appended in follow-up calls. Returns the page.
func PublishMarkdown(ctx context.Context, c Client, dbID, title, markdown string) (*notionapi.Page, error) {
	blocks := MarkdownBlocks(markdown)

	first := blocks
	if len(first) > MaxChildrenPerRequest {
		first = blocks[:MaxChildrenPerRequest]
	}

	page, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: notionapi.Properties{
			"Name": notionapi.TitleProperty{
				Type:  notionapi.PropertyTypeTitle,
				Title: richText(title),
			},
		},
		Children: first,
	})
	if err != nil {
		return nil, eris.Wrap(err, "notion: publish markdown")
	}

	for i := len(first); i < len(blocks); i += MaxChildrenPerRequest {
		end := min(i+MaxChildrenPerRequest, len(blocks))
		if err := c.AppendBlocks(ctx, string(page.ID), blocks[i:end]); err != nil {
			return page, eris.Wrap(err, "notion: publish markdown")
		}
	}
	return page, nil
}

// MarkdownBlocks converts markdown into Notion blocks. ATX headings (#, ##,
// ###) become heading blocks; runs of other non-blank lines become
// paragraphs split at MaxRichTextLen characters.
func MarkdownBlocks(markdown string) []notionapi.Block {
	var (
		blocks []notionapi.Block
		para   []string
	)
	flush := func() {
		if len(para) == 0 {
			return
		}
		for _, chunk := range splitRunes(strings.Join(para, "\n"), MaxRichTextLen) {
			blocks = append(blocks, paragraph(chunk))
		}
		para = nil
	}

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case strings.HasPrefix(trimmed, "### "):
			flush()
			blocks = append(blocks, heading(3, strings.TrimPrefix(trimmed, "### ")))
		case strings.HasPrefix(trimmed, "## "):
			flush()
			blocks = append(blocks, heading(2, strings.TrimPrefix(trimmed, "## ")))
		case strings.HasPrefix(trimmed, "# "):
			flush()
			blocks = append(blocks, heading(1, strings.TrimPrefix(trimmed, "# ")))
		default:
			para = append(para, line)
		}
	}
	flush()
	return blocks
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}

func paragraph(s string) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeParagraph},
		Paragraph:  notionapi.Paragraph{RichText: richText(s)},
	}
}

func heading(level int, s string) notionapi.Block {
	s = truncateRunes(s, MaxRichTextLen)
	h := notionapi.Heading{RichText: richText(s)}
	switch level {
	case 1:
		return &notionapi.Heading1Block{
			BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeHeading1},
			Heading1:   h,
		}
	case 2:
		return &notionapi.Heading2Block{
			BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeHeading2},
			Heading2:   h,
		}
	default:
		return &notionapi.Heading3Block{
			BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeHeading3},
			Heading3:   h,
		}
	}
}

// splitRunes splits s into chunks of at most n runes.
func splitRunes(s string, n int) []string {
	if utf8.RuneCountInString(s) <= n {
		return []string{s}
	}
	var out []string
	runes := []rune(s)
	for i := 0; i < len(runes); i += n {
		out = append(out, string(runes[i:min(i+n, len(runes))]))
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
