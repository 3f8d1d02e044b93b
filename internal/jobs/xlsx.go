package jobs

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/blog-cli/internal/model"
)

// XLSXOptions configures the XLSX job reader.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadXLSX reads one job per row. The first row is a header naming the
// columns title, urls, subreddits and ai_model in any order. Multi-valued
// cells may separate entries with newlines, commas or spaces.
func ReadXLSX(path string, opts XLSXOptions) ([]model.Request, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: open xlsx")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	cols := map[string]int{}
	for i, h := range rowToStrings(sheet.Rows[0]) {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["urls"]; !ok {
		if _, ok := cols["subreddits"]; !ok {
			return nil, eris.New("jobs: xlsx header needs a urls or subreddits column")
		}
	}

	var reqs []model.Request
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		cell := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(cells) {
				return ""
			}
			return cells[i]
		}

		req := model.Request{
			Title:      cell("title"),
			URLs:       splitList(cell("urls")),
			Subreddits: splitList(cell("subreddits")),
			Backend:    cell("ai_model"),
		}
		if strings.TrimSpace(req.Title) == "" && !req.HasSources() {
			continue
		}
		reqs = append(reqs, req.Clean())
	}
	return reqs, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("jobs: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("jobs: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
