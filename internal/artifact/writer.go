// Package artifact persists generated Markdown to the output directory.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TimestampLayout is the filename timestamp format.
const TimestampLayout = "20060102_150405"

const maxSuffix = 1000

// Writer writes blog_<timestamp>.md files into a directory.
type Writer struct {
	dir string
	now func() time.Time
}

// Option configures a Writer.
type Option func(*Writer)

// WithClock overrides the time source used for filenames.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// NewWriter creates a Writer for dir. The directory is created on first write.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{dir: dir, now: time.Now}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Filename returns the base filename for t without any collision suffix.
func Filename(t time.Time) string {
	return "blog_" + t.Format(TimestampLayout) + ".md"
}

// Write stores content verbatim and returns the path written. An existing
// file is never overwritten; a numeric suffix is added instead.
func (w *Writer) Write(ctx context.Context, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", eris.Wrap(err, "artifact: write")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "artifact: create dir %s", w.dir)
	}

	base := Filename(w.now())
	stem := strings.TrimSuffix(base, ".md")
	for n := 1; n <= maxSuffix; n++ {
		name := base
		if n > 1 {
			name = fmt.Sprintf("%s_%d.md", stem, n)
		}
		path := filepath.Join(w.dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", eris.Wrapf(err, "artifact: create %s", path)
		}

		if _, err := f.WriteString(content); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", eris.Wrapf(err, "artifact: write %s", path)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", eris.Wrapf(err, "artifact: close %s", path)
		}

		zap.L().Debug("artifact: written", zap.String("path", path), zap.Int("bytes", len(content)))
		return path, nil
	}
	return "", eris.Errorf("artifact: no free filename for %s in %s", base, w.dir)
}
