// Package reportfile implements the ReportWriter port on the local filesystem.
package reportfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ericfisherdev/ghreport/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReportWriter = (*Writer)(nil)

// FileNameLayout is the time layout of report file names, one file per day.
const FileNameLayout = "2006-01-02 - Github Report.md"

// Writer stores reports as Markdown files in a directory.
type Writer struct {
	dir  string
	file string // fixed file name; empty means one file per day
}

// NewWriter creates a Writer rooted at dir. The directory is created on first
// write if it does not exist.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// NewFileWriter creates a Writer that always writes to path, whatever the
// report date.
func NewFileWriter(path string) *Writer {
	return &Writer{dir: filepath.Dir(path), file: filepath.Base(path)}
}

// Write stores markdown under the file name for generatedAt's date and returns
// the path written. A later report on the same day replaces the earlier one.
// The file is written to a temporary name first and renamed into place.
func (w *Writer) Write(ctx context.Context, generatedAt time.Time, markdown string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir %s: %w", w.dir, err)
	}

	name := w.file
	if name == "" {
		name = generatedAt.Format(FileNameLayout)
	}
	path := filepath.Join(w.dir, name)

	tmp, err := os.CreateTemp(w.dir, ".report-*.md")
	if err != nil {
		return "", fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(markdown); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move report into place: %w", err)
	}

	return path, nil
}
