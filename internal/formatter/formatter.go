// package formatter exports library listings to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spoti/internal/library"
	"github.com/desertthunder/spoti/internal/shared"
	"github.com/desertthunder/spoti/internal/tags"
)

// Row is one library item as it appears in a report.
type Row struct {
	Title    string
	File     string
	Format   string
	Size     int64
	ID       string
	Duration time.Duration
	Tags     string
}

// Report is a listing of a library directory. ID, Duration and Tags are only filled when More is set.
type Report struct {
	Dir  string
	More bool
	Rows []Row
}

// NewReport builds a report from items. With more set every item's tags are read.
func NewReport(ctx context.Context, dir string, items []*library.Item, more bool) *Report {
	r := &Report{Dir: dir, More: more, Rows: make([]Row, 0, len(items))}
	for _, it := range items {
		row := Row{
			Title:  it.Title,
			File:   it.Raw.File,
			Format: it.Format.String(),
			Size:   it.Size,
		}
		if more {
			meta := it.Metadata(ctx)
			row.ID = meta.ID
			row.Duration = meta.Duration
			row.Tags = Summary(meta.Tags)
		}
		r.Rows = append(r.Rows, row)
	}
	return r
}

// TotalSize sums the size of every row.
func (r *Report) TotalSize() int64 {
	var n int64
	for _, row := range r.Rows {
		n += row.Size
	}
	return n
}

// Summary renders the descriptive fields of t on one line.
func Summary(t *tags.Tags) string {
	if t == nil {
		return ""
	}
	var parts []string
	for _, v := range []string{t.Artist, t.Album, t.Year, t.Genre} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	if t.BPM != "" {
		parts = append(parts, t.BPM+" bpm")
	}
	if t.Key != "" {
		parts = append(parts, t.Key)
	}
	if t.Picture != nil {
		parts = append(parts, "cover")
	}
	return strings.Join(parts, "; ")
}

func duration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return shared.FormatDuration(d)
}

// ExportToCSV converts a Report to CSV format with columns: Title, File, Format, Size (+ ID, Duration, Tags)
func ExportToCSV(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Title", "File", "Format", "Size"}
	if r.More {
		headers = append(headers, "ID", "Duration", "Tags")
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range r.Rows {
		record := []string{row.Title, row.File, row.Format, strconv.FormatInt(row.Size, 10)}
		if r.More {
			record = append(record, row.ID, duration(row.Duration), row.Tags)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// ExportToMarkdown converts a Report to a Markdown table
func ExportToMarkdown(r *Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Library\n\n")
	if r.Dir != "" {
		buf.WriteString(fmt.Sprintf("**Directory**: %s\n", r.Dir))
	}
	buf.WriteString(fmt.Sprintf("**Items**: %d\n", len(r.Rows)))
	buf.WriteString(fmt.Sprintf("**Size**: %s\n\n", shared.FormatSize(r.TotalSize())))

	if r.More {
		buf.WriteString("| # | Title | File | Format | Size | ID | Duration | Tags |\n")
		buf.WriteString("|---|---|---|---|---|---|---|---|\n")
	} else {
		buf.WriteString("| # | Title | File | Format | Size |\n")
		buf.WriteString("|---|---|---|---|---|\n")
	}

	for i, row := range r.Rows {
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |", i+1, cell(row.Title), cell(row.File), row.Format, shared.FormatSize(row.Size)))
		if r.More {
			buf.WriteString(fmt.Sprintf(" %s | %s | %s |", row.ID, duration(row.Duration), cell(row.Tags)))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Report to plain text format
func ExportToText(r *Report) ([]byte, error) {
	var buf bytes.Buffer

	if r.Dir != "" {
		buf.WriteString(fmt.Sprintf("Library: %s\n", r.Dir))
	}
	buf.WriteString(fmt.Sprintf("Items: %d (%s)\n\n", len(r.Rows), shared.FormatSize(r.TotalSize())))

	for i, row := range r.Rows {
		buf.WriteString(fmt.Sprintf("%d. %s [%s, %s]\n", i+1, row.Title, row.Format, shared.FormatSize(row.Size)))
		if !r.More {
			continue
		}
		buf.WriteString(fmt.Sprintf("   file: %s\n", row.File))
		if row.ID != "" {
			buf.WriteString(fmt.Sprintf("   id: %s\n", row.ID))
		}
		if d := duration(row.Duration); d != "" {
			buf.WriteString(fmt.Sprintf("   duration: %s\n", d))
		}
		if row.Tags != "" {
			buf.WriteString(fmt.Sprintf("   tags: %s\n", row.Tags))
		}
	}

	return buf.Bytes(), nil
}

// Export renders r in the named format: csv, markdown (md) or txt (text).
func Export(r *Report, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "csv":
		return ExportToCSV(r)
	case "markdown", "md":
		return ExportToMarkdown(r)
	case "txt", "text", "":
		return ExportToText(r)
	default:
		return nil, fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidFlag, format)
	}
}

// Extension returns the file extension used for format, including the dot.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case "csv":
		return ".csv"
	case "markdown", "md":
		return ".md"
	default:
		return ".txt"
	}
}

// WriteExport renders r in format and writes it to path.
//
// Defaults to library{ext} in the working directory.
func WriteExport(r *Report, format, path string) (string, error) {
	data, err := Export(r, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = "library" + Extension(format)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
