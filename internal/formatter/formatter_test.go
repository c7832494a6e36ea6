package formatter

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spoti/internal/library"
	"github.com/desertthunder/spoti/internal/shared"
	"github.com/desertthunder/spoti/internal/tags"
	th "github.com/desertthunder/spoti/internal/testing"
)

var mp3Frame = append([]byte{0xFF, 0xFB, 0x90, 0x00}, make([]byte, 413)...)

func sampleLibrary(t *testing.T) (*library.Index, string) {
	t.Helper()
	dir := t.TempDir()

	royals := filepath.Join(dir, "Lorde - Royals.mp3")
	th.MustWriteFile(t, royals, bytes.Repeat(mp3Frame, 3))
	tg := &tags.Tags{Title: "Royals", Artist: "Lorde", Album: "Pure Heroine", Year: "2013", BPM: "85", Key: "D"}
	tg.Set(tags.IdentityKey, "t1")
	tg.SetDuration(190 * time.Second)
	if err := (tags.ID3Codec{}).Write(royals, tg); err != nil {
		t.Fatalf("failed to tag sample: %v", err)
	}

	th.MustWriteFile(t, filepath.Join(dir, "Song | B.flac"), []byte("not really flac"))

	x := library.New(tags.NewRegistry(), nil, nil)
	if err := x.Mount(dir); err != nil {
		t.Fatalf("failed to mount: %v", err)
	}
	return x, dir
}

func TestNewReport(t *testing.T) {
	ctx := context.Background()
	x, dir := sampleLibrary(t)

	t.Run("basic", func(t *testing.T) {
		r := NewReport(ctx, dir, x.Items(), false)
		if len(r.Rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(r.Rows))
		}
		row := r.Rows[0]
		if row.Title != "Lorde - Royals" || row.File != "Lorde - Royals.mp3" || row.Format != "mp3" {
			t.Errorf("unexpected row %+v", row)
		}
		if row.ID != "" || row.Tags != "" {
			t.Errorf("expected tags to stay unread, got %+v", row)
		}
		if r.TotalSize() != r.Rows[0].Size+r.Rows[1].Size {
			t.Errorf("unexpected total size %d", r.TotalSize())
		}
	})

	t.Run("more", func(t *testing.T) {
		r := NewReport(ctx, dir, x.Items(), true)
		row := r.Rows[0]
		if row.ID != "t1" || row.Duration != 190*time.Second {
			t.Errorf("expected identity and duration, got %+v", row)
		}
		if row.Tags != "Lorde; Pure Heroine; 2013; 85 bpm; D" {
			t.Errorf("unexpected tag summary %q", row.Tags)
		}
		if r.Rows[1].ID != "" || r.Rows[1].Duration != 0 {
			t.Errorf("expected unreadable file to have no metadata, got %+v", r.Rows[1])
		}
	})
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name string
		tags *tags.Tags
		want string
	}{
		{"nil", nil, ""},
		{"empty", &tags.Tags{}, ""},
		{"partial", &tags.Tags{Artist: "Prince", Year: "1982"}, "Prince; 1982"},
		{"cover", &tags.Tags{Album: "1999", Picture: &tags.Picture{MIME: "image/jpeg"}}, "1999; cover"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summary(tt.tags); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func sampleReport(more bool) *Report {
	return &Report{
		Dir:  "/music",
		More: more,
		Rows: []Row{
			{Title: "Lorde - Royals", File: "Lorde - Royals.mp3", Format: "mp3", Size: 3_210_000, ID: "t1", Duration: 190 * time.Second, Tags: "Lorde; Pure Heroine"},
			{Title: "Song | B", File: "Song | B.flac", Format: "flac", Size: 900},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleReport(false))
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		output := string(data)

		if !strings.HasPrefix(output, "Title,File,Format,Size\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "Lorde - Royals,Lorde - Royals.mp3,mp3,3210000") {
			t.Errorf("CSV missing first row, got: %s", output)
		}
		if strings.Contains(output, "t1") {
			t.Errorf("CSV should not include identity without more")
		}

		t.Run("more", func(t *testing.T) {
			data, err := ExportToCSV(sampleReport(true))
			if err != nil {
				t.Fatalf("ExportToCSV failed: %v", err)
			}
			output := string(data)
			if !strings.HasPrefix(output, "Title,File,Format,Size,ID,Duration,Tags\n") {
				t.Errorf("CSV missing extended headers, got: %s", output)
			}
			if !strings.Contains(output, "t1,3:10.00,Lorde; Pure Heroine") {
				t.Errorf("CSV missing extended columns, got: %s", output)
			}
		})
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleReport(false))
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{
			"# Library",
			"**Directory**: /music",
			"**Items**: 2",
			"**Size**: 3.21MB",
			"| # | Title | File | Format | Size |",
			"| 1 | Lorde - Royals | Lorde - Royals.mp3 | mp3 | 3.21MB |",
			`| 2 | Song \| B | Song \| B.flac | flac | 900B |`,
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got: %s", want, output)
			}
		}

		t.Run("more", func(t *testing.T) {
			data, _ := ExportToMarkdown(sampleReport(true))
			if !strings.Contains(string(data), "| t1 | 3:10.00 | Lorde; Pure Heroine |") {
				t.Errorf("Markdown missing extended columns, got: %s", data)
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleReport(true))
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{
			"Library: /music",
			"Items: 2 (3.21MB)",
			"1. Lorde - Royals [mp3, 3.21MB]",
			"   id: t1",
			"   duration: 3:10.00",
			"2. Song | B [flac, 900B]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Text missing %q, got: %s", want, output)
			}
		}
		if strings.Count(output, "id:") != 1 {
			t.Errorf("expected empty fields to be omitted, got: %s", output)
		}
	})

	t.Run("Export", func(t *testing.T) {
		tests := []struct {
			format string
			prefix string
		}{
			{"csv", "Title,File"},
			{"markdown", "# Library"},
			{"md", "# Library"},
			{"txt", "Library:"},
			{"", "Library:"},
		}
		for _, tt := range tests {
			data, err := Export(sampleReport(false), tt.format)
			if err != nil {
				t.Fatalf("Export(%q) failed: %v", tt.format, err)
			}
			if !strings.HasPrefix(string(data), tt.prefix) {
				t.Errorf("Export(%q) = %q", tt.format, data)
			}
		}

		if _, err := Export(sampleReport(false), "xml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("WithDefaultPath", func(t *testing.T) {
		tmpDir := t.TempDir()
		origDir := th.MustGetwd(t)
		th.MustChdir(t, tmpDir)
		defer th.MustChdir(t, origDir)

		path, err := WriteExport(sampleReport(false), "markdown", "")
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if path != "library.md" {
			t.Errorf("expected library.md, got %s", path)
		}
		th.AssertFileExists(t, filepath.Join(tmpDir, "library.md"))
	})

	t.Run("WithCustomPath", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")
		got, err := WriteExport(sampleReport(false), "csv", path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		if content := th.MustReadFile(t, path); !strings.HasPrefix(content, "Title,File") {
			t.Errorf("unexpected content %q", content)
		}
	})

	t.Run("WithBadFormat", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.xml")
		if _, err := WriteExport(sampleReport(false), "xml", path); err == nil {
			t.Fatal("expected error")
		}
		th.AssertFileMissing(t, path)
	})

	t.Run("WithUnwritablePath", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "out.txt")
		if _, err := WriteExport(sampleReport(false), "txt", path); err == nil {
			t.Fatal("expected error")
		}
		if _, err := os.Stat(path); err == nil {
			t.Error("expected no file")
		}
	})
}
