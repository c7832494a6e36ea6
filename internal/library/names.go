package library

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/desertthunder/spoti/internal/models"
	"github.com/gosimple/unidecode"
	"golang.org/x/text/unicode/norm"
)

const (
	// HiddenPrefix marks working files so they stay out of the way in file browsers.
	HiddenPrefix = "."

	// HiddenSuffix is appended to the title of working files, before the extension.
	HiddenSuffix = ".spoti"
)

var sanitizer = strings.NewReplacer(
	" / ", " ",
	"/", "",
	` \ `, " ",
	`\`, "",
	".", "",
	":", "",
	"*", "",
	"?", "",
	`"`, "",
	"<", "",
	">", "",
	"|", "",
	"$", "S",
	"€", "E",
	"‘", "'",
	"’", "'",
	"“", "'",
	"”", "'",
)

var spaces = regexp.MustCompile(`\s+`)

// Sanitize makes name safe to use as a file name on every common filesystem.
func Sanitize(name string) string {
	name = norm.NFC.String(name)
	name = sanitizer.Replace(name)
	return strings.TrimSpace(spaces.ReplaceAllString(name, " "))
}

// FileName returns the on-disk name for title in format. Working formats are hidden.
func FileName(title string, format models.AudioFormat) string {
	if format.Working() {
		return HiddenPrefix + title + HiddenSuffix + "." + format.String()
	}
	return title + "." + format.String()
}

// SanitizedName returns file renamed to its sanitized title, keeping the hidden prefix and the format.
func SanitizedName(file string) string {
	base := filepath.Base(file)
	format, _ := models.ParseAudioFormat(base)
	name := FileName(Title(base), format)
	if strings.HasPrefix(base, HiddenPrefix) && !strings.HasPrefix(name, HiddenPrefix) {
		name = HiddenPrefix + name
	}
	return name
}

// Clean strips the extension and hidden-file markers from file.
func Clean(file string) string {
	base := filepath.Base(file)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimPrefix(base, HiddenPrefix)
	return strings.TrimSuffix(base, HiddenSuffix)
}

// Title returns the sanitized logical title of file.
func Title(file string) string {
	return Sanitize(Clean(file))
}

var (
	trackPrefix  = regexp.MustCompile(`^\d{1,3}[\s.\-_]+`)
	copySuffix   = regexp.MustCompile(`(?i)(\s+\(\d+\)|\s+copy)+$`)
	foldReplacer = strings.NewReplacer("&", "and")
)

// Canonical removes decoration commonly added by hand or by file managers: a leading track number
// ("01 - ", "7. ") and trailing duplicate markers (" (1)", " copy").
func Canonical(title string) string {
	title = trackPrefix.ReplaceAllString(title, "")
	title = copySuffix.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

// fold normalizes a title for containment checks.
func fold(s string) string {
	s = strings.ToLower(unidecode.Unidecode(s))
	s = foldReplacer.Replace(s)
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}
