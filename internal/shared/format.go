package shared

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

var sizeUnits = []string{"B", "kB", "MB", "GB", "TB"}

// FormatDuration renders d in colon notation with centiseconds, e.g. 3:05.12 or 1:02:03.00.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	cs := int(d/(10*time.Millisecond)) % 100

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
	}
	return fmt.Sprintf("%d:%02d.%02d", m, s, cs)
}

// FormatSize renders a byte count with decimal (SI) units and two fraction digits.
func FormatSize(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%dB", n)
	}
	v := float64(n)
	unit := 0
	for v >= 1000 && unit < len(sizeUnits)-1 {
		v /= 1000
		unit++
	}
	return fmt.Sprintf("%.2f%s", v, sizeUnits[unit])
}

// Truncate clamps a file name to length runes keeping its extension, or pads it with spaces when shorter.
func Truncate(file string, length int) string {
	n := utf8.RuneCountInString(file)
	if n <= length {
		return file + strings.Repeat(" ", length-n)
	}

	ext := filepath.Ext(file)
	base := []rune(strings.TrimSuffix(file, ext))
	clamp := length - utf8.RuneCountInString(ext) - 1
	if clamp < 0 {
		clamp = 0
	}
	if clamp > len(base) {
		clamp = len(base)
	}
	return string(base[:clamp]) + "…" + ext
}
