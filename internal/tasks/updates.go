package tasks

import (
	"fmt"

	"github.com/desertthunder/spoti/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Completed steps within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// ByteProgress is the Data of a [DownloadBytes] update.
type ByteProgress struct {
	File    string
	Written int64
	Total   int64 // 0 when the provider gave no size hint
}

// Fraction returns Written/Total clamped to [0, 1], or 0 when Total is unknown.
func (b ByteProgress) Fraction() float64 {
	if b.Total <= 0 {
		return 0
	}
	return min(float64(b.Written)/float64(b.Total), 1)
}

// Operation phase enumeration
type Phase int

const (
	FetchCatalog Phase = iota
	FetchFeatures
	Prepare
	Search
	Download
	DownloadBytes
	Convert
	Tag
	Complete
)

func (p Phase) String() string {
	switch p {
	case FetchCatalog:
		return "fetch_catalog"
	case FetchFeatures:
		return "fetch_features"
	case Prepare:
		return "prepare"
	case Search:
		return "search"
	case Download:
		return "download"
	case DownloadBytes:
		return "download_bytes"
	case Convert:
		return "convert"
	case Tag:
		return "tag"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func fetchCatalogUpdate(step, total int, kind models.TargetType, name string) ProgressUpdate {
	msg := fmt.Sprintf("Fetching %s from Spotify...", kind)
	if name != "" {
		msg = fmt.Sprintf("Fetching %s %q (%d/%d tracks)...", kind, name, step, total)
	}
	return ProgressUpdate{Phase: FetchCatalog, Step: step, Total: total, Message: msg}
}

func fetchFeaturesUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeatures,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Gathering audio features (%d/%d)...", step, total),
	}
}

func prepareUpdate(step, total, existing int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Prepare,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Checking library: %d of %d tracks already present", existing, total),
	}
}

func stageUpdate(phase Phase, step, total int, tr models.Track) ProgressUpdate {
	verb := map[Phase]string{
		Search:   "Searching",
		Download: "Downloading",
		Convert:  "Converting",
		Tag:      "Tagging",
	}[phase]
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s - %s", step, total, verb, tr.JoinedArtists(), tr.Name),
		Data:    tr,
	}
}

func bytesUpdate(p ByteProgress) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadBytes,
		Message: p.File,
		Data:    p,
	}
}

func completeUpdate(r *Result) ProgressUpdate {
	total := len(r.Passed) + len(r.Failed)
	return ProgressUpdate{
		Phase:   Complete,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("%d passed, %d failed", len(r.Passed), len(r.Failed)),
		Data:    r,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
