// Package scorer ranks provider search candidates against a catalog track.
//
// Each candidate receives three signals in [0, 1] where 0 is a perfect match:
// duration (binary, within [DurationWindow]), title and artist (token-set fuzzy coverage).
// Candidates are ordered by the sum, ties keeping provider order.
package scorer

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/desertthunder/spoti/internal/models"
	"github.com/gosimple/unidecode"
	"github.com/sahilm/fuzzy"
)

const (
	// DurationWindow is the tolerance for the duration signal.
	DurationWindow = 10 * time.Second

	// Threshold is the minimum token coverage for a title or artist to count as matched.
	Threshold = 0.5

	// tokenRatio is how close in length a fuzzy token hit must be to the token it matched.
	tokenRatio = 0.75
)

// Scored is a candidate with its individual signals.
type Scored struct {
	Candidate models.Candidate
	Duration  float64
	Title     float64
	Artist    float64
}

// Total is the sum of the three signals, from 0 (best) to 3 (worst).
func (s Scored) Total() float64 {
	return s.Duration + s.Title + s.Artist
}

// Score computes signals for every candidate and returns them best first.
func Score(track models.Track, candidates []models.Candidate) []Scored {
	title := Tokens(track.Name)
	artist := Tokens(track.JoinedArtists())

	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{
			Candidate: c,
			Duration:  durationSignal(track.Duration(), c.Duration()),
			Title:     signal(title, Tokens(c.Title)),
			Artist:    signal(artist, Tokens(c.Artist)),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Total() < scored[j].Total()
	})
	return scored
}

// Best returns the highest ranked candidate, or false when there are none.
func Best(track models.Track, candidates []models.Candidate) (models.Candidate, bool) {
	scored := Score(track, candidates)
	if len(scored) == 0 {
		return models.Candidate{}, false
	}
	return scored[0].Candidate, true
}

// Similarity is the fuzzy signal between two free-form strings: 0 when every token of want is found in got, 1 when too few are.
func Similarity(want, got string) float64 {
	return signal(Tokens(want), Tokens(got))
}

// Coverage is the fraction of tokens in want that have a close fuzzy match among the tokens of got.
func Coverage(want, got []string) float64 {
	if len(want) == 0 || len(got) == 0 {
		return 0
	}

	hits := 0
	for _, token := range want {
		for _, m := range fuzzy.Find(token, got) {
			if lengthRatio(token, m.Str) >= tokenRatio {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(want))
}

// Tokens folds s to lower-case ASCII and splits it into distinct alphanumeric words, keeping first-seen order.
func Tokens(s string) []string {
	folded := strings.ToLower(unidecode.Unidecode(s))
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	tokens := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

func signal(want, got []string) float64 {
	cov := Coverage(want, got)
	if cov < Threshold {
		return 1
	}
	return 1 - cov
}

func durationSignal(want, got time.Duration) float64 {
	if want <= 0 || got <= 0 {
		return 1
	}
	d := want - got
	if d < 0 {
		d = -d
	}
	if d <= DurationWindow {
		return 0
	}
	return 1
}

func lengthRatio(a, b string) float64 {
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}
	if la > lb {
		la, lb = lb, la
	}
	return float64(la) / float64(lb)
}
