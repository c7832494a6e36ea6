// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/spoti/internal/models"
	"github.com/desertthunder/spoti/internal/shared"
)

// MockCatalog is a test double for [services.Catalog] backed by maps.
type MockCatalog struct {
	Tracks    map[string]models.Track
	Albums    map[string]models.Album
	AlbumIDs  map[string][]string
	Playlists map[string]models.Playlist
	Items     map[string][]models.Track
	Features  map[string]models.Features

	FeaturesErr error
	PageCalls   atomic.Int32
}

func (m *MockCatalog) Track(_ context.Context, id string) (*models.Track, error) {
	t, ok := m.Tracks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	return &t, nil
}

func (m *MockCatalog) Album(_ context.Context, id string) (*models.Album, []models.Track, error) {
	a, ok := m.Albums[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: album %s", shared.ErrAPIRequest, id)
	}
	var tracks []models.Track
	for _, tid := range m.AlbumIDs[id] {
		tracks = append(tracks, m.Tracks[tid])
	}
	return &a, tracks, nil
}

func (m *MockCatalog) Playlist(_ context.Context, id string) (*models.Playlist, error) {
	p, ok := m.Playlists[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return &p, nil
}

func (m *MockCatalog) PlaylistTracks(_ context.Context, id string, offset, limit int) ([]models.Track, error) {
	m.PageCalls.Add(1)
	items := m.Items[id]
	if offset >= len(items) {
		return nil, nil
	}
	return items[offset:min(offset+limit, len(items))], nil
}

func (m *MockCatalog) AudioFeatures(_ context.Context, ids []string) (map[string]models.Features, error) {
	if m.FeaturesErr != nil {
		return nil, m.FeaturesErr
	}
	out := make(map[string]models.Features)
	for _, id := range ids {
		if f, ok := m.Features[id]; ok {
			out[id] = f
		}
	}
	return out, nil
}

// MockProvider is a test double for [services.Provider]. Results are keyed by query, audio by candidate ID.
type MockProvider struct {
	Results map[string][]models.Candidate
	Audio   map[string]string
	Format  models.AudioFormat

	// SearchErrs and DownloadErrs are returned, in order, before the call succeeds.
	SearchErrs   []error
	DownloadErrs []error
	// ShortBy reports a Size larger than the body by that many bytes.
	ShortBy int64

	mu        sync.Mutex
	searches  int
	downloads int
}

func (m *MockProvider) Search(_ context.Context, query string) ([]models.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	if len(m.SearchErrs) > 0 {
		err := m.SearchErrs[0]
		m.SearchErrs = m.SearchErrs[1:]
		return nil, err
	}
	return m.Results[query], nil
}

func (m *MockProvider) Download(_ context.Context, c models.Candidate) (*models.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads++
	if len(m.DownloadErrs) > 0 {
		err := m.DownloadErrs[0]
		m.DownloadErrs = m.DownloadErrs[1:]
		return nil, err
	}
	body, ok := m.Audio[c.ID]
	if !ok {
		return nil, fmt.Errorf("%w: no audio for %s", shared.ErrAPIRequest, c.ID)
	}
	format := m.Format
	if format == "" {
		format = models.M4A
	}
	return &models.Stream{
		Body:    io.NopCloser(bytes.NewBufferString(body)),
		Size:    int64(len(body)) + m.ShortBy,
		Bitrate: 128000,
		Format:  format,
	}, nil
}

// Calls returns the number of Search and Download calls made so far.
func (m *MockProvider) Calls() (searches, downloads int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searches, m.downloads
}

// MockTranscoder copies src to dst, or fails the first Failures calls.
type MockTranscoder struct {
	Failures int
	Err      error

	mu    sync.Mutex
	calls int
}

func (m *MockTranscoder) Convert(_ context.Context, src, dst string, _ int) error {
	m.mu.Lock()
	m.calls++
	fail := m.calls <= m.Failures
	m.mu.Unlock()

	if fail {
		if m.Err != nil {
			return m.Err
		}
		return shared.ErrTranscodeFailed
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

func (m *MockTranscoder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockProber returns a fixed duration.
type MockProber struct {
	Value time.Duration
	Err   error
	calls atomic.Int32
}

func (m *MockProber) Duration(context.Context, string) (time.Duration, error) {
	m.calls.Add(1)
	return m.Value, m.Err
}

func (m *MockProber) Calls() int {
	return int(m.calls.Load())
}

// CountingThrottle counts Wait calls without pacing.
type CountingThrottle struct {
	calls atomic.Int32
}

func (c *CountingThrottle) Wait(ctx context.Context) error {
	c.calls.Add(1)
	return ctx.Err()
}

func (c *CountingThrottle) Calls() int {
	return int(c.calls.Load())
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// FailingReader returns Data and then Err.
type FailingReader struct {
	Data []byte
	Err  error
}

func (f *FailingReader) Read(p []byte) (int, error) {
	if len(f.Data) == 0 {
		return 0, f.Err
	}
	n := copy(p, f.Data)
	f.Data = f.Data[n:]
	return n, nil
}

func (f *FailingReader) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
