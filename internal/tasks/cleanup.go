package tasks

import (
	"errors"
	"io/fs"
	"os"
	"slices"
	"sync"
)

// Inflight tracks partial files that are being written, so an interrupted run can remove them.
// The zero value is ready to use.
type Inflight struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func (f *Inflight) Add(path string) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.paths == nil {
		f.paths = make(map[string]struct{})
	}
	f.paths[path] = struct{}{}
}

// Done marks path as complete (or already removed).
func (f *Inflight) Done(path string) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.paths, path)
}

// Paths returns the registered paths in sorted order.
func (f *Inflight) Paths() []string {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.paths))
	for p := range f.paths {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Cleanup removes every registered file and returns the ones it deleted.
func (f *Inflight) Cleanup() ([]string, error) {
	var removed []string
	var errs []error
	for _, p := range f.Paths() {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed = append(removed, p)
		case !errors.Is(err, fs.ErrNotExist):
			errs = append(errs, err)
			continue
		}
		f.Done(p)
	}
	return removed, errors.Join(errs...)
}
