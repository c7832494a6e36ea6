package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/spoti/internal/library"
	"github.com/desertthunder/spoti/internal/models"
	"github.com/desertthunder/spoti/internal/shared"
)

// MetadataExt is the extension of sync metadata files.
const MetadataExt = ".spoti"

// MetadataFile returns the metadata file name for a target named name.
func MetadataFile(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), MetadataExt)
	return library.Sanitize(base) + MetadataExt
}

// WriteTarget saves target as indented JSON.
func WriteTarget(path string, target models.Target) error {
	data, err := json.MarshalIndent(target, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// ReadTarget loads a metadata file written by [WriteTarget].
func ReadTarget(path string) (models.Target, error) {
	var target models.Target
	data, err := os.ReadFile(path)
	if err != nil {
		return target, fmt.Errorf("failed to read metadata file: %w", err)
	}
	if err := json.Unmarshal(data, &target); err != nil {
		return target, fmt.Errorf("%w: malformed metadata file %s: %v", shared.ErrInvalidInput, filepath.Base(path), err)
	}
	if target.URL != "" {
		return models.ParseTarget(target.URL)
	}
	if target.Type == "" || target.ID == "" {
		return target, fmt.Errorf("%w: metadata file %s has no target", shared.ErrInvalidInput, filepath.Base(path))
	}
	return target, nil
}

// ResolveTarget interprets arg as a catalog URL or URI, or else as the name of a metadata file in dir.
// The returned path is the metadata file that was read, or "" for URLs.
func ResolveTarget(arg, dir string) (models.Target, string, error) {
	target, err := models.ParseTarget(arg)
	if err == nil {
		return target, "", nil
	}

	for _, candidate := range []string{arg, filepath.Join(dir, arg), filepath.Join(dir, MetadataFile(arg))} {
		info, statErr := os.Stat(candidate)
		if statErr != nil || info.IsDir() {
			continue
		}
		t, readErr := ReadTarget(candidate)
		return t, candidate, readErr
	}

	if errors.Is(err, shared.ErrInvalidURL) {
		return target, "", fmt.Errorf("%w: %q is neither a Spotify URL nor a metadata file", shared.ErrInvalidInput, arg)
	}
	return target, "", err
}
