package durable

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dmitrymomot/larder"
)

// File is a Durable implementation that keeps one file per record in a
// single directory. Filenames are URL-safe base64 encodings of the
// record key, so any key is a valid filename and Keys can recover the
// original keys from a directory listing.
type File struct {
	dir string
}

var _ larder.Durable = (*File)(nil)

// NewFile creates a file-backed durable tier rooted at dir, creating the
// directory if needed. An empty dir resolves to a "larder" subdirectory
// of os.UserCacheDir().
func NewFile(dir string) (*File, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("durable: resolve user cache dir: %w", err)
		}
		dir = filepath.Join(base, "larder")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("durable: create cache dir %q: %w", dir, err)
	}
	return &File{dir: dir}, nil
}

// Dir returns the directory records are stored in.
func (f *File) Dir() string {
	return f.dir
}

// Get returns the record stored under key, or larder.ErrNotFound.
func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, larder.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set stores data under key, replacing any previous record. A torn write
// surfaces later as an undecodable record, which the cache treats as a
// miss.
func (f *File) Set(_ context.Context, key string, data []byte) error {
	return os.WriteFile(f.path(key), data, 0o600)
}

// Delete removes the record under key. Deleting a missing key is not an
// error.
func (f *File) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Keys returns all stored keys that start with prefix, sorted. Files
// whose names are not valid encodings are ignored.
func (f *File) Keys(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		decoded, err := base64.RawURLEncoding.DecodeString(entry.Name())
		if err != nil {
			continue
		}
		if key := string(decoded); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, base64.RawURLEncoding.EncodeToString([]byte(key)))
}
