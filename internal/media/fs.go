package media

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FS implements Provider backed by a single local directory.
type FS struct {
	root string // absolute path to the media directory
}

// NewFS creates a new FS provider rooted at the given directory, creating it
// if needed.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("media: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("media: create root: %w", err)
	}
	return &FS{root: abs}, nil
}

// safeName validates that name is a plain file name (no separators, no
// traversal) and returns its absolute path under the media root.
func (f *FS) safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("media: name is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("media: invalid name: %s", name)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("media: name escapes media root: %s", name)
	}
	return abs, nil
}

// List returns metadata for every file in the media directory.
func (f *FS) List() ([]FileMeta, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("media: list: %w", err)
	}
	var out []FileMeta
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("media: stat %s: %w", e.Name(), err)
		}
		data, err := os.ReadFile(filepath.Join(f.root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("media: read %s: %w", e.Name(), err)
		}
		out = append(out, FileMeta{
			Name:      e.Name(),
			Size:      info.Size(),
			Checksum:  checksum(data),
			UpdatedAt: info.ModTime(),
		})
	}
	return out, nil
}

// Read returns the raw bytes of a media file.
func (f *FS) Read(name string) ([]byte, error) {
	abs, err := f.safeName(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("media: read %s: %w", name, err)
	}
	return data, nil
}

// Write atomically stores content: tmp file → fsync → rename.
func (f *FS) Write(name string, content []byte) error {
	abs, err := f.safeName(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".raido-tmp-*")
	if err != nil {
		return fmt.Errorf("media: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("media: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("media: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("media: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("media: rename: %w", err)
	}
	success = true
	return nil
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Delete removes a media file.
func (f *FS) Delete(name string) error {
	abs, err := f.safeName(name)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("media: delete %s: %w", name, err)
	}
	return nil
}
