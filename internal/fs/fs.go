package fs

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/sokinpui/anchorpatch/engine"
	"github.com/sokinpui/anchorpatch/internal/ui"
)

const defaultPerm os.FileMode = 0644

// PathResolver finds absolute paths for files.
type PathResolver struct {
	lookupDirs []string
}

// NewPathResolver creates a new PathResolver.
func NewPathResolver(lookupDirs []string) *PathResolver {
	if len(lookupDirs) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			// This is unlikely to fail, but if it does, it's a critical error.
			panic(fmt.Sprintf("could not get current working directory: %v", err))
		}
		return &PathResolver{lookupDirs: []string{wd}}
	}

	absDirs := make([]string, 0, len(lookupDirs))
	for _, dir := range lookupDirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			ui.Warning("Invalid lookup directory '%s', ignoring: %v", dir, err)
			continue
		}
		absDirs = append(absDirs, abs)
	}
	return &PathResolver{lookupDirs: absDirs}
}

// Resolve finds an absolute path, falling back to the first lookup
// directory if the file doesn't exist anywhere.
func (r *PathResolver) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	if existing := r.ResolveExisting(path); existing != "" {
		return existing
	}
	if len(r.lookupDirs) == 0 {
		abs, _ := filepath.Abs(path)
		return abs
	}
	return filepath.Join(r.lookupDirs[0], path)
}

// ResolveExisting finds an absolute path only if the file exists.
func (r *PathResolver) ResolveExisting(path string) string {
	for _, dir := range r.lookupDirs {
		absPath := filepath.Join(dir, path)
		if _, err := os.Stat(absPath); err == nil {
			return absPath
		}
	}
	return ""
}

// ReadDocument loads a file as an engine document. An empty format means
// detect it from the extension.
func ReadDocument(path string, format engine.Format) (engine.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Document{}, fmt.Errorf("%w: read %s: %w", engine.ErrIO, path, err)
	}
	if format == "" {
		format = engine.FormatForPath(path)
	}
	return engine.Document{Text: string(data), Format: format, Path: path}, nil
}

// WriteDocument atomically replaces the file at doc.Path, keeping its
// permissions when it already exists.
func WriteDocument(doc engine.Document) error {
	perm := defaultPerm
	if info, err := os.Stat(doc.Path); err == nil {
		perm = info.Mode().Perm()
	}
	return WriteFileAtomic(doc.Path, []byte(doc.Text), perm)
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place. The temp file is removed on every failure path, so path
// either keeps its old content or gets all of data.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".anchorpatch-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file for %s: %w", engine.ErrIO, path, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("%w: write %s: %w", engine.ErrIO, tmpName, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", engine.ErrIO, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", engine.ErrIO, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", engine.ErrIO, tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename %s to %s: %w", engine.ErrIO, tmpName, path, err)
	}
	committed = true
	return nil
}

// Hash returns the hex BLAKE3-256 digest of data.
func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashFile returns the hex BLAKE3-256 digest of a file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
