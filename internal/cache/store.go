// Package cache persists compiled artifacts and keeps recently read artifact
// bytes in memory.
//
// The on-disk layout is flat: every entry is a pair of files in the cache
// directory, <key><ext> holding the compiled artifact and <key>.meta holding
// its JSON metadata. The artifact is always written before the metadata, so
// an interrupted write leaves an entry that looks stale rather than fresh.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FormatVersion is bumped whenever the generated code changes shape, which
// invalidates every artifact written by an older build.
const FormatVersion = "1"

const metaSuffix = ".meta"

// LayoutStamp records a parent layout inlined into an artifact.
type LayoutStamp struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
}

// Metadata describes how an artifact was built.
type Metadata struct {
	Identifier    string        `json:"identifier"`
	Source        string        `json:"source"`
	SourceModTime time.Time     `json:"source_mod_time"`
	BuiltAt       time.Time     `json:"built_at"`
	Layouts       []LayoutStamp `json:"layouts,omitempty"`
	Includes      []string      `json:"includes,omitempty"`
	Version       string        `json:"version"`
}

// StatFunc returns the modification time of a file.
type StatFunc func(path string) (time.Time, error)

// ModTime is the StatFunc backed by the real filesystem.
func ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Fresh reports whether an artifact built from this metadata is still valid
// for a source last modified at sourceMod. Every recorded layout must also be
// unchanged; a layout that can no longer be stat'ed counts as changed.
func (m *Metadata) Fresh(sourceMod time.Time, stat StatFunc) bool {
	if m == nil || m.Version != FormatVersion {
		return false
	}
	if m.SourceModTime.Before(sourceMod) {
		return false
	}
	for _, layout := range m.Layouts {
		mod, err := stat(layout.Path)
		if err != nil || layout.ModTime.Before(mod) {
			return false
		}
	}
	return true
}

// Store is the flat on-disk artifact directory.
type Store struct {
	dir string
	ext string
}

// NewStore creates a store rooted at dir whose artifacts end in ext.
func NewStore(dir, ext string) *Store {
	return &Store{dir: dir, ext: ext}
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// ArtifactPath returns where the artifact for key lives.
func (s *Store) ArtifactPath(key string) string {
	return filepath.Join(s.dir, key+s.ext)
}

func (s *Store) metaPath(key string) string {
	return filepath.Join(s.dir, key+metaSuffix)
}

// Lookup returns the metadata of the entry for key. The boolean is false when
// either file of the pair is missing or the metadata cannot be decoded.
func (s *Store) Lookup(key string) (*Metadata, bool, error) {
	if _, err := os.Stat(s.ArtifactPath(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("stat artifact: %w", err)
	}

	data, err := os.ReadFile(s.metaPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading artifact metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, false, nil
	}
	return &meta, true, nil
}

// Read returns the artifact bytes for key.
func (s *Store) Read(key string) ([]byte, error) {
	return os.ReadFile(s.ArtifactPath(key))
}

// Write stores the artifact and then its metadata, each with a single atomic
// rename.
func (s *Store) Write(key string, content []byte, meta *Metadata) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	if err := writeFileAtomic(s.ArtifactPath(key), content, 0o644); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling artifact metadata: %w", err)
	}
	if err := writeFileAtomic(s.metaPath(key), data, 0o644); err != nil {
		return fmt.Errorf("writing artifact metadata: %w", err)
	}
	return nil
}

// Remove deletes both files of an entry. Missing files are not an error.
func (s *Store) Remove(key string) error {
	for _, path := range []string{s.metaPath(key), s.ArtifactPath(key)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Keys lists the keys of every entry that has an artifact file, sorted.
func (s *Store) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if key, ok := strings.CutSuffix(name, s.ext); ok && isKey(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes every file the store owns and returns how many entries were
// removed. Files that are not artifacts, metadata or leftover temporaries
// are left untouched.
func (s *Store) Clear() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		owned, isArtifact := s.owns(name)
		if !owned {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, err
		}
		if isArtifact {
			removed++
		}
	}
	return removed, nil
}

func (s *Store) owns(name string) (owned, artifact bool) {
	if len(name) < 64 || !isKey(name[:64]) {
		return false, false
	}
	rest := name[64:]
	switch {
	case rest == s.ext:
		return true, true
	case rest == metaSuffix:
		return true, false
	case strings.Contains(rest, ".tmp."):
		return true, false
	}
	return false, false
}

func isKey(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
