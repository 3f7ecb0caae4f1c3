// Package catalog discovers the templates under a template root.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/conneroisu/sigil/internal/view"
)

// Entry is one template found on disk.
type Entry struct {
	Identifier view.Identifier `json:"identifier" yaml:"identifier"`
	Source     string          `json:"source" yaml:"source"`
	ModTime    time.Time       `json:"mod_time" yaml:"mod_time"`
	Size       int64           `json:"size" yaml:"size"`
}

// Catalog walks a template root.
type Catalog struct {
	root      string
	extension string
	skip      []string
}

// New creates a catalog of the templates under root ending in extension.
// Directories listed in skip, typically the cache directory, are not walked.
func New(root, extension string, skip ...string) *Catalog {
	cleaned := make([]string, 0, len(skip))
	for _, s := range skip {
		if s != "" {
			cleaned = append(cleaned, filepath.Clean(s))
		}
	}
	return &Catalog{root: filepath.Clean(root), extension: extension, skip: cleaned}
}

// Root returns the template root.
func (c *Catalog) Root() string {
	return c.root
}

// Extension returns the template extension.
func (c *Catalog) Extension() string {
	return c.extension
}

// Scan returns every template sorted by identifier. Hidden directories and
// skipped directories are ignored.
func (c *Catalog) Scan(ctx context.Context) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(c.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != c.root && (strings.HasPrefix(d.Name(), ".") || c.skipped(path)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, c.extension) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(c.root, path)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			Identifier: view.FromRelativePath(rel, c.extension),
			Source:     path,
			ModTime:    info.ModTime(),
			Size:       info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", c.root, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Identifier < entries[j].Identifier
	})
	return entries, nil
}

// Identifiers returns the identifiers of every template.
func (c *Catalog) Identifiers(ctx context.Context) ([]view.Identifier, error) {
	entries, err := c.Scan(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]view.Identifier, len(entries))
	for i, e := range entries {
		ids[i] = e.Identifier
	}
	return ids, nil
}

// Contains reports whether path is a template this catalog would list.
func (c *Catalog) Contains(path string) bool {
	if !strings.HasSuffix(path, c.extension) {
		return false
	}
	rel, err := filepath.Rel(c.root, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	for dir := filepath.Dir(path); dir != c.root && dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		if strings.HasPrefix(filepath.Base(dir), ".") || c.skipped(dir) {
			return false
		}
	}
	return true
}

func (c *Catalog) skipped(dir string) bool {
	dir = filepath.Clean(dir)
	for _, s := range c.skip {
		if dir == s {
			return true
		}
	}
	return false
}
