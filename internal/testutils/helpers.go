// Package testutils holds helpers shared by package tests that need a
// template tree on disk.
package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// BaseTime is the modification time WriteTree assigns unless told otherwise.
// Pinning it keeps freshness checks independent of filesystem timestamp
// granularity.
var BaseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Project is a temporary document root laid out like the default
// configuration: templates in app/views, artifacts in app/views/cache.
type Project struct {
	Root        string
	TemplateDir string
	CacheDir    string
}

// CreateTempProject creates an empty project under t.TempDir.
func CreateTempProject(t *testing.T) *Project {
	t.Helper()
	root := t.TempDir()
	p := &Project{
		Root:        root,
		TemplateDir: filepath.Join(root, "app", "views"),
		CacheDir:    filepath.Join(root, "app", "views", "cache"),
	}
	require.NoError(t, os.MkdirAll(p.TemplateDir, 0o755))
	return p
}

// WriteTemplates writes sources, keyed by slash-separated path relative to
// the template directory.
func (p *Project) WriteTemplates(t *testing.T, sources map[string]string) {
	t.Helper()
	WriteTree(t, p.TemplateDir, sources)
}

// WriteTree writes files, keyed by slash-separated path relative to dir,
// creating parent directories and stamping each with BaseTime.
func WriteTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		SetModTime(t, path, BaseTime)
	}
}

// SetModTime sets both access and modification time of path.
func SetModTime(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, mod, mod))
}

// Touch rewrites path with content and moves its modification time offset
// past BaseTime.
func Touch(t *testing.T, path, content string, offset time.Duration) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	SetModTime(t, path, BaseTime.Add(offset))
}
