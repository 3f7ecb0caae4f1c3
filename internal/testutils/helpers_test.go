package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTempProject(t *testing.T) {
	p := CreateTempProject(t)

	assert.DirExists(t, p.TemplateDir)
	assert.NoDirExists(t, p.CacheDir)
	assert.Equal(t, filepath.Join(p.Root, "app", "views", "cache"), p.CacheDir)
}

func TestWriteTemplates(t *testing.T) {
	p := CreateTempProject(t)
	p.WriteTemplates(t, map[string]string{
		"home.html":             "home",
		"partials/nav/one.html": "nav",
	})

	path := filepath.Join(p.TemplateDir, "partials", "nav", "one.html")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "nav", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(BaseTime))
}

func TestTouch(t *testing.T) {
	dir := t.TempDir()
	WriteTree(t, dir, map[string]string{"a.html": "old"})

	path := filepath.Join(dir, "a.html")
	Touch(t, path, "new", time.Minute)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(BaseTime.Add(time.Minute)))
}
