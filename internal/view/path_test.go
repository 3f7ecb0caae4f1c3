package view

import (
	"errors"
	"path/filepath"
	"testing"

	sigilerrors "github.com/conneroisu/sigil/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{"home", "home"},
		{"layouts.main", "layouts/main"},
		{"a.b.c", "a/b/c"},
		{"..secret", "//secret"},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, ResolvePath(tc.in))
		})
	}
}

func TestDeriveKeyDeterminism(t *testing.T) {
	first := DeriveKey("layouts.main", ".html")
	second := DeriveKey("layouts.main", ".html")
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	assert.Equal(t, first, DeriveKey("layouts/main", ".html"))
	assert.NotEqual(t, first, DeriveKey("layouts.main", ".php"))
	assert.NotEqual(t, first, DeriveKey("layouts.other", ".html"))
}

func TestParseIdentifier(t *testing.T) {
	id, err := ParseIdentifier(`  'partials.nav' `)
	require.NoError(t, err)
	assert.Equal(t, Identifier("partials.nav"), id)
	assert.Equal(t, "partials/nav", id.Path())

	id, err = ParseIdentifier(`"home"`)
	require.NoError(t, err)
	assert.Equal(t, "home", id.String())

	_, err = ParseIdentifier("  ")
	assert.True(t, errors.Is(err, sigilerrors.ErrNoTemplateSpecified))

	_, err = ParseIdentifier(`''`)
	assert.True(t, errors.Is(err, sigilerrors.ErrNoTemplateSpecified))
}

func TestUnquote(t *testing.T) {
	assert.Equal(t, "title", Unquote("'title'"))
	assert.Equal(t, "title", Unquote(`"title"`))
	assert.Equal(t, `'title"`, Unquote(`'title"`))
	assert.Equal(t, "'", Unquote("'"))
	assert.Equal(t, "title", Unquote("title"))
}

func TestFromRelativePath(t *testing.T) {
	rel := filepath.Join("layouts", "main.html")
	assert.Equal(t, Identifier("layouts.main"), FromRelativePath(rel, ".html"))
	assert.Equal(t, Identifier("home"), FromRelativePath("home.html", ".html"))
}

func TestResolver(t *testing.T) {
	r := NewResolver("/srv/views", "/srv/cache", ".html")
	id := Identifier("layouts.main")

	assert.Equal(t, filepath.Join("/srv/views", "layouts", "main.html"), r.SourcePath(id))
	assert.Equal(t, DeriveKey("layouts/main", ".html"), r.Key(id))
	assert.Equal(t, filepath.Join("/srv/cache", r.Key(id)+".html"), r.ArtifactPath(id))
}
