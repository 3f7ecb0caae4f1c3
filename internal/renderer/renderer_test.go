package renderer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/sigil/internal/cache"
	"github.com/conneroisu/sigil/internal/compiler"
	"github.com/conneroisu/sigil/internal/view"
)

func newExecutor() *Executor {
	return NewExecutor(cache.NewContentCache(1<<20), []string{"strings"}, nil)
}

func writeArtifact(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func render(t *testing.T, x *Executor, path string, data any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, x.Execute(context.Background(), &buf, path, data))
	return buf.String()
}

func TestHelpers(t *testing.T) {
	testCases := []struct {
		name     string
		got      string
		expected string
	}{
		{"escape markup", Escape(`<b a="1">Tom & 'Jerry'</b>`), "&lt;b a=&#34;1&#34;&gt;Tom &amp; &#39;Jerry&#39;&lt;/b&gt;"},
		{"escape number", Escape(42), "42"},
		{"escape nil", Escape(nil), ""},
		{"raw markup", Raw("<b>"), "<b>"},
		{"raw nil", Raw(nil), ""},
		{"title", Title("hello wide world"), "Hello Wide World"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.got)
		})
	}
}

func TestExecuteEscapedAndRaw(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "a.html", `{{ escape (.V) }}|{{ raw (.V) }}|{{ title .Name }}`)

	out := render(t, newExecutor(), path, map[string]any{"V": "<i>", "Name": "ada lovelace"})
	assert.Equal(t, "&lt;i&gt;|<i>|Ada Lovelace", out)
}

func TestExecuteInclude(t *testing.T) {
	dir := t.TempDir()
	leaf := writeArtifact(t, dir, "leaf.html", `[{{ escape (.) }}]`)
	mid := writeArtifact(t, dir, "mid.html", `({{ include "`+leaf+`" . }})`)
	top := writeArtifact(t, dir, "top.html", `<{{ include "`+mid+`" .Item }}>`)

	out := render(t, newExecutor(), top, map[string]any{"Item": "x&y"})
	assert.Equal(t, "<([x&amp;y])>", out)
}

func TestExecuteIncludeDepthLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "self.html")
	writeArtifact(t, dir, "self.html", `{{ include "`+path+`" . }}`)

	err := newExecutor().Execute(context.Background(), &bytes.Buffer{}, path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include depth")
}

func TestExecuteUse(t *testing.T) {
	dir := t.TempDir()
	ok := writeArtifact(t, dir, "ok.html", `{{ use "strings" }}fine`)
	denied := writeArtifact(t, dir, "denied.html", `{{ use "os" }}nope`)
	x := newExecutor()

	assert.Equal(t, "fine", render(t, x, ok, nil))

	err := x.Execute(context.Background(), &bytes.Buffer{}, denied, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `import "os" is not allowed`)
}

func TestExecuteErrors(t *testing.T) {
	dir := t.TempDir()
	x := newExecutor()
	ctx := context.Background()

	err := x.Execute(ctx, &bytes.Buffer{}, filepath.Join(dir, "missing.html"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := writeArtifact(t, dir, "bad.html", `{{ if }}`)
	err = x.Execute(ctx, &bytes.Buffer{}, bad, nil)
	assert.ErrorContains(t, err, "parsing artifact")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	good := writeArtifact(t, dir, "good.html", "x")
	assert.ErrorIs(t, x.Execute(cancelled, &bytes.Buffer{}, good, nil), context.Canceled)
}

func TestExecuteFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	x := newExecutor()
	ctx := context.Background()

	denied := writeArtifact(t, dir, "denied.html", `<h1>{{ escape (.Title) }}</h1>{{ use "forbidden" }}tail`)
	var out bytes.Buffer
	err := x.Execute(ctx, &out, denied, map[string]any{"Title": "Home"})
	require.Error(t, err)
	assert.Empty(t, out.String())

	leaf := writeArtifact(t, dir, "leaf.html", `{{ escape (.Missing.Field) }}`)
	top := writeArtifact(t, dir, "top.html", `before {{ include "`+leaf+`" $ }} after`)
	out.Reset()
	err = x.Execute(ctx, &out, top, map[string]any{"Missing": 3})
	require.Error(t, err)
	assert.Empty(t, out.String())
}

func TestCompiledIncludeSeesPageDataInsideLoop(t *testing.T) {
	root := t.TempDir()
	templateDir := filepath.Join(root, "views")
	cacheDir := filepath.Join(templateDir, "cache")
	sources := map[string]string{
		"partials/badge.html": "[{{ .Site }}]",
		"pages/list.html":     "@foreach(.Items as item){{ $item }}@include(partials.badge) @endforeach",
	}
	for rel, content := range sources {
		path := filepath.Join(templateDir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	resolver := view.NewResolver(templateDir, cacheDir, ".html")
	engine := compiler.New(resolver, cache.NewStore(cacheDir, ".html"), newExecutor(), nil, compiler.Options{})

	var buf bytes.Buffer
	err := engine.Render(context.Background(), &buf, "pages.list", map[string]any{
		"Site":  "acme",
		"Items": []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a[acme] b[acme] ", buf.String())
}

func TestExecuteUsesContentCache(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "a.html", "one")
	stamp := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, stamp, stamp))

	content := cache.NewContentCache(1024)
	x := NewExecutor(content, nil, nil)

	assert.Equal(t, "one", render(t, x, path, nil))
	assert.Equal(t, "one", render(t, x, path, nil))
	assert.Equal(t, int64(1), content.Stats().Hits)
}

// TestCompiledTemplatesRender drives the compiler and the executor together.
func TestCompiledTemplatesRender(t *testing.T) {
	root := t.TempDir()
	templateDir := filepath.Join(root, "views")
	cacheDir := filepath.Join(templateDir, "cache")

	sources := map[string]string{
		"layouts/main.html": "<title>@section('title')</title>\n<main>@section('body')</main>",
		"partials/row.html": "<li>{{ $.Label }}</li>",
		"pages/home.html": "@extends('layouts.main')\n" +
			"@section('title'){{ .Title }}\n" +
			"@section('body')@use(strings)\n" +
			"@if(.Items)\n" +
			"@foreach(.Items as i => item)<p>{{ $i }}={{ $item }}</p>\n@endforeach\n" +
			"@else\nnone\n@endif\n" +
			"@switch(.Kind)\n@case(\"a\")\nA\n@break\n@default\nD\n@endswitch\n" +
			"@for($n := 2){{ $n }} @endfor\n" +
			"@while(.Queue){{ . }} @endwhile\n" +
			"@include(partials.row)\n" +
			"{!! .HTML !!}",
	}
	for rel, content := range sources {
		path := filepath.Join(templateDir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	resolver := view.NewResolver(templateDir, cacheDir, ".html")
	engine := compiler.New(resolver, cache.NewStore(cacheDir, ".html"), newExecutor(), nil, compiler.Options{})

	queue := make(chan string, 2)
	queue <- "q1"
	queue <- "q2"
	close(queue)

	var buf bytes.Buffer
	err := engine.Render(context.Background(), &buf, "pages.home", map[string]any{
		"Title": "Tom & Jerry",
		"Items": []string{"x", "y"},
		"Kind":  "a",
		"Queue": queue,
		"Label": "row",
		"HTML":  "<hr>",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<title>Tom &amp; Jerry\n</title>")
	assert.Contains(t, out, "<p>0=x</p>")
	assert.Contains(t, out, "<p>1=y</p>")
	assert.Contains(t, out, "\nA\n")
	assert.NotContains(t, out, "\nD\n")
	assert.Contains(t, out, "0 1 ")
	assert.Contains(t, out, "q1 q2 ")
	assert.Contains(t, out, "<li>row</li>")
	assert.Contains(t, out, "<hr>")
	assert.NotContains(t, out, "none")
}
