// Package renderer executes compiled artifacts.
//
// Artifacts are Go text/template source produced by the compiler. The
// executor parses them on demand, reading the bytes through an in-memory
// content cache, and supplies the helper functions the generated code calls:
//
//	escape  HTML-escape a value (quotes included)
//	raw     print a value unmodified
//	include execute another artifact by path with the given data
//	use     assert that a named import is allowed
//	title   title-case a string
package renderer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/template"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/sigil/internal/cache"
	"github.com/conneroisu/sigil/internal/logging"
)

// MaxIncludeDepth bounds nested include calls at render time.
const MaxIncludeDepth = 32

// Executor runs artifacts with text/template.
type Executor struct {
	content *cache.ContentCache
	imports map[string]bool
	logger  logging.Logger
}

// NewExecutor creates an executor reading artifacts through content. Only
// names listed in imports pass the use helper.
func NewExecutor(content *cache.ContentCache, imports []string, logger logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	allowed := make(map[string]bool, len(imports))
	for _, name := range imports {
		allowed[name] = true
	}
	return &Executor{
		content: content,
		imports: allowed,
		logger:  logger.WithComponent("renderer"),
	}
}

// Execute renders the artifact at artifactPath into w. On error nothing is
// written.
func (x *Executor) Execute(ctx context.Context, w io.Writer, artifactPath string, data any) error {
	return x.execute(ctx, w, artifactPath, data, 0)
}

func (x *Executor) execute(ctx context.Context, w io.Writer, path string, data any, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth > MaxIncludeDepth {
		return fmt.Errorf("include depth exceeds %d at %s", MaxIncludeDepth, path)
	}

	src, err := x.content.Load(path)
	if err != nil {
		return fmt.Errorf("loading artifact: %w", err)
	}

	tmpl, err := template.New(filepath.Base(path)).
		Funcs(x.funcs(ctx, depth)).
		Parse(string(src))
	if err != nil {
		return fmt.Errorf("parsing artifact %s: %w", path, err)
	}

	x.logger.Debug(ctx, "Executing artifact", "path", path, "depth", depth)
	// Nothing reaches w unless the whole artifact executes.
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func (x *Executor) funcs(ctx context.Context, depth int) template.FuncMap {
	return template.FuncMap{
		"escape": Escape,
		"raw":    Raw,
		"title":  Title,
		"use":    x.use,
		"include": func(path string, data any) (string, error) {
			var buf bytes.Buffer
			if err := x.execute(ctx, &buf, path, data, depth+1); err != nil {
				return "", err
			}
			return buf.String(), nil
		},
	}
}

func (x *Executor) use(name string) (string, error) {
	if !x.imports[name] {
		return "", fmt.Errorf("import %q is not allowed", name)
	}
	return "", nil
}

// Escape formats v and escapes <, >, &, ' and ". A nil value prints nothing.
func Escape(v any) string {
	return html.EscapeString(Raw(v))
}

// Raw formats v without escaping. A nil value prints nothing.
func Raw(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Title upper-cases the first letter of every word.
func Title(s string) string {
	return cases.Title(language.English).String(s)
}
