// Package compiler sequences the compilation pipeline: freshness check,
// inheritance, directive translation with recursive includes, and the
// artifact write.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/conneroisu/sigil/internal/cache"
	"github.com/conneroisu/sigil/internal/directive"
	sigilerrors "github.com/conneroisu/sigil/internal/errors"
	"github.com/conneroisu/sigil/internal/logging"
	"github.com/conneroisu/sigil/internal/view"
)

// Executor runs a compiled artifact and writes its output.
type Executor interface {
	Execute(ctx context.Context, w io.Writer, artifactPath string, data any) error
}

// Options tune compilation.
type Options struct {
	// StrictSectionNames matches sections by byte-identical argument text
	// instead of by normalized name.
	StrictSectionNames bool
}

// Artifact is a handle to a compiled template on disk.
type Artifact struct {
	Identifier view.Identifier
	Key        string
	Path       string
	Meta       *cache.Metadata
	// Rebuilt is true when this call produced the artifact.
	Rebuilt bool
}

// Stats counts what the engine did since it was created.
type Stats struct {
	Builds int64 `json:"builds"`
	Hits   int64 `json:"hits"`
}

// Engine compiles templates into artifacts. It is safe for concurrent use;
// two callers racing on the same stale template both rebuild it and the last
// rename wins.
type Engine struct {
	resolver *view.Resolver
	store    *cache.Store
	executor Executor
	logger   logging.Logger
	opts     Options

	stat cache.StatFunc
	now  func() time.Time

	builds atomic.Int64
	hits   atomic.Int64
}

// New creates an engine. The executor may be nil when Render is not used.
func New(resolver *view.Resolver, store *cache.Store, executor Executor, logger logging.Logger, opts Options) *Engine {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Engine{
		resolver: resolver,
		store:    store,
		executor: executor,
		logger:   logger.WithComponent("compiler"),
		opts:     opts,
		stat:     cache.ModTime,
		now:      time.Now,
	}
}

// Stats returns a snapshot of the build and hit counters.
func (e *Engine) Stats() Stats {
	return Stats{Builds: e.builds.Load(), Hits: e.hits.Load()}
}

// Compile makes sure the artifact for name is fresh and reports whether it
// had to be rebuilt.
func (e *Engine) Compile(ctx context.Context, name string) (bool, error) {
	id, err := view.ParseIdentifier(name)
	if err != nil {
		return false, err
	}
	art, err := e.EnsureFresh(ctx, id)
	if err != nil {
		return false, err
	}
	return art.Rebuilt, nil
}

// Make compiles name and returns the location of its artifact.
func (e *Engine) Make(ctx context.Context, name string) (string, error) {
	id, err := view.ParseIdentifier(name)
	if err != nil {
		return "", err
	}
	art, err := e.EnsureFresh(ctx, id)
	if err != nil {
		return "", err
	}
	return art.Path, nil
}

// Render compiles name and executes its artifact into w.
func (e *Engine) Render(ctx context.Context, w io.Writer, name string, data any) error {
	id, err := view.ParseIdentifier(name)
	if err != nil {
		return err
	}
	if e.executor == nil {
		return sigilerrors.NewRenderError(name, errors.New("no executor configured"))
	}

	art, err := e.EnsureFresh(ctx, id)
	if err != nil {
		return err
	}

	if err := e.executor.Execute(ctx, w, art.Path, data); err != nil {
		var se *sigilerrors.SigilError
		if errors.As(err, &se) {
			return err
		}
		return sigilerrors.NewRenderError(art.Path, err).WithContext("identifier", id.String())
	}
	return nil
}

// BuildReport summarizes a CompileAll run.
type BuildReport struct {
	Built  []view.Identifier
	Fresh  []view.Identifier
	Failed []sigilerrors.TemplateFailure
}

// CompileAll brings every listed template up to date. A failing template
// does not stop the others; the returned error folds all failures together.
func (e *Engine) CompileAll(ctx context.Context, ids []view.Identifier) (*BuildReport, error) {
	perf := logging.StartOperation(e.logger, "compile_all")
	collector := sigilerrors.NewErrorCollector()
	report := &BuildReport{}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		art, err := e.EnsureFresh(ctx, id)
		if err != nil {
			collector.Add(id.String(), err)
			continue
		}
		if art.Rebuilt {
			report.Built = append(report.Built, id)
		} else {
			report.Fresh = append(report.Fresh, id)
		}
	}

	report.Failed = collector.Failures()
	perf.End(ctx,
		"templates", len(ids),
		"built", len(report.Built),
		"failed", len(report.Failed))
	return report, collector.Err()
}

// EnsureFresh returns the artifact for id, rebuilding it when it is missing
// or older than its source or any recorded layout. Includes recorded by a
// fresh artifact are checked as well.
func (e *Engine) EnsureFresh(ctx context.Context, id view.Identifier) (*Artifact, error) {
	return e.ensureFresh(ctx, id, nil)
}

func (e *Engine) ensureFresh(ctx context.Context, id view.Identifier, chain []view.Identifier) (*Artifact, error) {
	if slices.Contains(chain, id) {
		return nil, sigilerrors.NewCompileError(
			"include cycle: "+cycleString(extend(chain, id)), nil,
		).WithContext("identifier", id.String())
	}

	source := e.resolver.SourcePath(id)
	sourceMod, err := e.stat(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, sigilerrors.NewTemplateNotFound(id.String(), source)
		}
		return nil, sigilerrors.NewCompileError("reading template", err).WithLocation(source, 0, 0)
	}

	key := e.resolver.Key(id)
	art := &Artifact{Identifier: id, Key: key, Path: e.store.ArtifactPath(key)}

	meta, ok, err := e.store.Lookup(key)
	if err != nil {
		return nil, sigilerrors.NewCompileError("reading cache entry", err).WithLocation(source, 0, 0)
	}
	chain = extend(chain, id)
	if ok && meta.Fresh(sourceMod, e.stat) {
		if err := e.refreshIncludes(ctx, id, source, meta, chain); err != nil {
			return nil, err
		}
		e.hits.Add(1)
		e.logger.Debug(ctx, "Artifact is fresh", "template", id.String(), "key", key)
		art.Meta = meta
		return art, nil
	}

	meta, err = e.build(ctx, id, source, sourceMod, key, chain)
	if err != nil {
		return nil, err
	}
	art.Meta = meta
	art.Rebuilt = true
	return art, nil
}

// refreshIncludes runs every partial recorded by a fresh artifact through
// the freshness check so a stale partial is rebuilt under a fresh parent.
func (e *Engine) refreshIncludes(ctx context.Context, id view.Identifier, source string, meta *cache.Metadata, chain []view.Identifier) error {
	for _, name := range meta.Includes {
		partial := view.Identifier(name)
		partialSource := e.resolver.SourcePath(partial)
		if _, err := e.stat(partialSource); err != nil && errors.Is(err, fs.ErrNotExist) {
			return sigilerrors.NewPartialNotFound(name, partialSource).
				WithLocation(source, 0, 0).
				WithContext("included_by", id.String())
		}
		if _, err := e.ensureFresh(ctx, partial, chain); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) build(ctx context.Context, id view.Identifier, source string, sourceMod time.Time, key string, chain []view.Identifier) (*cache.Metadata, error) {
	perf := logging.StartOperation(e.logger, "build")

	raw, err := os.ReadFile(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, sigilerrors.NewTemplateNotFound(id.String(), source)
		}
		return nil, sigilerrors.NewCompileError("reading template", err).WithLocation(source, 0, 0)
	}

	content, layouts, err := e.resolveInheritance(string(raw))
	if err != nil {
		return nil, err
	}

	var includes []string
	compiled, err := directive.Compile(content, directive.Options{
		Include: func(arg string, pos directive.Position) (string, error) {
			partial, err := view.ParseIdentifier(arg)
			if err != nil {
				return "", sigilerrors.NewCompileError("@include requires a template name", nil).
					WithLocation(source, pos.Line, pos.Column)
			}
			partialSource := e.resolver.SourcePath(partial)
			if _, err := e.stat(partialSource); err != nil && errors.Is(err, fs.ErrNotExist) {
				return "", sigilerrors.NewPartialNotFound(partial.String(), partialSource).
					WithLocation(source, pos.Line, pos.Column).
					WithContext("included_by", id.String())
			}

			art, err := e.ensureFresh(ctx, partial, chain)
			if err != nil {
				return "", err
			}
			if !slices.Contains(includes, partial.String()) {
				includes = append(includes, partial.String())
			}
			return art.Path, nil
		},
	})
	if err != nil {
		return nil, compileFailure(err, source)
	}

	meta := &cache.Metadata{
		Identifier:    id.String(),
		Source:        source,
		SourceModTime: sourceMod,
		BuiltAt:       e.now(),
		Layouts:       layouts,
		Includes:      includes,
		Version:       cache.FormatVersion,
	}
	if err := e.store.Write(key, []byte(compiled), meta); err != nil {
		perf.EndWithError(ctx, err)
		return nil, sigilerrors.NewCompileError("writing artifact", err).WithLocation(source, 0, 0)
	}

	e.builds.Add(1)
	perf.End(ctx, "template", id.String(), "key", key, "includes", len(includes))
	return meta, nil
}

// resolveInheritance loads the parent named by the first @extends marker and
// merges content into it. The stamps of the parent are returned for the
// metadata.
func (e *Engine) resolveInheritance(content string) (string, []cache.LayoutStamp, error) {
	marker, ok := directive.FirstMarker(content, "extends")
	if !ok {
		return content, nil, nil
	}

	parent, err := view.ParseIdentifier(marker.Arg)
	if err != nil {
		return "", nil, sigilerrors.NewCompileError("@extends requires a template name", err)
	}

	parentSource := e.resolver.SourcePath(parent)
	parentMod, err := e.stat(parentSource)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, sigilerrors.NewTemplateNotFound(parent.String(), parentSource).
				WithContext("role", "layout")
		}
		return "", nil, sigilerrors.NewCompileError("reading layout", err).WithLocation(parentSource, 0, 0)
	}
	raw, err := os.ReadFile(parentSource)
	if err != nil {
		return "", nil, sigilerrors.NewCompileError("reading layout", err).WithLocation(parentSource, 0, 0)
	}

	merged := ResolveInheritance(content, string(raw), e.opts.StrictSectionNames)
	return merged, []cache.LayoutStamp{{Path: parentSource, ModTime: parentMod}}, nil
}

// compileFailure converts a syntax error into a located compile error.
// Errors that are already structured pass through.
func compileFailure(err error, source string) error {
	var se *sigilerrors.SigilError
	if errors.As(err, &se) {
		return err
	}
	var syntaxErr *directive.SyntaxError
	if errors.As(err, &syntaxErr) {
		return sigilerrors.NewCompileError(syntaxErr.Message, err).
			WithLocation(source, syntaxErr.Pos.Line, syntaxErr.Pos.Column)
	}
	return sigilerrors.NewCompileError(fmt.Sprintf("translating %s", source), err)
}

// extend returns a copy of chain with id appended, so sibling includes never
// share a backing array.
func extend(chain []view.Identifier, id view.Identifier) []view.Identifier {
	out := make([]view.Identifier, len(chain), len(chain)+1)
	copy(out, chain)
	return append(out, id)
}

func cycleString(chain []view.Identifier) string {
	names := make([]string, len(chain))
	for i, id := range chain {
		names[i] = id.String()
	}
	return strings.Join(names, " -> ")
}

// CacheStatus describes the state of a template's artifact without building
// it.
type CacheStatus string

const (
	StatusFresh   CacheStatus = "fresh"
	StatusStale   CacheStatus = "stale"
	StatusMissing CacheStatus = "missing"
)

// Status reports whether id has a fresh artifact. Recorded includes are not
// inspected.
func (e *Engine) Status(id view.Identifier) (CacheStatus, error) {
	source := e.resolver.SourcePath(id)
	sourceMod, err := e.stat(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", sigilerrors.NewTemplateNotFound(id.String(), source)
		}
		return "", err
	}

	meta, ok, err := e.store.Lookup(e.resolver.Key(id))
	if err != nil {
		return "", err
	}
	switch {
	case !ok:
		return StatusMissing, nil
	case meta.Fresh(sourceMod, e.stat):
		return StatusFresh, nil
	default:
		return StatusStale, nil
	}
}
