package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/conneroisu/sigil/internal/cache"
	"github.com/conneroisu/sigil/internal/catalog"
	"github.com/conneroisu/sigil/internal/compiler"
	"github.com/conneroisu/sigil/internal/config"
	sigilerrors "github.com/conneroisu/sigil/internal/errors"
	"github.com/conneroisu/sigil/internal/logging"
	"github.com/conneroisu/sigil/internal/renderer"
	"github.com/conneroisu/sigil/internal/view"
)

// app holds the components a command works with, built once from the
// loaded configuration.
type app struct {
	cfg      *config.Config
	logger   logging.Logger
	resolver *view.Resolver
	store    *cache.Store
	content  *cache.ContentCache
	engine   *compiler.Engine
	catalog  *catalog.Catalog
	errors   *sigilerrors.ErrorHandler
}

func newApp(cmd *cobra.Command) (*app, error) {
	if configErr != nil {
		return nil, sigilerrors.NewConfigError("reading configuration file", configErr)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	loggerConfig, err := cfg.LoggerConfig()
	if err != nil {
		return nil, sigilerrors.NewConfigError("invalid log settings", err)
	}
	loggerConfig.Output = cmd.ErrOrStderr()
	logger := logging.NewLogger(loggerConfig)

	ext := cfg.Templates.Extension
	resolver := view.NewResolver(cfg.Templates.Dir, cfg.Cache.Dir, ext)
	store := cache.NewStore(cfg.Cache.Dir, ext)
	content := cache.NewContentCache(cfg.Cache.MemoryBytes)
	executor := renderer.NewExecutor(content, cfg.Render.Imports, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		resolver: resolver,
		store:    store,
		content:  content,
		engine: compiler.New(resolver, store, executor, logger, compiler.Options{
			StrictSectionNames: cfg.Compiler.StrictSectionNames,
		}),
		catalog: catalog.New(cfg.Templates.Dir, ext, cfg.Cache.Dir),
		errors:  sigilerrors.NewErrorHandler(logger),
	}, nil
}

// identifiers returns args as identifiers, or every template when all is set.
func (a *app) identifiers(ctx context.Context, args []string, all bool) ([]view.Identifier, error) {
	if all {
		if len(args) > 0 {
			return nil, fmt.Errorf("--all takes no template arguments")
		}
		return a.catalog.Identifiers(ctx)
	}
	if len(args) == 0 {
		return nil, sigilerrors.NewNoTemplateSpecified()
	}

	ids := make([]view.Identifier, 0, len(args))
	for _, arg := range args {
		id, err := view.ParseIdentifier(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// printReport writes one line per template of a compile run followed by a
// summary with the engine counters. Fresh templates are listed only when
// withFresh is set.
func printReport(w io.Writer, report *compiler.BuildReport, stats compiler.Stats, withFresh bool) {
	for _, id := range report.Built {
		fmt.Fprintf(w, "built  %s\n", id)
	}
	if withFresh {
		for _, id := range report.Fresh {
			fmt.Fprintf(w, "fresh  %s\n", id)
		}
	}
	for _, failure := range report.Failed {
		fmt.Fprintf(w, "failed %s: %v\n", failure.Identifier, failure.Err)
	}
	fmt.Fprintf(w, "%d compiled, %d fresh, %d failed (%d artifact builds, %d cache hits)\n",
		len(report.Built), len(report.Fresh), len(report.Failed), stats.Builds, stats.Hits)
}
