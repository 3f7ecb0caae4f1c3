package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/sigil/internal/view"
	"github.com/conneroisu/sigil/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Recompile templates when they change",
	Long: `Watch compiles every template, then recompiles whenever a template
under the template directory is created, changed or removed. Artifacts of
removed templates are deleted. Templates that depend on a changed layout or
partial are rebuilt as well.

Examples:
  sigil watch                     # Watch the configured template directory
  sigil watch --verbose           # Print every change`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchVerbose bool

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Verbose output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fileWatcher, err := watcher.NewFileWatcher(a.cfg.Watch.Debounce, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(a.catalog.Contains)
	fileWatcher.AddFilter(watcher.NoHiddenFilter)
	fileWatcher.AddDirFilter(watcher.SkipDirsFilter(a.cfg.Cache.Dir))
	fileWatcher.AddDirFilter(watcher.NoHiddenFilter)
	fileWatcher.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		return a.handleChanges(ctx, cmd, events)
	})

	if err := fileWatcher.AddRecursive(a.catalog.Root()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", a.catalog.Root(), err)
	}

	if err := a.rebuild(ctx, cmd); err != nil {
		a.errors.Handle(ctx, err)
	}

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	a.logger.Info(ctx, "Watching for changes", "dir", a.catalog.Root())

	<-ctx.Done()
	a.logger.Info(context.Background(), "Stopping file watcher")
	return nil
}

// handleChanges drops the artifacts of removed templates and recompiles the
// rest. Freshness checks pick up dependents of changed layouts and partials.
func (a *app) handleChanges(ctx context.Context, cmd *cobra.Command, events []watcher.ChangeEvent) error {
	if watchVerbose {
		for _, event := range events {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", event)
		}
	}

	for _, event := range events {
		if !event.Type.Gone() {
			continue
		}
		id, ok := a.identifierOf(event.Path)
		if !ok {
			continue
		}
		a.content.Invalidate(a.resolver.ArtifactPath(id))
		if err := a.store.Remove(a.resolver.Key(id)); err != nil {
			a.logger.Warn(ctx, err, "Failed to remove artifact", "template", id)
		}
	}

	if err := a.rebuild(ctx, cmd); err != nil {
		a.errors.Handle(ctx, err)
	}
	return nil
}

func (a *app) rebuild(ctx context.Context, cmd *cobra.Command) error {
	ids, err := a.catalog.Identifiers(ctx)
	if err != nil {
		return err
	}
	report, err := a.engine.CompileAll(ctx, ids)
	printReport(cmd.OutOrStdout(), report, a.engine.Stats(), watchVerbose)
	return err
}

func (a *app) identifierOf(path string) (view.Identifier, bool) {
	rel, err := filepath.Rel(a.catalog.Root(), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return view.FromRelativePath(rel, a.catalog.Extension()), true
}
