// Package internal contains the implementation packages of the sigil CLI.
//
// # Package Organization
//
//   - view: identifiers, path resolution and cache keys
//   - directive: directive lexer, parser and code generator
//   - compiler: inheritance, includes and the compile engine
//   - cache: persisted artifacts with metadata and the in-memory content cache
//   - renderer: executes artifacts with text/template
//   - catalog: discovers templates under the template root
//   - watcher: debounced file watching
//   - config: viper-backed configuration
//   - errors: the structured error type and batch failure collection
//   - logging: slog-backed structured logging
//   - version: build information
//   - testutils: template trees on disk for tests
//
// # Data Flow
//
// A render or make request resolves an identifier to its source and cache
// key, then asks the engine for a fresh artifact. A stale artifact is rebuilt
// by inlining the parent layout, scanning directives and resolving each
// include through the same freshness check. Artifacts are written atomically
// with a metadata sidecar recording the layouts and partials they depend on.
package internal
