// Package view maps dotted template identifiers onto source files and cache
// keys.
//
// An identifier such as "layouts.main" names the source file
// "<template root>/layouts/main<ext>". Its compiled artifact lives at
// "<cache root>/<DeriveKey("layouts/main", ext)><ext>". Both mappings are
// pure: the same identifier always lands on the same files.
package view

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	sigilerrors "github.com/conneroisu/sigil/internal/errors"
)

// Identifier is a dot-separated logical template name.
type Identifier string

// ParseIdentifier normalizes a raw identifier as written by a caller or inside
// a directive argument: surrounding whitespace and one pair of matching quotes
// are removed. An empty result fails with ErrNoTemplateSpecified.
func ParseIdentifier(raw string) (Identifier, error) {
	id := Unquote(strings.TrimSpace(raw))
	if id == "" {
		return "", sigilerrors.NewNoTemplateSpecified()
	}
	return Identifier(id), nil
}

// String returns the identifier text.
func (id Identifier) String() string {
	return string(id)
}

// Path returns the slash-separated relative path of the identifier.
func (id Identifier) Path() string {
	return ResolvePath(string(id))
}

// ResolvePath converts dot-separated segments into slash-separated path
// segments. It performs no cleaning of ".." or other escapes; identifiers
// come from template authors and are trusted.
func ResolvePath(identifier string) string {
	return strings.ReplaceAll(identifier, ".", "/")
}

// DeriveKey returns a fixed-length cache key for a template path and
// extension. The path may be given in dotted or slashed form; both canonicalize
// to the same key. Collisions are not handled.
func DeriveKey(path, extension string) string {
	canonical := strings.ReplaceAll(ResolvePath(path), `\`, "/")
	sum := sha256.Sum256([]byte(canonical + extension))
	return hex.EncodeToString(sum[:])
}

// FromRelativePath converts a source path relative to the template root back
// into an identifier, dropping the extension.
func FromRelativePath(rel, extension string) Identifier {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, extension)
	return Identifier(strings.ReplaceAll(rel, "/", "."))
}

// Unquote strips one pair of matching single or double quotes.
func Unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' || first == '"') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Resolver locates source files and artifacts for identifiers.
type Resolver struct {
	templateDir string
	cacheDir    string
	extension   string
}

// NewResolver creates a resolver rooted at the given directories.
func NewResolver(templateDir, cacheDir, extension string) *Resolver {
	return &Resolver{
		templateDir: templateDir,
		cacheDir:    cacheDir,
		extension:   extension,
	}
}

// SourcePath returns the absolute source path of id.
func (r *Resolver) SourcePath(id Identifier) string {
	return filepath.Join(r.templateDir, filepath.FromSlash(id.Path())+r.extension)
}

// Key returns the cache key of id.
func (r *Resolver) Key(id Identifier) string {
	return DeriveKey(id.Path(), r.extension)
}

// ArtifactPath returns the absolute path of the compiled artifact of id.
func (r *Resolver) ArtifactPath(id Identifier) string {
	return filepath.Join(r.cacheDir, r.Key(id)+r.extension)
}
