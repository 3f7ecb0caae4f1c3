//go:build property

package view

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestDeriveKeyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 300

	properties := gopter.NewProperties(parameters)

	segments := gen.SliceOfN(3, gen.Identifier()).SuchThat(func(v []string) bool {
		for _, s := range v {
			if s == "" {
				return false
			}
		}
		return true
	})

	properties.Property("dotted and slashed forms share a key", prop.ForAll(
		func(parts []string) bool {
			return DeriveKey(strings.Join(parts, "."), ".html") ==
				DeriveKey(strings.Join(parts, "/"), ".html")
		},
		segments,
	))

	properties.Property("keys are 64 lowercase hex characters", prop.ForAll(
		func(parts []string) bool {
			key := DeriveKey(strings.Join(parts, "."), ".html")
			if len(key) != 64 {
				return false
			}
			return strings.Trim(key, "0123456789abcdef") == ""
		},
		segments,
	))

	properties.Property("extension is part of the key", prop.ForAll(
		func(parts []string) bool {
			path := strings.Join(parts, ".")
			return DeriveKey(path, ".html") != DeriveKey(path, ".txt")
		},
		segments,
	))

	properties.Property("identifiers round-trip through relative paths", prop.ForAll(
		func(parts []string) bool {
			id := Identifier(strings.Join(parts, "."))
			return FromRelativePath(id.Path()+".html", ".html") == id
		},
		segments,
	))

	properties.TestingRun(t)
}
