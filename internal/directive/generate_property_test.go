//go:build property

package directive

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestCollapseBlankLinesProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)

	text := gen.SliceOf(gen.OneConstOf("\n", "\r\n", "\r", " ", "\t", "a", "@if")).
		Map(func(parts []string) string { return strings.Join(parts, "") })

	properties.Property("collapsing is idempotent", prop.ForAll(
		func(s string) bool {
			once := CollapseBlankLines(s)
			return CollapseBlankLines(once) == once
		},
		text,
	))

	// breaks reduces s to its line breaks, one "\n" each, keeping the
	// other visible characters so lines stay apart.
	breaks := func(s string) string {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		s = strings.ReplaceAll(s, "\r", "\n")
		return strings.NewReplacer(" ", "", "\t", "").Replace(s)
	}

	properties.Property("no run of blank lines survives", prop.ForAll(
		func(s string) bool {
			return !strings.Contains(breaks(CollapseBlankLines(s)), "\n\n\n")
		},
		text,
	))

	properties.Property("input without blank-line runs is untouched", prop.ForAll(
		func(s string) bool {
			if strings.Contains(breaks(s), "\n\n\n") {
				return true
			}
			return CollapseBlankLines(s) == s
		},
		text,
	))

	properties.Property("carriage-return-free input stays carriage-return free", prop.ForAll(
		func(s string) bool {
			s = strings.ReplaceAll(s, "\r", "")
			return !strings.Contains(CollapseBlankLines(s), "\r")
		},
		text,
	))

	properties.Property("non-whitespace text is preserved in order", prop.ForAll(
		func(s string) bool {
			strip := func(v string) string {
				return strings.Map(func(r rune) rune {
					if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
						return -1
					}
					return r
				}, v)
			}
			return strip(CollapseBlankLines(s)) == strip(s)
		},
		text,
	))

	properties.TestingRun(t)
}
