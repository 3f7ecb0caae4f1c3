package compiler

import (
	"strings"

	"github.com/conneroisu/sigil/internal/directive"
	"github.com/conneroisu/sigil/internal/view"
)

type section struct {
	name string
	body string
}

// childSections splits a child document at its @section markers. Each body
// runs from the end of its marker to the start of the next marker or the end
// of the document. Text before the first marker is dropped.
func childSections(child string) []section {
	markers := directive.FindMarkers(child, "section")
	sections := make([]section, len(markers))
	for i, m := range markers {
		end := len(child)
		if i+1 < len(markers) {
			end = markers[i+1].Start
		}
		sections[i] = section{name: m.Arg, body: child[m.End:end]}
	}
	return sections
}

// SectionName normalizes a section argument: surrounding whitespace and one
// pair of matching quotes are removed.
func SectionName(arg string) string {
	return view.Unquote(strings.TrimSpace(arg))
}

func sameSection(a, b string, strict bool) bool {
	if strict {
		return a == b
	}
	return SectionName(a) == SectionName(b)
}

// ResolveInheritance merges child into parent. Every @section marker of the
// parent is a yield point; the first occurrence of each distinct marker is
// replaced by the body of the first child section with a matching name.
// Yield points without a match are left in place. With strict set, names
// match only when their argument text is byte-identical.
func ResolveInheritance(child, parent string, strict bool) string {
	sections := childSections(child)
	yields := directive.FindMarkers(parent, "section")
	if len(sections) == 0 || len(yields) == 0 {
		return parent
	}

	var (
		out      strings.Builder
		last     int
		replaced = make(map[string]bool)
	)
	for _, y := range yields {
		if replaced[y.Text] {
			continue
		}
		for _, s := range sections {
			if !sameSection(y.Arg, s.name, strict) {
				continue
			}
			out.WriteString(parent[last:y.Start])
			out.WriteString(s.body)
			last = y.End
			replaced[y.Text] = true
			break
		}
	}
	out.WriteString(parent[last:])
	return out.String()
}
