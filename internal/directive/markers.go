package directive

import "strings"

// Marker is one occurrence of @name(argument) in source text.
type Marker struct {
	Start int
	End   int
	// Arg is the raw argument text between the parentheses, untrimmed.
	Arg string
	// Text is the full marker as written, e.g. "@section('title')".
	Text string
}

// FindMarkers returns every @name(...) marker in src in order of appearance.
// Arguments are captured with balanced parentheses. Occurrences preceded by
// a word character, not followed by "(" or with an unterminated argument are
// skipped.
func FindMarkers(src, name string) []Marker {
	var markers []Marker
	prefix := "@" + name

	for from := 0; from < len(src); {
		idx := strings.Index(src[from:], prefix)
		if idx < 0 {
			break
		}
		start := from + idx
		from = start + len(prefix)

		if start > 0 && isWordByte(src[start-1]) {
			continue
		}
		open := start + len(prefix)
		if open >= len(src) || src[open] != '(' {
			continue
		}
		closeIdx := matchParen(src, open)
		if closeIdx < 0 {
			continue
		}

		markers = append(markers, Marker{
			Start: start,
			End:   closeIdx + 1,
			Arg:   src[open+1 : closeIdx],
			Text:  src[start : closeIdx+1],
		})
		from = closeIdx + 1
	}

	return markers
}

// FirstMarker returns the first @name(...) marker in src.
func FirstMarker(src, name string) (Marker, bool) {
	markers := FindMarkers(src, name)
	if len(markers) == 0 {
		return Marker{}, false
	}
	return markers[0], true
}
