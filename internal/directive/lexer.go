// Package directive turns view source written in the sigil markup into Go
// text/template source.
//
// Translation runs in three stages. The lexer splits the source into literal
// text, echoes ({{ e }} and {!! e !!}) and @directives, scanning directive
// arguments with balanced parentheses so that expressions such as
// @if(len(.Items) > 0) are captured whole. The parser nests the tokens into a
// tree of blocks. The generator walks the tree once and writes the host
// representation. Blank-line runs are collapsed afterwards.
//
// An @include is generated as {{ include "<artifact>" $ }}, so a partial
// always receives the page data, also when it is included inside a loop.
package directive

import (
	"fmt"
	"strings"
)

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenEcho
	TokenRawEcho
	TokenDirective
)

// String returns the token kind name.
func (k TokenKind) String() string {
	switch k {
	case TokenText:
		return "text"
	case TokenEcho:
		return "echo"
	case TokenRawEcho:
		return "raw-echo"
	case TokenDirective:
		return "directive"
	default:
		return "unknown"
	}
}

// Position is a 1-based line and column in the source.
type Position struct {
	Offset int
	Line   int
	Column int
}

// String formats the position as line:column.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is one lexical unit of view source.
type Token struct {
	Kind TokenKind
	// Value holds literal text, an echo expression or a directive argument.
	Value  string
	Name   string
	HasArg bool
	Pos    Position
}

// directives that take a parenthesized argument.
var argDirectives = map[string]bool{
	"use":     true,
	"include": true,
	"if":      true,
	"elseif":  true,
	"switch":  true,
	"case":    true,
	"for":     true,
	"foreach": true,
	"while":   true,
}

// directives that stand alone.
var bareDirectives = map[string]bool{
	"else":       true,
	"endif":      true,
	"break":      true,
	"continue":   true,
	"default":    true,
	"endswitch":  true,
	"endfor":     true,
	"endforeach": true,
	"endwhile":   true,
	"empty":      true,
}

// SyntaxError reports malformed markup at a source position.
type SyntaxError struct {
	Pos     Position
	Message string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

type lexer struct {
	src    string
	pos    int
	text   strings.Builder
	textAt int
	tokens []Token

	// Line tracking advances with the offsets handed to position, which
	// only grow while lexing.
	lineAt    int
	line      int
	lineStart int
}

// Lex splits src into tokens.
func Lex(src string) ([]Token, error) {
	l := &lexer{src: src, line: 1}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

func (l *lexer) run() error {
	for l.pos < len(l.src) {
		switch {
		case strings.HasPrefix(l.src[l.pos:], "{!!"):
			if err := l.lexEcho(TokenRawEcho, "{!!", "!!}"); err != nil {
				return err
			}
		case strings.HasPrefix(l.src[l.pos:], "{{"):
			if err := l.lexEcho(TokenEcho, "{{", "}}"); err != nil {
				return err
			}
		case l.src[l.pos] == '@':
			ok, err := l.lexDirective()
			if err != nil {
				return err
			}
			if !ok {
				l.emitByte()
			}
		default:
			l.emitByte()
		}
	}
	l.flushText()
	return nil
}

func (l *lexer) emitByte() {
	if l.text.Len() == 0 {
		l.textAt = l.pos
	}
	l.text.WriteByte(l.src[l.pos])
	l.pos++
}

func (l *lexer) flushText() {
	if l.text.Len() == 0 {
		return
	}
	l.tokens = append(l.tokens, Token{
		Kind:  TokenText,
		Value: l.text.String(),
		Pos:   l.position(l.textAt),
	})
	l.text.Reset()
}

func (l *lexer) lexEcho(kind TokenKind, open, closer string) error {
	start := l.pos
	end := indexOutsideQuotes(l.src, start+len(open), closer)
	if end < 0 {
		return &SyntaxError{
			Pos:     l.position(start),
			Message: fmt.Sprintf("unterminated %s, missing %q", open, closer),
		}
	}

	expr := strings.TrimSpace(l.src[start+len(open) : end])
	if expr == "" {
		return &SyntaxError{Pos: l.position(start), Message: "empty " + open + " " + closer + " expression"}
	}

	l.flushText()
	l.tokens = append(l.tokens, Token{Kind: kind, Value: expr, Pos: l.position(start)})
	l.pos = end + len(closer)
	return nil
}

// lexDirective consumes a directive at l.pos. It reports false when the @
// does not start a known directive, leaving the input untouched.
func (l *lexer) lexDirective() (bool, error) {
	start := l.pos
	if start > 0 && isWordByte(l.src[start-1]) {
		return false, nil
	}

	nameEnd := start + 1
	for nameEnd < len(l.src) && isLetter(l.src[nameEnd]) {
		nameEnd++
	}
	name := l.src[start+1 : nameEnd]

	switch {
	case bareDirectives[name]:
		l.flushText()
		l.tokens = append(l.tokens, Token{Kind: TokenDirective, Name: name, Pos: l.position(start)})
		l.pos = nameEnd
		return true, nil

	case argDirectives[name]:
		open := nameEnd
		for open < len(l.src) && (l.src[open] == ' ' || l.src[open] == '\t') {
			open++
		}
		if open >= len(l.src) || l.src[open] != '(' {
			return false, nil
		}
		closeIdx := matchParen(l.src, open)
		if closeIdx < 0 {
			return false, &SyntaxError{
				Pos:     l.position(start),
				Message: fmt.Sprintf("unterminated argument of @%s", name),
			}
		}
		l.flushText()
		l.tokens = append(l.tokens, Token{
			Kind:   TokenDirective,
			Name:   name,
			Value:  strings.TrimSpace(l.src[open+1 : closeIdx]),
			HasArg: true,
			Pos:    l.position(start),
		})
		l.pos = closeIdx + 1
		return true, nil
	}

	return false, nil
}

// matchParen returns the index of the parenthesis closing the one at open,
// skipping quoted strings, or -1.
func matchParen(src string, open int) int {
	depth := 0
	for i := open; i < len(src); i++ {
		switch c := src[i]; c {
		case '\'', '"', '`':
			end := skipQuoted(src, i)
			if end < 0 {
				return -1
			}
			i = end
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// skipQuoted returns the index of the quote closing the string opened at i.
func skipQuoted(src string, i int) int {
	quote := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			if quote != '`' {
				j++
			}
		case quote:
			return j
		}
	}
	return -1
}

// indexOutsideQuotes finds needle at or after from, ignoring occurrences
// inside quoted strings. Unbalanced quotes fall back to a plain search.
func indexOutsideQuotes(src string, from int, needle string) int {
	for i := from; i < len(src); i++ {
		if strings.HasPrefix(src[i:], needle) {
			return i
		}
		switch src[i] {
		case '\'', '"', '`':
			end := skipQuoted(src, i)
			if end < 0 {
				idx := strings.Index(src[i:], needle)
				if idx < 0 {
					return -1
				}
				return i + idx
			}
			i = end
		}
	}
	return -1
}

// position converts a byte offset into a line and column, scanning only
// the bytes after the previous call.
func (l *lexer) position(offset int) Position {
	if offset < l.lineAt {
		l.lineAt, l.line, l.lineStart = 0, 1, 0
	}
	for {
		nl := strings.IndexByte(l.src[l.lineAt:offset], '\n')
		if nl < 0 {
			break
		}
		l.line++
		l.lineStart = l.lineAt + nl + 1
		l.lineAt = l.lineStart
	}
	l.lineAt = offset
	return Position{Offset: offset, Line: l.line, Column: offset - l.lineStart + 1}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordByte(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
