package directive

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenKindString(t *testing.T) {
	testCases := []struct {
		kind     TokenKind
		expected string
	}{
		{TokenText, "text"},
		{TokenEcho, "echo"},
		{TokenRawEcho, "raw-echo"},
		{TokenDirective, "directive"},
		{TokenKind(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.kind.String())
		})
	}
}

func TestLexBalancedArguments(t *testing.T) {
	tokens, err := Lex(`@if(len(.Items) > (1 + 2))yes@endif`)
	require.NoError(t, err)
	require.Len(t, tokens, 3)

	assert.Equal(t, TokenDirective, tokens[0].Kind)
	assert.Equal(t, "if", tokens[0].Name)
	assert.Equal(t, "len(.Items) > (1 + 2)", tokens[0].Value)
	assert.True(t, tokens[0].HasArg)

	assert.Equal(t, TokenText, tokens[1].Kind)
	assert.Equal(t, "yes", tokens[1].Value)

	assert.Equal(t, "endif", tokens[2].Name)
	assert.False(t, tokens[2].HasArg)
}

func TestLexQuotedParentheses(t *testing.T) {
	tokens, err := Lex(`@if(eq .Name ")(")ok@endif`)
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, `eq .Name ")("`, tokens[0].Value)
}

func TestLexEchoes(t *testing.T) {
	tokens, err := Lex(`<p>{{ .Name }}</p>{!! .HTML !!}{{ "}}" }}`)
	require.NoError(t, err)
	require.Len(t, tokens, 5)

	assert.Equal(t, TokenText, tokens[0].Kind)
	assert.Equal(t, TokenEcho, tokens[1].Kind)
	assert.Equal(t, ".Name", tokens[1].Value)
	assert.Equal(t, TokenText, tokens[2].Kind)
	assert.Equal(t, TokenRawEcho, tokens[3].Kind)
	assert.Equal(t, ".HTML", tokens[3].Value)
	assert.Equal(t, `"}}"`, tokens[4].Value)
}

func TestLexLeavesUnknownAndEmbeddedAtSignsAlone(t *testing.T) {
	inputs := []string{
		"mail me@endif.com",
		"@section(title)",
		"@extends('layout')",
		"@iffy",
		"@if without parens",
		"@@",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			tokens, err := Lex(in)
			require.NoError(t, err)
			require.Len(t, tokens, 1)
			assert.Equal(t, TokenText, tokens[0].Kind)
			assert.Equal(t, in, tokens[0].Value)
		})
	}
}

func TestLexAllowsSpaceBeforeArgument(t *testing.T) {
	tokens, err := Lex("@foreach (.Items as item)")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "foreach", tokens[0].Name)
	assert.Equal(t, ".Items as item", tokens[0].Value)
}

func TestLexErrors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		line int
		col  int
	}{
		{"unterminated argument", "ok\n  @if(.A", 2, 3},
		{"unterminated echo", "{{ .Name", 1, 1},
		{"unterminated raw echo", "x {!! .Name }}", 1, 3},
		{"empty echo", "{{   }}", 1, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Lex(tc.src)
			require.Error(t, err)
			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr))
			assert.Equal(t, tc.line, syntaxErr.Pos.Line)
			assert.Equal(t, tc.col, syntaxErr.Pos.Column)
		})
	}
}

func TestPosition(t *testing.T) {
	l := &lexer{src: "ab\ncd\nef", line: 1}
	assert.Equal(t, Position{Offset: 0, Line: 1, Column: 1}, l.position(0))
	assert.Equal(t, Position{Offset: 4, Line: 2, Column: 2}, l.position(4))
	assert.Equal(t, Position{Offset: 6, Line: 3, Column: 1}, l.position(6))
	assert.Equal(t, Position{Offset: 7, Line: 3, Column: 2}, l.position(7))
	// Going backwards rescans from the start.
	assert.Equal(t, Position{Offset: 3, Line: 2, Column: 1}, l.position(3))
}

func TestTokenPositionsAcrossLines(t *testing.T) {
	var b strings.Builder
	const lines = 500
	for i := 0; i < lines; i++ {
		b.WriteString("  @if(.A) {{ .B }} @endif\n")
	}

	tokens, err := Lex(b.String())
	require.NoError(t, err)

	var directives, echoes int
	for _, tok := range tokens {
		switch tok.Kind {
		case TokenDirective:
			line := directives/2 + 1
			col := 3
			if tok.Name == "endif" {
				col = 20
			}
			require.Equal(t, Position{Offset: (line-1)*26 + col - 1, Line: line, Column: col}, tok.Pos, "directive %d", directives)
			directives++
		case TokenEcho:
			echoes++
			require.Equal(t, echoes, tok.Pos.Line)
			require.Equal(t, 11, tok.Pos.Column)
		}
	}
	assert.Equal(t, 2*lines, directives)
	assert.Equal(t, lines, echoes)
}

func TestFindMarkers(t *testing.T) {
	src := "@section('title')\nA\n@section(body(x))\nB\nx@section(skip)\n@sectionless(y)"
	markers := FindMarkers(src, "section")
	require.Len(t, markers, 2)

	assert.Equal(t, "'title'", markers[0].Arg)
	assert.Equal(t, "@section('title')", markers[0].Text)
	assert.Equal(t, 0, markers[0].Start)

	assert.Equal(t, "body(x)", markers[1].Arg)
	assert.Equal(t, "@section(body(x))", markers[1].Text)
	assert.Equal(t, src[markers[1].Start:markers[1].End], markers[1].Text)

	first, ok := FirstMarker("x\n@extends(layouts.main)\n", "extends")
	require.True(t, ok)
	assert.Equal(t, "layouts.main", first.Arg)

	_, ok = FirstMarker("no parent here", "extends")
	assert.False(t, ok)
}
