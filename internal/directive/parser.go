package directive

import (
	"fmt"
	"strings"
)

type parser struct {
	tokens    []Token
	pos       int
	loopDepth int
}

// Parse lexes and parses src into a node tree.
func Parse(src string) ([]Node, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	nodes, term, err := p.parseBlock(nil)
	if err != nil {
		return nil, err
	}
	if term != nil {
		return nil, unexpected(*term)
	}
	return nodes, nil
}

func (p *parser) next() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok, true
}

// parseBlock collects nodes until one of the until directives is reached and
// returns it as the terminator. A nil terminator means end of input.
func (p *parser) parseBlock(until map[string]bool) ([]Node, *Token, error) {
	var nodes []Node

	for {
		tok, ok := p.next()
		if !ok {
			return nodes, nil, nil
		}

		switch tok.Kind {
		case TokenText:
			nodes = append(nodes, &TextNode{Pos: tok.Pos, Value: tok.Value})
			continue
		case TokenEcho:
			nodes = append(nodes, &EchoNode{Pos: tok.Pos, Expr: tok.Value})
			continue
		case TokenRawEcho:
			nodes = append(nodes, &EchoNode{Pos: tok.Pos, Expr: tok.Value, Raw: true})
			continue
		}

		if until[tok.Name] {
			return nodes, &tok, nil
		}

		var (
			node Node
			err  error
		)
		switch tok.Name {
		case "use":
			node = &UseNode{Pos: tok.Pos, Name: tok.Value}
		case "include":
			node = &IncludeNode{Pos: tok.Pos, Arg: tok.Value}
		case "if":
			node, err = p.parseIf(tok)
		case "switch":
			node, err = p.parseSwitch(tok)
		case "for":
			node, err = p.parseLoop(tok, LoopFor, "endfor")
		case "foreach":
			node, err = p.parseLoop(tok, LoopForeach, "endforeach")
		case "while":
			node, err = p.parseLoop(tok, LoopWhile, "endwhile")
		case "break", "continue":
			if p.loopDepth == 0 {
				return nil, nil, unexpected(tok)
			}
			node = &LoopControlNode{Pos: tok.Pos, Continue: tok.Name == "continue"}
		default:
			return nil, nil, unexpected(tok)
		}
		if err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, node)
	}
}

func (p *parser) parseIf(open Token) (Node, error) {
	node := &IfNode{Pos: open.Pos}
	cond := open.Value

	for {
		body, term, err := p.parseBlock(map[string]bool{"elseif": true, "else": true, "endif": true})
		if err != nil {
			return nil, err
		}
		if term == nil {
			return nil, unclosed(open, "endif")
		}
		node.Branches = append(node.Branches, Branch{Cond: cond, Body: body})

		switch term.Name {
		case "elseif":
			cond = term.Value
		case "else":
			elseBody, end, err := p.parseBlock(map[string]bool{"endif": true})
			if err != nil {
				return nil, err
			}
			if end == nil {
				return nil, unclosed(open, "endif")
			}
			node.Else = elseBody
			node.HasElse = true
			return node, nil
		case "endif":
			return node, nil
		}
	}
}

func (p *parser) parseSwitch(open Token) (Node, error) {
	node := &SwitchNode{Pos: open.Pos, Subject: open.Value}
	arms := map[string]bool{"case": true, "default": true, "endswitch": true}

	preamble, term, err := p.parseBlock(arms)
	if err != nil {
		return nil, err
	}
	if !blank(preamble) {
		node.Preamble = preamble
	}

	for term != nil {
		switch term.Name {
		case "endswitch":
			return node, nil
		case "case", "default":
			arm := Case{Pos: term.Pos, Value: term.Value, Default: term.Name == "default"}
			// A @break directly in the arm ends the case. Nested deeper, or
			// as @continue, it controls the enclosing loop.
			body, next, err := p.parseBlock(map[string]bool{"case": true, "default": true, "break": true, "endswitch": true})
			if err != nil {
				return nil, err
			}
			arm.Body = body
			node.Cases = append(node.Cases, arm)

			if next != nil && next.Name == "break" {
				// Content between @break and the next arm is unreachable.
				_, next, err = p.parseBlock(arms)
				if err != nil {
					return nil, err
				}
			}
			term = next
		}
	}

	return nil, unclosed(open, "endswitch")
}

func (p *parser) parseLoop(open Token, kind LoopKind, closer string) (Node, error) {
	node := &LoopNode{Pos: open.Pos, Kind: kind, Arg: open.Value}

	p.loopDepth++
	body, term, err := p.parseBlock(map[string]bool{closer: true, "empty": true})
	p.loopDepth--
	if err != nil {
		return nil, err
	}
	if term == nil {
		return nil, unclosed(open, closer)
	}
	node.Body = body

	if term.Name == "empty" {
		emptyBody, end, err := p.parseBlock(map[string]bool{closer: true})
		if err != nil {
			return nil, err
		}
		if end == nil {
			return nil, unclosed(open, closer)
		}
		node.Empty = emptyBody
		node.HasEmpty = true
	}

	return node, nil
}

func blank(nodes []Node) bool {
	for _, n := range nodes {
		text, ok := n.(*TextNode)
		if !ok || strings.TrimSpace(text.Value) != "" {
			return false
		}
	}
	return true
}

func unexpected(tok Token) error {
	return &SyntaxError{Pos: tok.Pos, Message: fmt.Sprintf("unexpected @%s", tok.Name)}
}

func unclosed(open Token, closer string) error {
	return &SyntaxError{Pos: open.Pos, Message: fmt.Sprintf("@%s is never closed by @%s", open.Name, closer)}
}
