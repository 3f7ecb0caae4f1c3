package directive

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// IncludeFunc resolves the argument of an @include directive to the location
// of the partial's compiled artifact.
type IncludeFunc func(arg string, pos Position) (string, error)

// Options configures a Generator.
type Options struct {
	// Include is required when the source contains @include.
	Include IncludeFunc
}

// Generator writes the host representation of a node tree.
type Generator struct {
	opts      Options
	out       strings.Builder
	switchSeq int
}

// NewGenerator creates a generator.
func NewGenerator(opts Options) *Generator {
	return &Generator{opts: opts}
}

// Compile parses src and generates its host representation with blank-line
// runs collapsed.
func Compile(src string, opts Options) (string, error) {
	nodes, err := Parse(src)
	if err != nil {
		return "", err
	}

	g := NewGenerator(opts)
	if err := g.Generate(nodes); err != nil {
		return "", err
	}
	return CollapseBlankLines(g.String()), nil
}

// String returns everything generated so far.
func (g *Generator) String() string {
	return g.out.String()
}

// Generate writes nodes.
func (g *Generator) Generate(nodes []Node) error {
	for _, n := range nodes {
		if err := g.node(n); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) node(n Node) error {
	switch n := n.(type) {
	case *TextNode:
		g.out.WriteString(n.Value)
	case *EchoNode:
		if n.Raw {
			fmt.Fprintf(&g.out, "{{ raw (%s) }}", n.Expr)
		} else {
			fmt.Fprintf(&g.out, "{{ escape (%s) }}", n.Expr)
		}
	case *UseNode:
		name := strings.TrimSpace(n.Name)
		if name == "" {
			return &SyntaxError{Pos: n.Pos, Message: "@use requires a name"}
		}
		fmt.Fprintf(&g.out, "{{ use %s }}", strconv.Quote(unquote(name)))
	case *IncludeNode:
		return g.include(n)
	case *IfNode:
		return g.ifNode(n)
	case *SwitchNode:
		return g.switchNode(n)
	case *LoopNode:
		return g.loop(n)
	case *LoopControlNode:
		if n.Continue {
			g.out.WriteString("{{ continue }}")
		} else {
			g.out.WriteString("{{ break }}")
		}
	default:
		return fmt.Errorf("unsupported node %T", n)
	}
	return nil
}

func (g *Generator) include(n *IncludeNode) error {
	if g.opts.Include == nil {
		return &SyntaxError{Pos: n.Pos, Message: "@include is not available here"}
	}
	location, err := g.opts.Include(n.Arg, n.Pos)
	if err != nil {
		return err
	}
	// Partials always see the page data, even inside a range.
	fmt.Fprintf(&g.out, "{{ include %s $ }}", strconv.Quote(location))
	return nil
}

func (g *Generator) ifNode(n *IfNode) error {
	for i, branch := range n.Branches {
		if i == 0 {
			fmt.Fprintf(&g.out, "{{ if %s }}", branch.Cond)
		} else {
			fmt.Fprintf(&g.out, "{{ else if %s }}", branch.Cond)
		}
		if err := g.Generate(branch.Body); err != nil {
			return err
		}
	}
	if n.HasElse {
		g.out.WriteString("{{ else }}")
		if err := g.Generate(n.Else); err != nil {
			return err
		}
	}
	g.out.WriteString("{{ end }}")
	return nil
}

// switchNode lowers a switch onto an if/else-if chain over a variable that
// holds the subject. Default arms are emitted last whatever their position.
func (g *Generator) switchNode(n *SwitchNode) error {
	g.switchSeq++
	subject := fmt.Sprintf("$switch%d", g.switchSeq)
	fmt.Fprintf(&g.out, "{{ %s := %s }}", subject, n.Subject)

	if err := g.Generate(n.Preamble); err != nil {
		return err
	}

	var (
		defaults *Case
		opened   bool
	)
	for i := range n.Cases {
		arm := &n.Cases[i]
		if arm.Default {
			defaults = arm
			continue
		}
		values := splitArgs(arm.Value)
		if len(values) == 0 {
			return &SyntaxError{Pos: arm.Pos, Message: "@case requires a value"}
		}
		operands := make([]string, len(values))
		for j, v := range values {
			operands[j] = "(" + v + ")"
		}

		keyword := "if"
		if opened {
			keyword = "else if"
		}
		fmt.Fprintf(&g.out, "{{ %s eq %s %s }}", keyword, subject, strings.Join(operands, " "))
		opened = true
		if err := g.Generate(arm.Body); err != nil {
			return err
		}
	}

	if defaults != nil {
		if opened {
			g.out.WriteString("{{ else }}")
		}
		if err := g.Generate(defaults.Body); err != nil {
			return err
		}
	}
	if opened {
		g.out.WriteString("{{ end }}")
	}
	return nil
}

func (g *Generator) loop(n *LoopNode) error {
	header := n.Arg
	if n.Kind == LoopForeach {
		header = foreachHeader(n.Arg)
	}
	if strings.TrimSpace(header) == "" {
		return &SyntaxError{Pos: n.Pos, Message: fmt.Sprintf("@%s requires an expression", n.Kind)}
	}

	fmt.Fprintf(&g.out, "{{ range %s }}", header)
	if err := g.Generate(n.Body); err != nil {
		return err
	}
	if n.HasEmpty {
		g.out.WriteString("{{ else }}")
		if err := g.Generate(n.Empty); err != nil {
			return err
		}
	}
	g.out.WriteString("{{ end }}")
	return nil
}

// foreachHeader rewrites "items as item" and "items as key => item" into
// range declarations. Arguments already in range form pass through.
func foreachHeader(arg string) string {
	if strings.Contains(arg, ":=") {
		return arg
	}
	idx := strings.LastIndex(arg, " as ")
	if idx < 0 {
		return arg
	}

	collection := strings.TrimSpace(arg[:idx])
	vars := strings.TrimSpace(arg[idx+len(" as "):])
	if key, value, ok := strings.Cut(vars, "=>"); ok {
		return fmt.Sprintf("%s, %s := %s", variable(key), variable(value), collection)
	}
	return fmt.Sprintf("%s := %s", variable(vars), collection)
}

func variable(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "$") {
		return name
	}
	return "$" + name
}

// splitArgs splits a comma-separated argument list at top level, keeping
// commas inside parentheses or quotes.
func splitArgs(arg string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(arg); i++ {
		switch arg[i] {
		case '\'', '"', '`':
			if end := skipQuoted(arg, i); end >= 0 {
				i = end
			}
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, arg[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, arg[start:])

	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' || first == '"') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}

var (
	blankLineRun = regexp.MustCompile(`(?:\r\n|\r|\n)(?:[ \t]*(?:\r\n|\r|\n)){2,}`)
	lineBreak    = regexp.MustCompile(`^(?:\r\n|\r|\n)`)
)

// CollapseBlankLines replaces every run of two or more consecutive blank
// lines with exactly one blank line, written with the line ending that
// opened the run. Everything else, single blank lines included, is left
// byte for byte.
func CollapseBlankLines(s string) string {
	return blankLineRun.ReplaceAllStringFunc(s, func(run string) string {
		eol := lineBreak.FindString(run)
		return eol + eol
	})
}
