package directive

// Node is an element of a parsed template.
type Node interface {
	Position() Position
}

// TextNode is literal output.
type TextNode struct {
	Pos   Position
	Value string
}

// EchoNode outputs an expression, HTML-escaped unless Raw is set.
type EchoNode struct {
	Pos  Position
	Expr string
	Raw  bool
}

// UseNode imports a helper namespace.
type UseNode struct {
	Pos  Position
	Name string
}

// IncludeNode loads a compiled partial.
type IncludeNode struct {
	Pos Position
	Arg string
}

// Branch is one guarded body of an IfNode.
type Branch struct {
	Cond string
	Body []Node
}

// IfNode is an @if/@elseif/@else/@endif chain.
type IfNode struct {
	Pos      Position
	Branches []Branch
	Else     []Node
	HasElse  bool
}

// Case is one arm of a SwitchNode.
type Case struct {
	Pos     Position
	Value   string
	Default bool
	Body    []Node
}

// SwitchNode is an @switch block. Preamble holds non-blank content written
// between @switch and the first @case.
type SwitchNode struct {
	Pos      Position
	Subject  string
	Preamble []Node
	Cases    []Case
}

// LoopKind distinguishes the loop directives.
type LoopKind int

const (
	LoopFor LoopKind = iota
	LoopForeach
	LoopWhile
)

// String returns the directive name of the loop kind.
func (k LoopKind) String() string {
	switch k {
	case LoopFor:
		return "for"
	case LoopForeach:
		return "foreach"
	case LoopWhile:
		return "while"
	default:
		return "unknown"
	}
}

// LoopNode is an @for, @foreach or @while block with an optional @empty arm.
type LoopNode struct {
	Pos      Position
	Kind     LoopKind
	Arg      string
	Body     []Node
	Empty    []Node
	HasEmpty bool
}

// LoopControlNode is @break or @continue inside a loop.
type LoopControlNode struct {
	Pos      Position
	Continue bool
}

func (n *TextNode) Position() Position        { return n.Pos }
func (n *EchoNode) Position() Position        { return n.Pos }
func (n *UseNode) Position() Position         { return n.Pos }
func (n *IncludeNode) Position() Position     { return n.Pos }
func (n *IfNode) Position() Position          { return n.Pos }
func (n *SwitchNode) Position() Position      { return n.Pos }
func (n *LoopNode) Position() Position        { return n.Pos }
func (n *LoopControlNode) Position() Position { return n.Pos }
