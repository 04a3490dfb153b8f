package expression

type node interface {
	position() int
}

type literalNode struct {
	pos   int
	value any
}

// variableNode is a '#name' reference.
type variableNode struct {
	pos  int
	name string
}

// rootPropertyNode is a bare identifier resolved against the root object.
type rootPropertyNode struct {
	pos  int
	name string
}

type propertyNode struct {
	pos  int
	recv node
	name string
}

type indexNode struct {
	pos   int
	recv  node
	index node
}

type callNode struct {
	pos  int
	recv node
	name string
	args []node
}

type unaryNode struct {
	pos     int
	op      string
	operand node
}

type binaryNode struct {
	pos         int
	op          string
	left, right node
}

func (n *literalNode) position() int      { return n.pos }
func (n *variableNode) position() int     { return n.pos }
func (n *rootPropertyNode) position() int { return n.pos }
func (n *propertyNode) position() int     { return n.pos }
func (n *indexNode) position() int        { return n.pos }
func (n *callNode) position() int         { return n.pos }
func (n *unaryNode) position() int        { return n.pos }
func (n *binaryNode) position() int       { return n.pos }

// walk visits n and every node below it.
func walk(n node, visit func(node)) {
	if n == nil {
		return
	}
	visit(n)
	switch t := n.(type) {
	case *propertyNode:
		walk(t.recv, visit)
	case *indexNode:
		walk(t.recv, visit)
		walk(t.index, visit)
	case *callNode:
		walk(t.recv, visit)
		for _, a := range t.args {
			walk(a, visit)
		}
	case *unaryNode:
		walk(t.operand, visit)
	case *binaryNode:
		walk(t.left, visit)
		walk(t.right, visit)
	}
}
