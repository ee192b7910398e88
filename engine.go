// engine.go
//
// The associative dependency engine behind mutate-and-reexecute. Every
// associative assignment becomes a graph node bound to its symbol; a node
// depends on the nodes defining the names its expression reads. Execution
// evaluates nodes in declaration order; delta mode skips clean nodes, which
// is what lets SetValueAndExecute replay only the affected slice of the
// program.
//
// The engine runs to completion synchronously. Evaluation failures return
// errors to the caller unwrapped.
package protocore

import (
	"errors"
	"fmt"
)

// GraphNode is the dependency-graph record of one associative assignment.
type GraphNode struct {
	ID      int
	Symbol  *SymbolNode
	BlockID int
	Stmt    *AssignStmt
	Dirty   bool

	reads      []string
	dependents []*GraphNode
}

// Engine binds one executable and its runtime memory and owns the dependency
// graph of the top-level associative block.
type Engine struct {
	exe   *Executable
	mem   *RuntimeMemory
	nodes []*GraphNode

	// Keyed by node identity, not storage index: indices are only unique
	// within one symbol table, and a nested-block symbol must never alias a
	// top-level node.
	bySymbol map[*SymbolNode]*GraphNode
}

func NewEngine(exe *Executable, mem *RuntimeMemory) *Engine {
	return &Engine{exe: exe, mem: mem, bySymbol: map[*SymbolNode]*GraphNode{}}
}

func (en *Engine) Executable() *Executable { return en.exe }
func (en *Engine) Memory() *RuntimeMemory  { return en.mem }
func (en *Engine) Nodes() []*GraphNode     { return en.nodes }

// NodeForSymbol returns the graph node that defines sn, or nil when sn was
// not declared associatively (imperative locals have no node and cannot be
// set through the mirror).
func (en *Engine) NodeForSymbol(sn *SymbolNode) *GraphNode {
	if sn == nil {
		return nil
	}
	return en.bySymbol[sn]
}

// Compile parses associative source and appends its assignments to the
// top-level block: new names get symbols and graph nodes, redefinitions of
// an existing name replace that node's expression in place. All new and
// replaced nodes start dirty. Dependency edges are rebuilt afterwards so a
// later definition satisfies an earlier read.
func (en *Engine) Compile(src string) error {
	stmts, err := Parse(src)
	if err != nil {
		return WrapErrorWithSource(err, src)
	}
	top := en.exe.TopBlock()
	for _, st := range stmts {
		sn := &SymbolNode{
			Name:          st.Name,
			ClassScope:    GlobalScope,
			FunctionScope: GlobalScope,
			CodeBlockID:   top.ID,
		}
		idx, appended := top.Symbols.Append(sn)
		if !appended {
			sn = top.Symbols.Node(idx)
		}
		node := en.bySymbol[sn]
		if node == nil {
			node = &GraphNode{ID: len(en.nodes), Symbol: sn, BlockID: top.ID}
			en.nodes = append(en.nodes, node)
			en.bySymbol[sn] = node
		}
		node.Stmt = st
		node.reads = FreeIdents(st.RHS)
		node.Dirty = true
	}
	en.rebuildEdges()
	en.mem.Reserve(top.ID, top.Symbols.GlobalSize())
	return nil
}

// rawExpr injects an already-computed value into a graph node; SetNodeValue
// uses it so a mirror-set variable survives delta re-execution.
type rawExpr struct{ v StackValue }

func (*rawExpr) exprNode() {}

// SetNodeValue rebinds a node's expression to a fixed value and dirties the
// node together with its transitive dependents.
func (en *Engine) SetNodeValue(node *GraphNode, v StackValue) {
	node.Stmt = &AssignStmt{Name: node.Symbol.Name, RHS: &rawExpr{v: v}}
	node.reads = nil
	en.rebuildEdges()
	en.MarkDirty(node)
}

func (en *Engine) rebuildEdges() {
	byName := map[string]*GraphNode{}
	for _, n := range en.nodes {
		n.dependents = n.dependents[:0]
		byName[n.Symbol.Name] = n
	}
	for _, n := range en.nodes {
		for _, name := range n.reads {
			if def := byName[name]; def != nil && def != n {
				def.dependents = append(def.dependents, n)
			}
		}
	}
}

// MarkDirty marks the node and the transitive closure of its dependents.
func (en *Engine) MarkDirty(node *GraphNode) {
	en.markDirty(node, map[*GraphNode]bool{})
}

func (en *Engine) markDirty(node *GraphNode, seen map[*GraphNode]bool) {
	if node == nil || seen[node] {
		return
	}
	seen[node] = true
	node.Dirty = true
	for _, dep := range node.dependents {
		en.markDirty(dep, seen)
	}
}

// Execute runs the top-level block. In delta mode only dirty nodes
// re-evaluate; a full run marks everything dirty first. Passes repeat in
// declaration order until no node is dirty, bounded by the node count so a
// dependency cycle terminates instead of spinning. A node reading a slot
// that another dirty node has not produced yet is deferred to the next
// pass, so forward references resolve through the fixpoint; the read error
// only surfaces when a pass makes no progress.
func (en *Engine) Execute(delta bool) error {
	if !delta {
		for _, n := range en.nodes {
			n.Dirty = true
		}
	}
	var deferred error
	for pass := 0; pass <= len(en.nodes); pass++ {
		progressed := false
		deferred = nil
		for _, n := range en.nodes {
			if !n.Dirty {
				continue
			}
			v, err := en.evalExpr(n.Stmt.RHS)
			if err != nil {
				var ue *UninitializedVariableError
				if errors.As(err, &ue) {
					deferred = err
					continue
				}
				return err
			}
			prev := en.mem.At(n.BlockID, n.Symbol.StorageIndex)
			en.mem.SetAt(n.BlockID, n.Symbol.StorageIndex, v)
			n.Dirty = false
			progressed = true
			if !ValuesEqual(prev, v, en.mem.Heap) {
				for _, dep := range n.dependents {
					en.MarkDirty(dep)
				}
			}
		}
		if !progressed {
			return deferred
		}
	}
	return deferred
}

// RunSource compiles and fully executes one source chunk (REPL entry path).
func (en *Engine) RunSource(src string) error {
	if err := en.Compile(src); err != nil {
		return err
	}
	return en.Execute(false)
}

// ---------- expression evaluation ----------

func (en *Engine) evalExpr(e Expr) (StackValue, error) {
	switch x := e.(type) {
	case *IntLit:
		return IntValue(x.Value), nil
	case *DoubleLit:
		return DoubleValue(x.Value), nil
	case *BoolLit:
		return BoolValue(x.Value), nil
	case *StringLit:
		return StringValue(x.Value), nil
	case *CharLit:
		return CharValue(x.Value), nil
	case *NullLit:
		return NullValue, nil
	case *rawExpr:
		return x.v, nil

	case *IdentExpr:
		top := en.exe.TopBlock()
		idx := top.Symbols.IndexOfExact(x.Name, GlobalScope, GlobalScope)
		if idx == InvalidIndex {
			return InvalidValue, &NameNotFoundError{Name: x.Name}
		}
		v := en.mem.At(top.ID, idx)
		if v.Kind == TypeInvalid {
			return InvalidValue, &UninitializedVariableError{Name: x.Name}
		}
		return v, nil

	case *ArrayLit:
		elems := make([]StackValue, 0, len(x.Elems))
		for _, el := range x.Elems {
			v, err := en.evalExpr(el)
			if err != nil {
				return InvalidValue, err
			}
			elems = append(elems, v)
		}
		return en.mem.Heap.AllocateArray(elems), nil

	case *UnaryExpr:
		v, err := en.evalExpr(x.Operand)
		if err != nil {
			return InvalidValue, err
		}
		switch v.Kind {
		case TypeInt:
			return IntValue(-v.Data.(int64)), nil
		case TypeDouble:
			return DoubleValue(-v.Data.(float64)), nil
		}
		return InvalidValue, fmt.Errorf("unary '-' expects a number, got %s", v.Kind)

	case *BinaryExpr:
		l, err := en.evalExpr(x.L)
		if err != nil {
			return InvalidValue, err
		}
		r, err := en.evalExpr(x.R)
		if err != nil {
			return InvalidValue, err
		}
		return en.evalBinary(x.Op, l, r)

	case *IndexExpr:
		target, err := en.evalExpr(x.Target)
		if err != nil {
			return InvalidValue, err
		}
		idx, err := en.evalExpr(x.Index)
		if err != nil {
			return InvalidValue, err
		}
		if target.Kind != TypeArrayPointer || idx.Kind != TypeInt {
			return InvalidValue, fmt.Errorf("indexing expects array[int], got %s[%s]", target.Kind, idx.Kind)
		}
		arr, err := en.mem.Heap.Array(target.Data.(int))
		if err != nil {
			return InvalidValue, err
		}
		i := int(idx.Data.(int64))
		if i < 0 || i >= len(arr.Values) {
			return InvalidValue, fmt.Errorf("array index %d out of range", i)
		}
		return arr.Values[i], nil

	default:
		return InvalidValue, fmt.Errorf("unknown expression node %T", e)
	}
}

func (en *Engine) evalBinary(op string, l, r StackValue) (StackValue, error) {
	if op == "+" && l.Kind == TypeString && r.Kind == TypeString {
		return StringValue(l.Data.(string) + r.Data.(string)), nil
	}
	if !isNumeric(l) || !isNumeric(r) {
		return InvalidValue, fmt.Errorf("operator %q expects numbers, got %s and %s", op, l.Kind, r.Kind)
	}
	bothInt := l.Kind == TypeInt && r.Kind == TypeInt
	lf, rf := toDouble(l), toDouble(r)
	switch op {
	case "+":
		if bothInt {
			return IntValue(l.Data.(int64) + r.Data.(int64)), nil
		}
		return DoubleValue(lf + rf), nil
	case "-":
		if bothInt {
			return IntValue(l.Data.(int64) - r.Data.(int64)), nil
		}
		return DoubleValue(lf - rf), nil
	case "*":
		if bothInt {
			return IntValue(l.Data.(int64) * r.Data.(int64)), nil
		}
		return DoubleValue(lf * rf), nil
	case "/":
		if rf == 0 {
			return InvalidValue, fmt.Errorf("division by zero")
		}
		if bothInt {
			return IntValue(l.Data.(int64) / r.Data.(int64)), nil
		}
		return DoubleValue(lf / rf), nil
	default:
		return InvalidValue, fmt.Errorf("unknown operator %q", op)
	}
}
